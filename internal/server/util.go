package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/llm-shell/llmshell/internal/apperr"
)

// wantsJSON reports whether the request opted into JSON via format=json.
// Plain text is the default: the primary consumer is a language-model agent
// parsing key-value lines.
func wantsJSON(c *gin.Context) bool {
	return c.Query("format") == "json"
}

// writeError renders err in the negotiated format with its mapped status
// code. Bodies are single-sentence, no stack traces.
func writeError(c *gin.Context, err error) {
	status := apperr.HTTPStatusOf(err)
	if wantsJSON(c) {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.String(status, "error: %s", err.Error())
}

// writeNegotiated renders v as JSON or as the given plain-text form.
func writeNegotiated(c *gin.Context, v any, text string) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, v)
		return
	}
	c.String(http.StatusOK, "%s", text)
}
