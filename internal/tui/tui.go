package tui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/llm-shell/llmshell/pkg/client"
)

// Config drives the dashboard.
type Config struct {
	BaseURL  string
	Poll     time.Duration // refresh interval
	LogLines int           // log tail size
}

// Run polls the daemon and renders a status + log dashboard until the user
// quits. Keys: t SIGTERM, k SIGKILL, r restart, q quit. The dashboard is a
// pure API client; it holds no supervisor state of its own.
func Run(cfg Config) error {
	if cfg.Poll <= 0 {
		cfg.Poll = 500 * time.Millisecond
	}
	if cfg.LogLines <= 0 {
		cfg.LogLines = 50
	}
	api := client.New(client.Config{
		BaseURL: cfg.BaseURL,
		Timeout: 5 * time.Second,
		Headers: map[string]string{"X-LLM-Shell-TUI": "1"},
	})

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("terminal raw mode: %w", err)
	}
	defer func() { _ = term.Restore(fd, oldState) }()

	keys := make(chan byte, 8)
	go readKeys(keys)

	ticker := time.NewTicker(cfg.Poll)
	defer ticker.Stop()

	notice := ""
	for {
		render(api, cfg, notice)
		select {
		case k := <-keys:
			switch k {
			case 'q', 3: // q or Ctrl-C
				fmt.Print("\033[2J\033[H")
				return nil
			case 't':
				notice = action(api, "SIGTERM")
			case 'k':
				notice = action(api, "SIGKILL")
			case 'r':
				notice = restart(api)
			}
		case <-ticker.C:
		}
	}
}

func readKeys(keys chan<- byte) {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		if n > 0 {
			keys <- buf[0]
		}
	}
}

func action(api *client.Client, signalType string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	res, err := api.Kill(ctx, signalType)
	if err != nil {
		return "kill failed: " + err.Error()
	}
	return fmt.Sprintf("sent %s, exit_code=%d", res.Type, res.ExitCode)
}

func restart(api *client.Client) string {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	st, err := api.Restart(ctx, -1)
	if err != nil {
		return "restart failed: " + err.Error()
	}
	return "restarted, status=" + st.Status
}

func render(api *client.Client, cfg Config, notice string) {
	width, height := termSize()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	st, stErr := api.Status(ctx)
	logs, _ := api.Logs(ctx, cfg.LogLines, 0)
	cancel()

	var b strings.Builder
	b.WriteString(titleStyle.Render(" llmshell ") + " " + helpStyle.Render(cfg.BaseURL) + "\r\n")

	var apiErr *client.APIError
	switch {
	case stErr != nil && errors.As(stErr, &apiErr) && apiErr.StatusCode == http.StatusNotFound:
		b.WriteString(paneStyle.Width(width-4).Render("no process started yet") + "\r\n")
	case stErr != nil:
		b.WriteString(paneStyle.Width(width - 4).Render("daemon unreachable: " + stErr.Error()))
	default:
		b.WriteString(statusPane(st, width-4) + "\r\n")
		b.WriteString(logsPane(logs, width-4, height-14) + "\r\n")
	}
	if notice != "" {
		b.WriteString(helpStyle.Render(notice) + "\r\n")
	}
	b.WriteString(helpStyle.Render("t: SIGTERM  k: SIGKILL  r: restart  q: quit"))

	// Repaint in place; \r\n because the terminal is in raw mode.
	fmt.Print("\033[2J\033[H" + strings.ReplaceAll(b.String(), "\n", "\r\n"))
}

func statusPane(st client.Status, width int) string {
	rows := []string{
		row("status", stateStyle(st.Status).Render(fallback(st.Status, "-"))),
		row("pid", intOrDash(st.PID)),
		row("uptime", uptimeOrDash(st.Uptime)),
		row("command", fallback(st.Command, "-")),
		row("cpu", floatOrDash(st.CPU)),
		row("mem_mb", floatOrDash(st.MemMB)),
		row("ports", portsOrDash(st.Ports)),
	}
	if st.ExitCode != nil {
		rows = append(rows, row("exit_code", strconv.Itoa(*st.ExitCode)))
	}
	return paneStyle.Width(width).Render(strings.Join(rows, "\n"))
}

func logsPane(logs string, width, height int) string {
	if height < 3 {
		height = 3
	}
	lines := strings.Split(logs, "\n")
	if len(lines) > height {
		lines = lines[len(lines)-height:]
	}
	body := lipgloss.NewStyle().MaxWidth(width - 2).Render(strings.Join(lines, "\n"))
	return paneStyle.Width(width).Render(labelStyle.Render("logs") + "\n" + body)
}

func row(key, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-10s", key)) + " " + value
}

func termSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80, 24
	}
	return w, h
}

func fallback(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', 1, 64)
}

func uptimeOrDash(v *int64) string {
	if v == nil {
		return "-"
	}
	return (time.Duration(*v) * time.Second).String()
}

func portsOrDash(ports []uint32) string {
	if len(ports) == 0 {
		return "-"
	}
	parts := make([]string, len(ports))
	for i, p := range ports {
		parts[i] = strconv.FormatUint(uint64(p), 10)
	}
	return strings.Join(parts, ",")
}
