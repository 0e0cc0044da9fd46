package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestKindStatusMapping(t *testing.T) {
	cases := []struct {
		err  *Error
		want int
	}{
		{BadRequestf("bad"), http.StatusBadRequest},
		{NotFoundf("missing"), http.StatusNotFound},
		{Conflictf("busy"), http.StatusConflict},
		{Internalf(nil, "boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.want {
			t.Errorf("kind %d: status %d, want %d", tc.err.Kind, got, tc.want)
		}
		if got := HTTPStatusOf(tc.err); got != tc.want {
			t.Errorf("HTTPStatusOf kind %d: %d, want %d", tc.err.Kind, got, tc.want)
		}
	}
}

func TestKindOfWrappedError(t *testing.T) {
	err := fmt.Errorf("handler: %w", Conflictf("Process already running"))
	if KindOf(err) != KindConflict {
		t.Fatalf("wrapped kind lost: %v", err)
	}
	if HTTPStatusOf(err) != http.StatusConflict {
		t.Fatalf("wrapped status lost: %v", err)
	}
}

func TestUntypedErrorIsInternal(t *testing.T) {
	err := errors.New("plain failure")
	if KindOf(err) != KindInternal {
		t.Fatalf("expected internal kind for untyped error")
	}
	if HTTPStatusOf(err) != http.StatusInternalServerError {
		t.Fatalf("expected 500 for untyped error")
	}
}

func TestInternalfPreservesCause(t *testing.T) {
	cause := errors.New("spawn failed")
	err := Internalf(cause, "Failed to start process: %v", cause)
	if !errors.Is(err, cause) {
		t.Fatal("cause not reachable via errors.Is")
	}
	if err.Error() != "Failed to start process: spawn failed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
