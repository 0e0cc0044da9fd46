package logstore

import (
	"os"
	"testing"
	"time"
)

func newPumpFixture(t *testing.T) (*Store, string, *os.File, *Pump) {
	t.Helper()
	s := New(t.TempDir())
	path, err := s.Create(time.Now().UTC())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	p := NewPump(s, path, pr)
	p.Start()
	return s, path, pw, p
}

func waitPump(t *testing.T, p *Pump) {
	t.Helper()
	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pump did not finish")
	}
}

func TestPumpCapturesLines(t *testing.T) {
	s, path, pw, p := newPumpFixture(t)
	_, _ = pw.WriteString("hello\n")
	_, _ = pw.WriteString("windows line\r\n")
	_ = pw.Close()
	waitPump(t, p)

	res, err := s.Read(path, Filter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Content != "hello\nwindows line" {
		t.Fatalf("unexpected content %q", res.Content)
	}
}

func TestPumpReplacesInvalidUTF8(t *testing.T) {
	s, path, pw, p := newPumpFixture(t)
	_, _ = pw.Write([]byte{0xff, 0xfe, 'o', 'k', '\n'})
	_ = pw.Close()
	waitPump(t, p)

	res, err := s.Read(path, Filter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.TotalLines != 1 {
		t.Fatalf("binary line lost: %+v", res)
	}
	if res.Content == "" || res.Content[len(res.Content)-2:] != "ok" {
		t.Fatalf("unexpected content %q", res.Content)
	}
}

func TestPumpFlushesPartialLineAtEOF(t *testing.T) {
	s, path, pw, p := newPumpFixture(t)
	_, _ = pw.WriteString("no trailing newline")
	_ = pw.Close()
	waitPump(t, p)

	res, err := s.Read(path, Filter{})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Content != "no trailing newline" {
		t.Fatalf("partial line dropped: %+v", res)
	}
}

func TestPumpRecordsAreVisibleWhileRunning(t *testing.T) {
	s, path, pw, p := newPumpFixture(t)
	_, _ = pw.WriteString("early\n")

	// The pipe stays open; the append must still be flushed and readable.
	deadline := time.Now().Add(3 * time.Second)
	for {
		res, err := s.Read(path, Filter{})
		if err == nil && res.TotalLines == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("record not visible while pump is running")
		}
		time.Sleep(10 * time.Millisecond)
	}

	_ = pw.Close()
	waitPump(t, p)
}
