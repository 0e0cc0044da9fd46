package logstore

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/llm-shell/llmshell/internal/apperr"
	"github.com/llm-shell/llmshell/internal/metrics"
)

// fileNameLayout yields names like 2026-02-16_03-00-01.log.
const fileNameLayout = "2006-01-02_15-04-05"

// Filter selects which records Read returns. Zero value means all records.
// Lines and Seconds are mutually exclusive; the HTTP surface enforces that
// before the store is reached.
type Filter struct {
	Lines   int // last N records when > 0
	Seconds int // records newer than now-Seconds when > 0
}

// ReadResult is the outcome of a filtered read.
type ReadResult struct {
	LogFile       string `json:"log_file"`
	TotalLines    int    `json:"total_lines"`
	LinesReturned int    `json:"lines_returned"`
	Content       string `json:"content"`
}

type runFile struct {
	mu sync.Mutex
	f  *os.File
}

// Store owns one append-only JSONL file per child run under a fixed
// directory. Appends are serialized per file and flushed so that concurrent
// readers observe each record as soon as Append returns.
type Store struct {
	dir string

	mu    sync.Mutex
	files map[string]*runFile
}

// New creates a Store rooted at dir. The directory is created lazily by
// Create.
func New(dir string) *Store {
	return &Store{dir: dir, files: make(map[string]*runFile)}
}

// Dir returns the log directory.
func (s *Store) Dir() string { return s.dir }

// Create makes a fresh, empty log file named after t and returns its
// absolute path. Same-second collisions get a numeric suffix before the
// extension, so the returned path is always unique.
func (s *Store) Create(t time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return "", apperr.Internalf(err, "failed to create log directory: %v", err)
	}
	base := t.UTC().Format(fileNameLayout)
	for i := 0; ; i++ {
		name := base
		if i > 0 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		path := filepath.Join(s.dir, name+".log")
		// #nosec G304 -- path is built from the store dir and a timestamp
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0o640)
		if os.IsExist(err) {
			continue
		}
		if err != nil {
			return "", apperr.Internalf(err, "failed to create log file: %v", err)
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		s.mu.Lock()
		s.files[abs] = &runFile{f: f}
		s.mu.Unlock()
		return abs, nil
	}
}

// Append writes one record and flushes it. line must already have its
// trailing newline stripped. Appends to the same path are serialized.
func (s *Store) Append(path, line string, at time.Time) error {
	s.mu.Lock()
	rf := s.files[path]
	s.mu.Unlock()
	if rf == nil {
		return apperr.NotFoundf("Log file not found: %s", path)
	}

	b, err := json.Marshal(Record{Timestamp: at, Line: line})
	if err != nil {
		return apperr.Internalf(err, "failed to encode log record: %v", err)
	}
	b = append(b, '\n')

	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.f == nil {
		return apperr.NotFoundf("Log file not found: %s", path)
	}
	if _, err := rf.f.Write(b); err != nil {
		return apperr.Internalf(err, "failed to append log record: %v", err)
	}
	if err := rf.f.Sync(); err != nil {
		return apperr.Internalf(err, "failed to flush log record: %v", err)
	}
	metrics.IncLogRecord()
	return nil
}

// Close releases the append handle for path. Reads keep working; further
// appends fail.
func (s *Store) Close(path string) {
	s.mu.Lock()
	rf := s.files[path]
	delete(s.files, path)
	s.mu.Unlock()
	if rf == nil {
		return
	}
	rf.mu.Lock()
	if rf.f != nil {
		_ = rf.f.Close()
		rf.f = nil
	}
	rf.mu.Unlock()
}

// Read scans path start to end, decodes records, applies the filter and
// returns the joined line fields. Malformed lines (including a partially
// written tail) are skipped and do not count toward TotalLines.
func (s *Store) Read(path string, filter Filter) (ReadResult, error) {
	// #nosec G304 -- path comes from the supervisor's own run bookkeeping
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ReadResult{}, apperr.NotFoundf("Log file not found: %s", path)
		}
		return ReadResult{}, apperr.Internalf(err, "failed to open log file: %v", err)
	}
	defer func() { _ = f.Close() }()

	var records []Record
	br := bufio.NewReader(f)
	for {
		text, err := br.ReadString('\n')
		if text != "" {
			var rec Record
			if jerr := json.Unmarshal([]byte(strings.TrimSpace(text)), &rec); jerr == nil {
				records = append(records, rec)
			}
		}
		if err != nil {
			if err != io.EOF {
				return ReadResult{}, apperr.Internalf(err, "failed to read log file: %v", err)
			}
			break
		}
	}

	total := len(records)
	filtered := records
	switch {
	case filter.Seconds > 0:
		cutoff := time.Now().UTC().Add(-time.Duration(filter.Seconds) * time.Second)
		kept := make([]Record, 0, len(records))
		for _, rec := range records {
			if !rec.Timestamp.Before(cutoff) {
				kept = append(kept, rec)
			}
		}
		filtered = kept
	case filter.Lines > 0 && filter.Lines < len(records):
		filtered = records[len(records)-filter.Lines:]
	}

	lines := make([]string, len(filtered))
	for i, rec := range filtered {
		lines[i] = rec.Line
	}
	return ReadResult{
		LogFile:       path,
		TotalLines:    total,
		LinesReturned: len(filtered),
		Content:       strings.Join(lines, "\n"),
	}, nil
}
