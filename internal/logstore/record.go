package logstore

import (
	"encoding/json"
	"time"
)

// recordTimeLayout is the on-disk timestamp format: ISO-8601 UTC with
// millisecond precision and a literal trailing Z.
const recordTimeLayout = "2006-01-02T15:04:05.000Z"

// Record is one captured output line. Serialized as a single JSON object
// per text line:
//
//	{"timestamp":"2026-02-16T03:00:01.123Z","line":"Server starting"}
type Record struct {
	Timestamp time.Time
	Line      string
}

type recordWire struct {
	Timestamp string `json:"timestamp"`
	Line      string `json:"line"`
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordWire{
		Timestamp: r.Timestamp.UTC().Format(recordTimeLayout),
		Line:      r.Line,
	})
}

func (r *Record) UnmarshalJSON(b []byte) error {
	var w recordWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	ts, err := time.Parse(recordTimeLayout, w.Timestamp)
	if err != nil {
		// Tolerate other ISO-8601 precisions written by older runs.
		ts, err = time.Parse(time.RFC3339Nano, w.Timestamp)
		if err != nil {
			return err
		}
	}
	r.Timestamp = ts.UTC()
	r.Line = w.Line
	return nil
}
