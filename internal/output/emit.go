package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"metadataexporter/internal/results"
)

// EmitSink writes additional structured outputs.
//
// Formats:
//   - json: aggregates result entries and writes a single JSON array on Close
//   - ndjson: streams Event values (one JSON object per line)
type EmitSink struct {
	writer  io.Writer
	format  string // "json" | "ndjson"
	mu      sync.Mutex
	entries []results.Entry
}

func NewEmitSink(w io.Writer, format string) (*EmitSink, error) {
	if w == nil {
		return nil, fmt.Errorf("emit sink writer must not be nil")
	}
	if format != "json" && format != "ndjson" {
		return nil, fmt.Errorf("unsupported emit format: %s", format)
	}
	return &EmitSink{writer: w, format: format}, nil
}

func (s *EmitSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		e, ok := v.(results.Entry)
		if !ok {
			// Ignore lifecycle events in JSON aggregate mode.
			return nil
		}
		s.entries = append(s.entries, e)
		return nil
	case "ndjson":
		return writeNDJSON(s.writer, v)
	default:
		return fmt.Errorf("unsupported emit format: %s", s.format)
	}
}

func (s *EmitSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == "json" {
		return writeJSONArray(s.writer, s.entries)
	}
	return nil
}

// writeNDJSON encodes lifecycle events and entries as one Event per line.
// Other values are ignored.
func writeNDJSON(w io.Writer, v any) error {
	var ev Event
	switch t := v.(type) {
	case Event:
		ev = t
	case results.Entry:
		ev = eventFromEntry(t)
	default:
		return nil
	}
	if err := json.NewEncoder(w).Encode(ev); err != nil {
		return err
	}
	return flushIfPossible(w)
}

func writeJSONArray(w io.Writer, entries []results.Entry) error {
	if entries == nil {
		entries = []results.Entry{}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		return err
	}
	return flushIfPossible(w)
}
