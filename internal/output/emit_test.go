package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"metadataexporter/internal/results"
)

func TestEmitSink_JSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "json")
	if err != nil {
		t.Fatalf("NewEmitSink returned error: %v", err)
	}

	_ = s.Write(Event{Type: EventBatchStarted, Batch: "B1-RT1"})
	_ = s.Write(entry("B1-RT1", "/b/0006", results.OutcomeWarning, "a"))
	_ = s.Write(entry("B1-RT1", "/b/0007", results.OutcomeFailure, "b"))
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	var got []results.Entry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("failed to unmarshal json output: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
}

func TestEmitSink_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	s, err := NewEmitSink(&buf, "ndjson")
	if err != nil {
		t.Fatalf("NewEmitSink returned error: %v", err)
	}

	_ = s.Write(entry("B1-RT1", "/b/0006", results.OutcomeWarning, "a"))
	_ = s.Write(entry("B1-RT1", "/b/0007", results.OutcomeFailure, "b"))
	_ = s.Write("not an event")
	if err := s.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 ndjson lines, got %d", len(lines))
	}
	for _, line := range lines {
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		if e.Type != EventNodeResult {
			t.Fatalf("expected event type node.result, got %q", e.Type)
		}
		if e.Entry == nil {
			t.Fatalf("expected event to include entry, got nil")
		}
		if e.Batch != "B1-RT1" || e.Handler != "checksum" {
			t.Fatalf("unexpected event payload: %#v", e)
		}
	}
}

func TestEmitSink_InvalidFormat(t *testing.T) {
	var buf bytes.Buffer
	if _, err := NewEmitSink(&buf, "text"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestEmitSink_NilWriter(t *testing.T) {
	if _, err := NewEmitSink(nil, "json"); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
