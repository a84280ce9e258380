package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"metadataexporter/internal/results"
)

func TestConsoleSink_Filtering(t *testing.T) {
	tests := []struct {
		name           string
		format         string
		filterOutcomes []string
		input          results.Entry
		shouldWrite    bool
	}{
		{
			name:        "text - no filter - warning",
			format:      "text",
			input:       entry("B1-RT1", "/b/0006", results.OutcomeWarning, "checksum: missing"),
			shouldWrite: true,
		},
		{
			name:           "text - filter FAILURE - input WARNING",
			format:         "text",
			filterOutcomes: []string{"FAILURE"},
			input:          entry("B1-RT1", "/b/0006", results.OutcomeWarning, "checksum: missing"),
			shouldWrite:    false,
		},
		{
			name:           "text - filter FAILURE - input FAILURE",
			format:         "text",
			filterOutcomes: []string{"FAILURE"},
			input:          entry("B1-RT1", "/b/0006", results.OutcomeFailure, "checksum: mismatch"),
			shouldWrite:    true,
		},
		{
			name:           "text - filter FAILURE,WARNING - input WARNING",
			format:         "text",
			filterOutcomes: []string{"FAILURE", "WARNING"},
			input:          entry("B1-RT1", "/b/0006", results.OutcomeWarning, "checksum: missing"),
			shouldWrite:    true,
		},
		{
			name:           "json - filter FAILURE - input SUCCESS",
			format:         "json",
			filterOutcomes: []string{"FAILURE"},
			input:          entry("B1-RT1", "/b/0006", results.OutcomeSuccess, ""),
			shouldWrite:    false,
		},
		{
			name:           "json - filter FAILURE - input FAILURE",
			format:         "json",
			filterOutcomes: []string{"FAILURE"},
			input:          entry("B1-RT1", "/b/0006", results.OutcomeFailure, "checksum: mismatch"),
			shouldWrite:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noColor(t)
			var buf bytes.Buffer
			sink := NewConsoleSink(&buf, tt.format, tt.filterOutcomes)

			if err := sink.Write(tt.input); err != nil {
				t.Fatalf("Write error: %v", err)
			}

			if tt.format == "json" {
				// JSON output is buffered until Close.
				want := 0
				if tt.shouldWrite {
					want = 1
				}
				if len(sink.entries) != want {
					t.Errorf("expected %d entries buffered, got %d", want, len(sink.entries))
				}
				return
			}

			wroteSomething := buf.Len() > 0
			if tt.shouldWrite && !wroteSomething {
				t.Errorf("expected output, got none")
			}
			if !tt.shouldWrite && wroteSomething {
				t.Errorf("expected no output, got: %q", buf.String())
			}
		})
	}
}

func TestConsoleSink_Filtering_CaseInsensitive(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", []string{"failure"})

	if err := sink.Write(entry("B1-RT1", "/b/0006", results.OutcomeFailure, "boom")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected output for case-insensitive match, got none")
	}
}

func TestConsoleSink_TextLines(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)

	_ = sink.Write(Event{Type: EventBatchStarted, Batch: "B1-RT1"})
	_ = sink.Write(entry("B1-RT1", "/b/0007", results.OutcomeWarning, "checksum: missing checksum file for 0007.jp2"))
	_ = sink.Write(Event{Type: EventBatchFinished, Batch: "B1-RT1", Nodes: 8, Warnings: 1, Success: boolPtr(true)})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	got := buf.String()
	want := "[WARNING] B1-RT1: /b/0007 - checksum: missing checksum file for 0007.jp2\n" +
		"B1-RT1: 8 nodes, 0 failures, 1 warnings - OK\n"
	if got != want {
		t.Fatalf("unexpected console output:\n got %q\nwant %q", got, want)
	}
}

func TestConsoleSink_SummaryTableForSeveralBatches(t *testing.T) {
	noColor(t)
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "text", nil)

	_ = sink.Write(Event{Type: EventBatchFinished, Batch: "B1-RT1", Nodes: 8, Success: boolPtr(true)})
	_ = sink.Write(Event{Type: EventBatchFinished, Batch: "B2-RT1", Nodes: 3, Failures: 2, Success: boolPtr(false)})
	_ = sink.Write(Event{Type: EventBatchFinished, Batch: "B3-RT1", Error: "read dir: permission denied", Success: boolPtr(false)})
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"BATCH", "B2-RT1", "failed", "aborted", "ABORTED"} {
		if !strings.Contains(got, want) {
			t.Fatalf("summary missing %q:\n%s", want, got)
		}
	}
}

func TestConsoleSink_JSONArrayOnClose(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "json", nil)
	_ = sink.Write(Event{Type: EventRunStarted})
	_ = sink.Write(entry("B1-RT1", "/b/0006", results.OutcomeFailure, "boom"))
	if err := sink.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	var got []results.Entry
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(got) != 1 || got[0].Outcome != results.OutcomeFailure {
		t.Fatalf("unexpected entries: %+v", got)
	}
}

func TestConsoleSink_Filtering_NDJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := NewConsoleSink(&buf, "ndjson", []string{"FAILURE"})

	if err := sink.Write(entry("B1-RT1", "/b/0006", results.OutcomeWarning, "w")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if buf.Len() > 0 {
		t.Errorf("expected no output for WARNING, got: %s", buf.String())
	}

	if err := sink.Write(entry("B1-RT1", "/b/0006", results.OutcomeFailure, "f")); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if !strings.Contains(buf.String(), `"outcome":"FAILURE"`) {
		t.Errorf("expected output for FAILURE, got: %s", buf.String())
	}
}
