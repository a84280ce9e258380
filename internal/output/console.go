package output

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"metadataexporter/internal/results"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

type ConsoleSink struct {
	writer          io.Writer
	format          string // "text", "json", "ndjson"
	mu              sync.Mutex
	entries         []results.Entry // For JSON array output
	batches         []Event         // batch.finished events, text summary
	allowedOutcomes map[results.Outcome]bool
}

func NewConsoleSink(w io.Writer, format string, filterOutcomes []string) *ConsoleSink {
	if w == nil {
		w = os.Stdout
	}
	if format == "" {
		format = "text"
	}

	s := &ConsoleSink{
		writer: w,
		format: format,
	}

	if len(filterOutcomes) > 0 {
		s.allowedOutcomes = make(map[results.Outcome]bool)
		for _, o := range filterOutcomes {
			s.allowedOutcomes[results.Outcome(strings.ToUpper(strings.TrimSpace(o)))] = true
		}
	}

	return s
}

func (s *ConsoleSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(v)
}

func (s *ConsoleSink) writeLocked(v any) error {
	// Apply filtering if configured
	if len(s.allowedOutcomes) > 0 {
		if e, ok := v.(results.Entry); ok {
			if !s.allowedOutcomes[e.Outcome] {
				return nil
			}
		}
	}

	switch s.format {
	case "json":
		e, ok := v.(results.Entry)
		if !ok {
			// Ignore non-result events in JSON console mode.
			return nil
		}
		s.entries = append(s.entries, e)
		return nil
	case "ndjson":
		return writeNDJSON(s.writer, v)
	case "text":
		switch t := v.(type) {
		case results.Entry:
			return s.writeEntry(t)
		case Event:
			if t.Type != EventBatchFinished {
				return nil
			}
			s.batches = append(s.batches, t)
			return s.writeBatchLine(t)
		default:
			return nil
		}
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func (s *ConsoleSink) writeEntry(e results.Entry) error {
	if _, err := fmt.Fprintf(s.writer, "[%s] %s: %s", outcomeColor(e.Outcome).Sprint(e.Outcome), e.Batch, e.NodeID); err != nil {
		return err
	}
	if e.Message != "" {
		if _, err := fmt.Fprintf(s.writer, " - %s", e.Message); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(s.writer); err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) writeBatchLine(ev Event) error {
	verdict := color.New(color.FgGreen).Sprint("OK")
	switch {
	case ev.Error != "":
		verdict = color.New(color.FgRed, color.Bold).Sprint("ABORTED")
	case ev.Success != nil && !*ev.Success:
		verdict = color.New(color.FgRed).Sprint("FAILED")
	}
	_, err := fmt.Fprintf(s.writer, "%s: %d nodes, %d failures, %d warnings - %s\n", ev.Batch, ev.Nodes, ev.Failures, ev.Warnings, verdict)
	if err != nil {
		return err
	}
	return flushIfPossible(s.writer)
}

func (s *ConsoleSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.format {
	case "json":
		return writeJSONArray(s.writer, s.entries)
	case "text":
		if len(s.batches) < 2 {
			return nil
		}
		table := tablewriter.NewWriter(s.writer)
		table.SetHeader([]string{"Batch", "Nodes", "Failures", "Warnings", "Result"})
		for _, b := range s.batches {
			table.Append([]string{
				b.Batch,
				strconv.Itoa(b.Nodes),
				strconv.Itoa(b.Failures),
				strconv.Itoa(b.Warnings),
				batchVerdict(b),
			})
		}
		table.Render()
		return flushIfPossible(s.writer)
	case "ndjson":
		return nil
	default:
		return fmt.Errorf("unsupported console format: %s", s.format)
	}
}

func outcomeColor(o results.Outcome) *color.Color {
	switch o {
	case results.OutcomeFailure:
		return color.New(color.FgRed)
	case results.OutcomeWarning:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func batchVerdict(ev Event) string {
	switch {
	case ev.Error != "":
		return "aborted"
	case ev.Success != nil && !*ev.Success:
		return "failed"
	default:
		return "ok"
	}
}
