package output

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"metadataexporter/internal/results"
)

// ReportSink writes a Markdown report with one section per batch on Close.
type ReportSink struct {
	path         string
	file         *os.File
	mu           sync.Mutex
	runID        string
	batches      map[string]*batchStats
	exitCode     int
	haveExitCode bool
}

func NewReportSink(path string) (*ReportSink, error) {
	if path == "" {
		return nil, fmt.Errorf("report path required")
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	return &ReportSink{
		path:    path,
		file:    f,
		batches: make(map[string]*batchStats),
	}, nil
}

func (s *ReportSink) stats(batch string) *batchStats {
	bs, ok := s.batches[batch]
	if !ok {
		bs = &batchStats{Batch: batch, Success: true}
		s.batches[batch] = bs
	}
	return bs
}

func (s *ReportSink) Write(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch t := v.(type) {
	case results.Entry:
		bs := s.stats(t.Batch)
		switch t.Outcome {
		case results.OutcomeFailure:
			bs.Failures = append(bs.Failures, t)
			bs.Success = false
		case results.OutcomeWarning:
			bs.Warnings = append(bs.Warnings, t)
		}
	case Event:
		switch t.Type {
		case EventRunStarted:
			s.runID = t.RunID
		case EventBatchStarted:
			s.stats(t.Batch)
		case EventBatchFinished:
			bs := s.stats(t.Batch)
			bs.Nodes = t.Nodes
			bs.Error = t.Error
			if t.Success != nil {
				bs.Success = *t.Success
			}
		case EventRunFinished:
			s.exitCode = t.ExitCode
			s.haveExitCode = true
		}
	}
	return nil
}

func (s *ReportSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var names []string
	for name := range s.batches {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("# Metadata Export Report\n\n")
	if s.runID != "" {
		fmt.Fprintf(&b, "Run: `%s`\n\n", s.runID)
	}

	totalFail, totalWarn := 0, 0
	for _, name := range names {
		totalFail += len(s.batches[name].Failures)
		totalWarn += len(s.batches[name].Warnings)
	}
	fmt.Fprintf(&b, "- Batches: %d\n", len(names))
	fmt.Fprintf(&b, "- Failures: %d\n", totalFail)
	fmt.Fprintf(&b, "- Warnings: %d\n", totalWarn)
	if s.haveExitCode {
		fmt.Fprintf(&b, "- Exit code: %d\n", s.exitCode)
	}
	b.WriteString("\n")

	if len(names) > 0 {
		b.WriteString("| Batch | Nodes | Failures | Warnings | Result |\n")
		b.WriteString("|---|---:|---:|---:|---|\n")
		for _, name := range names {
			bs := s.batches[name]
			fmt.Fprintf(&b, "| %s | %d | %d | %d | %s |\n", bs.Batch, bs.Nodes, len(bs.Failures), len(bs.Warnings), bs.Verdict())
		}
		b.WriteString("\n")
	}

	for _, name := range names {
		bs := s.batches[name]
		fmt.Fprintf(&b, "## %s\n\n", bs.Batch)
		if bs.Error != "" {
			fmt.Fprintf(&b, "**Walk aborted:** %s\n\n", bs.Error)
		}
		if len(bs.Failures) == 0 && len(bs.Warnings) == 0 {
			b.WriteString("No findings.\n\n")
			continue
		}
		writeFindings(&b, "Failures", bs.Failures)
		writeFindings(&b, "Warnings", bs.Warnings)
	}

	if _, err := s.file.WriteString(b.String()); err != nil {
		_ = s.file.Close()
		return err
	}
	return s.file.Close()
}

func writeFindings(b *strings.Builder, title string, entries []results.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(b, "### %s (%d)\n\n", title, len(entries))
	for _, rc := range groupByReason(entries) {
		fmt.Fprintf(b, "- %s: %s\n", rc.Reason, formatNodeList(rc.Nodes, 5))
	}
	b.WriteString("\n")
}
