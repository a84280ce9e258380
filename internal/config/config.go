package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"metadataexporter/internal/results"

	"github.com/mitchellh/go-homedir"
)

type Config struct {
	// MAINTAINER NOTE: If you add/change/remove config fields that affect export
	// behavior, keep the CLI flags in internal/cli/export.go in sync.
	Targeting Targeting
	Walk      Walk
	Handlers  Handlers
	Output    Output
	Runtime   Runtime
}

type Targeting struct {
	// Batches are the batch root directories to process (positional arguments).
	// Each directory is one batch; its identity comes from the B<id>-RT<n> name.
	Batches []string

	// BatchID overrides the batch id parsed from the directory name (see --batch-id).
	// Only valid when exactly one batch directory is given.
	BatchID string

	// RoundTrip overrides the round trip number (see --round-trip).
	// Only valid together with BatchID.
	RoundTrip int

	// DryRun lists the node sequence of each batch without invoking handlers (see --dry-run).
	DryRun bool
}

type Handlers struct {
	// Selector selects which handlers to run.
	// Empty means all handlers; otherwise a comma-separated list of handler IDs (see --handlers).
	Selector string

	// Set provides per-handler option overrides from the CLI.
	// Entries are of the form handlerID.option=value (repeatable; comma-separated accepted; see --set).
	Set []string
}

type Output struct {
	// ConsoleFormat controls the human-facing console sink format (see --console-format).
	// Allowed values: text, json, ndjson.
	ConsoleFormat string

	// ConsoleFilterStatus filters console output by outcome (see --console-filter-status).
	// Allowed values: SUCCESS, FAILURE, WARNING.
	ConsoleFilterStatus []string

	// Report writes a Markdown report to this path (see --report).
	Report string

	// Out writes structured output to this path (see --out).
	Out string

	// OutFormat selects the format for --out (see --out-format).
	// Allowed values: json, ndjson. If empty, it is inferred from the --out file extension.
	OutFormat string

	// Emit writes an additional structured event stream to stdout (see --emit).
	// Allowed values: json, ndjson.
	Emit []string

	// NoConsole suppresses the console sink (see --no-console).
	NoConsole bool

	// Progress shows a node counter on stderr while batches are walked (see --progress).
	Progress bool
}

type Runtime struct {
	// Concurrency controls how many batches are walked at the same time (see --concurrency).
	// Every single walk is sequential. Must be >= 1.
	Concurrency int

	// Timeout bounds the whole run (see --timeout). Must be > 0.
	Timeout time.Duration

	// FailFast cancels the remaining batches after the first structural error (see --fail-fast).
	FailFast bool

	// RecordSuccess adds a SUCCESS entry for every node without any other entry (see --record-success).
	RecordSuccess bool

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFile is a walk option file (.properties, .yaml, .yml, .json; see --config).
	ConfigFile string
}

func New() *Config {
	return &Config{
		Walk: DefaultWalk(),
		Output: Output{
			ConsoleFormat: "text",
		},
		Runtime: Runtime{
			Concurrency: 2,
			Timeout:     2 * time.Hour,
		},
	}
}

func (c *Config) Validate() error {
	// Normalize comma-delimited list inputs.
	c.Handlers.Set = splitCommaList(c.Handlers.Set)
	c.Output.Emit = splitCommaList(c.Output.Emit)
	c.Output.ConsoleFilterStatus = splitCommaList(c.Output.ConsoleFilterStatus)

	// Targeting validation
	var batches []string
	for _, b := range c.Targeting.Batches {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		expanded, err := homedir.Expand(b)
		if err != nil {
			return fmt.Errorf("invalid batch directory %q: %w", b, err)
		}
		batches = append(batches, filepath.Clean(expanded))
	}
	c.Targeting.Batches = batches
	if len(c.Targeting.Batches) == 0 {
		return errors.New("at least one batch directory must be provided")
	}
	c.Targeting.BatchID = strings.TrimSpace(c.Targeting.BatchID)
	if c.Targeting.BatchID != "" {
		if len(c.Targeting.Batches) != 1 {
			return errors.New("--batch-id requires exactly one batch directory")
		}
		if c.Targeting.RoundTrip < 1 {
			return errors.New("--round-trip must be >= 1 when --batch-id is set")
		}
	} else if c.Targeting.RoundTrip != 0 {
		return errors.New("--round-trip requires --batch-id")
	}

	// Walk validation
	if err := c.Walk.Validate(); err != nil {
		return err
	}

	// Output validation
	c.Output.ConsoleFormat = normalizeEnumValue(c.Output.ConsoleFormat)
	if c.Output.ConsoleFormat == "" {
		return errors.New("--console-format must be one of: text, json, ndjson")
	}
	if c.Output.ConsoleFormat != "text" && c.Output.ConsoleFormat != "json" && c.Output.ConsoleFormat != "ndjson" {
		return fmt.Errorf("unsupported --console-format: %s (must be one of: text, json, ndjson)", c.Output.ConsoleFormat)
	}

	for i, status := range c.Output.ConsoleFilterStatus {
		v := strings.ToUpper(strings.TrimSpace(status))
		if _, err := results.ParseOutcome(v); err != nil {
			return fmt.Errorf("unsupported --console-filter-status value: %s (must be one of: SUCCESS, FAILURE, WARNING)", status)
		}
		c.Output.ConsoleFilterStatus[i] = v
	}

	for _, emit := range c.Output.Emit {
		v := normalizeEnumValue(emit)
		if v != "json" && v != "ndjson" {
			return fmt.Errorf("unsupported --emit value: %s (must be one of: json, ndjson)", emit)
		}
	}

	if c.Output.Report != "" {
		p, err := homedir.Expand(c.Output.Report)
		if err != nil {
			return fmt.Errorf("invalid --report path: %w", err)
		}
		c.Output.Report = p
	}

	if c.Output.Out != "" {
		p, err := homedir.Expand(c.Output.Out)
		if err != nil {
			return fmt.Errorf("invalid --out path: %w", err)
		}
		c.Output.Out = p
		c.Output.OutFormat = normalizeEnumValue(c.Output.OutFormat)
		if c.Output.OutFormat == "" {
			ext := strings.ToLower(filepath.Ext(c.Output.Out))
			switch ext {
			case ".json":
				c.Output.OutFormat = "json"
			case ".ndjson":
				c.Output.OutFormat = "ndjson"
			default:
				if ext == "" {
					return errors.New("cannot infer output format from file extension (missing extension); use --out-format")
				}
				return fmt.Errorf("cannot infer output format from file extension %q; use --out-format", ext)
			}
		} else {
			if c.Output.OutFormat != "json" && c.Output.OutFormat != "ndjson" {
				return fmt.Errorf("unsupported output format: %s", c.Output.OutFormat)
			}
		}
	}

	// Runtime validation
	if c.Runtime.Concurrency <= 0 {
		return errors.New("--concurrency must be >= 1")
	}
	if c.Runtime.Timeout <= 0 {
		return errors.New("--timeout must be > 0")
	}

	// Handler option syntax validation (handler.option=value)
	if len(c.Handlers.Set) > 0 {
		if _, err := ParseHandlerOptionAssignments(c.Handlers.Set); err != nil {
			return err
		}
	}

	return nil
}

func normalizeEnumValue(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseHandlerOptionAssignments parses values of the form "handlerID.option=value".
//
// Notes:
// - Entries may be provided via repeated flags and/or comma-delimited lists.
// - This validates syntax only (no validation of handler IDs or option names).
// - Empty values are allowed ("handler.option=").
// - Option names may contain dots ("checksum.skip.paths=...").
func ParseHandlerOptionAssignments(values []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string)
	for _, raw := range splitCommaList(values) {
		left, value, ok := strings.Cut(raw, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected handler.option=value", raw)
		}
		value = strings.TrimSpace(value)
		handlerID, opt, ok := strings.Cut(strings.TrimSpace(left), ".")
		if !ok {
			return nil, fmt.Errorf("invalid --set entry %q: expected handler.option=value", raw)
		}
		handlerID = strings.TrimSpace(handlerID)
		opt = strings.TrimSpace(opt)
		if handlerID == "" || opt == "" {
			return nil, fmt.Errorf("invalid --set entry %q: expected non-empty handler and option", raw)
		}
		if _, ok := out[handlerID]; !ok {
			out[handlerID] = make(map[string]string)
		}
		out[handlerID][opt] = value
	}
	return out, nil
}

func splitCommaList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			p := strings.TrimSpace(part)
			if p == "" {
				continue
			}
			out = append(out, p)
		}
	}
	return out
}
