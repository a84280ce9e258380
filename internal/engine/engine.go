package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"metadataexporter/internal/batch"
	"metadataexporter/internal/checksum"
	"metadataexporter/internal/config"
	"metadataexporter/internal/flags"
	"metadataexporter/internal/handlers"
	"metadataexporter/internal/output"
	"metadataexporter/internal/results"
	"metadataexporter/internal/tree"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const toolName = "metadataexporter"

func exitCodeForRun(fatal, aborted, failures bool) int {
	// Exit code contract:
	// 0 = every batch succeeded (warnings allowed)
	// 1 = failures recorded
	// 2 = at least one batch aborted (structural error, cancellation, timeout)
	// 3 = fatal error (nothing ran)
	if fatal {
		return 3
	}
	if aborted {
		return 2
	}
	if failures {
		return 1
	}
	return 0
}

// Target is one batch directory together with its identity.
type Target struct {
	Batch batch.Batch
	Root  string
}

// BatchResult is what the engine knows about one walked batch.
type BatchResult struct {
	Target    Target
	Collector *results.Collector
	Nodes     int
	Err       error
}

func (r BatchResult) Aborted() bool {
	return r.Err != nil
}

type Engine struct {
	Version string

	stdout io.Writer
	stderr io.Writer
	log    *logrus.Entry

	mu      sync.Mutex
	results []BatchResult
}

func NewEngine(version string) *Engine {
	return &Engine{
		Version: version,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		log:     logrus.NewEntry(logrus.StandardLogger()),
	}
}

// Results returns the per-batch results of the last Run in target order.
func (e *Engine) Results() []BatchResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]BatchResult(nil), e.results...)
}

func setupOutputManager(cfg *config.Config, stdout, stderr io.Writer) (*output.Manager, error) {
	outMgr := output.NewManager()

	// Console Sink
	if !cfg.Output.NoConsole {
		if err := outMgr.AddSink(output.NewConsoleSink(stdout, cfg.Output.ConsoleFormat, cfg.Output.ConsoleFilterStatus)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Emit Sinks (additional structured streams)
	for _, emit := range cfg.Output.Emit {
		es, err := output.NewEmitSink(stdout, emit)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(es); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// File Sink
	if cfg.Output.Out != "" {
		fs, err := output.NewFileSink(cfg.Output.Out, cfg.Output.OutFormat)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(fs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Report Sink
	if cfg.Output.Report != "" {
		rs, err := output.NewReportSink(cfg.Output.Report)
		if err != nil {
			outMgr.Close()
			return nil, err
		}
		if err := outMgr.AddSink(rs); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	// Progress Sink
	if cfg.Output.Progress {
		if err := outMgr.AddSink(output.NewProgressSink(stderr)); err != nil {
			outMgr.Close()
			return nil, err
		}
	}

	return outMgr, nil
}

// ResolveTargets derives the batch identity of every configured directory.
func ResolveTargets(cfg *config.Config) ([]Target, error) {
	var targets []Target
	seen := make(map[string]string)
	for _, dir := range cfg.Targeting.Batches {
		var b batch.Batch
		if cfg.Targeting.BatchID != "" {
			b = batch.Batch{ID: cfg.Targeting.BatchID, RoundTripNumber: cfg.Targeting.RoundTrip}
			if err := b.Validate(); err != nil {
				return nil, err
			}
		} else {
			parsed, err := batch.FromPath(dir)
			if err != nil {
				return nil, fmt.Errorf("%w (use --%s and --%s for directories not named B<id>-RT<n>)", err, flags.FlagBatchID, flags.FlagRoundTrip)
			}
			b = parsed
		}
		if prev, ok := seen[b.FullID()]; ok {
			return nil, fmt.Errorf("batch %s given twice (%s and %s)", b.FullID(), prev, dir)
		}
		seen[b.FullID()] = dir
		targets = append(targets, Target{Batch: b, Root: dir})
	}
	return targets, nil
}

// applyHandlerOptions routes --set values ("handlerID.option=value") to the
// matching handler instances.
func applyHandlerOptions(cfg *config.Config, hs []handlers.Handler) error {
	if len(cfg.Handlers.Set) == 0 {
		return nil
	}
	assignments, err := config.ParseHandlerOptionAssignments(cfg.Handlers.Set)
	if err != nil {
		return err
	}
	return handlers.Configure(hs, assignments)
}

// resolveAndConfigureHandlers builds a fresh, configured handler set for one
// batch.
func resolveAndConfigureHandlers(cfg *config.Config, env handlers.Env) ([]handlers.Handler, error) {
	hs, err := handlers.Resolve(cfg.Handlers.Selector, env)
	if err != nil {
		return nil, fmt.Errorf("resolve handlers: %w", err)
	}
	if err := applyHandlerOptions(cfg, hs); err != nil {
		return nil, fmt.Errorf("configure handlers: %w", err)
	}
	if err := handlers.Prepare(hs); err != nil {
		return nil, fmt.Errorf("prepare handlers: %w", err)
	}
	return hs, nil
}

func (e *Engine) handlerEnv(cfg *config.Config, t Target, digests *checksum.Cache) handlers.Env {
	return handlers.Env{
		Batch:          t.Batch,
		Root:           t.Root,
		OutputLocation: cfg.Walk.OutputLocation,
		TransformMode:  cfg.Walk.TransformMode,
		Digests:        digests,
		Logger: e.log.WithFields(logrus.Fields{
			"batch":      t.Batch.ID,
			"round_trip": t.Batch.RoundTripNumber,
		}),
	}
}

func (e *Engine) progressf(cfg *config.Config, format string, args ...any) {
	if cfg.Output.NoConsole {
		return
	}
	fmt.Fprintf(e.stderr, format, args...)
}

func (e *Engine) Run(ctx context.Context, cfg *config.Config) int {
	e.mu.Lock()
	e.results = nil
	e.mu.Unlock()

	targets, err := ResolveTargets(cfg)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error resolving batches: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	rule, err := cfg.Walk.GroupingRule()
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitCodeForRun(true, false, false)
	}

	if cfg.Targeting.DryRun {
		return e.dryRun(ctx, targets, rule)
	}

	// Resolve once up front so selector and option mistakes are fatal before
	// any batch is touched.
	e.progressf(cfg, "Resolving handlers...\n")
	probe, err := resolveAndConfigureHandlers(cfg, handlers.Env{
		OutputLocation: cfg.Walk.OutputLocation,
		TransformMode:  cfg.Walk.TransformMode,
		Logger:         e.log,
	})
	if err != nil {
		fmt.Fprintf(e.stderr, "Error: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	handlerIDs := make([]string, 0, len(probe))
	for _, h := range probe {
		handlerIDs = append(handlerIDs, h.ID())
	}
	e.progressf(cfg, "Selected %d handlers (%s) for %d batches.\n", len(probe), strings.Join(handlerIDs, ", "), len(targets))

	outMgr, err := setupOutputManager(cfg, e.stdout, e.stderr)
	if err != nil {
		fmt.Fprintf(e.stderr, "Error creating output sinks: %v\n", err)
		return exitCodeForRun(true, false, false)
	}
	defer outMgr.Close()

	runID := uuid.NewString()
	_ = outMgr.Write(output.Event{Type: output.EventRunStarted, RunID: runID, Batches: len(targets), Handlers: len(probe)})

	runCtx, cancel := context.WithTimeout(ctx, cfg.Runtime.Timeout)
	defer cancel()

	digests := checksum.NewCache()
	batchResults := make([]BatchResult, len(targets))

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(cfg.Runtime.Concurrency)
	for i, t := range targets {
		i, t := i, t
		g.Go(func() error {
			res := e.runBatch(gctx, cfg, t, rule, outMgr, digests)
			batchResults[i] = res
			if res.Err != nil && cfg.Runtime.FailFast {
				return res.Err
			}
			return nil
		})
	}
	_ = g.Wait()

	e.mu.Lock()
	e.results = batchResults
	e.mu.Unlock()

	aborted, failures := false, false
	for _, res := range batchResults {
		if res.Aborted() {
			aborted = true
			continue
		}
		if !res.Collector.IsSuccess() {
			failures = true
		}
	}

	code := exitCodeForRun(false, aborted, failures)
	_ = outMgr.Write(output.Event{Type: output.EventRunFinished, RunID: runID, Batches: len(targets), ExitCode: code})
	return code
}

func (e *Engine) runBatch(ctx context.Context, cfg *config.Config, t Target, rule *tree.GroupingRule, sink EventSink, digests *checksum.Cache) BatchResult {
	res := BatchResult{
		Target:    t,
		Collector: results.NewCollector(toolName, e.Version, 0),
	}
	log := e.log.WithFields(logrus.Fields{"batch": t.Batch.ID, "round_trip": t.Batch.RoundTripNumber})

	// A batch whose turn comes after cancellation is reported as aborted
	// without touching the disk.
	if err := ctx.Err(); err != nil {
		res.Err = fmt.Errorf("walk of %s not started: %w", t.Batch.FullID(), err)
		_ = sink.Write(output.Event{Type: output.EventBatchFinished, Batch: t.Batch.FullID(), Error: res.Err.Error(), Success: new(bool)})
		return res
	}

	it, err := tree.NewIterator(t.Root, rule)
	if err != nil {
		res.Err = err
		log.Errorf("cannot walk batch: %v", err)
		_ = sink.Write(output.Event{Type: output.EventBatchFinished, Batch: t.Batch.FullID(), Error: err.Error(), Success: new(bool)})
		return res
	}

	hs, err := resolveAndConfigureHandlers(cfg, e.handlerEnv(cfg, t, digests))
	if err != nil {
		res.Err = err
		_ = sink.Write(output.Event{Type: output.EventBatchFinished, Batch: t.Batch.FullID(), Error: err.Error(), Success: new(bool)})
		return res
	}

	runner := NewRunner(it, hs, res.Collector,
		WithBatch(t.Batch),
		WithPolicy(cfg.Walk.Policy()),
		WithEventSink(sink),
		WithLogger(log),
		WithRecordSuccess(cfg.Runtime.RecordSuccess),
	)
	log.Debugf("walking %s", t.Root)
	res.Err = runner.Run(ctx)
	res.Nodes = runner.Nodes()

	sum := res.Collector.Summary()
	fields := logrus.Fields{"nodes": res.Nodes, "failures": sum.Failures, "warnings": sum.Warnings}
	switch {
	case res.Err != nil:
		var sErr *tree.StructuralIOError
		if errors.As(res.Err, &sErr) {
			log.WithFields(fields).Errorf("walk aborted: %v", res.Err)
		} else {
			log.WithFields(fields).Warnf("walk interrupted: %v", res.Err)
		}
	case !sum.Success:
		log.WithFields(fields).Debug("batch finished with failures")
	default:
		log.WithFields(fields).Debug("batch finished")
	}
	return res
}
