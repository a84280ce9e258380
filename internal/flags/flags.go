package flags

// Package flags defines canonical CLI flag names shared across the CLI and engine.
// Keeping these as constants helps avoid drift between Cobra flag wiring and other
// code paths that need to reference flags (e.g. error hints).
// IMPORTANT: These are flag *names* without leading dashes.
// Example usage:
//
//	cmd.Flags().StringVar(&cfg.Targeting.BatchID, flags.FlagBatchID, "", "...")
//	arg := "--" + flags.FlagBatchID
const (
	// Targeting
	FlagBatchID   = "batch-id"
	FlagRoundTrip = "round-trip"
	FlagDryRun    = "dry-run"

	// Walk
	FlagGroupingPattern = "grouping-pattern"
	FlagContentPattern  = "content-pattern"
	FlagChecksumSuffix  = "checksum-suffix"
	FlagIgnore          = "ignore"
	FlagTransform       = "transform"
	FlagOutputLocation  = "output-location"
	FlagPolicy          = "policy"

	// Handlers
	FlagHandlers = "handlers"
	FlagSet      = "set"

	// Output
	FlagConsoleFormat       = "console-format"
	FlagConsoleFilterStatus = "console-filter-status"
	FlagReport              = "report"
	FlagOut                 = "out"
	FlagOutFormat           = "out-format"
	FlagEmit                = "emit"
	FlagNoConsole           = "no-console"
	FlagProgress            = "progress"

	// Runtime
	FlagConcurrency   = "concurrency"
	FlagTimeout       = "timeout"
	FlagFailFast      = "fail-fast"
	FlagRecordSuccess = "record-success"
	FlagConfig        = "config"
	FlagVerbose       = "verbose"
)
