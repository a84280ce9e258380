package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"metadataexporter/internal/config"
	"metadataexporter/internal/engine"
	"metadataexporter/internal/flags"

	"github.com/spf13/cobra"
)

var cfg = config.New()

const exportHelpTemplate = `{{with (or .Long .Short)}}{{. | trimTrailingWhitespaces}}

{{end}}Usage:
  {{.UseLine}}

{{if .HasAvailableLocalFlags}}Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}{{if .HasAvailableInheritedFlags}}Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}

{{end}}Walk options file:
  --config accepts a .properties, .yaml, .yml or .json file with the keys
  groupingPattern, contentFilePattern, checksumSuffix, ignoredFilePatterns,
  transformMode, outputLocation and warningPolicy. Unknown keys are ignored.
  Flags given on the command line win over the file.

  Example (batch.properties):
    contentFilePattern=.*\\.jp2$
    ignoredFilePatterns=transfer_complete,transfer_acknowledged,delete_ok
    outputLocation=/data/export
    transformMode=false

{{if .HasAvailableSubCommands}}Available Commands:
{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasHelpSubCommands}}Additional help topics:
{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}

{{end}}{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.
{{end}}`

var exportCmd = &cobra.Command{
	Use:   "export <batch-dir>...",
	Short: "Walk batches and run the export handlers",
	Long: `Walk one or more batch directories and run the selected handlers on every node.

Every positional directory is one batch. Its identity (batch id and round trip)
is read from the directory name B<batchId>-RT<n>; use --batch-id and
--round-trip for a single directory that does not follow the convention.

The walk never writes into a batch. Handler problems are recorded per node:
warnings (for example a missing checksum sidecar) keep the batch successful,
failures mark it failed, and the walk always continues with the next node.

Output:
	Console output is controlled by --console-format (default: text).
	Structured outputs can be written via:
	- --out / --out-format: write an aggregate JSON array or NDJSON stream to a file
	- --emit: write an additional structured stream to stdout (json or ndjson)
	- --report: write a Markdown summary grouped by batch and reason
	- --no-console: suppress the console sink (use with --emit/--out for machine output)

	NDJSON mode emits one JSON object per line. Objects are lifecycle Events with a
	"type" field (run.started, batch.started, node.started, node.result,
	node.finished, batch.finished, run.finished). Handler findings are
	represented as an Event with type "node.result".

Exit codes:
	0 = every batch succeeded (warnings allowed)
	1 = failures recorded
	2 = at least one batch aborted (unreadable directory, cancellation, timeout)
	3 = fatal error (nothing was walked)

Examples:
  # Verify checksums of one batch (metadata-export needs --output-location)
  metadataexporter export /data/B400022028241-RT1 --handlers checksum

  # Export metadata of all batches below /data, two at a time
  metadataexporter export /data/B* --output-location /data/export --concurrency 2

  # Fail on missing checksum sidecars instead of warning
  metadataexporter export /data/B400022028241-RT1 --set checksum.missing=fail

	# AI Agent: stream machine-readable events to stdout
	metadataexporter export /data/B400022028241-RT1 --no-console --emit ndjson
`,
	Run: func(cmd *cobra.Command, args []string) {
		if len(args) == 0 && cmd.Flags().NFlag() == 0 {
			_ = cmd.Help()
			return
		}

		cfg.Targeting.Batches = args
		if err := applyWalkFile(cmd, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(3)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		eng := engine.NewEngine(buildVersion)
		code := eng.Run(ctx, cfg)
		stop()
		os.Exit(code)
	},
}

// walkFlags maps each walk flag to the field it sets.
var walkFlags = map[string]func(dst *config.Walk, src config.Walk){
	flags.FlagGroupingPattern: func(dst *config.Walk, src config.Walk) { dst.GroupingPattern = src.GroupingPattern },
	flags.FlagContentPattern:  func(dst *config.Walk, src config.Walk) { dst.ContentFilePattern = src.ContentFilePattern },
	flags.FlagChecksumSuffix:  func(dst *config.Walk, src config.Walk) { dst.ChecksumSuffix = src.ChecksumSuffix },
	flags.FlagIgnore:          func(dst *config.Walk, src config.Walk) { dst.IgnoredFilePatterns = src.IgnoredFilePatterns },
	flags.FlagTransform:       func(dst *config.Walk, src config.Walk) { dst.TransformMode = src.TransformMode },
	flags.FlagOutputLocation:  func(dst *config.Walk, src config.Walk) { dst.OutputLocation = src.OutputLocation },
	flags.FlagPolicy:          func(dst *config.Walk, src config.Walk) { dst.WarningPolicy = src.WarningPolicy },
}

// applyWalkFile loads --config on top of the defaults and re-applies the walk
// flags that were set explicitly.
func applyWalkFile(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.Runtime.ConfigFile == "" {
		return nil
	}
	loaded, err := config.LoadWalkFile(cfg.Runtime.ConfigFile, config.DefaultWalk())
	if err != nil {
		return err
	}
	if cmd != nil {
		for name, set := range walkFlags {
			if cmd.Flags().Changed(name) {
				set(&loaded, cfg.Walk)
			}
		}
	}
	cfg.Walk = loaded
	return nil
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.SetHelpTemplate(exportHelpTemplate)

	// MAINTAINER NOTE: If you add/change/remove any walk flags here, keep
	// walkFlags above in sync so --config does not override them.

	// Targeting
	exportCmd.Flags().StringVar(&cfg.Targeting.BatchID, flags.FlagBatchID, "", "Batch id for a directory not named B<batchId>-RT<n> (requires exactly one directory)")
	exportCmd.Flags().IntVar(&cfg.Targeting.RoundTrip, flags.FlagRoundTrip, 0, "Round trip number, used with --batch-id")
	exportCmd.Flags().BoolVar(&cfg.Targeting.DryRun, flags.FlagDryRun, false, "Print the node tree of each batch without running handlers")

	// Walk
	exportCmd.Flags().StringVar(&cfg.Walk.GroupingPattern, flags.FlagGroupingPattern, cfg.Walk.GroupingPattern, "Regex deriving the group id from a file name (first capture group, or the name with the match removed)")
	exportCmd.Flags().StringVar(&cfg.Walk.ContentFilePattern, flags.FlagContentPattern, cfg.Walk.ContentFilePattern, "Regex identifying the content (payload) file of a group")
	exportCmd.Flags().StringVar(&cfg.Walk.ChecksumSuffix, flags.FlagChecksumSuffix, cfg.Walk.ChecksumSuffix, "Suffix appended to a file name to find its checksum sidecar")
	exportCmd.Flags().StringSliceVar(&cfg.Walk.IgnoredFilePatterns, flags.FlagIgnore, cfg.Walk.IgnoredFilePatterns, "Ignored file name globs; prefix with regex: for a regular expression (repeatable; comma-separated accepted)")
	exportCmd.Flags().BoolVar(&cfg.Walk.TransformMode, flags.FlagTransform, false, "Write a YAML manifest per node instead of copying metadata files")
	exportCmd.Flags().StringVar(&cfg.Walk.OutputLocation, flags.FlagOutputLocation, "", "Directory the metadata export writes to, one subdirectory per batch (required by metadata-export)")
	exportCmd.Flags().StringVar(&cfg.Walk.WarningPolicy, flags.FlagPolicy, cfg.Walk.WarningPolicy, "Warning policy: forgiving|strict (strict turns warnings into failures)")

	// Handlers
	exportCmd.Flags().StringVar(&cfg.Handlers.Selector, flags.FlagHandlers, "", "Comma-separated handler ids to run (empty = all handlers)")
	exportCmd.Flags().StringSliceVar(&cfg.Handlers.Set, flags.FlagSet, nil, "Per-handler options as handlerID.option=value (repeatable; comma-separated accepted)")

	// Output
	exportCmd.Flags().StringVar(&cfg.Output.ConsoleFormat, flags.FlagConsoleFormat, "text", "Console output format: text|json|ndjson (default: text)")
	exportCmd.Flags().StringSliceVar(&cfg.Output.ConsoleFilterStatus, flags.FlagConsoleFilterStatus, nil, "Filter console output by outcome (SUCCESS, FAILURE, WARNING). Comma-separated.")
	exportCmd.Flags().StringVar(&cfg.Output.Report, flags.FlagReport, "", "Write a Markdown report to this path")
	exportCmd.Flags().StringVar(&cfg.Output.Out, flags.FlagOut, "", "Write structured output to this path")
	exportCmd.Flags().StringVar(&cfg.Output.OutFormat, flags.FlagOutFormat, "", "Structured output format for --out: json|ndjson (default: inferred from file extension)")
	exportCmd.Flags().StringSliceVar(&cfg.Output.Emit, flags.FlagEmit, nil, "Emit additional structured stream to stdout: json|ndjson (repeatable; comma-separated accepted)")
	exportCmd.Flags().BoolVar(&cfg.Output.NoConsole, flags.FlagNoConsole, false, "Suppress console output (use with --emit/--out/--report)")
	exportCmd.Flags().BoolVar(&cfg.Output.Progress, flags.FlagProgress, false, "Show a node counter on stderr while walking")

	// Runtime
	exportCmd.Flags().IntVar(&cfg.Runtime.Concurrency, flags.FlagConcurrency, cfg.Runtime.Concurrency, "Batches walked at the same time; each walk is sequential (default: 2)")
	exportCmd.Flags().DurationVar(&cfg.Runtime.Timeout, flags.FlagTimeout, cfg.Runtime.Timeout, "Global timeout (default: 2h)")
	exportCmd.Flags().BoolVar(&cfg.Runtime.FailFast, flags.FlagFailFast, false, "Cancel remaining batches after the first aborted batch (default: false)")
	exportCmd.Flags().BoolVar(&cfg.Runtime.RecordSuccess, flags.FlagRecordSuccess, false, "Record a SUCCESS entry for every node without findings")
	exportCmd.Flags().StringVar(&cfg.Runtime.ConfigFile, flags.FlagConfig, "", "Walk options file (.properties, .yaml, .yml or .json)")
}
