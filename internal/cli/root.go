package cli

import (
	"fmt"
	"os"

	"metadataexporter/internal/flags"
	"metadataexporter/internal/logger"

	"github.com/spf13/cobra"
)

var (
	buildVersion = "dev"
	buildCommit  = "unknown"
	buildDate    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "metadataexporter",
	Short: "Walk newspaper digitization batches and export their metadata",
	Long: `metadataexporter walks digitization batches (directories named B<batchId>-RT<n>)
in a fixed, deterministic order and hands every page group, file and metadata
sidecar to a set of handlers: checksum verification and metadata export.

Problems found on single nodes are collected, never fatal: a batch with missing
checksums still completes and is reported with warnings.

Examples:
	# Show available commands and global flags
	metadataexporter --help

	# Verify and export one batch
	metadataexporter export /data/batches/B400022028241-RT1 --output-location /data/export

	# List handlers
	metadataexporter handlers list

	# Print build info
	metadataexporter version

Output:
	By default, commands write human-readable output to stdout and logs to stderr.
	Some commands support structured output via emitter flags (see each command's --help).`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.LogOptions{Verbose: cfg.Runtime.Verbose})
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&cfg.Runtime.Verbose, flags.FlagVerbose, false, "Enable verbose logging (prints every handler result and walk step)")
}

func SetBuildInfo(version, commit, date string) {
	if version != "" {
		buildVersion = version
	}
	if commit != "" {
		buildCommit = commit
	}
	if date != "" {
		buildDate = date
	}

	rootCmd.Version = fmt.Sprintf("%s (%s) %s", buildVersion, buildCommit, buildDate)
	rootCmd.SetVersionTemplate("{{.Version}}\n")
}

func BuildInfo() (version, commit, date string) {
	return buildVersion, buildCommit, buildDate
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
