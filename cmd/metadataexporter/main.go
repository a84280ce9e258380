package main

import (
	"metadataexporter/internal/cli"
	_ "metadataexporter/internal/handlers/builtin"
)

// These variables are populated by the build via -ldflags.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	cli.SetBuildInfo(version, commit, date)
	cli.Execute()
}
