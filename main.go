package main

import (
	"os"

	"github.com/sadopc/studytrack/internal/cli"
)

// Set during build.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	cli.SetVersionInfo(version, commit)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
