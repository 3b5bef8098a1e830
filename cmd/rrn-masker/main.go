package main

import (
	"os"

	"github.com/ironsheep/rrn-masker/cmd/rrn-masker/cmd"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	os.Exit(cmd.Execute(cmd.BuildInfo{
		Version:   Version,
		BuildTime: BuildTime,
		GitCommit: GitCommit,
	}))
}
