// Command greenlight is the CLI entry point for the task coordination
// and review pipeline.
package main

import (
	"os"

	"github.com/cadencehq/greenlight/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
