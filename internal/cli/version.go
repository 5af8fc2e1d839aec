package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/cadencehq/greenlight/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("greenlight %s\n", version.Version)
		fmt.Printf("  commit:     %s\n", version.Commit)
		fmt.Printf("  built:      %s\n", version.BuildDate)
		fmt.Printf("  go version: %s\n", runtime.Version())
		fmt.Printf("  platform:   %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
