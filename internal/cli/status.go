package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadencehq/greenlight/task"
)

var (
	statusActor   string
	statusMessage string
)

var statusCmd = &cobra.Command{
	Use:   "status TASK_ID STATUS",
	Short: "Update a task's status",
	Long: `Status drives a task through the repository's single authorized
status mutator, appending to its workflow history.

Valid statuses: pending, in_progress, under_review, cmo_review,
completed, rejected.

Examples:
  greenlight status a1b2c3 under_review --actor agent-writer -m "ready for review"
  greenlight status a1b2c3 under_review --actor ops -m "reopened after override"`,
	Args: cobra.ExactArgs(2),
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusActor, "actor", "cli", "actor recorded in the workflow history")
	statusCmd.Flags().StringVarP(&statusMessage, "message", "m", "", "history message")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, _, done, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer done()

	status := task.Status(strings.ToLower(args[1]))
	ok, err := mgr.UpdateStatus(args[0], status, statusActor, statusMessage)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("task %s not found", args[0])
	}
	fmt.Printf("task %s -> %s\n", args[0], status)
	return nil
}
