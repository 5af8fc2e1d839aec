package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	assignAgent   string
	assignManager string
)

var assignCmd = &cobra.Command{
	Use:   "assign TASK_ID",
	Short: "Assign a task to an agent or manager",
	Long: `Assign records the responsible actor for a task. Assignment does not
change the task's status.

Examples:
  greenlight assign a1b2c3 --agent agent-writer
  greenlight assign a1b2c3 --agent agent-writer --manager manager-content
  greenlight assign a1b2c3 --manager manager-content`,
	Args: cobra.ExactArgs(1),
	RunE: runAssign,
}

func init() {
	assignCmd.Flags().StringVar(&assignAgent, "agent", "", "agent to assign")
	assignCmd.Flags().StringVar(&assignManager, "manager", "", "manager (co-owner when --agent is also given)")
}

func runAssign(cmd *cobra.Command, args []string) error {
	if assignAgent == "" && assignManager == "" {
		return fmt.Errorf("one of --agent or --manager is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, _, done, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer done()

	taskID := args[0]
	var ok bool
	if assignAgent != "" {
		ok = mgr.AssignTaskToAgent(taskID, assignAgent, assignManager)
	} else {
		ok = mgr.AssignTaskToManager(taskID, assignManager)
	}
	if !ok {
		return fmt.Errorf("task %s not found", taskID)
	}
	fmt.Printf("assigned task %s\n", taskID)
	return nil
}
