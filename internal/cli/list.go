package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadencehq/greenlight/task"
)

var (
	listStatus     string
	listAgent      string
	listManager    string
	listDepartment string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	Long: `List prints tasks from the repository, filtered by at most one of
--agent, --manager, or --department, optionally narrowed by --status.

Examples:
  greenlight list
  greenlight list --status under_review
  greenlight list --agent agent-writer --status under_review`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	listCmd.Flags().StringVar(&listAgent, "agent", "", "tasks assigned to this agent")
	listCmd.Flags().StringVar(&listManager, "manager", "", "tasks owned by this manager")
	listCmd.Flags().StringVar(&listDepartment, "department", "", "tasks in this department")
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, _, done, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer done()

	status := task.Status(listStatus)
	if listStatus != "" && !status.Valid() {
		return fmt.Errorf("unknown status %q", listStatus)
	}

	var tasks []*task.Task
	switch {
	case listAgent != "":
		tasks = mgr.AgentTasks(listAgent, status)
	case listManager != "":
		tasks = mgr.ManagerTasks(listManager, status)
	case listDepartment != "":
		tasks = mgr.DepartmentTasks(listDepartment, status)
	case listStatus != "":
		tasks = mgr.TasksByStatus(status)
	default:
		tasks = mgr.AllTasks()
	}

	if len(tasks) == 0 {
		fmt.Println("no tasks")
		return nil
	}
	for _, t := range tasks {
		printTask(t)
	}
	return nil
}

var showCmd = &cobra.Command{
	Use:   "show TASK_ID",
	Short: "Show a task with its full workflow history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mgr, _, done, err := openManager(cfg)
		if err != nil {
			return err
		}
		defer done()

		t, ok := mgr.Task(args[0])
		if !ok {
			return fmt.Errorf("task %s not found", args[0])
		}
		printTaskDetail(t)
		return nil
	},
}
