package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cadencehq/greenlight/config"
	"github.com/cadencehq/greenlight/task"
)

var (
	createDescription string
	createDepartment  string
	createPriority    string
	createCreator     string
	createAssign      string
)

var createCmd = &cobra.Command{
	Use:   "create TITLE",
	Short: "Create a new task",
	Long: `Create registers a new task in the repository with status pending.

When --department is omitted the routing table classifies the
description and picks a department and suggested worker.

Examples:
  greenlight create "Write launch notes" -d "Summarize the release" --department marketing
  greenlight create "Fix urgent billing bug" -d "Customers double charged, urgent" --assign auto`,
	Args: cobra.ExactArgs(1),
	RunE: runCreate,
}

func init() {
	createCmd.Flags().StringVarP(&createDescription, "description", "d", "", "task description")
	createCmd.Flags().StringVar(&createDepartment, "department", "", "owning department (routed from the description when empty)")
	createCmd.Flags().StringVarP(&createPriority, "priority", "p", "", "priority: low, medium, high, urgent (routed when empty)")
	createCmd.Flags().StringVar(&createCreator, "creator", "cli", "creating actor recorded in the audit trail")
	createCmd.Flags().StringVar(&createAssign, "assign", "", "agent to assign, or \"auto\" to use the routed suggestion")
}

func runCreate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mgr, _, done, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer done()

	department := createDepartment
	priority := task.Priority(strings.ToLower(createPriority))
	if createPriority != "" && !priority.Valid() {
		return fmt.Errorf("unknown priority %q", createPriority)
	}
	suggested := ""
	if department == "" || createPriority == "" {
		decision := newRouter(cfg).Route(args[0] + " " + createDescription)
		if department == "" {
			department = decision.Department
		}
		if createPriority == "" {
			priority = decision.Priority
		}
		suggested = decision.SuggestedWorker
	}

	t := mgr.CreateTask("", args[0], createDescription, department, priority, createCreator, map[string]string{
		"origin": "cli",
	})

	if createAssign != "" {
		agent := createAssign
		if agent == "auto" {
			agent = suggested
		}
		if agent == "" {
			return fmt.Errorf("no agent to assign: routing suggested none")
		}
		if !mgr.AssignTaskToAgent(t.ID, agent, departmentManager(cfg, department)) {
			return fmt.Errorf("assign task %s: not found", t.ID)
		}
	}

	fmt.Printf("created task %s (department=%s priority=%s)\n", t.ID, department, priority)
	return nil
}

// departmentManager returns the configured manager for a department.
func departmentManager(cfg *config.Config, department string) string {
	for _, d := range cfg.Departments {
		if d.Name == department {
			return d.Manager
		}
	}
	return ""
}
