package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show system metrics",
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

		m := mgr.Metrics()
		fmt.Printf("created:    %d\n", m.TotalCreated)
		fmt.Printf("completed:  %d\n", m.TotalCompleted)
		fmt.Printf("failed:     %d\n", m.TotalFailed)
		fmt.Printf("success:    %.1f%%\n", m.SuccessRate)
		fmt.Printf("agents:     %d active\n", m.ActiveAgents)
		fmt.Printf("managers:   %d active\n", m.ActiveManagers)
		if len(m.ByStatus) > 0 {
			fmt.Println("by status:")
			for status, n := range m.ByStatus {
				fmt.Printf("  %-12s %d\n", status, n)
			}
		}
		if len(m.ByDepartment) > 0 {
			fmt.Println("by department:")
			for dept, n := range m.ByDepartment {
				fmt.Printf("  %-12s %d\n", dept, n)
			}
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search QUERY",
	Short: "Search tasks by title and description",
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

		limit, _ := cmd.Flags().GetInt("limit")
		tasks := mgr.Search(args[0], limit)
		if len(tasks) == 0 {
			fmt.Println("no matches")
			return nil
		}
		for _, t := range tasks {
			printTask(t)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("limit", 10, "maximum results")
}
