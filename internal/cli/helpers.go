package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/cadencehq/greenlight/config"
	"github.com/cadencehq/greenlight/events"
	"github.com/cadencehq/greenlight/routing"
	"github.com/cadencehq/greenlight/task"
)

// loadConfig resolves the effective configuration: defaults, then the
// discovered YAML file, then environment overrides via viper.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	path := cfgFile
	if path == "" {
		path = viper.ConfigFileUsed()
	}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if v := viper.GetString("data_dir"); v != "" {
		cfg.DataDir = v
	}
	if v := viper.GetString("log_level"); v != "" {
		cfg.LogLevel = v
	}
	return cfg, nil
}

// openManager builds the repository over the configured store, wired to
// a process-local activity bus. The returned close function performs
// the final save.
func openManager(cfg *config.Config) (*task.Manager, events.Bus, func(), error) {
	store := task.NewStore(cfg.StorePath())
	bus := events.NewInMemoryBus()
	mgr, err := task.NewManager(store, cliLogger(), bus)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open task repository: %w", err)
	}
	closeFn := func() {
		if err := mgr.Close(); err != nil {
			cliLogger().Error("close task repository", slog.Any("err", err))
		}
	}
	return mgr, bus, closeFn, nil
}

// newRouter converts the configured departments into a routing table.
func newRouter(cfg *config.Config) *routing.Router {
	departments := make([]routing.Department, 0, len(cfg.Departments))
	for _, d := range cfg.Departments {
		departments = append(departments, routing.Department{
			Name:     d.Name,
			Keywords: d.Keywords,
			Agents:   d.Agents,
			Manager:  d.Manager,
		})
	}
	return routing.NewRouter(departments)
}

func cliLogger() *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// printTask writes a one-line task summary.
func printTask(t *task.Task) {
	fmt.Printf("%s  [%s]  %-12s  %s\n", t.ID, t.Priority, t.Status, t.Title)
}

// printTaskDetail writes the full task record including its history.
func printTaskDetail(t *task.Task) {
	fmt.Printf("ID:          %s\n", t.ID)
	fmt.Printf("Title:       %s\n", t.Title)
	fmt.Printf("Description: %s\n", t.Description)
	fmt.Printf("Status:      %s\n", t.Status)
	fmt.Printf("Priority:    %s\n", t.Priority)
	fmt.Printf("Assignee:    %s\n", t.Assignee)
	fmt.Printf("Department:  %s\n", t.Department())
	fmt.Printf("Revisions:   %d\n", t.RevisionCount)
	if t.Output != "" {
		fmt.Printf("Output:      %s\n", t.Output)
	}
	if t.ApprovalReason != "" {
		fmt.Printf("Approval:    %s\n", t.ApprovalReason)
	}
	if t.RejectionReason != "" {
		fmt.Printf("Rejection:   %s\n", t.RejectionReason)
	}
	fmt.Println("History:")
	for _, e := range t.WorkflowHistory {
		fmt.Printf("  %s  %-12s  %s  %s\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Status, e.Actor, e.Message)
	}
}
