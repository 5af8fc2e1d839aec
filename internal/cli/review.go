package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadencehq/greenlight/audit"
	"github.com/cadencehq/greenlight/provider/mock"
	"github.com/cadencehq/greenlight/review"
)

var (
	reviewActor    string
	reviewResponse string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run pipeline stages against a task",
	Long: `Review drives one stage of the approval pipeline. The stage
capability is a scripted provider fed by --response; production
deployments plug in a real generation backend instead.`,
}

var reviewExecCmd = &cobra.Command{
	Use:   "exec TASK_ID",
	Short: "Run the worker stage: produce output and submit for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, done, err := openPipeline()
		if err != nil {
			return err
		}
		defer done()
		if err := p.ExecuteTask(cmd.Context(), args[0], reviewActor); err != nil {
			return err
		}
		fmt.Printf("task %s executed by %s\n", args[0], reviewActor)
		return nil
	},
}

var reviewManagerCmd = &cobra.Command{
	Use:   "manager TASK_ID",
	Short: "Run the manager screening stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, done, err := openPipeline()
		if err != nil {
			return err
		}
		defer done()
		verdict, err := p.ManagerReview(cmd.Context(), args[0], reviewActor)
		if err != nil {
			return err
		}
		printVerdict(verdict)
		return nil
	},
}

var reviewExecutiveCmd = &cobra.Command{
	Use:   "executive TASK_ID",
	Short: "Run the final executive screening stage",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, done, err := openPipeline()
		if err != nil {
			return err
		}
		defer done()
		verdict, err := p.ExecutiveReview(cmd.Context(), args[0], reviewActor)
		if err != nil {
			return err
		}
		printVerdict(verdict)
		return nil
	},
}

func init() {
	reviewCmd.PersistentFlags().StringVar(&reviewActor, "actor", "cli", "acting worker or reviewer name")
	reviewCmd.PersistentFlags().StringVar(&reviewResponse, "response", "", "scripted capability response")
	reviewCmd.AddCommand(reviewExecCmd)
	reviewCmd.AddCommand(reviewManagerCmd)
	reviewCmd.AddCommand(reviewExecutiveCmd)
}

// openPipeline builds a pipeline whose stage capabilities replay the
// --response text, with the override ledger and activity bus attached.
func openPipeline() (*review.Pipeline, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	mgr, bus, closeMgr, err := openManager(cfg)
	if err != nil {
		return nil, nil, err
	}
	ledger, err := audit.Open(cfg.OverrideDBPath())
	if err != nil {
		closeMgr()
		return nil, nil, err
	}

	var prov *mock.Provider
	if reviewResponse != "" {
		prov = mock.New(reviewResponse)
	} else {
		prov = mock.New()
	}
	p := review.NewPipeline(
		mgr,
		&review.ProviderWorker{Provider: prov},
		&review.ProviderReviewer{Provider: prov},
		&review.ProviderReviewer{Provider: prov, Executive: true},
		cliLogger(),
	)
	p.SetOverrideLedger(ledger)
	p.SetBus(bus)

	done := func() {
		if err := ledger.Close(); err != nil {
			cliLogger().Error("close override ledger", "err", err)
		}
		closeMgr()
	}
	return p, done, nil
}

func printVerdict(v review.Verdict) {
	word := "rejected"
	if v.Approved {
		word = "approved"
	}
	fmt.Printf("%s: %s\n", word, v.Reasoning)
}
