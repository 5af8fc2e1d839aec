package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cadencehq/greenlight/audit"
)

var (
	overrideCheckpoint string
	overrideReviewer   string
	overrideComment    string
)

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Record or list human override decisions",
	Long: `Override keeps the advisory ledger of human decisions layered on top
of the AI review verdicts. Recording an override never changes the
task's status; use "greenlight status" to reopen a task explicitly.`,
}

var overrideRecordCmd = &cobra.Command{
	Use:   "record TASK_ID DECISION",
	Short: "Record an approve/reject override",
	Long: `Examples:
  greenlight override record a1b2c3 approve --checkpoint manager --reviewer alex
  greenlight override record a1b2c3 reject --checkpoint executive --reviewer sam -m "off brand"`,
	Args: cobra.ExactArgs(2),
	RunE: runOverrideRecord,
}

var overrideListCmd = &cobra.Command{
	Use:   "list TASK_ID",
	Short: "List overrides recorded for a task",
	Args:  cobra.ExactArgs(1),
	RunE:  runOverrideList,
}

func init() {
	overrideRecordCmd.Flags().StringVar(&overrideCheckpoint, "checkpoint", "manager", "checkpoint overridden: manager or executive")
	overrideRecordCmd.Flags().StringVar(&overrideReviewer, "reviewer", "", "human reviewer recording the decision")
	overrideRecordCmd.Flags().StringVarP(&overrideComment, "message", "m", "", "reviewer comment")
	overrideCmd.AddCommand(overrideRecordCmd)
	overrideCmd.AddCommand(overrideListCmd)
}

func runOverrideRecord(cmd *cobra.Command, args []string) error {
	decision := audit.Decision(args[1])
	if decision != audit.DecisionApprove && decision != audit.DecisionReject {
		return fmt.Errorf("decision must be approve or reject, got %q", args[1])
	}
	checkpoint := audit.Checkpoint(overrideCheckpoint)
	if checkpoint != audit.CheckpointManager && checkpoint != audit.CheckpointExecutive {
		return fmt.Errorf("checkpoint must be manager or executive, got %q", overrideCheckpoint)
	}
	if overrideReviewer == "" {
		return fmt.Errorf("--reviewer is required")
	}

	p, done, err := openPipeline()
	if err != nil {
		return err
	}
	defer done()

	o, err := p.RecordOverride(cmd.Context(), args[0], checkpoint, decision, overrideReviewer, overrideComment)
	if err != nil {
		return err
	}
	fmt.Printf("recorded override %s (%s %s by %s)\n", o.ID, o.Checkpoint, o.Decision, o.Reviewer)
	return nil
}

func runOverrideList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ledger, err := audit.Open(cfg.OverrideDBPath())
	if err != nil {
		return err
	}
	defer ledger.Close()

	overrides, err := ledger.ForTask(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(overrides) == 0 {
		fmt.Println("no overrides")
		return nil
	}
	for _, o := range overrides {
		fmt.Printf("%s  %-9s  %-7s  %-12s  %s\n",
			o.CreatedAt.Format("2006-01-02 15:04:05"), o.Checkpoint, o.Decision, o.Reviewer, o.Comment)
	}
	return nil
}
