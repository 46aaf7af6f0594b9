package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sentinel-dao/sentinel/internal/daemon"
)

func init() {
	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(outcomeCmd)
}

var execCmd = &cobra.Command{
	Use:   "exec <proposal-id>",
	Short: "Evaluate a closed proposal and execute it if it passed",
	Args:  cobra.ExactArgs(1),
	RunE:  runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	passed, err := d.Engine.ExecuteProposal(args[0])
	if err != nil {
		return err
	}

	p, perr := d.Engine.GetProposal(args[0])
	if perr != nil {
		return perr
	}

	if passed {
		fmt.Printf("Proposal %s passed and executed.\n", p.ID)
	} else {
		fmt.Printf("Proposal %s did not pass (status %s).\n", p.ID, p.Status)
	}
	return nil
}

var outcomeCmd = &cobra.Command{
	Use:   "outcome <proposal-id> <actual-outcome>",
	Short: "Reconcile an executed override with its observed outcome (0..1)",
	Args:  cobra.ExactArgs(2),
	RunE:  runOutcome,
}

func runOutcome(cmd *cobra.Command, args []string) error {
	var actual float64
	if _, err := fmt.Sscanf(args[1], "%f", &actual); err != nil {
		return fmt.Errorf("actual-outcome must be a number in [0,1] (got %q)", args[1])
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	d.Engine.RecordOutcome(args[0], actual)
	d.Registry.Recalibrate(d.Engine.AllProposals())

	if p, err := d.Engine.GetProposal(args[0]); err == nil && p.Outcome != nil && p.Outcome.LearningData.ActualOutcome != nil {
		fmt.Printf("Outcome %.2f recorded for %s (adjustment %+.1f)\n",
			*p.Outcome.LearningData.ActualOutcome, p.ID, p.Outcome.LearningData.Adjustment)
	} else {
		fmt.Printf("Outcome ignored: %s has no executed outcome to reconcile.\n", args[0])
	}
	return nil
}
