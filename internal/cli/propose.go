package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sentinel-dao/sentinel/internal/daemon"
)

func init() {
	overrideCmd.Flags().StringVar(&proposeProposer, "proposer", "", "Proposer address (required)")
	overrideCmd.Flags().StringVar(&overrideAgent, "agent", "", "Agent type to override (trader, compliance, supervisor, advisor)")
	overrideCmd.Flags().StringVar(&overrideAction, "action", "", "Agent action to request a decision for")
	overrideCmd.Flags().StringVar(&overrideWith, "with", "", "The human replacement decision (required)")
	overrideCmd.Flags().StringVar(&proposeReason, "reason", "", "Why the override is warranted")
	overrideCmd.MarkFlagRequired("proposer")
	overrideCmd.MarkFlagRequired("agent")
	overrideCmd.MarkFlagRequired("action")
	overrideCmd.MarkFlagRequired("with")

	paramCmd.Flags().StringVar(&proposeProposer, "proposer", "", "Proposer address (required)")
	paramCmd.Flags().StringVar(&paramName, "parameter", "", "Parameter key (required)")
	paramCmd.Flags().StringVar(&paramFrom, "from", "", "Current value")
	paramCmd.Flags().StringVar(&paramTo, "to", "", "Proposed value (required)")
	paramCmd.Flags().StringVar(&proposeReason, "reason", "", "Why the change is warranted")
	paramCmd.MarkFlagRequired("proposer")
	paramCmd.MarkFlagRequired("parameter")
	paramCmd.MarkFlagRequired("to")

	proposeCmd.AddCommand(overrideCmd)
	proposeCmd.AddCommand(paramCmd)
	rootCmd.AddCommand(proposeCmd)
}

var (
	proposeProposer string
	proposeReason   string
	overrideAgent   string
	overrideAction  string
	overrideWith    string
	paramName       string
	paramFrom       string
	paramTo         string
)

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Create a governance proposal",
}

var overrideCmd = &cobra.Command{
	Use:   "override",
	Short: "Propose overriding an agent decision",
	Long: `Ask the named agent for a decision on the given action, snapshot it,
and open an override proposal replacing that decision with yours.`,
	RunE: runProposeOverride,
}

func runProposeOverride(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	snap, err := d.Registry.Decide(overrideAgent, overrideAction, nil)
	if err != nil {
		return err
	}

	p, err := d.Engine.CreateAgentOverrideProposal(proposeProposer, snap, overrideWith, proposeReason)
	if err != nil {
		return err
	}

	fmt.Printf("Proposal %s created (%s)\n", p.ID, p.Kind)
	fmt.Printf("  Agent decision: %s (confidence %.2f)\n", snap.Decision, snap.Confidence)
	fmt.Printf("  Override:       %s\n", p.ProposedOverride)
	fmt.Printf("  Voting closes:  %s\n", p.EndTime.Format("2006-01-02 15:04"))
	return nil
}

var paramCmd = &cobra.Command{
	Use:   "param",
	Short: "Propose a treasury parameter change",
	RunE:  runProposeParam,
}

func runProposeParam(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Engine.CreateParameterChangeProposal(proposeProposer, paramName, paramFrom, paramTo, proposeReason)
	if err != nil {
		return err
	}

	fmt.Printf("Proposal %s created (%s)\n", p.ID, p.Kind)
	fmt.Printf("  %s: %s → %s\n", paramName, paramFrom, paramTo)
	fmt.Printf("  Voting closes: %s\n", p.EndTime.Format("2006-01-02 15:04"))
	return nil
}
