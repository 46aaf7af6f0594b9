package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sentinel-dao/sentinel/internal/daemon"
	"github.com/sentinel-dao/sentinel/internal/domain"
)

func init() {
	proposalsCmd.Flags().BoolVar(&proposalsAll, "all", false, "Include closed proposals")
	rootCmd.AddCommand(proposalsCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(learningCmd)
}

var proposalsAll bool

var proposalsCmd = &cobra.Command{
	Use:   "proposals",
	Short: "List governance proposals",
	RunE:  runProposals,
}

func runProposals(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	list := d.Engine.ActiveProposals()
	if proposalsAll {
		list = d.Engine.AllProposals()
	}
	if len(list) == 0 {
		fmt.Println("No proposals. Run 'sentinel propose' to get started.")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tSTATUS\tFOR\tAGAINST\tABSTAIN\tCLOSES")
	for _, p := range list {
		closes := p.EndTime.Format("2006-01-02 15:04")
		if p.Status == domain.StatusActive && p.VotingEnded(now) {
			closes = "ended"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			p.ID, p.Kind, p.Status,
			p.Power.For, p.Power.Against, p.Power.Abstain, closes)
	}
	return w.Flush()
}

var showCmd = &cobra.Command{
	Use:   "show <proposal-id>",
	Short: "Show a proposal, its tally, and its votes",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func runShow(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	p, err := d.Engine.GetProposal(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s — %s\n", p.ID, p.Title)
	fmt.Printf("  Kind:      %s\n", p.Kind)
	fmt.Printf("  Status:    %s\n", p.Status)
	fmt.Printf("  Proposer:  %s\n", p.Proposer)
	fmt.Printf("  Window:    %s → %s\n", p.StartTime.Format("2006-01-02 15:04"), p.EndTime.Format("2006-01-02 15:04"))
	if p.AgentDecision != nil {
		fmt.Printf("  Agent:     %s (%s), confidence %.2f\n", p.AgentDecision.AgentID, p.AgentDecision.AgentType, p.AgentDecision.Confidence)
		fmt.Printf("  Decision:  %s\n", p.AgentDecision.Decision)
		fmt.Printf("  Override:  %s\n", p.ProposedOverride)
	}
	if p.ParameterChange != nil {
		fmt.Printf("  Change:    %s: %s → %s\n", p.ParameterChange.Parameter, p.ParameterChange.CurrentValue, p.ParameterChange.ProposedValue)
	}

	tally, err := d.Engine.Tally(p.ID)
	if err != nil {
		return err
	}
	fmt.Printf("  Tally:     for=%s against=%s abstain=%s (quorum %s, threshold %s)\n",
		p.Power.For, p.Power.Against, p.Power.Abstain, p.Quorum, p.Threshold)
	fmt.Printf("             quorum met: %v, for-ratio: %s, passing: %v\n",
		tally.QuorumMet, tally.ForRatio.StringFixed(4), tally.Passed)

	if p.Outcome != nil {
		ld := p.Outcome.LearningData
		fmt.Printf("  Outcome:   executed %s\n", p.ExecutionTime.Format("2006-01-02 15:04"))
		if ld.ActualOutcome != nil {
			fmt.Printf("             actual=%.2f adjustment=%+.1f\n", *ld.ActualOutcome, ld.Adjustment)
		} else {
			fmt.Printf("             awaiting outcome reconciliation\n")
		}
	}

	votes, err := d.Engine.ProposalVotes(p.ID)
	if err != nil {
		return err
	}
	if len(votes) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  VOTER\tCHOICE\tSTAKE\tCAST")
		for _, v := range votes {
			fmt.Fprintf(w, "  %s\t%s\t%s\t%s\n", v.Voter, v.Choice, v.Stake, v.CastAt.Format("2006-01-02 15:04"))
		}
		w.Flush()
	}
	return nil
}

var learningCmd = &cobra.Command{
	Use:   "learning",
	Short: "List learning entries from executed overrides",
	RunE:  runLearning,
}

func runLearning(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	entries := d.Engine.LearningData()
	if len(entries) == 0 {
		fmt.Println("No learning entries yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROPOSAL\tAGENT\tORIGINAL\tOVERRIDE\tOUTCOME")
	for _, e := range entries {
		outcome := "-"
		if e.Outcome != nil {
			outcome = fmt.Sprintf("%.2f", *e.Outcome)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ProposalID, e.AgentType, e.OriginalDecision, e.HumanOverride, outcome)
	}
	return w.Flush()
}
