package cli

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sentinel-dao/sentinel/internal/daemon"
	"github.com/sentinel-dao/sentinel/internal/domain"
)

func init() {
	voteCmd.Flags().StringVar(&voteVoter, "voter", "", "Voter address (required)")
	voteCmd.Flags().StringVar(&voteChoice, "choice", "", "for, against, or abstain (required)")
	voteCmd.Flags().StringVar(&voteStake, "stake", "", "Stake amount to lock behind the vote (required)")
	voteCmd.Flags().StringVar(&voteReason, "reason", "", "Optional reasoning")
	voteCmd.MarkFlagRequired("voter")
	voteCmd.MarkFlagRequired("choice")
	voteCmd.MarkFlagRequired("stake")
	rootCmd.AddCommand(voteCmd)
}

var (
	voteVoter  string
	voteChoice string
	voteStake  string
	voteReason string
)

var voteCmd = &cobra.Command{
	Use:   "vote <proposal-id>",
	Short: "Cast a stake-weighted vote on a proposal",
	Args:  cobra.ExactArgs(1),
	RunE:  runVote,
}

func runVote(cmd *cobra.Command, args []string) error {
	choice, ok := domain.ParseVoteChoice(voteChoice)
	if !ok {
		return fmt.Errorf("choice must be for, against, or abstain (got %q)", voteChoice)
	}
	stakeAmount, err := decimal.NewFromString(voteStake)
	if err != nil {
		return fmt.Errorf("stake must be a decimal amount (got %q)", voteStake)
	}

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	v, err := d.Engine.CastVote(context.Background(), args[0], voteVoter, choice, stakeAmount, voteReason)
	if err != nil {
		return err
	}

	fmt.Printf("Vote %s recorded: %s staked %s %s\n", v.ID, v.Voter, v.Stake, v.Choice)
	if v.TxHash != "" {
		fmt.Printf("  Stake lock: %s\n", v.TxHash)
	}
	return nil
}
