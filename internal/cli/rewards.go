package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/model"
)

func newRewardsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rewards",
		Short: "Track progress toward rewards",
	}
	cmd.AddCommand(newRewardsListCmd(), newRewardsRefreshCmd(), newRewardsAdvanceCmd())
	return cmd
}

func newRewardsListCmd() *cobra.Command {
	var points int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every reward with your status and progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			s.store.LoadRewards(cmd.Context())
			standings := s.store.RewardStandings(points)
			return render(s.out, standings, func() error { return printRewardTable(s.out, standings) })
		},
	}

	cmd.Flags().IntVar(&points, "points", 0, "points balance to compute progress from")

	return cmd
}

func newRewardsRefreshCmd() *cobra.Command {
	var points int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Recompute and save reward progress from a points balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			s.store.LoadRewards(cmd.Context())
			changed, err := s.store.RefreshRewardProgress(cmd.Context(), points)
			if err != nil {
				return err
			}
			return render(s.out, changed, func() error {
				fmt.Fprintf(s.out, "✓ Updated %d rewards.\n", len(changed))
				return printRewardTable(s.out, s.store.RewardStandings(points))
			})
		},
	}

	cmd.Flags().IntVar(&points, "points", 0, "current points balance")
	_ = cmd.MarkFlagRequired("points")

	return cmd
}

func newRewardsAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <reward-id> <status>",
		Short: "Move a reward forward (available, earned or fulfilled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			s.store.LoadRewards(cmd.Context())
			ur, err := s.store.AdvanceUserReward(cmd.Context(), args[0], model.UserRewardStatus(args[1]))
			if err != nil {
				return err
			}
			return render(s.out, ur, func() error {
				fmt.Fprintf(s.out, "✓ Reward %s is now %s.\n", ur.RewardID, ur.Status)
				return nil
			})
		},
	}
}

func newReferralsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "referrals",
		Short: "Referral earnings",
	}
	cmd.AddCommand(newReferralsListCmd(), newReferralsAddCmd())
	return cmd
}

func newReferralsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Summarize your referral earnings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			s.store.LoadRewards(cmd.Context())
			summary := s.store.ReferralSummary(s.me.UserID)
			return render(s.out, summary, func() error { return printReferralSummary(s.out, summary) })
		},
	}
}

func newReferralsAddCmd() *cobra.Command {
	var referrer, agent, earningType, dealID string
	var amount float64

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Credit a referral earning (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := model.EarningType(earningType)
			if t != model.EarningSignupFee && t != model.EarningCommissionShare {
				return fmt.Errorf("invalid earning type %q", earningType)
			}

			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.requireAdmin(); err != nil {
				return err
			}
			e := model.ReferralEarning{
				ReferrerID:      referrer,
				ReferredAgentID: agent,
				EarningType:     t,
				EarningAmount:   amount,
			}
			setIf(cmd.Flags(), "deal", &e.DealID, dealID)

			e, err = s.store.AddReferralEarning(cmd.Context(), e)
			if err != nil {
				return err
			}
			return render(s.out, e, func() error {
				fmt.Fprintf(s.out, "✓ Credited $%s to %s.\n", formatPrice(e.EarningAmount), e.ReferrerID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&referrer, "referrer", "", "referrer user id (default: you)")
	cmd.Flags().StringVar(&agent, "agent", "", "referred agent user id")
	cmd.Flags().StringVar(&earningType, "type", string(model.EarningSignupFee), "signup_fee|commission_share")
	cmd.Flags().StringVar(&dealID, "deal", "", "deal the earning came from")
	cmd.Flags().Float64Var(&amount, "amount", 0, "amount")
	_ = cmd.MarkFlagRequired("agent")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
