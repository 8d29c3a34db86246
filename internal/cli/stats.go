package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			stats := s.store.GetStats(cmd.Context())
			return render(s.out, stats, func() error {
				printStats(s.out, stats)
				return nil
			})
		},
	}
}

func newSummaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "summary [user-id]",
		Short: "Count what a user has created (yourself by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			id := s.me.UserID
			if len(args) == 1 {
				id = args[0]
			}
			sum := s.store.UserActivitySummary(id)
			return render(s.out, sum, func() error {
				name := id
				if u, ok := s.store.User(id); ok {
					name = u.FullName
				}
				fmt.Fprintf(s.out, "%s\n", name)
				fmt.Fprintf(s.out, "  Properties: %d\n", sum.PropertiesCreated)
				fmt.Fprintf(s.out, "  Leads:      %d\n", sum.LeadsCreated)
				fmt.Fprintf(s.out, "  Deals:      %d\n", sum.Deals)
				return nil
			})
		},
	}
}
