package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"studypilot/backend/internal/domain/profile"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user profiles",
	}

	cmd.AddCommand(newUserShowCmd())
	cmd.AddCommand(newUserPromoteCmd())
	cmd.AddCommand(newUserResetCmd())

	return cmd
}

func newUserShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <email>",
		Short: "Show a profile's plan and usage counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			p, err := store.GetByEmail(context.Background(), args[0])
			if err != nil {
				return err
			}

			fmt.Printf("ID:          %s\n", p.ID)
			fmt.Printf("Email:       %s\n", p.Email)
			fmt.Printf("Plan:        %s\n", p.Plan)
			fmt.Printf("Notes today: %d\n", p.NotesToday)
			fmt.Printf("Q&A today:   %d\n", p.QnaToday)
			fmt.Printf("Last reset:  %s\n", p.LastReset)
			fmt.Printf("Created:     %s\n", p.CreatedAt.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}
}

func newUserPromoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "promote <email>",
		Short: "Promote a profile to the premium plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			matched, err := store.SetPlanByEmail(context.Background(), args[0], profile.PlanPremium)
			if err != nil {
				return err
			}
			if !matched {
				return fmt.Errorf("no profile found for %s", args[0])
			}

			fmt.Printf("Promoted %s to premium\n", args[0])
			return nil
		},
	}
}

func newUserResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset <email>",
		Short: "Reset a profile's daily usage counters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, db, err := openStore()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := context.Background()
			p, err := store.GetByEmail(ctx, args[0])
			if err != nil {
				return err
			}

			// Force the reset regardless of last_reset by marking the
			// row stale first.
			if err := store.ResetStale(ctx, p.ID, "1970-01-01"); err != nil {
				return err
			}
			if err := store.ResetStale(ctx, p.ID, profile.Today()); err != nil {
				return err
			}

			fmt.Printf("Reset daily counters for %s\n", args[0])
			return nil
		},
	}
}
