// cmd/invoicectl/commands.go
package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/javajoker/invoice-backend/internal/config"
	"github.com/javajoker/invoice-backend/internal/database"
	"github.com/javajoker/invoice-backend/internal/services"
	"github.com/javajoker/invoice-backend/internal/utils"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.RunMigrations(a.db); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "migrations applied")
			return nil
		},
	}
}

func newSeedAdminCmd(a *app) *cobra.Command {
	var username, email, password string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first admin account if none exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			generated := password == ""
			if generated {
				var err error
				if password, err = utils.GeneratePassword(); err != nil {
					return fmt.Errorf("failed to generate password: %w", err)
				}
			}

			created, err := database.SeedAdmin(a.db, username, email, password)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintln(a.out, "an admin account already exists, nothing to do")
				return nil
			}

			fmt.Fprintf(a.out, "admin %s created\n", email)
			if generated {
				fmt.Fprintf(a.out, "password: %s\n", password)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "admin", "Admin username")
	cmd.Flags().StringVar(&email, "email", "admin@example.com", "Admin email")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (generated when empty)")
	return cmd
}

func newCOGSCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cogs <size-price-id>",
		Short: "Print the recipe cost breakdown of a size variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid size price id %q", args[0])
			}

			breakdown, err := services.NewRecipeService(a.db, nil).GetComponentsBySizePrice(cmd.Context(), id)
			if err != nil {
				return err
			}

			t := a.newTable()
			t.AppendHeader(table.Row{"Ingredient", "Unit", "Quantity", "Cost/Unit", "Cost"})
			for _, component := range breakdown.Components {
				t.AppendRow(table.Row{
					component.IngredientName,
					component.Unit,
					component.QuantityNeeded.String(),
					component.CostPerUnit.StringFixed(4),
					component.CalculatedCost.StringFixed(4),
				})
			}
			t.AppendFooter(table.Row{"", "", "", "Total", breakdown.TotalCOGS.StringFixed(4)})
			t.SetColumnConfigs([]table.ColumnConfig{
				{Number: 3, Align: text.AlignRight},
				{Number: 4, Align: text.AlignRight},
				{Number: 5, Align: text.AlignRight, AlignFooter: text.AlignRight},
			})
			t.Render()
			return nil
		},
	}
}

func newPriceHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "price-history <ingredient-id>",
		Short: "Print the price changes of an ingredient, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid ingredient id %q", args[0])
			}

			history, err := services.NewIngredientService(a.db, nil).GetPriceHistory(cmd.Context(), id)
			if err != nil {
				return err
			}

			t := a.newTable()
			t.AppendHeader(table.Row{"Changed At", "Old Price", "New Price", "Reason"})
			for _, h := range history {
				reason := ""
				if h.Reason != nil {
					reason = *h.Reason
				}
				t.AppendRow(table.Row{
					h.ChangedAt.UTC().Format("2006-01-02 15:04:05"),
					h.OldPrice.StringFixed(4),
					h.NewPrice.StringFixed(4),
					reason,
				})
			}
			t.Render()
			return nil
		},
	}
}

func newUnlockCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <identifier>",
		Short: "Clear failed login attempts, e.g. email:jane@example.com or ip:10.0.0.7",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			policy := config.RateLimitConfig{}
			if a.cfg != nil {
				policy = a.cfg.RateLimit
			}

			if err := services.NewRateLimiter(a.db, policy).ClearAttempts(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s unlocked\n", args[0])
			return nil
		},
	}
}
