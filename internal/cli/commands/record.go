package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"shareledger/internal/core"
)

type expenseFlags struct {
	date     string
	category string
	paidBy   string
	amount   string
	notes    string
}

func (cli *CLI) newAddExpenseCmd() *cobra.Command {
	f := &expenseFlags{}
	cmd := &cobra.Command{
		Use:   "add-expense",
		Short: "Add a shared expense to its month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := core.ParseAmount(f.amount)
			if err != nil {
				return err
			}
			env, err := cli.environment(cmd.Context())
			if err != nil {
				return err
			}
			receipt, err := env.Recorder.AddExpense(cmd.Context(), core.ExpenseRecord{
				Date:     f.date,
				Category: f.category,
				PaidBy:   core.Payer(f.paidBy),
				Amount:   amount,
				Notes:    f.notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Expense added to %s (%s)\n", receipt.Ref, receipt.Period)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.date, "date", "", "Date of the expense (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&f.category, "category", "", "Expense category (e.g. Rent, Groceries)")
	cmd.Flags().StringVar(&f.paidBy, "paid-by", "", fmt.Sprintf("Who paid: a participant or %q", core.PaidByBoth))
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount of the expense")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Notes")

	_ = cmd.MarkFlagRequired("paid-by")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

type contributionFlags struct {
	date    string
	name    string
	amount  string
	virtual bool
	notes   string
}

func (cli *CLI) newAddContributionCmd() *cobra.Command {
	f := &contributionFlags{}
	cmd := &cobra.Command{
		Use:   "add-contribution",
		Short: "Add a real or virtual contribution to its month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			amount, err := core.ParseAmount(f.amount)
			if err != nil {
				return err
			}
			env, err := cli.environment(cmd.Context())
			if err != nil {
				return err
			}
			receipt, err := env.Recorder.AddContribution(cmd.Context(), core.ContributionRecord{
				Date:    f.date,
				Name:    f.name,
				Amount:  amount,
				Virtual: f.virtual,
				Notes:   f.notes,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✅ Contribution added to %s (%s)\n", receipt.Ref, receipt.Period)
			return nil
		},
	}

	cmd.Flags().StringVar(&f.date, "date", "", "Date of the contribution (YYYY-MM-DD), defaults to today")
	cmd.Flags().StringVar(&f.name, "name", "", "Contributor's name")
	cmd.Flags().StringVar(&f.amount, "amount", "", "Amount contributed")
	cmd.Flags().BoolVar(&f.virtual, "virtual", false, "Record a virtual contribution")
	cmd.Flags().StringVar(&f.notes, "notes", "", "Optional notes")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}
