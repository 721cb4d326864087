package commands

import (
	"context"
	"sort"
	"strings"

	"github.com/simaogato/ledger-backend/cmd/ledger/output"
	"github.com/simaogato/ledger-backend/internal/app"
	"github.com/simaogato/ledger-backend/internal/config"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/spf13/cobra"
)

func newInitCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the ledger storage and check that it loads",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				where := a.Config.DataDir
				if a.Config.Backend == config.BackendPostgres {
					where = "PostgreSQL"
				}
				output.Success("Ledger ready (%s)", where)
				output.Muted("%d customer(s), %d account(s), %d transaction(s)",
					a.Report.Customers, a.Report.Accounts, a.Report.Transactions)
				if a.Report.Healed > 0 {
					output.Warning("%d account balance(s) were corrected from their transaction logs", a.Report.Healed)
				}
				return nil
			})
		},
	}
}

func newSummaryCmd(opts *globalOptions) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show a customer's accounts and balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, _, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				summary, err := a.Dashboard.GetAccountsSummary(ctx, c.ID)
				if err != nil {
					return err
				}

				output.Section(summary.DisplayName)
				rows := make([][]string, 0, len(summary.Accounts))
				for _, acc := range summary.Accounts {
					terms := "-"
					switch {
					case acc.OverdraftLimit != nil:
						terms = "overdraft " + acc.OverdraftLimit.StringFixed(2)
					case acc.MinimumBalance != nil && acc.InterestRate != nil:
						terms = "rate " + acc.InterestRate.String() + ", minimum " + acc.MinimumBalance.StringFixed(2)
					case acc.InterestRate != nil:
						terms = "rate " + acc.InterestRate.String()
					}
					rows = append(rows, []string{
						acc.Number, strings.ToLower(string(acc.Kind)), acc.Branch,
						output.Money(acc.Balance), acc.Available.StringFixed(2), terms,
					})
				}
				output.Table([]string{"ACCOUNT", "KIND", "BRANCH", "BALANCE", "AVAILABLE", "TERMS"}, rows)
				output.Info("Total balance %s", output.Money(summary.TotalBalance))
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	return cmd
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var user, number string
	var limit int
	var transfersOnly bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show an account's transactions, newest first",
		Long: `Show an account's transactions, newest first.

Examples:
  ledger history --customer C1 --account CHQ-1 --limit 10
  ledger history --customer C1 --account CHQ-1 --transfers`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, _, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}

				var log []domain.Transaction
				if transfersOnly {
					log, err = a.Dashboard.RecentTransfers(ctx, c.ID, number, limit)
				} else {
					log, err = a.Dashboard.History(ctx, c.ID, number, limit)
				}
				if err != nil {
					return err
				}
				if len(log) == 0 {
					output.Info("No transactions on %s", number)
					return nil
				}

				rows := make([][]string, 0, len(log))
				for _, tx := range log {
					rows = append(rows, []string{
						tx.Date.Format(domain.DateLayout), string(tx.Type), tx.Description,
						output.Money(tx.Delta()), tx.Balance.StringFixed(2),
					})
				}
				output.Table([]string{"DATE", "TYPE", "DESCRIPTION", "AMOUNT", "BALANCE"}, rows)
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	cmd.Flags().StringVar(&number, "account", "", "Account number")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of entries (0 for all)")
	cmd.Flags().BoolVar(&transfersOnly, "transfers", false, "Only show outgoing transfers")
	return cmd
}

func newTotalsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "totals",
		Short: "Show bank-wide totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				totals, err := a.Dashboard.GetLedgerTotals(ctx)
				if err != nil {
					return err
				}

				output.Section("Ledger totals")
				kinds := make([]string, 0, len(totals.ByKind))
				for kind := range totals.ByKind {
					kinds = append(kinds, string(kind))
				}
				sort.Strings(kinds)
				rows := make([][]string, 0, len(kinds))
				for _, kind := range kinds {
					rows = append(rows, []string{strings.ToLower(kind), output.Money(totals.ByKind[domain.AccountKind(kind)])})
				}
				output.Table([]string{"KIND", "BALANCE"}, rows)
				output.Info("%d customer(s), %d account(s), total %s",
					totals.Customers, totals.Accounts, output.Money(totals.TotalBalance))
				return nil
			})
		},
	}
}
