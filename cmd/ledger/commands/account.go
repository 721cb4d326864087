package commands

import (
	"context"
	"strings"

	"github.com/simaogato/ledger-backend/cmd/ledger/output"
	"github.com/simaogato/ledger-backend/internal/app"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/banking"
	"github.com/simaogato/ledger-backend/internal/usecase/interest"
	"github.com/simaogato/ledger-backend/internal/usecase/transfer"
	"github.com/spf13/cobra"
)

func newOpenAccountCmd(opts *globalOptions) *cobra.Command {
	var user, kind, deposit string
	var input banking.OpenAccountInput

	cmd := &cobra.Command{
		Use:   "open-account",
		Short: "Open a savings, cheque or investment account",
		Long: `Open an account for a customer. A customer holds at most one account of each kind.
Cheque accounts need the employer's name and address; investment accounts need an
initial deposit of at least the configured minimum.

Examples:
  ledger open-account --customer C1 --kind savings --deposit 100
  ledger open-account --customer C1 --kind cheque --employer-name Acme --employer-address "4 Elm St"
  ledger open-account --customer C1 --kind investment --number INV-1 --deposit 1000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, _, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				if deposit != "" {
					if input.InitialDeposit, err = parseAmount(deposit); err != nil {
						return err
					}
				}
				input.CustomerID = c.ID
				input.Kind = domain.AccountKind(kind)

				account, err := a.Banking.OpenAccount(ctx, input)
				if err != nil {
					return err
				}
				output.Success("Opened %s account %s at %s", strings.ToLower(string(account.Kind())), account.Number, account.Branch)
				output.Muted("balance %s", account.Balance.StringFixed(2))
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	f := cmd.Flags()
	f.StringVar(&kind, "kind", "", "Account kind: savings, cheque or investment")
	f.StringVar(&input.Number, "number", "", "Account number (generated when omitted)")
	f.StringVar(&input.Branch, "branch", "", "Branch (defaults to the configured branch)")
	f.StringVar(&input.EmployerName, "employer-name", "", "Employer name (cheque accounts)")
	f.StringVar(&input.EmployerAddress, "employer-address", "", "Employer address (cheque accounts)")
	f.StringVar(&deposit, "deposit", "", "Initial deposit")
	return cmd
}

func newCloseAccountCmd(opts *globalOptions) *cobra.Command {
	var user, number string

	cmd := &cobra.Command{
		Use:   "close-account",
		Short: "Close an empty account",
		Long: `Close one of the customer's accounts. The balance must be exactly zero and the
customer must keep at least one other account.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, password, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				if err := a.Customers.CloseAccount(ctx, c.ID, password, number); err != nil {
					return err
				}
				output.Success("Account %s closed", number)
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	cmd.Flags().StringVar(&number, "account", "", "Account number")
	return cmd
}

type movement func(ctx context.Context, a *app.App, input banking.MovementInput) (domain.Transaction, error)

func newMovementCmd(opts *globalOptions, use, short, verb string, move movement) *cobra.Command {
	var user, amount string
	var input banking.MovementInput

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, _, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				if input.Amount, err = parseAmount(amount); err != nil {
					return err
				}
				input.CustomerID = c.ID

				tx, err := move(ctx, a, input)
				if err != nil {
					return err
				}
				output.Success("%s %s on %s", verb, tx.Delta().Abs().StringFixed(2), input.AccountNumber)
				output.Muted("balance %s", tx.Balance.StringFixed(2))
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	f := cmd.Flags()
	f.StringVar(&input.AccountNumber, "account", "", "Account number")
	f.StringVar(&amount, "amount", "", "Amount, at most two decimal places")
	f.StringVar(&input.Description, "description", "", "Description recorded on the transaction")
	return cmd
}

func newDepositCmd(opts *globalOptions) *cobra.Command {
	return newMovementCmd(opts, "deposit", "Deposit money into an account", "Deposited",
		func(ctx context.Context, a *app.App, input banking.MovementInput) (domain.Transaction, error) {
			return a.Banking.Deposit(ctx, input)
		})
}

func newWithdrawCmd(opts *globalOptions) *cobra.Command {
	return newMovementCmd(opts, "withdraw", "Withdraw money from an account", "Withdrew",
		func(ctx context.Context, a *app.App, input banking.MovementInput) (domain.Transaction, error) {
			return a.Banking.Withdraw(ctx, input)
		})
}

func newTransferCmd(opts *globalOptions) *cobra.Command {
	var user, amount string
	var input transfer.TransferInput

	cmd := &cobra.Command{
		Use:   "transfer",
		Short: "Move money from one of the customer's accounts to any account",
		Long: `Move money from one of the customer's accounts to any account in the bank.
Savings accounts cannot be the source of a transfer.

Examples:
  ledger transfer --customer C1 --from CHQ-1 --to INV-1 --amount 250 --description Rent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				c, _, err := authenticate(ctx, cmd, a, user)
				if err != nil {
					return err
				}
				if input.Amount, err = parseAmount(amount); err != nil {
					return err
				}
				input.CustomerID = c.ID

				result, err := a.Transfers.Transfer(ctx, input)
				if err != nil {
					return err
				}
				output.Success("Transferred %s from %s to %s", input.Amount.StringFixed(2), input.FromAccount, input.ToAccount)
				output.Muted("reference %s, balance of %s is %s", result.ID, input.FromAccount, result.Debit.Balance.StringFixed(2))
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	f := cmd.Flags()
	f.StringVar(&input.FromAccount, "from", "", "Source account number")
	f.StringVar(&input.ToAccount, "to", "", "Destination account number")
	f.StringVar(&amount, "amount", "", "Amount, at most two decimal places")
	f.StringVar(&input.Description, "description", "", "Description recorded on both entries")
	return cmd
}

func newInterestCmd(opts *globalOptions) *cobra.Command {
	var user string
	var all bool

	cmd := &cobra.Command{
		Use:   "interest",
		Short: "Pay interest on interest-bearing accounts",
		Long: `Credit one period of interest on savings and investment accounts.

Examples:
  ledger interest --customer C1     # one customer's accounts
  ledger interest --all             # every customer (batch run)`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd, func(ctx context.Context, a *app.App) error {
				var report *interest.Report
				var err error
				if all {
					report, err = a.Interest.PayAllInterest(ctx)
				} else {
					var c *domain.Customer
					if c, _, err = authenticate(ctx, cmd, a, user); err != nil {
						return err
					}
					report, err = a.Interest.PayInterest(ctx, c.ID)
				}
				if report != nil && len(report.Credits) > 0 {
					rows := make([][]string, 0, len(report.Credits))
					for _, credit := range report.Credits {
						rows = append(rows, []string{credit.AccountNumber, credit.Amount.StringFixed(2), credit.Balance.StringFixed(2)})
					}
					output.Table([]string{"ACCOUNT", "INTEREST", "BALANCE"}, rows)
				}
				if err != nil {
					return err
				}
				if len(report.Credits) == 0 {
					output.Info("No interest due")
					return nil
				}
				output.Success("Paid %s interest on %d account(s)", report.Total.StringFixed(2), len(report.Credits))
				return nil
			})
		},
	}
	addAuthFlags(cmd, &user)
	cmd.Flags().BoolVar(&all, "all", false, "Pay interest for every customer")
	cmd.MarkFlagsMutuallyExclusive("all", "customer")
	return cmd
}
