package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/cmd/ledger/output"
	"github.com/simaogato/ledger-backend/internal/app"
	"github.com/simaogato/ledger-backend/internal/config"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/logging"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// PasswordEnv is read when --password is not given
const PasswordEnv = "LEDGER_PASSWORD"

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	envFile     string
	dataDir     string
	backend     string
	databaseURL string
	logLevel    string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Ledger - retail banking core",
		Long: `Ledger keeps customers, their savings, cheque and investment accounts and every
transaction on those accounts.

Records live in four pipe-delimited files under the data directory, or in PostgreSQL
when LEDGER_BACKEND=postgres. Self-service commands ask for the customer's password.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "Path to a .env file (default ./.env)")
	rootCmd.PersistentFlags().StringVar(&opts.dataDir, "data-dir", "", "Directory holding the ledger files (overrides LEDGER_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&opts.backend, "backend", "", "Storage backend: file or postgres (overrides LEDGER_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&opts.databaseURL, "db", "", "PostgreSQL connection URL (overrides LEDGER_DATABASE_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (overrides LEDGER_LOG_LEVEL)")

	rootCmd.AddCommand(
		newInitCmd(opts),
		newRegisterCmd(opts),
		newLoginCmd(opts),
		newUpdateProfileCmd(opts),
		newChangePasswordCmd(opts),
		newDeleteCustomerCmd(opts),
		newOpenAccountCmd(opts),
		newCloseAccountCmd(opts),
		newDepositCmd(opts),
		newWithdrawCmd(opts),
		newTransferCmd(opts),
		newInterestCmd(opts),
		newSummaryCmd(opts),
		newHistoryCmd(opts),
		newTotalsCmd(opts),
	)
	return rootCmd
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		output.Error("%s", describeError(err))
		stop()
		os.Exit(exitCode(err))
	}
}

// loadConfig reads the environment and applies flag overrides
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(logging.Discard(), o.envFile)
	if err != nil {
		return nil, err
	}
	if o.dataDir != "" {
		cfg.DataDir = o.dataDir
	}
	if o.backend != "" {
		cfg.Backend = strings.ToLower(o.backend)
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if o.logLevel != "" {
		cfg.Log.Level = strings.ToLower(o.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// withApp loads the ledger, runs fn and closes the backend
func (o *globalOptions) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	logger := logging.New(cfg.Log, cmd.ErrOrStderr())

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Report.Skipped > 0 {
		output.Warning("%d orphaned or duplicate record(s) were skipped while loading", a.Report.Skipped)
	}
	return fn(ctx, a)
}

// readPassword takes the password from the flag, then PasswordEnv, then a terminal prompt
func readPassword(cmd *cobra.Command, flag, prompt string) (string, error) {
	if cmd.Flags().Changed(flag) {
		return cmd.Flags().GetString(flag)
	}
	if flag == "password" {
		if pw, ok := os.LookupEnv(PasswordEnv); ok {
			return pw, nil
		}
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: --%s is required when not running in a terminal", domain.ErrValidation, flag)
	}
	fmt.Fprint(cmd.ErrOrStderr(), prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

// authenticate logs the customer in for a self-service command
func authenticate(ctx context.Context, cmd *cobra.Command, a *app.App, user string) (*domain.Customer, string, error) {
	if user == "" {
		return nil, "", fmt.Errorf("%w: --customer is required", domain.ErrValidation)
	}
	password, err := readPassword(cmd, "password", "Password: ")
	if err != nil {
		return nil, "", err
	}
	customer, err := a.Customers.Login(ctx, user, password)
	if err != nil {
		return nil, "", err
	}
	return customer, password, nil
}

func addAuthFlags(cmd *cobra.Command, customer *string) {
	cmd.Flags().StringVar(customer, "customer", "", "Customer ID or email")
	cmd.Flags().String("password", "", "Customer password (or set "+PasswordEnv+"; prompted when omitted)")
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: --amount is required", domain.ErrValidation)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", domain.ErrInvalidAmount, s)
	}
	return amount, nil
}

var errAborted = errors.New("aborted")
