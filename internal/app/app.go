package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sasha-s/go-deadlock"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/flatfile"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/ledger-backend/internal/adapter/security"
	"github.com/simaogato/ledger-backend/internal/config"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/banking"
	"github.com/simaogato/ledger-backend/internal/usecase/customer"
	"github.com/simaogato/ledger-backend/internal/usecase/dashboard"
	"github.com/simaogato/ledger-backend/internal/usecase/interest"
	"github.com/simaogato/ledger-backend/internal/usecase/registry"
	"github.com/simaogato/ledger-backend/internal/usecase/transfer"
)

// Repositories groups the four ledger stores of one backend
type Repositories struct {
	Customers    domain.CustomerRepository
	Accounts     domain.AccountRepository
	Transactions domain.TransactionRepository
	Credentials  domain.CredentialRepository
}

// App holds the loaded registry and every service built on it
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Repos    Repositories
	Registry *registry.Registry
	Report   registry.LoadReport

	Customers *customer.CustomerService
	Banking   *banking.BankingService
	Transfers *transfer.TransferService
	Interest  *interest.InterestService
	Dashboard *dashboard.DashboardService

	close func() error
}

// New opens the configured backend, creates any missing storage and loads the registry
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	deadlock.Opts.Disable = !cfg.DetectDeadlocks

	policy := cfg.Policy()
	repos, closeFn, err := Open(ctx, cfg, policy, logger)
	if err != nil {
		return nil, err
	}

	reg, report, err := registry.NewLoader(repos.Customers, repos.Accounts, repos.Transactions, repos.Credentials, logger).Load(ctx)
	if err != nil {
		closeFn()
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	logger.Debug("ledger loaded",
		"customers", report.Customers,
		"accounts", report.Accounts,
		"transactions", report.Transactions,
		"skipped", report.Skipped,
		"healed", report.Healed,
	)

	bank := banking.NewBankingService(reg, repos.Accounts, repos.Transactions, policy, logger)
	return &App{
		Config:    cfg,
		Logger:    logger,
		Repos:     repos,
		Registry:  reg,
		Report:    report,
		Customers: customer.NewCustomerService(reg, repos.Customers, repos.Accounts, repos.Credentials, security.NewBcryptHasher(cfg.BcryptCost), logger),
		Banking:   bank,
		Transfers: transfer.NewTransferService(reg, bank, logger),
		Interest:  interest.NewInterestService(reg, bank, logger),
		Dashboard: dashboard.NewDashboardService(reg, repos.Transactions),
		close:     closeFn,
	}, nil
}

// Open connects to the configured backend and makes sure its storage exists
func Open(ctx context.Context, cfg *config.Config, policy domain.Policy, logger *slog.Logger) (Repositories, func() error, error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		db, err := postgres.NewDB(ctx, cfg.DatabaseURL, policy, logger)
		if err != nil {
			return Repositories{}, nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return Repositories{}, nil, err
		}
		return Repositories{
			Customers:    postgres.NewCustomerRepository(db),
			Accounts:     postgres.NewAccountRepository(db),
			Transactions: postgres.NewTransactionRepository(db),
			Credentials:  postgres.NewCredentialRepository(db),
		}, db.Close, nil

	default:
		store := flatfile.NewStore(cfg.DataDir, policy, logger)
		if err := store.Init(ctx); err != nil {
			return Repositories{}, nil, err
		}
		return Repositories{
			Customers:    flatfile.NewCustomerRepository(store),
			Accounts:     flatfile.NewAccountRepository(store),
			Transactions: flatfile.NewTransactionRepository(store),
			Credentials:  flatfile.NewCredentialRepository(store),
		}, func() error { return nil }, nil
	}
}

// Close releases the backend connection
func (a *App) Close() error {
	if a.close == nil {
		return nil
	}
	return a.close()
}
