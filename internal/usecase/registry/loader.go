package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// LoadReport summarises a registry rebuild
type LoadReport struct {
	Customers    int
	Accounts     int
	Transactions int
	Skipped      int
	Healed       int
}

// Loader rebuilds a Registry from the ledger store
type Loader struct {
	CustomerRepo    domain.CustomerRepository
	AccountRepo     domain.AccountRepository
	TransactionRepo domain.TransactionRepository
	CredentialRepo  domain.CredentialRepository
	Logger          *slog.Logger
}

// NewLoader creates a new Loader instance
func NewLoader(
	customerRepo domain.CustomerRepository,
	accountRepo domain.AccountRepository,
	transactionRepo domain.TransactionRepository,
	credentialRepo domain.CredentialRepository,
	logger *slog.Logger,
) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		CustomerRepo:    customerRepo,
		AccountRepo:     accountRepo,
		TransactionRepo: transactionRepo,
		CredentialRepo:  credentialRepo,
		Logger:          logger.With("component", "registry"),
	}
}

// Load reads every record and builds a fresh registry
// Logic:
//  1. Index customers; duplicate IDs or emails are skipped
//  2. Attach credentials of known customers
//  3. Attach accounts to their owners; orphans and duplicate numbers are skipped
//  4. Attach each account's log in append order
//  5. Where a non-empty log disagrees with the stored balance, the log wins and the
//     balance record is rewritten
func (l *Loader) Load(ctx context.Context) (*Registry, LoadReport, error) {
	var report LoadReport
	reg := New()

	// 1. Customers
	customers, err := l.CustomerRepo.LoadAll(ctx)
	if err != nil {
		return nil, report, fmt.Errorf("failed to load customers: %w", err)
	}
	for _, c := range customers {
		if err := reg.AddCustomer(c); err != nil {
			l.Logger.Warn("skipping customer", "customer_id", c.ID, "error", err)
			report.Skipped++
			continue
		}
		report.Customers++
	}

	// 2. Credentials
	hashes, err := l.CredentialRepo.LoadAll(ctx)
	if err != nil {
		return nil, report, fmt.Errorf("failed to load credentials: %w", err)
	}
	for id, hash := range hashes {
		if _, err := reg.Customer(id); err != nil {
			l.Logger.Warn("skipping credential of unknown customer", "customer_id", id)
			report.Skipped++
			continue
		}
		reg.SetCredential(id, hash)
	}

	// 3. Accounts
	accounts, err := l.AccountRepo.LoadAll(ctx)
	if err != nil {
		return nil, report, fmt.Errorf("failed to load accounts: %w", err)
	}
	for _, a := range accounts {
		if err := reg.AttachAccount(a); err != nil {
			l.Logger.Warn("skipping account", "account", a.Number, "customer_id", a.CustomerID, "error", err)
			report.Skipped++
			continue
		}
		report.Accounts++
	}

	// 4. Transactions
	logs, err := l.TransactionRepo.LoadAll(ctx)
	if err != nil {
		return nil, report, fmt.Errorf("failed to load transactions: %w", err)
	}
	for number, log := range logs {
		a, err := reg.Account(number)
		if errors.Is(err, domain.ErrAccountNotFound) {
			l.Logger.Warn("skipping transactions of unknown account", "account", number, "count", len(log))
			report.Skipped += len(log)
			continue
		}
		a.Transactions = log
		report.Transactions += len(log)

		// 5. Heal balance drift
		if sum := domain.Fold(log); len(log) > 0 && !sum.Equal(a.Balance) {
			l.Logger.Warn("balance does not match transaction log; using log total",
				"account", number, "stored", a.Balance.StringFixed(2), "log_total", sum.StringFixed(2))
			a.Balance = sum
			report.Healed++
			if err := l.AccountRepo.UpdateBalance(ctx, number, sum); err != nil {
				l.Logger.Warn("failed to persist healed balance", "account", number, "error", err)
			}
		}
	}

	l.Logger.Info("registry loaded",
		"customers", report.Customers,
		"accounts", report.Accounts,
		"transactions", report.Transactions,
		"skipped", report.Skipped,
		"healed", report.Healed,
	)
	return reg, report, nil
}
