package interest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/registry"
)

// Poster records a prepared entry on an account whose lock the caller holds
type Poster interface {
	Post(ctx context.Context, account *domain.Account, tx domain.Transaction) error
}

// Credit is one interest payment
type Credit struct {
	AccountNumber string
	Amount        decimal.Decimal
	Balance       decimal.Decimal
}

// Report summarises an interest run
type Report struct {
	Credits []Credit
	Total   decimal.Decimal
}

// InterestService pays interest on interest-bearing accounts
type InterestService struct {
	Registry *registry.Registry
	Poster   Poster
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewInterestService creates a new InterestService instance
func NewInterestService(reg *registry.Registry, poster Poster, logger *slog.Logger) *InterestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InterestService{
		Registry: reg,
		Poster:   poster,
		Logger:   logger.With("component", "interest"),
		Now:      time.Now,
	}
}

// PayInterest credits interest on every account of one customer.
// Accounts without a rate or with nothing due are skipped.
func (s *InterestService) PayInterest(ctx context.Context, customerID string) (*Report, error) {
	customer, err := s.Registry.Customer(customerID)
	if err != nil {
		return nil, err
	}

	report := &Report{Total: decimal.Zero}
	if err := s.payCustomer(ctx, customer, report); err != nil {
		return report, err
	}
	return report, nil
}

// PayAllInterest runs PayInterest for every customer, stopping at the first failure
func (s *InterestService) PayAllInterest(ctx context.Context) (*Report, error) {
	report := &Report{Total: decimal.Zero}
	for _, customer := range s.Registry.Customers() {
		if err := s.payCustomer(ctx, customer, report); err != nil {
			return report, err
		}
	}
	s.Logger.Info("interest run completed", "accounts_credited", len(report.Credits), "total", report.Total.StringFixed(2))
	return report, nil
}

func (s *InterestService) payCustomer(ctx context.Context, customer *domain.Customer, report *Report) error {
	unlockCustomer := s.Registry.Lock(registry.CustomerKey(customer.ID))
	accounts := append([]*domain.Account(nil), customer.Accounts...)
	unlockCustomer()

	now := s.Now()
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return err
		}
		credit, ok, err := s.payAccount(ctx, account, now)
		if err != nil {
			return fmt.Errorf("failed to pay interest on account %s: %w", account.Number, err)
		}
		if !ok {
			continue
		}
		report.Credits = append(report.Credits, credit)
		report.Total = report.Total.Add(credit.Amount)
	}
	return nil
}

func (s *InterestService) payAccount(ctx context.Context, account *domain.Account, now time.Time) (Credit, bool, error) {
	unlock := s.Registry.Lock(registry.AccountKey(account.Number))
	defer unlock()
	// closed since the snapshot
	if !s.Registry.Holds(account) {
		return Credit{}, false, nil
	}

	tx, due := account.PrepareInterest(now)
	if !due {
		return Credit{}, false, nil
	}
	if err := s.Poster.Post(ctx, account, tx); err != nil {
		return Credit{}, false, err
	}

	s.Logger.Debug("interest credited", "account", account.Number, "amount", tx.Amount.StringFixed(2))
	return Credit{AccountNumber: account.Number, Amount: tx.Amount, Balance: account.Balance}, true, nil
}
