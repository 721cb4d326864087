package dashboard

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/registry"
)

// AccountSummary represents one line of a customer's account overview
type AccountSummary struct {
	Number           string
	Kind             domain.AccountKind
	Branch           string
	Balance          decimal.Decimal
	Available        decimal.Decimal
	InterestRate     *decimal.Decimal
	OverdraftLimit   *decimal.Decimal
	MinimumBalance   *decimal.Decimal
	TransactionCount int
}

// AccountsSummary represents a customer's accounts and their total
type AccountsSummary struct {
	CustomerID   string
	DisplayName  string
	Kind         domain.CustomerKind
	Accounts     []AccountSummary
	TotalBalance decimal.Decimal
}

// LedgerTotals represents bank-wide figures
type LedgerTotals struct {
	Customers    int
	Accounts     int
	TotalBalance decimal.Decimal
	ByKind       map[domain.AccountKind]decimal.Decimal
}

// DashboardService handles read-only views of the ledger
type DashboardService struct {
	Registry        *registry.Registry
	TransactionRepo domain.TransactionRepository
}

// NewDashboardService creates a new DashboardService instance
func NewDashboardService(reg *registry.Registry, transactionRepo domain.TransactionRepository) *DashboardService {
	return &DashboardService{
		Registry:        reg,
		TransactionRepo: transactionRepo,
	}
}

// GetAccountsSummary lists a customer's accounts with their balances
// Logic:
//  1. Resolve the customer and lock its account set
//  2. Lock every account while copying its figures
//  3. Total = sum of balances
func (s *DashboardService) GetAccountsSummary(ctx context.Context, customerID string) (*AccountsSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 1. Customer
	customer, err := s.Registry.Customer(customerID)
	if err != nil {
		return nil, err
	}
	accounts, unlock := s.Registry.LockCustomer(customer)
	defer unlock()

	// 2. Accounts
	summary := &AccountsSummary{
		CustomerID:   customer.ID,
		DisplayName:  customer.DisplayName(),
		Kind:         customer.Kind(),
		Accounts:     make([]AccountSummary, 0, len(accounts)),
		TotalBalance: decimal.Zero,
	}
	for _, a := range accounts {
		line := AccountSummary{
			Number:           a.Number,
			Kind:             a.Kind(),
			Branch:           a.Branch,
			Balance:          a.Balance,
			Available:        a.Available(),
			TransactionCount: len(a.Transactions),
		}
		switch t := a.Terms.(type) {
		case domain.SavingsTerms:
			line.InterestRate = &t.InterestRate
		case domain.ChequeTerms:
			line.OverdraftLimit = &t.OverdraftLimit
		case domain.InvestmentTerms:
			line.InterestRate = &t.InterestRate
			line.MinimumBalance = &t.MinimumBalance
		}
		summary.Accounts = append(summary.Accounts, line)

		// 3. Total
		summary.TotalBalance = summary.TotalBalance.Add(a.Balance)
	}

	return summary, nil
}

// History returns the stored log of one of the customer's accounts, newest first.
// limit <= 0 returns the whole log.
func (s *DashboardService) History(ctx context.Context, customerID, number string, limit int) ([]domain.Transaction, error) {
	customer, err := s.Registry.Customer(customerID)
	if err != nil {
		return nil, err
	}
	if _, ok := customer.Account(number); !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, number)
	}

	log, err := s.TransactionRepo.ListByAccount(ctx, number)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return newestFirst(log, limit), nil
}

// RecentTransfers returns the outgoing transfers of one of the customer's accounts, newest first
func (s *DashboardService) RecentTransfers(ctx context.Context, customerID, number string, limit int) ([]domain.Transaction, error) {
	log, err := s.History(ctx, customerID, number, 0)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Transaction, 0)
	for _, tx := range log {
		if tx.Type == domain.TransactionTypeTransfer && tx.Delta().IsNegative() {
			out = append(out, tx)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// GetLedgerTotals sums balances across every customer
func (s *DashboardService) GetLedgerTotals(ctx context.Context) (*LedgerTotals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	totals := &LedgerTotals{
		TotalBalance: decimal.Zero,
		ByKind:       make(map[domain.AccountKind]decimal.Decimal),
	}
	for _, customer := range s.Registry.Customers() {
		summary, err := s.GetAccountsSummary(ctx, customer.ID)
		if errors.Is(err, domain.ErrCustomerNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		totals.Customers++
		for _, a := range summary.Accounts {
			totals.Accounts++
			totals.ByKind[a.Kind] = totals.ByKind[a.Kind].Add(a.Balance)
		}
		totals.TotalBalance = totals.TotalBalance.Add(summary.TotalBalance)
	}
	return totals, nil
}

func newestFirst(log []domain.Transaction, limit int) []domain.Transaction {
	out := make([]domain.Transaction, 0, len(log))
	for i := len(log) - 1; i >= 0; i-- {
		out = append(out, log[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
