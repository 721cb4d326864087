package transfer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/adapter/validation"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/registry"
)

// RollbackDescription labels the compensating credit of a failed transfer
const RollbackDescription = "Transfer rollback"

// Poster records a prepared entry on an account whose lock the caller holds
type Poster interface {
	Post(ctx context.Context, account *domain.Account, tx domain.Transaction) error
}

// TransferInput represents the input for moving money between two accounts
type TransferInput struct {
	CustomerID  string `validate:"required"`
	FromAccount string `validate:"required"`
	ToAccount   string `validate:"required"`
	Amount      decimal.Decimal
	Description string `validate:"max=128,ledgertext"`
}

// TransferResult holds both legs of a completed transfer
type TransferResult struct {
	ID     uuid.UUID
	Debit  domain.Transaction
	Credit domain.Transaction
}

// TransferService moves money between accounts as a two-step saga
type TransferService struct {
	Registry *registry.Registry
	Poster   Poster
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewTransferService creates a new TransferService instance
func NewTransferService(reg *registry.Registry, poster Poster, logger *slog.Logger) *TransferService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TransferService{
		Registry: reg,
		Poster:   poster,
		Logger:   logger.With("component", "transfer"),
		Now:      time.Now,
	}
}

// Transfer withdraws from one of the customer's accounts and deposits into any account
// Logic:
//  1. Resolve the source among the customer's accounts
//  2. Preconditions, in order: destination exists, source differs from destination,
//     source is not savings, amount is valid and within the source's withdrawal rule
//  3. Lock both accounts
//  4. Post the debit on the source
//  5. Post the credit on the destination
//  6. If 5 fails, credit the source back with RollbackDescription and report the failure;
//     if that also fails, report ErrLedgerInconsistent
func (s *TransferService) Transfer(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	// 1. Source
	customer, err := s.Registry.Customer(input.CustomerID)
	if err != nil {
		return nil, err
	}
	source, ok := customer.Account(input.FromAccount)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, input.FromAccount)
	}

	// 2. Preconditions
	destination, err := s.Registry.Account(input.ToAccount)
	if err != nil {
		return nil, err
	}
	if source.Number == destination.Number {
		return nil, domain.ErrSameAccount
	}
	if source.Kind() == domain.AccountKindSavings {
		return nil, domain.ErrTransferFromSavings
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}

	// 3. Lock both accounts
	unlock := s.Registry.Lock(registry.AccountKey(source.Number), registry.AccountKey(destination.Number))
	defer unlock()
	for _, a := range []*domain.Account{source, destination} {
		if !s.Registry.Holds(a) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, a.Number)
		}
	}

	id := uuid.New()
	logger := s.Logger.With(
		"transfer_id", id,
		"from", source.Number,
		"to", destination.Number,
		"amount", input.Amount.StringFixed(2),
	)

	debitDesc, creditDesc := descriptions(input.Description, source.Number, destination.Number)
	now := s.Now()

	// 4. Debit
	debit, err := source.PrepareDebit(domain.TransactionTypeTransfer, input.Amount, debitDesc, now)
	if err != nil {
		return nil, err
	}
	if err := s.Poster.Post(ctx, source, debit); err != nil {
		return nil, err
	}

	// 5. Credit
	credit, err := destination.PrepareCredit(domain.TransactionTypeTransfer, input.Amount, creditDesc, now)
	if err == nil {
		err = s.Poster.Post(ctx, destination, credit)
	}
	if err != nil {
		// 6. Compensate
		logger.Warn("destination credit failed, rolling back", "error", err)
		if rbErr := s.rollback(ctx, source, input.Amount, now); rbErr != nil {
			logger.Error("transfer rollback failed; source account is short by the transfer amount",
				"error", err, "rollback_error", rbErr)
			return nil, fmt.Errorf("%w: transfer %s: %w", domain.ErrLedgerInconsistent, id, errors.Join(err, rbErr))
		}
		return nil, fmt.Errorf("transfer failed and was rolled back: %w", err)
	}

	logger.Info("transfer completed")
	return &TransferResult{ID: id, Debit: debit, Credit: credit}, nil
}

func (s *TransferService) rollback(ctx context.Context, source *domain.Account, amount decimal.Decimal, now time.Time) error {
	refund, err := source.PrepareCredit(domain.TransactionTypeTransfer, amount, RollbackDescription, now)
	if err != nil {
		return err
	}
	return s.Poster.Post(ctx, source, refund)
}

func descriptions(description, from, to string) (debit, credit string) {
	if d := strings.TrimSpace(description); d != "" {
		return d, d
	}
	return "Transfer to " + to, "Transfer from " + from
}
