package banking

import (
	"context"
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

// Default descriptions of ledger entries
const (
	DepositDescription        = "Deposit"
	WithdrawalDescription     = "Withdrawal"
	InitialDepositDescription = "Initial deposit"
)

// OpenAccountInput represents the input for opening an account
type OpenAccountInput struct {
	CustomerID      string             `validate:"required"`
	Kind            domain.AccountKind `validate:"required,oneof=SAVINGS CHEQUE INVESTMENT"`
	Number          string             `validate:"omitempty,max=32,ledgertext"`
	Branch          string             `validate:"max=64,ledgertext"`
	EmployerName    string             `validate:"required_if=Kind CHEQUE,max=128,ledgertext"`
	EmployerAddress string             `validate:"required_if=Kind CHEQUE,max=256,ledgertext"`
	InitialDeposit  decimal.Decimal
}

// MovementInput represents the input for a deposit or a withdrawal
type MovementInput struct {
	CustomerID    string `validate:"required"`
	AccountNumber string `validate:"required"`
	Amount        decimal.Decimal
	Description   string `validate:"max=128,ledgertext"`
}

// BankingService handles account opening and single-account movements
type BankingService struct {
	Registry        *registry.Registry
	AccountRepo     domain.AccountRepository
	TransactionRepo domain.TransactionRepository
	Policy          domain.Policy
	Logger          *slog.Logger
	Now             func() time.Time
}

// NewBankingService creates a new BankingService instance
func NewBankingService(
	reg *registry.Registry,
	accountRepo domain.AccountRepository,
	transactionRepo domain.TransactionRepository,
	policy domain.Policy,
	logger *slog.Logger,
) *BankingService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BankingService{
		Registry:        reg,
		AccountRepo:     accountRepo,
		TransactionRepo: transactionRepo,
		Policy:          policy,
		Logger:          logger.With("component", "banking"),
		Now:             time.Now,
	}
}

// OpenAccount creates an account for a customer
// Logic:
//  1. Validate input and resolve the customer
//  2. Lock the customer and the account number
//  3. Reject a second account of the same kind or a number already in use
//  4. Build the kind's terms from the policy for the customer's tier
//  5. Enforce the investment minimum initial deposit
//  6. Save the account with a zero balance, then post the initial deposit
//     (the account record is removed again if the deposit cannot be recorded)
//  7. Index the account in the registry
func (s *BankingService) OpenAccount(ctx context.Context, input OpenAccountInput) (*domain.Account, error) {
	input.Kind = domain.AccountKind(strings.ToUpper(string(input.Kind)))
	input.Number = strings.TrimSpace(input.Number)

	// 1. Validate input and resolve the customer
	if err := validation.Struct(input); err != nil {
		return nil, err
	}
	if input.InitialDeposit.IsNegative() || !input.InitialDeposit.Equal(input.InitialDeposit.Round(2)) {
		return nil, domain.ErrInvalidAmount
	}
	customer, err := s.Registry.Customer(input.CustomerID)
	if err != nil {
		return nil, err
	}
	if input.Number == "" {
		input.Number = GenerateAccountNumber(input.Kind)
	}

	// 2. Lock the customer and the account number
	unlock := s.Registry.Lock(registry.CustomerKey(customer.ID), registry.AccountKey(input.Number))
	defer unlock()

	// 3. One account per kind, unique numbers
	if _, exists := customer.AccountOfKind(input.Kind); exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateAccountKind, input.Kind)
	}
	if s.Registry.AccountNumberTaken(input.Number) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateAccountNumber, input.Number)
	}

	// 4. Terms for the customer's tier
	terms, err := s.Policy.NewTerms(input.Kind, customer.Kind(), input.EmployerName, input.EmployerAddress)
	if err != nil {
		return nil, err
	}

	// 5. Investment minimum initial deposit
	if input.Kind == domain.AccountKindInvestment && input.InitialDeposit.LessThan(s.Policy.InvestmentMinimumDeposit) {
		return nil, fmt.Errorf("%w: investment accounts require at least %s",
			domain.ErrMinimumDeposit, s.Policy.InvestmentMinimumDeposit.StringFixed(2))
	}

	branch := input.Branch
	if branch == "" {
		branch = s.Policy.Branch
	}
	account := domain.NewAccount(input.Number, customer.ID, branch, terms)
	if err := account.Validate(); err != nil {
		return nil, err
	}

	// 6. Persist
	if err := s.AccountRepo.Save(ctx, account); err != nil {
		return nil, err
	}
	if input.InitialDeposit.IsPositive() {
		tx, err := account.PrepareCredit(domain.TransactionTypeDeposit, input.InitialDeposit, InitialDepositDescription, s.Now())
		if err == nil {
			err = s.Post(ctx, account, tx)
		}
		if err != nil {
			if delErr := s.AccountRepo.Delete(ctx, account.Number); delErr != nil {
				s.Logger.Error("failed to remove account after initial deposit failure",
					"account", account.Number, "error", delErr)
			}
			return nil, err
		}
	}

	// 7. Index
	if err := s.Registry.AddAccount(account); err != nil {
		return nil, err
	}

	s.Logger.Info("account opened",
		"account", account.Number,
		"kind", account.Kind(),
		"customer_id", customer.ID,
		"initial_deposit", input.InitialDeposit.StringFixed(2),
	)
	return account, nil
}

// Deposit credits one of the customer's accounts
func (s *BankingService) Deposit(ctx context.Context, input MovementInput) (domain.Transaction, error) {
	return s.move(ctx, input, func(a *domain.Account, desc string) (domain.Transaction, error) {
		if desc == "" {
			desc = DepositDescription
		}
		return a.PrepareCredit(domain.TransactionTypeDeposit, input.Amount, desc, s.Now())
	})
}

// Withdraw debits one of the customer's accounts subject to the kind's eligibility rule
func (s *BankingService) Withdraw(ctx context.Context, input MovementInput) (domain.Transaction, error) {
	return s.move(ctx, input, func(a *domain.Account, desc string) (domain.Transaction, error) {
		if desc == "" {
			desc = WithdrawalDescription
		}
		return a.PrepareDebit(domain.TransactionTypeWithdrawal, input.Amount, desc, s.Now())
	})
}

func (s *BankingService) move(
	ctx context.Context,
	input MovementInput,
	prepare func(a *domain.Account, description string) (domain.Transaction, error),
) (domain.Transaction, error) {
	if err := validation.Struct(input); err != nil {
		return domain.Transaction{}, err
	}
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return domain.Transaction{}, err
	}

	account, err := s.OwnedAccount(input.CustomerID, input.AccountNumber)
	if err != nil {
		return domain.Transaction{}, err
	}

	unlock := s.Registry.Lock(registry.AccountKey(account.Number))
	defer unlock()
	if !s.Registry.Holds(account) {
		return domain.Transaction{}, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, account.Number)
	}

	tx, err := prepare(account, strings.TrimSpace(input.Description))
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := s.Post(ctx, account, tx); err != nil {
		return domain.Transaction{}, err
	}

	s.Logger.Info("transaction posted",
		"account", account.Number,
		"type", tx.Type,
		"amount", tx.Amount.StringFixed(2),
		"balance", account.Balance.StringFixed(2),
	)
	return tx, nil
}

// OwnedAccount returns the account if it belongs to the customer
func (s *BankingService) OwnedAccount(customerID, number string) (*domain.Account, error) {
	customer, err := s.Registry.Customer(customerID)
	if err != nil {
		return nil, err
	}
	account, ok := customer.Account(number)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, number)
	}
	return account, nil
}

// Post records a prepared entry and applies it. The caller holds the account's lock.
// Logic:
//  1. Append the entry to the transaction log; on failure nothing changes
//  2. Apply the entry in memory
//  3. Patch the stored balance; a failure here is only logged, the next load
//     rebuilds the balance from the log
func (s *BankingService) Post(ctx context.Context, account *domain.Account, tx domain.Transaction) error {
	// 1. Append
	if err := s.TransactionRepo.Append(ctx, account.Number, tx); err != nil {
		return fmt.Errorf("failed to record transaction on account %s: %w", account.Number, err)
	}

	// 2. Apply
	account.Apply(tx)

	// 3. Patch balance
	if err := s.AccountRepo.UpdateBalance(ctx, account.Number, account.Balance); err != nil {
		s.Logger.Warn("stored balance is stale until the next load",
			"account", account.Number, "balance", account.Balance.StringFixed(2), "error", err)
	}
	return nil
}

// GenerateAccountNumber returns a new number prefixed by the kind
func GenerateAccountNumber(kind domain.AccountKind) string {
	prefix := map[domain.AccountKind]string{
		domain.AccountKindSavings:    "SAV",
		domain.AccountKindCheque:     "CHQ",
		domain.AccountKindInvestment: "INV",
	}[kind]
	if prefix == "" {
		prefix = "ACC"
	}
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return prefix + "-" + id[:8]
}
