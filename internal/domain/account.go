package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind represents the kind of account a customer holds
type AccountKind string

const (
	AccountKindSavings    AccountKind = "SAVINGS"
	AccountKindCheque     AccountKind = "CHEQUE"
	AccountKindInvestment AccountKind = "INVESTMENT"
)

// AccountKinds lists every kind in display order
var AccountKinds = []AccountKind{AccountKindSavings, AccountKindCheque, AccountKindInvestment}

// ParseAccountKind converts a stored or user-supplied tag into an AccountKind
func ParseAccountKind(s string) (AccountKind, error) {
	kind := AccountKind(strings.ToUpper(strings.TrimSpace(s)))
	switch kind {
	case AccountKindSavings, AccountKindCheque, AccountKindInvestment:
		return kind, nil
	}
	return "", fmt.Errorf("%w: account kind %q", ErrUnknownKind, s)
}

// AccountTerms holds the kind-specific parameters of an account.
// The set of implementations is closed: SavingsTerms, ChequeTerms and InvestmentTerms.
type AccountTerms interface {
	Kind() AccountKind
	accountTerms()
}

// SavingsTerms: no withdrawals, interest at InterestRate
type SavingsTerms struct {
	InterestRate decimal.Decimal
}

// ChequeTerms: withdrawals may overdraw down to -OverdraftLimit, no interest
type ChequeTerms struct {
	OverdraftLimit  decimal.Decimal
	EmployerName    string
	EmployerAddress string
}

// InvestmentTerms: withdrawals must leave at least MinimumBalance, interest at InterestRate
type InvestmentTerms struct {
	InterestRate   decimal.Decimal
	MinimumBalance decimal.Decimal
}

func (SavingsTerms) Kind() AccountKind    { return AccountKindSavings }
func (ChequeTerms) Kind() AccountKind     { return AccountKindCheque }
func (InvestmentTerms) Kind() AccountKind { return AccountKindInvestment }

func (SavingsTerms) accountTerms()    {}
func (ChequeTerms) accountTerms()     {}
func (InvestmentTerms) accountTerms() {}

// Account represents an account entity in the domain layer.
// Balance always equals the sum of the deltas in Transactions for accounts opened by this
// system; Apply is the only mutator that keeps the two in step.
type Account struct {
	Number       string
	CustomerID   string
	Branch       string
	Balance      decimal.Decimal
	Terms        AccountTerms
	Transactions []Transaction
}

// NewAccount creates an empty account
func NewAccount(number, customerID, branch string, terms AccountTerms) *Account {
	return &Account{
		Number:     number,
		CustomerID: customerID,
		Branch:     branch,
		Balance:    decimal.Zero,
		Terms:      terms,
	}
}

// Kind returns the account kind derived from its terms
func (a *Account) Kind() AccountKind {
	if a.Terms == nil {
		return ""
	}
	return a.Terms.Kind()
}

// Validate ensures the account adheres to domain rules
func (a *Account) Validate() error {
	if strings.TrimSpace(a.Number) == "" {
		return fmt.Errorf("%w: account number cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(a.CustomerID) == "" {
		return fmt.Errorf("%w: account must belong to a customer", ErrValidation)
	}
	if a.Terms == nil {
		return fmt.Errorf("%w: account kind is required", ErrValidation)
	}
	if t, ok := a.Terms.(ChequeTerms); ok && t.OverdraftLimit.IsNegative() {
		return fmt.Errorf("%w: overdraft limit cannot be negative", ErrValidation)
	}
	return nil
}

// ValidateAmount rejects non-positive amounts and amounts finer than a cent
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || !amount.Equal(amount.Round(2)) {
		return ErrInvalidAmount
	}
	return nil
}

// InterestRate returns the account's rate and whether the kind earns interest
func (a *Account) InterestRate() (decimal.Decimal, bool) {
	switch t := a.Terms.(type) {
	case SavingsTerms:
		return t.InterestRate, true
	case InvestmentTerms:
		return t.InterestRate, true
	default:
		return decimal.Zero, false
	}
}

// CanWithdraw applies the kind's withdrawal eligibility rule
func (a *Account) CanWithdraw(amount decimal.Decimal) error {
	if err := ValidateAmount(amount); err != nil {
		return err
	}

	switch t := a.Terms.(type) {
	case SavingsTerms:
		return ErrWithdrawalNotAllowed
	case ChequeTerms:
		if amount.GreaterThan(a.Balance.Add(t.OverdraftLimit)) {
			return fmt.Errorf("%w: overdraft limit of %s exceeded", ErrInsufficientFunds, t.OverdraftLimit.StringFixed(2))
		}
		return nil
	case InvestmentTerms:
		if amount.GreaterThan(a.Balance) {
			return ErrInsufficientFunds
		}
		if a.Balance.Sub(amount).LessThan(t.MinimumBalance) {
			return fmt.Errorf("%w of %s", ErrMinimumBalance, t.MinimumBalance.StringFixed(2))
		}
		return nil
	default:
		return fmt.Errorf("%w: account %s has no kind", ErrUnknownKind, a.Number)
	}
}

// Available returns how much could be withdrawn right now
func (a *Account) Available() decimal.Decimal {
	var available decimal.Decimal
	switch t := a.Terms.(type) {
	case ChequeTerms:
		available = a.Balance.Add(t.OverdraftLimit)
	case InvestmentTerms:
		available = a.Balance.Sub(t.MinimumBalance)
	}
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// Interest returns the interest currently due, rounded to cents.
// Kinds without a rate and non-positive balances earn nothing.
func (a *Account) Interest() decimal.Decimal {
	rate, ok := a.InterestRate()
	if !ok {
		return decimal.Zero
	}
	interest := a.Balance.Mul(rate).Round(2)
	if !interest.IsPositive() {
		return decimal.Zero
	}
	return interest
}

// PrepareCredit builds the entry for a credit without applying it
func (a *Account) PrepareCredit(typ TransactionType, amount decimal.Decimal, description string, on time.Time) (Transaction, error) {
	if err := ValidateAmount(amount); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Date:        Day(on),
		Description: description,
		Amount:      amount,
		Type:        typ,
		Balance:     a.Balance.Add(amount),
	}, nil
}

// PrepareDebit checks eligibility and builds the entry for a debit without applying it
func (a *Account) PrepareDebit(typ TransactionType, amount decimal.Decimal, description string, on time.Time) (Transaction, error) {
	if err := a.CanWithdraw(amount); err != nil {
		return Transaction{}, err
	}
	return Transaction{
		Date:        Day(on),
		Description: description,
		Amount:      amount.Neg(),
		Type:        typ,
		Balance:     a.Balance.Sub(amount),
	}, nil
}

// PrepareInterest builds the interest credit, if any is due
func (a *Account) PrepareInterest(on time.Time) (Transaction, bool) {
	interest := a.Interest()
	if interest.IsZero() {
		return Transaction{}, false
	}
	tx, err := a.PrepareCredit(TransactionTypeInterest, interest, "Interest", on)
	return tx, err == nil
}

// Apply appends a prepared entry and moves the balance by its delta
func (a *Account) Apply(tx Transaction) {
	a.Balance = a.Balance.Add(tx.Delta())
	tx.Balance = a.Balance
	a.Transactions = append(a.Transactions, tx)
}

// Deposit credits the account in memory
func (a *Account) Deposit(amount decimal.Decimal, description string, on time.Time) (Transaction, error) {
	tx, err := a.PrepareCredit(TransactionTypeDeposit, amount, description, on)
	if err != nil {
		return Transaction{}, err
	}
	a.Apply(tx)
	return tx, nil
}

// Withdraw debits the account in memory
func (a *Account) Withdraw(amount decimal.Decimal, description string, on time.Time) (Transaction, error) {
	tx, err := a.PrepareDebit(TransactionTypeWithdrawal, amount, description, on)
	if err != nil {
		return Transaction{}, err
	}
	a.Apply(tx)
	return tx, nil
}

// CheckConsistency compares the stored balance with the fold of the log
func (a *Account) CheckConsistency() error {
	if sum := Fold(a.Transactions); !sum.Equal(a.Balance) {
		return fmt.Errorf("account %s: balance %s does not match log total %s",
			a.Number, a.Balance.StringFixed(2), sum.StringFixed(2))
	}
	return nil
}

// IsPolicyError reports whether err is a withdrawal or transfer rule rejection
func IsPolicyError(err error) bool {
	return errors.Is(err, ErrWithdrawalNotAllowed) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrMinimumBalance) ||
		errors.Is(err, ErrTransferFromSavings) ||
		errors.Is(err, ErrSameAccount)
}
