package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType tags a ledger entry
type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "DEPOSIT"
	TransactionTypeWithdrawal TransactionType = "WITHDRAWAL"
	TransactionTypeTransfer   TransactionType = "TRANSFER"
	TransactionTypeInterest   TransactionType = "INTEREST"

	// Legacy tags found in older data files
	TransactionTypeCredit TransactionType = "CREDIT"
	TransactionTypeDebit  TransactionType = "DEBIT"
)

// DateLayout is the calendar-day format of a transaction date
const DateLayout = "2006-01-02"

// ParseTransactionType normalises a stored type tag. Unknown tags are kept verbatim so that
// their records still load.
func ParseTransactionType(s string) TransactionType {
	return TransactionType(strings.ToUpper(strings.TrimSpace(s)))
}

// IsDebit reports whether the tag always denotes money leaving the account
func (t TransactionType) IsDebit() bool {
	return t == TransactionTypeWithdrawal || t == TransactionTypeDebit
}

// Transaction is an immutable entry in an account's log
type Transaction struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal // signed: positive credit, negative debit
	Type        TransactionType
	Balance     decimal.Decimal // account balance after this entry
}

// Delta returns the signed effect of the entry on the balance.
// Older files stored debits as positive amounts; their direction comes from the tag.
func (t Transaction) Delta() decimal.Decimal {
	if t.Type.IsDebit() && t.Amount.IsPositive() {
		return t.Amount.Neg()
	}
	return t.Amount
}

// IsCredit reports whether the entry added money
func (t Transaction) IsCredit() bool {
	return t.Delta().IsPositive()
}

// Fold sums the deltas of a log
func Fold(log []Transaction) decimal.Decimal {
	sum := decimal.Zero
	for _, tx := range log {
		sum = sum.Add(tx.Delta())
	}
	return sum
}

// Day truncates a timestamp to its calendar day in its own location
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
