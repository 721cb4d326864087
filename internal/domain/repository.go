package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// CustomerRepository defines the interface for customer persistence operations
type CustomerRepository interface {
	// Save appends a new customer record
	Save(ctx context.Context, customer *Customer) error

	// Update replaces the stored record with the same ID
	// Returns ErrNotFound if no record matches
	Update(ctx context.Context, customer *Customer) error

	// Delete removes the customer and cascades to its accounts, their transactions
	// and its credential
	Delete(ctx context.Context, customerID string) error

	// LoadAll returns every well-formed customer record in storage order
	// Accounts are not attached
	LoadAll(ctx context.Context) ([]*Customer, error)
}

// AccountRepository defines the interface for account persistence operations
type AccountRepository interface {
	// Save appends a new account record
	Save(ctx context.Context, account *Account) error

	// Update replaces the stored record with the same number
	Update(ctx context.Context, account *Account) error

	// UpdateBalance patches only the balance of the stored record
	UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error

	// Delete removes the account and cascades to its transactions
	Delete(ctx context.Context, number string) error

	// LoadAll returns every well-formed account record in storage order
	// Transactions are not attached
	LoadAll(ctx context.Context) ([]*Account, error)
}

// TransactionRepository defines the interface for transaction log persistence operations
type TransactionRepository interface {
	// Append adds one entry to the end of an account's log
	Append(ctx context.Context, accountNumber string, tx Transaction) error

	// ListByAccount returns an account's log in append order
	ListByAccount(ctx context.Context, accountNumber string) ([]Transaction, error)

	// LoadAll returns every log keyed by account number, each in append order
	LoadAll(ctx context.Context) (map[string][]Transaction, error)
}

// CredentialRepository defines the interface for password hash persistence operations
type CredentialRepository interface {
	// Save stores the hash for a new customer
	Save(ctx context.Context, customerID, passwordHash string) error

	// Update replaces the stored hash
	Update(ctx context.Context, customerID, passwordHash string) error

	// Delete removes the stored hash
	Delete(ctx context.Context, customerID string) error

	// LoadAll returns every hash keyed by customer ID
	LoadAll(ctx context.Context) (map[string]string, error)
}

// PasswordHasher hashes and verifies customer passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
	// NeedsRehash reports whether a verified hash should be replaced by a fresh Hash
	NeedsRehash(hash string) bool
}
