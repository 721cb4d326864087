package flatfile

import (
	"context"
	"fmt"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	store *Store
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(store *Store) domain.TransactionRepository {
	return &transactionRepository{store: store}
}

// Append adds one record to the end of the transaction file
func (r *transactionRepository) Append(ctx context.Context, accountNumber string, tx domain.Transaction) error {
	line := r.store.codec.encodeTransaction(accountNumber, tx)
	if err := r.store.appendLine(ctx, r.store.transactions, line); err != nil {
		return fmt.Errorf("failed to append transaction to account %s: %w", accountNumber, err)
	}
	return nil
}

// ListByAccount returns the log of one account in file order
func (r *transactionRepository) ListByAccount(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	logs, err := r.load(ctx, func(number string) bool { return number == accountNumber })
	if err != nil {
		return nil, err
	}
	return logs[accountNumber], nil
}

// LoadAll returns every log keyed by account number
func (r *transactionRepository) LoadAll(ctx context.Context) (map[string][]domain.Transaction, error) {
	return r.load(ctx, func(string) bool { return true })
}

func (r *transactionRepository) load(ctx context.Context, want func(string) bool) (map[string][]domain.Transaction, error) {
	lines, err := r.store.readAll(ctx, r.store.transactions)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	logs := make(map[string][]domain.Transaction)
	for i, line := range lines {
		if !want(key(line, 0)) {
			continue
		}
		number, tx, err := r.store.codec.decodeTransaction(line)
		if err != nil {
			r.store.skipMalformed(r.store.transactions, i+1, err)
			continue
		}
		logs[number] = append(logs[number], tx)
	}
	return logs, nil
}
