package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

// Append inserts one log entry; the serial id keeps append order
func (r *transactionRepository) Append(ctx context.Context, accountNumber string, tx domain.Transaction) error {
	query := `
		INSERT INTO transactions (account_number, date, description, amount, type, balance)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		accountNumber,
		tx.Date.Format(domain.DateLayout),
		tx.Description,
		tx.Amount.StringFixed(2),
		string(tx.Type),
		tx.Balance.StringFixed(2),
	)
	if err != nil {
		return r.db.fail("append transaction to account "+accountNumber, err)
	}
	return nil
}

// ListByAccount returns one account's log in append order
func (r *transactionRepository) ListByAccount(ctx context.Context, accountNumber string) ([]domain.Transaction, error) {
	query := `
		SELECT account_number, date, description, amount, type, balance
		FROM transactions
		WHERE account_number = $1
		ORDER BY id
	`
	logs, err := r.query(ctx, query, accountNumber)
	if err != nil {
		return nil, err
	}
	return logs[accountNumber], nil
}

// LoadAll returns every log keyed by account number
func (r *transactionRepository) LoadAll(ctx context.Context) (map[string][]domain.Transaction, error) {
	query := `
		SELECT account_number, date, description, amount, type, balance
		FROM transactions
		ORDER BY id
	`
	return r.query(ctx, query)
}

func (r *transactionRepository) query(ctx context.Context, query string, args ...any) (map[string][]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.db.fail("load transactions", err)
	}
	defer rows.Close()

	logs := make(map[string][]domain.Transaction)
	for rows.Next() {
		var (
			accountNumber, description, typ string
			amountStr, balanceStr           string
			date                            time.Time
		)
		if err := rows.Scan(&accountNumber, &date, &description, &amountStr, &typ, &balanceStr); err != nil {
			return nil, r.db.fail("scan transaction", err)
		}

		tx, err := decodeTransaction(date, description, amountStr, typ, balanceStr)
		if err != nil {
			r.db.logger.Warn("skipping malformed transaction", "account", accountNumber, "error", err)
			continue
		}
		logs[accountNumber] = append(logs[accountNumber], tx)
	}
	if err := rows.Err(); err != nil {
		return nil, r.db.fail("iterate transactions", err)
	}
	return logs, nil
}

func decodeTransaction(date time.Time, description, amountStr, typ, balanceStr string) (domain.Transaction, error) {
	amount, err := decimal.NewFromString(amountStr)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: amount %q", domain.ErrMalformedRecord, amountStr)
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("%w: balance %q", domain.ErrMalformedRecord, balanceStr)
	}
	return domain.Transaction{
		Date:        domain.Day(date),
		Description: description,
		Amount:      amount,
		Type:        domain.ParseTransactionType(typ),
		Balance:     balance,
	}, nil
}
