package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) domain.AccountRepository {
	return &accountRepository{db: db}
}

func accountColumns(a *domain.Account) []any {
	var rate any
	var employerName, employerAddress string
	if r, ok := a.InterestRate(); ok {
		rate = r.String()
	}
	if t, ok := a.Terms.(domain.ChequeTerms); ok {
		employerName, employerAddress = t.EmployerName, t.EmployerAddress
	}
	return []any{
		a.Number, a.CustomerID, string(a.Kind()), a.Balance.StringFixed(2), a.Branch,
		rate, employerName, employerAddress,
	}
}

// Save inserts an account row
func (r *accountRepository) Save(ctx context.Context, account *domain.Account) error {
	query := `
		INSERT INTO accounts (number, customer_id, kind, balance, branch,
			interest_rate, employer_name, employer_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	if _, err := r.db.ExecContext(ctx, query, accountColumns(account)...); err != nil {
		return r.db.fail("save account "+account.Number, err)
	}
	r.db.logger.Debug("account saved", "account", account.Number, "kind", account.Kind())
	return nil
}

// Update replaces every column of the account row
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	query := `
		UPDATE accounts
		SET customer_id = $2, kind = $3, balance = $4, branch = $5,
			interest_rate = $6, employer_name = $7, employer_address = $8, saved_at = now()
		WHERE number = $1
	`
	res, err := r.db.ExecContext(ctx, query, accountColumns(account)...)
	if err != nil {
		return r.db.fail("update account "+account.Number, err)
	}
	return affected(res, "account "+account.Number)
}

// UpdateBalance patches only the balance column
func (r *accountRepository) UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET balance = $2, saved_at = now() WHERE number = $1`,
		number, balance.StringFixed(2))
	if err != nil {
		return r.db.fail("update balance of account "+number, err)
	}
	return affected(res, "account "+number)
}

// Delete removes the account row and its transactions in one database transaction
func (r *accountRepository) Delete(ctx context.Context, number string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.db.fail("begin transaction", err)
	}
	defer dbTx.Rollback()

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM transactions WHERE account_number = $1`, number); err != nil {
		return r.db.fail("delete transactions of account "+number, err)
	}
	res, err := dbTx.ExecContext(ctx, `DELETE FROM accounts WHERE number = $1`, number)
	if err != nil {
		return r.db.fail("delete account "+number, err)
	}
	if err := affected(res, "account "+number); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return r.db.fail("commit transaction", err)
	}
	r.db.logger.Info("account deleted", "account", number)
	return nil
}

// LoadAll returns every account in insertion order. Overdraft and minimum balance come
// from the policy; a missing rate falls back to the policy rate of the customer tier.
func (r *accountRepository) LoadAll(ctx context.Context) ([]*domain.Account, error) {
	query := `
		SELECT a.number, a.customer_id, a.kind, a.balance, a.branch,
			a.interest_rate, a.employer_name, a.employer_address, COALESCE(c.kind, '')
		FROM accounts a
		LEFT JOIN customers c ON c.id = a.customer_id
		ORDER BY a.seq
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, r.db.fail("load accounts", err)
	}
	defer rows.Close()

	var accounts []*domain.Account
	for rows.Next() {
		var (
			number, customerID, kind, balanceStr, branch string
			rateStr                                      sql.NullString
			employerName, employerAddress, customerKind  string
		)
		if err := rows.Scan(&number, &customerID, &kind, &balanceStr, &branch,
			&rateStr, &employerName, &employerAddress, &customerKind); err != nil {
			return nil, r.db.fail("scan account", err)
		}

		account, err := r.decode(number, customerID, kind, balanceStr, branch, rateStr,
			employerName, employerAddress, domain.CustomerKind(customerKind))
		if err != nil {
			r.db.logger.Warn("skipping malformed account", "account", number, "error", err)
			continue
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, r.db.fail("iterate accounts", err)
	}
	return accounts, nil
}

func (r *accountRepository) decode(number, customerID, kind, balanceStr, branch string,
	rateStr sql.NullString, employerName, employerAddress string, customerKind domain.CustomerKind,
) (*domain.Account, error) {
	accountKind, err := domain.ParseAccountKind(kind)
	if err != nil {
		return nil, err
	}
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("%w: balance %q", domain.ErrMalformedRecord, balanceStr)
	}

	terms, err := r.db.policy.NewTerms(accountKind, customerKind, employerName, employerAddress)
	if err != nil {
		return nil, err
	}
	if rateStr.Valid {
		rate, err := decimal.NewFromString(rateStr.String)
		if err != nil {
			return nil, fmt.Errorf("%w: interest rate %q", domain.ErrMalformedRecord, rateStr.String)
		}
		switch t := terms.(type) {
		case domain.SavingsTerms:
			t.InterestRate = rate
			terms = t
		case domain.InvestmentTerms:
			t.InterestRate = rate
			terms = t
		}
	}

	account := domain.NewAccount(number, customerID, branch, terms)
	account.Balance = balance
	return account, nil
}
