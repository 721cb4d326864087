package flatfile

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// balanceField is the index of the balance column in an account record
const balanceField = 3

// accountRepository implements domain.AccountRepository
type accountRepository struct {
	store *Store
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(store *Store) domain.AccountRepository {
	return &accountRepository{store: store}
}

// Save appends an account record
func (r *accountRepository) Save(ctx context.Context, account *domain.Account) error {
	line, err := r.store.codec.encodeAccount(account)
	if err != nil {
		return err
	}
	if err := r.store.appendLine(ctx, r.store.accounts, line); err != nil {
		return fmt.Errorf("failed to save account %s: %w", account.Number, err)
	}
	r.store.logger.Debug("account saved", "account", account.Number, "kind", account.Kind())
	return nil
}

// Update rewrites the account file substituting the record with the same number
func (r *accountRepository) Update(ctx context.Context, account *domain.Account) error {
	line, err := r.store.codec.encodeAccount(account)
	if err != nil {
		return err
	}
	n, err := r.store.rewrite(ctx, r.store.accounts, func(old string) (string, bool, bool) {
		if key(old, 0) == account.Number {
			return line, true, true
		}
		return old, true, false
	})
	if err != nil {
		return fmt.Errorf("failed to update account %s: %w", account.Number, err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", account.Number, domain.ErrNotFound)
	}
	return nil
}

// UpdateBalance patches only the balance column of the matching record
func (r *accountRepository) UpdateBalance(ctx context.Context, number string, balance decimal.Decimal) error {
	n, err := r.store.rewrite(ctx, r.store.accounts, func(old string) (string, bool, bool) {
		if key(old, 0) != number {
			return old, true, false
		}
		fields := strings.Split(old, separator)
		if len(fields) <= balanceField {
			return old, true, false
		}
		fields[balanceField] = balance.StringFixed(2)
		return strings.Join(fields, separator), true, true
	})
	if err != nil {
		return fmt.Errorf("failed to update balance of account %s: %w", number, err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", number, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the account record and its transactions
func (r *accountRepository) Delete(ctx context.Context, number string) error {
	n, err := r.store.rewrite(ctx, r.store.accounts, func(old string) (string, bool, bool) {
		hit := key(old, 0) == number
		return old, !hit, hit
	})
	if err != nil {
		return fmt.Errorf("failed to delete account %s: %w", number, err)
	}
	if n == 0 {
		return fmt.Errorf("account %s: %w", number, domain.ErrNotFound)
	}

	_, err = r.store.rewrite(ctx, r.store.transactions, func(old string) (string, bool, bool) {
		hit := key(old, 0) == number
		return old, !hit, hit
	})
	if err != nil {
		return fmt.Errorf("failed to delete transactions of account %s: %w", number, err)
	}

	r.store.logger.Info("account deleted", "account", number)
	return nil
}

// LoadAll reads every well-formed account record
func (r *accountRepository) LoadAll(ctx context.Context) ([]*domain.Account, error) {
	owners, err := r.ownerKinds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	lines, err := r.store.readAll(ctx, r.store.accounts)
	if err != nil {
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}

	accounts := make([]*domain.Account, 0, len(lines))
	for i, line := range lines {
		owner := owners[key(line, 1)]
		account, err := r.store.codec.decodeAccount(line, owner)
		if err != nil {
			r.store.skipMalformed(r.store.accounts, i+1, err)
			continue
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// ownerKinds maps customer IDs to their kind. Malformed customer lines are left to the
// customer repository to report.
func (r *accountRepository) ownerKinds(ctx context.Context) (map[string]domain.CustomerKind, error) {
	lines, err := r.store.readAll(ctx, r.store.customers)
	if err != nil {
		return nil, err
	}
	kinds := make(map[string]domain.CustomerKind, len(lines))
	for _, line := range lines {
		if customer, err := r.store.codec.decodeCustomer(line); err == nil {
			kinds[customer.ID] = customer.Kind()
		}
	}
	return kinds, nil
}
