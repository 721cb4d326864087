package flatfile

import (
	"context"
	"fmt"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// customerRepository implements domain.CustomerRepository
type customerRepository struct {
	store *Store
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{store: store}
}

// Save appends a customer record
func (r *customerRepository) Save(ctx context.Context, customer *domain.Customer) error {
	line, err := r.store.codec.encodeCustomer(customer)
	if err != nil {
		return err
	}
	if err := r.store.appendLine(ctx, r.store.customers, line); err != nil {
		return fmt.Errorf("failed to save customer %s: %w", customer.ID, err)
	}
	r.store.logger.Debug("customer saved", "customer_id", customer.ID)
	return nil
}

// Update rewrites the customer file substituting the record with the same ID
func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	line, err := r.store.codec.encodeCustomer(customer)
	if err != nil {
		return err
	}
	n, err := r.store.rewrite(ctx, r.store.customers, func(old string) (string, bool, bool) {
		if key(old, 0) == customer.ID {
			return line, true, true
		}
		return old, true, false
	})
	if err != nil {
		return fmt.Errorf("failed to update customer %s: %w", customer.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("customer %s: %w", customer.ID, domain.ErrNotFound)
	}
	return nil
}

// Delete removes the customer record, then cascades one file at a time to the customer's
// accounts, their transactions and the credential
func (r *customerRepository) Delete(ctx context.Context, customerID string) error {
	n, err := r.store.rewrite(ctx, r.store.customers, func(old string) (string, bool, bool) {
		hit := key(old, 0) == customerID
		return old, !hit, hit
	})
	if err != nil {
		return fmt.Errorf("failed to delete customer %s: %w", customerID, err)
	}
	if n == 0 {
		return fmt.Errorf("customer %s: %w", customerID, domain.ErrNotFound)
	}

	numbers := make(map[string]struct{})
	_, err = r.store.rewrite(ctx, r.store.accounts, func(old string) (string, bool, bool) {
		if key(old, 1) == customerID {
			numbers[key(old, 0)] = struct{}{}
			return old, false, true
		}
		return old, true, false
	})
	if err != nil {
		return fmt.Errorf("failed to delete accounts of customer %s: %w", customerID, err)
	}

	if len(numbers) > 0 {
		_, err = r.store.rewrite(ctx, r.store.transactions, func(old string) (string, bool, bool) {
			_, hit := numbers[key(old, 0)]
			return old, !hit, hit
		})
		if err != nil {
			return fmt.Errorf("failed to delete transactions of customer %s: %w", customerID, err)
		}
	}

	_, err = r.store.rewrite(ctx, r.store.passwords, func(old string) (string, bool, bool) {
		hit := key(old, 0) == customerID
		return old, !hit, hit
	})
	if err != nil {
		return fmt.Errorf("failed to delete credential of customer %s: %w", customerID, err)
	}

	r.store.logger.Info("customer deleted", "customer_id", customerID, "accounts", len(numbers))
	return nil
}

// LoadAll reads every well-formed customer record
func (r *customerRepository) LoadAll(ctx context.Context) ([]*domain.Customer, error) {
	lines, err := r.store.readAll(ctx, r.store.customers)
	if err != nil {
		return nil, fmt.Errorf("failed to load customers: %w", err)
	}

	customers := make([]*domain.Customer, 0, len(lines))
	for i, line := range lines {
		customer, err := r.store.codec.decodeCustomer(line)
		if err != nil {
			r.store.skipMalformed(r.store.customers, i+1, err)
			continue
		}
		customers = append(customers, customer)
	}
	return customers, nil
}
