package postgres

import (
	"context"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// customerRepository implements domain.CustomerRepository
type customerRepository struct {
	db *DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *DB) domain.CustomerRepository {
	return &customerRepository{db: db}
}

// customerColumns flattens the profile; columns of the other kind stay empty
func customerColumns(c *domain.Customer) []any {
	var dob, idNumber, businessName, regNumber, businessAddress string
	switch p := c.Profile.(type) {
	case domain.IndividualProfile:
		dob, idNumber = p.DateOfBirth, p.IDNumber
	case domain.BusinessProfile:
		businessName, regNumber, businessAddress = p.BusinessName, p.RegistrationNumber, p.BusinessAddress
	}
	return []any{
		c.ID, string(c.Kind()), c.FirstName, c.LastName, c.Address, c.Email,
		dob, idNumber, businessName, regNumber, businessAddress,
	}
}

// Save inserts a customer row
func (r *customerRepository) Save(ctx context.Context, customer *domain.Customer) error {
	query := `
		INSERT INTO customers (id, kind, first_name, last_name, address, email,
			date_of_birth, id_number, business_name, registration_number, business_address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	if _, err := r.db.ExecContext(ctx, query, customerColumns(customer)...); err != nil {
		return r.db.fail("save customer "+customer.ID, err)
	}
	return nil
}

// Update replaces every column of the customer row
func (r *customerRepository) Update(ctx context.Context, customer *domain.Customer) error {
	query := `
		UPDATE customers
		SET kind = $2, first_name = $3, last_name = $4, address = $5, email = $6,
			date_of_birth = $7, id_number = $8, business_name = $9,
			registration_number = $10, business_address = $11, saved_at = now()
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, customerColumns(customer)...)
	if err != nil {
		return r.db.fail("update customer "+customer.ID, err)
	}
	return affected(res, "customer "+customer.ID)
}

// Delete removes the customer with its accounts, their transactions and its credential in
// one database transaction
func (r *customerRepository) Delete(ctx context.Context, customerID string) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return r.db.fail("begin transaction", err)
	}
	defer dbTx.Rollback()

	cascade := []string{
		`DELETE FROM transactions WHERE account_number IN (SELECT number FROM accounts WHERE customer_id = $1)`,
		`DELETE FROM accounts WHERE customer_id = $1`,
		`DELETE FROM credentials WHERE customer_id = $1`,
	}
	for _, stmt := range cascade {
		if _, err := dbTx.ExecContext(ctx, stmt, customerID); err != nil {
			return r.db.fail("delete customer "+customerID, err)
		}
	}

	res, err := dbTx.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, customerID)
	if err != nil {
		return r.db.fail("delete customer "+customerID, err)
	}
	if err := affected(res, "customer "+customerID); err != nil {
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return r.db.fail("commit transaction", err)
	}
	r.db.logger.Info("customer deleted", "customer_id", customerID)
	return nil
}

// LoadAll returns every customer in insertion order
func (r *customerRepository) LoadAll(ctx context.Context) ([]*domain.Customer, error) {
	query := `
		SELECT id, kind, first_name, last_name, address, email,
			date_of_birth, id_number, business_name, registration_number, business_address
		FROM customers
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, r.db.fail("load customers", err)
	}
	defer rows.Close()

	var customers []*domain.Customer
	for rows.Next() {
		var (
			c                                        domain.Customer
			kind, dob, idNumber                      string
			businessName, regNumber, businessAddress string
		)
		if err := rows.Scan(&c.ID, &kind, &c.FirstName, &c.LastName, &c.Address, &c.Email,
			&dob, &idNumber, &businessName, &regNumber, &businessAddress); err != nil {
			return nil, r.db.fail("scan customer", err)
		}

		customerKind, err := domain.ParseCustomerKind(kind)
		if err != nil {
			r.db.logger.Warn("skipping malformed customer", "customer_id", c.ID, "error", err)
			continue
		}
		if customerKind == domain.CustomerKindBusiness {
			c.Profile = domain.BusinessProfile{
				BusinessName:       businessName,
				RegistrationNumber: regNumber,
				BusinessAddress:    businessAddress,
			}
		} else {
			c.Profile = domain.IndividualProfile{DateOfBirth: dob, IDNumber: idNumber}
		}
		customers = append(customers, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, r.db.fail("iterate customers", err)
	}
	return customers, nil
}
