package postgres

import (
	"context"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// credentialRepository implements domain.CredentialRepository
type credentialRepository struct {
	db *DB
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB) domain.CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Save(ctx context.Context, customerID, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (customer_id, password_hash) VALUES ($1, $2)`,
		customerID, passwordHash)
	if err != nil {
		return r.db.fail("save credential of customer "+customerID, err)
	}
	return nil
}

func (r *credentialRepository) Update(ctx context.Context, customerID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE credentials SET password_hash = $2 WHERE customer_id = $1`,
		customerID, passwordHash)
	if err != nil {
		return r.db.fail("update credential of customer "+customerID, err)
	}
	return affected(res, "credential of customer "+customerID)
}

func (r *credentialRepository) Delete(ctx context.Context, customerID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM credentials WHERE customer_id = $1`, customerID)
	if err != nil {
		return r.db.fail("delete credential of customer "+customerID, err)
	}
	return affected(res, "credential of customer "+customerID)
}

func (r *credentialRepository) LoadAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT customer_id, password_hash FROM credentials`)
	if err != nil {
		return nil, r.db.fail("load credentials", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, r.db.fail("scan credential", err)
		}
		hashes[id] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, r.db.fail("iterate credentials", err)
	}
	return hashes, nil
}
