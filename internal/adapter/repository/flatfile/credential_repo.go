package flatfile

import (
	"context"
	"fmt"

	"github.com/simaogato/ledger-backend/internal/domain"
)

// credentialRepository implements domain.CredentialRepository
type credentialRepository struct {
	store *Store
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(store *Store) domain.CredentialRepository {
	return &credentialRepository{store: store}
}

func (r *credentialRepository) Save(ctx context.Context, customerID, passwordHash string) error {
	line := r.store.codec.encodeCredential(customerID, passwordHash)
	if err := r.store.appendLine(ctx, r.store.passwords, line); err != nil {
		return fmt.Errorf("failed to save credential of customer %s: %w", customerID, err)
	}
	return nil
}

func (r *credentialRepository) Update(ctx context.Context, customerID, passwordHash string) error {
	line := r.store.codec.encodeCredential(customerID, passwordHash)
	n, err := r.store.rewrite(ctx, r.store.passwords, func(old string) (string, bool, bool) {
		if key(old, 0) == customerID {
			return line, true, true
		}
		return old, true, false
	})
	if err != nil {
		return fmt.Errorf("failed to update credential of customer %s: %w", customerID, err)
	}
	if n == 0 {
		return fmt.Errorf("credential of customer %s: %w", customerID, domain.ErrNotFound)
	}
	return nil
}

func (r *credentialRepository) Delete(ctx context.Context, customerID string) error {
	n, err := r.store.rewrite(ctx, r.store.passwords, func(old string) (string, bool, bool) {
		hit := key(old, 0) == customerID
		return old, !hit, hit
	})
	if err != nil {
		return fmt.Errorf("failed to delete credential of customer %s: %w", customerID, err)
	}
	if n == 0 {
		return fmt.Errorf("credential of customer %s: %w", customerID, domain.ErrNotFound)
	}
	return nil
}

func (r *credentialRepository) LoadAll(ctx context.Context) (map[string]string, error) {
	lines, err := r.store.readAll(ctx, r.store.passwords)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials: %w", err)
	}

	hashes := make(map[string]string, len(lines))
	for i, line := range lines {
		id, hash, err := r.store.codec.decodeCredential(line)
		if err != nil {
			r.store.skipMalformed(r.store.passwords, i+1, err)
			continue
		}
		hashes[id] = hash
	}
	return hashes, nil
}
