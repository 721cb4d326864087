package postgres

import "context"

// schema creates the four ledger tables. Kind limits (overdraft, minimum balance) are not
// stored; they come from the policy like they do for the flat files.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS customers (
		seq                 BIGSERIAL,
		id                  TEXT PRIMARY KEY,
		kind                TEXT NOT NULL,
		first_name          TEXT NOT NULL,
		last_name           TEXT NOT NULL,
		address             TEXT NOT NULL,
		email               TEXT NOT NULL,
		date_of_birth       TEXT NOT NULL DEFAULT '',
		id_number           TEXT NOT NULL DEFAULT '',
		business_name       TEXT NOT NULL DEFAULT '',
		registration_number TEXT NOT NULL DEFAULT '',
		business_address    TEXT NOT NULL DEFAULT '',
		saved_at            TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		seq              BIGSERIAL,
		number           TEXT PRIMARY KEY,
		customer_id      TEXT NOT NULL REFERENCES customers(id),
		kind             TEXT NOT NULL,
		balance          NUMERIC(20,2) NOT NULL DEFAULT 0,
		branch           TEXT NOT NULL,
		interest_rate    NUMERIC(12,6),
		employer_name    TEXT NOT NULL DEFAULT '',
		employer_address TEXT NOT NULL DEFAULT '',
		saved_at         TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id             BIGSERIAL PRIMARY KEY,
		account_number TEXT NOT NULL REFERENCES accounts(number),
		date           DATE NOT NULL,
		description    TEXT NOT NULL,
		amount         NUMERIC(20,2) NOT NULL,
		type           TEXT NOT NULL,
		balance        NUMERIC(20,2) NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS transactions_account_idx ON transactions (account_number, id)`,
	`CREATE TABLE IF NOT EXISTS credentials (
		customer_id   TEXT PRIMARY KEY REFERENCES customers(id),
		password_hash TEXT NOT NULL
	)`,
}

// EnsureSchema creates any missing table. Existing tables are left untouched.
func (db *DB) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return db.fail("create schema", err)
		}
	}
	return nil
}
