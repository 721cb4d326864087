package flatfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(t.TempDir(), domain.DefaultPolicy(), nil)
	store.codec.now = func() time.Time { return fixedNow }
	require.NoError(t, store.Init(context.Background()))
	return store
}

func readFile(t *testing.T, store *Store, name string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(store.Dir(), name))
	require.NoError(t, err)
	return string(b)
}

func writeFile(t *testing.T, store *Store, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), name), []byte(content), 0o644))
}

func individual(id, email string) *domain.Customer {
	return &domain.Customer{
		ID:        id,
		FirstName: "Ada",
		LastName:  "Lovelace",
		Address:   "12 Analytical Way",
		Email:     email,
		Profile:   domain.IndividualProfile{DateOfBirth: "1815-12-10", IDNumber: "ID-" + id},
	}
}

func business(id, email string) *domain.Customer {
	return &domain.Customer{
		ID:        id,
		FirstName: "Grace",
		LastName:  "Hopper",
		Address:   "1 Harbour St",
		Email:     email,
		Profile: domain.BusinessProfile{
			BusinessName:       "Cobol Ltd",
			RegistrationNumber: "REG-" + id,
			BusinessAddress:    "2 Dock Rd",
		},
	}
}

func TestStore_Init(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	store := NewStore(dir, domain.DefaultPolicy(), nil)

	require.NoError(t, store.Init(context.Background()))
	// Idempotent and keeps content
	writeFile(t, store, CustomersFile, "keep\n")
	require.NoError(t, store.Init(context.Background()))

	for _, name := range []string{CustomersFile, AccountsFile, TransactionsFile, PasswordsFile} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}
	assert.Equal(t, "keep\n", readFile(t, store, CustomersFile))
}

func TestCustomerRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewCustomerRepository(store)

	require.NoError(t, repo.Save(ctx, individual("C1", "ada@example.com")))
	require.NoError(t, repo.Save(ctx, business("B1", "ops@cobol.example")))

	assert.Equal(t,
		"C1|INDIVIDUAL|Ada|Lovelace|12 Analytical Way|1815-12-10|ID-C1|ada@example.com|2026-05-01 09:30:00\n"+
			"B1|BUSINESS|Grace|Hopper|1 Harbour St|Cobol Ltd|REG-B1|2 Dock Rd|ops@cobol.example|2026-05-01 09:30:00\n",
		readFile(t, store, CustomersFile))

	customers, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, individual("C1", "ada@example.com"), customers[0])
	assert.Equal(t, business("B1", "ops@cobol.example"), customers[1])
}

func TestCustomerRepository_UpdateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewCustomerRepository(store)

	require.NoError(t, repo.Save(ctx, individual("C1", "ada@example.com")))
	require.NoError(t, repo.Save(ctx, individual("C2", "bob@example.com")))

	updated := individual("C1", "ada@new.example")
	updated.Address = "99 New Road"
	require.NoError(t, repo.Update(ctx, updated))
	first := readFile(t, store, CustomersFile)

	require.NoError(t, repo.Update(ctx, updated))
	assert.Equal(t, first, readFile(t, store, CustomersFile))

	customers, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, "99 New Road", customers[0].Address)
	assert.Equal(t, "bob@example.com", customers[1].Email)
}

func TestCustomerRepository_UpdateMissing(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewCustomerRepository(store)
	require.NoError(t, repo.Save(ctx, individual("C1", "ada@example.com")))
	before := readFile(t, store, CustomersFile)

	err := repo.Update(ctx, individual("C9", "x@example.com"))

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, before, readFile(t, store, CustomersFile))
	assertNoTempFiles(t, store)
}

func TestCustomerRepository_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	customers := NewCustomerRepository(store)
	accounts := NewAccountRepository(store)
	transactions := NewTransactionRepository(store)
	credentials := NewCredentialRepository(store)

	for _, c := range []*domain.Customer{individual("C1", "a@example.com"), individual("C2", "b@example.com")} {
		require.NoError(t, customers.Save(ctx, c))
		require.NoError(t, credentials.Save(ctx, c.ID, "hash-"+c.ID))
	}
	require.NoError(t, accounts.Save(ctx, savings("SAV-1", "C1")))
	require.NoError(t, accounts.Save(ctx, cheque("CHQ-1", "C1")))
	require.NoError(t, accounts.Save(ctx, savings("SAV-2", "C2")))
	for _, n := range []string{"SAV-1", "CHQ-1", "SAV-2"} {
		require.NoError(t, transactions.Append(ctx, n, deposit("100")))
	}

	require.NoError(t, customers.Delete(ctx, "C1"))

	remaining, err := customers.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, "C2", remaining[0].ID)

	accs, err := accounts.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, accs, 1)
	assert.Equal(t, "SAV-2", accs[0].Number)

	logs, err := transactions.LoadAll(ctx)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	assert.Len(t, logs["SAV-2"], 1)

	hashes, err := credentials.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"C2": "hash-C2"}, hashes)

	assert.ErrorIs(t, customers.Delete(ctx, "C1"), domain.ErrNotFound)
	assertNoTempFiles(t, store)
}

func TestLoadAll_SkipsMalformedLines(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	writeFile(t, store, CustomersFile, "C1|INDIVIDUAL|Ada|Lovelace|Addr|1815-12-10|ID|ada@example.com\n"+
		"short|line\n"+
		"\n"+
		"X1|TRUST|a|b|c|d|e|f|g\n"+
		"B1|BUSINESS|Grace|Hopper|Addr|Cobol|REG|Dock\n")
	writeFile(t, store, AccountsFile, "SAV-1|C1|SAVINGS|12.50|Main Branch|0.0005|2026-01-01 00:00:00\n"+
		"BAD|C1|SAVINGS|twelve|Main Branch|0.0005\n"+
		"INV-1|C1|INVESTMENT|1000|Main Branch|\n")
	writeFile(t, store, PasswordsFile, "C1|hash\nC2|hash|extra\n")

	customers, err := NewCustomerRepository(store).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "ada@example.com", customers[0].Email)

	accounts, err := NewAccountRepository(store).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "12.50", accounts[0].Balance.StringFixed(2))
	assert.True(t, domain.DefaultPolicy().InvestmentRateIndividual.Equal(accounts[1].Terms.(domain.InvestmentTerms).InterestRate))

	hashes, err := NewCredentialRepository(store).LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"C1": "hash"}, hashes)
}

func TestLoadAll_MissingFilesAreEmpty(t *testing.T) {
	ctx := context.Background()
	store := NewStore(t.TempDir(), domain.DefaultPolicy(), nil)

	customers, err := NewCustomerRepository(store).LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, customers)

	logs, err := NewTransactionRepository(store).LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestStore_CancelledContext(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewCustomerRepository(store).Save(ctx, individual("C1", "a@example.com"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, readFile(t, store, CustomersFile))
}

func assertNoTempFiles(t *testing.T, store *Store) {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(store.Dir(), "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func deposit(amount string) domain.Transaction {
	a := decimal.RequireFromString(amount)
	return domain.Transaction{
		Date:        time.Date(2026, 5, 1, 0, 0, 0, 0, time.Local),
		Description: "Deposit",
		Amount:      a,
		Type:        domain.TransactionTypeDeposit,
		Balance:     a,
	}
}
