package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func customer(id, email string) *domain.Customer {
	return &domain.Customer{
		ID:        id,
		FirstName: "Test",
		LastName:  id,
		Email:     email,
		Profile:   domain.IndividualProfile{DateOfBirth: "1990-01-01", IDNumber: "ID-" + id},
	}
}

func TestRegistry_AddCustomer(t *testing.T) {
	reg := New()

	require.NoError(t, reg.AddCustomer(customer("C1", "one@example.com")))
	assert.ErrorIs(t, reg.AddCustomer(customer("C1", "other@example.com")), domain.ErrDuplicateCustomer)
	assert.ErrorIs(t, reg.AddCustomer(customer("C2", "ONE@example.com")), domain.ErrDuplicateEmail)

	byEmail, err := reg.Lookup("One@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "C1", byEmail.ID)

	byID, err := reg.Lookup(" C1 ")
	require.NoError(t, err)
	assert.Same(t, byEmail, byID)

	_, err = reg.Lookup("missing@example.com")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestRegistry_Accounts(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddCustomer(customer("C1", "one@example.com")))

	savings := domain.NewAccount("SAV-1", "C1", domain.DefaultBranch, domain.SavingsTerms{})
	require.NoError(t, reg.AddAccount(savings))
	assert.True(t, reg.AccountNumberTaken("SAV-1"))

	orphan := domain.NewAccount("SAV-2", "C9", domain.DefaultBranch, domain.SavingsTerms{})
	assert.ErrorIs(t, reg.AddAccount(orphan), domain.ErrCustomerNotFound)

	dup := domain.NewAccount("SAV-1", "C1", domain.DefaultBranch, domain.ChequeTerms{})
	assert.ErrorIs(t, reg.AddAccount(dup), domain.ErrDuplicateAccountNumber)

	reg.RemoveAccount("SAV-1")
	_, err := reg.Account("SAV-1")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)

	c, err := reg.Customer("C1")
	require.NoError(t, err)
	assert.Empty(t, c.Accounts)
}

func TestRegistry_RemoveCustomer(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddCustomer(customer("C1", "one@example.com")))
	require.NoError(t, reg.AddCustomer(customer("C2", "two@example.com")))
	require.NoError(t, reg.AddAccount(domain.NewAccount("SAV-1", "C1", domain.DefaultBranch, domain.SavingsTerms{})))
	reg.SetCredential("C1", "hash")

	reg.RemoveCustomer("C1")

	_, err := reg.Customer("C1")
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	_, err = reg.Account("SAV-1")
	assert.ErrorIs(t, err, domain.ErrAccountNotFound)
	_, ok := reg.Credential("C1")
	assert.False(t, ok)

	remaining := reg.Customers()
	require.Len(t, remaining, 1)
	assert.Equal(t, "C2", remaining[0].ID)
	assert.False(t, reg.EmailTaken("one@example.com", ""))
	assert.True(t, reg.EmailTaken("two@example.com", "C1"))
	assert.False(t, reg.EmailTaken("two@example.com", "C2"))
}

func TestRegistry_LockOrdering(t *testing.T) {
	reg := New()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			unlock := reg.Lock(AccountKey("A"), AccountKey("B"))
			counter++
			unlock()
		}()
		go func() {
			defer wg.Done()
			unlock := reg.Lock(AccountKey("B"), AccountKey("A"), AccountKey("A"))
			counter++
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestRegistry_AttachAccount(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddCustomer(customer("C1", "one@example.com")))

	require.NoError(t, reg.AttachAccount(domain.NewAccount("SAV-1", "C1", domain.DefaultBranch, domain.SavingsTerms{})))
	require.NoError(t, reg.AttachAccount(domain.NewAccount("SAV-2", "C1", domain.DefaultBranch, domain.SavingsTerms{})))

	dup := domain.NewAccount("SAV-1", "C1", domain.DefaultBranch, domain.SavingsTerms{})
	assert.ErrorIs(t, reg.AttachAccount(dup), domain.ErrDuplicateAccountNumber)
	orphan := domain.NewAccount("SAV-3", "C9", domain.DefaultBranch, domain.SavingsTerms{})
	assert.ErrorIs(t, reg.AttachAccount(orphan), domain.ErrCustomerNotFound)

	// opening still enforces one account per kind
	third := domain.NewAccount("SAV-4", "C1", domain.DefaultBranch, domain.SavingsTerms{})
	assert.ErrorIs(t, reg.AddAccount(third), domain.ErrDuplicateAccountKind)

	c, err := reg.Customer("C1")
	require.NoError(t, err)
	assert.Len(t, c.Accounts, 2)
}

func TestRegistry_LockReleasesEntries(t *testing.T) {
	reg := New()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			unlock := reg.Lock(AccountKey("A"), CustomerKey(string(rune('a'+i))))
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Zero(t, reg.pendingLocks())

	unlock := reg.Lock(AccountKey("A"), AccountKey("A"))
	assert.Equal(t, 1, reg.pendingLocks())
	unlock()
	assert.Zero(t, reg.pendingLocks())
}

func TestRegistry_LockCustomer(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddCustomer(customer("C1", "one@example.com")))
	require.NoError(t, reg.AddAccount(domain.NewAccount("SAV-1", "C1", domain.DefaultBranch, domain.SavingsTerms{})))
	c, err := reg.Customer("C1")
	require.NoError(t, err)

	accounts, release := reg.LockCustomer(c)
	require.Len(t, accounts, 1)

	opened := make(chan struct{})
	go func() {
		unlock := reg.Lock(CustomerKey("C1"))
		defer unlock()
		_ = reg.AddAccount(domain.NewAccount("CHQ-1", "C1", domain.DefaultBranch, domain.ChequeTerms{}))
		close(opened)
	}()

	// the account set is frozen while the customer is held
	select {
	case <-opened:
		t.Fatal("account opened while customer was locked")
	case <-time.After(50 * time.Millisecond):
	}
	assert.Len(t, c.Accounts, 1)
	release()

	<-opened
	accounts, release = reg.LockCustomer(c)
	defer release()
	assert.Len(t, accounts, 2)
	assert.True(t, reg.Holds(accounts[1]))
}

func TestRegistry_Holds(t *testing.T) {
	reg := New()
	require.NoError(t, reg.AddCustomer(customer("C1", "one@example.com")))
	account := domain.NewAccount("SAV-1", "C1", domain.DefaultBranch, domain.SavingsTerms{})
	require.NoError(t, reg.AddAccount(account))
	assert.True(t, reg.Holds(account))

	reg.RemoveAccount("SAV-1")
	assert.False(t, reg.Holds(account))

	replacement := domain.NewAccount("SAV-1", "C1", domain.DefaultBranch, domain.SavingsTerms{})
	require.NoError(t, reg.AddAccount(replacement))
	assert.False(t, reg.Holds(account))
}
