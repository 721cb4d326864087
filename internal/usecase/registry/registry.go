package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sasha-s/go-deadlock"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// Registry is the in-memory index of customers, accounts and credentials.
// Map access is guarded internally; mutation of a customer's or account's fields must
// happen while holding the matching key from Lock.
type Registry struct {
	mu          deadlock.RWMutex
	customers   map[string]*domain.Customer
	order       []string
	accounts    map[string]*domain.Account
	credentials map[string]string
	locks       map[string]*keyLock
}

// keyLock is dropped from the lock table once no caller holds or waits for it
type keyLock struct {
	mu   deadlock.Mutex
	refs int
}

// New creates an empty registry
func New() *Registry {
	return &Registry{
		customers:   make(map[string]*domain.Customer),
		accounts:    make(map[string]*domain.Account),
		credentials: make(map[string]string),
		locks:       make(map[string]*keyLock),
	}
}

// AccountKey is the lock key of an account
func AccountKey(number string) string { return "account:" + number }

// CustomerKey is the lock key of a customer's profile and account set
func CustomerKey(id string) string { return "customer:" + id }

// Lock acquires the locks for keys in sorted order and returns the release function.
// Callers take every key they need in a single call.
func (r *Registry) Lock(keys ...string) func() {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	r.mu.Lock()
	held := make([]string, 0, len(sorted))
	locks := make([]*keyLock, 0, len(sorted))
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		l, ok := r.locks[k]
		if !ok {
			l = &keyLock{}
			r.locks[k] = l
		}
		l.refs++
		held = append(held, k)
		locks = append(locks, l)
	}
	r.mu.Unlock()

	for _, l := range locks {
		l.mu.Lock()
	}
	return func() {
		for i := len(locks) - 1; i >= 0; i-- {
			locks[i].mu.Unlock()
		}
		r.mu.Lock()
		for i, k := range held {
			if locks[i].refs--; locks[i].refs == 0 {
				delete(r.locks, k)
			}
		}
		r.mu.Unlock()
	}
}

// LockCustomer locks a customer together with every account it holds and returns the
// accounts as they were when the locks were taken. The account set cannot change until
// the release function runs.
func (r *Registry) LockCustomer(c *domain.Customer) ([]*domain.Account, func()) {
	for {
		unlock := r.Lock(CustomerKey(c.ID))
		accounts := append([]*domain.Account(nil), c.Accounts...)
		unlock()

		keys := make([]string, 0, len(accounts)+1)
		keys = append(keys, CustomerKey(c.ID))
		for _, a := range accounts {
			keys = append(keys, AccountKey(a.Number))
		}
		release := r.Lock(keys...)
		if sameAccounts(accounts, c.Accounts) {
			return accounts, release
		}
		release()
	}
}

func sameAccounts(a, b []*domain.Account) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Holds reports whether number still names this exact account.
// Callers check it after taking the account's lock.
func (r *Registry) Holds(a *domain.Account) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.accounts[a.Number] == a
}

// Waiters reports how many callers hold or are waiting for key
func (r *Registry) Waiters(key string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if l, ok := r.locks[key]; ok {
		return l.refs
	}
	return 0
}

// pendingLocks returns the number of keys with a live lock entry
func (r *Registry) pendingLocks() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.locks)
}

// Customer returns the customer with the given ID
func (r *Registry) Customer(id string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.customers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, id)
	}
	return c, nil
}

// CustomerByEmail finds a customer by email, ignoring case
func (r *Registry) CustomerByEmail(email string) (*domain.Customer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.order {
		if c := r.customers[id]; c.HasEmail(email) {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, email)
}

// Lookup resolves an identifier that is an email when it contains '@' and an ID otherwise
func (r *Registry) Lookup(idOrEmail string) (*domain.Customer, error) {
	idOrEmail = strings.TrimSpace(idOrEmail)
	if strings.Contains(idOrEmail, "@") {
		return r.CustomerByEmail(idOrEmail)
	}
	return r.Customer(idOrEmail)
}

// Customers returns all customers in registration order
func (r *Registry) Customers() []*domain.Customer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Customer, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.customers[id])
	}
	return out
}

// EmailTaken reports whether another customer than exceptID uses email
func (r *Registry) EmailTaken(email, exceptID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, c := range r.customers {
		if id != exceptID && c.HasEmail(email) {
			return true
		}
	}
	return false
}

// AddCustomer indexes a new customer, rejecting duplicate IDs and emails
func (r *Registry) AddCustomer(c *domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.customers[c.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCustomer, c.ID)
	}
	for _, other := range r.customers {
		if other.HasEmail(c.Email) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, c.Email)
		}
	}
	r.customers[c.ID] = c
	r.order = append(r.order, c.ID)
	for _, a := range c.Accounts {
		r.accounts[a.Number] = a
	}
	return nil
}

// RemoveCustomer drops a customer, its accounts and its credential
func (r *Registry) RemoveCustomer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.customers[id]
	if !ok {
		return
	}
	for _, a := range c.Accounts {
		delete(r.accounts, a.Number)
	}
	delete(r.customers, id)
	delete(r.credentials, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
}

// Account returns the account with the given number
func (r *Registry) Account(number string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[number]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, number)
	}
	return a, nil
}

// AccountNumberTaken reports whether any customer holds the number
func (r *Registry) AccountNumberTaken(number string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.accounts[number]
	return ok
}

// AddAccount attaches an account to its owner and indexes it
func (r *Registry) AddAccount(a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.customers[a.CustomerID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, a.CustomerID)
	}
	if _, exists := r.accounts[a.Number]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAccountNumber, a.Number)
	}
	if err := owner.AddAccount(a); err != nil {
		return err
	}
	r.accounts[a.Number] = a
	return nil
}

// AttachAccount indexes a stored account under its owner. Unlike AddAccount it only
// rejects duplicate numbers; one account per kind is checked when accounts are opened.
func (r *Registry) AttachAccount(a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.customers[a.CustomerID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, a.CustomerID)
	}
	if _, exists := r.accounts[a.Number]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateAccountNumber, a.Number)
	}
	if err := owner.AttachAccount(a); err != nil {
		return err
	}
	r.accounts[a.Number] = a
	return nil
}

// RemoveAccount detaches an account from its owner and drops it from the index
func (r *Registry) RemoveAccount(number string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.accounts[number]
	if !ok {
		return
	}
	if owner, ok := r.customers[a.CustomerID]; ok {
		owner.RemoveAccount(number)
	}
	delete(r.accounts, number)
}

// Credential returns the stored password hash of a customer
func (r *Registry) Credential(customerID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hash, ok := r.credentials[customerID]
	return hash, ok
}

// SetCredential records a customer's password hash
func (r *Registry) SetCredential(customerID, hash string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.credentials[customerID] = hash
}

// Stats returns the number of customers and accounts indexed
func (r *Registry) Stats() (customers, accounts int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.customers), len(r.accounts)
}
