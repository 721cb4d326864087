package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// CustomerKind represents the kind of customer
type CustomerKind string

const (
	CustomerKindIndividual CustomerKind = "INDIVIDUAL"
	CustomerKindBusiness   CustomerKind = "BUSINESS"
)

// ParseCustomerKind converts a stored or user-supplied tag into a CustomerKind
func ParseCustomerKind(s string) (CustomerKind, error) {
	kind := CustomerKind(strings.ToUpper(strings.TrimSpace(s)))
	switch kind {
	case CustomerKindIndividual, CustomerKindBusiness:
		return kind, nil
	}
	return "", fmt.Errorf("%w: customer kind %q", ErrUnknownKind, s)
}

// CustomerProfile holds the kind-specific customer fields.
// Implementations: IndividualProfile and BusinessProfile.
type CustomerProfile interface {
	Kind() CustomerKind
	customerProfile()
}

// IndividualProfile is the profile of a private customer
type IndividualProfile struct {
	DateOfBirth string // yyyy-mm-dd
	IDNumber    string
}

// BusinessProfile is the profile of a company customer
type BusinessProfile struct {
	BusinessName       string
	RegistrationNumber string
	BusinessAddress    string
}

func (IndividualProfile) Kind() CustomerKind { return CustomerKindIndividual }
func (BusinessProfile) Kind() CustomerKind   { return CustomerKindBusiness }

func (IndividualProfile) customerProfile() {}
func (BusinessProfile) customerProfile()   {}

// Customer represents a customer entity in the domain layer
type Customer struct {
	ID        string
	FirstName string
	LastName  string
	Address   string
	Email     string
	Profile   CustomerProfile
	Accounts  []*Account
}

// Kind returns the customer kind derived from the profile
func (c *Customer) Kind() CustomerKind {
	if c.Profile == nil {
		return ""
	}
	return c.Profile.Kind()
}

// FullName returns first and last name
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// DisplayName returns the business name for businesses and the full name otherwise
func (c *Customer) DisplayName() string {
	if p, ok := c.Profile.(BusinessProfile); ok && p.BusinessName != "" {
		return p.BusinessName
	}
	return c.FullName()
}

// Validate ensures the customer adheres to domain rules
func (c *Customer) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: customer ID cannot be empty", ErrValidation)
	}
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("%w: email cannot be empty", ErrValidation)
	}
	if c.Profile == nil {
		return fmt.Errorf("%w: customer kind is required", ErrValidation)
	}
	return nil
}

// HasEmail compares emails case-insensitively
func (c *Customer) HasEmail(email string) bool {
	return strings.EqualFold(strings.TrimSpace(c.Email), strings.TrimSpace(email))
}

// Account returns the customer's account with the given number
func (c *Customer) Account(number string) (*Account, bool) {
	for _, a := range c.Accounts {
		if a.Number == number {
			return a, true
		}
	}
	return nil, false
}

// AccountOfKind returns the customer's account of the given kind
func (c *Customer) AccountOfKind(kind AccountKind) (*Account, bool) {
	for _, a := range c.Accounts {
		if a.Kind() == kind {
			return a, true
		}
	}
	return nil, false
}

// AddAccount attaches an account, enforcing one account per kind
func (c *Customer) AddAccount(a *Account) error {
	if _, exists := c.Account(a.Number); exists {
		return ErrDuplicateAccountNumber
	}
	if _, exists := c.AccountOfKind(a.Kind()); exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAccountKind, a.Kind())
	}
	a.CustomerID = c.ID
	c.Accounts = append(c.Accounts, a)
	return nil
}

// AttachAccount attaches a stored account, rejecting only a duplicate number
func (c *Customer) AttachAccount(a *Account) error {
	if _, exists := c.Account(a.Number); exists {
		return ErrDuplicateAccountNumber
	}
	a.CustomerID = c.ID
	c.Accounts = append(c.Accounts, a)
	return nil
}

// RemoveAccount detaches an account and reports whether it was held
func (c *Customer) RemoveAccount(number string) bool {
	for i, a := range c.Accounts {
		if a.Number == number {
			c.Accounts = append(c.Accounts[:i:i], c.Accounts[i+1:]...)
			return true
		}
	}
	return false
}

// TotalBalance sums the balances of all accounts
func (c *Customer) TotalBalance() decimal.Decimal {
	total := decimal.Zero
	for _, a := range c.Accounts {
		total = total.Add(a.Balance)
	}
	return total
}
