package customer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/simaogato/ledger-backend/internal/adapter/validation"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/registry"
)

// RegisterInput represents the input for registering a customer
type RegisterInput struct {
	ID        string              `validate:"required,max=32,ledgertext,excludes=@"`
	Kind      domain.CustomerKind `validate:"required,oneof=INDIVIDUAL BUSINESS"`
	FirstName string              `validate:"required,max=64,ledgertext"`
	LastName  string              `validate:"required,max=64,ledgertext"`
	Address   string              `validate:"required,max=256,ledgertext"`
	Email     string              `validate:"required,email,max=254,ledgertext"`
	Password  string              `validate:"required,min=6,max=72"`

	// Individual
	DateOfBirth string `validate:"required_if=Kind INDIVIDUAL,omitempty,datetime=2006-01-02"`
	IDNumber    string `validate:"required_if=Kind INDIVIDUAL,max=64,ledgertext"`

	// Business
	BusinessName       string `validate:"required_if=Kind BUSINESS,max=128,ledgertext"`
	RegistrationNumber string `validate:"required_if=Kind BUSINESS,max=64,ledgertext"`
	BusinessAddress    string `validate:"max=256,ledgertext"`
}

// ProfileUpdate lists the profile fields to change; nil fields are left as they are.
// Individual fields only apply to individuals and business fields only to businesses.
type ProfileUpdate struct {
	FirstName *string `validate:"omitempty,max=64,ledgertext"`
	LastName  *string `validate:"omitempty,max=64,ledgertext"`
	Address   *string `validate:"omitempty,max=256,ledgertext"`
	Email     *string `validate:"omitempty,email,max=254,ledgertext"`

	DateOfBirth *string `validate:"omitempty,datetime=2006-01-02"`
	IDNumber    *string `validate:"omitempty,max=64,ledgertext"`

	BusinessName       *string `validate:"omitempty,max=128,ledgertext"`
	RegistrationNumber *string `validate:"omitempty,max=64,ledgertext"`
	BusinessAddress    *string `validate:"omitempty,max=256,ledgertext"`
}

type passwordInput struct {
	Password string `validate:"required,min=6,max=72"`
}

// CustomerService handles registration, login and self-service operations
type CustomerService struct {
	Registry       *registry.Registry
	CustomerRepo   domain.CustomerRepository
	AccountRepo    domain.AccountRepository
	CredentialRepo domain.CredentialRepository
	Hasher         domain.PasswordHasher
	Logger         *slog.Logger
}

// NewCustomerService creates a new CustomerService instance
func NewCustomerService(
	reg *registry.Registry,
	customerRepo domain.CustomerRepository,
	accountRepo domain.AccountRepository,
	credentialRepo domain.CredentialRepository,
	hasher domain.PasswordHasher,
	logger *slog.Logger,
) *CustomerService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CustomerService{
		Registry:       reg,
		CustomerRepo:   customerRepo,
		AccountRepo:    accountRepo,
		CredentialRepo: credentialRepo,
		Hasher:         hasher,
		Logger:         logger.With("component", "customer"),
	}
}

// Register creates a customer and its credential
// Logic:
//  1. Validate input
//  2. Reject a duplicate ID or email (emails compare case-insensitively)
//  3. Hash the password
//  4. Save the customer, then the credential; the customer record is removed again
//     if the credential cannot be saved
//  5. Index the customer in the registry
func (s *CustomerService) Register(ctx context.Context, input RegisterInput) (*domain.Customer, error) {
	input.Kind = domain.CustomerKind(strings.ToUpper(strings.TrimSpace(string(input.Kind))))
	input.ID = strings.TrimSpace(input.ID)
	input.Email = strings.TrimSpace(input.Email)

	// 1. Validate input
	if err := validation.Struct(input); err != nil {
		return nil, err
	}

	customer := &domain.Customer{
		ID:        input.ID,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Address:   input.Address,
		Email:     input.Email,
	}
	switch input.Kind {
	case domain.CustomerKindIndividual:
		customer.Profile = domain.IndividualProfile{DateOfBirth: input.DateOfBirth, IDNumber: input.IDNumber}
	case domain.CustomerKindBusiness:
		customer.Profile = domain.BusinessProfile{
			BusinessName:       input.BusinessName,
			RegistrationNumber: input.RegistrationNumber,
			BusinessAddress:    input.BusinessAddress,
		}
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}

	unlock := s.Registry.Lock(registry.CustomerKey(customer.ID))
	defer unlock()

	// 2. Duplicates
	if _, err := s.Registry.Customer(customer.ID); err == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateCustomer, customer.ID)
	}
	if s.Registry.EmailTaken(customer.Email, "") {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, customer.Email)
	}

	// 3. Hash
	hash, err := s.Hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	// 4. Persist
	if err := s.CustomerRepo.Save(ctx, customer); err != nil {
		return nil, err
	}
	if err := s.CredentialRepo.Save(ctx, customer.ID, hash); err != nil {
		s.undoRegistration(ctx, customer.ID)
		return nil, err
	}

	// 5. Index
	if err := s.Registry.AddCustomer(customer); err != nil {
		s.undoRegistration(ctx, customer.ID)
		return nil, err
	}
	s.Registry.SetCredential(customer.ID, hash)

	s.Logger.Info("customer registered", "customer_id", customer.ID, "kind", customer.Kind())
	return customer, nil
}

func (s *CustomerService) undoRegistration(ctx context.Context, customerID string) {
	if err := s.CustomerRepo.Delete(ctx, customerID); err != nil {
		s.Logger.Error("failed to remove customer after registration failure", "customer_id", customerID, "error", err)
	}
}

// Login verifies a password for a customer identified by ID or by email.
// Every failure is reported as ErrInvalidCredentials.
func (s *CustomerService) Login(ctx context.Context, idOrEmail, password string) (*domain.Customer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	customer, err := s.Registry.Lookup(idOrEmail)
	if err != nil {
		s.Logger.Warn("login failed", "identifier", idOrEmail, "reason", "unknown customer")
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.verify(customer.ID, password); err != nil {
		s.Logger.Warn("login failed", "identifier", idOrEmail, "reason", "password mismatch")
		return nil, err
	}
	s.upgradeCredential(ctx, customer.ID, password)
	s.Logger.Debug("login succeeded", "customer_id", customer.ID)
	return customer, nil
}

// upgradeCredential replaces a legacy or outdated hash after a successful login.
// Failures leave the old hash in place.
func (s *CustomerService) upgradeCredential(ctx context.Context, customerID, password string) {
	unlock := s.Registry.Lock(registry.CustomerKey(customerID))
	defer unlock()

	current, ok := s.Registry.Credential(customerID)
	if !ok || !s.Hasher.NeedsRehash(current) {
		return
	}
	hash, err := s.Hasher.Hash(password)
	if err != nil {
		s.Logger.Warn("credential upgrade failed", "customer_id", customerID, "error", err)
		return
	}
	if err := s.CredentialRepo.Update(ctx, customerID, hash); err != nil {
		s.Logger.Warn("credential upgrade failed", "customer_id", customerID, "error", err)
		return
	}
	s.Registry.SetCredential(customerID, hash)
	s.Logger.Info("credential upgraded", "customer_id", customerID)
}

func (s *CustomerService) verify(customerID, password string) error {
	hash, ok := s.Registry.Credential(customerID)
	if !ok || !s.Hasher.Verify(hash, password) {
		return domain.ErrInvalidCredentials
	}
	return nil
}

// authenticate resolves the customer and re-verifies the current password
func (s *CustomerService) authenticate(customerID, password string) (*domain.Customer, error) {
	customer, err := s.Registry.Customer(customerID)
	if err != nil {
		return nil, err
	}
	if err := s.verify(customer.ID, password); err != nil {
		return nil, err
	}
	return customer, nil
}

// UpdateProfile applies the non-nil fields of update after re-verifying the password.
// The record is rewritten before the in-memory customer changes.
func (s *CustomerService) UpdateProfile(ctx context.Context, customerID, password string, update ProfileUpdate) (*domain.Customer, error) {
	customer, err := s.authenticate(customerID, password)
	if err != nil {
		return nil, err
	}
	if err := validation.Struct(update); err != nil {
		return nil, err
	}

	unlock := s.Registry.Lock(registry.CustomerKey(customer.ID))
	defer unlock()

	updated := *customer
	if err := apply(&updated, update); err != nil {
		return nil, err
	}
	if err := updated.Validate(); err != nil {
		return nil, err
	}
	if !customer.HasEmail(updated.Email) && s.Registry.EmailTaken(updated.Email, customer.ID) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateEmail, updated.Email)
	}

	if err := s.CustomerRepo.Update(ctx, &updated); err != nil {
		return nil, err
	}

	accounts := customer.Accounts
	*customer = updated
	customer.Accounts = accounts

	s.Logger.Info("customer profile updated", "customer_id", customer.ID)
	return customer, nil
}

func apply(c *domain.Customer, u ProfileUpdate) error {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&c.FirstName, u.FirstName)
	set(&c.LastName, u.LastName)
	set(&c.Address, u.Address)
	set(&c.Email, u.Email)

	switch p := c.Profile.(type) {
	case domain.IndividualProfile:
		if u.BusinessName != nil || u.RegistrationNumber != nil || u.BusinessAddress != nil {
			return fmt.Errorf("%w: business fields do not apply to an individual customer", domain.ErrValidation)
		}
		set(&p.DateOfBirth, u.DateOfBirth)
		set(&p.IDNumber, u.IDNumber)
		c.Profile = p
	case domain.BusinessProfile:
		if u.DateOfBirth != nil || u.IDNumber != nil {
			return fmt.Errorf("%w: individual fields do not apply to a business customer", domain.ErrValidation)
		}
		set(&p.BusinessName, u.BusinessName)
		set(&p.RegistrationNumber, u.RegistrationNumber)
		set(&p.BusinessAddress, u.BusinessAddress)
		c.Profile = p
	}
	return nil
}

// UpdateEmail changes the customer's email
func (s *CustomerService) UpdateEmail(ctx context.Context, customerID, password, email string) (*domain.Customer, error) {
	return s.UpdateProfile(ctx, customerID, password, ProfileUpdate{Email: &email})
}

// UpdateAddress changes the customer's postal address
func (s *CustomerService) UpdateAddress(ctx context.Context, customerID, password, address string) (*domain.Customer, error) {
	return s.UpdateProfile(ctx, customerID, password, ProfileUpdate{Address: &address})
}

// ChangePassword replaces the credential after verifying the current password
func (s *CustomerService) ChangePassword(ctx context.Context, customerID, current, next string) error {
	customer, err := s.authenticate(customerID, current)
	if err != nil {
		return err
	}
	if err := validation.Struct(passwordInput{Password: next}); err != nil {
		return err
	}

	unlock := s.Registry.Lock(registry.CustomerKey(customer.ID))
	defer unlock()

	hash, err := s.Hasher.Hash(next)
	if err != nil {
		return err
	}
	if err := s.CredentialRepo.Update(ctx, customer.ID, hash); err != nil {
		return err
	}
	s.Registry.SetCredential(customer.ID, hash)

	s.Logger.Info("password changed", "customer_id", customer.ID)
	return nil
}

// CloseAccount removes one of the customer's accounts and its log.
// The account must not be the customer's last one and its balance must be exactly zero.
func (s *CustomerService) CloseAccount(ctx context.Context, customerID, password, number string) error {
	customer, err := s.authenticate(customerID, password)
	if err != nil {
		return err
	}

	unlock := s.Registry.Lock(registry.CustomerKey(customer.ID), registry.AccountKey(number))
	defer unlock()

	account, ok := customer.Account(number)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrAccountNotFound, number)
	}
	if len(customer.Accounts) <= 1 {
		return domain.ErrLastAccount
	}
	if !account.Balance.IsZero() {
		return fmt.Errorf("%w: balance is %s", domain.ErrNonZeroBalance, account.Balance.StringFixed(2))
	}

	if err := s.AccountRepo.Delete(ctx, number); err != nil {
		return err
	}
	s.Registry.RemoveAccount(number)

	s.Logger.Info("account closed", "customer_id", customer.ID, "account", number)
	return nil
}

// DeleteCustomer removes the customer with every account, log entry and credential.
// The deletion cannot be undone.
func (s *CustomerService) DeleteCustomer(ctx context.Context, customerID, password string) error {
	customer, err := s.authenticate(customerID, password)
	if err != nil {
		return err
	}

	accounts, unlock := s.Registry.LockCustomer(customer)
	defer unlock()
	if current, err := s.Registry.Customer(customer.ID); err != nil || current != customer {
		return fmt.Errorf("%w: %s", domain.ErrCustomerNotFound, customer.ID)
	}

	if err := s.CustomerRepo.Delete(ctx, customer.ID); err != nil {
		return err
	}
	s.Registry.RemoveCustomer(customer.ID)

	s.Logger.Info("customer deleted", "customer_id", customer.ID, "accounts", len(accounts))
	return nil
}
