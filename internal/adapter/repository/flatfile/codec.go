package flatfile

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
)

// Minimum field counts of a well-formed record; the trailing savedAt column is optional
const (
	minIndividualFields  = 8
	minBusinessFields    = 9
	minAccountFields     = 6
	minTransactionFields = 6
	credentialFields     = 2
)

// codec converts between domain values and record lines
type codec struct {
	policy domain.Policy
	now    func() time.Time
}

func (c codec) savedAt() string {
	return c.now().Format(savedAtLayout)
}

func join(fields ...string) string {
	return strings.Join(fields, separator)
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrMalformedRecord, fmt.Sprintf(format, args...))
}

func (c codec) encodeCustomer(customer *domain.Customer) (string, error) {
	switch p := customer.Profile.(type) {
	case domain.IndividualProfile:
		return join(customer.ID, string(domain.CustomerKindIndividual), customer.FirstName, customer.LastName,
			customer.Address, p.DateOfBirth, p.IDNumber, customer.Email, c.savedAt()), nil
	case domain.BusinessProfile:
		return join(customer.ID, string(domain.CustomerKindBusiness), customer.FirstName, customer.LastName,
			customer.Address, p.BusinessName, p.RegistrationNumber, p.BusinessAddress, customer.Email, c.savedAt()), nil
	default:
		return "", fmt.Errorf("%w: customer %s has no kind", domain.ErrUnknownKind, customer.ID)
	}
}

func (c codec) decodeCustomer(line string) (*domain.Customer, error) {
	f := strings.Split(line, separator)
	if len(f) < minIndividualFields {
		return nil, malformed("customer record has %d fields", len(f))
	}
	kind, err := domain.ParseCustomerKind(f[1])
	if err != nil {
		return nil, malformed("%v", err)
	}

	customer := &domain.Customer{
		ID:        f[0],
		FirstName: f[2],
		LastName:  f[3],
		Address:   f[4],
	}
	switch kind {
	case domain.CustomerKindIndividual:
		customer.Profile = domain.IndividualProfile{DateOfBirth: f[5], IDNumber: f[6]}
		customer.Email = f[7]
	case domain.CustomerKindBusiness:
		if len(f) < minBusinessFields {
			return nil, malformed("business record has %d fields", len(f))
		}
		customer.Profile = domain.BusinessProfile{BusinessName: f[5], RegistrationNumber: f[6], BusinessAddress: f[7]}
		customer.Email = f[8]
	}
	if customer.ID == "" {
		return nil, malformed("customer record has no ID")
	}
	return customer, nil
}

func (c codec) encodeAccount(account *domain.Account) (string, error) {
	var extra string
	switch t := account.Terms.(type) {
	case domain.SavingsTerms:
		extra = t.InterestRate.String()
	case domain.InvestmentTerms:
		extra = t.InterestRate.String()
	case domain.ChequeTerms:
		extra = t.EmployerName + ";" + t.EmployerAddress
	default:
		return "", fmt.Errorf("%w: account %s has no kind", domain.ErrUnknownKind, account.Number)
	}
	return join(account.Number, account.CustomerID, string(account.Kind()),
		account.Balance.StringFixed(2), account.Branch, extra, c.savedAt()), nil
}

// decodeAccount parses an account record. An empty rate column takes the default rate
// of the owner's tier.
func (c codec) decodeAccount(line string, owner domain.CustomerKind) (*domain.Account, error) {
	f := strings.Split(line, separator)
	if len(f) < minAccountFields {
		return nil, malformed("account record has %d fields", len(f))
	}
	kind, err := domain.ParseAccountKind(f[2])
	if err != nil {
		return nil, malformed("%v", err)
	}
	balance, err := decimal.NewFromString(f[3])
	if err != nil {
		return nil, malformed("account %s balance %q", f[0], f[3])
	}

	var terms domain.AccountTerms
	switch kind {
	case domain.AccountKindSavings:
		rate, err := c.rate(f[5], c.policy.SavingsRate(owner))
		if err != nil {
			return nil, malformed("account %s rate %q", f[0], f[5])
		}
		terms = domain.SavingsTerms{InterestRate: rate}
	case domain.AccountKindInvestment:
		rate, err := c.rate(f[5], c.policy.InvestmentRate(owner))
		if err != nil {
			return nil, malformed("account %s rate %q", f[0], f[5])
		}
		terms = domain.InvestmentTerms{InterestRate: rate, MinimumBalance: c.policy.InvestmentMinimumBalance}
	case domain.AccountKindCheque:
		employer, address, _ := strings.Cut(f[5], ";")
		terms = domain.ChequeTerms{
			OverdraftLimit:  c.policy.ChequeOverdraftLimit,
			EmployerName:    employer,
			EmployerAddress: address,
		}
	}

	account := &domain.Account{
		Number:     f[0],
		CustomerID: f[1],
		Balance:    balance,
		Branch:     f[4],
		Terms:      terms,
	}
	if account.Number == "" || account.CustomerID == "" {
		return nil, malformed("account record without number or owner")
	}
	return account, nil
}

func (c codec) rate(field string, fallback decimal.Decimal) (decimal.Decimal, error) {
	if strings.TrimSpace(field) == "" {
		return fallback, nil
	}
	return decimal.NewFromString(strings.TrimSpace(field))
}

func (c codec) encodeTransaction(accountNumber string, tx domain.Transaction) string {
	return join(accountNumber, tx.Date.Format(domain.DateLayout), tx.Description,
		tx.Amount.StringFixed(2), string(tx.Type), tx.Balance.StringFixed(2), c.savedAt())
}

func (c codec) decodeTransaction(line string) (string, domain.Transaction, error) {
	f := strings.Split(line, separator)
	if len(f) < minTransactionFields {
		return "", domain.Transaction{}, malformed("transaction record has %d fields", len(f))
	}
	date, err := parseDate(f[1])
	if err != nil {
		return "", domain.Transaction{}, malformed("transaction date %q", f[1])
	}
	amount, err := decimal.NewFromString(f[3])
	if err != nil {
		return "", domain.Transaction{}, malformed("transaction amount %q", f[3])
	}
	balance, err := decimal.NewFromString(f[5])
	if err != nil {
		return "", domain.Transaction{}, malformed("transaction balance %q", f[5])
	}
	return f[0], domain.Transaction{
		Date:        date,
		Description: f[2],
		Amount:      amount,
		Type:        domain.ParseTransactionType(f[4]),
		Balance:     balance,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.ParseInLocation(domain.DateLayout, s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(savedAtLayout, s, time.Local)
	if err != nil {
		return time.Time{}, err
	}
	return domain.Day(t), nil
}

func (c codec) encodeCredential(customerID, hash string) string {
	return join(customerID, hash)
}

func (c codec) decodeCredential(line string) (string, string, error) {
	f := strings.Split(line, separator)
	if len(f) != credentialFields || f[0] == "" {
		return "", "", malformed("credential record has %d fields", len(f))
	}
	return f[0], f[1], nil
}
