package interest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPoster is a mock implementation of Poster that applies entries on success
type MockPoster struct {
	mock.Mock
}

func (m *MockPoster) Post(ctx context.Context, account *domain.Account, tx domain.Transaction) error {
	args := m.Called(ctx, account, tx)
	err := args.Error(0)
	if err == nil {
		account.Apply(tx)
	}
	return err
}

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFixture(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	policy := domain.DefaultPolicy()
	customers := []struct {
		id   string
		kind domain.CustomerKind
	}{
		{"C1", domain.CustomerKindIndividual},
		{"B1", domain.CustomerKindBusiness},
	}
	for _, c := range customers {
		var profile domain.CustomerProfile = domain.IndividualProfile{}
		if c.kind == domain.CustomerKindBusiness {
			profile = domain.BusinessProfile{BusinessName: "Acme"}
		}
		require.NoError(t, reg.AddCustomer(&domain.Customer{ID: c.id, Email: c.id + "@example.com", Profile: profile}))
	}

	add := func(number, owner string, customerKind domain.CustomerKind, kind domain.AccountKind, balance string) {
		terms, err := policy.NewTerms(kind, customerKind, "Acme", "1 Road")
		require.NoError(t, err)
		a := domain.NewAccount(number, owner, domain.DefaultBranch, terms)
		if b := amount(balance); b.IsPositive() {
			_, err := a.Deposit(b, "Initial deposit", time.Now())
			require.NoError(t, err)
		}
		require.NoError(t, reg.AddAccount(a))
	}
	add("SAV-1", "C1", domain.CustomerKindIndividual, domain.AccountKindSavings, "10000")
	add("CHQ-1", "C1", domain.CustomerKindIndividual, domain.AccountKindCheque, "5000")
	add("INV-1", "C1", domain.CustomerKindIndividual, domain.AccountKindInvestment, "1000")
	add("SAV-B", "B1", domain.CustomerKindBusiness, domain.AccountKindSavings, "10000")
	return reg
}

func TestPayInterest_Customer(t *testing.T) {
	reg := newFixture(t)
	poster := new(MockPoster)
	poster.On("Post", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	service := NewInterestService(reg, poster, nil)

	report, err := service.PayInterest(context.Background(), "C1")

	require.NoError(t, err)
	require.Len(t, report.Credits, 2)
	assert.Equal(t, "SAV-1", report.Credits[0].AccountNumber)
	assert.Equal(t, "5.00", report.Credits[0].Amount.StringFixed(2))
	assert.Equal(t, "INV-1", report.Credits[1].AccountNumber)
	assert.Equal(t, "50.00", report.Credits[1].Amount.StringFixed(2))
	assert.Equal(t, "55.00", report.Total.StringFixed(2))

	savings, err := reg.Account("SAV-1")
	require.NoError(t, err)
	assert.Equal(t, "10005.00", savings.Balance.StringFixed(2))
	last := savings.Transactions[len(savings.Transactions)-1]
	assert.Equal(t, domain.TransactionTypeInterest, last.Type)
	assert.Equal(t, "Interest", last.Description)

	cheque, err := reg.Account("CHQ-1")
	require.NoError(t, err)
	assert.Len(t, cheque.Transactions, 1)
}

func TestPayAllInterest_UsesCustomerTier(t *testing.T) {
	reg := newFixture(t)
	poster := new(MockPoster)
	poster.On("Post", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	service := NewInterestService(reg, poster, nil)

	report, err := service.PayAllInterest(context.Background())

	require.NoError(t, err)
	assert.Len(t, report.Credits, 3)
	assert.Equal(t, "B1", func() string {
		a, _ := reg.Account(report.Credits[2].AccountNumber)
		return a.CustomerID
	}())
	// business savings rate is 0.001
	assert.Equal(t, "10.00", report.Credits[2].Amount.StringFixed(2))
	assert.Equal(t, "65.00", report.Total.StringFixed(2))
}

func TestPayInterest_PostFailure(t *testing.T) {
	reg := newFixture(t)
	poster := new(MockPoster)
	poster.On("Post", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
	service := NewInterestService(reg, poster, nil)

	report, err := service.PayInterest(context.Background(), "C1")

	assert.ErrorContains(t, err, "SAV-1")
	assert.Empty(t, report.Credits)

	savings, _ := reg.Account("SAV-1")
	assert.Equal(t, "10000.00", savings.Balance.StringFixed(2))
}

func TestPayInterest_UnknownCustomer(t *testing.T) {
	service := NewInterestService(registry.New(), new(MockPoster), nil)

	_, err := service.PayInterest(context.Background(), "nobody")

	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestPayInterest_SkipsAccountClosedDuringRun(t *testing.T) {
	reg := newFixture(t)
	poster := new(MockPoster)
	poster.On("Post", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	service := NewInterestService(reg, poster, nil)

	unlock := reg.Lock(registry.AccountKey("SAV-1"))
	type result struct {
		report *Report
		err    error
	}
	done := make(chan result, 1)
	go func() {
		report, err := service.PayInterest(context.Background(), "C1")
		done <- result{report, err}
	}()
	require.Eventually(t, func() bool { return reg.Waiters(registry.AccountKey("SAV-1")) == 2 }, time.Second, time.Millisecond)

	reg.RemoveAccount("SAV-1")
	unlock()

	got := <-done
	require.NoError(t, got.err)
	require.Len(t, got.report.Credits, 1)
	assert.Equal(t, "INV-1", got.report.Credits[0].AccountNumber)
}
