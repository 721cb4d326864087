package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/adapter/repository/flatfile"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/usecase/banking"
	"github.com/simaogato/ledger-backend/internal/usecase/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPoster is a mock implementation of Poster for testing.
// Unless a call is set up to fail it applies the entry like the real poster.
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

// fixture: C1 holds SAV-1 (1500), CHQ-1 (0, overdraft 500), INV-1 (1000); C2 holds CHQ-2 (0)
func newFixture(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, id := range []string{"C1", "C2"} {
		require.NoError(t, reg.AddCustomer(&domain.Customer{
			ID: id, Email: id + "@example.com",
			Profile: domain.IndividualProfile{DateOfBirth: "1990-01-01", IDNumber: id},
		}))
	}
	policy := domain.DefaultPolicy()
	add := func(number, owner string, kind domain.AccountKind, balance string) {
		terms, err := policy.NewTerms(kind, domain.CustomerKindIndividual, "Acme", "1 Road")
		require.NoError(t, err)
		a := domain.NewAccount(number, owner, domain.DefaultBranch, terms)
		if b := amount(balance); b.IsPositive() {
			_, err := a.Deposit(b, "Initial deposit", time.Now())
			require.NoError(t, err)
		}
		require.NoError(t, reg.AddAccount(a))
	}
	add("SAV-1", "C1", domain.AccountKindSavings, "1500")
	add("CHQ-1", "C1", domain.AccountKindCheque, "0")
	add("INV-1", "C1", domain.AccountKindInvestment, "1000")
	add("CHQ-2", "C2", domain.AccountKindCheque, "0")
	return reg
}

func balance(t *testing.T, reg *registry.Registry, number string) string {
	t.Helper()
	a, err := reg.Account(number)
	require.NoError(t, err)
	return a.Balance.StringFixed(2)
}

func TestTransfer_ChequeToInvestment(t *testing.T) {
	ctx := context.Background()
	reg := newFixture(t)
	store := flatfile.NewStore(t.TempDir(), domain.DefaultPolicy(), nil)
	poster := banking.NewBankingService(reg, flatfile.NewAccountRepository(store), flatfile.NewTransactionRepository(store), domain.DefaultPolicy(), nil)
	service := NewTransferService(reg, poster, nil)

	result, err := service.Transfer(ctx, TransferInput{
		CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "INV-1", Amount: amount("200"),
	})

	require.NoError(t, err)
	assert.Equal(t, "-200.00", balance(t, reg, "CHQ-1"))
	assert.Equal(t, "1200.00", balance(t, reg, "INV-1"))
	assert.Equal(t, "Transfer to INV-1", result.Debit.Description)
	assert.Equal(t, "Transfer from CHQ-1", result.Credit.Description)
	assert.Equal(t, domain.TransactionTypeTransfer, result.Debit.Type)

	logs, err := flatfile.NewTransactionRepository(store).LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, logs["CHQ-1"], 1)
	require.Len(t, logs["INV-1"], 1)
	assert.Equal(t, "-200.00", logs["CHQ-1"][0].Amount.StringFixed(2))
	assert.Equal(t, "200.00", logs["INV-1"][0].Amount.StringFixed(2))
}

func TestTransfer_ToAnotherCustomerWithDescription(t *testing.T) {
	reg := newFixture(t)
	poster := new(MockPoster)
	poster.On("Post", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	service := NewTransferService(reg, poster, nil)

	result, err := service.Transfer(context.Background(), TransferInput{
		CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "CHQ-2", Amount: amount("450.50"), Description: "Invoice 42",
	})

	require.NoError(t, err)
	assert.Equal(t, "Invoice 42", result.Debit.Description)
	assert.Equal(t, "Invoice 42", result.Credit.Description)
	assert.Equal(t, "-450.50", balance(t, reg, "CHQ-1"))
	assert.Equal(t, "450.50", balance(t, reg, "CHQ-2"))
	poster.AssertNumberOfCalls(t, "Post", 2)
}

func TestTransfer_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		input   TransferInput
		wantErr error
	}{
		{name: "Unknown destination", input: TransferInput{CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "NOPE", Amount: amount("10")}, wantErr: domain.ErrAccountNotFound},
		{name: "Same account", input: TransferInput{CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "CHQ-1", Amount: amount("10")}, wantErr: domain.ErrSameAccount},
		{name: "Savings source", input: TransferInput{CustomerID: "C1", FromAccount: "SAV-1", ToAccount: "CHQ-1", Amount: amount("10")}, wantErr: domain.ErrTransferFromSavings},
		{name: "Zero amount", input: TransferInput{CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "INV-1", Amount: decimal.Zero}, wantErr: domain.ErrInvalidAmount},
		{name: "Beyond overdraft", input: TransferInput{CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "INV-1", Amount: amount("500.01")}, wantErr: domain.ErrInsufficientFunds},
		{name: "Investment minimum balance", input: TransferInput{CustomerID: "C1", FromAccount: "INV-1", ToAccount: "CHQ-1", Amount: amount("1")}, wantErr: domain.ErrMinimumBalance},
		{name: "Source not owned", input: TransferInput{CustomerID: "C2", FromAccount: "CHQ-1", ToAccount: "CHQ-2", Amount: amount("1")}, wantErr: domain.ErrAccountNotFound},
		{name: "Unknown customer", input: TransferInput{CustomerID: "C9", FromAccount: "CHQ-1", ToAccount: "CHQ-2", Amount: amount("1")}, wantErr: domain.ErrCustomerNotFound},
		{name: "Missing destination", input: TransferInput{CustomerID: "C1", FromAccount: "CHQ-1", Amount: amount("1")}, wantErr: domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newFixture(t)
			poster := new(MockPoster)
			service := NewTransferService(reg, poster, nil)

			_, err := service.Transfer(context.Background(), tt.input)

			assert.ErrorIs(t, err, tt.wantErr)
			poster.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, "1500.00", balance(t, reg, "SAV-1"))
			assert.Equal(t, "0.00", balance(t, reg, "CHQ-1"))
			assert.Equal(t, "1000.00", balance(t, reg, "INV-1"))
		})
	}
}

func TestTransfer_DebitFailureHasNoEffect(t *testing.T) {
	reg := newFixture(t)
	poster := new(MockPoster)
	poster.On("Post", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("disk full"))
	service := NewTransferService(reg, poster, nil)

	_, err := service.Transfer(context.Background(), TransferInput{
		CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "INV-1", Amount: amount("100"),
	})

	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, "0.00", balance(t, reg, "CHQ-1"))
	assert.Equal(t, "1000.00", balance(t, reg, "INV-1"))
	poster.AssertNumberOfCalls(t, "Post", 1)
}

func TestTransfer_CreditFailureRollsBack(t *testing.T) {
	reg := newFixture(t)
	source, err := reg.Account("CHQ-1")
	require.NoError(t, err)
	destination, err := reg.Account("INV-1")
	require.NoError(t, err)

	poster := new(MockPoster)
	poster.On("Post", mock.Anything, source, mock.Anything).Return(nil)
	poster.On("Post", mock.Anything, destination, mock.Anything).Return(errors.New("disk full"))
	service := NewTransferService(reg, poster, nil)

	_, err = service.Transfer(context.Background(), TransferInput{
		CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "INV-1", Amount: amount("100"),
	})

	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrLedgerInconsistent)
	assert.Equal(t, "0.00", balance(t, reg, "CHQ-1"))
	assert.Equal(t, "1000.00", balance(t, reg, "INV-1"))

	require.Len(t, source.Transactions, 2)
	assert.Equal(t, RollbackDescription, source.Transactions[1].Description)
	assert.Equal(t, "100.00", source.Transactions[1].Amount.StringFixed(2))
	assert.NoError(t, source.CheckConsistency())
}

func TestTransfer_RollbackFailureIsInconsistent(t *testing.T) {
	reg := newFixture(t)
	source, err := reg.Account("CHQ-1")
	require.NoError(t, err)
	destination, err := reg.Account("INV-1")
	require.NoError(t, err)

	poster := new(MockPoster)
	poster.On("Post", mock.Anything, source, mock.MatchedBy(func(tx domain.Transaction) bool {
		return tx.Description != RollbackDescription
	})).Return(nil)
	poster.On("Post", mock.Anything, source, mock.MatchedBy(func(tx domain.Transaction) bool {
		return tx.Description == RollbackDescription
	})).Return(errors.New("still full"))
	poster.On("Post", mock.Anything, destination, mock.Anything).Return(errors.New("disk full"))
	service := NewTransferService(reg, poster, nil)

	_, err = service.Transfer(context.Background(), TransferInput{
		CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "INV-1", Amount: amount("100"),
	})

	assert.ErrorIs(t, err, domain.ErrLedgerInconsistent)
	assert.ErrorContains(t, err, "still full")
	assert.Equal(t, "-100.00", balance(t, reg, "CHQ-1"))
}

func TestTransfer_DestinationClosedWhileWaiting(t *testing.T) {
	ctx := context.Background()
	reg := newFixture(t)
	poster := new(MockPoster)
	service := NewTransferService(reg, poster, nil)

	unlock := reg.Lock(registry.AccountKey("CHQ-2"))
	done := make(chan error, 1)
	go func() {
		_, err := service.Transfer(ctx, TransferInput{
			CustomerID: "C1", FromAccount: "CHQ-1", ToAccount: "CHQ-2", Amount: amount("100"),
		})
		done <- err
	}()
	require.Eventually(t, func() bool { return reg.Waiters(registry.AccountKey("CHQ-2")) == 2 }, time.Second, time.Millisecond)

	reg.RemoveAccount("CHQ-2")
	unlock()

	assert.ErrorIs(t, <-done, domain.ErrAccountNotFound)
	assert.Equal(t, "0.00", balance(t, reg, "CHQ-1"))
	poster.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}
