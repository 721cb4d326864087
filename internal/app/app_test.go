package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/simaogato/ledger-backend/internal/config"
	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/simaogato/ledger-backend/internal/logging"
	"github.com/simaogato/ledger-backend/internal/usecase/banking"
	"github.com/simaogato/ledger-backend/internal/usecase/customer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fileConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("LEDGER_DATA_DIR", filepath.Join(t.TempDir(), "data"))
	t.Setenv("LEDGER_BCRYPT_COST", "4")
	cfg, err := config.Load(logging.Discard(), filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	return cfg
}

func TestNew_FileBackendSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	cfg := fileConfig(t)

	first, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	assert.Equal(t, 0, first.Report.Customers)

	_, err = first.Customers.Register(ctx, customer.RegisterInput{
		ID: "C1", Kind: domain.CustomerKindIndividual, FirstName: "Jan", LastName: "Smit",
		Address: "3 Oak Ave", Email: "jan@example.com", Password: "secret1",
		DateOfBirth: "1990-04-01", IDNumber: "9004015800087",
	})
	require.NoError(t, err)
	_, err = first.Banking.OpenAccount(ctx, banking.OpenAccountInput{
		CustomerID: "C1", Kind: domain.AccountKindSavings, Number: "SAV-1", InitialDeposit: decimal.NewFromInt(1000),
	})
	require.NoError(t, err)

	report, err := first.Interest.PayAllInterest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "0.50", report.Total.StringFixed(2))
	require.NoError(t, first.Close())

	second, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer second.Close()

	assert.Equal(t, 1, second.Report.Customers)
	assert.Equal(t, 2, second.Report.Transactions)

	totals, err := second.Dashboard.GetLedgerTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000.50", totals.TotalBalance.StringFixed(2))

	_, err = second.Customers.Login(ctx, "jan@example.com", "secret1")
	assert.NoError(t, err)
}

func TestNew_UsesConfiguredPolicy(t *testing.T) {
	t.Setenv("LEDGER_LIMIT_INVESTMENT_MINIMUM_DEPOSIT", "2000")
	ctx := context.Background()
	cfg := fileConfig(t)

	a, err := New(ctx, cfg, logging.Discard())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Customers.Register(ctx, customer.RegisterInput{
		ID: "B1", Kind: domain.CustomerKindBusiness, FirstName: "Ada", LastName: "Lovelace",
		Address: "1 Engine Rd", Email: "ada@example.com", Password: "secret1",
		BusinessName: "Engines Ltd", RegistrationNumber: "REG-9",
	})
	require.NoError(t, err)

	_, err = a.Banking.OpenAccount(ctx, banking.OpenAccountInput{
		CustomerID: "B1", Kind: domain.AccountKindInvestment, InitialDeposit: decimal.NewFromInt(1500),
	})
	assert.ErrorIs(t, err, domain.ErrMinimumDeposit)
}
