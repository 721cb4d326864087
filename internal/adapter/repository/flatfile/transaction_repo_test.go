package flatfile

import (
	"context"
	"testing"

	"github.com/simaogato/ledger-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransactionRepository_AppendOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewTransactionRepository(store)

	first := deposit("100")
	second := deposit("50")
	second.Description = "Transfer to CHQ-1"
	second.Type = domain.TransactionTypeTransfer
	second.Amount = second.Amount.Neg()

	require.NoError(t, repo.Append(ctx, "SAV-1", first))
	require.NoError(t, repo.Append(ctx, "SAV-1", second))

	assert.Equal(t,
		"SAV-1|2026-05-01|Deposit|100.00|DEPOSIT|100.00|2026-05-01 09:30:00\n"+
			"SAV-1|2026-05-01|Transfer to CHQ-1|-50.00|TRANSFER|50.00|2026-05-01 09:30:00\n",
		readFile(t, store, TransactionsFile))

	log, err := repo.ListByAccount(ctx, "SAV-1")
	require.NoError(t, err)
	require.Len(t, log, 2)
	assert.Equal(t, "Deposit", log[0].Description)
	assert.Equal(t, "-50.00", log[1].Delta().StringFixed(2))
	assert.True(t, first.Date.Equal(log[0].Date))
}

func TestTransactionRepository_LegacyRecords(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	writeFile(t, store, TransactionsFile,
		"CHQ-1|2024-02-03|Cash|200.0|Credit|200.0\n"+
			"CHQ-1|2024-02-04 10:11:12|ATM|50|Debit|150\n"+
			"CHQ-1|not-a-date|ATM|50|Debit|150\n"+
			"CHQ-1|2024-02-05|ATM|fifty|Debit|150\n")

	logs, err := NewTransactionRepository(store).LoadAll(ctx)
	require.NoError(t, err)

	log := logs["CHQ-1"]
	require.Len(t, log, 2)
	assert.Equal(t, domain.TransactionTypeCredit, log[0].Type)
	assert.Equal(t, "-50.00", log[1].Delta().StringFixed(2))
	assert.Equal(t, "150.00", domain.Fold(log).StringFixed(2))
	assert.Equal(t, 4, log[1].Date.Day())
}
