package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/autoledger/internal/domain"
	"github.com/dvloznov/autoledger/internal/taxonomy"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "ledger.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleTx(id, date string) domain.Transaction {
	return domain.Transaction{
		ID:       id,
		Type:     taxonomy.Expense,
		Amount:   decimal.RequireFromString("28.50"),
		Merchant: "星巴克",
		Category: taxonomy.Food,
		Date:     date,
	}
}

func TestAppendAndList(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleTx("one", "2024-01-01")))
	require.NoError(t, s.Append(ctx, sampleTx("two", "2024-01-02")))
	require.NoError(t, s.Append(ctx, sampleTx("three", "2024-01-03")))

	txs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	// Most recent first.
	assert.Equal(t, "three", txs[0].ID)
	assert.Equal(t, "two", txs[1].ID)
	assert.Equal(t, "one", txs[2].ID)
	assert.True(t, txs[0].Amount.Equal(decimal.RequireFromString("28.50")))
}

func TestAppendRejectsInvalid(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	bad := sampleTx("bad", "2024-01-01")
	bad.Category = taxonomy.Salary // income category on an expense
	err := s.Append(ctx, bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidCategory)
}

func TestAppendDuplicateID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleTx("dup", "2024-01-01")))
	assert.Error(t, s.Append(ctx, sampleTx("dup", "2024-01-02")))
}

func TestGet(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleTx("one", "2024-01-01")))

	tx, err := s.Get(ctx, "one")
	require.NoError(t, err)
	assert.Equal(t, "星巴克", tx.Merchant)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReplaceKeepsPosition(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleTx("one", "2024-01-01")))
	require.NoError(t, s.Append(ctx, sampleTx("two", "2024-01-02")))

	fixed := sampleTx("one", "2024-01-01")
	fixed.Amount = decimal.RequireFromString("30")
	fixed.Note = "corrected"
	require.NoError(t, s.Replace(ctx, fixed))

	txs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, txs, 2)
	assert.Equal(t, "two", txs[0].ID)
	assert.Equal(t, "one", txs[1].ID)
	assert.True(t, txs[1].Amount.Equal(decimal.RequireFromString("30")))
	assert.Equal(t, "corrected", txs[1].Note)
}

func TestReplaceMissing(t *testing.T) {
	s := openTestStore(t)
	err := s.Replace(context.Background(), sampleTx("ghost", "2024-01-01"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleTx("one", "2024-01-01")))
	require.NoError(t, s.Delete(ctx, "one"))

	txs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)

	assert.ErrorIs(t, s.Delete(ctx, "one"), ErrNotFound)
}

func TestClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, sampleTx("one", "2024-01-01")))
	require.NoError(t, s.Append(ctx, sampleTx("two", "2024-01-02")))
	require.NoError(t, s.Clear(ctx))

	txs, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, txs)
}
