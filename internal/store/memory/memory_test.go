package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/store/storetest"
)

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store {
		return New()
	})
}

func TestSetNowFunc(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))
	s := New()
	s.SetNowFunc(func() time.Time { return fixed })

	err := s.WithTx(context.Background(), func(tx core.Tx) error {
		_, err := tx.InsertLedgerEntry(context.Background(), "h", "f.txt")
		return err
	})
	require.NoError(t, err)

	entry, err := s.FindLedgerEntry(context.Background(), "h")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, time.UTC, entry.ImportedAt.Location())
	assert.True(t, entry.ImportedAt.Equal(fixed))
}

func TestWithTx_CanceledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.WithTx(ctx, func(tx core.Tx) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSaveOrders_UnknownCustomer(t *testing.T) {
	s := New()

	err := s.WithTx(context.Background(), func(tx core.Tx) error {
		return tx.SaveOrders(context.Background(), []core.Order{{ID: 1, CustomerID: 9}})
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDuplicateKey)
}
