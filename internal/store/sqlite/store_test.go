package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/store/storetest"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store {
		return openTestStore(t)
	})
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	tests := []struct {
		pragma string
		want   string
	}{
		{"journal_mode", "wal"},
		{"foreign_keys", "1"},
		{"busy_timeout", "5000"},
	}

	for _, tt := range tests {
		t.Run(tt.pragma, func(t *testing.T) {
			var got string
			require.NoError(t, s.db.QueryRow("PRAGMA "+tt.pragma).Scan(&got))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestSaveOrders_ForeignKeyEnforced(t *testing.T) {
	s := openTestStore(t)

	err := s.WithTx(context.Background(), func(tx core.Tx) error {
		return tx.SaveOrders(context.Background(), []core.Order{{ID: 1, CustomerID: 9}})
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrDuplicateKey)
}

func TestReopen_KeepsLedger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.db")

	s, err := Open(path)
	require.NoError(t, err)
	err = s.WithTx(context.Background(), func(tx core.Tx) error {
		_, err := tx.InsertLedgerEntry(context.Background(), "h", "data.txt")
		return err
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	entry, err := s.FindLedgerEntry(context.Background(), "h")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "data.txt", entry.Filename)
}

func TestSave_ChunkAboveVariableLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// 20000 customers need 40000 bind parameters in a single chunk.
	customers := make([]core.Customer, 20000)
	for i := range customers {
		customers[i] = core.Customer{ID: i + 1, Name: "Customer"}
	}

	err := s.WithTx(ctx, func(tx core.Tx) error {
		return tx.SaveCustomers(ctx, customers)
	})
	require.NoError(t, err)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&n))
	assert.Equal(t, len(customers), n)
}

func TestSave_SplitStatementsRollBackTogether(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// The duplicate sits in the second statement of the chunk.
	customers := make([]core.Customer, maxVariables/2+10)
	for i := range customers {
		customers[i] = core.Customer{ID: i + 1, Name: "Customer"}
	}
	customers[len(customers)-1].ID = 1

	err := s.WithTx(ctx, func(tx core.Tx) error {
		return tx.SaveCustomers(ctx, customers)
	})
	require.ErrorIs(t, err, core.ErrDuplicateKey)

	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM customers").Scan(&n))
	assert.Zero(t, n)
}
