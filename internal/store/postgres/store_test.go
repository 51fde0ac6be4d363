package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/store/storetest"
)

// openTestStore connects to TEST_DATABASE_URL and empties every table.
// The tests are skipped when the variable is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	s, err := Open(ctx, url, PoolConfig{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	_, err = s.pool.Exec(ctx,
		`TRUNCATE order_line_items, orders, customers, integration_control RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) core.Store {
		return openTestStore(t)
	})
}

func TestNumericConversion(t *testing.T) {
	tests := []string{"1836.74", "0.01", "5", "-12.50", "99999999.99"}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			d := decimal.RequireFromString(in)

			got, err := numericToDecimal(decimalToNumeric(d))
			require.NoError(t, err)
			assert.True(t, d.Equal(got), "got %s, want %s", got, d)
		})
	}
}

func TestNumericConversion_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   pgtype.Numeric
	}{
		{"null", pgtype.Numeric{}},
		{"nan", pgtype.Numeric{NaN: true, Valid: true}},
		{"infinity", pgtype.Numeric{InfinityModifier: pgtype.Infinity, Valid: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := numericToDecimal(tt.in)
			require.Error(t, err)
		})
	}
}
