// Package storetest is a conformance suite run against every core.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/orderimport/internal/core"
)

// Factory returns an empty store. It must register its own cleanup.
type Factory func(t *testing.T) core.Store

// Run executes the suite. Each subtest gets a fresh store from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("LedgerMiss", func(t *testing.T) { testLedgerMiss(t, newStore(t)) })
	t.Run("CommitAndRead", func(t *testing.T) { testCommitAndRead(t, newStore(t)) })
	t.Run("RollbackOnError", func(t *testing.T) { testRollbackOnError(t, newStore(t)) })
	t.Run("DuplicateHash", func(t *testing.T) { testDuplicateHash(t, newStore(t)) })
	t.Run("DuplicateCustomer", func(t *testing.T) { testDuplicateCustomer(t, newStore(t)) })
	t.Run("DuplicateOrder", func(t *testing.T) { testDuplicateOrder(t, newStore(t)) })
	t.Run("Filters", func(t *testing.T) { testFilters(t, newStore(t)) })
	t.Run("ServiceRoundTrip", func(t *testing.T) { testServiceRoundTrip(t, newStore(t)) })
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// sampleBatch has two customers, three orders and four line items.
func sampleBatch() core.Batch {
	return core.Batch{
		Customers: []core.Customer{
			{ID: 70, Name: "Palmer Prosacco"},
			{ID: 75, Name: "Bobbie Batz"},
		},
		Orders: []core.Order{
			{ID: 753, Date: day(2021, 3, 8), CustomerID: 70},
			{ID: 798, Date: day(2021, 11, 16), CustomerID: 75},
			{ID: 10, Date: day(2021, 6, 1), CustomerID: 75},
		},
		LineItems: []core.OrderLineItem{
			{ProductID: 3, Value: dec("1836.74"), OrderID: 753},
			{ProductID: 4, Value: dec("618.79"), OrderID: 753},
			{ProductID: 1, Value: dec("1578.57"), OrderID: 798},
			{ProductID: 2, Value: dec("5.00"), OrderID: 10},
		},
	}
}

func save(ctx context.Context, tx core.Tx, b core.Batch) error {
	if err := tx.SaveCustomers(ctx, b.Customers); err != nil {
		return err
	}
	if err := tx.SaveOrders(ctx, b.Orders); err != nil {
		return err
	}
	return tx.SaveLineItems(ctx, b.LineItems)
}

func commit(t *testing.T, s core.Store, b core.Batch, hash, filename string) core.LedgerEntry {
	t.Helper()

	var entry core.LedgerEntry
	err := s.WithTx(context.Background(), func(tx core.Tx) error {
		if err := save(context.Background(), tx, b); err != nil {
			return err
		}
		var err error
		entry, err = tx.InsertLedgerEntry(context.Background(), hash, filename)
		return err
	})
	require.NoError(t, err)
	return entry
}

func testLedgerMiss(t *testing.T, s core.Store) {
	entry, err := s.FindLedgerEntry(context.Background(), "deadbeef")
	require.NoError(t, err)
	assert.Nil(t, entry)

	rows, err := s.QueryOrders(context.Background(), core.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func testCommitAndRead(t *testing.T, s core.Store) {
	before := time.Now().Add(-time.Minute)
	entry := commit(t, s, sampleBatch(), "hash-1", "data_1.txt")

	assert.Positive(t, entry.ID)
	assert.Equal(t, "hash-1", entry.Hash)
	assert.Equal(t, "data_1.txt", entry.Filename)
	assert.True(t, entry.ImportedAt.After(before), "ImportedAt = %v", entry.ImportedAt)

	found, err := s.FindLedgerEntry(context.Background(), "hash-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entry.ID, found.ID)
	assert.Equal(t, "data_1.txt", found.Filename)
	assert.WithinDuration(t, entry.ImportedAt, found.ImportedAt, time.Millisecond)

	rows, err := s.QueryOrders(context.Background(), core.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	byProduct := make(map[int]core.OrderRow)
	ids := make(map[int]bool)
	for _, r := range rows {
		byProduct[r.ProductID] = r
		assert.Positive(t, r.LineItemID)
		assert.False(t, ids[r.LineItemID], "line item id %d assigned twice", r.LineItemID)
		ids[r.LineItemID] = true
	}

	palmer := byProduct[3]
	assert.Equal(t, 70, palmer.CustomerID)
	assert.Equal(t, "Palmer Prosacco", palmer.CustomerName)
	assert.Equal(t, 753, palmer.OrderID)
	assert.True(t, palmer.OrderDate.Equal(day(2021, 3, 8)), "OrderDate = %v", palmer.OrderDate)
	assert.True(t, palmer.Value.Equal(dec("1836.74")), "Value = %s", palmer.Value)

	assert.True(t, byProduct[2].Value.Equal(dec("5")), "Value = %s", byProduct[2].Value)
	assert.Less(t, byProduct[3].LineItemID, byProduct[4].LineItemID, "ids follow insertion order")
}

func testRollbackOnError(t *testing.T, s core.Store) {
	boom := errors.New("boom")

	err := s.WithTx(context.Background(), func(tx core.Tx) error {
		if err := save(context.Background(), tx, sampleBatch()); err != nil {
			return err
		}
		if _, err := tx.InsertLedgerEntry(context.Background(), "hash-1", "data_1.txt"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	entry, err := s.FindLedgerEntry(context.Background(), "hash-1")
	require.NoError(t, err)
	assert.Nil(t, entry, "ledger entry must not survive a rollback")

	rows, err := s.QueryOrders(context.Background(), core.OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, rows, "rows must not survive a rollback")

	// The same rows can be written after the failed attempt.
	commit(t, s, sampleBatch(), "hash-1", "data_1.txt")
}

func testDuplicateHash(t *testing.T, s core.Store) {
	commit(t, s, core.Batch{}, "hash-1", "first.txt")

	err := s.WithTx(context.Background(), func(tx core.Tx) error {
		_, err := tx.InsertLedgerEntry(context.Background(), "hash-1", "second.txt")
		return err
	})
	require.ErrorIs(t, err, core.ErrDuplicateKey)

	found, err := s.FindLedgerEntry(context.Background(), "hash-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "first.txt", found.Filename)
}

func testDuplicateCustomer(t *testing.T, s core.Store) {
	commit(t, s, sampleBatch(), "hash-1", "data_1.txt")

	err := s.WithTx(context.Background(), func(tx core.Tx) error {
		return tx.SaveCustomers(context.Background(), []core.Customer{{ID: 70, Name: "Someone Else"}})
	})
	require.ErrorIs(t, err, core.ErrDuplicateKey)
}

func testDuplicateOrder(t *testing.T, s core.Store) {
	commit(t, s, sampleBatch(), "hash-1", "data_1.txt")

	err := s.WithTx(context.Background(), func(tx core.Tx) error {
		if err := tx.SaveCustomers(context.Background(), []core.Customer{{ID: 99, Name: "New"}}); err != nil {
			return err
		}
		return tx.SaveOrders(context.Background(), []core.Order{{ID: 753, Date: day(2022, 1, 1), CustomerID: 99}})
	})
	require.ErrorIs(t, err, core.ErrDuplicateKey)

	rows, err := s.QueryOrders(context.Background(), core.OrderFilter{})
	require.NoError(t, err)
	for _, r := range rows {
		assert.NotEqual(t, 99, r.CustomerID, "customer of a rolled back transaction is visible")
	}
}

func testFilters(t *testing.T, s core.Store) {
	commit(t, s, sampleBatch(), "hash-1", "data_1.txt")

	id := 753
	missing := 4242
	lo, hi := day(2021, 3, 8), day(2021, 6, 1)
	late := day(2030, 1, 1)

	tests := []struct {
		name       string
		filter     core.OrderFilter
		wantOrders []int
	}{
		{"no filter", core.OrderFilter{}, []int{753, 753, 798, 10}},
		{"order id", core.OrderFilter{OrderID: &id}, []int{753, 753}},
		{"unknown order id", core.OrderFilter{OrderID: &missing}, nil},
		{"inclusive date range", core.OrderFilter{MinDate: &lo, MaxDate: &hi}, []int{753, 753, 10}},
		{"single bound ignored", core.OrderFilter{MinDate: &late}, []int{753, 753, 798, 10}},
		{"order id and range", core.OrderFilter{OrderID: &id, MinDate: &hi, MaxDate: &late}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := s.QueryOrders(context.Background(), tt.filter)
			require.NoError(t, err)

			got := make([]int, 0, len(rows))
			for _, r := range rows {
				got = append(got, r.OrderID)
			}
			assert.ElementsMatch(t, tt.wantOrders, got)
		})
	}
}

// testServiceRoundTrip drives the import pipeline end to end.
func testServiceRoundTrip(t *testing.T, s core.Store) {
	svc := core.NewService(s, core.ServiceConfig{ChunkSize: 2}, nil, nil)
	data := []byte(SampleFile)

	result, err := svc.ImportBatch(context.Background(), "data_1.txt", data)
	require.NoError(t, err)
	assert.Equal(t, core.StateRecorded, result.State)
	assert.Equal(t, 2, result.Customers)
	assert.Equal(t, 3, result.Orders)
	assert.Equal(t, 4, result.LineItems)
	require.NotNil(t, result.Entry)

	_, err = svc.ImportBatch(context.Background(), "renamed.txt", data)
	var dup *core.AlreadyImportedError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "data_1.txt", dup.Filename)

	views, err := svc.ListOrders(context.Background(), core.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, views, 2)

	assert.Equal(t, 70, views[0].UserID)
	assert.Equal(t, "Palmer Prosacco", views[0].Name)
	require.Len(t, views[0].Orders, 1)
	assert.Equal(t, "2455.53", views[0].Orders[0].Total)
	assert.Equal(t, "2021-3-8", views[0].Orders[0].Date)

	require.Len(t, views[1].Orders, 2)
	assert.Equal(t, 798, views[1].Orders[0].OrderID, "newest order first")
	assert.Equal(t, 10, views[1].Orders[1].OrderID)
}

// SampleFile is a small order file with a trailer line.
var SampleFile = Line(70, "Palmer Prosacco", 753, 3, "1836.74", "20210308") + "\n" +
	Line(75, "Bobbie Batz", 798, 1, "1578.57", "20211116") + "\n" +
	Line(70, "Palmer Prosacco", 753, 4, "618.79", "20210308") + "\n" +
	Line(75, "Bobbie Batz", 10, 2, "5", "20210601") + "\n" +
	"TRAILER"
