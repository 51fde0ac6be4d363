package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/orderimport/internal/core"
)

type tx struct {
	db DBTX
}

func (t *tx) SaveCustomers(ctx context.Context, customers []core.Customer) error {
	src := pgx.CopyFromSlice(len(customers), func(i int) ([]any, error) {
		c := customers[i]
		return []any{int64(c.ID), c.Name}, nil
	})
	return t.copy(ctx, "customers", []string{"id", "name"}, len(customers), src)
}

func (t *tx) SaveOrders(ctx context.Context, orders []core.Order) error {
	src := pgx.CopyFromSlice(len(orders), func(i int) ([]any, error) {
		o := orders[i]
		return []any{int64(o.ID), dateArg(o.Date), int64(o.CustomerID)}, nil
	})
	return t.copy(ctx, "orders", []string{"id", "date", "customer_id"}, len(orders), src)
}

func (t *tx) SaveLineItems(ctx context.Context, items []core.OrderLineItem) error {
	src := pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
		item := items[i]
		return []any{int64(item.ProductID), decimalToNumeric(item.Value), int64(item.OrderID)}, nil
	})
	return t.copy(ctx, "order_line_items", []string{"product_id", "value", "order_id"}, len(items), src)
}

func (t *tx) copy(ctx context.Context, table string, columns []string, n int, src pgx.CopyFromSource) error {
	if n == 0 {
		return nil
	}
	copied, err := t.db.CopyFrom(ctx, pgx.Identifier{table}, columns, src)
	if err != nil {
		return fmt.Errorf("copy into %s: %w", table, translate(err))
	}
	if copied != int64(n) {
		return fmt.Errorf("copy into %s: wrote %d of %d rows", table, copied, n)
	}
	return nil
}

func (t *tx) InsertLedgerEntry(ctx context.Context, hash, filename string) (core.LedgerEntry, error) {
	entry := core.LedgerEntry{Filename: filename, Hash: hash}

	var id int64
	err := t.db.QueryRow(ctx,
		`INSERT INTO integration_control (filename, hash) VALUES ($1, $2) RETURNING id, imported_at`,
		filename, hash,
	).Scan(&id, &entry.ImportedAt)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", translate(err))
	}

	entry.ID = int(id)
	entry.ImportedAt = entry.ImportedAt.UTC()
	return entry, nil
}
