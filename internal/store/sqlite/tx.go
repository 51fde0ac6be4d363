package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/store/sqlq"
)

type tx struct {
	tx  *sql.Tx
	now func() time.Time
}

func (t *tx) SaveCustomers(ctx context.Context, customers []core.Customer) error {
	if len(customers) == 0 {
		return nil
	}
	args := make([]any, 0, len(customers)*2)
	for _, c := range customers {
		args = append(args, c.ID, c.Name)
	}
	return t.insert(ctx, "customers (id, name)", len(customers), 2, args)
}

func (t *tx) SaveOrders(ctx context.Context, orders []core.Order) error {
	if len(orders) == 0 {
		return nil
	}
	args := make([]any, 0, len(orders)*3)
	for _, o := range orders {
		args = append(args, o.ID, dateArg(o.Date), o.CustomerID)
	}
	return t.insert(ctx, "orders (id, date, customer_id)", len(orders), 3, args)
}

func (t *tx) SaveLineItems(ctx context.Context, items []core.OrderLineItem) error {
	if len(items) == 0 {
		return nil
	}
	args := make([]any, 0, len(items)*3)
	for _, item := range items {
		args = append(args, item.ProductID, item.Value.StringFixed(2), item.OrderID)
	}
	return t.insert(ctx, "order_line_items (product_id, value, order_id)", len(items), 3, args)
}

// maxVariables is SQLite's default SQLITE_MAX_VARIABLE_NUMBER.
const maxVariables = 32766

// insert writes rows in as many statements as the bind parameter limit needs.
func (t *tx) insert(ctx context.Context, target string, rows, cols int, args []any) error {
	per := maxVariables / cols
	for start := 0; start < rows; start += per {
		end := min(start+per, rows)
		query := "INSERT INTO " + target + " VALUES " + sqlq.Values(sqlq.Question, end-start, cols)
		if _, err := t.tx.ExecContext(ctx, query, args[start*cols:end*cols]...); err != nil {
			return fmt.Errorf("insert rows %d-%d: %w", start, end-1, translate(err))
		}
	}
	return nil
}

func (t *tx) InsertLedgerEntry(ctx context.Context, hash, filename string) (core.LedgerEntry, error) {
	importedAt := t.now().UTC()

	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO integration_control (filename, hash, imported_at) VALUES (?, ?, ?)`,
		filename, hash, importedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("insert ledger entry: %w", translate(err))
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("ledger entry id: %w", err)
	}

	return core.LedgerEntry{
		ID:         int(id),
		Filename:   filename,
		Hash:       hash,
		ImportedAt: importedAt,
	}, nil
}
