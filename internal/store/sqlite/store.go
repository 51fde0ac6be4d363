// Package sqlite implements core.Store on SQLite using mattn/go-sqlite3.
//
// The database is opened with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// SQLite allows a single writer, so the pool is limited to one connection.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/store/sqlq"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable order storage in a SQLite file.
type Store struct {
	db    *sql.DB
	nowFn func() time.Time
}

// Open creates or opens the database at path and applies the schema.
// A path that already carries query parameters is used unchanged.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	s := &Store{db: db, nowFn: time.Now}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// SetNowFunc overrides the clock used for ledger timestamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.nowFn = fn
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates missing tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// dsn repeats the connection-scoped pragmas as driver parameters so any
// new pool connection gets them too.
func dsn(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on&_busy_timeout=5000"
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// FindLedgerEntry implements core.Store.
func (s *Store) FindLedgerEntry(ctx context.Context, hash string) (*core.LedgerEntry, error) {
	var (
		entry      core.LedgerEntry
		importedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, filename, hash, imported_at FROM integration_control WHERE hash = ?`, hash,
	).Scan(&entry.ID, &entry.Filename, &entry.Hash, &importedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	entry.ImportedAt, err = time.Parse(time.RFC3339Nano, importedAt)
	if err != nil {
		return nil, fmt.Errorf("parse imported_at %q: %w", importedAt, err)
	}
	return &entry, nil
}

// WithTx implements core.Store.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", translate(err))
	}
	defer sqlTx.Rollback()

	if err := fn(&tx{tx: sqlTx, now: s.nowFn}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", translate(err))
	}
	return nil
}

const ordersQuery = `
SELECT c.id, c.name, o.id, o.date, li.id, li.product_id, li.value
FROM customers c
JOIN orders o ON o.customer_id = c.id
JOIN order_line_items li ON li.order_id = o.id`

// QueryOrders implements core.Store.
func (s *Store) QueryOrders(ctx context.Context, filter core.OrderFilter) ([]core.OrderRow, error) {
	where, args := sqlq.NewWhereBuilder(sqlq.Question).
		OrderFilter(filter, "o.id", "o.date", dateArg).
		Build()

	rows, err := s.db.QueryContext(ctx, ordersQuery+where+" ORDER BY c.id, o.date DESC, o.id, li.id", args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []core.OrderRow
	for rows.Next() {
		var (
			row  core.OrderRow
			date string
		)
		if err := rows.Scan(&row.CustomerID, &row.CustomerName, &row.OrderID, &date,
			&row.LineItemID, &row.ProductID, &row.Value); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		if row.OrderDate, err = time.Parse(time.DateOnly, date); err != nil {
			return nil, fmt.Errorf("parse order date %q: %w", date, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return out, nil
}

func dateArg(t time.Time) any {
	return t.Format(time.DateOnly)
}

// translate wraps unique and primary key violations with core.ErrDuplicateKey.
func translate(err error) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		switch sqErr.ExtendedCode {
		case sqlite3.ErrConstraintUnique, sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%w: %v", core.ErrDuplicateKey, err)
		}
	}
	return err
}
