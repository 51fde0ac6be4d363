// Package postgres implements core.Store on PostgreSQL using pgx.
//
// Entity chunks are written with the COPY protocol inside a single
// transaction. Unique violations (SQLSTATE 23505) are reported wrapped with
// core.ErrDuplicateKey.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/orderimport/internal/core"
	"github.com/JonMunkholm/orderimport/internal/store/sqlq"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the SQLSTATE for unique and primary key violations.
const uniqueViolation = "23505"

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error)
}

// PoolConfig tunes the connection pool. Zero values keep pgx defaults.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Store is a pgxpool-backed order store.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses url, applies cfg and verifies the connection.
func Open(ctx context.Context, url string, cfg PoolConfig) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{pool: pool}, nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate creates missing tables and indexes. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// FindLedgerEntry implements core.Store.
func (s *Store) FindLedgerEntry(ctx context.Context, hash string) (*core.LedgerEntry, error) {
	var (
		entry core.LedgerEntry
		id    int64
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id, filename, hash, imported_at FROM integration_control WHERE hash = $1`, hash,
	).Scan(&id, &entry.Filename, &entry.Hash, &entry.ImportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	entry.ID = int(id)
	entry.ImportedAt = entry.ImportedAt.UTC()
	return &entry, nil
}

// WithTx implements core.Store.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	pgTx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer pgTx.Rollback(ctx) // No-op if already committed

	if err := fn(&tx{db: pgTx}); err != nil {
		return err
	}

	if err := pgTx.Commit(ctx); err != nil {
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
	where, args := sqlq.NewWhereBuilder(sqlq.Dollar).
		OrderFilter(filter, "o.id", "o.date", dateArg).
		Build()

	rows, err := s.pool.Query(ctx, ordersQuery+where+" ORDER BY c.id, o.date DESC, o.id, li.id", args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []core.OrderRow
	for rows.Next() {
		var (
			customerID, orderID, itemID, productID int64
			row                                    core.OrderRow
			date                                   pgtype.Date
			value                                  pgtype.Numeric
		)
		if err := rows.Scan(&customerID, &row.CustomerName, &orderID, &date,
			&itemID, &productID, &value); err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}

		row.CustomerID = int(customerID)
		row.OrderID = int(orderID)
		row.LineItemID = int(itemID)
		row.ProductID = int(productID)
		row.OrderDate = date.Time
		if row.Value, err = numericToDecimal(value); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return out, nil
}

func dateArg(t time.Time) any {
	return pgtype.Date{Time: t, Valid: true}
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func numericToDecimal(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid || n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Decimal{}, fmt.Errorf("unexpected numeric value %+v", n)
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

// translate wraps unique violations with core.ErrDuplicateKey.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s (%s)", core.ErrDuplicateKey, pgErr.Message, pgErr.ConstraintName)
	}
	return err
}
