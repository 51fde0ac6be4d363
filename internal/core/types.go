package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderLineRecord is one decoded line of an order file.
// It is produced by the parser and consumed by Normalize; it is never stored.
type OrderLineRecord struct {
	UserID    int
	Name      string
	OrderID   int
	ProductID int
	Value     decimal.Decimal
	Date      time.Time // Calendar date at UTC midnight
}

// Customer is identified by the user id taken from the file.
type Customer struct {
	ID   int
	Name string
}

// Order is identified by the order id taken from the file.
type Order struct {
	ID         int
	Date       time.Time
	CustomerID int
}

// OrderLineItem is one product line of an order.
// ID is assigned by the store on insert.
type OrderLineItem struct {
	ID        int
	ProductID int
	Value     decimal.Decimal // Rounded to 2 fractional digits
	OrderID   int
}

// LedgerEntry records a successfully imported file.
type LedgerEntry struct {
	ID         int
	Filename   string
	Hash       string
	ImportedAt time.Time
}

// Batch holds the normalized entity sets of one file, in first-seen order.
type Batch struct {
	Customers []Customer
	Orders    []Order
	LineItems []OrderLineItem
}

// OrderFilter narrows an order query. Nil fields are not applied.
// The date range only applies when both MinDate and MaxDate are set.
type OrderFilter struct {
	OrderID *int
	MinDate *time.Time
	MaxDate *time.Time
}

// HasDateRange reports whether both date bounds are present.
func (f OrderFilter) HasDateRange() bool {
	return f.MinDate != nil && f.MaxDate != nil
}

// LogArgs returns the filter as slog key/value pairs.
func (f OrderFilter) LogArgs() []any {
	args := make([]any, 0, 6)
	if f.OrderID != nil {
		args = append(args, "order_id", *f.OrderID)
	}
	if f.MinDate != nil {
		args = append(args, "min_date", f.MinDate.Format(time.DateOnly))
	}
	if f.MaxDate != nil {
		args = append(args, "max_date", f.MaxDate.Format(time.DateOnly))
	}
	return args
}

// OrderRow is one customer/order/line item join row returned by a store.
type OrderRow struct {
	CustomerID   int
	CustomerName string
	OrderID      int
	OrderDate    time.Time
	LineItemID   int
	ProductID    int
	Value        decimal.Decimal
}

// ProductView is a line item as presented to callers.
type ProductView struct {
	ProductID int    `json:"product_id" yaml:"product_id"`
	Value     string `json:"value" yaml:"value"`
}

// OrderView is an order with its formatted total and date.
type OrderView struct {
	OrderID  int           `json:"order_id" yaml:"order_id"`
	Total    string        `json:"total" yaml:"total"`
	Date     string        `json:"date" yaml:"date"`
	Products []ProductView `json:"products" yaml:"products"`
}

// CustomerOrdersView groups the matching orders of one customer.
type CustomerOrdersView struct {
	UserID int         `json:"user_id" yaml:"user_id"`
	Name   string      `json:"name" yaml:"name"`
	Orders []OrderView `json:"orders" yaml:"orders"`
}

// ImportState is the stage an import reached.
type ImportState string

const (
	StateReceived     ImportState = "received"
	StateHashed       ImportState = "hashed"
	StateDedupChecked ImportState = "dedup_checked"
	StateParsed       ImportState = "parsed"
	StateNormalized   ImportState = "normalized"
	StatePersisted    ImportState = "persisted"
	StateRecorded     ImportState = "recorded"
	StateRejected     ImportState = "rejected"
)

// ImportResult describes a finished import attempt.
type ImportResult struct {
	ImportID  string
	Filename  string
	Hash      string
	State     ImportState
	Customers int
	Orders    int
	LineItems int
	Entry     *LedgerEntry // Set once the ledger entry is committed
	Duration  time.Duration
}

// Store is the persistence collaborator of the core.
//
// Implementations must enforce a uniqueness constraint on ledger hashes and
// primary keys on customer and order ids, reporting violations wrapped with
// ErrDuplicateKey.
type Store interface {
	// FindLedgerEntry returns the entry for hash, or nil if none exists.
	FindLedgerEntry(ctx context.Context, hash string) (*LedgerEntry, error)

	// WithTx runs fn inside a transaction. The transaction commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// QueryOrders returns join rows matching filter, in any order.
	QueryOrders(ctx context.Context, filter OrderFilter) ([]OrderRow, error)
}

// Tx is the write side of a store transaction. Each Save call receives one
// chunk; chunking is decided by the caller.
type Tx interface {
	SaveCustomers(ctx context.Context, customers []Customer) error
	SaveOrders(ctx context.Context, orders []Order) error
	SaveLineItems(ctx context.Context, items []OrderLineItem) error
	InsertLedgerEntry(ctx context.Context, hash, filename string) (LedgerEntry, error)
}

// Metrics receives import and query outcomes. See internal/metrics.
type Metrics interface {
	ImportFinished(outcome string, lineItems int, d time.Duration)
	QueryFinished(outcome string, d time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ImportFinished(string, int, time.Duration) {}
func (nopMetrics) QueryFinished(string, time.Duration)       {}
