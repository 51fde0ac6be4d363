// Package memory provides an in-process implementation of core.Store.
//
// Each transaction works on a private copy of the state and swaps it in on
// commit, so a failed transaction leaves nothing behind. Writers are
// serialized by a single mutex. Data is lost when the process exits; use it
// for tests and demos.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/JonMunkholm/orderimport/internal/core"
)

type state struct {
	customers map[int]core.Customer
	orders    map[int]core.Order
	items     []core.OrderLineItem
	ledger    map[string]core.LedgerEntry

	nextItemID   int
	nextLedgerID int
}

func newState() state {
	return state{
		customers:    make(map[int]core.Customer),
		orders:       make(map[int]core.Order),
		ledger:       make(map[string]core.LedgerEntry),
		nextItemID:   1,
		nextLedgerID: 1,
	}
}

func (s state) clone() state {
	return state{
		customers:    maps.Clone(s.customers),
		orders:       maps.Clone(s.orders),
		items:        slices.Clone(s.items),
		ledger:       maps.Clone(s.ledger),
		nextItemID:   s.nextItemID,
		nextLedgerID: s.nextLedgerID,
	}
}

// Store is a mutex-guarded in-memory store.
type Store struct {
	mu    sync.RWMutex
	state state
	nowFn func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		state: newState(),
		nowFn: time.Now,
	}
}

// SetNowFunc overrides the clock used for ledger timestamps.
func (s *Store) SetNowFunc(fn func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// Migrate is a no-op; the store has no schema.
func (s *Store) Migrate(context.Context) error { return nil }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// FindLedgerEntry implements core.Store.
func (s *Store) FindLedgerEntry(ctx context.Context, hash string) (*core.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.state.ledger[hash]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

// WithTx implements core.Store.
func (s *Store) WithTx(ctx context.Context, fn func(tx core.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &transaction{state: s.state.clone(), now: s.nowFn().UTC()}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.state = tx.state
	return nil
}

// QueryOrders implements core.Store.
func (s *Store) QueryOrders(ctx context.Context, filter core.OrderFilter) ([]core.OrderRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []core.OrderRow
	for _, item := range s.state.items {
		order := s.state.orders[item.OrderID]
		if !matches(order, filter) {
			continue
		}
		customer := s.state.customers[order.CustomerID]
		rows = append(rows, core.OrderRow{
			CustomerID:   customer.ID,
			CustomerName: customer.Name,
			OrderID:      order.ID,
			OrderDate:    order.Date,
			LineItemID:   item.ID,
			ProductID:    item.ProductID,
			Value:        item.Value,
		})
	}
	return rows, nil
}

func matches(o core.Order, f core.OrderFilter) bool {
	if f.OrderID != nil && o.ID != *f.OrderID {
		return false
	}
	if f.HasDateRange() && (o.Date.Before(*f.MinDate) || o.Date.After(*f.MaxDate)) {
		return false
	}
	return true
}

type transaction struct {
	state state
	now   time.Time
}

func (t *transaction) SaveCustomers(ctx context.Context, customers []core.Customer) error {
	for _, c := range customers {
		if _, ok := t.state.customers[c.ID]; ok {
			return fmt.Errorf("customer %d: %w", c.ID, core.ErrDuplicateKey)
		}
		t.state.customers[c.ID] = c
	}
	return nil
}

func (t *transaction) SaveOrders(ctx context.Context, orders []core.Order) error {
	for _, o := range orders {
		if _, ok := t.state.orders[o.ID]; ok {
			return fmt.Errorf("order %d: %w", o.ID, core.ErrDuplicateKey)
		}
		if _, ok := t.state.customers[o.CustomerID]; !ok {
			return fmt.Errorf("order %d: customer %d does not exist", o.ID, o.CustomerID)
		}
		t.state.orders[o.ID] = o
	}
	return nil
}

func (t *transaction) SaveLineItems(ctx context.Context, items []core.OrderLineItem) error {
	for _, item := range items {
		if _, ok := t.state.orders[item.OrderID]; !ok {
			return fmt.Errorf("line item: order %d does not exist", item.OrderID)
		}
		item.ID = t.state.nextItemID
		t.state.nextItemID++
		t.state.items = append(t.state.items, item)
	}
	return nil
}

func (t *transaction) InsertLedgerEntry(ctx context.Context, hash, filename string) (core.LedgerEntry, error) {
	if _, ok := t.state.ledger[hash]; ok {
		return core.LedgerEntry{}, fmt.Errorf("ledger hash %s: %w", hash, core.ErrDuplicateKey)
	}
	entry := core.LedgerEntry{
		ID:         t.state.nextLedgerID,
		Filename:   filename,
		Hash:       hash,
		ImportedAt: t.now,
	}
	t.state.nextLedgerID++
	t.state.ledger[hash] = entry
	return entry, nil
}
