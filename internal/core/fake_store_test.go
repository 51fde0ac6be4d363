package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var errStoreDown = errors.New("connection refused")

// fakeStore keeps committed data in maps and stages each transaction
// separately, so a failed transaction leaves no trace.
type fakeStore struct {
	mu        sync.Mutex
	customers map[int]Customer
	orders    map[int]Order
	items     []OrderLineItem
	ledger    map[string]LedgerEntry
	nextID    int

	txCount int
	calls   []string // "<table>:<rows>" per Save call

	failOn   string // table whose Save call fails
	failErr  error
	findErr  error
	rows     []OrderRow
	queryErr error

	// beforeLedgerInsert runs inside InsertLedgerEntry before the
	// uniqueness check.
	beforeLedgerInsert func(s *fakeStore)
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		customers: make(map[int]Customer),
		orders:    make(map[int]Order),
		ledger:    make(map[string]LedgerEntry),
	}
}

func (s *fakeStore) FindLedgerEntry(_ context.Context, hash string) (*LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.findErr != nil {
		return nil, s.findErr
	}
	entry, ok := s.ledger[hash]
	if !ok {
		return nil, nil
	}
	return &entry, nil
}

func (s *fakeStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	s.txCount++
	s.mu.Unlock()

	tx := &fakeTx{store: s, ledger: make(map[string]LedgerEntry)}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range tx.customers {
		s.customers[c.ID] = c
	}
	for _, o := range tx.orders {
		s.orders[o.ID] = o
	}
	for _, it := range tx.items {
		s.nextID++
		it.ID = s.nextID
		s.items = append(s.items, it)
	}
	for h, e := range tx.ledger {
		s.ledger[h] = e
	}
	return nil
}

func (s *fakeStore) QueryOrders(context.Context, OrderFilter) ([]OrderRow, error) {
	return s.rows, s.queryErr
}

// commitLedger inserts a ledger entry as if another import had committed it.
func (s *fakeStore) commitLedger(hash, filename string) {
	s.ledger[hash] = LedgerEntry{
		ID:         len(s.ledger) + 1,
		Filename:   filename,
		Hash:       hash,
		ImportedAt: time.Date(2021, time.March, 9, 12, 0, 0, 0, time.UTC),
	}
}

func (s *fakeStore) counts() (customers, orders, items, ledger int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.customers), len(s.orders), len(s.items), len(s.ledger)
}

type fakeTx struct {
	store     *fakeStore
	customers []Customer
	orders    []Order
	items     []OrderLineItem
	ledger    map[string]LedgerEntry
}

func (tx *fakeTx) record(table string, n int) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, fmt.Sprintf("%s:%d", table, n))
	if s.failOn == table {
		return s.failErr
	}
	return nil
}

func (tx *fakeTx) SaveCustomers(_ context.Context, customers []Customer) error {
	if err := tx.record("customers", len(customers)); err != nil {
		return err
	}
	tx.customers = append(tx.customers, customers...)
	return nil
}

func (tx *fakeTx) SaveOrders(_ context.Context, orders []Order) error {
	if err := tx.record("orders", len(orders)); err != nil {
		return err
	}
	tx.orders = append(tx.orders, orders...)
	return nil
}

func (tx *fakeTx) SaveLineItems(_ context.Context, items []OrderLineItem) error {
	if err := tx.record("line_items", len(items)); err != nil {
		return err
	}
	tx.items = append(tx.items, items...)
	return nil
}

func (tx *fakeTx) InsertLedgerEntry(_ context.Context, hash, filename string) (LedgerEntry, error) {
	if err := tx.record("ledger", 1); err != nil {
		return LedgerEntry{}, err
	}

	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.beforeLedgerInsert != nil {
		s.beforeLedgerInsert(s)
	}
	if _, ok := s.ledger[hash]; ok {
		return LedgerEntry{}, fmt.Errorf("ledger hash %s: %w", hash, ErrDuplicateKey)
	}

	entry := LedgerEntry{
		ID:         len(s.ledger) + 1,
		Filename:   filename,
		Hash:       hash,
		ImportedAt: time.Now().UTC(),
	}
	tx.ledger[hash] = entry
	return entry, nil
}

type fakeMetrics struct {
	mu       sync.Mutex
	imports  []string
	queries  []string
	rowsSeen int
}

func (m *fakeMetrics) ImportFinished(outcome string, lineItems int, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports = append(m.imports, outcome)
	m.rowsSeen += lineItems
}

func (m *fakeMetrics) QueryFinished(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, outcome)
}
