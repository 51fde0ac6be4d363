package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bufferLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, nil))
}

// sampleOrders holds 2 customers, 3 orders and 4 line items.
func sampleOrders() []byte {
	lines := []string{
		testLine(70, "Palmer Prosacco", 753, 3, "1836.74", "20210308"),
		testLine(75, "Bobbie Batz", 798, 1, "1578.57", "20211116"),
		testLine(70, "Palmer Prosacco", 753, 4, "618.79", "20210308"),
		testLine(75, "Bobbie Batz", 10, 2, "5", "20210601"),
		"TRAILER",
	}
	return []byte(strings.Join(lines, "\n"))
}

func assertCounts(t *testing.T, s *fakeStore, customers, orders, items, ledger int) {
	t.Helper()
	c, o, i, l := s.counts()
	if c != customers || o != orders || i != items || l != ledger {
		t.Errorf("stored customers=%d orders=%d items=%d ledger=%d, want %d/%d/%d/%d",
			c, o, i, l, customers, orders, items, ledger)
	}
}

// ============================================================================
// ImportBatch Tests
// ============================================================================

func TestImportBatch_Success(t *testing.T) {
	store := newFakeStore()
	metrics := &fakeMetrics{}
	svc := NewService(store, ServiceConfig{}, discardLogger(), metrics)
	data := sampleOrders()

	result, err := svc.ImportBatch(context.Background(), "data_1.txt", data)
	if err != nil {
		t.Fatalf("ImportBatch() error = %v", err)
	}

	if result.State != StateRecorded {
		t.Errorf("State = %s, want %s", result.State, StateRecorded)
	}
	if result.Customers != 2 || result.Orders != 3 || result.LineItems != 4 {
		t.Errorf("counts = %d/%d/%d, want 2/3/4", result.Customers, result.Orders, result.LineItems)
	}
	if result.Hash != HashFile(data) {
		t.Errorf("Hash = %s, want digest of the raw bytes", result.Hash)
	}
	if _, err := uuid.Parse(result.ImportID); err != nil {
		t.Errorf("ImportID %q is not a UUID: %v", result.ImportID, err)
	}
	if result.Entry == nil || result.Entry.Filename != "data_1.txt" || result.Entry.Hash != result.Hash {
		t.Errorf("Entry = %+v, want ledger entry for data_1.txt", result.Entry)
	}

	assertCounts(t, store, 2, 3, 4, 1)
	if !reflect.DeepEqual(metrics.imports, []string{OutcomeImported}) {
		t.Errorf("import outcomes = %v", metrics.imports)
	}
	if metrics.rowsSeen != 4 {
		t.Errorf("line items reported = %d, want 4", metrics.rowsSeen)
	}
}

func TestImportBatch_AlreadyImported(t *testing.T) {
	store := newFakeStore()
	metrics := &fakeMetrics{}
	svc := NewService(store, ServiceConfig{}, discardLogger(), metrics)
	ctx := context.Background()
	data := sampleOrders()

	if _, err := svc.ImportBatch(ctx, "data_1.txt", data); err != nil {
		t.Fatalf("first import: %v", err)
	}

	result, err := svc.ImportBatch(ctx, "renamed.txt", data)

	var dup *AlreadyImportedError
	if !errors.As(err, &dup) {
		t.Fatalf("ImportBatch() error = %v, want *AlreadyImportedError", err)
	}
	if !errors.Is(err, ErrAlreadyImported) {
		t.Error("error does not match ErrAlreadyImported")
	}
	if dup.Filename != "data_1.txt" {
		t.Errorf("Filename = %q, want the original file name", dup.Filename)
	}
	if result.State != StateRejected {
		t.Errorf("State = %s, want %s", result.State, StateRejected)
	}
	if store.txCount != 1 {
		t.Errorf("transactions = %d, want 1", store.txCount)
	}

	assertCounts(t, store, 2, 3, 4, 1)
	want := []string{OutcomeImported, OutcomeAlreadyImported}
	if !reflect.DeepEqual(metrics.imports, want) {
		t.Errorf("import outcomes = %v, want %v", metrics.imports, want)
	}
}

func TestImportBatch_Malformed(t *testing.T) {
	store := newFakeStore()
	metrics := &fakeMetrics{}
	svc := NewService(store, ServiceConfig{}, discardLogger(), metrics)

	data := testLine(70, "Palmer Prosacco", 753, 3, "1836.74", "20210308") + "\n" +
		testLine(75, "Bobbie Batz", 798, 1, "15x8.57", "20211116") + "\nTRAILER"

	result, err := svc.ImportBatch(context.Background(), "bad.txt", []byte(data))

	var recErr *RecordError
	if !errors.As(err, &recErr) {
		t.Fatalf("ImportBatch() error = %v, want *RecordError", err)
	}
	if recErr.Line != 2 || recErr.Field != "value" {
		t.Errorf("RecordError = %+v, want line 2 field value", recErr)
	}
	if result.State != StateRejected {
		t.Errorf("State = %s, want %s", result.State, StateRejected)
	}
	if store.txCount != 0 {
		t.Errorf("transactions = %d, want none for a malformed file", store.txCount)
	}

	assertCounts(t, store, 0, 0, 0, 0)
	if !reflect.DeepEqual(metrics.imports, []string{OutcomeMalformed}) {
		t.Errorf("import outcomes = %v", metrics.imports)
	}
}

func TestImportBatch_PersistFailure(t *testing.T) {
	tests := []struct {
		name        string
		failOn      string
		failErr     error
		wantLogLine string
	}{
		{"storage error", "orders", errors.New("disk full"), "key_conflict=false"},
		{"duplicate key", "customers", fmt.Errorf("customer 70: %w", ErrDuplicateKey), "key_conflict=true"},
		{"ledger insert error", "ledger", errStoreDown, "key_conflict=false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			store.failOn = tt.failOn
			store.failErr = tt.failErr
			metrics := &fakeMetrics{}
			var logs bytes.Buffer
			svc := NewService(store, ServiceConfig{}, bufferLogger(&logs), metrics)

			result, err := svc.ImportBatch(context.Background(), "data_1.txt", sampleOrders())

			if err != ErrImportFailed {
				t.Fatalf("ImportBatch() error = %v, want bare ErrImportFailed", err)
			}
			if result.State != StateRejected {
				t.Errorf("State = %s, want %s", result.State, StateRejected)
			}
			if !strings.Contains(logs.String(), tt.wantLogLine) {
				t.Errorf("log does not contain %q:\n%s", tt.wantLogLine, logs.String())
			}

			assertCounts(t, store, 0, 0, 0, 0)
			if !reflect.DeepEqual(metrics.imports, []string{OutcomeFailed}) {
				t.Errorf("import outcomes = %v", metrics.imports)
			}
		})
	}
}

func TestImportBatch_RetryAfterFailure(t *testing.T) {
	store := newFakeStore()
	store.failOn = "line_items"
	store.failErr = errors.New("disk full")
	svc := NewService(store, ServiceConfig{}, discardLogger(), nil)
	ctx := context.Background()
	data := sampleOrders()

	if _, err := svc.ImportBatch(ctx, "data_1.txt", data); !errors.Is(err, ErrImportFailed) {
		t.Fatalf("first import error = %v, want ErrImportFailed", err)
	}

	store.failOn = ""
	if _, err := svc.ImportBatch(ctx, "data_1.txt", data); err != nil {
		t.Fatalf("retry error = %v, want success", err)
	}
	assertCounts(t, store, 2, 3, 4, 1)
}

func TestImportBatch_ConcurrentDuplicate(t *testing.T) {
	store := newFakeStore()
	data := sampleOrders()
	digest := HashFile(data)
	store.beforeLedgerInsert = func(s *fakeStore) {
		s.commitLedger(digest, "concurrent.txt")
	}
	metrics := &fakeMetrics{}
	svc := NewService(store, ServiceConfig{}, discardLogger(), metrics)

	_, err := svc.ImportBatch(context.Background(), "data_1.txt", data)

	var dup *AlreadyImportedError
	if !errors.As(err, &dup) {
		t.Fatalf("ImportBatch() error = %v, want *AlreadyImportedError", err)
	}
	if dup.Filename != "concurrent.txt" {
		t.Errorf("Filename = %q, want the winning import", dup.Filename)
	}

	assertCounts(t, store, 0, 0, 0, 1)
	if !reflect.DeepEqual(metrics.imports, []string{OutcomeAlreadyImported}) {
		t.Errorf("import outcomes = %v", metrics.imports)
	}
}

func TestImportBatch_LedgerLookupFails(t *testing.T) {
	store := newFakeStore()
	store.findErr = errStoreDown
	svc := NewService(store, ServiceConfig{}, discardLogger(), nil)

	result, err := svc.ImportBatch(context.Background(), "data_1.txt", sampleOrders())

	if !errors.Is(err, ErrImportFailed) {
		t.Fatalf("ImportBatch() error = %v, want ErrImportFailed", err)
	}
	if errors.Is(err, errStoreDown) {
		t.Error("error exposes the store failure")
	}
	if result.Hash == "" {
		t.Error("Hash should be set before the ledger lookup")
	}
	if store.txCount != 0 {
		t.Errorf("transactions = %d, want 0", store.txCount)
	}
}

func TestImportBatch_Busy(t *testing.T) {
	store := newFakeStore()
	metrics := &fakeMetrics{}
	svc := NewService(store, ServiceConfig{MaxConcurrent: 1, MaxWaitTime: 20 * time.Millisecond},
		discardLogger(), metrics)

	if !svc.Limiter().TryAcquire() {
		t.Fatal("TryAcquire() = false on an idle limiter")
	}
	defer svc.Limiter().Release()

	result, err := svc.ImportBatch(context.Background(), "data_1.txt", sampleOrders())

	if !errors.Is(err, ErrTooManyImports) {
		t.Fatalf("ImportBatch() error = %v, want ErrTooManyImports", err)
	}
	if result.State != StateRejected || result.Hash != "" {
		t.Errorf("result = %+v, want rejected before hashing", result)
	}

	assertCounts(t, store, 0, 0, 0, 0)
	if !reflect.DeepEqual(metrics.imports, []string{OutcomeBusy}) {
		t.Errorf("import outcomes = %v", metrics.imports)
	}
}

func TestImportBatch_ReleasesSlot(t *testing.T) {
	svc := NewService(newFakeStore(), ServiceConfig{MaxConcurrent: 1}, discardLogger(), nil)
	ctx := context.Background()

	if _, err := svc.ImportBatch(ctx, "bad.txt", []byte("short\nTRAILER")); err == nil {
		t.Fatal("expected a malformed file error")
	}
	if got := svc.Limiter().ActiveCount(); got != 0 {
		t.Errorf("ActiveCount() = %d after a failed import, want 0", got)
	}
}

func TestImportBatch_Chunks(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, ServiceConfig{ChunkSize: 2}, discardLogger(), nil)

	lines := make([]string, 0, 6)
	for i := 1; i <= 5; i++ {
		lines = append(lines, testLine(i%3+1, "Customer", i, 1, "1.00", "20210101"))
	}
	lines = append(lines, "TRAILER")

	if _, err := svc.ImportBatch(context.Background(), "data.txt", []byte(strings.Join(lines, "\n"))); err != nil {
		t.Fatalf("ImportBatch() error = %v", err)
	}

	want := []string{
		"customers:2", "customers:1",
		"orders:2", "orders:2", "orders:1",
		"line_items:2", "line_items:2", "line_items:1",
		"ledger:1",
	}
	if !reflect.DeepEqual(store.calls, want) {
		t.Errorf("save calls = %v, want %v", store.calls, want)
	}
	assertCounts(t, store, 3, 5, 5, 1)
}

// ============================================================================
// ImportOutcome Tests
// ============================================================================

func TestImportOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeImported},
		{&RecordError{Line: 1, Err: errEmptyFile}, OutcomeMalformed},
		{&AlreadyImportedError{Filename: "a.txt"}, OutcomeAlreadyImported},
		{ErrTooManyImports, OutcomeBusy},
		{context.Canceled, OutcomeCanceled},
		{fmt.Errorf("persist: %w", context.DeadlineExceeded), OutcomeCanceled},
		{ErrImportFailed, OutcomeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := ImportOutcome(tt.err); got != tt.want {
				t.Errorf("ImportOutcome(%v) = %s, want %s", tt.err, got, tt.want)
			}
		})
	}
}
