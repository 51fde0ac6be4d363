package core

import (
	"context"
	"errors"
	"fmt"
)

// ImportLedger tracks which file contents have been imported, keyed by the
// SHA-256 digest of the raw bytes.
type ImportLedger struct {
	store Store
}

// NewImportLedger returns a ledger backed by store.
func NewImportLedger(store Store) *ImportLedger {
	return &ImportLedger{store: store}
}

// FindByHash returns the entry recorded for digest, or nil if the content
// has never been imported.
func (l *ImportLedger) FindByHash(ctx context.Context, digest string) (*LedgerEntry, error) {
	entry, err := l.store.FindLedgerEntry(ctx, digest)
	if err != nil {
		return nil, fmt.Errorf("find ledger entry: %w", err)
	}
	return entry, nil
}

// Check returns an *AlreadyImportedError if digest is in the ledger.
func (l *ImportLedger) Check(ctx context.Context, digest string) error {
	entry, err := l.FindByHash(ctx, digest)
	if err != nil {
		return err
	}
	if entry != nil {
		return &AlreadyImportedError{Filename: entry.Filename, ImportedAt: entry.ImportedAt}
	}
	return nil
}

// Record inserts the ledger entry inside tx. It must run in the same
// transaction as the imported rows so both commit or neither does.
// A digest collision is returned wrapped with ErrDuplicateKey.
func (l *ImportLedger) Record(ctx context.Context, tx Tx, digest, filename string) (LedgerEntry, error) {
	entry, err := tx.InsertLedgerEntry(ctx, digest, filename)
	if err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			return LedgerEntry{}, fmt.Errorf("record ledger entry %s: %w", digest, err)
		}
		return LedgerEntry{}, fmt.Errorf("record ledger entry: %w", err)
	}
	return entry, nil
}
