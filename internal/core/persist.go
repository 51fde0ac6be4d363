package core

import (
	"context"
	"fmt"
)

// DefaultChunkSize is the number of rows written per storage call.
const DefaultChunkSize = 500

// BatchPersister writes a normalized batch and its ledger entry in a single
// transaction.
type BatchPersister struct {
	store     Store
	ledger    *ImportLedger
	chunkSize int
}

// NewBatchPersister returns a persister that writes chunkSize rows per call.
// A non-positive chunkSize selects DefaultChunkSize.
func NewBatchPersister(store Store, chunkSize int) *BatchPersister {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &BatchPersister{
		store:     store,
		ledger:    NewImportLedger(store),
		chunkSize: chunkSize,
	}
}

// ChunkSize returns the configured rows per storage call.
func (p *BatchPersister) ChunkSize() int {
	return p.chunkSize
}

// Persist stores customers, then orders, then line items, then the ledger
// entry. Chunks are written one after another on the transaction; any
// failure rolls back every chunk already written.
func (p *BatchPersister) Persist(ctx context.Context, batch Batch, digest, filename string) (LedgerEntry, error) {
	var entry LedgerEntry

	err := p.store.WithTx(ctx, func(tx Tx) error {
		if err := writeChunks(ctx, batch.Customers, p.chunkSize, tx.SaveCustomers); err != nil {
			return fmt.Errorf("save customers: %w", err)
		}
		if err := writeChunks(ctx, batch.Orders, p.chunkSize, tx.SaveOrders); err != nil {
			return fmt.Errorf("save orders: %w", err)
		}
		if err := writeChunks(ctx, batch.LineItems, p.chunkSize, tx.SaveLineItems); err != nil {
			return fmt.Errorf("save line items: %w", err)
		}

		var err error
		entry, err = p.ledger.Record(ctx, tx, digest, filename)
		return err
	})
	if err != nil {
		return LedgerEntry{}, err
	}

	return entry, nil
}

// writeChunks calls save once per slice of at most size rows.
func writeChunks[T any](ctx context.Context, rows []T, size int, save func(context.Context, []T) error) error {
	for start := 0; start < len(rows); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+size, len(rows))
		if err := save(ctx, rows[start:end]); err != nil {
			return fmt.Errorf("rows %d-%d: %w", start, end-1, err)
		}
	}
	return nil
}
