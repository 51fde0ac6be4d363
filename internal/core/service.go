package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultImportTimeout is the maximum duration of a single import.
const DefaultImportTimeout = 10 * time.Minute

// recheckTimeout bounds the ledger lookup made after a failed persist.
const recheckTimeout = 5 * time.Second

// ServiceConfig tunes the import pipeline. Zero values select defaults.
type ServiceConfig struct {
	ChunkSize     int           // Rows per storage call
	MaxConcurrent int           // Simultaneous imports
	MaxWaitTime   time.Duration // Wait for an import slot before ErrTooManyImports
	ImportTimeout time.Duration // Deadline for one import
}

// Service runs imports and order queries against a Store.
type Service struct {
	store     Store
	ledger    *ImportLedger
	persister *BatchPersister
	limiter   *ImportLimiter

	importTimeout time.Duration

	logger  *slog.Logger
	metrics Metrics
}

// NewService creates a Service. A nil logger uses slog.Default and nil
// metrics are discarded.
func NewService(store Store, cfg ServiceConfig, logger *slog.Logger, metrics Metrics) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if cfg.ImportTimeout <= 0 {
		cfg.ImportTimeout = DefaultImportTimeout
	}

	return &Service{
		store:         store,
		ledger:        NewImportLedger(store),
		persister:     NewBatchPersister(store, cfg.ChunkSize),
		limiter:       NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWaitTime),
		importTimeout: cfg.ImportTimeout,
		logger:        logger,
		metrics:       metrics,
	}
}

// Limiter exposes the import limiter for health reporting and shutdown.
func (s *Service) Limiter() *ImportLimiter {
	return s.limiter
}

// ImportBatch ingests one file. The returned result is never nil and
// records the last state reached, even when an error is returned.
//
// Errors:
//   - *RecordError (ErrMalformedRecord): a line could not be decoded
//   - *AlreadyImportedError (ErrAlreadyImported): the content was imported before
//   - ErrImportFailed: storage rejected the batch; nothing was kept
//   - ErrTooManyImports: no import slot freed up in time
func (s *Service) ImportBatch(ctx context.Context, filename string, data []byte) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{
		ImportID: uuid.New().String(),
		Filename: filename,
		State:    StateReceived,
	}
	logger := s.logger.With("import_id", result.ImportID, "filename", filename)

	if err := s.limiter.Acquire(ctx); err != nil {
		result.State = StateRejected
		result.Duration = time.Since(start)
		logger.Warn("import rejected: no slot available", "error", err)
		s.metrics.ImportFinished(ImportOutcome(err), 0, result.Duration)
		return result, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.importTimeout)
	defer cancel()

	logger.Info("import started", "bytes", len(data))

	err := s.runImport(ctx, logger, result, data)
	result.Duration = time.Since(start)
	s.metrics.ImportFinished(ImportOutcome(err), result.LineItems, result.Duration)

	if err != nil {
		result.State = StateRejected
		return result, err
	}

	logger.Info("import finished",
		"hash", result.Hash,
		"customers", result.Customers,
		"orders", result.Orders,
		"line_items", result.LineItems,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

func (s *Service) runImport(ctx context.Context, logger *slog.Logger, result *ImportResult, data []byte) error {
	result.Hash = HashFile(data)
	result.State = StateHashed
	logger = logger.With("hash", result.Hash)

	if err := s.ledger.Check(ctx, result.Hash); err != nil {
		var dup *AlreadyImportedError
		if errors.As(err, &dup) {
			logger.Info("import rejected: already imported",
				"original_filename", dup.Filename,
				"imported_at", dup.ImportedAt,
			)
			return err
		}
		logger.Error("import failed: ledger lookup", "error", err)
		return ErrImportFailed
	}
	result.State = StateDedupChecked

	records, err := ParseFile(data)
	if err != nil {
		logger.Warn("import rejected: malformed record", "error", err)
		return err
	}
	result.State = StateParsed

	batch := Normalize(records)
	result.Customers = len(batch.Customers)
	result.Orders = len(batch.Orders)
	result.LineItems = len(batch.LineItems)
	result.State = StateNormalized

	entry, err := s.persister.Persist(ctx, batch, result.Hash, result.Filename)
	if err != nil {
		return s.persistFailed(ctx, logger, result, err)
	}
	result.State = StatePersisted

	result.Entry = &entry
	result.State = StateRecorded
	return nil
}

// persistFailed decides the outcome of a rolled-back transaction. When a
// concurrent import of the same content committed first, the ledger now
// holds the digest and the file counts as already imported.
func (s *Service) persistFailed(ctx context.Context, logger *slog.Logger, result *ImportResult, cause error) error {
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recheckTimeout)
	defer cancel()

	entry, lookupErr := s.ledger.FindByHash(lookupCtx, result.Hash)
	if lookupErr == nil && entry != nil {
		logger.Info("import rejected: already imported concurrently",
			"original_filename", entry.Filename,
			"imported_at", entry.ImportedAt,
		)
		return &AlreadyImportedError{Filename: entry.Filename, ImportedAt: entry.ImportedAt}
	}

	logger.Error("import failed",
		"error", cause,
		"key_conflict", errors.Is(cause, ErrDuplicateKey),
		"customers", result.Customers,
		"orders", result.Orders,
		"line_items", result.LineItems,
	)
	if lookupErr != nil {
		logger.Error("ledger recheck failed", "error", lookupErr)
	}
	return ErrImportFailed
}

// Outcome labels reported to Metrics.
const (
	OutcomeImported        = "imported"
	OutcomeMalformed       = "malformed"
	OutcomeAlreadyImported = "already_imported"
	OutcomeFailed          = "failed"
	OutcomeBusy            = "busy"
	OutcomeCanceled        = "canceled"

	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
)

// ImportOutcome returns the metrics label for the error of ImportBatch.
func ImportOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeImported
	case errors.Is(err, ErrMalformedRecord):
		return OutcomeMalformed
	case errors.Is(err, ErrAlreadyImported):
		return OutcomeAlreadyImported
	case errors.Is(err, ErrTooManyImports):
		return OutcomeBusy
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}
