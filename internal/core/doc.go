// Package core provides the business logic for fixed-width order imports.
//
// This package is the heart of the importer, containing all domain logic
// independent of any storage engine or transport. It can be used by the web
// server, the CLI, or tests without modification.
//
// # Architecture
//
// The package is organized around the two flows of the system:
//
//   - Import: raw file bytes are hashed, checked against the import ledger,
//     parsed line by line, normalized into customers, orders and line items,
//     and persisted in a single transaction together with the ledger entry.
//   - Query: order rows are read back through the [Store] with optional
//     filters and folded into per-customer views with formatted totals.
//
// # Import Flow
//
// [Service.ImportBatch] is the single entry point for ingestion:
//
//  1. [HashFile] computes the SHA-256 digest of the raw bytes
//  2. [ImportLedger.FindByHash] rejects files that were already imported
//  3. [ParseFile] decodes every line except the trailer
//  4. [Normalize] deduplicates customers and orders in first-seen order
//  5. [BatchPersister.Persist] writes everything in chunks inside one transaction
//
// # Storage
//
// The core never talks to a database directly. Backends implement [Store]
// and [Tx]; see internal/store for the Postgres, SQLite and in-memory
// implementations.
//
// # Error Handling
//
// Outcomes are reported with sentinel errors ([ErrMalformedRecord],
// [ErrAlreadyImported], [ErrImportFailed], [ErrNotFound], [ErrQueryFailed])
// that callers test with errors.Is. Technical errors are mapped to
// user-facing messages with codes using [MapError]:
//
//   - IMP001-IMP004: Import outcomes (malformed, duplicate, failed, busy)
//   - QRY001-QRY003: Query outcomes (not found, failed, bad filter)
//   - FILE001-FILE004: File handling
//   - DB001-DB004: Storage connectivity and constraints
//   - RATE001: Request rate limiting
package core
