package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Outcome errors returned by Service. Test with errors.Is.
var (
	// ErrMalformedRecord means a line could not be decoded; nothing was stored.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrAlreadyImported means the file content is already in the ledger.
	ErrAlreadyImported = errors.New("file already imported")

	// ErrImportFailed means storage rejected the batch; the transaction was
	// rolled back and the same file can be submitted again.
	ErrImportFailed = errors.New("import failed")

	// ErrNotFound means a query matched no orders.
	ErrNotFound = errors.New("no orders found")

	// ErrQueryFailed means storage failed while reading orders.
	ErrQueryFailed = errors.New("order query failed")

	// ErrInvalidFilter means a query parameter could not be parsed.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrUnsupportedFile means the file name does not carry the .txt extension.
	ErrUnsupportedFile = errors.New("unsupported file type")

	// ErrDuplicateKey is wrapped by stores when a unique or primary key
	// constraint rejects a write.
	ErrDuplicateKey = errors.New("duplicate key")
)

// RecordError describes why a line was rejected by the parser.
type RecordError struct {
	Line  int    // 1-based line number in the file
	Field string // Column name, empty for whole-line problems
	Value string // Offending raw value
	Err   error
}

func (e *RecordError) Error() string {
	var b strings.Builder
	b.WriteString(ErrMalformedRecord.Error())
	if e.Line > 0 {
		fmt.Fprintf(&b, ": line %d", e.Line)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, ": invalid %s %q", e.Field, e.Value)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

// Is lets errors.Is(err, ErrMalformedRecord) match any RecordError.
func (e *RecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// AlreadyImportedError reports the ledger entry of the original import.
type AlreadyImportedError struct {
	Filename   string
	ImportedAt time.Time
}

func (e *AlreadyImportedError) Error() string {
	return fmt.Sprintf("file already imported at %s as %q",
		e.ImportedAt.UTC().Format(time.RFC3339), e.Filename)
}

// Is lets errors.Is(err, ErrAlreadyImported) match any AlreadyImportedError.
func (e *AlreadyImportedError) Is(target error) bool {
	return target == ErrAlreadyImported
}
