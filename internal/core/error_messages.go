package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// When users encounter errors, they can quote the code to support staff for
// faster diagnosis. Codes are grouped by category:
//
// # Import Outcomes (IMP001-IMP099)
//
//	IMP001 - Malformed record: A line of the file could not be read
//	         Action: Fix the reported line and upload the file again
//	         Matches: ErrMalformedRecord
//
//	IMP002 - Already imported: This file was imported before
//	         Action: No action needed, the orders are already stored
//	         Matches: ErrAlreadyImported
//
//	IMP003 - Import failed: The orders could not be saved
//	         Action: Please try again or contact support
//	         Matches: ErrImportFailed
//
//	IMP004 - System busy: Too many imports in progress
//	         Action: Please wait a moment and try again
//	         Matches: ErrTooManyImports
//
// # Query Outcomes (QRY001-QRY099)
//
//	QRY001 - Not found: No orders match the filter
//	QRY002 - Query failed: Orders could not be loaded
//	QRY003 - Invalid filter: A filter value could not be parsed
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large       Patterns: "file too large", "request body too large"
//	FILE002 - Unsupported type     Matches: ErrUnsupportedFile
//	FILE003 - No file              Patterns: "no file provided"
//	FILE004 - Empty file           Matches: the parser's empty file error
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key          Matches: ErrDuplicateKey, "duplicate key"
//	DB002 - Connection problem     Patterns: "connection refused", "connection reset"
//	DB003 - Timeout                Patterns: "context deadline exceeded", "timeout"
//	DB004 - Database busy          Patterns: "database is locked"
//
// # Request Errors (RATE001-RATE099)
//
//	RATE001 - Rate limited         Patterns: "rate limit exceeded"
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check the logs for the
// technical error, which is always logged next to the code.
//
// # Matching
//
// Sentinel errors are tested first with errors.Is, in table order. Then the
// message is matched case-insensitively against the patterns; the first hit
// wins, so specific patterns come before general ones.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

type errorKind struct {
	target error
	msg    UserMessage
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgMalformed = UserMessage{
		Message: "The file contains a malformed record",
		Action:  "Fix the reported line and upload the file again",
		Code:    "IMP001",
	}
	msgAlreadyImported = UserMessage{
		Message: "This file has already been imported",
		Action:  "No action needed, the orders are already stored",
		Code:    "IMP002",
	}
	msgImportFailed = UserMessage{
		Message: "The orders could not be saved",
		Action:  "Please try again or contact support",
		Code:    "IMP003",
	}
	msgBusy = UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP004",
	}
	msgNotFound = UserMessage{
		Message: "No orders match the filter",
		Action:  "Widen the date range or check the order id",
		Code:    "QRY001",
	}
	msgQueryFailed = UserMessage{
		Message: "Orders could not be loaded",
		Action:  "Please try again in a few moments",
		Code:    "QRY002",
	}
	msgInvalidFilter = UserMessage{
		Message: "A filter value could not be parsed",
		Action:  "Use an integer order_id and dates formatted as YYYY-MM-DD",
		Code:    "QRY003",
	}
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}
	msgUnsupported = UserMessage{
		Message: "Only .txt files are accepted",
		Action:  "Upload the fixed-width export as a .txt file",
		Code:    "FILE002",
	}
	msgNoFile = UserMessage{
		Message: "No file was selected",
		Action:  "Please select a .txt file to upload",
		Code:    "FILE003",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file has no order lines",
		Action:  "Please upload a file with at least one line before the trailer",
		Code:    "FILE004",
	}
	msgDuplicateKey = UserMessage{
		Message: "A customer or order in this file already exists",
		Action:  "Remove orders that were imported by another file",
		Code:    "DB001",
	}
	msgConnection = UserMessage{
		Message: "Unable to reach the database",
		Action:  "Please try again in a few moments",
		Code:    "DB002",
	}
	msgTimeout = UserMessage{
		Message: "Operation timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "DB003",
	}
	msgRateLimited = UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a minute and try again",
		Code:    "RATE001",
	}
	msgDBBusy = UserMessage{
		Message: "Database was busy with another write",
		Action:  "Please try again",
		Code:    "DB004",
	}
)

// errorKinds is checked with errors.Is before any pattern. errEmptyFile
// comes before ErrMalformedRecord because it is wrapped in a RecordError.
var errorKinds = []errorKind{
	{errEmptyFile, msgEmptyFile},
	{ErrMalformedRecord, msgMalformed},
	{ErrAlreadyImported, msgAlreadyImported},
	{ErrImportFailed, msgImportFailed},
	{ErrTooManyImports, msgBusy},
	{ErrNotFound, msgNotFound},
	{ErrQueryFailed, msgQueryFailed},
	{ErrInvalidFilter, msgInvalidFilter},
	{ErrUnsupportedFile, msgUnsupported},
	{ErrDuplicateKey, msgDuplicateKey},
}

// errorPatterns maps technical error text (case-insensitive) to messages.
var errorPatterns = []errorPattern{
	// =========================================================================
	// File Errors
	// =========================================================================
	{pattern: "file too large", msg: msgTooLarge},
	{pattern: "request body too large", msg: msgTooLarge},
	{pattern: "no file provided", msg: msgNoFile},

	// =========================================================================
	// Database Errors
	// =========================================================================
	{pattern: "duplicate key", msg: msgDuplicateKey},
	{pattern: "connection refused", msg: msgConnection},
	{pattern: "connection reset", msg: msgConnection},
	{pattern: "context deadline exceeded", msg: msgTimeout},
	{pattern: "timeout", msg: msgTimeout},
	{pattern: "database is locked", msg: msgDBBusy},

	// =========================================================================
	// Request Errors
	// =========================================================================
	{pattern: "rate limit exceeded", msg: msgRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message. A nil error maps
// to the zero UserMessage.
//
// Example:
//
//	msg := MapError(ErrNotFound)
//	// msg.Code == "QRY001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, k := range errorKinds {
		if errors.Is(err, k.target) {
			return k.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with the message shown to users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
