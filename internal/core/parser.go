package core

// parser.go decodes the fixed-width order file layout.
//
// Each data line carries six columns at fixed byte offsets:
//
//	[0,10)   user id     integer
//	[10,55)  name        text
//	[55,65)  order id    integer
//	[65,75)  product id  integer
//	[75,87)  value       decimal
//	[87,95)  date        YYYYMMDD
//
// Offsets count characters. A line that is valid UTF-8 is sliced by rune;
// any other line is single-byte encoded, so bytes and characters coincide.
// Every field is trimmed before conversion. The last line of a file is a
// trailer and is dropped without being looked at.

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

// RecordLength is the minimum length of a data line in characters.
const RecordLength = 95

type column struct {
	name       string
	start, end int
}

var (
	colUserID    = column{"user_id", 0, 10}
	colName      = column{"name", 10, 55}
	colOrderID   = column{"order_id", 55, 65}
	colProductID = column{"product_id", 65, 75}
	colValue     = column{"value", 75, 87}
	colDate      = column{"date", 87, 95}
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var (
	errEmptyFile  = errors.New("empty file: no data lines before the trailer")
	errNotInteger = errors.New("not an integer")
	errNotDecimal = errors.New("not a decimal number")
	errBadDate    = errors.New("want 8 digits YYYYMMDD")
)

// ParseFile decodes every line of data except the trailing one.
// The first malformed line aborts parsing with a *RecordError.
func ParseFile(data []byte) ([]OrderLineRecord, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	lines := strings.Split(string(data), "\n")
	lines = lines[:len(lines)-1]
	if len(lines) == 0 {
		return nil, &RecordError{Line: 1, Err: errEmptyFile}
	}

	records := make([]OrderLineRecord, 0, len(lines))
	for i, line := range lines {
		rec, err := ParseLine(line)
		if err != nil {
			var recErr *RecordError
			if errors.As(err, &recErr) {
				recErr.Line = i + 1
			}
			return nil, err
		}
		records = append(records, rec)
	}

	return records, nil
}

// ParseLine decodes a single data line. It has no side effects, so parsing
// the same line twice yields identical records.
func ParseLine(raw string) (OrderLineRecord, error) {
	line := newFixedLine(strings.TrimRight(raw, " \t\r"))
	if n := line.len(); n < RecordLength {
		return OrderLineRecord{}, &RecordError{
			Err: fmt.Errorf("line has %d characters, want at least %d", n, RecordLength),
		}
	}

	var rec OrderLineRecord
	var err error

	if rec.UserID, err = parseInt(line, colUserID); err != nil {
		return OrderLineRecord{}, err
	}
	rec.Name = decodeName(line.field(colName))
	if rec.OrderID, err = parseInt(line, colOrderID); err != nil {
		return OrderLineRecord{}, err
	}
	if rec.ProductID, err = parseInt(line, colProductID); err != nil {
		return OrderLineRecord{}, err
	}
	if rec.Value, err = parseDecimal(line, colValue); err != nil {
		return OrderLineRecord{}, err
	}
	if rec.Date, err = parseDate(line, colDate); err != nil {
		return OrderLineRecord{}, err
	}

	return rec, nil
}

// fixedLine addresses columns of one line by character offset.
type fixedLine struct {
	text  string
	runes []rune // set only for UTF-8 text with multi-byte characters
}

func newFixedLine(s string) fixedLine {
	if utf8.ValidString(s) && utf8.RuneCountInString(s) != len(s) {
		return fixedLine{text: s, runes: []rune(s)}
	}
	return fixedLine{text: s}
}

func (l fixedLine) len() int {
	if l.runes != nil {
		return len(l.runes)
	}
	return len(l.text)
}

func (l fixedLine) field(c column) string {
	if l.runes != nil {
		return strings.TrimSpace(string(l.runes[c.start:c.end]))
	}
	return strings.TrimSpace(l.text[c.start:c.end])
}

func parseInt(line fixedLine, c column) (int, error) {
	raw := line.field(c)
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &RecordError{Field: c.name, Value: raw, Err: errNotInteger}
	}
	return n, nil
}

func parseDecimal(line fixedLine, c column) (decimal.Decimal, error) {
	raw := line.field(c)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, &RecordError{Field: c.name, Value: raw, Err: errNotDecimal}
	}
	return d, nil
}

// parseDate reads YYYYMMDD by rewriting it to YYYY-MM-DD first.
func parseDate(line fixedLine, c column) (time.Time, error) {
	raw := line.field(c)
	if len(raw) != 8 || !isDigits(raw) {
		return time.Time{}, &RecordError{Field: c.name, Value: raw, Err: errBadDate}
	}

	t, err := time.Parse(time.DateOnly, raw[0:4]+"-"+raw[4:6]+"-"+raw[6:8])
	if err != nil {
		return time.Time{}, &RecordError{Field: c.name, Value: raw, Err: err}
	}
	return t, nil
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// decodeName returns s unchanged when it is valid UTF-8 and otherwise reads
// it as ISO-8859-1, the usual encoding of single-byte fixed-width exports.
func decodeName(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().String(s)
	if err != nil {
		return strings.ToValidUTF8(s, "\uFFFD")
	}
	return decoded
}
