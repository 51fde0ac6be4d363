package core

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// FileExtension is the only accepted extension for order files.
const FileExtension = ".txt"

// CheckFileExtension rejects file names that do not end in .txt.
// The comparison ignores case.
func CheckFileExtension(filename string) error {
	ext := filepath.Ext(filename)
	if !strings.EqualFold(ext, FileExtension) {
		return fmt.Errorf("%w: %q, only %s files are accepted", ErrUnsupportedFile, filename, FileExtension)
	}
	return nil
}

// ParseOrderFilter builds a filter from raw query values. Empty values are
// left unset. Dates use the YYYY-MM-DD layout.
func ParseOrderFilter(orderID, minDate, maxDate string) (OrderFilter, error) {
	var f OrderFilter

	if v := strings.TrimSpace(orderID); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			return OrderFilter{}, fmt.Errorf("%w: order_id %q is not an integer", ErrInvalidFilter, v)
		}
		f.OrderID = &id
	}

	var err error
	if f.MinDate, err = parseFilterDate("min_date", minDate); err != nil {
		return OrderFilter{}, err
	}
	if f.MaxDate, err = parseFilterDate("max_date", maxDate); err != nil {
		return OrderFilter{}, err
	}

	return f, nil
}

func parseFilterDate(name, raw string) (*time.Time, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, v)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q, want YYYY-MM-DD", ErrInvalidFilter, name, v)
	}
	return &t, nil
}
