// Package sqlq builds the dynamic parts of SQL statements shared by the
// relational backends.
package sqlq

import (
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/orderimport/internal/core"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Dollar renders Postgres style parameters: $1, $2, ...
func Dollar(n int) string { return "$" + strconv.Itoa(n) }

// Question renders SQLite style parameters.
func Question(int) string { return "?" }

// WhereBuilder accumulates AND-ed conditions and their arguments.
type WhereBuilder struct {
	ph         Placeholder
	conditions []string
	args       []any
	argIndex   int
}

// NewWhereBuilder returns an empty builder using ph for parameters.
func NewWhereBuilder(ph Placeholder) *WhereBuilder {
	return &WhereBuilder{ph: ph, argIndex: 1}
}

func (wb *WhereBuilder) next(v any) string {
	p := wb.ph(wb.argIndex)
	wb.argIndex++
	wb.args = append(wb.args, v)
	return p
}

// Equal adds "column = value".
func (wb *WhereBuilder) Equal(column string, value any) *WhereBuilder {
	wb.conditions = append(wb.conditions, column+" = "+wb.next(value))
	return wb
}

// Between adds an inclusive range condition.
func (wb *WhereBuilder) Between(column string, lo, hi any) *WhereBuilder {
	cond := column + " BETWEEN " + wb.next(lo)
	cond += " AND " + wb.next(hi)
	wb.conditions = append(wb.conditions, cond)
	return wb
}

// OrderFilter adds the conditions of f. dateArg converts a bound into the
// value the driver expects for the date column.
func (wb *WhereBuilder) OrderFilter(f core.OrderFilter, idColumn, dateColumn string, dateArg func(time.Time) any) *WhereBuilder {
	if f.OrderID != nil {
		wb.Equal(idColumn, *f.OrderID)
	}
	if f.HasDateRange() {
		wb.Between(dateColumn, dateArg(*f.MinDate), dateArg(*f.MaxDate))
	}
	return wb
}

// Build returns " WHERE ..." and the arguments, or "" and nil when no
// condition was added.
func (wb *WhereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
