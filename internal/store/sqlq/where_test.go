package sqlq

import (
	"testing"
	"time"

	"github.com/JonMunkholm/orderimport/internal/core"
)

// ============================================================================
// WhereBuilder Tests
// ============================================================================

func TestNewWhereBuilder(t *testing.T) {
	wb := NewWhereBuilder(Dollar)

	if wb == nil {
		t.Fatal("NewWhereBuilder returned nil")
	}
	if wb.argIndex != 1 {
		t.Errorf("expected argIndex to be 1, got %d", wb.argIndex)
	}
	if len(wb.conditions) != 0 {
		t.Errorf("expected empty conditions, got %d", len(wb.conditions))
	}
}

func TestWhereBuilder_Build_Empty(t *testing.T) {
	whereClause, args := NewWhereBuilder(Dollar).Build()

	if whereClause != "" {
		t.Errorf("expected empty string for no conditions, got %q", whereClause)
	}
	if args != nil {
		t.Errorf("expected nil args for no conditions, got %v", args)
	}
}

func TestWhereBuilder_Placeholders(t *testing.T) {
	tests := []struct {
		name       string
		ph         Placeholder
		wantClause string
	}{
		{
			name:       "dollar",
			ph:         Dollar,
			wantClause: " WHERE o.id = $1 AND o.date BETWEEN $2 AND $3",
		},
		{
			name:       "question",
			ph:         Question,
			wantClause: " WHERE o.id = ? AND o.date BETWEEN ? AND ?",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder(tt.ph)
			wb.Equal("o.id", 10).Between("o.date", "2021-01-01", "2021-12-31")

			whereClause, args := wb.Build()
			if whereClause != tt.wantClause {
				t.Errorf("expected %q, got %q", tt.wantClause, whereClause)
			}
			if len(args) != 3 {
				t.Fatalf("expected 3 args, got %d", len(args))
			}
			if args[0] != 10 || args[1] != "2021-01-01" || args[2] != "2021-12-31" {
				t.Errorf("unexpected args %v", args)
			}
		})
	}
}

func TestWhereBuilder_OrderFilter(t *testing.T) {
	id := 753
	lo := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	hi := time.Date(2021, 3, 31, 0, 0, 0, 0, time.UTC)
	dateArg := func(t time.Time) any { return t.Format(time.DateOnly) }

	tests := []struct {
		name       string
		filter     core.OrderFilter
		wantClause string
		wantArgs   int
	}{
		{
			name:       "no filter",
			filter:     core.OrderFilter{},
			wantClause: "",
			wantArgs:   0,
		},
		{
			name:       "order id only",
			filter:     core.OrderFilter{OrderID: &id},
			wantClause: " WHERE o.id = $1",
			wantArgs:   1,
		},
		{
			name:       "date range",
			filter:     core.OrderFilter{MinDate: &lo, MaxDate: &hi},
			wantClause: " WHERE o.date BETWEEN $1 AND $2",
			wantArgs:   2,
		},
		{
			name:       "single bound ignored",
			filter:     core.OrderFilter{MinDate: &lo},
			wantClause: "",
			wantArgs:   0,
		},
		{
			name:       "both filters",
			filter:     core.OrderFilter{OrderID: &id, MinDate: &lo, MaxDate: &hi},
			wantClause: " WHERE o.id = $1 AND o.date BETWEEN $2 AND $3",
			wantArgs:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewWhereBuilder(Dollar).OrderFilter(tt.filter, "o.id", "o.date", dateArg)
			whereClause, args := wb.Build()

			if whereClause != tt.wantClause {
				t.Errorf("expected %q, got %q", tt.wantClause, whereClause)
			}
			if len(args) != tt.wantArgs {
				t.Errorf("expected %d args, got %d", tt.wantArgs, len(args))
			}
		})
	}
}

// ============================================================================
// Values Tests
// ============================================================================

func TestValues(t *testing.T) {
	tests := []struct {
		name string
		ph   Placeholder
		rows int
		cols int
		want string
	}{
		{"single row", Question, 1, 2, "(?, ?)"},
		{"multiple rows", Question, 3, 2, "(?, ?), (?, ?), (?, ?)"},
		{"dollar numbering", Dollar, 2, 3, "($1, $2, $3), ($4, $5, $6)"},
		{"no rows", Question, 0, 2, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Values(tt.ph, tt.rows, tt.cols); got != tt.want {
				t.Errorf("Values() = %q, want %q", got, tt.want)
			}
		})
	}
}
