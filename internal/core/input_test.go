package core

import (
	"errors"
	"testing"
	"time"
)

func TestCheckFileExtension(t *testing.T) {
	tests := []struct {
		filename string
		wantErr  bool
	}{
		{"data_1.txt", false},
		{"DATA_1.TXT", false},
		{"archive/2021/orders.Txt", false},
		{"orders.csv", true},
		{"orders.txt.gz", true},
		{"orders", true},
		{"", true},
		{".txt.bak", true},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			err := CheckFileExtension(tt.filename)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CheckFileExtension(%q) error = %v, wantErr %v", tt.filename, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrUnsupportedFile) {
				t.Errorf("error %v does not wrap ErrUnsupportedFile", err)
			}
		})
	}
}

func TestParseOrderFilter(t *testing.T) {
	id := func(n int) *int { return &n }
	day := func(s string) *time.Time {
		d, _ := time.Parse(time.DateOnly, s)
		return &d
	}

	tests := []struct {
		name                      string
		orderID, minDate, maxDate string
		want                      OrderFilter
		wantRange                 bool
	}{
		{name: "empty", want: OrderFilter{}},
		{name: "order id", orderID: "753", want: OrderFilter{OrderID: id(753)}},
		{name: "padded order id", orderID: " 10 ", want: OrderFilter{OrderID: id(10)}},
		{
			name:    "date range",
			minDate: "2021-01-01", maxDate: "2021-12-31",
			want:      OrderFilter{MinDate: day("2021-01-01"), MaxDate: day("2021-12-31")},
			wantRange: true,
		},
		{name: "min only", minDate: "2021-01-01", want: OrderFilter{MinDate: day("2021-01-01")}},
		{
			name:    "all fields",
			orderID: "1", minDate: "2021-01-01", maxDate: "2021-01-02",
			want:      OrderFilter{OrderID: id(1), MinDate: day("2021-01-01"), MaxDate: day("2021-01-02")},
			wantRange: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrderFilter(tt.orderID, tt.minDate, tt.maxDate)
			if err != nil {
				t.Fatalf("ParseOrderFilter() error = %v", err)
			}
			if !sameIntPtr(got.OrderID, tt.want.OrderID) {
				t.Errorf("OrderID = %v, want %v", got.OrderID, tt.want.OrderID)
			}
			if !sameTimePtr(got.MinDate, tt.want.MinDate) {
				t.Errorf("MinDate = %v, want %v", got.MinDate, tt.want.MinDate)
			}
			if !sameTimePtr(got.MaxDate, tt.want.MaxDate) {
				t.Errorf("MaxDate = %v, want %v", got.MaxDate, tt.want.MaxDate)
			}
			if got.HasDateRange() != tt.wantRange {
				t.Errorf("HasDateRange() = %v, want %v", got.HasDateRange(), tt.wantRange)
			}
		})
	}
}

func TestParseOrderFilter_Invalid(t *testing.T) {
	tests := []struct {
		name                      string
		orderID, minDate, maxDate string
	}{
		{"order id not a number", "abc", "", ""},
		{"order id decimal", "7.5", "", ""},
		{"compact date", "", "20210101", ""},
		{"impossible date", "", "", "2021-02-30"},
		{"slashes", "", "2021/01/01", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOrderFilter(tt.orderID, tt.minDate, tt.maxDate)
			if !errors.Is(err, ErrInvalidFilter) {
				t.Errorf("ParseOrderFilter() error = %v, want ErrInvalidFilter", err)
			}
		})
	}
}

func TestOrderFilter_LogArgs(t *testing.T) {
	id := 753
	d := utcDate(2021, time.March, 8)
	f := OrderFilter{OrderID: &id, MinDate: &d}

	got := f.LogArgs()
	want := []any{"order_id", 753, "min_date", "2021-03-08"}

	if len(got) != len(want) {
		t.Fatalf("LogArgs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("LogArgs()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func sameIntPtr(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
