package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ListOrders returns the orders matching filter grouped by customer.
//
// Customers are sorted by id, their orders by date descending then id, and
// each order's products by line item id. ErrNotFound is returned when no
// order matches and ErrQueryFailed when the store fails; both are logged
// with the filter first.
func (s *Service) ListOrders(ctx context.Context, filter OrderFilter) ([]CustomerOrdersView, error) {
	start := time.Now()

	rows, err := s.store.QueryOrders(ctx, filter)
	if err != nil {
		s.logger.Error("order query failed", append(filter.LogArgs(), "error", err)...)
		s.metrics.QueryFinished(OutcomeFailed, time.Since(start))
		return nil, ErrQueryFailed
	}

	if len(rows) == 0 {
		s.logger.Info("no orders found", filter.LogArgs()...)
		s.metrics.QueryFinished(OutcomeNotFound, time.Since(start))
		return nil, ErrNotFound
	}

	views := BuildViews(rows)
	s.metrics.QueryFinished(OutcomeOK, time.Since(start))
	return views, nil
}

type orderGroup struct {
	id    int
	date  time.Time
	total decimal.Decimal
	rows  []OrderRow
}

type customerGroup struct {
	id     int
	name   string
	orders map[int]*orderGroup
}

// BuildViews folds join rows into per-customer views. The order of rows
// does not matter; the output order is fully determined by ids and dates.
func BuildViews(rows []OrderRow) []CustomerOrdersView {
	customers := make(map[int]*customerGroup)

	for _, row := range rows {
		c, ok := customers[row.CustomerID]
		if !ok {
			c = &customerGroup{
				id:     row.CustomerID,
				name:   row.CustomerName,
				orders: make(map[int]*orderGroup),
			}
			customers[row.CustomerID] = c
		}

		o, ok := c.orders[row.OrderID]
		if !ok {
			o = &orderGroup{id: row.OrderID, date: row.OrderDate}
			c.orders[row.OrderID] = o
		}
		o.total = o.total.Add(row.Value)
		o.rows = append(o.rows, row)
	}

	views := make([]CustomerOrdersView, 0, len(customers))
	for _, c := range customers {
		views = append(views, c.view())
	}
	sort.Slice(views, func(i, j int) bool {
		return views[i].UserID < views[j].UserID
	})

	return views
}

func (c *customerGroup) view() CustomerOrdersView {
	groups := make([]*orderGroup, 0, len(c.orders))
	for _, o := range c.orders {
		groups = append(groups, o)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].date.Equal(groups[j].date) {
			return groups[i].date.After(groups[j].date)
		}
		return groups[i].id < groups[j].id
	})

	view := CustomerOrdersView{
		UserID: c.id,
		Name:   c.name,
		Orders: make([]OrderView, 0, len(groups)),
	}
	for _, o := range groups {
		view.Orders = append(view.Orders, o.view())
	}
	return view
}

func (o *orderGroup) view() OrderView {
	sort.Slice(o.rows, func(i, j int) bool {
		return o.rows[i].LineItemID < o.rows[j].LineItemID
	})

	products := make([]ProductView, 0, len(o.rows))
	for _, row := range o.rows {
		products = append(products, ProductView{
			ProductID: row.ProductID,
			Value:     row.Value.StringFixed(2),
		})
	}

	return OrderView{
		OrderID:  o.id,
		Total:    o.total.StringFixed(2),
		Date:     FormatDate(o.date),
		Products: products,
	}
}

// FormatDate renders a date as year-month-day without zero padding,
// e.g. 2021-3-8.
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%d-%d-%d", t.Year(), int(t.Month()), t.Day())
}
