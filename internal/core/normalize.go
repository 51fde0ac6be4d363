package core

// Normalize folds decoded lines into distinct customers, orders and line
// items. Customers and orders keep the attributes of the first line that
// mentions them; every line becomes its own line item. Output slices are in
// first-seen order, and a customer always appears before any order that
// references it.
func Normalize(records []OrderLineRecord) Batch {
	batch := Batch{
		LineItems: make([]OrderLineItem, 0, len(records)),
	}

	seenCustomers := make(map[int]struct{})
	seenOrders := make(map[int]struct{})

	for _, rec := range records {
		if _, ok := seenCustomers[rec.UserID]; !ok {
			seenCustomers[rec.UserID] = struct{}{}
			batch.Customers = append(batch.Customers, Customer{
				ID:   rec.UserID,
				Name: rec.Name,
			})
		}

		if _, ok := seenOrders[rec.OrderID]; !ok {
			seenOrders[rec.OrderID] = struct{}{}
			batch.Orders = append(batch.Orders, Order{
				ID:         rec.OrderID,
				Date:       rec.Date,
				CustomerID: rec.UserID,
			})
		}

		batch.LineItems = append(batch.LineItems, OrderLineItem{
			ProductID: rec.ProductID,
			Value:     rec.Value.Round(2),
			OrderID:   rec.OrderID,
		})
	}

	return batch
}
