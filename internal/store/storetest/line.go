package storetest

import "fmt"

// Line renders one fixed-width order line. Numeric columns are zero padded
// and the name is padded with spaces to its 45-byte column.
func Line(userID int, name string, orderID, productID int, value, date string) string {
	return fmt.Sprintf("%010d%45s%010d%010d%12s%s", userID, name, orderID, productID, value, date)
}
