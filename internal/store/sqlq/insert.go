package sqlq

import "strings"

// Values renders the VALUES list of a multi-row INSERT with rows tuples of
// cols parameters each, numbered from 1.
func Values(ph Placeholder, rows, cols int) string {
	var b strings.Builder
	n := 1
	for r := 0; r < rows; r++ {
		if r > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('(')
		for c := 0; c < cols; c++ {
			if c > 0 {
				b.WriteString(", ")
			}
			b.WriteString(ph(n))
			n++
		}
		b.WriteByte(')')
	}
	return b.String()
}
