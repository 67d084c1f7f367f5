// Package currency renders fare amounts for display.
package currency

import (
	"math"
	"strconv"
	"strings"
)

const CNY = "CNY"

// Format rounds amount to a whole unit and prefixes the currency code,
// grouping digits by thousands: Format(3760, "CNY") == "CNY 3,760".
// An empty code falls back to CNY.
func Format(amount float64, code string) string {
	if code == "" {
		code = CNY
	}

	units := int64(math.Round(amount))
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}

	return sign + code + " " + group(strconv.FormatInt(units, 10))
}

func group(digits string) string {
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}

	var b strings.Builder
	b.Grow(len(digits) + len(digits)/3)
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte(',')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
