package i18n

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatBalance renders an amount in indivisible units as a whole-token value
// with three significant digits after grouping (# ### or #.##).
func FormatBalance(amount decimal.Decimal, decimals int32, symbol string) string {
	x := truncate(amount.Shift(-decimals), 3)
	intPart := x.IntPart()
	if x.Equal(decimal.New(intPart, 0)) {
		return fmt.Sprintf("%s %s", formatIntPart(intPart), symbol)
	}
	parts := strings.Split(x.String(), ".")
	if len(parts) != 2 {
		return fmt.Sprintf("%s %s", formatIntPart(intPart), symbol)
	}
	return fmt.Sprintf("%s.%s %s", formatIntPart(intPart), parts[1], symbol)
}

func truncate(d decimal.Decimal, n int32) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	dn := decimal.New(1, n-1)
	if d.Abs().GreaterThanOrEqual(dn) {
		return d.Truncate(0)
	}
	for i := int32(0); i < 32; i++ {
		if d.Abs().Shift(i).GreaterThanOrEqual(dn) {
			return d.Truncate(i)
		}
	}
	return d
}

func formatIntPart(n int64) string {
	s := fmt.Sprintf("%d", n)
	sign := ""
	if n < 0 {
		sign, s = "-", s[1:]
	}
	var groups []string
	for len(s) > 3 {
		groups = append([]string{s[len(s)-3:]}, groups...)
		s = s[:len(s)-3]
	}
	groups = append([]string{s}, groups...)
	return sign + strings.Join(groups, " ")
}
