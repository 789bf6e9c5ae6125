package tradier

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Date layouts used in query parameters.
const (
	DateLayout     = "2006-01-02"
	DateTimeLayout = "2006-01-02 15:04"
)

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatDateTime renders t as YYYY-MM-DD HH:MM.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatPrice renders a price with two decimals, keeping extra precision for
// sub-penny increments.
func FormatPrice(p decimal.Decimal) string {
	if p.Equal(p.Round(2)) {
		return p.StringFixed(2)
	}
	return p.String()
}

// FormatGainLoss formats a gain/loss value with +/- prefix.
// Returns "$0.00" for zero values.
func FormatGainLoss(value decimal.Decimal) string {
	if value.IsZero() {
		return "$0.00"
	}
	if value.IsPositive() {
		return "+$" + value.StringFixed(2)
	}
	return "-$" + value.Neg().StringFixed(2)
}

// FormatVolume formats a volume number with thousand separators.
// Returns "-" for zero values.
func FormatVolume(vol int64) string {
	if vol == 0 {
		return "-"
	}

	sign := ""
	if vol < 0 {
		sign = "-"
		vol = -vol
	}

	str := strconv.FormatInt(vol, 10)
	n := len(str)
	if n <= 3 {
		return sign + str
	}

	var result strings.Builder
	result.WriteString(sign)
	remainder := n % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		result.WriteString(",")
	}

	for i := remainder; i < n; i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < n {
			result.WriteString(",")
		}
	}

	return result.String()
}
