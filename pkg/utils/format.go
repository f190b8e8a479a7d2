// Package utils provides shared utility functions.
package utils

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const rupee = "₹"

// FormatCurrency formats an amount as Indian Rupees with lakh/crore digit
// grouping and two fraction digits. NaN and Inf format as zero.
func FormatCurrency(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		amount = 0
	}
	return formatRupees(decimal.NewFromFloat(amount))
}

// FormatCurrencyText parses a numeric string and formats it like
// FormatCurrency. A leading rupee sign and thousands separators are
// accepted; unparseable input formats as zero.
func FormatCurrencyText(s string) string {
	s = strings.TrimPrefix(strings.TrimSpace(s), rupee)
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		d = decimal.Zero
	}
	return formatRupees(d)
}

func formatRupees(d decimal.Decimal) string {
	// Rounds half away from zero, so 0.005 becomes 0.01.
	str := d.Abs().StringFixed(2)
	parts := strings.SplitN(str, ".", 2)
	intPart, decPart := parts[0], "00"
	if len(parts) == 2 {
		decPart = parts[1]
	}

	result := rupee + formatIndianNumber(intPart) + "." + decPart
	if d.IsNegative() && str != "0.00" {
		result = "-" + result
	}
	return result
}

// formatIndianNumber formats an integer string in Indian numbering system.
// Indian system: 1,00,00,000 (1 crore) vs Western: 10,000,000
func formatIndianNumber(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	// First group of 3 from right (hundreds)
	result := s[n-3:]
	s = s[:n-3]

	// Then groups of 2 (thousands, lakhs, crores)
	for len(s) > 0 {
		if len(s) >= 2 {
			result = s[len(s)-2:] + "," + result
			s = s[:len(s)-2]
		} else {
			result = s + "," + result
			s = ""
		}
	}

	return result
}

// FormatPercentage formats a value with two decimal places and a percent
// sign, e.g. "12.34%". NaN and Inf format as "0.00%".
func FormatPercentage(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	return fmt.Sprintf("%.2f%%", value)
}

// FormatPnL formats P&L with a sign.
func FormatPnL(pnl float64) string {
	formatted := FormatCurrency(pnl)
	if pnl > 0 {
		return "+" + formatted
	}
	return formatted
}

// FormatQuantity formats a share count, dropping a zero fraction.
func FormatQuantity(qty float64) string {
	if qty == math.Trunc(qty) && math.Abs(qty) < 1e15 {
		return formatIndianNumber(fmt.Sprintf("%d", int64(qty)))
	}
	return decimal.NewFromFloat(qty).String()
}

// FormatLakhs formats a number in lakhs.
func FormatLakhs(amount float64) string {
	lakhs := amount / 100000
	if lakhs < 0 {
		return fmt.Sprintf("-%.2f L", -lakhs)
	}
	return fmt.Sprintf("%.2f L", lakhs)
}

// FormatCrores formats a number in crores.
func FormatCrores(amount float64) string {
	crores := amount / 10000000
	if crores < 0 {
		return fmt.Sprintf("-%.2f Cr", -crores)
	}
	return fmt.Sprintf("%.2f Cr", crores)
}

// FormatCompact formats a number in compact form (L/Cr).
func FormatCompact(amount float64) string {
	absAmount := math.Abs(amount)

	if absAmount >= 10000000 { // 1 crore
		return FormatCrores(amount)
	} else if absAmount >= 100000 { // 1 lakh
		return FormatLakhs(amount)
	}
	return FormatCurrency(amount)
}
