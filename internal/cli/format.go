package cli

import (
	"fmt"
	"strings"
	"time"

	"trading-journal/internal/models"
	"trading-journal/pkg/utils"
)

// FormatDate formats a trade date, or "-" when unknown.
func FormatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02-Jan-2006")
}

// FormatPrice formats a price without a currency sign.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatOptionalPrice formats an optional price, or "open" when absent.
func FormatOptionalPrice(price *float64) string {
	if price == nil {
		return "open"
	}
	return FormatPrice(*price)
}

// FormatRatio formats a unitless ratio such as profit factor.
func FormatRatio(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// FormatSetup renders the setup-followed flag.
func FormatSetup(followed bool) string {
	if followed {
		return "✓"
	}
	return "✗"
}

// FormatTags joins strategy tags.
func FormatTags(tags []string) string {
	if len(tags) == 0 {
		return "-"
	}
	return strings.Join(tags, ", ")
}

// FormatMonth renders a YYYY-MM period as "Jan 2024".
func FormatMonth(period string) string {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return period
	}
	return t.Format("Jan 2006")
}

// FormatOptionalAmount formats an optional rupee amount.
func FormatOptionalAmount(v *float64) string {
	if v == nil {
		return "-"
	}
	return utils.FormatCurrency(*v)
}

// FormatTradeRef renders a psychology entry's trade reference.
func FormatTradeRef(id *int64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("#%d", *id)
}

// FormatEmotion renders an emotion, or "-" when not recorded.
func FormatEmotion(e models.Emotion) string {
	if e == "" {
		return "-"
	}
	return string(e)
}

// TruncateString truncates a string to max length with ellipsis.
func TruncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
