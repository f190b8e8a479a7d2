package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Number is a numeric field as it arrives from a form or a spreadsheet row:
// a JSON number, a numeric string, an empty string, or null. Anything that
// does not parse is treated as absent rather than as an error.
type Number struct {
	value decimal.Decimal
	valid bool
}

// NumberFromFloat wraps a float64. NaN and Inf produce an absent Number.
func NumberFromFloat(f float64) Number {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Number{}
	}
	return Number{value: decimal.NewFromFloat(f), valid: true}
}

// NumberFromPtr wraps an optional float64.
func NumberFromPtr(f *float64) Number {
	if f == nil {
		return Number{}
	}
	return NumberFromFloat(*f)
}

// ParseNumber parses a numeric string. Surrounding whitespace, a leading
// rupee sign and thousands separators are tolerated.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return Number{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Number{}
	}
	return Number{value: d, valid: true}
}

// Valid reports whether the number parsed.
func (n Number) Valid() bool {
	return n.valid
}

// Float64 returns the value and whether it is present.
func (n Number) Float64() (float64, bool) {
	if !n.valid {
		return 0, false
	}
	f, _ := n.value.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Or returns the value, or def when absent.
func (n Number) Or(def float64) float64 {
	if f, ok := n.Float64(); ok {
		return f
	}
	return def
}

// Ptr returns a pointer to the value, or nil when absent.
func (n Number) Ptr() *float64 {
	f, ok := n.Float64()
	if !ok {
		return nil
	}
	return &f
}

func (n Number) String() string {
	if !n.valid {
		return ""
	}
	return n.value.String()
}

// UnmarshalJSON accepts numbers, numeric strings and null. Other JSON
// values leave the Number absent.
func (n *Number) UnmarshalJSON(b []byte) error {
	*n = Number{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*n = ParseNumber(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*n = ParseNumber(string(b))
	}
	return nil
}

// MarshalJSON writes the number as a JSON number, or null when absent.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return []byte(n.value.String()), nil
}

// Flag is a boolean that tolerates the string forms spreadsheets produce
// ("TRUE", "yes", "1").
type Flag bool

// UnmarshalJSON implements json.Unmarshaler.
func (f *Flag) UnmarshalJSON(b []byte) error {
	*f = false
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("true")):
		*f = true
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil
		}
		*f = Flag(parseFlag(s))
	case len(b) > 0 && b[0] >= '0' && b[0] <= '9':
		v, err := strconv.ParseFloat(string(b), 64)
		*f = Flag(err == nil && v != 0)
	}
	return nil
}

func parseFlag(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y":
		return true
	}
	v, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && v
}

// Tags is a tag list that also accepts a comma-separated string.
type Tags []string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(b []byte) error {
	*t = nil
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return nil
		}
		*t = cleanTags(list)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	*t = SplitTags(s)
	return nil
}

// SplitTags splits a comma-separated tag string.
func SplitTags(s string) []string {
	return cleanTags(strings.Split(s, ","))
}

func cleanTags(list []string) []string {
	var out []string
	for _, tag := range list {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// Date layouts accepted for trade dates, most specific first.
var dateLayouts = []string{
	DateLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-Jan-2006",
}

// DateLayout is the canonical trade date layout.
const DateLayout = "2006-01-02"

// ParseTradeDate parses a calendar date and truncates it to midnight UTC.
// The zero time and false are returned when nothing matches.
func ParseTradeDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	return time.Time{}, false
}

// DateOf returns t's calendar date (in t's own location) at midnight UTC.
func DateOf(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
