// Package normalizer cleans the raw values recovered from statement text:
// amounts, short dates and free-text merchant descriptions.
package normalizer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/expense-tracker/internal/domain/import/statement"
)

// CurrencyGlyph is the shekel sign printed next to statement amounts.
const CurrencyGlyph = "₪"

// ParseAmount parses a statement amount such as "1,234.50" or "89.90 ₪".
// Thousands separators and the currency glyph are dropped; the result is
// never negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, CurrencyGlyph, "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Abs(), nil
}

// ParseShortDate builds a date from DD, MM and YY (or YYYY) parts.
// Two-digit years map to 2000-2099. Impossible dates such as 31/02 are rejected.
func ParseShortDate(day, month, year string) (time.Time, error) {
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q", day)
	}
	m, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q", month)
	}
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year %q", year)
	}
	if len(year) <= 2 {
		y += 2000
	}
	if m < 1 || m > 12 {
		return time.Time{}, fmt.Errorf("month out of range: %d", m)
	}

	t := statement.Date(y, time.Month(m), d)
	if t.Day() != d || int(t.Month()) != m {
		return time.Time{}, fmt.Errorf("day out of range: %02d/%02d/%d", d, m, y)
	}
	return t, nil
}

// CleanDescription trims and collapses internal whitespace.
func CleanDescription(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// IsNoise reports words that carry no merchant information on their own:
// stray signs and currency glyphs left over after amounts are removed.
func IsNoise(word string) bool {
	switch word {
	case "-", "+", CurrencyGlyph, "|", ":":
		return true
	}
	return false
}
