package core

// convert.go provides the per-cell coercions used by the normalizer.
//
// These functions handle the messy reality of rating exports:
//   - Multiple date formats (ISO, US, EU, month-year, with or without time)
//   - Currency prefixes on amounts ("R 1500.50")
//   - Various boolean representations (Yes/No, True/False, Y/N, 1/0)
//   - The usual NA markers written by spreadsheet and dataframe tools
//
// All To* functions return pgtype values with Valid=false for empty or
// invalid input. A bad cell never aborts the column.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// numericRegex validates that a string is a valid numeric format after cleanup.
// Matches integers, decimals, and scientific notation.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would result in dates more than this many years in the future
// are assumed to be in the previous century.
var TwoDigitYearPivot = 20

// missingTokens are treated as missing when a raw cell is loaded.
var missingTokens = map[string]struct{}{
	"":         {},
	"#N/A":     {},
	"#N/A N/A": {},
	"#NA":      {},
	"-1.#IND":  {},
	"-1.#QNAN": {},
	"-NaN":     {},
	"-nan":     {},
	"1.#IND":   {},
	"1.#QNAN":  {},
	"<NA>":     {},
	"N/A":      {},
	"NA":       {},
	"NULL":     {},
	"NaN":      {},
	"None":     {},
	"n/a":      {},
	"nan":      {},
	"null":     {},
}

// Date layouts split by year format for proper 2-digit year handling.
var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
		"2/1/06", "02/01/06", "2-1-06", "02-01-06", "2.1.06", "02.01.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02 15:04:05", "2006-01-02T15:04:05", time.RFC3339, "2006-01-02 15:04",
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006 15:04:05", "1/2/2006 15:04", "1/2/2006", "01/02/2006",
		"1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		// Day-first only matches when the month-first reading is impossible.
		"2/1/2006", "02/01/2006", "2-1-2006", "02-01-2006", "2.1.2006", "02.01.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006", "2 January 2006",
		"20060102",
	}
	monthYearLayouts = []string{
		"1/2006", "01/2006", "2006-01", "2006/01", "Jan 2006", "January 2006",
	}
)

// IsMissingToken reports whether a raw cell should load as missing.
func IsMissingToken(s string) bool {
	_, ok := missingTokens[strings.TrimSpace(s)]
	return ok
}

// ToText converts a raw cell to pgtype.Text.
// The value is kept verbatim; only NA markers become invalid.
func ToText(s string) pgtype.Text {
	if IsMissingToken(s) {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

// ToDate converts a string to pgtype.Timestamp.
// Tries unambiguous 4-digit year layouts first, then month-year, then
// 2-digit years with the pivot applied.
func ToDate(s string) pgtype.Timestamp {
	s = strings.TrimSpace(s)
	if IsMissingToken(s) {
		return pgtype.Timestamp{Valid: false}
	}

	for _, layout := range fourDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Timestamp{Time: t.UTC(), Valid: true}
		}
	}

	for _, layout := range monthYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return pgtype.Timestamp{Time: t, Valid: true}
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return pgtype.Timestamp{Time: t, Valid: true}
		}
	}

	return pgtype.Timestamp{Valid: false}
}

// ToFloat converts a string to pgtype.Float8.
// Scientific notation is accepted; NaN and Inf spellings are not.
func ToFloat(s string) pgtype.Float8 {
	s = strings.TrimSpace(s)
	if s == "" || !numericRegex.MatchString(s) {
		return pgtype.Float8{Valid: false}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) {
		return pgtype.Float8{Valid: false}
	}
	return pgtype.Float8{Float64: f, Valid: true}
}

// ToPrefixedFloat removes every occurrence of prefix, trims whitespace and
// parses what remains. "R 1500.50" with prefix "R" yields 1500.5.
func ToPrefixedFloat(s, prefix string) pgtype.Float8 {
	if prefix != "" {
		s = strings.ReplaceAll(s, prefix, "")
	}
	return ToFloat(s)
}

// ToNullableInt parses a decimal and truncates it toward zero.
// Values outside the int64 range are invalid.
func ToNullableInt(s string) pgtype.Int8 {
	f := ToFloat(s)
	if !f.Valid {
		return pgtype.Int8{Valid: false}
	}
	t := math.Trunc(f.Float64)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: int64(t), Valid: true}
}

// ToBinaryInt converts a boolean-like string to 1 or 0.
// Accepts yes/no, y/n, true/false and 1/0 in any case. Numeric renderings
// such as "1.0" map as well. Anything else is invalid.
func ToBinaryInt(s string) pgtype.Int8 {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "yes", "y", "true", "1":
		return pgtype.Int8{Int64: 1, Valid: true}
	case "no", "n", "false", "0":
		return pgtype.Int8{Int64: 0, Valid: true}
	}
	if f := ToFloat(s); f.Valid {
		switch f.Float64 {
		case 1:
			return pgtype.Int8{Int64: 1, Valid: true}
		case 0:
			return pgtype.Int8{Int64: 0, Valid: true}
		}
	}
	return pgtype.Int8{Valid: false}
}

// FormatDate renders a timestamp the way cleaned output files carry it:
// date only when the time part is zero, otherwise date and time.
func FormatDate(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format("2006-01-02")
	}
	return t.Format("2006-01-02 15:04:05")
}

// FormatFloat renders a float in its shortest round-trip form.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
