package infopoint

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"infopoint-backend/lib/timezone"
)

// the portal renders dates in two layouts depending on the page,
// "28.09.2025" on grade tables and "2025-09-28" on some exports
var dateLayouts = []string{
	"02.01.2006",
	"2.1.2006",
	"2006-01-02",
}

var datetimeLayouts = []string{
	"02.01.2006 15:04",
	"02.01.2006, 15:04",
	"2.1.2006 15:04",
	"2006-01-02 15:04",
}

// ParseDate normalizes a date token to the start of its calendar day
// in school-local time. ok is false for anything that matches neither
// accepted layout, no default era is guessed.
func ParseDate(text string) (time.Time, bool) {
	text = strings.Trim(text, " \t\n")
	for _, layout := range dateLayouts {
		t, err := time.ParseInLocation(layout, text, timezone.Location)
		if err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateTime accepts the datetime forms of the freshness marker and
// falls back to plain dates.
func ParseDateTime(text string) (time.Time, bool) {
	text = strings.Trim(text, " \t\n")
	for _, layout := range datetimeLayouts {
		t, err := time.ParseInLocation(layout, text, timezone.Location)
		if err == nil {
			return t, true
		}
	}
	return ParseDate(text)
}

var decimalToken = regexp.MustCompile(`^\d+([.,]\d+)?$`)

// ParseDecimal parses a numeric grade token, accepting both german
// comma and dot separators. Modifier forms like "2-" or "1+" are not
// numeric tokens and report false.
func ParseDecimal(text string) (float64, bool) {
	text = strings.Trim(text, " \t\n")
	if !decimalToken.MatchString(text) {
		return 0, false
	}
	text = strings.ReplaceAll(text, ",", ".")
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
