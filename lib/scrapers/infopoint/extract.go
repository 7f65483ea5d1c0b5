package infopoint

import (
	"regexp"
	"strconv"
	"time"

	"infopoint-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// Field extraction never fails loudly. A missing element and a
// malformed value both report ok=false, the caller's fallback is the
// same for both: exclude the field from computation and keep whatever
// raw text exists for diagnostics.

func ExtractText(sel *goquery.Selection) (string, bool) {
	if sel == nil || sel.Length() == 0 {
		return "", false
	}
	text := htmlutil.CleanText(sel)
	if text == "" {
		return "", false
	}
	return text, true
}

func ExtractDate(sel *goquery.Selection) (time.Time, bool) {
	text, ok := ExtractText(sel)
	if !ok {
		return time.Time{}, false
	}
	return ParseDate(text)
}

func ExtractDecimal(sel *goquery.Selection) (float64, bool) {
	text, ok := ExtractText(sel)
	if !ok {
		return 0, false
	}
	return ParseDecimal(text)
}

var leadingInt = regexp.MustCompile(`^(\d+)`)

// ExtractCount reads the leading integer of a counter cell. The portal
// renders hour counters as "12 (3)" where the parenthesized part is a
// partial-lesson count we do not track.
func ExtractCount(sel *goquery.Selection) (int, bool) {
	text, ok := ExtractText(sel)
	if !ok {
		return 0, false
	}
	match := leadingInt.FindString(text)
	if match == "" {
		return 0, false
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return n, true
}
