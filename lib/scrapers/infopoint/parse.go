package infopoint

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"infopoint-backend/lib/htmlutil"
	"infopoint-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// subject headers the dashboard emits that are not subjects
var subjectNoiseLabels = []string{
	"notenspiegel",
	"endnoten",
	"legende",
}

func isGradeTable(table *goquery.Selection) bool {
	hasDatum := false
	hasZensur := false
	table.Find("th").Each(func(_ int, th *goquery.Selection) {
		label := htmlutil.CleanText(th)
		if textutil.EqualName(label, "Datum") {
			hasDatum = true
		}
		if textutil.EqualName(label, "Zensur") || textutil.EqualName(label, "Note") {
			hasZensur = true
		}
	})
	return hasDatum && hasZensur
}

// ParseGrades walks the dashboard markup in document order, keeping
// track of the last seen subject header (h3/b/strong) and attributing
// every grade table that follows to it. Rows of the same subject
// across disjoint blocks are concatenated, never re-sorted. Returns
// the merged histories, the subject order of first appearance and
// whether a grade section existed at all.
func ParseGrades(ctx context.Context, doc *goquery.Document) (map[string][]GradeRecord, []string, bool) {
	grades := map[string][]GradeRecord{}
	var order []string
	sawGradeTable := false

	currentSubject := ""
	doc.Find("h3, b, strong, table").Each(func(_ int, el *goquery.Selection) {
		if goquery.NodeName(el) != "table" {
			text := htmlutil.CleanText(el)
			if len(text) > 2 && !textutil.MatchName(text, subjectNoiseLabels) {
				currentSubject = text
			}
			return
		}

		if !isGradeTable(el) {
			return
		}
		sawGradeTable = true
		if currentSubject == "" {
			slog.DebugContext(ctx, "skipping grade table without subject header")
			return
		}

		subject := currentSubject
		el.Find("tr").Each(func(row int, tr *goquery.Selection) {
			record, ok := parseGradeRow(ctx, tr)
			if !ok {
				return
			}
			if _, seen := grades[subject]; !seen {
				order = append(order, subject)
			}
			grades[subject] = append(grades[subject], record)
		})
	})

	return grades, order, sawGradeTable
}

// parseGradeRow extracts (Datum, Zensur, Bemerkung) from a table row.
// Rows yielding zero extractable fields are dropped, partial rows are
// kept with absent markers.
func parseGradeRow(ctx context.Context, tr *goquery.Selection) (GradeRecord, bool) {
	cells := tr.Find("td")
	if cells.Length() < 2 {
		// header or spacer row
		return GradeRecord{}, false
	}

	date, hasDate := ExtractDate(cells.Eq(0))
	value, hasValue := ExtractText(cells.Eq(1))
	comment := ""
	if cells.Length() > 2 {
		comment, _ = ExtractText(cells.Eq(2))
	}

	var raw []string
	cells.Each(func(_ int, td *goquery.Selection) {
		raw = append(raw, htmlutil.CleanText(td))
	})
	rawText := strings.TrimSpace(strings.Join(raw, " | "))

	if !hasDate && !hasValue && comment == "" {
		return GradeRecord{}, false
	}
	if !hasDate {
		rawDate, _ := ExtractText(cells.Eq(0))
		if rawDate != "" {
			slog.DebugContext(ctx, "grade row date not parseable", "raw", rawDate)
		}
	}

	return GradeRecord{
		Date:    date,
		Value:   value,
		Comment: comment,
		RawText: rawText,
	}, true
}

var absenceLabels = map[string]func(*AbsenceCounters) *int{
	"Fehltage":                    func(a *AbsenceCounters) *int { return &a.TotalDays },
	"Unentschuldigte Fehltage":    func(a *AbsenceCounters) *int { return &a.UnexcusedDays },
	"Fehlstunden":                 func(a *AbsenceCounters) *int { return &a.TotalHours },
	"Unentschuldigte Fehlstunden": func(a *AbsenceCounters) *int { return &a.UnexcusedHours },
}

// ParseAbsences locates the absence table (the one mentioning both
// "Fehltage" and "Unentschuldigte") and reads its four counters. Each
// counter is looked up independently, a missing one stays zero and
// must not prevent the others from being reported.
func ParseAbsences(ctx context.Context, doc *goquery.Document) (AbsenceCounters, bool) {
	var counters AbsenceCounters
	found := false

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		text := table.Text()
		if !strings.Contains(text, "Fehltage") || !strings.Contains(text, "Unentschuldigte") {
			return true
		}
		found = true

		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			// some portals render the label cell as th instead of td
			cells := tr.Find("td, th")
			if cells.Length() < 2 {
				return
			}
			label := htmlutil.CleanText(cells.Eq(0))
			for known, field := range absenceLabels {
				if !textutil.EqualName(label, known) {
					continue
				}
				n, ok := ExtractCount(cells.Eq(1))
				if !ok {
					slog.DebugContext(ctx, "absence counter not parseable",
						"label", label,
						"raw", htmlutil.CleanText(cells.Eq(1)),
					)
					continue
				}
				*field(&counters) = n
			}
		})
		return false
	})

	return counters, found
}

var lastUpdatedRegex = regexp.MustCompile(
	`aktualisiert am[:\s]*(\d{1,2}\.\d{1,2}\.\d{4}(?:,? +\d{1,2}:\d{2})?|\d{4}-\d{2}-\d{2})`,
)

// ParseLastUpdated reads the "aktualisiert am <date>" freshness
// marker, normalized like grade dates.
func ParseLastUpdated(doc *goquery.Document) (time.Time, bool) {
	match := lastUpdatedRegex.FindStringSubmatch(doc.Text())
	if len(match) < 2 {
		return time.Time{}, false
	}
	return ParseDateTime(match[1])
}
