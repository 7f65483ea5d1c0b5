package infopoint

import (
	"errors"
	"time"
)

var InvalidCredentials = errors.New("incorrect username or password")

// returned when the dashboard response is structurally unusable,
// i.e. it contains neither a grade nor an absence section
var ErrBadResponse = errors.New("response is missing both grade and absence sections")

// a single row of a subject's grade table. Value stays an opaque
// string, the portal mixes plain grades ("2"), comma decimals ("2,5")
// and modifier forms ("2-") which must survive round trips unchanged.
type GradeRecord struct {
	// zero when the row carried no parseable date
	Date    time.Time `json:"date"`
	Value   string    `json:"value"`
	Comment string    `json:"comment"`
	RawText string    `json:"raw_text"`
}

func (r GradeRecord) HasDate() bool {
	return !r.Date.IsZero()
}

type SubjectSnapshot struct {
	Name string `json:"name"`
	// insertion order as encountered in the markup, never re-sorted
	History []GradeRecord `json:"history"`
	// nil when no numeric grade exists for the subject
	Average *float64 `json:"average"`
	// the most recently dated numeric record, nil when no numeric
	// record carries a date
	Latest *GradeRecord `json:"latest"`
}

type AbsenceCounters struct {
	TotalDays      int `json:"total_days"`
	UnexcusedDays  int `json:"unexcused_days"`
	TotalHours     int `json:"total_hours"`
	UnexcusedHours int `json:"unexcused_hours"`
}

// the complete normalized result of one dashboard fetch
type Snapshot struct {
	// zero when the portal did not render an "aktualisiert am" marker
	LastUpdated time.Time                  `json:"last_updated"`
	Subjects    map[string]SubjectSnapshot `json:"subjects"`
	// document order of first appearance, for stable rendering
	SubjectOrder []string        `json:"subject_order"`
	Absences     AbsenceCounters `json:"absences"`
	FetchedAt    time.Time       `json:"fetched_at"`
}
