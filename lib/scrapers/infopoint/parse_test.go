package infopoint

import (
	"context"
	"os"
	"testing"
	"time"

	"infopoint-backend/lib/telemetry"
	"infopoint-backend/lib/timezone"

	"github.com/stretchr/testify/require"
)

func readFixture(t *testing.T, name string) []byte {
	body, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatal(err)
	}
	return body
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, timezone.Location)
}

func TestParseDashboard(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	ctx := context.Background()
	snapshot, err := parseSnapshot(ctx, readFixture(t, "dashboard.html"))
	if err != nil {
		t.Fatal(err)
	}

	require.Equal(t, []string{"Mathematik", "Deutsch"}, snapshot.SubjectOrder)
	require.Len(t, snapshot.Subjects, 2)

	mathematik := snapshot.Subjects["Mathematik"]
	// two disjoint blocks merged by concatenation in document order
	require.Len(t, mathematik.History, 3)
	require.Equal(t, "3", mathematik.History[0].Value)
	require.Equal(t, "2", mathematik.History[1].Value)
	require.Equal(t, "4", mathematik.History[2].Value)
	require.Equal(t, day(2025, time.September, 15), mathematik.History[2].Date)

	require.NotNil(t, mathematik.Average)
	require.InDelta(t, 3.0, *mathematik.Average, 1e-9)
	require.NotNil(t, mathematik.Latest)
	require.Equal(t, day(2025, time.September, 28), mathematik.Latest.Date)
	require.Equal(t, "2", mathematik.Latest.Value)
	require.Equal(t, "LK: rationale Zahlen", mathematik.Latest.Comment)

	deutsch := snapshot.Subjects["Deutsch"]
	// the dash row stays in history but is excluded from the average,
	// the undated "1" counts towards the average but cannot be latest
	require.Len(t, deutsch.History, 3)
	require.NotNil(t, deutsch.Average)
	require.InDelta(t, 1.75, *deutsch.Average, 1e-9)
	require.NotNil(t, deutsch.Latest)
	require.Equal(t, day(2025, time.September, 5), deutsch.Latest.Date)
	require.Equal(t, "2,5", deutsch.Latest.Value)
	require.False(t, deutsch.History[2].HasDate())

	require.Equal(t, 5, snapshot.Absences.TotalDays)
	require.Equal(t, 1, snapshot.Absences.UnexcusedDays)
	require.Equal(t, 12, snapshot.Absences.TotalHours)
	require.Equal(t, 0, snapshot.Absences.UnexcusedHours)

	require.Equal(
		t,
		time.Date(2025, time.September, 28, 17, 45, 0, 0, timezone.Location),
		snapshot.LastUpdated,
	)
}

func TestParseSpecScenario(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	markup := `
	<html><body>
	<h3>Mathematik</h3>
	<table>
		<tr><th>Datum</th><th>Zensur</th><th>Bemerkung</th></tr>
		<tr><td>01.09.2025</td><td>3</td><td>Test</td></tr>
		<tr><td>28.09.2025</td><td>2</td><td>LK: rationale Zahlen</td></tr>
	</table>
	</body></html>`

	snapshot, err := parseSnapshot(context.Background(), []byte(markup))
	if err != nil {
		t.Fatal(err)
	}

	mathematik := snapshot.Subjects["Mathematik"]
	require.NotNil(t, mathematik.Average)
	require.InDelta(t, 2.5, *mathematik.Average, 1e-9)
	require.NotNil(t, mathematik.Latest)
	require.Equal(t, day(2025, time.September, 28), mathematik.Latest.Date)
	require.Equal(t, "2", mathematik.Latest.Value)
	require.Equal(t, "LK: rationale Zahlen", mathematik.Latest.Comment)

	// no absence section present: all-zero counters, no error
	require.Equal(t, AbsenceCounters{}, snapshot.Absences)
	require.True(t, snapshot.LastUpdated.IsZero())
}

func TestParseAbsencesOnly(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	markup := `
	<html><body>
	<table>
		<tr><td>Fehltage</td><td>5</td></tr>
		<tr><td>Unentschuldigte Fehltage</td><td></td></tr>
	</table>
	</body></html>`

	snapshot, err := parseSnapshot(context.Background(), []byte(markup))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, AbsenceCounters{TotalDays: 5}, snapshot.Absences)
	require.Empty(t, snapshot.Subjects)
}

func TestParseAbsencesHeaderLabelCells(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	// label cells rendered as th instead of td
	markup := `
	<html><body>
	<table>
		<tr><th>Fehltage</th><td>5</td></tr>
		<tr><th>Unentschuldigte Fehltage</th><td>1</td></tr>
		<tr><th>Fehlstunden</th><td>12 (3)</td></tr>
	</table>
	</body></html>`

	snapshot, err := parseSnapshot(context.Background(), []byte(markup))
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, AbsenceCounters{
		TotalDays:     5,
		UnexcusedDays: 1,
		TotalHours:    12,
	}, snapshot.Absences)
}

func TestParseNonNumericOnlySubject(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	markup := `
	<html><body>
	<h3>Sport</h3>
	<table>
		<tr><th>Datum</th><th>Zensur</th><th>Bemerkung</th></tr>
		<tr><td>10.09.2025</td><td>teilg.</td><td></td></tr>
	</table>
	</body></html>`

	snapshot, err := parseSnapshot(context.Background(), []byte(markup))
	if err != nil {
		t.Fatal(err)
	}

	sport := snapshot.Subjects["Sport"]
	require.Len(t, sport.History, 1)
	require.Nil(t, sport.Average)
	require.Nil(t, sport.Latest)
}

func TestParseBadResponse(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	_, err := parseSnapshot(context.Background(), []byte("<html><body><p>Wartungsarbeiten</p></body></html>"))
	require.ErrorIs(t, err, ErrBadResponse)
}

func TestParseMalformedRowsDropped(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:scrapers/infopoint")
	defer cleanup()

	markup := `
	<html><body>
	<h3>Physik</h3>
	<table>
		<tr><th>Datum</th><th>Zensur</th><th>Bemerkung</th></tr>
		<tr><td></td><td></td><td></td></tr>
		<tr><td>03.09.2025</td><td>1</td><td></td></tr>
	</table>
	</body></html>`

	snapshot, err := parseSnapshot(context.Background(), []byte(markup))
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, snapshot.Subjects["Physik"].History, 1)
}
