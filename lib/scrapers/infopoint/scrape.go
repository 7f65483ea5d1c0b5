package infopoint

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"infopoint-backend/lib/timezone"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// FetchSnapshot runs one full refresh cycle: ensure a session, fetch
// the dashboard, re-login at most once if the session expired
// mid-fetch, parse and aggregate. On any error the returned Snapshot
// is zero, callers keep their previous one.
func (c *Client) FetchSnapshot(ctx context.Context) (Snapshot, error) {
	ctx, span := tracer.Start(ctx, "client:FetchSnapshot")
	defer span.End()

	err := c.EnsureAuthenticated(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "authentication failed")
		return Snapshot{}, err
	}

	body, err := c.fetchDashboard(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "dashboard fetch failed")
		return Snapshot{}, err
	}

	if !isLoggedInPage(body) {
		// the server dropped the session between login and fetch,
		// one silent re-login, then one refetch
		slog.DebugContext(ctx, "session expired mid-fetch, re-logging in")
		c.markExpired()
		err = c.relogin(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "re-login after expiry failed")
			return Snapshot{}, fmt.Errorf("re-login after expiry: %w", err)
		}
		body, err = c.fetchDashboard(ctx)
		if err != nil {
			span.SetStatus(codes.Error, "dashboard refetch failed")
			return Snapshot{}, err
		}
		if !isLoggedInPage(body) {
			span.SetStatus(codes.Error, "still logged out after re-login")
			return Snapshot{}, fmt.Errorf("%w: session rejected after re-login", InvalidCredentials)
		}
	}

	snapshot, err := parseSnapshot(ctx, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Snapshot{}, err
	}

	span.SetAttributes(
		attribute.Int("subjects", len(snapshot.Subjects)),
		attribute.Int("absence_days", snapshot.Absences.TotalDays),
	)
	return snapshot, nil
}

func (c *Client) fetchDashboard(ctx context.Context) ([]byte, error) {
	res, err := c.Http.R().
		SetContext(ctx).
		Get(dataPath)
	if err != nil {
		return nil, err
	}
	return res.Body(), nil
}

func parseSnapshot(ctx context.Context, body []byte) (Snapshot, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(body))
	if err != nil {
		return Snapshot{}, err
	}

	grades, order, hasGrades := ParseGrades(ctx, doc)
	absences, hasAbsences := ParseAbsences(ctx, doc)
	if !hasGrades && !hasAbsences {
		return Snapshot{}, ErrBadResponse
	}

	lastUpdated, ok := ParseLastUpdated(doc)
	if !ok {
		slog.DebugContext(ctx, "dashboard has no freshness marker")
	}

	subjects := make(map[string]SubjectSnapshot, len(grades))
	for name, history := range grades {
		subjects[name] = buildSubjectSnapshot(name, history)
	}

	return Snapshot{
		LastUpdated:  lastUpdated,
		Subjects:     subjects,
		SubjectOrder: order,
		Absences:     absences,
		FetchedAt:    timezone.Now(),
	}, nil
}

// buildSubjectSnapshot derives the average and latest fields from a
// subject's history. Only records whose value parses as a numeric
// token count towards the average, and only dated numeric records can
// be the latest (ties by date go to the later document position).
func buildSubjectSnapshot(name string, history []GradeRecord) SubjectSnapshot {
	var sum float64
	var count int
	var latest *GradeRecord

	for i := range history {
		record := &history[i]
		value, numeric := ParseDecimal(record.Value)
		if !numeric {
			continue
		}
		sum += value
		count++

		if !record.HasDate() {
			continue
		}
		if latest == nil || !record.Date.Before(latest.Date) {
			latest = record
		}
	}

	snapshot := SubjectSnapshot{
		Name:    name,
		History: history,
	}
	if count > 0 {
		average := sum / float64(count)
		snapshot.Average = &average
	}
	if latest != nil {
		copied := *latest
		snapshot.Latest = &copied
	}
	return snapshot
}
