package gradestore

import (
	"context"
	"database/sql"
	"time"

	"infopoint-backend/lib/gradestore/db"
	"infopoint-backend/lib/timezone"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// Store keeps a time series of per-subject grade averages, one slot
// per account and calendar day. Pushing twice on the same day replaces
// that day's snapshots instead of stacking duplicates.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

func NewStore(database *sql.DB) Store {
	return Store{
		db:  database,
		qry: db.New(database),
	}
}

type SubjectAverage struct {
	Subject string
	Value   float64
}

type PushRequest struct {
	Time     time.Time
	Account  string
	Subjects []SubjectAverage
}

func (s Store) Push(ctx context.Context, req PushRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	startOfToday := timezone.StartOfDay(req.Time).Unix()
	startOfTomorrow := timezone.StartOfDay(req.Time).AddDate(0, 0, 1).Unix()

	err = txqry.DeleteAverageSnapshotsIn(ctx, db.DeleteAverageSnapshotsInParams{
		After:   startOfToday,
		Before:  startOfTomorrow,
		Account: req.Account,
	})
	if err != nil {
		return err
	}

	for _, subject := range req.Subjects {
		err := txqry.CreateAccountSubject(ctx, db.CreateAccountSubjectParams{
			Account: req.Account,
			Subject: subject.Subject,
		})
		if err != nil {
			return err
		}

		subjectId, err := txqry.GetAccountSubjectId(ctx, db.GetAccountSubjectIdParams{
			Account: req.Account,
			Subject: subject.Subject,
		})
		if err != nil {
			return err
		}

		err = txqry.CreateAverageSnapshot(ctx, db.CreateAverageSnapshotParams{
			AccountSubjectID: subjectId,
			Time:             req.Time.Unix(),
			Value:            subject.Value,
		})
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

type AverageSnapshot struct {
	Time  time.Time
	Value float64
}

type SubjectSeries struct {
	Subject   string
	Snapshots []AverageSnapshot
}

func (s Store) Pull(ctx context.Context, account string) ([]SubjectSeries, error) {
	rows, err := s.qry.GetAverageSnapshots(ctx, account)
	if err != nil {
		return nil, err
	}

	var series []SubjectSeries
	for _, r := range rows {
		snapshot := AverageSnapshot{
			Time:  time.Unix(r.Time, 0).In(timezone.Location),
			Value: r.Value,
		}
		if len(series) > 0 && series[len(series)-1].Subject == r.Subject {
			last := &series[len(series)-1]
			last.Snapshots = append(last.Snapshots, snapshot)
			continue
		}
		series = append(series, SubjectSeries{
			Subject:   r.Subject,
			Snapshots: []AverageSnapshot{snapshot},
		})
	}

	return series, nil
}
