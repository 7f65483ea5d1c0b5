package db

import (
	"context"
	"database/sql"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const createAccountSubject = `
INSERT INTO account_subject (account, subject)
VALUES (?, ?)
ON CONFLICT (account, subject) DO NOTHING
`

type CreateAccountSubjectParams struct {
	Account string
	Subject string
}

func (q *Queries) CreateAccountSubject(ctx context.Context, arg CreateAccountSubjectParams) error {
	_, err := q.db.ExecContext(ctx, createAccountSubject, arg.Account, arg.Subject)
	return err
}

const getAccountSubjectId = `
SELECT id FROM account_subject
WHERE account = ? AND subject = ?
`

type GetAccountSubjectIdParams struct {
	Account string
	Subject string
}

func (q *Queries) GetAccountSubjectId(ctx context.Context, arg GetAccountSubjectIdParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, getAccountSubjectId, arg.Account, arg.Subject)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteAverageSnapshotsIn = `
DELETE FROM average_snapshot
WHERE time >= ? AND time < ?
  AND account_subject_id IN (
    SELECT id FROM account_subject WHERE account = ?
  )
`

type DeleteAverageSnapshotsInParams struct {
	After   int64
	Before  int64
	Account string
}

func (q *Queries) DeleteAverageSnapshotsIn(ctx context.Context, arg DeleteAverageSnapshotsInParams) error {
	_, err := q.db.ExecContext(ctx, deleteAverageSnapshotsIn, arg.After, arg.Before, arg.Account)
	return err
}

const createAverageSnapshot = `
INSERT INTO average_snapshot (account_subject_id, time, value)
VALUES (?, ?, ?)
`

type CreateAverageSnapshotParams struct {
	AccountSubjectID int64
	Time             int64
	Value            float64
}

func (q *Queries) CreateAverageSnapshot(ctx context.Context, arg CreateAverageSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, createAverageSnapshot, arg.AccountSubjectID, arg.Time, arg.Value)
	return err
}

const getAverageSnapshots = `
SELECT account_subject.subject, average_snapshot.time, average_snapshot.value
FROM average_snapshot
JOIN account_subject ON account_subject.id = average_snapshot.account_subject_id
WHERE account_subject.account = ?
ORDER BY account_subject.subject, average_snapshot.time
`

type GetAverageSnapshotsRow struct {
	Subject string
	Time    int64
	Value   float64
}

func (q *Queries) GetAverageSnapshots(ctx context.Context, account string) ([]GetAverageSnapshotsRow, error) {
	rows, err := q.db.QueryContext(ctx, getAverageSnapshots, account)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GetAverageSnapshotsRow
	for rows.Next() {
		var row GetAverageSnapshotsRow
		err = rows.Scan(&row.Subject, &row.Time, &row.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
