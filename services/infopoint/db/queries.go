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

type Account struct {
	ID        string
	Name      string
	BaseUrl   string
	Username  string
	Password  string
	CreatedAt int64
}

const createAccount = `
INSERT INTO account (id, name, base_url, username, password, created_at)
VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateAccount(ctx context.Context, arg Account) error {
	_, err := q.db.ExecContext(
		ctx, createAccount,
		arg.ID, arg.Name, arg.BaseUrl, arg.Username, arg.Password, arg.CreatedAt,
	)
	return err
}

const getAccount = `
SELECT id, name, base_url, username, password, created_at
FROM account WHERE id = ?
`

func (q *Queries) GetAccount(ctx context.Context, id string) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, id)
	var out Account
	err := row.Scan(&out.ID, &out.Name, &out.BaseUrl, &out.Username, &out.Password, &out.CreatedAt)
	return out, err
}

const getAllAccounts = `
SELECT id, name, base_url, username, password, created_at
FROM account ORDER BY created_at
`

func (q *Queries) GetAllAccounts(ctx context.Context) ([]Account, error) {
	rows, err := q.db.QueryContext(ctx, getAllAccounts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Account
	for rows.Next() {
		var account Account
		err = rows.Scan(
			&account.ID, &account.Name, &account.BaseUrl,
			&account.Username, &account.Password, &account.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, account)
	}
	return out, rows.Err()
}

const deleteAccount = `
DELETE FROM account WHERE id = ?
`

func (q *Queries) DeleteAccount(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteAccount, id)
	return err
}
