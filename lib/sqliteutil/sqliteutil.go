package sqliteutil

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	devenv "infopoint-backend/dev/env"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// opens a sqlite database at `path` (or a remote libsql database when
// `path` is a libsql:// url) and applies `schema` to it. file databases
// are created on demand and switched to WAL.
func OpenDB(schema, path string) (*sql.DB, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(schema)
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		db.Close()
		return nil, err
	}
	return db, nil
}

func open(path string) (*sql.DB, error) {
	if strings.HasPrefix(path, "libsql://") ||
		strings.HasPrefix(path, "http://") ||
		strings.HasPrefix(path, "https://") {
		return sql.Open("libsql", path)
	}

	if path == "" {
		return nil, fmt.Errorf("a database path was not specified")
	}
	if path == ":memory:" {
		return sql.Open("sqlite", path)
	}

	dbpath, err := devenv.ResolvePath(path)
	if err != nil {
		return nil, err
	}

	_, statErr := os.Stat(dbpath)
	if os.IsNotExist(statErr) {
		f, err := os.Create(dbpath)
		if err != nil {
			return nil, err
		}
		f.Close()
	}

	db, err := sql.Open("sqlite", dbpath)
	if err != nil {
		return nil, err
	}
	// see this stackoverflow post for information on why the following
	// lines exist: https://stackoverflow.com/questions/35804884/sqlite-concurrent-writing-performance
	db.SetMaxOpenConns(1)
	_, err = db.Exec("PRAGMA journal_mode=WAL")
	if err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
