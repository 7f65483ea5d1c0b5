package gradestore

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"infopoint-backend/lib/gradestore/db"
	"infopoint-backend/lib/telemetry"
	"infopoint-backend/lib/timezone"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestStore(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:gradestore")
	defer cleanup()

	sqlite, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	_, err = sqlite.Exec(db.Schema)
	if err != nil {
		t.Fatal(err)
	}
	store := NewStore(sqlite)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	{
		res, err := store.Pull(ctx, "unknown-account")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, res, 0)
	}
	{
		err := store.Push(ctx, PushRequest{
			Time:    timezone.Now(),
			Account: "alice",
			Subjects: []SubjectAverage{
				{Subject: "Mathematik", Value: 2.5},
				{Subject: "Deutsch", Value: 1.75},
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		err = store.Push(ctx, PushRequest{
			Time:    timezone.Now().Add(time.Hour * 24),
			Account: "alice",
			Subjects: []SubjectAverage{
				{Subject: "Mathematik", Value: 2.25},
				{Subject: "Deutsch", Value: 1.75},
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		err = store.Push(ctx, PushRequest{
			Time:    timezone.Now(),
			Account: "bob",
			Subjects: []SubjectAverage{
				{Subject: "Englisch", Value: 3},
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		res, err := store.Pull(ctx, "alice")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, res, 2)

		var mathematik SubjectSeries
		var deutsch SubjectSeries
		for _, s := range res {
			if s.Subject == "Mathematik" {
				mathematik = s
			}
			if s.Subject == "Deutsch" {
				deutsch = s
			}
		}
		require.Len(t, mathematik.Snapshots, 2)
		require.Len(t, deutsch.Snapshots, 2)
	}
	{
		// a same-day re-push replaces that day's slot
		err := store.Push(ctx, PushRequest{
			Time:    timezone.Now(),
			Account: "bob",
			Subjects: []SubjectAverage{
				{Subject: "Englisch", Value: 2.5},
			},
		})
		if err != nil {
			t.Fatal(err)
		}

		res, err := store.Pull(ctx, "bob")
		if err != nil {
			t.Fatal(err)
		}
		require.Len(t, res, 1)
		require.Len(t, res[0].Snapshots, 1)
		require.Equal(t, 2.5, res[0].Snapshots[0].Value)
	}
}
