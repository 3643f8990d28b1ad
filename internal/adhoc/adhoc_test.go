package adhoc

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytingest/internal/relational"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("could not open database: %s", err.Error())
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	if err := relational.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("could not ensure schema: %s", err.Error())
	}

	if _, err := db.Exec("insert into channels (channel_id, channel_name, subscription_count, channel_views, channel_description, playlist_id) values (?, ?, ?, ?, ?, ?)", "UCabc", "test channel", 100, "5000", "", "UUabc"); err != nil {
		t.Fatalf("could not insert fixture: %s", err.Error())
	}

	return db
}

func TestRun(t *testing.T) {
	a := assert.New(t)

	db := newTestDB(t)

	result, err := Run(context.Background(), db, "select channel_id, channel_name, subscription_count from channels")
	a.NoError(err)
	a.Equal([]string{"channel_id", "channel_name", "subscription_count"}, result.Columns)
	a.Equal([][]string{{"UCabc", "test channel", "100"}}, result.Rows)
}

func TestRunWith(t *testing.T) {
	a := assert.New(t)

	db := newTestDB(t)

	result, err := Run(context.Background(), db, "with c as (select channel_name from channels) select * from c")
	a.NoError(err)
	a.Equal([]string{"channel_name"}, result.Columns)
	a.Len(result.Rows, 1)
}

func TestRunNullsRenderEmpty(t *testing.T) {
	a := assert.New(t)

	db := newTestDB(t)

	result, err := Run(context.Background(), db, "select null, channel_id from channels")
	a.NoError(err)
	a.Equal([][]string{{"", "UCabc"}}, result.Rows)
}

func TestRunRejectsWrites(t *testing.T) {
	a := assert.New(t)

	db := newTestDB(t)

	for _, sqlText := range []string{
		"delete from channels",
		"insert into channels (channel_id) values ('x')",
		"update channels set channel_name = 'x'",
		"drop table channels",
		"select channel_id from channels; delete from channels",
		"with c as (select 1) select * from c; drop table channels",
		"",
		"   ",
	} {
		result, err := Run(context.Background(), db, sqlText)
		a.Nil(result)
		a.ErrorIs(err, ErrNotReadOnly)
	}

	var n int
	a.NoError(db.QueryRow("select count(*) from channels").Scan(&n))
	a.Equal(1, n)
}

func TestRunSemicolons(t *testing.T) {
	a := assert.New(t)

	db := newTestDB(t)

	// a lone trailing semicolon is not a second statement
	result, err := Run(context.Background(), db, "select channel_id from channels;")
	a.NoError(err)
	a.Equal([][]string{{"UCabc"}}, result.Rows)

	// neither is a semicolon inside a string literal
	result, err = Run(context.Background(), db, "select ';' from channels")
	a.NoError(err)
	a.Equal([][]string{{";"}}, result.Rows)
}

func TestRunMalformedSQL(t *testing.T) {
	a := assert.New(t)

	db := newTestDB(t)

	result, err := Run(context.Background(), db, "select definitely not valid sql (((")
	a.Nil(result)
	a.Error(err)
	a.NotErrorIs(err, ErrNotReadOnly)
}
