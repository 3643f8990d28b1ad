package relational

import (
	"context"
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytingest/internal/landing"
)

func newTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := EnsureSchema(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	return db
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	a := assert.New(t)

	db := newTestDB(t)

	// a second run over an existing schema must be a no-op
	a.NoError(EnsureSchema(context.Background(), db))
}

func TestInsertChannelDuplicateKey(t *testing.T) {
	a := assert.New(t)

	ctx := context.Background()
	db := newTestDB(t)

	record := landing.ChannelRecord{
		ChannelID:         "UCabc",
		ChannelName:       "Test Channel",
		SubscriptionCount: 100,
		ChannelViews:      "2000",
		PlaylistID:        "UUabc",
	}

	a.NoError(InsertChannel(ctx, db, record))

	err := InsertChannel(ctx, db, record)
	a.Error(err)

	var dup *DuplicateKeyError
	a.ErrorAs(err, &dup)
	a.Equal("channels", dup.Table)
	a.Equal("UCabc", dup.Key)

	var count int
	a.NoError(db.QueryRowContext(ctx, `select count(*) from channels`).Scan(&count))
	a.Equal(1, count)
}

func TestInsertVideoJoinsTags(t *testing.T) {
	a := assert.New(t)

	ctx := context.Background()
	db := newTestDB(t)

	a.NoError(InsertVideo(ctx, db, landing.VideoRecord{
		VideoID:    "video_0001",
		VideoName:  "Tagged",
		Tags:       []string{"one", "two"},
		PlaylistID: "UUabc",
	}))

	a.NoError(InsertVideo(ctx, db, landing.VideoRecord{
		VideoID:    "video_0002",
		VideoName:  "Untagged",
		PlaylistID: "UUabc",
	}))

	var tags string
	a.NoError(db.QueryRowContext(ctx, `select tags from videos where video_id = ?`, "video_0001").Scan(&tags))
	a.Equal("one, two", tags)

	// a missing tag list flattens to an empty string, never a null
	a.NoError(db.QueryRowContext(ctx, `select tags from videos where video_id = ?`, "video_0002").Scan(&tags))
	a.Equal("", tags)
}

func TestResolvePlaylistID(t *testing.T) {
	a := assert.New(t)

	ctx := context.Background()
	db := newTestDB(t)

	_, err := ResolvePlaylistID(ctx, db, "UCabc")
	a.ErrorIs(err, ErrStageNotReady)

	a.NoError(InsertChannel(ctx, db, landing.ChannelRecord{
		ChannelID:   "UCabc",
		ChannelName: "Test Channel",
		PlaylistID:  "UUabc",
	}))

	playlistID, err := ResolvePlaylistID(ctx, db, "UCabc")
	a.NoError(err)
	a.Equal("UUabc", playlistID)
}

func TestResolveVideoIDs(t *testing.T) {
	a := assert.New(t)

	ctx := context.Background()
	db := newTestDB(t)

	ids, err := ResolveVideoIDs(ctx, db, "UUabc")
	a.NoError(err)
	a.Empty(ids)

	a.NoError(InsertVideo(ctx, db, landing.VideoRecord{VideoID: "video_0001", VideoName: "One", PlaylistID: "UUabc"}))
	a.NoError(InsertVideo(ctx, db, landing.VideoRecord{VideoID: "video_0002", VideoName: "Two", PlaylistID: "UUabc"}))
	a.NoError(InsertVideo(ctx, db, landing.VideoRecord{VideoID: "video_0003", VideoName: "Other", PlaylistID: "UUother"}))

	ids, err = ResolveVideoIDs(ctx, db, "UUabc")
	a.NoError(err)
	a.Equal([]string{"video_0001", "video_0002"}, ids)
}

func TestInsertCommentDuplicateKey(t *testing.T) {
	a := assert.New(t)

	ctx := context.Background()
	db := newTestDB(t)

	record := landing.CommentRecord{
		CommentID:          "comment_01",
		VideoID:            "video_0001",
		CommentText:        "first",
		CommentAuthor:      "alice",
		CommentPublishedAt: "2023-05-01 10:00:00",
	}

	a.NoError(InsertComment(ctx, db, record))

	err := InsertComment(ctx, db, record)

	var dup *DuplicateKeyError
	a.ErrorAs(err, &dup)
	a.Equal("comments", dup.Table)
}
