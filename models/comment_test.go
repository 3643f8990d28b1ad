package models_test

import (
	"context"
	"database/sql"
	"testing"

	"fknsrs.biz/p/sorm"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytingest/internal/landing"
	"fknsrs.biz/p/ytingest/internal/relational"
	"fknsrs.biz/p/ytingest/models"
)

func TestCommentRoundTrip(t *testing.T) {
	a := assert.New(t)

	ctx := context.Background()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	a.NoError(relational.EnsureSchema(ctx, db))

	a.NoError(relational.InsertComment(ctx, db, landing.CommentRecord{
		CommentID:          "comment_01",
		VideoID:            "video_0001",
		CommentText:        "older",
		CommentAuthor:      "alice",
		CommentPublishedAt: "2023-05-01 10:00:00",
	}))

	a.NoError(relational.InsertComment(ctx, db, landing.CommentRecord{
		CommentID:          "comment_02",
		VideoID:            "video_0001",
		CommentText:        "newer",
		CommentAuthor:      "bob",
		CommentPublishedAt: "2023-05-02 10:00:00",
	}))

	var comments []models.Comment
	a.NoError(sorm.FindWhere(ctx, db, &comments, "where video_id = ? order by comment_published_date desc", "video_0001"))

	if a.Len(comments, 2) {
		a.Equal("comment_02", comments[0].CommentID)
		a.Equal("newer", comments[0].CommentText)
		a.Contains(comments[0].CommentPublishedAt, "2023-05-02")
		a.Equal("comment_01", comments[1].CommentID)
	}
}
