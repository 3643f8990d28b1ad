package models

import (
	"fknsrs.biz/p/ytingest/internal/sqlbuilderutil"
)

var (
	CommentTable *sqlbuilderutil.Table
)

func init() {
	CommentTable = sqlbuilderutil.MustMakeTable(Comment{})
}

type Comment struct {
	CommentID          string `sql:",table:comments"`
	VideoID            string
	CommentText        string
	CommentAuthor      string
	CommentPublishedAt string `sql:"comment_published_date"`
}
