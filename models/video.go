package models

import (
	"fknsrs.biz/p/ytingest/internal/sqlbuilderutil"
)

var (
	VideoTable *sqlbuilderutil.Table
)

func init() {
	VideoTable = sqlbuilderutil.MustMakeTable(Video{})
}

type Video struct {
	VideoID          string `sql:",table:videos"`
	VideoName        string
	VideoDescription string
	Tags             string
	PublishedAt      string
	ViewCount        int64
	LikeCount        int64
	FavoriteCount    int64
	CommentCount     int64
	Duration         int64
	Caption          bool
	Thumbnail        string
	PlaylistID       string
}
