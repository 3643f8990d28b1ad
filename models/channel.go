package models

import (
	"fknsrs.biz/p/ytingest/internal/sqlbuilderutil"
)

var (
	ChannelTable *sqlbuilderutil.Table
)

func init() {
	ChannelTable = sqlbuilderutil.MustMakeTable(Channel{})
}

type Channel struct {
	ChannelID          string `sql:",table:channels"`
	ChannelName        string
	SubscriptionCount  int64
	ChannelViews       string
	ChannelDescription string
	PlaylistID         string
}
