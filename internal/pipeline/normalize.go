package pipeline

import (
	"fmt"
	"strconv"

	"fknsrs.biz/p/ytingest/internal/landing"
	"fknsrs.biz/p/ytingest/internal/stringutil"
	"fknsrs.biz/p/ytingest/internal/timeutil"
	"fknsrs.biz/p/ytingest/internal/ytapi"
)

// ParseError is returned when a field on a fetched item can't be converted
// into its landed representation. The item carrying the bad field is dropped;
// the rest of the batch is unaffected.
type ParseError struct {
	Entity string
	ID     string
	Field  string
	Input  string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("pipeline: could not parse %s field %q on %s %q: input was %q: %s", e.Entity, e.Field, e.Entity, e.ID, e.Input, e.Err.Error())
}

func (e *ParseError) Unwrap() error { return e.Err }

// parseCount is deliberately forgiving; the upstream API sometimes omits
// statistics entirely, and a missing count is just zero.
func parseCount(s string) int64 {
	if s == "" {
		return 0
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}

	return n
}

func normalizeChannel(channel *ytapi.Channel) landing.ChannelRecord {
	return landing.ChannelRecord{
		ChannelID:          channel.ID,
		ChannelName:        channel.Title,
		ChannelDescription: channel.Description,
		SubscriptionCount:  parseCount(channel.SubscriberCount),
		ChannelViews:       channel.ViewCount,
		PlaylistID:         channel.UploadsPlaylistID,
	}
}

func normalizeVideo(video *ytapi.Video, playlistID string) (landing.VideoRecord, error) {
	duration, err := timeutil.ParseDayTimeDuration(video.Duration)
	if err != nil {
		return landing.VideoRecord{}, &ParseError{Entity: "video", ID: video.ID, Field: "duration", Input: video.Duration, Err: err}
	}

	publishedAt, err := timeutil.FlattenTimestamp(video.PublishedAt)
	if err != nil {
		return landing.VideoRecord{}, &ParseError{Entity: "video", ID: video.ID, Field: "publishedAt", Input: video.PublishedAt, Err: err}
	}

	return landing.VideoRecord{
		VideoID:          video.ID,
		PlaylistID:       playlistID,
		VideoName:        video.Title,
		VideoDescription: video.Description,
		Tags:             video.Tags,
		PublishedAt:      publishedAt,
		ViewCount:        parseCount(video.ViewCount),
		LikeCount:        parseCount(video.LikeCount),
		FavoriteCount:    parseCount(video.FavoriteCount),
		CommentCount:     parseCount(video.CommentCount),
		Duration:         duration.Seconds(),
		Caption:          stringutil.LooksTrue(video.Caption),
		Thumbnail:        video.ThumbnailURL,
	}, nil
}

func normalizeComment(comment ytapi.CommentThread) (landing.CommentRecord, error) {
	publishedAt, err := timeutil.FlattenTimestamp(comment.PublishedAt)
	if err != nil {
		return landing.CommentRecord{}, &ParseError{Entity: "comment", ID: comment.ID, Field: "publishedAt", Input: comment.PublishedAt, Err: err}
	}

	return landing.CommentRecord{
		CommentID:          comment.ID,
		VideoID:            comment.VideoID,
		CommentText:        comment.Text,
		CommentAuthor:      comment.Author,
		CommentPublishedAt: publishedAt,
	}, nil
}
