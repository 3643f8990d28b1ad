// Package relational owns the promoted copy of the data: the three table
// definitions, single-row inserts, and the lookups later pipeline stages use
// to re-derive linkage. Everything here is parameterized; no value from a
// caller is ever interpolated into query text.
package relational

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-sqlite3"

	"fknsrs.biz/p/ytingest/internal/landing"
)

var (
	// ErrStageNotReady means a lookup needed rows that an earlier pipeline
	// stage should have written but has not.
	ErrStageNotReady = fmt.Errorf("relational: prerequisite stage has not completed")
)

// DuplicateKeyError is a primary key collision on insert. Re-running a stage
// over already-promoted data produces this; it is a hard failure by design,
// since an upsert would silently mask double ingestion.
type DuplicateKeyError struct {
	Table string
	Key   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("relational: duplicate key %q in table %s", e.Key, e.Table)
}

// IntegrityError is any other constraint violation from the store.
type IntegrityError struct {
	Table string
	Err   error
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("relational: integrity violation in table %s: %s", e.Table, e.Err.Error())
}

func (e *IntegrityError) Unwrap() error { return e.Err }

func mapInsertError(table, key string, err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return &DuplicateKeyError{Table: table, Key: key}
		default:
			return &IntegrityError{Table: table, Err: err}
		}
	}

	return err
}

// Execer is satisfied by *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Querier is satisfied by *sql.DB and *sql.Tx.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var schemaStatements = []string{
	`create table if not exists channels (
		channel_id text primary key,
		channel_name text,
		subscription_count int,
		channel_views text,
		channel_description text,
		playlist_id text
	)`,
	`create table if not exists videos (
		video_id text primary key,
		video_name text,
		video_description text,
		tags text,
		published_at datetime,
		view_count int,
		like_count int,
		favorite_count int,
		comment_count int,
		duration int,
		caption boolean,
		thumbnail text,
		playlist_id text
	)`,
	`create table if not exists comments (
		comment_id text primary key,
		video_id text,
		comment_text text,
		comment_author text,
		comment_published_date datetime
	)`,
}

// EnsureSchema creates the three tables if they are absent. Safe to call on
// every pipeline run.
func EnsureSchema(ctx context.Context, db Execer) error {
	for _, statement := range schemaStatements {
		if _, err := db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("relational.EnsureSchema: %w", err)
		}
	}

	return nil
}

func InsertChannel(ctx context.Context, db Execer, record landing.ChannelRecord) error {
	if _, err := db.ExecContext(
		ctx,
		`insert into channels (channel_id, channel_name, subscription_count, channel_views, channel_description, playlist_id) values (?, ?, ?, ?, ?, ?)`,
		record.ChannelID,
		record.ChannelName,
		record.SubscriptionCount,
		record.ChannelViews,
		record.ChannelDescription,
		record.PlaylistID,
	); err != nil {
		return fmt.Errorf("relational.InsertChannel: %w", mapInsertError("channels", record.ChannelID, err))
	}

	return nil
}

func InsertVideo(ctx context.Context, db Execer, record landing.VideoRecord) error {
	if _, err := db.ExecContext(
		ctx,
		`insert into videos (video_id, video_name, video_description, tags, published_at, view_count, like_count, favorite_count, comment_count, duration, caption, thumbnail, playlist_id) values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.VideoID,
		record.VideoName,
		record.VideoDescription,
		strings.Join(record.Tags, ", "),
		record.PublishedAt,
		record.ViewCount,
		record.LikeCount,
		record.FavoriteCount,
		record.CommentCount,
		record.Duration,
		record.Caption,
		record.Thumbnail,
		record.PlaylistID,
	); err != nil {
		return fmt.Errorf("relational.InsertVideo: %w", mapInsertError("videos", record.VideoID, err))
	}

	return nil
}

func InsertComment(ctx context.Context, db Execer, record landing.CommentRecord) error {
	if _, err := db.ExecContext(
		ctx,
		`insert into comments (comment_id, video_id, comment_text, comment_author, comment_published_date) values (?, ?, ?, ?, ?)`,
		record.CommentID,
		record.VideoID,
		record.CommentText,
		record.CommentAuthor,
		record.CommentPublishedAt,
	); err != nil {
		return fmt.Errorf("relational.InsertComment: %w", mapInsertError("comments", record.CommentID, err))
	}

	return nil
}

// ResolvePlaylistID looks up the uploads playlist for a promoted channel.
// This is the cross-store dependency between stages: the videos and comments
// stages re-derive linkage from the relational copy rather than carrying it
// forward in memory, so a missing row means the channel stage never finished.
func ResolvePlaylistID(ctx context.Context, db Querier, channelID string) (string, error) {
	var playlistID string
	if err := db.QueryRowContext(ctx, `select playlist_id from channels where channel_id = ?`, channelID).Scan(&playlistID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("relational.ResolvePlaylistID: channel %s not promoted: %w", channelID, ErrStageNotReady)
		}

		return "", fmt.Errorf("relational.ResolvePlaylistID: %w", err)
	}

	return playlistID, nil
}

// ResolveVideoIDs returns the ids of every promoted video under a playlist.
// An empty result is not an error; a channel can legitimately have no videos.
func ResolveVideoIDs(ctx context.Context, db Querier, playlistID string) ([]string, error) {
	rows, err := db.QueryContext(ctx, `select video_id from videos where playlist_id = ?`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("relational.ResolveVideoIDs: %w", err)
	}
	defer rows.Close()

	var ids []string

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("relational.ResolveVideoIDs: %w", err)
		}

		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("relational.ResolveVideoIDs: %w", err)
	}

	return ids, nil
}
