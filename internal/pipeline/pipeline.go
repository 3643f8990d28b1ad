// Package pipeline moves YouTube channel metadata through three stages:
// channel, then videos, then comments. Each stage fetches from the remote
// API, lands raw records in the document store, reads them back, and
// promotes them into the relational tables. Stages are ordered; the videos
// stage refuses to run before the channel stage has promoted a playlist ID,
// and the comments stage refuses to run while video records sit in the
// landing store waiting on promotion.
package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"fknsrs.biz/p/ytingest/internal/ctxdb"
	"fknsrs.biz/p/ytingest/internal/ctxlanding"
	"fknsrs.biz/p/ytingest/internal/ctxlogger"
	"fknsrs.biz/p/ytingest/internal/ctxytapi"
	"fknsrs.biz/p/ytingest/internal/landing"
	"fknsrs.biz/p/ytingest/internal/relational"
	"fknsrs.biz/p/ytingest/internal/ytapi"
)

type State string

const (
	StatePending   State = "pending"
	StateFetching  State = "fetching"
	StateLanding   State = "landing"
	StatePromoting State = "promoting"
	StateDone      State = "done"
	StateFailed    State = "failed"
)

const (
	StageChannel  = "channel"
	StageVideos   = "videos"
	StageComments = "comments"
)

var (
	ErrNoClient = errors.New("pipeline: no api client in context")
	ErrNoStore  = errors.New("pipeline: no landing store in context")
	ErrNoDB     = errors.New("pipeline: no database in context")
)

// Report records how far a stage got. If State is StateFailed, Err holds the
// cause and the stage stopped at the state the report shows it entering.
type Report struct {
	Stage    string
	State    State
	Fetched  int
	Skipped  int
	Landed   int
	Promoted int
	Err      error
}

func (r *Report) enter(l logrus.FieldLogger, s State) {
	r.State = s
	l.WithField("pipeline.state", string(s)).Debug("stage state change")
}

func (r *Report) fail(l logrus.FieldLogger, err error) (*Report, error) {
	r.Err = err
	r.State = StateFailed
	l.WithError(err).WithField("pipeline.state", string(StateFailed)).Error("stage failed")
	return r, err
}

func (r *Report) done(l logrus.FieldLogger) (*Report, error) {
	r.State = StateDone
	l.WithFields(logrus.Fields{
		"pipeline.state":    string(StateDone),
		"pipeline.fetched":  r.Fetched,
		"pipeline.skipped":  r.Skipped,
		"pipeline.landed":   r.Landed,
		"pipeline.promoted": r.Promoted,
	}).Info("stage complete")
	return r, nil
}

type stageDeps struct {
	client *ytapi.Client
	store  *landing.Store
}

func getStageDeps(ctx context.Context) (stageDeps, error) {
	var d stageDeps

	if d.client = ctxytapi.GetClient(ctx); d.client == nil {
		return d, ErrNoClient
	}
	if d.store = ctxlanding.GetStore(ctx); d.store == nil {
		return d, ErrNoStore
	}
	if ctxdb.GetDB(ctx) == nil {
		return d, ErrNoDB
	}

	return d, nil
}

// RunChannelStage fetches a single channel's metadata, lands it, and
// promotes it into the channels table. A channel the remote API doesn't
// know about is not an error; the stage completes having promoted nothing.
func RunChannelStage(ctx context.Context, channelID string) (*Report, error) {
	l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"pipeline.stage":      StageChannel,
		"pipeline.channel_id": channelID,
	})

	report := &Report{Stage: StageChannel, State: StatePending}

	deps, err := getStageDeps(ctx)
	if err != nil {
		return report.fail(l, err)
	}

	report.enter(l, StateFetching)

	channel, err := deps.client.GetChannel(ctx, channelID)
	if err != nil {
		if errors.Is(err, ytapi.ErrNotFound) {
			l.Info("channel not found upstream; nothing to do")
			return report.done(l)
		}

		l.WithError(err).Warn("could not fetch channel; treating as no data")
		return report.done(l)
	}
	report.Fetched++

	report.enter(l, StateLanding)

	if err := deps.store.AppendChannel(normalizeChannel(channel)); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunChannelStage: could not land channel record: %w", err))
	}
	report.Landed++

	report.enter(l, StatePromoting)

	record, err := deps.store.FindChannel(channelID)
	if err != nil {
		if errors.Is(err, landing.ErrNotFound) {
			l.Warn("landed channel record was filtered out on read-back; nothing to promote")
			return report.done(l)
		}

		return report.fail(l, fmt.Errorf("pipeline.RunChannelStage: could not read back channel record: %w", err))
	}

	if err := relational.EnsureSchema(ctx, ctxdb.GetDB(ctx)); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunChannelStage: could not ensure schema: %w", err))
	}

	if err := ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		return relational.InsertChannel(ctx, tx, *record)
	}); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunChannelStage: could not promote channel record: %w", err))
	}
	report.Promoted++

	return report.done(l)
}

// ProgressFunc reports how far through a batch a stage is.
type ProgressFunc func(done, total int)

// RunVideosStage lists the channel's uploads playlist, fetches each video,
// lands the batch, and promotes it. It requires the channel stage to have
// promoted a playlist ID first.
func RunVideosStage(ctx context.Context, channelID string) (*Report, error) {
	return RunVideosStageWithProgress(ctx, channelID, nil)
}

func RunVideosStageWithProgress(ctx context.Context, channelID string, progressFn ProgressFunc) (*Report, error) {
	l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"pipeline.stage":      StageVideos,
		"pipeline.channel_id": channelID,
	})

	report := &Report{Stage: StageVideos, State: StatePending}

	deps, err := getStageDeps(ctx)
	if err != nil {
		return report.fail(l, err)
	}

	playlistID, err := relational.ResolvePlaylistID(ctx, ctxdb.GetDB(ctx), channelID)
	if err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunVideosStage: could not resolve playlist id: %w", err))
	}

	report.enter(l, StateFetching)

	videoIDs, err := deps.client.GetPlaylistVideoIDs(ctx, playlistID)
	if err != nil {
		l.WithError(err).Warn("could not list playlist videos; treating as no data")
		videoIDs = nil
	}

	batch := make([]landing.VideoRecord, 0, len(videoIDs))
	for i, videoID := range videoIDs {
		if progressFn != nil {
			progressFn(i, len(videoIDs))
		}

		video, err := deps.client.GetVideo(ctx, videoID)
		if err != nil {
			l.WithError(err).WithField("pipeline.video_id", videoID).Warn("could not fetch video; skipping")
			report.Skipped++
			continue
		}
		report.Fetched++

		record, err := normalizeVideo(video, playlistID)
		if err != nil {
			l.WithError(err).WithField("pipeline.video_id", videoID).Warn("could not normalise video; skipping")
			report.Skipped++
			continue
		}

		batch = append(batch, record)
	}

	report.enter(l, StateLanding)

	if err := deps.store.AppendVideos(batch); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunVideosStage: could not land video records: %w", err))
	}
	report.Landed = len(batch)

	report.enter(l, StatePromoting)

	records, err := deps.store.FindVideosByPlaylist(playlistID)
	if err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunVideosStage: could not read back video records: %w", err))
	}

	if err := relational.EnsureSchema(ctx, ctxdb.GetDB(ctx)); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunVideosStage: could not ensure schema: %w", err))
	}

	if err := ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, record := range records {
			if err := relational.InsertVideo(ctx, tx, record); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunVideosStage: could not promote video records: %w", err))
	}
	report.Promoted = len(records)

	return report.done(l)
}

// RunCommentsStage fetches top-level comment threads for every promoted
// video on the channel, lands them, and promotes them. It requires both
// earlier stages to have run.
func RunCommentsStage(ctx context.Context, channelID string) (*Report, error) {
	return RunCommentsStageWithProgress(ctx, channelID, nil)
}

func RunCommentsStageWithProgress(ctx context.Context, channelID string, progressFn ProgressFunc) (*Report, error) {
	l := ctxlogger.GetLogger(ctx).WithFields(logrus.Fields{
		"pipeline.stage":      StageComments,
		"pipeline.channel_id": channelID,
	})

	report := &Report{Stage: StageComments, State: StatePending}

	deps, err := getStageDeps(ctx)
	if err != nil {
		return report.fail(l, err)
	}

	playlistID, err := relational.ResolvePlaylistID(ctx, ctxdb.GetDB(ctx), channelID)
	if err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunCommentsStage: could not resolve playlist id: %w", err))
	}

	videoIDs, err := relational.ResolveVideoIDs(ctx, ctxdb.GetDB(ctx), playlistID)
	if err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunCommentsStage: could not resolve video ids: %w", err))
	}

	// no promoted videos can mean an empty channel, or the videos stage
	// caught mid-flight with records landed but not yet promoted
	if len(videoIDs) == 0 {
		landed, err := deps.store.FindVideosByPlaylist(playlistID)
		if err != nil {
			return report.fail(l, fmt.Errorf("pipeline.RunCommentsStage: could not check landed video records: %w", err))
		}

		if len(landed) > 0 {
			return report.fail(l, fmt.Errorf("pipeline.RunCommentsStage: %d video records landed but not yet promoted: %w", len(landed), relational.ErrStageNotReady))
		}
	}

	report.enter(l, StateFetching)

	var batch []landing.CommentRecord
	for i, videoID := range videoIDs {
		if progressFn != nil {
			progressFn(i, len(videoIDs))
		}

		threads, err := deps.client.GetCommentThreads(ctx, videoID)
		if err != nil {
			l.WithError(err).WithField("pipeline.video_id", videoID).Warn("could not fetch comment threads; skipping video")
			report.Skipped++
			continue
		}

		for _, thread := range threads {
			report.Fetched++

			record, err := normalizeComment(thread)
			if err != nil {
				l.WithError(err).WithField("pipeline.comment_id", thread.ID).Warn("could not normalise comment; skipping")
				report.Skipped++
				continue
			}

			batch = append(batch, record)
		}
	}

	report.enter(l, StateLanding)

	if err := deps.store.AppendComments(batch); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunCommentsStage: could not land comment records: %w", err))
	}
	report.Landed = len(batch)

	report.enter(l, StatePromoting)

	records, err := deps.store.FindCommentsByVideoIDs(videoIDs)
	if err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunCommentsStage: could not read back comment records: %w", err))
	}

	if err := relational.EnsureSchema(ctx, ctxdb.GetDB(ctx)); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunCommentsStage: could not ensure schema: %w", err))
	}

	if err := ctxdb.UsingTx(ctx, nil, func(ctx context.Context, tx *sql.Tx) error {
		for _, record := range records {
			if err := relational.InsertComment(ctx, tx, record); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		return report.fail(l, fmt.Errorf("pipeline.RunCommentsStage: could not promote comment records: %w", err))
	}
	report.Promoted = len(records)

	return report.done(l)
}
