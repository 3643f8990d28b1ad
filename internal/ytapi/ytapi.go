// Package ytapi is a minimal client for the YouTube Data API v3, covering
// just the read-only surface the ingestion pipeline needs: channel lookup,
// playlist item pagination, video lookup, and comment thread pagination.
// Values come back as they appear on the wire; parsing of durations and
// timestamps happens during normalization, not here.
package ytapi

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/Jeffail/gabs/v2"

	"fknsrs.biz/p/ytingest/internal/ctxhttpclient"
)

const (
	DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

	// PageSize is the upstream maximum for playlistItems and commentThreads.
	PageSize = 50
)

var (
	ErrNotFound = fmt.Errorf("ytapi: not found")
)

// RequestError wraps a transport or non-200 failure from the remote API. The
// pipeline degrades these to "no data for this item"; callers that need to
// distinguish can unwrap.
type RequestError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ytapi: request for %s failed: %s", e.URL, e.Err.Error())
	}

	return fmt.Sprintf("ytapi: request for %s failed: status code %d", e.URL, e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	apiKey  string
}

func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{baseURL: baseURL, apiKey: apiKey}
}

func (c *Client) getJSON(ctx context.Context, resource string, query url.Values) (*gabs.Container, error) {
	query.Set("key", c.apiKey)

	u := c.baseURL + "/" + resource + "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("ytapi.getJSON: %w", err)
	}

	res, err := ctxhttpclient.GetHTTPClient(ctx).Do(req)
	if err != nil {
		return nil, &RequestError{URL: u, Err: err}
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, &RequestError{URL: u, StatusCode: res.StatusCode}
	}

	d, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &RequestError{URL: u, Err: err}
	}

	j, err := gabs.ParseJSON(d)
	if err != nil {
		return nil, fmt.Errorf("ytapi.getJSON: could not parse response: %w", err)
	}

	return j, nil
}

func stringAtPath(j *gabs.Container, path string) string {
	if !j.ExistsP(path) {
		return ""
	}

	if s, ok := j.Path(path).Data().(string); ok {
		return s
	}

	return ""
}

type Channel struct {
	ID                string
	Title             string
	Description       string
	SubscriberCount   string
	ViewCount         string
	UploadsPlaylistID string
}

func (c *Client) GetChannel(ctx context.Context, id string) (*Channel, error) {
	j, err := c.getJSON(ctx, "channels", url.Values{
		"part": []string{"snippet,statistics,contentDetails"},
		"id":   []string{id},
	})
	if err != nil {
		return nil, fmt.Errorf("ytapi.GetChannel: %w", err)
	}

	const (
		titlePath           = "snippet.title"
		descriptionPath     = "snippet.description"
		subscriberCountPath = "statistics.subscriberCount"
		viewCountPath       = "statistics.viewCount"
		uploadsPlaylistPath = "contentDetails.relatedPlaylists.uploads"
	)

	items := j.Path("items").Children()
	if len(items) == 0 {
		return nil, fmt.Errorf("ytapi.GetChannel: channel %s: %w", id, ErrNotFound)
	}

	item := items[0]

	ch := Channel{
		ID:                id,
		Title:             stringAtPath(item, titlePath),
		Description:       stringAtPath(item, descriptionPath),
		SubscriberCount:   stringAtPath(item, subscriberCountPath),
		ViewCount:         stringAtPath(item, viewCountPath),
		UploadsPlaylistID: stringAtPath(item, uploadsPlaylistPath),
	}

	if ch.UploadsPlaylistID == "" {
		return nil, fmt.Errorf("ytapi.GetChannel: channel %s has no uploads playlist: %w", id, ErrNotFound)
	}

	return &ch, nil
}

// GetPlaylistVideoIDs collects video ids from every page of a playlist,
// following the continuation token until the API stops returning one. A page
// that hands back the token it was requested with would otherwise loop
// forever, so that case is an error.
func (c *Client) GetPlaylistVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	const videoIDPath = "contentDetails.videoId"

	var ids []string
	var pageToken string

	for {
		query := url.Values{
			"part":       []string{"contentDetails"},
			"playlistId": []string{playlistID},
			"maxResults": []string{fmt.Sprintf("%d", PageSize)},
		}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		j, err := c.getJSON(ctx, "playlistItems", query)
		if err != nil {
			return nil, fmt.Errorf("ytapi.GetPlaylistVideoIDs: %w", err)
		}

		for _, item := range j.Path("items").Children() {
			if !item.ExistsP(videoIDPath) {
				continue
			}

			if id, ok := item.Path(videoIDPath).Data().(string); ok {
				ids = append(ids, id)
			}
		}

		nextPageToken := stringAtPath(j, "nextPageToken")
		if nextPageToken == "" {
			break
		}
		if nextPageToken == pageToken {
			return nil, fmt.Errorf("ytapi.GetPlaylistVideoIDs: continuation token %q repeated; refusing to loop", pageToken)
		}
		pageToken = nextPageToken
	}

	return ids, nil
}

type Video struct {
	ID            string
	Title         string
	Description   string
	Tags          []string
	PublishedAt   string
	ViewCount     string
	LikeCount     string
	FavoriteCount string
	CommentCount  string
	Duration      string
	Caption       string
	ThumbnailURL  string
}

func (c *Client) GetVideo(ctx context.Context, id string) (*Video, error) {
	j, err := c.getJSON(ctx, "videos", url.Values{
		"part": []string{"snippet,statistics,contentDetails"},
		"id":   []string{id},
	})
	if err != nil {
		return nil, fmt.Errorf("ytapi.GetVideo: %w", err)
	}

	const (
		titlePath         = "snippet.title"
		descriptionPath   = "snippet.description"
		tagsPath          = "snippet.tags"
		publishedAtPath   = "snippet.publishedAt"
		viewCountPath     = "statistics.viewCount"
		likeCountPath     = "statistics.likeCount"
		favoriteCountPath = "statistics.favoriteCount"
		commentCountPath  = "statistics.commentCount"
		durationPath      = "contentDetails.duration"
		captionPath       = "contentDetails.caption"
		thumbnailPath     = "snippet.thumbnails.default.url"
	)

	items := j.Path("items").Children()
	if len(items) == 0 {
		return nil, fmt.Errorf("ytapi.GetVideo: video %s: %w", id, ErrNotFound)
	}

	item := items[0]

	v := Video{
		ID:            id,
		Title:         stringAtPath(item, titlePath),
		Description:   stringAtPath(item, descriptionPath),
		PublishedAt:   stringAtPath(item, publishedAtPath),
		ViewCount:     stringAtPath(item, viewCountPath),
		LikeCount:     stringAtPath(item, likeCountPath),
		FavoriteCount: stringAtPath(item, favoriteCountPath),
		CommentCount:  stringAtPath(item, commentCountPath),
		Duration:      stringAtPath(item, durationPath),
		Caption:       stringAtPath(item, captionPath),
		ThumbnailURL:  stringAtPath(item, thumbnailPath),
	}

	// tags is absent entirely on untagged videos
	if item.ExistsP(tagsPath) {
		for _, tag := range item.Path(tagsPath).Children() {
			if s, ok := tag.Data().(string); ok {
				v.Tags = append(v.Tags, s)
			}
		}
	}

	return &v, nil
}

type CommentThread struct {
	ID          string
	VideoID     string
	Text        string
	Author      string
	PublishedAt string
}

func (c *Client) GetCommentThreads(ctx context.Context, videoID string) ([]CommentThread, error) {
	const (
		commentIDPath   = "snippet.topLevelComment.id"
		textPath        = "snippet.topLevelComment.snippet.textDisplay"
		authorPath      = "snippet.topLevelComment.snippet.authorDisplayName"
		publishedAtPath = "snippet.topLevelComment.snippet.publishedAt"
	)

	var threads []CommentThread
	var pageToken string

	for {
		query := url.Values{
			"part":       []string{"snippet"},
			"videoId":    []string{videoID},
			"maxResults": []string{fmt.Sprintf("%d", PageSize)},
		}
		if pageToken != "" {
			query.Set("pageToken", pageToken)
		}

		j, err := c.getJSON(ctx, "commentThreads", query)
		if err != nil {
			return nil, fmt.Errorf("ytapi.GetCommentThreads: %w", err)
		}

		for _, item := range j.Path("items").Children() {
			id := stringAtPath(item, commentIDPath)
			if id == "" {
				continue
			}

			threads = append(threads, CommentThread{
				ID:          id,
				VideoID:     videoID,
				Text:        stringAtPath(item, textPath),
				Author:      stringAtPath(item, authorPath),
				PublishedAt: stringAtPath(item, publishedAtPath),
			})
		}

		nextPageToken := stringAtPath(j, "nextPageToken")
		if nextPageToken == "" {
			break
		}
		if nextPageToken == pageToken {
			return nil, fmt.Errorf("ytapi.GetCommentThreads: continuation token %q repeated; refusing to loop", pageToken)
		}
		pageToken = nextPageToken
	}

	return threads, nil
}
