package ytapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	s := httptest.NewServer(handler)
	t.Cleanup(s.Close)
	return s
}

func TestGetChannel(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(rw http.ResponseWriter, r *http.Request) {
		a.Equal("/channels", r.URL.Path)
		a.Equal("snippet,statistics,contentDetails", r.URL.Query().Get("part"))
		a.Equal("test_key", r.URL.Query().Get("key"))

		fmt.Fprint(rw, `{
			"items": [{
				"snippet": {"title": "Test Channel", "description": "A channel."},
				"statistics": {"subscriberCount": "100", "viewCount": "2000"},
				"contentDetails": {"relatedPlaylists": {"uploads": "UUabc"}}
			}]
		}`)
	})

	c := NewClient(s.URL, "test_key")

	ch, err := c.GetChannel(context.Background(), "UCabc")
	a.NoError(err)
	a.Equal("UCabc", ch.ID)
	a.Equal("Test Channel", ch.Title)
	a.Equal("A channel.", ch.Description)
	a.Equal("100", ch.SubscriberCount)
	a.Equal("2000", ch.ViewCount)
	a.Equal("UUabc", ch.UploadsPlaylistID)
}

func TestGetChannelNotFound(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(rw http.ResponseWriter, r *http.Request) {
		fmt.Fprint(rw, `{"items": []}`)
	})

	c := NewClient(s.URL, "test_key")

	_, err := c.GetChannel(context.Background(), "UCmissing")
	a.Error(err)
	a.ErrorIs(err, ErrNotFound)
}

func TestGetChannelRequestFailed(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusForbidden)
	})

	c := NewClient(s.URL, "test_key")

	_, err := c.GetChannel(context.Background(), "UCabc")
	a.Error(err)

	var reqErr *RequestError
	a.ErrorAs(err, &reqErr)
	a.Equal(http.StatusForbidden, reqErr.StatusCode)
}

func TestGetPlaylistVideoIDsPagination(t *testing.T) {
	a := assert.New(t)

	requests := 0

	s := newTestServer(t, func(rw http.ResponseWriter, r *http.Request) {
		requests++

		a.Equal("/playlistItems", r.URL.Path)
		a.Equal("50", r.URL.Query().Get("maxResults"))

		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(rw, `{
				"items": [
					{"contentDetails": {"videoId": "video_0001"}},
					{"contentDetails": {"videoId": "video_0002"}}
				],
				"nextPageToken": "page2"
			}`)
		case "page2":
			fmt.Fprint(rw, `{
				"items": [{"contentDetails": {"videoId": "video_0003"}}]
			}`)
		default:
			t.Fatalf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	})

	c := NewClient(s.URL, "test_key")

	ids, err := c.GetPlaylistVideoIDs(context.Background(), "UUabc")
	a.NoError(err)
	a.Equal([]string{"video_0001", "video_0002", "video_0003"}, ids)
	a.Equal(2, requests)

	seen := make(map[string]bool)
	for _, id := range ids {
		a.False(seen[id], "id %s repeated", id)
		seen[id] = true
	}
}

func TestGetPlaylistVideoIDsRepeatedToken(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(rw http.ResponseWriter, r *http.Request) {
		fmt.Fprint(rw, `{
			"items": [{"contentDetails": {"videoId": "video_0001"}}],
			"nextPageToken": "stuck"
		}`)
	})

	c := NewClient(s.URL, "test_key")

	_, err := c.GetPlaylistVideoIDs(context.Background(), "UUabc")
	a.Error(err)
	a.ErrorContains(err, "refusing to loop")
}

func TestGetVideo(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(rw http.ResponseWriter, r *http.Request) {
		fmt.Fprint(rw, `{
			"items": [{
				"snippet": {
					"title": "Test Video",
					"description": "A video.",
					"publishedAt": "2023-05-01T10:00:00Z",
					"tags": ["one", "two"],
					"thumbnails": {"default": {"url": "https://example.com/thumb.jpg"}}
				},
				"statistics": {"viewCount": "10", "likeCount": "2", "favoriteCount": "0", "commentCount": "3"},
				"contentDetails": {"duration": "PT1H2M3S", "caption": "true"}
			}]
		}`)
	})

	c := NewClient(s.URL, "test_key")

	v, err := c.GetVideo(context.Background(), "video_0001")
	a.NoError(err)
	a.Equal("Test Video", v.Title)
	a.Equal([]string{"one", "two"}, v.Tags)
	a.Equal("2023-05-01T10:00:00Z", v.PublishedAt)
	a.Equal("PT1H2M3S", v.Duration)
	a.Equal("true", v.Caption)
	a.Equal("https://example.com/thumb.jpg", v.ThumbnailURL)
}

func TestGetVideoWithoutTags(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(rw http.ResponseWriter, r *http.Request) {
		fmt.Fprint(rw, `{
			"items": [{
				"snippet": {"title": "Untagged", "publishedAt": "2023-05-01T10:00:00Z"},
				"statistics": {},
				"contentDetails": {"duration": "PT10S"}
			}]
		}`)
	})

	c := NewClient(s.URL, "test_key")

	v, err := c.GetVideo(context.Background(), "video_0002")
	a.NoError(err)
	a.Empty(v.Tags)
}

func TestGetCommentThreads(t *testing.T) {
	a := assert.New(t)

	s := newTestServer(t, func(rw http.ResponseWriter, r *http.Request) {
		a.Equal("/commentThreads", r.URL.Path)
		a.Equal("video_0001", r.URL.Query().Get("videoId"))

		switch r.URL.Query().Get("pageToken") {
		case "":
			fmt.Fprint(rw, `{
				"items": [
					{"snippet": {"topLevelComment": {"id": "comment_01", "snippet": {"textDisplay": "first", "authorDisplayName": "alice", "publishedAt": "2023-05-01T10:00:00Z"}}}},
					{"snippet": {"topLevelComment": {"id": "comment_02", "snippet": {"textDisplay": "second", "authorDisplayName": "bob", "publishedAt": "2023-05-02T10:00:00Z"}}}}
				],
				"nextPageToken": "page2"
			}`)
		case "page2":
			fmt.Fprint(rw, `{
				"items": [{"snippet": {"topLevelComment": {"id": "comment_03", "snippet": {"textDisplay": "third", "authorDisplayName": "carol", "publishedAt": "2023-05-03T10:00:00Z"}}}}]
			}`)
		}
	})

	c := NewClient(s.URL, "test_key")

	threads, err := c.GetCommentThreads(context.Background(), "video_0001")
	a.NoError(err)
	a.Len(threads, 3)
	a.Equal("comment_01", threads[0].ID)
	a.Equal("video_0001", threads[0].VideoID)
	a.Equal("alice", threads[0].Author)
	a.Equal("third", threads[2].Text)
}
