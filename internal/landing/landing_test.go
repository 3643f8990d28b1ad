package landing

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.etcd.io/bbolt"
)

func newTestStore(t *testing.T) *Store {
	db, err := bbolt.Open(filepath.Join(t.TempDir(), "landing.db"), 0600, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return New(db)
}

func TestFindChannel(t *testing.T) {
	a := assert.New(t)

	s := newTestStore(t)

	a.NoError(s.AppendChannel(ChannelRecord{
		ChannelID:   "UCabc",
		ChannelName: "Test Channel",
		PlaylistID:  "UUabc",
	}))

	record, err := s.FindChannel("UCabc")
	a.NoError(err)
	a.Equal("Test Channel", record.ChannelName)
	a.Equal("UUabc", record.PlaylistID)

	_, err = s.FindChannel("UCmissing")
	a.ErrorIs(err, ErrNotFound)
}

func TestFindChannelRequiresLinkage(t *testing.T) {
	a := assert.New(t)

	s := newTestStore(t)

	// landed without a playlist id; must never come back from a read
	a.NoError(s.AppendChannel(ChannelRecord{
		ChannelID:   "UCabc",
		ChannelName: "Test Channel",
	}))

	_, err := s.FindChannel("UCabc")
	a.ErrorIs(err, ErrNotFound)
}

func TestFindVideosByPlaylist(t *testing.T) {
	a := assert.New(t)

	s := newTestStore(t)

	a.NoError(s.AppendVideos([]VideoRecord{
		{VideoID: "video_0001", PlaylistID: "UUabc", VideoName: "One"},
		{VideoID: "video_0002", PlaylistID: "UUabc", VideoName: "Two"},
		{VideoID: "video_0003", PlaylistID: "UUother", VideoName: "Elsewhere"},
		{VideoID: "", PlaylistID: "UUabc", VideoName: "No ID"},
	}))

	records, err := s.FindVideosByPlaylist("UUabc")
	a.NoError(err)
	a.Len(records, 2)
	a.Equal("video_0001", records[0].VideoID)
	a.Equal("video_0002", records[1].VideoID)
}

func TestFindCommentsByVideoIDs(t *testing.T) {
	a := assert.New(t)

	s := newTestStore(t)

	a.NoError(s.AppendComments([]CommentRecord{
		{CommentID: "comment_01", VideoID: "video_0001", CommentText: "first"},
		{CommentID: "comment_02", VideoID: "video_0001", CommentText: "second"},
		{CommentID: "comment_03", VideoID: "video_9999", CommentText: "orphan"},
	}))

	records, err := s.FindCommentsByVideoIDs([]string{"video_0001", "video_0002"})
	a.NoError(err)
	a.Len(records, 2)

	for _, record := range records {
		a.Equal("video_0001", record.VideoID)
	}
}

func TestAppendEmptyBatch(t *testing.T) {
	a := assert.New(t)

	s := newTestStore(t)

	a.NoError(s.AppendVideos(nil))

	records, err := s.FindVideosByPlaylist("UUabc")
	a.NoError(err)
	a.Empty(records)
}

func TestDocumentFieldNames(t *testing.T) {
	a := assert.New(t)

	s := newTestStore(t)

	a.NoError(s.AppendChannel(ChannelRecord{
		ChannelID:   "UCabc",
		ChannelName: "Test Channel",
		PlaylistID:  "UUabc",
	}))

	// the capitalized names are the document contract; read back through the
	// raw bucket to make sure they are what actually got written
	var raw string
	if err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(channelsBucketName)
		c := b.Cursor()
		_, v := c.First()
		raw = string(v)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	a.Contains(raw, `"Channel_ID":"UCabc"`)
	a.Contains(raw, `"Channel_Name":"Test Channel"`)
	a.Contains(raw, `"Playlist_ID":"UUabc"`)
}
