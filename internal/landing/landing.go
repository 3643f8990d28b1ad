// Package landing is the schemaless document tier that raw API records land
// in before promotion to the relational store. Documents are JSON with the
// capitalized field names declared on the record types below; those tags are
// the contract between the writer and the reader, so the promotion filters
// can never drift out of step with what was written.
//
// The store is append-only. Nothing here updates or deletes.
package landing

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	ErrNotFound = fmt.Errorf("landing: record not found")
)

var (
	channelsBucketName = []byte("channels")
	videosBucketName   = []byte("videos")
	commentsBucketName = []byte("comments")
)

type ChannelRecord struct {
	ChannelID          string `json:"Channel_ID"`
	ChannelName        string `json:"Channel_Name"`
	ChannelDescription string `json:"Channel_Description"`
	SubscriptionCount  int64  `json:"Subscription_Count"`
	ChannelViews       string `json:"Channel_Views"`
	PlaylistID         string `json:"Playlist_ID"`
}

type VideoRecord struct {
	VideoID          string   `json:"Video_ID"`
	PlaylistID       string   `json:"Playlist_ID"`
	VideoName        string   `json:"Video_Name"`
	VideoDescription string   `json:"Video_Description"`
	Tags             []string `json:"Tags"`
	PublishedAt      string   `json:"Published_At"`
	ViewCount        int64    `json:"View_Count"`
	LikeCount        int64    `json:"Like_Count"`
	FavoriteCount    int64    `json:"Favorite_Count"`
	CommentCount     int64    `json:"Comment_Count"`
	Duration         int64    `json:"Duration"`
	Caption          bool     `json:"Caption"`
	Thumbnail        string   `json:"Thumbnail"`
}

type CommentRecord struct {
	CommentID          string `json:"Comment_ID"`
	VideoID            string `json:"Video_ID"`
	CommentText        string `json:"Comment_Text"`
	CommentAuthor      string `json:"Comment_Author"`
	CommentPublishedAt string `json:"Comment_Published_At"`
}

type Store struct {
	db *bbolt.DB
}

func New(db *bbolt.DB) *Store {
	return &Store{db: db}
}

// append writes a batch of documents into one bucket inside a single write
// transaction, so a batch lands entirely or not at all.
func (s *Store) append(bucketName []byte, documents [][]byte) error {
	if len(documents) == 0 {
		return nil
	}

	tx, err := s.db.Begin(true)
	if err != nil {
		return fmt.Errorf("landing.Store.append: %w", err)
	}
	defer tx.Rollback()

	b, err := tx.CreateBucketIfNotExists(bucketName)
	if err != nil {
		return fmt.Errorf("landing.Store.append: %w", err)
	}

	for _, document := range documents {
		seq, err := b.NextSequence()
		if err != nil {
			return fmt.Errorf("landing.Store.append: could not get next sequence: %w", err)
		}

		var key [8]byte
		binary.BigEndian.PutUint64(key[:], seq)

		if err := b.Put(key[:], document); err != nil {
			return fmt.Errorf("landing.Store.append: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("landing.Store.append: %w", err)
	}

	return nil
}

func marshalAll[T any](records []T) ([][]byte, error) {
	documents := make([][]byte, 0, len(records))

	for i, record := range records {
		d, err := json.Marshal(record)
		if err != nil {
			return nil, fmt.Errorf("landing.marshalAll: could not encode record %d: %w", i, err)
		}

		documents = append(documents, d)
	}

	return documents, nil
}

func (s *Store) AppendChannel(record ChannelRecord) error {
	documents, err := marshalAll([]ChannelRecord{record})
	if err != nil {
		return fmt.Errorf("landing.Store.AppendChannel: %w", err)
	}

	if err := s.append(channelsBucketName, documents); err != nil {
		return fmt.Errorf("landing.Store.AppendChannel: %w", err)
	}

	return nil
}

func (s *Store) AppendVideos(records []VideoRecord) error {
	documents, err := marshalAll(records)
	if err != nil {
		return fmt.Errorf("landing.Store.AppendVideos: %w", err)
	}

	if err := s.append(videosBucketName, documents); err != nil {
		return fmt.Errorf("landing.Store.AppendVideos: %w", err)
	}

	return nil
}

func (s *Store) AppendComments(records []CommentRecord) error {
	documents, err := marshalAll(records)
	if err != nil {
		return fmt.Errorf("landing.Store.AppendComments: %w", err)
	}

	if err := s.append(commentsBucketName, documents); err != nil {
		return fmt.Errorf("landing.Store.AppendComments: %w", err)
	}

	return nil
}

// scan decodes every document in a bucket and hands it to fn. A bucket that
// was never written is just an empty result.
func scan[T any](db *bbolt.DB, bucketName []byte, fn func(record T)) error {
	tx, err := db.Begin(false)
	if err != nil {
		return fmt.Errorf("landing.scan: %w", err)
	}
	defer tx.Rollback()

	b := tx.Bucket(bucketName)
	if b == nil {
		return nil
	}

	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var record T
		if err := json.NewDecoder(bytes.NewReader(v)).Decode(&record); err != nil {
			return fmt.Errorf("landing.scan: could not decode document %x: %w", k, err)
		}

		fn(record)
	}

	return nil
}

// FindChannel returns the landed record for a channel. Records missing their
// name or playlist linkage are skipped; they can never be promoted, so the
// read acts as a staging filter. Later duplicates win, matching append order.
func (s *Store) FindChannel(channelID string) (*ChannelRecord, error) {
	var found *ChannelRecord

	if err := scan(s.db, channelsBucketName, func(record ChannelRecord) {
		if record.ChannelID != channelID {
			return
		}
		if record.ChannelName == "" || record.PlaylistID == "" {
			return
		}

		r := record
		found = &r
	}); err != nil {
		return nil, fmt.Errorf("landing.Store.FindChannel: %w", err)
	}

	if found == nil {
		return nil, fmt.Errorf("landing.Store.FindChannel: channel %s: %w", channelID, ErrNotFound)
	}

	return found, nil
}

func (s *Store) FindVideosByPlaylist(playlistID string) ([]VideoRecord, error) {
	var records []VideoRecord

	if err := scan(s.db, videosBucketName, func(record VideoRecord) {
		if record.PlaylistID != playlistID {
			return
		}
		if record.VideoID == "" || record.VideoName == "" {
			return
		}

		records = append(records, record)
	}); err != nil {
		return nil, fmt.Errorf("landing.Store.FindVideosByPlaylist: %w", err)
	}

	return records, nil
}

func (s *Store) FindCommentsByVideoIDs(videoIDs []string) ([]CommentRecord, error) {
	wanted := make(map[string]bool, len(videoIDs))
	for _, id := range videoIDs {
		wanted[id] = true
	}

	var records []CommentRecord

	if err := scan(s.db, commentsBucketName, func(record CommentRecord) {
		if !wanted[record.VideoID] {
			return
		}
		if record.CommentID == "" {
			return
		}

		records = append(records, record)
	}); err != nil {
		return nil, fmt.Errorf("landing.Store.FindCommentsByVideoIDs: %w", err)
	}

	return records, nil
}
