package ytutil

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"fknsrs.biz/p/ytingest/internal/ctxhttpclient"
)

var extractAndIdentifyIDTests = []struct {
	name    string
	input   string
	idType  IDType
	idValue string
}{
	{
		name:    "bare channel id",
		input:   "UCabcdefghijklmnopqrstuv",
		idType:  ChannelID,
		idValue: "UCabcdefghijklmnopqrstuv",
	},
	{
		name:    "channel url",
		input:   "https://www.youtube.com/channel/UCabcdefghijklmnopqrstuv",
		idType:  ChannelID,
		idValue: "UCabcdefghijklmnopqrstuv",
	},
	{
		name:    "playlist id",
		input:   "PLabcdefghijklmnopqrstuvwxyz012345",
		idType:  PlaylistID,
		idValue: "PLabcdefghijklmnopqrstuvwxyz012345",
	},
	{
		name:    "playlist url",
		input:   "https://www.youtube.com/playlist?list=PLabcdefghijklmnopqrstuvwxyz012345",
		idType:  PlaylistID,
		idValue: "PLabcdefghijklmnopqrstuvwxyz012345",
	},
	{
		name:    "bare video id",
		input:   "dQw4w9WgXcQ",
		idType:  VideoID,
		idValue: "dQw4w9WgXcQ",
	},
	{
		name:    "watch url",
		input:   "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		idType:  VideoID,
		idValue: "dQw4w9WgXcQ",
	},
	{
		name:    "short url",
		input:   "https://youtu.be/dQw4w9WgXcQ",
		idType:  VideoID,
		idValue: "dQw4w9WgXcQ",
	},
}

func TestExtractAndIdentifyID(t *testing.T) {
	for _, tc := range extractAndIdentifyIDTests {
		t.Run(tc.name, func(t *testing.T) {
			a := assert.New(t)

			idType, idValue, err := ExtractAndIdentifyID(tc.input)
			a.NoError(err)
			a.Equal(tc.idType, idType)
			a.Equal(tc.idValue, idValue)
		})
	}
}

func TestExtractAndIdentifyIDsIgnoreInvalid(t *testing.T) {
	a := assert.New(t)

	input := "UCabcdefghijklmnopqrstuv not_an_id dQw4w9WgXcQ"

	_, err := ExtractAndIdentifyIDs(input, false)
	a.Error(err)

	ids, err := ExtractAndIdentifyIDs(input, true)
	a.NoError(err)
	a.Len(ids, 2)
	a.Equal(ChannelID, ids[0].Type)
	a.Equal(VideoID, ids[1].Type)
}

func TestFindChannelIDScrape(t *testing.T) {
	a := assert.New(t)

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		rw.Write([]byte(`<html><link rel="canonical" href="?channelId=UCabcdefghijklmnopqrst"></html>`))
	}))
	defer srv.Close()

	ctx := ctxhttpclient.WithHTTPClient(context.Background(), srv.Client())

	channelID, err := FindChannelID(ctx, srv.URL+"/@some-creator-handle-page")
	a.NoError(err)
	a.Equal("UCabcdefghijklmnopqrst", channelID)
}
