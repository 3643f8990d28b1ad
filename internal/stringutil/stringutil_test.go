package stringutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var caseConversionTests = []struct {
	pascalCase string
	snakeCase  string
	titleCase  string
}{
	{"ChannelID", "channel_id", "Channel ID"},
	{"ChannelName", "channel_name", "Channel Name"},
	{"SubscriptionCount", "subscription_count", "Subscription Count"},
	{"PlaylistID", "playlist_id", "Playlist ID"},
	{"VideoID", "video_id", "Video ID"},
	{"PublishedAt", "published_at", "Published At"},
	{"ViewCount", "view_count", "View Count"},
	{"LikeCount", "like_count", "Like Count"},
	{"FavoriteCount", "favorite_count", "Favorite Count"},
	{"CommentCount", "comment_count", "Comment Count"},
	{"Duration", "duration", "Duration"},
	{"Caption", "caption", "Caption"},
	{"Thumbnail", "thumbnail", "Thumbnail"},
	{"CommentText", "comment_text", "Comment Text"},
	{"QueueName", "queue_name", "Queue Name"},
	{"RunAfter", "run_after", "Run After"},
	{"AttemptsRemaining", "attempts_remaining", "Attempts Remaining"},
	{"ReservedUntil", "reserved_until", "Reserved Until"},
	{"APIKey", "api_key", "API Key"},
}

func TestPascalToSnake(t *testing.T) {
	for _, tc := range caseConversionTests {
		t.Run(tc.pascalCase, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.snakeCase, PascalToSnake(tc.pascalCase))
		})
	}
}

func BenchmarkPascalToSnake(b *testing.B) {
	for _, tc := range caseConversionTests {
		b.Run(tc.pascalCase, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				PascalToSnake(tc.pascalCase)
			}
		})
	}
}

func TestPascalToTitle(t *testing.T) {
	for _, tc := range caseConversionTests {
		t.Run(tc.pascalCase, func(t *testing.T) {
			a := assert.New(t)
			a.Equal(tc.titleCase, PascalToTitle(tc.pascalCase))
		})
	}
}

func TestLooksTrue(t *testing.T) {
	a := assert.New(t)

	for _, s := range []string{"true", "TRUE", "yes", "1", "on", "enabled"} {
		a.True(LooksTrue(s), s)
	}

	for _, s := range []string{"", "false", "no", "0", "off", "banana"} {
		a.False(LooksTrue(s), s)
	}
}
