package httpcache

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.etcd.io/bbolt"
)

func newTestStorage(t *testing.T) *BBoltStorage {
	t.Helper()

	db, err := bbolt.Open(filepath.Join(t.TempDir(), "cache.db"), 0644, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	return NewBBoltStorage(db)
}

func TestMakeBBoltKeyIgnoresAPIKey(t *testing.T) {
	a := assert.New(t)

	u1, _ := url.Parse("https://example.test/videos?id=abc&key=first_key")
	u2, _ := url.Parse("https://example.test/videos?id=abc&key=second_key")
	u3, _ := url.Parse("https://example.test/videos?id=def&key=first_key")

	a.Equal(makeBBoltKey(u1), makeBBoltKey(u2))
	a.NotEqual(makeBBoltKey(u1), makeBBoltKey(u3))
}

func TestTransportServesFromCache(t *testing.T) {
	a := assert.New(t)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hits++
		rw.Write([]byte("response body"))
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, newTestStorage(t), time.Hour)}

	for i := 0; i < 3; i++ {
		res, err := client.Get(srv.URL + "/videos?id=abc")
		a.NoError(err)

		d, err := io.ReadAll(res.Body)
		a.NoError(err)
		res.Body.Close()

		a.Equal("response body", string(d))
	}

	a.Equal(1, hits)
}

func TestTransportSkipsNonGET(t *testing.T) {
	a := assert.New(t)

	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewTransport(nil, newTestStorage(t), time.Hour)}

	for i := 0; i < 2; i++ {
		res, err := client.Post(srv.URL+"/videos", "text/plain", nil)
		a.NoError(err)
		res.Body.Close()
	}

	a.Equal(2, hits)
}
