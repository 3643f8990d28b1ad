package templatecollection

import (
	"bytes"
	"html/template"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
)

var (
	layoutSource = []byte(`{{define "layout_top"}}<html><body>{{end}}{{define "layout_bottom"}}</body></html>{{end}}`)
	bannerSource = []byte(`{{define "shared_banner"}}<p>banner</p>{{end}}`)
	pageSource   = []byte(`{{define "page_channels"}}{{template "layout_top" .}}{{template "shared_banner" .}}<h1>{{upper .Title}}</h1>{{template "layout_bottom" .}}{{end}}`)
)

// the embedded filesystem keeps templates under a directory, while the live
// filesystem is rooted at the template directory itself
var embeddedFS = fstest.MapFS{
	"templates/layout.gohtml":        &fstest.MapFile{Data: layoutSource},
	"templates/shared_banner.gohtml": &fstest.MapFile{Data: bannerSource},
	"templates/page_channels.gohtml": &fstest.MapFile{Data: pageSource},
}

var liveFS = fstest.MapFS{
	"layout.gohtml":        &fstest.MapFile{Data: layoutSource},
	"shared_banner.gohtml": &fstest.MapFile{Data: bannerSource},
	"page_channels.gohtml": &fstest.MapFile{Data: pageSource},
}

var testFuncs = template.FuncMap{"upper": strings.ToUpper}

func TestCached(t *testing.T) {
	a := assert.New(t)

	c, err := NewCached(embeddedFS, testFuncs)
	a.NoError(err)

	var buf bytes.Buffer
	a.NoError(c.ExecuteTemplate(&buf, "page_channels", map[string]interface{}{"Title": "channels"}))
	a.Contains(buf.String(), "<h1>CHANNELS</h1>")
	a.Contains(buf.String(), "<p>banner</p>")
}

func TestCachedNotFound(t *testing.T) {
	a := assert.New(t)

	c, err := NewCached(embeddedFS, testFuncs)
	a.NoError(err)

	var buf bytes.Buffer
	err = c.ExecuteTemplate(&buf, "page_missing", nil)
	a.ErrorIs(err, ErrTemplateNotFound)
}

func TestLive(t *testing.T) {
	a := assert.New(t)

	c, err := NewLive(liveFS, testFuncs)
	a.NoError(err)

	var buf bytes.Buffer
	a.NoError(c.ExecuteTemplate(&buf, "page_channels", map[string]interface{}{"Title": "channels"}))
	a.Contains(buf.String(), "<h1>CHANNELS</h1>")
}
