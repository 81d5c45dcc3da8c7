package images

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"secbrief/internal/fetch"
	"secbrief/internal/news"
)

// pngBytes renders a small valid PNG with an alpha channel.
func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 30), G: 100, B: 200, A: 128})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	r := NewResolver(fetch.NewClient(5 * time.Second))
	r.tmpDir = t.TempDir()
	return r
}

func TestResolveFromEnclosure(t *testing.T) {
	payload := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	it := &news.Item{
		Link: "https://example.com/article",
		Entry: &gofeed.Item{
			Enclosures: []*gofeed.Enclosure{{URL: srv.URL + "/pic", Type: "image/png"}},
		},
	}

	r := newTestResolver(t)
	got := r.Resolve(context.Background(), it)
	require.NotNil(t, got)
	defer os.Remove(got.Path)

	assert.Equal(t, "jpeg", got.Format)

	f, err := os.Open(got.Path)
	require.NoError(t, err)
	defer f.Close()
	_, err = jpeg.Decode(f)
	assert.NoError(t, err, "artifact is a decodable JPEG")
}

func TestResolveFromMediaExtension(t *testing.T) {
	payload := pngBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	}))
	defer srv.Close()

	it := &news.Item{
		Link: "https://example.com/article",
		Entry: &gofeed.Item{
			Extensions: ext.Extensions{
				"media": {
					"thumbnail": []ext.Extension{{Attrs: map[string]string{"url": srv.URL + "/thumb.png"}}},
				},
			},
		},
	}

	r := newTestResolver(t)
	got := r.Resolve(context.Background(), it)
	require.NotNil(t, got)
	os.Remove(got.Path)
}

func TestResolveFromPageMetaWithRelativeURL(t *testing.T) {
	payload := pngBytes(t)
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:image" content="/static/cover.png"></head><body></body></html>`)
	})
	mux.HandleFunc("/static/cover.png", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write(payload)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	it := &news.Item{Link: srv.URL + "/article", Entry: &gofeed.Item{}}

	r := newTestResolver(t)
	got := r.Resolve(context.Background(), it)
	require.NotNil(t, got, "relative og:image resolved against the article link")
	os.Remove(got.Path)
}

func TestRejectWrongContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html>not an image</html>")
	}))
	defer srv.Close()

	it := &news.Item{
		Link:  "https://example.com/article",
		Entry: &gofeed.Item{Enclosures: []*gofeed.Enclosure{{URL: srv.URL + "/x.jpg", Type: "image/jpeg"}}},
	}

	r := newTestResolver(t)
	assert.Nil(t, r.Resolve(context.Background(), it))
}

func TestRejectOversizedPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(bytes.Repeat([]byte{0xff}, MaxBytes+1))
	}))
	defer srv.Close()

	it := &news.Item{
		Link:  "https://example.com/article",
		Entry: &gofeed.Item{Enclosures: []*gofeed.Enclosure{{URL: srv.URL + "/big.jpg", Type: "image/jpeg"}}},
	}

	r := newTestResolver(t)
	assert.Nil(t, r.Resolve(context.Background(), it))
}

func TestRejectCorruptImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		fmt.Fprint(w, "definitely not png bytes")
	}))
	defer srv.Close()

	it := &news.Item{
		Link:  "https://example.com/article",
		Entry: &gofeed.Item{Enclosures: []*gofeed.Enclosure{{URL: srv.URL + "/bad.png", Type: "image/png"}}},
	}

	r := newTestResolver(t)
	assert.Nil(t, r.Resolve(context.Background(), it))
}

func TestNoCandidateAnywhere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head></head><body><p>plain page</p></body></html>`)
	}))
	defer srv.Close()

	it := &news.Item{Link: srv.URL + "/article", Entry: &gofeed.Item{}}

	r := newTestResolver(t)
	assert.Nil(t, r.Resolve(context.Background(), it))
}

func TestEnclosureByExtensionOnly(t *testing.T) {
	entry := &gofeed.Item{
		Enclosures: []*gofeed.Enclosure{
			{URL: "https://example.com/audio.mp3", Type: "audio/mpeg"},
			{URL: "https://example.com/photo.JPG?w=640", Type: ""},
		},
	}
	got := enclosureURL(entry)
	assert.True(t, strings.HasPrefix(got, "https://example.com/photo.JPG"))
}
