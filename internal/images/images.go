// Package images finds, validates and normalizes an illustrative image for
// one item. Discovery walks feed-native media fields, enclosures, then the
// article page's social meta tags; validation downloads with a hard size
// cap, verifies the bytes decode, and re-encodes everything to JPEG so the
// renderer only ever sees one format. Every failure means "no image" — an
// item is never dropped over its picture.
package images

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/draw"
	"image/jpeg"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	// decoders for validation; everything is re-encoded to JPEG after
	_ "image/gif"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"secbrief/internal/fetch"
	"secbrief/internal/metrics"
	"secbrief/internal/news"
	"secbrief/internal/textutil"
)

// MaxBytes is the hard ceiling on a downloaded image payload.
const MaxBytes = 6 << 20 // 6 MiB

const jpegQuality = 85

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// Resolver locates and validates item images.
type Resolver struct {
	fetcher *fetch.Client
	tmpDir  string // "" means the OS default
}

// NewResolver builds an image resolver on top of the shared fetch client.
func NewResolver(fetcher *fetch.Client) *Resolver {
	return &Resolver{fetcher: fetcher}
}

// Resolve finds an image for the item and returns the validated temp-file
// artifact, or nil when no usable image exists. The caller owns the file.
func (r *Resolver) Resolve(ctx context.Context, it *news.Item) *news.Image {
	imgURL := r.discover(ctx, it)
	if imgURL == "" {
		return nil
	}

	artifact, err := r.download(ctx, imgURL)
	if err != nil {
		metrics.Global.IncImagesRejected()
		slog.Debug("image rejected", "url", imgURL, "err", err)
		return nil
	}
	metrics.Global.IncImagesResolved()
	return artifact
}

// discover returns the first candidate image URL in priority order:
// media extension fields, enclosures, page meta tags.
func (r *Resolver) discover(ctx context.Context, it *news.Item) string {
	if it.Entry != nil {
		if u := mediaURL(it.Entry); u != "" {
			return u
		}
		if u := enclosureURL(it.Entry); u != "" {
			return u
		}
	}
	return r.pageImageURL(ctx, it.Link)
}

// mediaURL inspects media:content / media:thumbnail extensions plus the
// feed-level item image.
func mediaURL(entry *gofeed.Item) string {
	if media, ok := entry.Extensions["media"]; ok {
		for _, field := range []string{"content", "thumbnail"} {
			for _, ext := range media[field] {
				if u := textutil.Normalize(ext.Attrs["url"]); u != "" {
					return u
				}
			}
		}
	}
	if entry.Image != nil {
		return textutil.Normalize(entry.Image.URL)
	}
	return ""
}

// enclosureURL returns the first enclosure that declares an image type or
// carries an image file extension.
func enclosureURL(entry *gofeed.Item) string {
	for _, enc := range entry.Enclosures {
		if enc.URL == "" {
			continue
		}
		if strings.HasPrefix(strings.ToLower(enc.Type), "image/") || hasImageExtension(enc.URL) {
			return textutil.Normalize(enc.URL)
		}
	}
	return ""
}

func hasImageExtension(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	if u, err := url.Parse(lower); err == nil {
		lower = u.Path
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// pageImageURL scrapes open-graph/twitter image tags off the article page,
// resolving relative URLs against the article link.
func (r *Resolver) pageImageURL(ctx context.Context, link string) string {
	resp, err := r.fetcher.Get(ctx, link)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	selectors := []string{
		`meta[property="og:image"]`,
		`meta[name="twitter:image"]`,
		`meta[property="og:image:secure_url"]`,
	}
	base, baseErr := url.Parse(link)
	for _, sel := range selectors {
		content, ok := doc.Find(sel).First().Attr("content")
		if !ok {
			continue
		}
		raw := textutil.Normalize(content)
		if raw == "" {
			continue
		}
		if baseErr != nil {
			return raw
		}
		ref, err := url.Parse(raw)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String()
	}
	return ""
}

// download retrieves, validates and normalizes the image at imgURL into a
// JPEG temp file.
func (r *Resolver) download(ctx context.Context, imgURL string) (*news.Image, error) {
	data, ctype, err := r.fetcher.Download(ctx, imgURL, MaxBytes)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(strings.ToLower(ctype), "image") {
		return nil, &fetch.Error{URL: imgURL, Err: errNotAnImage}
	}

	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &fetch.Error{URL: imgURL, Err: err}
	}

	// flatten alpha onto white so JPEG encoding is deterministic
	bounds := decoded.Bounds()
	flat := image.NewRGBA(bounds)
	draw.Draw(flat, bounds, image.White, image.Point{}, draw.Src)
	draw.Draw(flat, bounds, decoded, bounds.Min, draw.Over)

	f, err := os.CreateTemp(r.tmpDir, "secbrief-*.jpg")
	if err != nil {
		return nil, err
	}
	if err := jpeg.Encode(f, flat, &jpeg.Options{Quality: jpegQuality}); err != nil {
		f.Close()
		os.Remove(f.Name())
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, err
	}
	return &news.Image{Path: f.Name(), Format: "jpeg"}, nil
}

var errNotAnImage = errors.New("content type is not an image")
