// Package report renders a digest into a standalone HTML document. Images
// are inlined as data URIs so the output is a single self-contained file;
// the items' temp image files are removed once rendered.
package report

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"os"
	"time"

	"secbrief/internal/app"
	"secbrief/internal/news"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Security Brief — {{.GeneratedAt.Format "2 January 2006"}}</title>
<style>
body { font-family: Georgia, serif; max-width: 760px; margin: 2rem auto; padding: 0 1rem; color: #1a1a2e; }
header { border-bottom: 3px solid #1a1a2e; padding-bottom: 1rem; margin-bottom: 2rem; }
h1 { margin: 0 0 .25rem; }
.meta { color: #555; font-size: .9rem; }
.counts { color: #555; font-size: .85rem; margin-top: .5rem; }
article { border-bottom: 1px solid #ddd; padding: 1.25rem 0; }
article h2 { margin: 0 0 .25rem; font-size: 1.15rem; }
article h2 a { color: #16324f; text-decoration: none; }
article .byline { color: #777; font-size: .8rem; margin-bottom: .5rem; }
article img { max-width: 100%; border-radius: 4px; margin: .5rem 0; }
article p { margin: .5rem 0 0; line-height: 1.5; }
footer { color: #999; font-size: .8rem; margin-top: 2rem; }
</style>
</head>
<body>
<header>
<h1>Security Brief</h1>
<div class="meta">Generated {{.GeneratedAt.Format "2 January 2006 15:04 MST"}} · covering the last {{.LookbackDays}} days · {{len .Items}} items</div>
<div class="counts">{{range $src, $n := .SourceCounts}}{{$src}}: {{$n}} &nbsp; {{end}}</div>
</header>
{{range .Items}}
<article>
<h2>{{.Number}}. <a href="{{.Link}}">{{.Title}}</a></h2>
<div class="byline">{{.Source}} · {{.Published.Format "2 Jan 2006 15:04 MST"}}</div>
{{with .ImageData}}<img src="{{.}}" alt="">{{end}}
{{with .Summary}}<p>{{.}}</p>{{end}}
</article>
{{else}}
<p>Nothing to report for this window.</p>
{{end}}
<footer>secbrief</footer>
</body>
</html>
`

var tmpl = template.Must(template.New("report").Parse(pageTemplate))

// page is the template's view of a digest.
type page struct {
	GeneratedAt  time.Time
	LookbackDays int
	SourceCounts map[string]int
	Items        []pageItem
}

type pageItem struct {
	Number    int
	Source    string
	Title     string
	Link      string
	Published time.Time
	Summary   string
	ImageData template.URL
}

// Render writes the digest as HTML to w and removes every item's temp
// image file, whether or not rendering succeeds.
func Render(w io.Writer, d *app.Digest) error {
	defer cleanup(d)

	p := page{
		GeneratedAt:  d.GeneratedAt,
		LookbackDays: int(d.Lookback.Hours() / 24),
		SourceCounts: d.SourceCounts,
		Items:        make([]pageItem, 0, len(d.Items)),
	}
	for i, it := range d.Items {
		p.Items = append(p.Items, pageItem{
			Number:    i + 1,
			Source:    it.Source,
			Title:     it.Title,
			Link:      it.Link,
			Published: it.Published,
			Summary:   it.Summary,
			ImageData: inlineImage(it.Image),
		})
	}
	return tmpl.Execute(w, p)
}

// WriteFile renders the digest to path.
func WriteFile(path string, d *app.Digest) error {
	f, err := os.Create(path)
	if err != nil {
		cleanup(d)
		return fmt.Errorf("create report %s: %w", path, err)
	}
	if err := Render(f, d); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// inlineImage turns a validated image artifact into a data URI. A missing
// or unreadable file just means the card renders without a picture.
func inlineImage(img *news.Image) template.URL {
	if img == nil {
		return ""
	}
	data, err := os.ReadFile(img.Path)
	if err != nil {
		slog.Debug("image artifact unreadable", "path", img.Path, "err", err)
		return ""
	}
	return template.URL("data:image/" + img.Format + ";base64," + base64.StdEncoding.EncodeToString(data))
}

func cleanup(d *app.Digest) {
	for _, it := range d.Items {
		if it.Image == nil {
			continue
		}
		if err := os.Remove(it.Image.Path); err != nil && !os.IsNotExist(err) {
			slog.Debug("temp image not removed", "path", it.Image.Path, "err", err)
		}
		it.Image = nil
	}
}
