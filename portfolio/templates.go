package portfolio

import (
	"bytes"
	"fmt"
	"html/template"

	"atelier/images"
)

// cardView is the prepared model the card template renders. Fields
// are computed in Go so the template stays declarative.
type cardView struct {
	URL      string
	Title    string
	DateISO  string
	DateText string
	Summary  string
	Tags     []tagLink
	Cover    *coverView
}

type tagLink struct {
	Name string
	URL  string
}

type coverView struct {
	Src    string
	Srcset template.Srcset
	Sizes  string
}

var cardTmpl = template.Must(template.New("cards").Parse(`{{range .}}<article class="portfolio-card">
<a class="portfolio-card-link" href="{{.URL}}">{{with .Cover}}<img src="{{.Src}}" srcset="{{.Srcset}}" sizes="{{.Sizes}}" alt="" loading="lazy">{{end}}<h3 class="portfolio-card-title">{{.Title}}</h3></a>
{{if .DateISO}}<time datetime="{{.DateISO}}">{{.DateText}}</time>{{end}}
{{if .Summary}}<p class="portfolio-card-summary">{{.Summary}}</p>{{end}}
{{if .Tags}}<nav class="portfolio-card-tags">{{range .Tags}}<a class="piece-tag" href="{{.URL}}">{{.Name}}</a>{{end}}</nav>{{end}}
</article>
{{end}}`))

var tagPageTmpl = template.Must(template.New("tag").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}{{if .Site}} · {{.Site}}{{end}}</title>
</head>
<body>
<main class="tag-page">
<nav class="tag-breadcrumbs"><a href="/">Home</a> · <a href="/tags/">All tags</a></nav>
<h1>{{.Heading}}</h1>
<p class="tag-count">{{.Count}} {{if eq .Count 1}}piece{{else}}pieces{{end}}</p>
<section class="portfolio-grid">
{{.Cards}}</section>
</main>
</body>
</html>
`))

var tagIndexTmpl = template.Must(template.New("tagindex").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Tags{{if .Site}} · {{.Site}}{{end}}</title>
</head>
<body>
<main class="tag-page">
<nav class="tag-breadcrumbs"><a href="/">Home</a></nav>
<h1>Tags</h1>
<ul class="tag-list">
{{range .Tags}}<li><a href="{{.URL}}">{{.Name}}</a> <span class="tag-count">({{.Count}})</span></li>
{{end}}</ul>
</main>
</body>
</html>
`))

type tagPageView struct {
	Site    string
	Title   string
	Heading string
	Count   int
	Cards   template.HTML
}

type tagIndexView struct {
	Site string
	Tags []tagIndexEntry
}

type tagIndexEntry struct {
	Name  string
	URL   string
	Count int
}

// newCardView prepares one piece for rendering. Cover thumbnails use
// the two smallest rungs of the width ladder.
func newCardView(p Piece, widths []int) cardView {
	v := cardView{
		URL:     p.URL,
		Title:   p.Title,
		Summary: p.Summary,
	}
	if !p.Date.IsZero() {
		v.DateISO = p.Date.Format(dateLayout)
		v.DateText = p.Date.Format("January 2006")
	}
	for _, tag := range p.Tags {
		v.Tags = append(v.Tags, tagLink{Name: tag, URL: "/tags/" + Slugify(tag) + "/"})
	}
	if p.Cover != "" {
		v.Cover = newCoverView(p.Cover, widths)
	}
	return v
}

func newCoverView(cover string, widths []int) *coverView {
	if !images.IsSource(cover) || images.ShouldSkip(cover) || len(widths) == 0 {
		return &coverView{Src: cover}
	}
	native := images.NativeFormat(cover)

	thumbs := widths
	if len(thumbs) > 2 {
		thumbs = thumbs[:2]
	}
	srcset := ""
	for i, w := range thumbs {
		if i > 0 {
			srcset += ", "
		}
		srcset += fmt.Sprintf("%s %dw", images.VariantPath(cover, w, native), w)
	}
	return &coverView{
		Src:    images.VariantPath(cover, thumbs[0], native),
		Srcset: template.Srcset(srcset),
		Sizes:  "(min-width: 640px) 320px, 100vw",
	}
}

func renderCards(pieces []Piece, widths []int) (template.HTML, error) {
	views := make([]cardView, 0, len(pieces))
	for _, p := range pieces {
		views = append(views, newCardView(p, widths))
	}
	var buf bytes.Buffer
	if err := cardTmpl.Execute(&buf, views); err != nil {
		return "", fmt.Errorf("rendering cards: %w", err)
	}
	return template.HTML(buf.String()), nil
}
