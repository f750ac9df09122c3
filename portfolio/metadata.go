package portfolio

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Piece is one portfolio entry, read from the meta tags of a page
// under the work directory.
type Piece struct {
	Path    string
	URL     string
	Title   string
	Date    time.Time
	Tags    []string
	Cover   string
	Summary string
}

const dateLayout = "2006-01-02"

// readPiece parses one page. ok is false when the page carries no
// portfolio metadata at all.
func readPiece(path, url string) (p Piece, ok bool, err error) {
	f, err := os.Open(path)
	if err != nil {
		return Piece{}, false, err
	}
	doc, err := goquery.NewDocumentFromReader(f)
	f.Close()
	if err != nil {
		return Piece{}, false, fmt.Errorf("parsing: %w", err)
	}

	if doc.Find(`meta[name^="portfolio:"]`).Length() == 0 {
		return Piece{}, false, nil
	}

	meta := func(field string) string {
		sel := doc.Find(fmt.Sprintf(`meta[name="portfolio:%s"]`, field))
		return strings.TrimSpace(sel.AttrOr("content", ""))
	}

	p = Piece{
		Path:    path,
		URL:     url,
		Title:   meta("title"),
		Cover:   meta("cover"),
		Summary: meta("summary"),
	}
	if p.Title == "" {
		p.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	var dateErr error
	if raw := meta("date"); raw != "" {
		p.Date, dateErr = time.Parse(dateLayout, raw)
		if dateErr != nil {
			dateErr = fmt.Errorf("date %q: %w", raw, dateErr)
			p.Date = time.Time{}
		}
	}

	for _, tag := range strings.Split(meta("tags"), ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			p.Tags = append(p.Tags, tag)
		}
	}
	return p, true, dateErr
}

// sortPieces orders newest first, then alphabetically. The order is
// what every index and tag page renders.
func sortPieces(pieces []Piece) {
	sort.SliceStable(pieces, func(i, j int) bool {
		if !pieces[i].Date.Equal(pieces[j].Date) {
			return pieces[i].Date.After(pieces[j].Date)
		}
		return pieces[i].Title < pieces[j].Title
	})
}

// Slugify turns a tag into a URL-safe directory name.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	hyphen := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			hyphen = false
		default:
			if !hyphen && b.Len() > 0 {
				b.WriteByte('-')
				hyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
