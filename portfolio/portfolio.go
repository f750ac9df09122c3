// Package portfolio turns work pages into a browsable index. It reads
// portfolio meta tags from each piece, injects tag navigation, fills
// index placeholders, and generates the per-tag listing pages.
package portfolio

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"atelier/config"
)

// Stage runs the portfolio passes over the build tree.
type Stage struct {
	cfg *config.Config
	log *zap.Logger
}

func NewStage(cfg *config.Config, log *zap.Logger) *Stage {
	return &Stage{cfg: cfg, log: log}
}

// Result counts what one portfolio pass did.
type Result struct {
	Pieces   int
	Tags     int
	Indexes  int
	TagPages int
}

func (s *Stage) Run(ctx context.Context) (*Result, error) {
	pieces, err := s.collect()
	if err != nil {
		return nil, err
	}
	sortPieces(pieces)

	res := &Result{Pieces: len(pieces)}
	if err := s.injectTagNavs(pieces); err != nil {
		return nil, err
	}
	if res.Indexes, err = s.fillIndexes(pieces); err != nil {
		return nil, err
	}
	if res.TagPages, res.Tags, err = s.writeTagPages(pieces); err != nil {
		return nil, err
	}
	return res, nil
}

// collect walks the work directory and extracts every piece.
func (s *Stage) collect() ([]Piece, error) {
	root := s.cfg.WorkRoot()
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			s.log.Debug("No work directory", zap.String("path", root))
			return nil, nil
		}
		return nil, fmt.Errorf("work directory: %w", err)
	}

	var pieces []Piece
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		rel, err := filepath.Rel(s.cfg.Paths.BuildDir, path)
		if err != nil {
			return err
		}
		p, ok, err := readPiece(path, "/"+filepath.ToSlash(rel))
		if err != nil {
			if !ok {
				s.log.Error("Unreadable piece", zap.String("path", path), zap.Error(err))
				return nil
			}
			// Bad metadata field; the piece still counts.
			s.log.Warn("Piece metadata", zap.String("path", path), zap.Error(err))
		}
		if ok {
			pieces = append(pieces, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking work directory: %w", err)
	}
	return pieces, nil
}

var pieceTagsTmpl = template.Must(template.New("piecetags").Parse(
	`{{range .}}<a class="piece-tag" href="{{.URL}}">{{.Name}}</a>{{end}}`))

// injectTagNavs fills the data-piece-tags container on each piece
// with links to its tag pages.
func (s *Stage) injectTagNavs(pieces []Piece) error {
	for _, p := range pieces {
		f, err := os.Open(p.Path)
		if err != nil {
			return err
		}
		doc, err := goquery.NewDocumentFromReader(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", p.Path, err)
		}

		nav := doc.Find("[data-piece-tags]")
		if nav.Length() == 0 {
			continue
		}

		links := make([]tagLink, 0, len(p.Tags))
		for _, tag := range p.Tags {
			links = append(links, tagLink{Name: tag, URL: "/tags/" + Slugify(tag) + "/"})
		}
		var buf strings.Builder
		if err := pieceTagsTmpl.Execute(&buf, links); err != nil {
			return fmt.Errorf("rendering tag links: %w", err)
		}
		nav.SetHtml(buf.String())

		rendered, err := doc.Html()
		if err != nil {
			return fmt.Errorf("rendering %s: %w", p.Path, err)
		}
		if err := os.WriteFile(p.Path, []byte(rendered), 0644); err != nil {
			return fmt.Errorf("writing %s: %w", p.Path, err)
		}
		s.log.Debug("Tag nav injected", zap.String("path", p.Path))
	}
	return nil
}

// fillIndexes replaces every data-portfolio-index placeholder in the
// build tree with rendered piece cards, newest first.
func (s *Stage) fillIndexes(pieces []Piece) (int, error) {
	filled := 0
	err := filepath.Walk(s.cfg.Paths.BuildDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		doc, err := goquery.NewDocumentFromReader(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}

		sections := doc.Find("[data-portfolio-index]")
		if sections.Length() == 0 {
			return nil
		}

		var renderErr error
		sections.Each(func(_ int, sel *goquery.Selection) {
			subset := pieces
			if raw := sel.AttrOr("data-portfolio-limit", ""); raw != "" {
				if n, err := strconv.Atoi(raw); err == nil && n >= 0 && n < len(subset) {
					subset = subset[:n]
				}
			}
			cards, err := renderCards(subset, s.cfg.Images.Widths)
			if err != nil {
				renderErr = err
				return
			}
			sel.SetHtml(string(cards))
			filled++
		})
		if renderErr != nil {
			return renderErr
		}

		rendered, err := doc.Html()
		if err != nil {
			return fmt.Errorf("rendering %s: %w", path, err)
		}
		return os.WriteFile(path, []byte(rendered), 0644)
	})
	if err != nil {
		return 0, fmt.Errorf("filling indexes: %w", err)
	}
	return filled, nil
}

type tagGroup struct {
	name   string
	pieces []Piece
}

// writeTagPages regenerates the tags tree from scratch so removed
// tags do not leave stale pages behind.
func (s *Stage) writeTagPages(pieces []Piece) (pages, tags int, err error) {
	tagsRoot := filepath.Join(s.cfg.Paths.BuildDir, "tags")
	if err := os.RemoveAll(tagsRoot); err != nil {
		return 0, 0, fmt.Errorf("clearing tags tree: %w", err)
	}
	if len(pieces) == 0 {
		return 0, 0, nil
	}

	groups := map[string]*tagGroup{}
	for _, p := range pieces {
		for _, tag := range p.Tags {
			slug := Slugify(tag)
			if slug == "" {
				continue
			}
			g, ok := groups[slug]
			if !ok {
				g = &tagGroup{name: tag}
				groups[slug] = g
			}
			g.pieces = append(g.pieces, p)
		}
	}
	if len(groups) == 0 {
		return 0, 0, nil
	}

	slugs := make([]string, 0, len(groups))
	for slug := range groups {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		g := groups[slug]
		dir := filepath.Join(tagsRoot, slug)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return pages, tags, fmt.Errorf("creating %s: %w", dir, err)
		}

		cards, err := renderCards(g.pieces, s.cfg.Images.Widths)
		if err != nil {
			return pages, tags, err
		}
		view := tagPageView{
			Site:    s.cfg.Site.Name,
			Title:   g.name,
			Heading: g.name,
			Count:   len(g.pieces),
			Cards:   cards,
		}
		if err := writeTemplate(filepath.Join(dir, "index.html"), tagPageTmpl, view); err != nil {
			return pages, tags, err
		}
		pages++
		tags++
	}

	index := tagIndexView{Site: s.cfg.Site.Name}
	for _, slug := range slugs {
		index.Tags = append(index.Tags, tagIndexEntry{
			Name:  groups[slug].name,
			URL:   "/tags/" + slug + "/",
			Count: len(groups[slug].pieces),
		})
	}
	sort.Slice(index.Tags, func(i, j int) bool { return index.Tags[i].Name < index.Tags[j].Name })
	if err := writeTemplate(filepath.Join(tagsRoot, "index.html"), tagIndexTmpl, index); err != nil {
		return pages, tags, err
	}
	pages++

	s.log.Info("Tag pages written", zap.Int("tags", tags), zap.Int("pages", pages))
	return pages, tags, nil
}

func writeTemplate(path string, tmpl *template.Template, data any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := tmpl.Execute(f, data); err != nil {
		f.Close()
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	return f.Close()
}
