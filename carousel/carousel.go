// Package carousel expands simplified gallery markup into production
// slider markup. Authors write a bare <div data-carousel> holding
// plain <img> tags; the build wraps slides, wires responsive srcset
// attributes from the variant naming scheme, and adds controls.
package carousel

import (
	"context"
	"fmt"
	"html"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"

	"atelier/config"
	"atelier/images"
)

const defaultSizes = "(min-width: 960px) 960px, 100vw"

// Expander rewrites data-carousel blocks across the build tree.
type Expander struct {
	cfg *config.Config
	log *zap.Logger
}

func NewExpander(cfg *config.Config, log *zap.Logger) *Expander {
	return &Expander{cfg: cfg, log: log}
}

// Result counts what one expansion pass did.
type Result struct {
	Pages     int
	Carousels int
	Slides    int
}

func (e *Expander) Run(ctx context.Context) (*Result, error) {
	res := &Result{}
	root := e.cfg.Paths.BuildDir
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		carousels, slides, err := e.expandFile(path)
		if err != nil {
			e.log.Error("Carousel expansion failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		if carousels > 0 {
			res.Pages++
			res.Carousels += carousels
			res.Slides += slides
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking build tree: %w", err)
	}
	return res, nil
}

func (e *Expander) expandFile(path string) (carousels, slides int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	doc, err := goquery.NewDocumentFromReader(f)
	f.Close()
	if err != nil {
		return 0, 0, fmt.Errorf("parsing: %w", err)
	}

	doc.Find("[data-carousel]").Each(func(_ int, sel *goquery.Selection) {
		n := e.expand(path, sel)
		carousels++
		slides += n
	})

	if carousels == 0 {
		return 0, 0, nil
	}

	rendered, err := doc.Html()
	if err != nil {
		return 0, 0, fmt.Errorf("rendering: %w", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0644); err != nil {
		return 0, 0, fmt.Errorf("writing: %w", err)
	}
	return carousels, slides, nil
}

// expand rewrites one carousel root in place and returns its slide
// count.
func (e *Expander) expand(page string, sel *goquery.Selection) int {
	type slide struct {
		src string
		alt string
	}
	var found []slide
	sel.Find("img").Each(func(_ int, img *goquery.Selection) {
		src := img.AttrOr("src", "")
		if src == "" {
			return
		}
		found = append(found, slide{src: src, alt: img.AttrOr("alt", "")})
	})

	var b strings.Builder
	b.WriteString(`<div class="carousel-viewport"><ul class="carousel-track">`)
	for _, s := range found {
		b.WriteString(`<li class="carousel-slide">`)
		b.WriteString(e.slideMarkup(page, s.src, s.alt))
		b.WriteString(`</li>`)
	}
	b.WriteString(`</ul></div>`)
	b.WriteString(`<button type="button" class="carousel-prev" aria-label="Previous slide">&#8249;</button>`)
	b.WriteString(`<button type="button" class="carousel-next" aria-label="Next slide">&#8250;</button>`)
	b.WriteString(`<div class="carousel-dots" role="tablist">`)
	for i := range found {
		selected := "false"
		if i == 0 {
			selected = "true"
		}
		fmt.Fprintf(&b, `<button type="button" class="carousel-dot" role="tab" aria-selected="%s" aria-label="Go to slide %d"></button>`, selected, i+1)
	}
	b.WriteString(`</div>`)

	label := sel.AttrOr("data-carousel-label", "Gallery")
	sel.SetHtml(b.String())
	sel.RemoveAttr("data-carousel")
	sel.RemoveAttr("data-carousel-label")
	sel.AddClass("carousel")
	sel.SetAttr("role", "region")
	sel.SetAttr("aria-label", label)
	return len(found)
}

// slideMarkup builds the responsive picture element for one image, or
// a plain img when the file is not part of the variant scheme.
func (e *Expander) slideMarkup(page, src, alt string) string {
	sizes := defaultSizes
	if !images.IsSource(src) || images.ShouldSkip(src) || strings.Contains(src, "://") {
		return fmt.Sprintf(`<img src="%s" alt="%s" loading="lazy" decoding="async">`,
			html.EscapeString(src), html.EscapeString(alt))
	}

	widths := e.clampWidths(page, src)
	native := images.NativeFormat(src)

	webpSet := srcset(src, widths, images.FormatWebP)
	nativeSet := srcset(src, widths, native)
	fallback := images.VariantPath(src, fallbackWidth(widths), native)

	var b strings.Builder
	b.WriteString("<picture>")
	if native != images.FormatWebP {
		fmt.Fprintf(&b, `<source type="image/webp" srcset="%s" sizes="%s">`,
			html.EscapeString(webpSet), sizes)
	}
	fmt.Fprintf(&b, `<img src="%s" srcset="%s" sizes="%s" alt="%s" loading="lazy" decoding="async">`,
		html.EscapeString(fallback), html.EscapeString(nativeSet), sizes, html.EscapeString(alt))
	b.WriteString("</picture>")
	return b.String()
}

// widthEntry pairs an artifact's requested width with the pixel width
// it actually has after the no-upscale cap.
type widthEntry struct {
	requested int
	actual    int
}

// clampWidths reads the source image header to drop srcset entries
// that would repeat the capped width. When the file cannot be read
// the nominal widths are used as-is.
func (e *Expander) clampWidths(page, src string) []widthEntry {
	widths := e.cfg.Images.Widths

	var entries []widthEntry
	srcWidth := e.measure(page, src)
	capped := false
	for _, w := range widths {
		if srcWidth > 0 && w >= srcWidth {
			if !capped {
				entries = append(entries, widthEntry{requested: w, actual: srcWidth})
				capped = true
			}
			continue
		}
		entries = append(entries, widthEntry{requested: w, actual: w})
	}
	return entries
}

// measure resolves the image URL against the page and reads its pixel
// width from the header. Returns 0 when unknown.
func (e *Expander) measure(page, src string) int {
	var fsPath string
	if strings.HasPrefix(src, "/") {
		fsPath = filepath.Join(e.cfg.Paths.BuildDir, filepath.FromSlash(src))
	} else {
		fsPath = filepath.Join(filepath.Dir(page), filepath.FromSlash(src))
	}

	f, err := os.Open(fsPath)
	if err != nil {
		e.log.Debug("Carousel image not measurable", zap.String("src", src), zap.Error(err))
		return 0
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		e.log.Debug("Carousel image not decodable", zap.String("src", src), zap.Error(err))
		return 0
	}
	return cfg.Width
}

func srcset(src string, widths []widthEntry, format string) string {
	parts := make([]string, 0, len(widths))
	for _, w := range widths {
		parts = append(parts, fmt.Sprintf("%s %dw", images.VariantPath(src, w.requested, format), w.actual))
	}
	return strings.Join(parts, ", ")
}

func fallbackWidth(widths []widthEntry) int {
	if len(widths) == 0 {
		return 960
	}
	// Middle of the ladder: big enough for most viewports without
	// shipping the largest file to srcset-less browsers.
	return widths[len(widths)/2].requested
}
