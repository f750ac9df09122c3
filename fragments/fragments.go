// Package fragments injects shared markup into built pages. Authors
// write <div data-fragment="nav"></div>; the build replaces the
// element with the contents of fragments/nav.html.
package fragments

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"atelier/config"
)

// maxPasses bounds nested fragment resolution so a fragment cycle
// cannot hang the build.
const maxPasses = 10

// Injector replaces data-fragment markers across the build tree.
type Injector struct {
	cfg *config.Config
	log *zap.Logger
}

func NewInjector(cfg *config.Config, log *zap.Logger) *Injector {
	return &Injector{cfg: cfg, log: log}
}

// Result counts what one injection pass did.
type Result struct {
	Pages    int
	Injected int
	Missing  int
}

// Run loads the fragment library and rewrites every page in the build
// tree that carries markers. Unknown fragment names are logged and
// left in place for the validator to flag; they never fail the build.
func (in *Injector) Run(ctx context.Context) (*Result, error) {
	lib, err := in.loadLibrary()
	if err != nil {
		return nil, err
	}

	res := &Result{}
	root := in.cfg.Paths.BuildDir
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}

		injected, missing, err := in.injectFile(path, lib)
		if err != nil {
			in.log.Error("Fragment injection failed", zap.String("path", path), zap.Error(err))
			return nil
		}
		res.Injected += injected
		res.Missing += missing
		if injected > 0 {
			res.Pages++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking build tree: %w", err)
	}
	return res, nil
}

func (in *Injector) loadLibrary() (map[string]string, error) {
	root := in.cfg.FragmentsRoot()
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			in.log.Debug("No fragment library", zap.String("path", root))
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading fragment library: %w", err)
	}

	lib := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".html") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading fragment %s: %w", e.Name(), err)
		}
		lib[strings.TrimSuffix(e.Name(), ".html")] = strings.TrimSpace(string(data))
	}
	return lib, nil
}

func (in *Injector) injectFile(path string, lib map[string]string) (injected, missing int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, err
	}
	doc, err := goquery.NewDocumentFromReader(f)
	f.Close()
	if err != nil {
		return 0, 0, fmt.Errorf("parsing: %w", err)
	}

	// Fragments may contain markers themselves; resolve in passes.
	logged := map[string]bool{}
	for pass := 0; pass < maxPasses; pass++ {
		replaced := 0
		missing = 0
		doc.Find("[data-fragment]").Each(func(_ int, sel *goquery.Selection) {
			name := sel.AttrOr("data-fragment", "")
			markup, ok := lib[name]
			if !ok {
				if !logged[name] {
					in.log.Error("Unknown fragment",
						zap.String("page", path), zap.String("fragment", name))
					logged[name] = true
				}
				missing++
				return
			}
			sel.ReplaceWithHtml(markup)
			replaced++
		})
		injected += replaced
		if replaced == 0 {
			break
		}
	}

	if injected == 0 {
		return 0, missing, nil
	}

	rendered, err := doc.Html()
	if err != nil {
		return 0, 0, fmt.Errorf("rendering: %w", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0644); err != nil {
		return 0, 0, fmt.Errorf("writing: %w", err)
	}
	return injected, missing, nil
}
