// Package audit reports artifact coverage over the build asset tree:
// which sources are fully rendered, which lack artifacts, and which
// derived files no longer have a source.
package audit

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"atelier/config"
	"atelier/images"
)

// Coverage describes one source and the artifacts it still lacks.
type Coverage struct {
	Source  string
	Missing []string
	Total   int
}

// Report is the outcome of one audit pass.
type Report struct {
	Sources      int
	Complete     int
	Incomplete   []Coverage
	Orphans      []string
	DerivedFiles int
	DerivedBytes uint64
	Pruned       int
}

// DerivedSize renders the derived byte total for humans.
func (r *Report) DerivedSize() string {
	return humanize.Bytes(r.DerivedBytes)
}

type Auditor struct {
	cfg *config.Config
	log *zap.Logger
}

func NewAuditor(cfg *config.Config, log *zap.Logger) *Auditor {
	return &Auditor{cfg: cfg, log: log}
}

// Run inspects the build asset tree. With prune, orphaned artifacts
// are removed from disk.
func (a *Auditor) Run(ctx context.Context, prune bool) (*Report, error) {
	root := a.cfg.BuildAssets()
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("asset directory: %w", err)
	}

	seen := map[string]bool{}
	var sources, derived []string
	report := &Report{}

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		seen[path] = true
		switch {
		case images.IsDerived(path):
			derived = append(derived, path)
			report.DerivedFiles++
			report.DerivedBytes += uint64(info.Size())
		case images.IsSource(path) && !images.ShouldSkip(path):
			sources = append(sources, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking asset directory: %w", err)
	}

	report.Sources = len(sources)
	for _, src := range sources {
		specs := images.SpecsFor(src, a.cfg.Images.Widths)
		var missing []string
		for _, spec := range specs {
			if !seen[spec.Path] {
				missing = append(missing, spec.Path)
			}
		}
		if len(missing) == 0 {
			report.Complete++
			continue
		}
		report.Incomplete = append(report.Incomplete, Coverage{
			Source:  src,
			Missing: missing,
			Total:   len(specs),
		})
	}

	for _, path := range derived {
		if hasSource(seen, path) {
			continue
		}
		report.Orphans = append(report.Orphans, path)
		if !prune {
			continue
		}
		if err := os.Remove(path); err != nil {
			a.log.Warn("Failed to prune orphan", zap.String("path", path), zap.Error(err))
			continue
		}
		report.Pruned++
		a.log.Debug("Pruned orphan", zap.String("path", path))
	}

	a.log.Info("Audit complete",
		zap.Int("sources", report.Sources),
		zap.Int("complete", report.Complete),
		zap.Int("orphans", len(report.Orphans)),
		zap.String("derived_size", report.DerivedSize()))
	return report, nil
}

// hasSource reports whether any plausible source for the derived file
// exists in the walked set.
func hasSource(seen map[string]bool, derived string) bool {
	for _, candidate := range images.SourcesFor(derived) {
		if seen[candidate] {
			return true
		}
	}
	return false
}
