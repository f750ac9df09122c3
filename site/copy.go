// Package site mirrors the authored source tree into the build tree.
package site

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"atelier/config"
	"atelier/images"
)

// Copier performs the incremental source-to-build copy.
type Copier struct {
	cfg *config.Config
	log *zap.Logger
}

func NewCopier(cfg *config.Config, log *zap.Logger) *Copier {
	return &Copier{cfg: cfg, log: log}
}

// Result counts what one copy pass did.
type Result struct {
	Copied  int
	Fresh   int
	Removed int
}

// IsTransient reports editor droppings and hidden files that never
// belong in a build.
func IsTransient(name string) bool {
	base := filepath.Base(name)
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") {
		return true
	}
	switch filepath.Ext(base) {
	case ".tmp", ".swp", ".swx":
		return true
	}
	return false
}

// Run copies the source tree into the build tree. File modes and
// modification times are preserved, so timestamp comparisons made
// inside the build tree still reflect when content was authored.
// Files whose destination already matches on size and mtime are left
// alone.
func (c *Copier) Run(ctx context.Context) (*Result, error) {
	src := c.cfg.Paths.SourceDir
	dst := c.cfg.Paths.BuildDir

	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("source tree: %w", err)
	}
	if err := os.MkdirAll(dst, 0755); err != nil {
		return nil, fmt.Errorf("failed to create build tree: %w", err)
	}

	absDst, err := filepath.Abs(dst)
	if err != nil {
		return nil, fmt.Errorf("resolving build tree: %w", err)
	}
	fragments := c.cfg.FragmentsRoot()

	res := &Result{}
	err = filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Never descend into the build tree or the fragment
			// library; fragments are inputs, not pages.
			if abs, err := filepath.Abs(path); err == nil && abs == absDst {
				return filepath.SkipDir
			}
			if path == fragments {
				return filepath.SkipDir
			}
			if path != src && IsTransient(info.Name()) {
				return filepath.SkipDir
			}
		} else if IsTransient(info.Name()) {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		dstPath := filepath.Join(dst, rel)

		if info.IsDir() {
			return os.MkdirAll(dstPath, info.Mode())
		}

		if dstInfo, err := os.Stat(dstPath); err == nil &&
			dstInfo.Size() == info.Size() && dstInfo.ModTime().Equal(info.ModTime()) {
			res.Fresh++
			return nil
		}

		if err := copyFile(path, dstPath, info.Mode()); err != nil {
			return fmt.Errorf("copying %s: %w", rel, err)
		}
		if err := os.Chtimes(dstPath, info.ModTime(), info.ModTime()); err != nil {
			return fmt.Errorf("preserving mtime on %s: %w", rel, err)
		}
		res.Copied++
		c.log.Debug("Copied", zap.String("path", rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Clean removes build-tree files that no longer have a source
// counterpart. Generated artifacts, icon outputs and generated tag
// pages are spared; they have no source counterpart by construction.
func (c *Copier) Clean(ctx context.Context) (*Result, error) {
	src := c.cfg.Paths.SourceDir
	dst := c.cfg.Paths.BuildDir

	if _, err := os.Stat(dst); err != nil {
		if os.IsNotExist(err) {
			return &Result{}, nil
		}
		return nil, fmt.Errorf("build tree: %w", err)
	}

	tagsPrefix := filepath.Join("tags") + string(filepath.Separator)

	res := &Result{}
	var dirs []string
	err := filepath.Walk(dst, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dst, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if info.IsDir() {
			dirs = append(dirs, path)
			return nil
		}

		if c.generated(rel) || strings.HasPrefix(rel, tagsPrefix) {
			return nil
		}
		if _, err := os.Stat(filepath.Join(src, rel)); err == nil {
			return nil
		}

		if err := os.Remove(path); err != nil {
			return fmt.Errorf("removing orphan %s: %w", rel, err)
		}
		res.Removed++
		c.log.Info("Removed orphan", zap.String("path", rel))
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Deepest first so emptied directories collapse upward.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		if err := os.Remove(dir); err == nil {
			c.log.Debug("Removed empty dir", zap.String("path", dir))
		}
	}
	return res, nil
}

// generated reports files the build itself produces into the build
// tree.
func (c *Copier) generated(rel string) bool {
	name := filepath.Base(rel)
	if images.IsDerived(name) || images.IsIconFamily(name) {
		return true
	}
	return name == "site.webmanifest"
}

// copyFile copies a single file
func copyFile(src, dst string, mode os.FileMode) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	_, err = io.Copy(dstFile, srcFile)
	return err
}
