// Package icons derives the favicon family from a single master image.
package icons

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	ico "github.com/biessek/golang-ico"
	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"atelier/config"
)

// ErrNoMaster marks a missing master image. The build pipeline treats
// it as a soft condition; the icons command reports it as a failure.
var ErrNoMaster = errors.New("icon master not found")

// Generator renders every icon size from the configured master.
type Generator struct {
	cfg *config.Config
	log *zap.Logger
}

func NewGenerator(cfg *config.Config, log *zap.Logger) *Generator {
	return &Generator{cfg: cfg, log: log}
}

type Result struct {
	Files int
}

func (g *Generator) Run(ctx context.Context) (*Result, error) {
	master := g.cfg.IconMaster()
	img, err := imaging.Open(master)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoMaster, master)
		}
		return nil, fmt.Errorf("opening icon master: %w", err)
	}
	if b := img.Bounds(); b.Dx() != b.Dy() {
		g.log.Warn("Icon master is not square, icons are center-cropped",
			zap.Int("width", b.Dx()), zap.Int("height", b.Dy()))
	}

	out := g.cfg.Paths.BuildDir
	if err := os.MkdirAll(out, 0755); err != nil {
		return nil, fmt.Errorf("creating build directory: %w", err)
	}

	res := &Result{}
	write := func(name string, size int) error {
		path := filepath.Join(out, name)
		if err := imaging.Save(squared(img, size), path); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
		res.Files++
		g.log.Debug("Icon written", zap.String("name", name), zap.Int("size", size))
		return nil
	}

	for _, s := range g.cfg.Icons.FaviconSizes {
		if err := write(fmt.Sprintf("favicon-%dx%d.png", s, s), s); err != nil {
			return res, err
		}
	}
	apple := g.cfg.Icons.AppleTouchIconSizes
	for _, s := range apple {
		if err := write(fmt.Sprintf("apple-touch-icon-%dx%d.png", s, s), s); err != nil {
			return res, err
		}
	}
	if len(apple) > 0 {
		// The bare name is what iOS requests when no link tag matches.
		if err := write("apple-touch-icon.png", apple[len(apple)-1]); err != nil {
			return res, err
		}
	}
	for _, s := range g.cfg.Icons.AndroidIconSizes {
		if err := write(fmt.Sprintf("android-chrome-%dx%d.png", s, s), s); err != nil {
			return res, err
		}
	}

	if err := g.writeICO(img, filepath.Join(out, "favicon.ico")); err != nil {
		return res, err
	}
	res.Files++
	if err := g.writeManifest(filepath.Join(out, "site.webmanifest")); err != nil {
		return res, err
	}
	res.Files++

	g.log.Info("Icons generated", zap.Int("files", res.Files))
	return res, nil
}

// squared center-crops to a square and scales to size.
func squared(img image.Image, size int) image.Image {
	return imaging.Fill(img, size, size, imaging.Center, imaging.Lanczos)
}

func (g *Generator) writeICO(img image.Image, path string) error {
	size := 32
	if sizes := g.cfg.Icons.FaviconSizes; len(sizes) > 0 {
		size = sizes[len(sizes)-1]
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating favicon.ico: %w", err)
	}
	if err := ico.Encode(f, squared(img, size)); err != nil {
		f.Close()
		return fmt.Errorf("encoding favicon.ico: %w", err)
	}
	return f.Close()
}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type manifest struct {
	Name      string         `json:"name"`
	ShortName string         `json:"short_name"`
	Icons     []manifestIcon `json:"icons"`
	Display   string         `json:"display"`
}

func (g *Generator) writeManifest(path string) error {
	m := manifest{
		Name:      g.cfg.Site.Name,
		ShortName: g.cfg.Site.Name,
		Display:   "standalone",
	}
	for _, s := range g.cfg.Icons.AndroidIconSizes {
		m.Icons = append(m.Icons, manifestIcon{
			Src:   fmt.Sprintf("/android-chrome-%dx%d.png", s, s),
			Sizes: fmt.Sprintf("%dx%d", s, s),
			Type:  "image/png",
		})
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
