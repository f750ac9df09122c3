package carousel

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atelier/config"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, image.NewNRGBA(image.Rect(0, 0, w, h))))
}

func setup(t *testing.T) (*config.Config, string) {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "public")
	require.NoError(t, os.MkdirAll(dst, 0755))

	cfg := &config.Config{}
	cfg.Paths.SourceDir = "unused"
	cfg.Paths.BuildDir = dst
	cfg.Images.Widths = []int{320, 640}
	return cfg, dst
}

func TestExpandCarousel(t *testing.T) {
	cfg, dst := setup(t)

	writePNG(t, filepath.Join(dst, "shot.png"), 500, 300)
	page := filepath.Join(dst, "index.html")
	require.NoError(t, os.WriteFile(page, []byte(`<!DOCTYPE html><html><body>
<div data-carousel data-carousel-label="Shots">
  <img src="shot.png" alt="First shot">
</div>
</body></html>`), 0644))

	e := NewExpander(cfg, zap.NewNop())
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, 1, res.Carousels)
	assert.Equal(t, 1, res.Slides)

	out, err := os.ReadFile(page)
	require.NoError(t, err)
	html := string(out)

	assert.NotContains(t, html, "data-carousel")
	assert.Contains(t, html, `class="carousel"`)
	assert.Contains(t, html, `aria-label="Shots"`)
	assert.Contains(t, html, "<picture>")
	assert.Contains(t, html, `type="image/webp"`)

	// 640 exceeds the 500px source, so its descriptor is capped.
	assert.Contains(t, html, `shot-320w.png 320w, shot-640w.png 500w`)
	assert.Contains(t, html, `shot-320w.webp 320w, shot-640w.webp 500w`)
	assert.Contains(t, html, `src="shot-640w.png"`)

	assert.Contains(t, html, `class="carousel-prev"`)
	assert.Contains(t, html, `class="carousel-next"`)
	assert.Contains(t, html, `aria-label="Go to slide 1"`)
	assert.Contains(t, html, `aria-selected="true"`)
}

func TestExpandIdempotent(t *testing.T) {
	cfg, dst := setup(t)

	writePNG(t, filepath.Join(dst, "shot.png"), 500, 300)
	page := filepath.Join(dst, "index.html")
	require.NoError(t, os.WriteFile(page, []byte(`<!DOCTYPE html><html><body><div data-carousel><img src="shot.png" alt="x"></div></body></html>`), 0644))

	e := NewExpander(cfg, zap.NewNop())
	_, err := e.Run(context.Background())
	require.NoError(t, err)
	first, err := os.ReadFile(page)
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Carousels, "expanded markup must not re-expand")

	second, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestExpandSkipsNonVariantImages(t *testing.T) {
	cfg, dst := setup(t)

	page := filepath.Join(dst, "index.html")
	require.NoError(t, os.WriteFile(page, []byte(`<!DOCTYPE html><html><body>
<div data-carousel>
  <img src="sketch.svg" alt="vector">
  <img src="https://cdn.example/remote.jpg" alt="remote">
</div>
</body></html>`), 0644))

	e := NewExpander(cfg, zap.NewNop())
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Slides)

	out, err := os.ReadFile(page)
	require.NoError(t, err)
	html := string(out)

	assert.NotContains(t, html, "<picture>")
	assert.Contains(t, html, `src="sketch.svg"`)
	assert.Contains(t, html, `src="https://cdn.example/remote.jpg"`)
	assert.Contains(t, html, `class="carousel-slide"`)
}

func TestExpandUnmeasurableImage(t *testing.T) {
	cfg, dst := setup(t)

	// No file on disk: nominal width descriptors are used.
	page := filepath.Join(dst, "index.html")
	require.NoError(t, os.WriteFile(page, []byte(`<!DOCTYPE html><html><body><div data-carousel><img src="ghost.jpg" alt="x"></div></body></html>`), 0644))

	e := NewExpander(cfg, zap.NewNop())
	_, err := e.Run(context.Background())
	require.NoError(t, err)

	out, err := os.ReadFile(page)
	require.NoError(t, err)
	assert.Contains(t, string(out), `ghost-320w.jpg 320w, ghost-640w.jpg 640w`)
}
