package icons

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"atelier/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Site.Name = "Atelier"
	cfg.Paths.SourceDir = filepath.Join(dir, "site")
	cfg.Paths.BuildDir = filepath.Join(dir, "public")
	cfg.Icons.FaviconSizes = []int{16, 32}
	cfg.Icons.AppleTouchIconSizes = []int{120, 180}
	cfg.Icons.AndroidIconSizes = []int{192}
	return cfg
}

func writeMaster(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("writing master: %v", err)
	}
}

func TestGenerateIcons(t *testing.T) {
	cfg := testConfig(t)
	writeMaster(t, cfg.IconMaster(), 256, 256)

	res, err := NewGenerator(cfg, zap.NewNop()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// Two favicons, two apple sizes plus the bare name, one android
	// size, the ico and the manifest.
	if res.Files != 8 {
		t.Errorf("Files = %d, want 8", res.Files)
	}

	wantSizes := map[string]int{
		"favicon-16x16.png":            16,
		"favicon-32x32.png":            32,
		"apple-touch-icon-120x120.png": 120,
		"apple-touch-icon-180x180.png": 180,
		"apple-touch-icon.png":         180,
		"android-chrome-192x192.png":   192,
	}
	for name, size := range wantSizes {
		img, err := imaging.Open(filepath.Join(cfg.Paths.BuildDir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if b := img.Bounds(); b.Dx() != size || b.Dy() != size {
			t.Errorf("%s bounds = %dx%d, want %dx%d", name, b.Dx(), b.Dy(), size, size)
		}
	}

	icoData, err := os.ReadFile(filepath.Join(cfg.Paths.BuildDir, "favicon.ico"))
	if err != nil {
		t.Fatal(err)
	}
	if len(icoData) < 4 || icoData[0] != 0 || icoData[1] != 0 || icoData[2] != 1 || icoData[3] != 0 {
		t.Error("favicon.ico does not start with an ICO header")
	}
}

func TestManifest(t *testing.T) {
	cfg := testConfig(t)
	writeMaster(t, cfg.IconMaster(), 256, 256)

	if _, err := NewGenerator(cfg, zap.NewNop()).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.BuildDir, "site.webmanifest"))
	if err != nil {
		t.Fatal(err)
	}
	var m manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest is not valid JSON: %v", err)
	}
	if m.Name != "Atelier" {
		t.Errorf("name = %q, want Atelier", m.Name)
	}
	if len(m.Icons) != 1 {
		t.Fatalf("icons = %d, want 1", len(m.Icons))
	}
	if m.Icons[0].Src != "/android-chrome-192x192.png" {
		t.Errorf("icon src = %q", m.Icons[0].Src)
	}
	if m.Icons[0].Sizes != "192x192" {
		t.Errorf("icon sizes = %q", m.Icons[0].Sizes)
	}
}

func TestNonSquareMasterIsCropped(t *testing.T) {
	cfg := testConfig(t)
	writeMaster(t, cfg.IconMaster(), 256, 128)

	if _, err := NewGenerator(cfg, zap.NewNop()).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	img, err := imaging.Open(filepath.Join(cfg.Paths.BuildDir, "favicon-32x32.png"))
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("bounds = %dx%d, want 32x32", b.Dx(), b.Dy())
	}
}

func TestMissingMaster(t *testing.T) {
	cfg := testConfig(t)

	_, err := NewGenerator(cfg, zap.NewNop()).Run(context.Background())
	if !errors.Is(err, ErrNoMaster) {
		t.Fatalf("err = %v, want ErrNoMaster", err)
	}
}
