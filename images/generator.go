package images

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	_ "golang.org/x/image/webp" // .webp decode support

	"atelier/config"
)

// Generator produces the artifact set for a single source image.
type Generator struct {
	cfg config.ImagesConfig
}

func NewGenerator(cfg config.ImagesConfig) *Generator {
	return &Generator{cfg: cfg}
}

// Process decodes src once and writes every artifact in specs. It
// returns the number written plus one error per failed artifact; a
// failed artifact never stops the remaining ones. A decode failure
// fails the whole source since nothing can be produced from it.
func (g *Generator) Process(src string, specs []ArtifactSpec) (int, []error) {
	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return 0, []error{fmt.Errorf("decoding %s: %w", src, err)}
	}
	srcWidth := img.Bounds().Dx()

	written := 0
	var errs []error
	for _, spec := range specs {
		var out image.Image
		if spec.Width == 0 {
			// Full-resolution sidecar, sharpened only.
			out = imaging.Sharpen(img, g.cfg.Sharpen)
		} else {
			w := spec.Width
			if w > srcWidth {
				// Never upscale; the capped file still exists under
				// its requested-width name.
				w = srcWidth
			}
			resized := img
			if w < srcWidth {
				resized = imaging.Resize(img, w, 0, imaging.Lanczos)
			}
			out = imaging.Sharpen(resized, g.cfg.Sharpen)
		}

		if err := g.encode(out, spec.Path, spec.Format); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", filepath.Base(spec.Path), err))
			continue
		}
		written++
	}
	return written, errs
}

func (g *Generator) encode(img image.Image, path, format string) error {
	switch format {
	case FormatJPEG:
		return imaging.Save(img, path, imaging.JPEGQuality(g.cfg.QualityFor(FormatJPEG)))
	case FormatPNG:
		return imaging.Save(img, path)
	case FormatWebP:
		return g.saveWebP(img, path)
	default:
		return fmt.Errorf("unsupported format %q", format)
	}
}

func (g *Generator) saveWebP(img image.Image, path string) error {
	opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(g.cfg.QualityFor(FormatWebP)))
	if err != nil {
		return fmt.Errorf("webp encoder options: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := webp.Encode(f, img, opts); err != nil {
		return fmt.Errorf("webp encode: %w", err)
	}
	return f.Close()
}
