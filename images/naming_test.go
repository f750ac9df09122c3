package images

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestVariantPath(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		width  int
		format string
		want   string
	}{
		{"jpeg native", "work/photo.jpg", 320, FormatJPEG, "work/photo-320w.jpg"},
		{"jpeg to webp", "work/photo.jpg", 320, FormatWebP, "work/photo-320w.webp"},
		{"png native", "hero.png", 1800, FormatPNG, "hero-1800w.png"},
		{"webp source", "texture.webp", 640, FormatWebP, "texture-640w.webp"},
		{"dotted base", "shoot.final.jpg", 960, FormatJPEG, "shoot.final-960w.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := VariantPath(tt.src, tt.width, tt.format)
			if got != tt.want {
				t.Errorf("VariantPath(%q, %d, %q) = %q, want %q", tt.src, tt.width, tt.format, got, tt.want)
			}
		})
	}
}

func TestOriginalPath(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"work/photo.jpg", "work/photo-original.jpg"},
		{"hero.png", "hero-original.png"},
		{"texture.webp", "texture-original.webp"},
	}

	for _, tt := range tests {
		if got := OriginalPath(tt.src); got != tt.want {
			t.Errorf("OriginalPath(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestNamingDeterminism(t *testing.T) {
	widths := []int{320, 640, 960, 1200, 1800}
	first := SpecsFor("work/photo.jpg", widths)
	second := SpecsFor("work/photo.jpg", widths)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("SpecsFor is not deterministic (-first +second):\n%s", diff)
	}
}

func TestSpecsFor(t *testing.T) {
	widths := []int{320, 640, 960, 1200, 1800}

	t.Run("jpeg source", func(t *testing.T) {
		specs := SpecsFor("work/photo.jpg", widths)

		// Original plus native and webp per width.
		if want := 1 + 2*len(widths); len(specs) != want {
			t.Fatalf("Expected %d specs, got %d", want, len(specs))
		}

		if specs[0].Path != "work/photo-original.jpg" || specs[0].Width != 0 {
			t.Errorf("First spec should be the original sidecar, got %+v", specs[0])
		}

		seen := map[string]bool{}
		for _, s := range specs {
			if seen[s.Path] {
				t.Errorf("Duplicate artifact path %q", s.Path)
			}
			seen[s.Path] = true
		}
		if !seen["work/photo-1800w.webp"] || !seen["work/photo-320w.jpg"] {
			t.Errorf("Expected variant paths missing from %v", specs)
		}
	})

	t.Run("webp source deduplicates", func(t *testing.T) {
		specs := SpecsFor("texture.webp", widths)

		// Native and webp coincide: one variant per width plus original.
		if want := 1 + len(widths); len(specs) != want {
			t.Fatalf("Expected %d specs for webp source, got %d", want, len(specs))
		}
		for _, s := range specs {
			if s.Format != FormatWebP {
				t.Errorf("Expected webp format for all specs, got %+v", s)
			}
		}
	})
}

func TestSourcesFor(t *testing.T) {
	tests := []struct {
		derived string
		want    []string
	}{
		{"work/photo-320w.jpg", []string{"work/photo.jpg"}},
		{"work/photo-original.jpg", []string{"work/photo.jpg"}},
		{"texture-original.webp", []string{"texture.webp"}},
		{"work/photo-640w.webp", []string{"work/photo.png", "work/photo.jpg", "work/photo.jpeg", "work/photo.webp"}},
		{"work/photo.jpg", nil},
		{"favicon-32x32.png", nil},
	}

	for _, tt := range tests {
		got := SourcesFor(tt.derived)
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("SourcesFor(%q) mismatch (-want +got):\n%s", tt.derived, diff)
		}
	}
}

func TestIsSource(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo.jpg", true},
		{"photo.JPG", true},
		{"scan.jpeg", true},
		{"hero.png", true},
		{"texture.webp", true},
		{"logo.svg", false},
		{"anim.gif", false},
		{"notes.txt", false},
		{"Makefile", false},
	}

	for _, tt := range tests {
		if got := IsSource(tt.name); got != tt.want {
			t.Errorf("IsSource(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsDerived(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"photo-320w.jpg", true},
		{"photo-1800w.webp", true},
		{"photo-original.jpg", true},
		{"work/deep/photo-640w.png", true},
		{"photo.jpg", false},
		{"favicon-32x32.png", false},
		{"low-res.jpg", false},
		{"draw.png", false},
	}

	for _, tt := range tests {
		if got := IsDerived(tt.name); got != tt.want {
			t.Errorf("IsDerived(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
