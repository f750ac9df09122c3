package images

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Output formats.
const (
	FormatJPEG = "jpeg"
	FormatPNG  = "png"
	FormatWebP = "webp"
)

// sourceExts maps recognized source extensions to their native format.
var sourceExts = map[string]string{
	".png":  FormatPNG,
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".webp": FormatWebP,
}

var derivedName = regexp.MustCompile(`-(\d+w|original)\.[0-9A-Za-z]+$`)

// ArtifactSpec describes one expected output for a source image.
// Width 0 marks the full-resolution original sidecar.
type ArtifactSpec struct {
	Path   string
	Width  int
	Format string
}

// IsSource reports whether name carries a recognized source extension.
func IsSource(name string) bool {
	_, ok := sourceExts[strings.ToLower(filepath.Ext(name))]
	return ok
}

// NativeFormat returns the encode format implied by a source extension,
// or "" when the extension is not recognized.
func NativeFormat(name string) string {
	return sourceExts[strings.ToLower(filepath.Ext(name))]
}

// IsDerived reports whether name is itself an output of the naming
// scheme. Outputs live next to their sources, so a walk must recognize
// them or a second run would treat photo-320w.jpg as a new source.
func IsDerived(name string) bool {
	return derivedName.MatchString(filepath.Base(name))
}

// VariantPath returns the artifact path for one width and format:
// dir/base-{width}w.{ext}. The webp format always uses the .webp
// extension; any other format keeps the source extension.
func VariantPath(src string, width int, format string) string {
	ext := filepath.Ext(src)
	if format == FormatWebP {
		ext = ".webp"
	}
	base := strings.TrimSuffix(src, filepath.Ext(src))
	return fmt.Sprintf("%s-%dw%s", base, width, ext)
}

// OriginalPath returns the sharpened full-resolution sidecar path:
// dir/base-original{ext}. The authored file is never overwritten.
func OriginalPath(src string) string {
	ext := filepath.Ext(src)
	base := strings.TrimSuffix(src, ext)
	return base + "-original" + ext
}

// SourcesFor returns the source paths a derived artifact may belong
// to. Width variants in webp can descend from any source format, so
// they yield one candidate per recognized extension.
func SourcesFor(derived string) []string {
	base := filepath.Base(derived)
	loc := derivedName.FindStringSubmatchIndex(base)
	if loc == nil {
		return nil
	}
	dir := filepath.Dir(derived)
	stem := base[:loc[0]]
	marker := base[loc[2]:loc[3]]

	if marker == "original" || strings.ToLower(filepath.Ext(base)) != ".webp" {
		return []string{filepath.Join(dir, stem+filepath.Ext(base))}
	}
	candidates := make([]string, 0, len(sourceExts))
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".webp"} {
		candidates = append(candidates, filepath.Join(dir, stem+ext))
	}
	return candidates
}

// SpecsFor returns every artifact expected for src: the original
// sidecar plus one native and one webp variant per width. For a .webp
// source the two formats coincide and the set is deduplicated.
func SpecsFor(src string, widths []int) []ArtifactSpec {
	native := NativeFormat(src)
	specs := make([]ArtifactSpec, 0, 1+2*len(widths))
	specs = append(specs, ArtifactSpec{Path: OriginalPath(src), Width: 0, Format: native})
	for _, w := range widths {
		specs = append(specs, ArtifactSpec{Path: VariantPath(src, w, native), Width: w, Format: native})
		if native != FormatWebP {
			specs = append(specs, ArtifactSpec{Path: VariantPath(src, w, FormatWebP), Width: w, Format: FormatWebP})
		}
	}
	return specs
}
