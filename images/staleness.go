package images

import (
	"fmt"
	"os"
	"time"
)

// Verdict is the staleness oracle's answer for one source image.
type Verdict struct {
	// Missing lists expected artifact paths that do not exist.
	Missing []string

	// OldestArtifact is the minimum modification time across the
	// artifacts that do exist. Zero when none exist.
	OldestArtifact time.Time

	// SourceNewer is true when the source was modified strictly after
	// OldestArtifact. Equal timestamps count as fresh.
	SourceNewer bool
}

// Stale reports whether the source needs regeneration on its own
// evidence: any artifact missing, or the source newer than the oldest
// artifact.
func (v Verdict) Stale() bool {
	return len(v.Missing) > 0 || v.SourceNewer
}

// Evaluate stats the source and every expected artifact once and
// returns the verdict. Timestamps are never cached between runs; the
// filesystem is the only state.
func Evaluate(src string, specs []ArtifactSpec) (Verdict, error) {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return Verdict{}, fmt.Errorf("stat source %s: %w", src, err)
	}

	var v Verdict
	for _, spec := range specs {
		info, err := os.Stat(spec.Path)
		if err != nil {
			if os.IsNotExist(err) {
				v.Missing = append(v.Missing, spec.Path)
				continue
			}
			return Verdict{}, fmt.Errorf("stat artifact %s: %w", spec.Path, err)
		}
		if v.OldestArtifact.IsZero() || info.ModTime().Before(v.OldestArtifact) {
			v.OldestArtifact = info.ModTime()
		}
	}

	if !v.OldestArtifact.IsZero() {
		v.SourceNewer = srcInfo.ModTime().After(v.OldestArtifact)
	}
	return v, nil
}
