package validate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atelier/config"
)

func testChecker(t *testing.T) (*Checker, *config.Config) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.SourceDir = filepath.Join(dir, "site")
	cfg.Paths.BuildDir = filepath.Join(dir, "public")
	require.NoError(t, os.MkdirAll(cfg.Paths.BuildDir, 0755))
	return NewChecker(cfg, zap.NewNop()), cfg
}

func writeFile(t *testing.T, cfg *config.Config, rel, content string) {
	t.Helper()
	path := filepath.Join(cfg.Paths.BuildDir, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// ruleCount tallies findings per rule name.
func ruleCount(res *Result) map[string]int {
	counts := map[string]int{}
	for _, issue := range res.Issues {
		counts[issue.Rule]++
	}
	return counts
}

func TestCheckerCleanPage(t *testing.T) {
	c, cfg := testChecker(t)
	writeFile(t, cfg, "about.html", `<!DOCTYPE html><html lang="en"><head><title>About</title></head><body></body></html>`)
	writeFile(t, cfg, "assets/images/photo-320w.jpg", "x")
	writeFile(t, cfg, "assets/images/photo-640w.jpg", "x")
	writeFile(t, cfg, "index.html", `<!DOCTYPE html>
<html lang="en"><head><title>Home</title></head>
<body>
<a href="/about.html">about</a>
<a href="about.html">about again</a>
<img src="/assets/images/photo-320w.jpg" srcset="/assets/images/photo-320w.jpg 320w, /assets/images/photo-640w.jpg 640w" alt="A photo">
</body></html>`)

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
	assert.Empty(t, res.Issues)
}

func TestCheckerFindings(t *testing.T) {
	c, cfg := testChecker(t)
	writeFile(t, cfg, "index.html", `<html><body>
<p id="x">one</p>
<p id="x">two</p>
<img src="/assets/images/gone-320w.jpg">
<div data-fragment="header"></div>
</body></html>`)

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	counts := ruleCount(res)
	assert.Equal(t, 1, counts["doctype"])
	assert.Equal(t, 1, counts["title"])
	assert.Equal(t, 1, counts["duplicate-id"])
	assert.Equal(t, 1, counts["img-alt"])
	assert.Equal(t, 1, counts["dead-link"])
	assert.Equal(t, 1, counts["fragment-marker"])

	assert.Equal(t, 3, res.Errors(), "duplicate id, dead link and fragment marker are errors")
	assert.Equal(t, 3, res.Warnings())
}

func TestCheckerDirectoryLinks(t *testing.T) {
	c, cfg := testChecker(t)
	writeFile(t, cfg, "tags/index.html", `<!DOCTYPE html><html><head><title>Tags</title></head><body></body></html>`)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Paths.BuildDir, "empty"), 0755))
	writeFile(t, cfg, "index.html", `<!DOCTYPE html>
<html><head><title>Home</title></head><body>
<a href="/tags/">tags</a>
<a href="/empty/">void</a>
</body></html>`)

	res, err := c.Run(context.Background())
	require.NoError(t, err)

	require.Equal(t, 1, len(res.Issues))
	assert.Equal(t, "dead-link", res.Issues[0].Rule)
	assert.Contains(t, res.Issues[0].Detail, "/empty/")
}

func TestCheckerIgnoresExternalRefs(t *testing.T) {
	c, cfg := testChecker(t)
	writeFile(t, cfg, "index.html", `<!DOCTYPE html>
<html><head><title>Home</title></head><body>
<a href="https://example.org/page">ext</a>
<a href="//cdn.example.org/lib.js">protocol relative</a>
<a href="mailto:studio@example.org">mail</a>
<a href="tel:+4512345678">call</a>
<a href="#top">anchor</a>
<img src="data:image/gif;base64,R0lGOD" alt="">
</body></html>`)

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestCheckerQueryAndFragmentStripped(t *testing.T) {
	c, cfg := testChecker(t)
	writeFile(t, cfg, "work/piece.html", `<!DOCTYPE html><html><head><title>Piece</title></head><body></body></html>`)
	writeFile(t, cfg, "index.html", `<!DOCTYPE html>
<html><head><title>Home</title></head><body>
<a href="/work/piece.html#detail">detail</a>
<a href="/work/piece.html?ref=home">tracked</a>
</body></html>`)

	res, err := c.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Issues)
}

func TestCheckerMissingBuildDir(t *testing.T) {
	c, cfg := testChecker(t)
	require.NoError(t, os.RemoveAll(cfg.Paths.BuildDir))

	_, err := c.Run(context.Background())
	assert.Error(t, err)
}
