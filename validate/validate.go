// Package validate runs structural checks over the generated site:
// well-formed documents, resolvable local references, and no leftover
// fragment markers.
package validate

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"atelier/config"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding on one page.
type Issue struct {
	File     string
	Rule     string
	Severity Severity
	Detail   string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s: %s", i.File, i.Severity, i.Rule, i.Detail)
}

// Result collects the findings of one validation pass.
type Result struct {
	Pages  int
	Issues []Issue
}

func (r *Result) Errors() int   { return r.count(SeverityError) }
func (r *Result) Warnings() int { return r.count(SeverityWarning) }

func (r *Result) count(s Severity) int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == s {
			n++
		}
	}
	return n
}

// Checker validates every page of the build tree.
type Checker struct {
	cfg *config.Config
	log *zap.Logger
}

func NewChecker(cfg *config.Config, log *zap.Logger) *Checker {
	return &Checker{cfg: cfg, log: log}
}

func (c *Checker) Run(ctx context.Context) (*Result, error) {
	root := c.cfg.Paths.BuildDir
	if _, err := os.Stat(root); err != nil {
		return nil, fmt.Errorf("build directory: %w", err)
	}

	res := &Result{}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		res.Pages++

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		for _, issue := range c.checkPage(path, rel) {
			res.Issues = append(res.Issues, issue)
			switch issue.Severity {
			case SeverityError:
				c.log.Error("Validation", zap.String("file", issue.File),
					zap.String("rule", issue.Rule), zap.String("detail", issue.Detail))
			default:
				c.log.Warn("Validation", zap.String("file", issue.File),
					zap.String("rule", issue.Rule), zap.String("detail", issue.Detail))
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking build directory: %w", err)
	}
	return res, nil
}

// checkPage parses one page and runs every rule against it. rel is the
// page path relative to the build root, used in findings.
func (c *Checker) checkPage(path, rel string) []Issue {
	f, err := os.Open(path)
	if err != nil {
		return []Issue{{File: rel, Rule: "parse", Severity: SeverityError, Detail: err.Error()}}
	}
	doc, err := html.Parse(f)
	f.Close()
	if err != nil {
		return []Issue{{File: rel, Rule: "parse", Severity: SeverityError, Detail: err.Error()}}
	}

	p := &pageCheck{
		checker: c,
		file:    rel,
		dir:     filepath.Dir(path),
		ids:     map[string]int{},
	}
	p.walk(doc)

	var issues []Issue
	add := func(rule string, sev Severity, detail string) {
		issues = append(issues, Issue{File: rel, Rule: rule, Severity: sev, Detail: detail})
	}

	if !p.doctype {
		add("doctype", SeverityWarning, "missing <!DOCTYPE html>")
	}
	if strings.TrimSpace(p.title) == "" {
		add("title", SeverityWarning, "missing or empty <title>")
	}
	for id, n := range p.ids {
		if n > 1 {
			add("duplicate-id", SeverityError, fmt.Sprintf("id %q appears %d times", id, n))
		}
	}
	return append(issues, p.issues...)
}

// pageCheck holds the traversal state for a single document.
type pageCheck struct {
	checker *Checker
	file    string
	dir     string

	doctype bool
	title   string
	ids     map[string]int
	issues  []Issue
}

func (p *pageCheck) add(rule string, sev Severity, detail string) {
	p.issues = append(p.issues, Issue{File: p.file, Rule: rule, Severity: sev, Detail: detail})
}

func (p *pageCheck) walk(n *html.Node) {
	switch n.Type {
	case html.DoctypeNode:
		p.doctype = true
	case html.ElementNode:
		p.element(n)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		p.walk(child)
	}
}

func (p *pageCheck) element(n *html.Node) {
	if id, ok := attrValue(n, "id"); ok && id != "" {
		p.ids[id]++
	}
	if _, ok := attrValue(n, "data-fragment"); ok {
		name, _ := attrValue(n, "data-fragment")
		p.add("fragment-marker", SeverityError, fmt.Sprintf("unresolved fragment %q", name))
	}

	switch n.DataAtom {
	case atom.Title:
		p.title = textContent(n)
	case atom.A, atom.Link:
		if href, ok := attrValue(n, "href"); ok {
			p.checkRef("href", href)
		}
	case atom.Script:
		if src, ok := attrValue(n, "src"); ok {
			p.checkRef("src", src)
		}
	case atom.Img:
		if _, ok := attrValue(n, "alt"); !ok {
			p.add("img-alt", SeverityWarning, "img without alt attribute")
		}
		if src, ok := attrValue(n, "src"); ok {
			p.checkRef("src", src)
		}
		if set, ok := attrValue(n, "srcset"); ok {
			p.checkSrcset(set)
		}
	case atom.Source:
		if set, ok := attrValue(n, "srcset"); ok {
			p.checkSrcset(set)
		}
	}
}

func (p *pageCheck) checkSrcset(set string) {
	for _, ref := range splitSrcset(set) {
		p.checkRef("srcset", ref)
	}
}

// checkRef verifies that a local reference resolves to a file in the
// build tree. External and pseudo schemes are ignored.
func (p *pageCheck) checkRef(what, ref string) {
	target, local := p.resolve(ref)
	if !local {
		return
	}
	info, err := os.Stat(target)
	switch {
	case err != nil:
		p.add("dead-link", SeverityError, fmt.Sprintf("%s %q does not resolve", what, ref))
	case info.IsDir():
		if _, err := os.Stat(filepath.Join(target, "index.html")); err != nil {
			p.add("dead-link", SeverityError, fmt.Sprintf("%s %q resolves to a directory without index.html", what, ref))
		}
	}
}

// resolve maps a reference to a filesystem path. Root-relative refs
// resolve against the build root, anything else against the page dir.
func (p *pageCheck) resolve(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") || strings.HasPrefix(ref, "//") {
		return "", false
	}
	for _, scheme := range []string{"http:", "https:", "mailto:", "tel:", "data:", "javascript:"} {
		if strings.HasPrefix(ref, scheme) {
			return "", false
		}
	}
	if i := strings.IndexAny(ref, "#?"); i >= 0 {
		ref = ref[:i]
	}
	if ref == "" {
		return "", false
	}
	if unescaped, err := url.PathUnescape(ref); err == nil {
		ref = unescaped
	}

	if strings.HasPrefix(ref, "/") {
		return filepath.Join(p.checker.cfg.Paths.BuildDir, filepath.FromSlash(ref)), true
	}
	return filepath.Join(p.dir, filepath.FromSlash(ref)), true
}

// splitSrcset extracts the URL part of each srcset entry, dropping
// the width descriptors.
func splitSrcset(set string) []string {
	var refs []string
	for _, entry := range strings.Split(set, ",") {
		fields := strings.Fields(entry)
		if len(fields) > 0 {
			refs = append(refs, fields[0])
		}
	}
	return refs
}

func attrValue(n *html.Node, name string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func textContent(n *html.Node) string {
	var b strings.Builder
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == html.TextNode {
			b.WriteString(child.Data)
		}
	}
	return b.String()
}
