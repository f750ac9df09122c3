package images

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// ChangeSource nominates sources for the timestamp trigger. The engine
// asks it once per run; which files actually get processed is decided
// together with the staleness oracle.
type ChangeSource interface {
	Name() string
	Candidates(ctx context.Context, root string) (*CandidateSet, error)
}

// CandidateSet holds the paths a change source nominated. The zero
// value matches nothing.
type CandidateSet struct {
	paths map[string]struct{}
	all   bool
}

// AllCandidates returns a set that matches every path.
func AllCandidates() *CandidateSet {
	return &CandidateSet{all: true}
}

// NewCandidateSet builds a set from explicit paths.
func NewCandidateSet(paths ...string) *CandidateSet {
	s := &CandidateSet{paths: make(map[string]struct{}, len(paths))}
	for _, p := range paths {
		s.paths[filepath.Clean(p)] = struct{}{}
	}
	return s
}

// Contains reports whether path is in the set.
func (s *CandidateSet) Contains(path string) bool {
	if s.all {
		return true
	}
	_, ok := s.paths[filepath.Clean(path)]
	return ok
}

// All reports whether the set matches every path.
func (s *CandidateSet) All() bool {
	return s.all
}

// Len returns the number of explicit paths in the set.
func (s *CandidateSet) Len() int {
	return len(s.paths)
}

// ForceAll nominates every source. Used for full rebuilds and as the
// fallback when version control is unavailable.
type ForceAll struct{}

func (ForceAll) Name() string { return "force-all" }

func (ForceAll) Candidates(ctx context.Context, root string) (*CandidateSet, error) {
	return AllCandidates(), nil
}

// runner executes a git command in dir and returns its stdout.
type runner func(ctx context.Context, dir string, args ...string) (string, error)

// GitChanges reads the working set from git: unstaged edits, staged
// edits, and the files touched by the last commit. Anything outside
// the asset root or without a recognized extension is dropped.
type GitChanges struct {
	run runner
}

// NewGitChanges returns a git-backed change source.
func NewGitChanges() *GitChanges {
	return &GitChanges{run: runGit}
}

func (g *GitChanges) Name() string { return "git" }

func (g *GitChanges) Candidates(ctx context.Context, root string) (*CandidateSet, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving asset root: %w", err)
	}

	top, err := g.run(ctx, absRoot, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("git rev-parse --show-toplevel: %w", err)
	}
	top = strings.TrimSpace(top)

	// Paths from git are repo-relative; rev-parse anchors them.
	queries := [][]string{
		{"diff", "--name-only"},
		{"diff", "--name-only", "--cached"},
		{"show", "--name-only", "--pretty=format:", "HEAD"},
	}

	set := &CandidateSet{paths: make(map[string]struct{})}
	for _, args := range queries {
		out, err := g.run(ctx, absRoot, args...)
		if err != nil {
			return nil, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			abs := filepath.Join(top, filepath.FromSlash(line))
			if !IsSource(abs) || !underRoot(absRoot, abs) {
				continue
			}
			set.paths[filepath.Clean(abs)] = struct{}{}
		}
	}
	return set, nil
}

func underRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}
