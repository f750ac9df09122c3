// Package images implements incremental regeneration of responsive
// image variants. Sources are discovered by walking the asset root;
// whether each one is rebuilt is decided from the artifact set found
// on disk plus a pluggable change source. No state survives between
// runs: the filesystem is the only cache.
package images

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"atelier/config"
)

// Action is what the engine decided to do with a source.
type Action string

const (
	ActionProcess Action = "process"
	ActionSkip    Action = "skip"
)

// Decision reasons.
const (
	ReasonMissing = "missing-artifacts"
	ReasonChanged = "source-changed"
	ReasonFresh   = "fresh"
)

// ProcessingDecision records why a source was regenerated or left
// alone.
type ProcessingDecision struct {
	Path   string
	Action Action
	Reason string
}

// Decide applies the regeneration rule. Missing artifacts always
// trigger work, so deleted outputs heal on the next run no matter
// what the change source says. The timestamp trigger fires only for
// nominated candidates.
func Decide(path string, v Verdict, candidates *CandidateSet) ProcessingDecision {
	switch {
	case len(v.Missing) > 0:
		return ProcessingDecision{Path: path, Action: ActionProcess, Reason: ReasonMissing}
	case v.SourceNewer && candidates.Contains(path):
		return ProcessingDecision{Path: path, Action: ActionProcess, Reason: ReasonChanged}
	default:
		return ProcessingDecision{Path: path, Action: ActionSkip, Reason: ReasonFresh}
	}
}

// Summary is the result of one engine run.
type Summary struct {
	Root      string
	Strategy  string
	Processed int
	Fresh     int
	Artifacts int
	Failures  int
	Elapsed   time.Duration
}

// Avoided returns the percentage of sources left untouched.
func (s *Summary) Avoided() float64 {
	total := s.Processed + s.Fresh
	if total == 0 {
		return 0
	}
	return 100 * float64(s.Fresh) / float64(total)
}

// Engine walks an asset root and regenerates stale artifact sets
// sequentially.
type Engine struct {
	cfg    config.ImagesConfig
	gen    *Generator
	source ChangeSource
	log    *zap.Logger
}

func NewEngine(cfg config.ImagesConfig, source ChangeSource, log *zap.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		gen:    NewGenerator(cfg),
		source: source,
		log:    log,
	}
}

// Run regenerates stale artifacts under root. Only a missing or
// unreadable root is an error; anything that goes wrong with a single
// source or artifact is logged, counted and survived.
func (e *Engine) Run(ctx context.Context, root string) (*Summary, error) {
	start := time.Now()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving asset root: %w", err)
	}
	info, err := os.Stat(absRoot)
	if err != nil {
		return nil, fmt.Errorf("asset root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset root %s is not a directory", absRoot)
	}

	candidates, strategy := e.resolveCandidates(ctx, absRoot)
	sum := &Summary{Root: absRoot, Strategy: strategy}

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			e.log.Warn("Unreadable path skipped", zap.String("path", path), zap.Error(err))
			return nil
		}
		if d.IsDir() {
			if path != absRoot && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !IsSource(name) || IsDerived(name) || ShouldSkip(name) {
			return nil
		}

		specs := SpecsFor(path, e.cfg.Widths)
		verdict, err := Evaluate(path, specs)
		if err != nil {
			e.log.Warn("Staleness check failed", zap.String("path", path), zap.Error(err))
			sum.Failures++
			return nil
		}

		decision := Decide(path, verdict, candidates)
		if decision.Action == ActionSkip {
			sum.Fresh++
			e.log.Debug("Fresh", zap.String("path", path))
			return nil
		}

		written, errs := e.gen.Process(path, specs)
		sum.Processed++
		sum.Artifacts += written
		sum.Failures += len(errs)
		for _, genErr := range errs {
			e.log.Warn("Artifact failed", zap.String("source", path), zap.Error(genErr))
		}
		e.log.Debug("Regenerated",
			zap.String("path", path),
			zap.String("reason", decision.Reason),
			zap.Int("artifacts", written))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking asset root: %w", err)
	}

	sum.Elapsed = time.Since(start)
	return sum, nil
}

// resolveCandidates asks the change source for its nominations and
// fails open: when the source cannot answer, every file becomes a
// candidate rather than none.
func (e *Engine) resolveCandidates(ctx context.Context, root string) (*CandidateSet, string) {
	set, err := e.source.Candidates(ctx, root)
	if err != nil {
		e.log.Warn("Change detection unavailable, treating all sources as candidates",
			zap.String("source", e.source.Name()), zap.Error(err))
		return AllCandidates(), fmt.Sprintf("force-all (%s unavailable)", e.source.Name())
	}
	return set, e.source.Name()
}
