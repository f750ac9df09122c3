// Package pipeline chains build stages and times them.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Stage is one unit of the build.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// Func adapts a function to a Stage.
func Func(name string, fn func(ctx context.Context) error) Stage {
	return funcStage{name: name, fn: fn}
}

type funcStage struct {
	name string
	fn   func(ctx context.Context) error
}

func (s funcStage) Name() string                  { return s.name }
func (s funcStage) Run(ctx context.Context) error { return s.fn(ctx) }

// Runner executes stages in order, stopping at the first failure.
type Runner struct {
	log    *zap.Logger
	stages []Stage
}

func NewRunner(log *zap.Logger, stages ...Stage) *Runner {
	return &Runner{log: log, stages: stages}
}

func (r *Runner) Run(ctx context.Context) error {
	start := time.Now()
	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return err
		}

		stageStart := time.Now()
		r.log.Debug("Stage starting", zap.String("stage", stage.Name()))
		if err := stage.Run(ctx); err != nil {
			return fmt.Errorf("stage %s: %w", stage.Name(), err)
		}
		r.log.Info(fmt.Sprintf("✓ %s", stage.Name()),
			zap.Duration("elapsed", time.Since(stageStart)))
	}
	r.log.Info("✅ Build complete", zap.Duration("elapsed", time.Since(start)))
	return nil
}
