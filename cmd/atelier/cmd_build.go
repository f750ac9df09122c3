// Package main implements the build command.
// This file runs the full pipeline and is shared by watch mode.
package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"atelier/carousel"
	"atelier/fragments"
	"atelier/icons"
	"atelier/pipeline"
	"atelier/portfolio"
	"atelier/site"
	"atelier/validate"
)

var skipImages bool

// buildCmd runs the full pipeline
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the site into the output directory",
	Long: `Runs the full pipeline: copy sources, regenerate stale image
variants, generate icons, resolve fragments, expand carousels, fill
the portfolio indexes and validate the result.

Image regeneration is incremental: sources that are not newer than
their artifacts are left alone. Use --force-all to rebuild everything.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().BoolVar(&forceAll, "force-all", false, "Regenerate every image regardless of staleness")
	buildCmd.Flags().BoolVar(&skipImages, "skip-images", false, "Skip image regeneration")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	return buildSite(ctx)
}

// buildSite runs the pipeline stages in order. Validation findings are
// logged but do not fail the build; run the validate command for a
// hard check.
func buildSite(ctx context.Context) error {
	stages := []pipeline.Stage{
		pipeline.Func("copy", func(ctx context.Context) error {
			copier := site.NewCopier(cfg, logger)
			if _, err := copier.Run(ctx); err != nil {
				return err
			}
			_, err := copier.Clean(ctx)
			return err
		}),
	}
	if !skipImages {
		stages = append(stages, pipeline.Func("images", func(ctx context.Context) error {
			summary, err := newEngine().Run(ctx, cfg.BuildAssets())
			if err != nil {
				return err
			}
			printSummary(summary)
			return nil
		}))
	}
	stages = append(stages,
		pipeline.Func("icons", func(ctx context.Context) error {
			_, err := icons.NewGenerator(cfg, logger).Run(ctx)
			if errors.Is(err, icons.ErrNoMaster) {
				logger.Warn("No icon master, skipping icons", zap.Error(err))
				return nil
			}
			return err
		}),
		pipeline.Func("fragments", func(ctx context.Context) error {
			_, err := fragments.NewInjector(cfg, logger).Run(ctx)
			return err
		}),
		pipeline.Func("carousel", func(ctx context.Context) error {
			_, err := carousel.NewExpander(cfg, logger).Run(ctx)
			return err
		}),
		pipeline.Func("portfolio", func(ctx context.Context) error {
			_, err := portfolio.NewStage(cfg, logger).Run(ctx)
			return err
		}),
		pipeline.Func("validate", func(ctx context.Context) error {
			res, err := validate.NewChecker(cfg, logger).Run(ctx)
			if err != nil {
				return err
			}
			if res.Errors() > 0 || res.Warnings() > 0 {
				logger.Warn("Validation findings",
					zap.Int("errors", res.Errors()),
					zap.Int("warnings", res.Warnings()))
			}
			return nil
		}),
	)
	return pipeline.NewRunner(logger, stages...).Run(ctx)
}
