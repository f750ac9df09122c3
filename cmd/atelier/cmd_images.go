package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"atelier/images"
)

var forceAll bool

// imagesCmd regenerates image variants on their own
var imagesCmd = &cobra.Command{
	Use:   "images [dir]",
	Short: "Regenerate stale image variants",
	Long: `Walks the asset tree and regenerates responsive variants and webp
renditions for every source image that changed since the last run.

Staleness combines two signals: artifacts missing on disk, and sources
reported changed by git that are newer than their artifacts. When git
is unavailable every source is treated as changed.

By default the build asset tree is processed; pass a directory to
process another tree.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImages,
}

func init() {
	imagesCmd.Flags().BoolVar(&forceAll, "force-all", false, "Regenerate every image regardless of staleness")
}

// newEngine assembles the image engine with the configured change
// source.
func newEngine() *images.Engine {
	var source images.ChangeSource = images.NewGitChanges()
	if forceAll {
		source = images.ForceAll{}
	}
	return images.NewEngine(cfg.Images, source, logger)
}

func runImages(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	root := cfg.BuildAssets()
	if len(args) == 1 {
		root = args[0]
	}
	summary, err := newEngine().Run(ctx, root)
	if err != nil {
		return err
	}
	printSummary(summary)
	return nil
}

// printSummary writes the human-readable image run report.
func printSummary(s *images.Summary) {
	fmt.Printf("Image run over %s\n", s.Root)
	fmt.Printf("  strategy:   %s\n", s.Strategy)
	fmt.Printf("  processed:  %d\n", s.Processed)
	fmt.Printf("  fresh:      %d\n", s.Fresh)
	fmt.Printf("  artifacts:  %d\n", s.Artifacts)
	fmt.Printf("  failures:   %d\n", s.Failures)
	fmt.Printf("  avoided:    %.1f%%\n", s.Avoided())
	fmt.Printf("  elapsed:    %s\n", s.Elapsed.Round(time.Millisecond))
}
