package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"atelier/watch"
)

// watchCmd rebuilds on source changes
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild whenever the source tree changes",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if err := buildSite(ctx); err != nil {
		return err
	}

	w, err := watch.NewWatcher(cfg, logger)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	logger.Info("Watching for changes", zap.String("dir", cfg.Paths.SourceDir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case path := <-w.Changes():
			logger.Info("Change detected", zap.String("path", path))
			drain(w.Changes())
			if err := buildSite(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Error("Rebuild failed", zap.Error(err))
			}
		}
	}
}

// drain empties queued notifications so one rebuild covers them all.
func drain(ch <-chan string) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
