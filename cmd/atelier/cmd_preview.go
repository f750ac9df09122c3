package main

import (
	"github.com/spf13/cobra"

	"atelier/preview"
)

var addr string

// previewCmd serves the build tree locally
var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Serve the build tree on a local address",
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides config)")
}

func runPreview(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if addr != "" {
		cfg.Preview.Addr = addr
	}
	return preview.NewServer(cfg, logger).Run(ctx)
}
