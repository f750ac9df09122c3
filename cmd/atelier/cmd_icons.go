package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atelier/icons"
)

// iconsCmd renders the favicon family
var iconsCmd = &cobra.Command{
	Use:   "icons",
	Short: "Render the favicon family from the master image",
	RunE:  runIcons,
}

func runIcons(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	res, err := icons.NewGenerator(cfg, logger).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("%d icon files written to %s\n", res.Files, cfg.Paths.BuildDir)
	return nil
}
