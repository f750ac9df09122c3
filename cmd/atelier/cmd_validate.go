package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atelier/validate"
)

// validateCmd checks the generated site
var validateCmd = &cobra.Command{
	Use:   "validate [dir]",
	Short: "Check the generated site for structural problems",
	Long: `Parses every generated page and reports unresolved fragment markers,
dead local links, duplicate ids, images without alt text, and missing
doctype or title. Exits non-zero when errors are found.

By default the build tree is checked; pass a directory to check
another tree.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	if len(args) == 1 {
		cfg.Paths.BuildDir = args[0]
	}
	res, err := validate.NewChecker(cfg, logger).Run(ctx)
	if err != nil {
		return err
	}
	for _, issue := range res.Issues {
		fmt.Println(issue)
	}
	fmt.Printf("%d pages, %d errors, %d warnings\n", res.Pages, res.Errors(), res.Warnings())
	if res.Errors() > 0 {
		return fmt.Errorf("validation failed with %d errors", res.Errors())
	}
	return nil
}
