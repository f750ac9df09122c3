package main

import (
	"github.com/spf13/cobra"

	"atelier/deploy"
)

var dryRun bool

// deployCmd pushes the build tree to the web host
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Rsync the build tree to the configured host",
	RunE:  runDeploy,
}

func init() {
	deployCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would transfer without changing the remote")
}

func runDeploy(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()
	return deploy.NewDeployer(cfg, logger).Run(ctx, dryRun)
}
