package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"atelier/audit"
)

var prune bool

// auditCmd reports artifact coverage
var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Report image artifact coverage and orphans",
	RunE:  runAudit,
}

func init() {
	auditCmd.Flags().BoolVar(&prune, "prune", false, "Remove orphaned artifacts")
}

func runAudit(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	report, err := audit.NewAuditor(cfg, logger).Run(ctx, prune)
	if err != nil {
		return err
	}

	fmt.Printf("Assets under %s\n", cfg.BuildAssets())
	fmt.Printf("  sources:  %d (%d complete)\n", report.Sources, report.Complete)
	for _, cov := range report.Incomplete {
		fmt.Printf("  incomplete: %s (%d of %d artifacts missing)\n",
			cov.Source, len(cov.Missing), cov.Total)
	}
	for _, orphan := range report.Orphans {
		fmt.Printf("  orphan:   %s\n", orphan)
	}
	fmt.Printf("  derived:  %d files, %s\n", report.DerivedFiles, report.DerivedSize())
	if prune {
		fmt.Printf("  pruned:   %d\n", report.Pruned)
	}
	return nil
}
