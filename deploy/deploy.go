// Package deploy pushes the build tree to the web host with rsync.
package deploy

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"atelier/config"
)

// Deployer syncs the build directory to the configured target.
type Deployer struct {
	cfg *config.Config
	log *zap.Logger
}

func NewDeployer(cfg *config.Config, log *zap.Logger) *Deployer {
	return &Deployer{cfg: cfg, log: log}
}

// Run executes one rsync to the remote. With dryRun the transfer is
// simulated and nothing is changed on the remote.
func (d *Deployer) Run(ctx context.Context, dryRun bool) error {
	if err := d.validate(); err != nil {
		return err
	}
	if _, err := os.Stat(d.cfg.Paths.BuildDir); err != nil {
		return fmt.Errorf("build directory: %w", err)
	}

	target := d.cfg.Deploy.Target()
	d.log.Info("Deploying", zap.String("target", target), zap.Bool("dry_run", dryRun))

	cmd := exec.CommandContext(ctx, "rsync", d.args(dryRun)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("rsync failed: %w\nOutput: %s", err, string(output))
	}

	d.log.Info("Deployed", zap.String("target", target))
	return nil
}

// args builds the rsync argument list.
// -a: archive mode (preserves permissions, etc.)
// -z: compress during transfer
// --delete: removes files from the remote that are not in the build
func (d *Deployer) args(dryRun bool) []string {
	args := []string{"-avz", "--delete"}
	if dryRun {
		args = append(args, "--dry-run")
	}
	for _, pattern := range d.cfg.Deploy.Excludes {
		args = append(args, "--exclude", pattern)
	}
	if d.cfg.Deploy.SSHKey != "" {
		args = append(args, "-e", fmt.Sprintf("ssh -i %s", d.cfg.Deploy.SSHKey))
	}

	// Trailing slash is important: sync the contents, not the directory.
	return append(args, d.cfg.Paths.BuildDir+"/", d.cfg.Deploy.Target())
}

func (d *Deployer) validate() error {
	if d.cfg.Deploy.Host == "" {
		return fmt.Errorf("deploy.host is required")
	}
	if d.cfg.Deploy.Path == "" {
		return fmt.Errorf("deploy.path is required")
	}
	return nil
}
