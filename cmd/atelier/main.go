// Package main implements the atelier CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"atelier/config"
)

const version = "0.3.0"

var (
	// Global flags
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "atelier",
	Short: "atelier - static portfolio site builder",
	Long: `atelier builds a design portfolio from an authored site tree.

It copies sources into the build directory, regenerates only the image
variants whose sources changed, resolves shared fragments, expands
carousels, assembles the portfolio indexes and validates the result.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env may carry ATELIER_CONFIG and deploy settings
		_ = godotenv.Load()

		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = loadConfig()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the atelier version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("atelier %s\n", version)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Config file (default: atelier.yaml when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	// Add commands to root
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(imagesCmd)
	rootCmd.AddCommand(iconsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(auditCmd)
	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration: the --config flag, then the
// ATELIER_CONFIG variable, then atelier.yaml when present, then the
// built-in defaults.
func loadConfig() (*config.Config, error) {
	path := cfgPath
	if path == "" {
		path = os.Getenv("ATELIER_CONFIG")
	}
	if path == "" {
		if _, err := os.Stat("atelier.yaml"); err != nil {
			return config.Default(), nil
		}
		path = "atelier.yaml"
	}
	return config.Load(path)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("Received shutdown signal")
		cancel()
	}()
	return ctx, cancel
}
