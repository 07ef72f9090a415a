package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/viant/sqlite-kb/config"
	"github.com/viant/sqlite-kb/internal/bootstrap"
	"github.com/viant/sqlite-kb/logging"
)

var (
	configPath string
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "kb",
		Short:         "Knowledge base over a document store and a vector store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newCollectionCmd(), newInsertCmd(), newSearchCmd(), newReindexCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// withContainer loads configuration, builds the logger and backend, runs fn
// and releases everything afterwards.
func withContainer(cmd *cobra.Command, fn func(ctx context.Context, c *bootstrap.Container) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	c, err := bootstrap.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("close backend", zap.Error(err))
		}
	}()
	return fn(ctx, c)
}
