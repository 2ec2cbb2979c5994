// Package cmd provides the command-line interface for pkgsign.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pkgsign/internal/log"
	"pkgsign/pkg/config"
)

var (
	// Configuration
	cfg *config.Config

	// Root command
	rootCmd = &cobra.Command{
		Use:   "pkgsign",
		Short: "pkgsign builds, signs, and verifies signed software packages",
		Long:  `A tool for building, signing, and verifying the pkgsign archive package format.`,
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// init initializes the command structure
func init() {
	cfg = config.NewDefaultConfig()
	cfg.AddFlagsToCommand(rootCmd)

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newBuildCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newTrustCmd())
	rootCmd.AddCommand(newServeCmd())
}

// setupCommand creates a logger and a cancellable context that is
// cancelled on SIGINT/SIGTERM.
func setupCommand(ctx context.Context) (log.Logger, context.Context, context.CancelFunc) {
	logger := createLogger(cfg.LogLevel)
	ctx, cancel := context.WithCancel(ctx)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-sigCh:
			logger.Info("received termination signal, shutting down", nil)
			cancel()
		case <-ctx.Done():
			return
		}
	}()

	return logger, ctx, cancel
}

// createLogger creates a new logger at the specified level.
func createLogger(level string) log.Logger {
	return log.New(log.ParseLevel(level))
}
