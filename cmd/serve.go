package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pkgsign/pkg/config"
	"pkgsign/pkg/scheduler"
	"pkgsign/pkg/server"
)

// newServeCmd creates the serve command
func newServeCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP verification service",
		Long:  `Starts an HTTP server that verifies uploaded packages against the configured policy, alongside the periodic certificate re-sign check.`,
		Run: func(cmd *cobra.Command, args []string) {
			logger, ctx, cancel := setupCommand(cmd.Context())
			defer cancel()

			if configFile != "" {
				logger.WithField("file", configFile).Info("loading configuration from file", nil)
				loadedCfg, err := config.LoadFromFile(configFile)
				if err != nil {
					logger.Error("failed to load configuration", err, nil)
					fmt.Printf("Error loading configuration: %s\n", err)
					os.Exit(1)
				}
				cfg = loadedCfg
			}

			ts := newTrustStore(cfg, logger)
			pol, err := resolvePolicy(cfg.Policy.Name, ts)
			if err != nil {
				fmt.Printf("Error resolving policy: %s\n", err)
				os.Exit(1)
			}

			srv := server.New(ctx, cfg, pol, logger)

			g, gCtx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run() })

			if cfg.Scheduler.Enabled {
				s, err := newSigner(cfg, ts, logger)
				if err != nil {
					logger.Error("failed to initialize signer for scheduler", err, nil)
					fmt.Printf("Error initializing signer: %s\n", err)
					os.Exit(1)
				}
				sched, err := scheduler.New(s, cfg.Scheduler.Spec, logger)
				if err != nil {
					logger.Error("failed to initialize scheduler", err, nil)
					fmt.Printf("Error initializing scheduler: %s\n", err)
					os.Exit(1)
				}
				sched.Start()
				g.Go(func() error {
					<-gCtx.Done()
					sched.Stop()
					return nil
				})
			}

			if err := g.Wait(); err != nil {
				logger.Error("verification service exited with error", err, nil)
				fmt.Printf("Server error: %s\n", err)
				os.Exit(1)
			}
		},
	}

	cfg.AddServerFlags(cmd)
	cmd.Flags().StringVarP(&configFile, "config", "c", "", "Configuration file path")

	return cmd
}
