package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkgsign/pkg/archive"
	"pkgsign/pkg/metrics"
	"pkgsign/pkg/specmodel"
)

// newBuildCmd creates the build command
func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a signed package from a specification",
		Long:  `Builds an archive from a package specification, signing each member with the configured signing key.`,
		Run: func(cmd *cobra.Command, args []string) {
			logger, _, cancel := setupCommand(cmd.Context())
			defer cancel()

			if cfg.Build.SpecPath == "" {
				fmt.Println("Error: --spec is required")
				os.Exit(1)
			}
			if cfg.Build.Output == "" {
				fmt.Println("Error: --output is required")
				os.Exit(1)
			}

			spec, err := specmodel.Load(cfg.Build.SpecPath)
			if err != nil {
				logger.Error("failed to load specification", err, nil)
				fmt.Printf("Error loading specification: %s\n", err)
				os.Exit(1)
			}

			ts := newTrustStore(cfg, logger)
			s, err := newSigner(cfg, ts, logger)
			if err != nil {
				logger.Error("failed to initialize signer", err, nil)
				fmt.Printf("Error initializing signer: %s\n", err)
				os.Exit(1)
			}

			builder := archive.NewBuilder(s, logger)
			if err := builder.Build(spec, cfg.Build.Output); err != nil {
				logger.Error("build failed", err, nil)
				fmt.Printf("Error building package: %s\n", err)
				os.Exit(1)
			}

			metrics.BuildsTotal.Inc()
			fmt.Printf("Built %s %s -> %s\n", spec.Name, spec.Version, cfg.Build.Output)
		},
	}

	cfg.AddBuildFlags(cmd)
	return cmd
}
