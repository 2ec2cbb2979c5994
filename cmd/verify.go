package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkgsign/pkg/archive"
	"pkgsign/pkg/metrics"
)

// newVerifyCmd creates the verify command
func newVerifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify <package>",
		Short: "Verify a signed package against the configured policy",
		Long:  `Streams a package archive, checking its checksums and (per the active policy) its signatures and certificate chain, then optionally extracts its contents.`,
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger, _, cancel := setupCommand(cmd.Context())
			defer cancel()

			ts := newTrustStore(cfg, logger)
			pol, err := resolvePolicy(cfg.Policy.Name, ts)
			if err != nil {
				fmt.Printf("Error resolving policy: %s\n", err)
				os.Exit(1)
			}

			reader := archive.NewReader(args[0], pol, logger)
			if err := reader.Verify(); err != nil {
				metrics.VerifiesTotal.WithLabelValues("rejected").Inc()
				fmt.Printf("Verification failed: %s\n", err)
				os.Exit(1)
			}
			metrics.VerifiesTotal.WithLabelValues("accepted").Inc()

			spec := reader.Spec()
			fmt.Printf("OK: %s %s (%d files)\n", spec.Name, spec.Version, len(reader.Files()))

			if cfg.Verify.ExtractTo != "" {
				if err := reader.ExtractFiles(cfg.Verify.ExtractTo); err != nil {
					fmt.Printf("Extraction failed: %s\n", err)
					os.Exit(1)
				}
				fmt.Printf("Extracted to %s\n", cfg.Verify.ExtractTo)
			}
		},
	}

	cfg.AddVerifyFlags(cmd)
	return cmd
}
