package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkgsign/pkg/certchain"
)

// newTrustCmd creates the trust command group for managing the trust
// store.
func newTrustCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trust",
		Short: "Manage the root certificate trust store",
	}

	cmd.AddCommand(newTrustAddCmd())
	cmd.AddCommand(newTrustRemoveCmd())
	cmd.AddCommand(newTrustListCmd())
	return cmd
}

func newTrustAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <cert.pem>",
		Short: "Add a root certificate to the trust store",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger, _, cancel := setupCommand(cmd.Context())
			defer cancel()

			data, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Printf("Error reading certificate: %s\n", err)
				os.Exit(1)
			}
			cert, err := certchain.ParseCertificate(data)
			if err != nil {
				fmt.Printf("Error parsing certificate: %s\n", err)
				os.Exit(1)
			}

			ts := newTrustStore(cfg, logger)
			if err := ts.Add(cert); err != nil {
				fmt.Printf("Error adding certificate: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Added %s to trust store\n", cert.Subject())
		},
	}
}

func newTrustRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <cert.pem>",
		Short: "Remove a root certificate from the trust store",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			logger, _, cancel := setupCommand(cmd.Context())
			defer cancel()

			data, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Printf("Error reading certificate: %s\n", err)
				os.Exit(1)
			}
			cert, err := certchain.ParseCertificate(data)
			if err != nil {
				fmt.Printf("Error parsing certificate: %s\n", err)
				os.Exit(1)
			}

			ts := newTrustStore(cfg, logger)
			if err := ts.Remove(cert); err != nil {
				fmt.Printf("Error removing certificate: %s\n", err)
				os.Exit(1)
			}
			fmt.Printf("Removed %s from trust store\n", cert.Subject())
		},
	}
}

func newTrustListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List trusted root certificates",
		Run: func(cmd *cobra.Command, args []string) {
			logger, _, cancel := setupCommand(cmd.Context())
			defer cancel()

			ts := newTrustStore(cfg, logger)
			certs, err := ts.List()
			if err != nil {
				fmt.Printf("Error listing trust store: %s\n", err)
				os.Exit(1)
			}
			for _, cert := range certs {
				fmt.Printf("%s (expires %s)\n", cert.Subject(), cert.NotAfter())
			}
		},
	}
}
