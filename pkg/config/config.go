package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Config represents the main application configuration
type Config struct {
	// General configuration
	LogLevel string

	// Signer configuration
	Signer SignerConfig

	// TrustStore configuration
	TrustStore TrustStoreConfig

	// Policy configuration
	Policy PolicyConfig

	// Server configuration
	Server ServerConfig

	// Scheduler configuration
	Scheduler SchedulerConfig

	// Build configuration
	Build BuildConfig

	// Verify configuration
	Verify VerifyConfig
}

// SignerConfig contains signing key and certificate chain configuration
type SignerConfig struct {
	PrivateKeyPath string
	PublicCertPath string
	ResignValidity time.Duration
}

// TrustStoreConfig contains trust store configuration
type TrustStoreConfig struct {
	Directory string
}

// PolicyConfig contains verification policy configuration
type PolicyConfig struct {
	Name string
}

// ServerConfig contains server related configuration
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	HealthCheckPath string
	MetricsPath     string
	VerifyPath      string
}

// SchedulerConfig contains the periodic re-sign check configuration
type SchedulerConfig struct {
	Enabled bool
	Spec    string
}

// BuildConfig contains package-build options
type BuildConfig struct {
	SpecPath string
	Output   string
}

// VerifyConfig contains package-verify options
type VerifyConfig struct {
	ExtractTo string
}

// NewDefaultConfig creates a new configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Signer: SignerConfig{
			PrivateKeyPath: "${HOME}/.pkgsign/gem-private_key.pem",
			PublicCertPath: "${HOME}/.pkgsign/gem-public_cert.pem",
			ResignValidity: 365 * 24 * time.Hour,
		},
		TrustStore: TrustStoreConfig{
			Directory: "${HOME}/.pkgsign/trust",
		},
		Policy: PolicyConfig{
			Name: "MediumSecurity",
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			HealthCheckPath: "/healthz",
			MetricsPath:     "/metrics",
			VerifyPath:      "/v1/verify",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Spec:    "0 0 * * *",
		},
		Build: BuildConfig{
			SpecPath: "",
			Output:   "",
		},
		Verify: VerifyConfig{
			ExtractTo: "",
		},
	}
}

// AddFlagsToCommand adds global configuration flags to a cobra command
func (c *Config) AddFlagsToCommand(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error, fatal)")
	cmd.PersistentFlags().StringVar(&c.Signer.PrivateKeyPath, "private-key", c.Signer.PrivateKeyPath, "Path to the signer's private key")
	cmd.PersistentFlags().StringVar(&c.Signer.PublicCertPath, "public-cert", c.Signer.PublicCertPath, "Path to the signer's public certificate")
	cmd.PersistentFlags().DurationVar(&c.Signer.ResignValidity, "resign-validity", c.Signer.ResignValidity, "Validity period for an automatically renewed self-signed certificate")
	cmd.PersistentFlags().StringVar(&c.TrustStore.Directory, "trust-dir", c.TrustStore.Directory, "Trust store directory")
	cmd.PersistentFlags().StringVar(&c.Policy.Name, "policy", c.Policy.Name, "Verification policy (NoSecurity, AlmostNoSecurity, LowSecurity, MediumSecurity, HighSecurity)")
}

// AddBuildFlags adds package-build-specific flags to a command
func (c *Config) AddBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Build.SpecPath, "spec", c.Build.SpecPath, "Path to the package specification YAML file")
	cmd.Flags().StringVar(&c.Build.Output, "output", c.Build.Output, "Path to write the built package to")
}

// AddVerifyFlags adds package-verify-specific flags to a command
func (c *Config) AddVerifyFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&c.Verify.ExtractTo, "extract-to", c.Verify.ExtractTo, "Directory to extract package contents into after verification (empty skips extraction)")
}

// AddServerFlags adds server-specific flags to a command
func (c *Config) AddServerFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&c.Server.Port, "port", c.Server.Port, "Server listening port")
	cmd.Flags().DurationVar(&c.Server.ReadTimeout, "read-timeout", c.Server.ReadTimeout, "HTTP server read timeout")
	cmd.Flags().DurationVar(&c.Server.WriteTimeout, "write-timeout", c.Server.WriteTimeout, "HTTP server write timeout")
	cmd.Flags().DurationVar(&c.Server.ShutdownTimeout, "shutdown-timeout", c.Server.ShutdownTimeout, "HTTP server shutdown timeout")
	cmd.Flags().BoolVar(&c.Scheduler.Enabled, "scheduler", c.Scheduler.Enabled, "Enable the periodic re-sign check")
	cmd.Flags().StringVar(&c.Scheduler.Spec, "scheduler-cron", c.Scheduler.Spec, "Cron expression for the periodic re-sign check")
}

// ExpandHomeDir expands the ~ or ${HOME} at the beginning of a directory path
func ExpandHomeDir(path string) string {
	if path == "" {
		return path
	}

	// Replace ${HOME} with actual home directory
	if strings.Contains(path, "${HOME}") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = strings.ReplaceAll(path, "${HOME}", homeDir)
		}
	}

	// Replace ~ with actual home directory
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[1:])
		}
	}

	return path
}
