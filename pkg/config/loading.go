package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"pkgsign/internal/errors"
)

// LoadFromFile loads configuration from a file
func LoadFromFile(configPath string) (*Config, error) {
	// Set default configuration
	config := NewDefaultConfig()

	// If configPath is provided, load config from file
	if configPath != "" {
		expandedPath := ExpandHomeDir(configPath)

		// Check if file exists
		if _, err := os.Stat(expandedPath); os.IsNotExist(err) {
			return nil, errors.NotFoundf("configuration file not found: %s", expandedPath)
		}

		// Read file
		data, err := os.ReadFile(expandedPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read configuration file")
		}

		// Unmarshal YAML
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, errors.Wrap(err, "failed to parse configuration file")
		}
	}

	// Load from environment variables
	if err := loadFromEnv(config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// loadFromEnv loads configuration from environment variables
func loadFromEnv(config *Config) error {
	// Map of environment variables to configuration fields
	envVars := map[string]*string{
		"PKGSIGN_LOG_LEVEL":       &config.LogLevel,
		"PKGSIGN_PRIVATE_KEY":     &config.Signer.PrivateKeyPath,
		"PKGSIGN_PUBLIC_CERT":     &config.Signer.PublicCertPath,
		"PKGSIGN_TRUST_DIR":       &config.TrustStore.Directory,
		"PKGSIGN_POLICY":          &config.Policy.Name,
		"PKGSIGN_SCHEDULER_CRON":  &config.Scheduler.Spec,
	}

	// Load environment variables
	for env, field := range envVars {
		if value, exists := os.LookupEnv(env); exists && value != "" {
			*field = value
		}
	}

	// Handle boolean and numeric environment variables
	if value, exists := os.LookupEnv("PKGSIGN_SCHEDULER_ENABLED"); exists {
		config.Scheduler.Enabled = strings.ToLower(value) == "true" || value == "1"
	}

	if value, exists := os.LookupEnv("PKGSIGN_SERVER_PORT"); exists {
		if n, err := strconv.Atoi(value); err == nil {
			config.Server.Port = n
		}
	}

	return nil
}

// SaveToFile saves the configuration to a file
func (c *Config) SaveToFile(filePath string) error {
	expandedPath := ExpandHomeDir(filePath)

	// Create directory if it doesn't exist
	dir := filepath.Dir(expandedPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create directory")
	}

	// Create or truncate file
	file, err := os.Create(expandedPath)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer file.Close()

	// Create encoder and encode config
	encoder := yaml.NewEncoder(file)
	if err := encoder.Encode(c); err != nil {
		return errors.Wrap(err, "failed to encode configuration")
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate log level
	logLevel := strings.ToLower(c.LogLevel)
	if logLevel != "debug" && logLevel != "info" && logLevel != "warn" && logLevel != "error" && logLevel != "fatal" {
		return errors.InvalidInputf("invalid log level: %s (must be one of: debug, info, warn, error, fatal)", c.LogLevel)
	}

	// Validate server configuration
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.InvalidInputf("server port must be between 0 and 65535")
	}

	// Validate policy name against the closed set of named presets
	switch c.Policy.Name {
	case "NoSecurity", "AlmostNoSecurity", "LowSecurity", "MediumSecurity", "HighSecurity":
	default:
		return errors.InvalidInputf("invalid policy: %s (must be one of: NoSecurity, AlmostNoSecurity, LowSecurity, MediumSecurity, HighSecurity)", c.Policy.Name)
	}

	if c.Signer.ResignValidity <= 0 {
		return errors.InvalidInputf("resign validity must be positive")
	}

	return nil
}
