package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
)

// TestNewDefaultConfig tests the default configuration creation
func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	if config.LogLevel != "info" {
		t.Errorf("Expected log level 'info', got '%s'", config.LogLevel)
	}

	if config.Policy.Name != "MediumSecurity" {
		t.Errorf("Expected policy 'MediumSecurity', got '%s'", config.Policy.Name)
	}

	if config.Signer.ResignValidity != 365*24*time.Hour {
		t.Errorf("Expected resign validity of 365 days, got %v", config.Signer.ResignValidity)
	}

	if config.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", config.Server.Port)
	}
	if config.Server.ReadTimeout != 30*time.Second {
		t.Errorf("Expected read timeout 30s, got %v", config.Server.ReadTimeout)
	}

	if !config.Scheduler.Enabled {
		t.Error("Expected scheduler to be enabled by default")
	}
}

// TestExpandHomeDir tests home directory expansion
func TestExpandHomeDir(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty path", input: ""},
		{name: "path with ${HOME}", input: "${HOME}/test"},
		{name: "path with tilde", input: "~/test"},
		{name: "path without home", input: "/absolute/path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ExpandHomeDir(tt.input)
			if tt.input == "" && result != "" {
				t.Errorf("Expected empty result for empty input, got '%s'", result)
			}
			if tt.input == "/absolute/path" && result != tt.input {
				t.Errorf("Expected absolute path to be unchanged, got '%s'", result)
			}
		})
	}
}

// TestAddFlagsToCommand tests flag registration
func TestAddFlagsToCommand(t *testing.T) {
	config := NewDefaultConfig()
	cmd := &cobra.Command{Use: "test"}

	config.AddFlagsToCommand(cmd)

	flags := []string{
		"log-level",
		"private-key",
		"public-cert",
		"resign-validity",
		"trust-dir",
		"policy",
	}

	for _, flagName := range flags {
		flag := cmd.PersistentFlags().Lookup(flagName)
		if flag == nil {
			t.Errorf("Expected flag '%s' to be registered", flagName)
		}
	}
}

// TestAddBuildFlags tests build flag registration
func TestAddBuildFlags(t *testing.T) {
	config := NewDefaultConfig()
	cmd := &cobra.Command{Use: "test"}

	config.AddBuildFlags(cmd)

	for _, flagName := range []string{"spec", "output"} {
		if cmd.Flags().Lookup(flagName) == nil {
			t.Errorf("Expected flag '%s' to be registered", flagName)
		}
	}
}

// TestAddVerifyFlags tests verify flag registration
func TestAddVerifyFlags(t *testing.T) {
	config := NewDefaultConfig()
	cmd := &cobra.Command{Use: "test"}

	config.AddVerifyFlags(cmd)

	if cmd.Flags().Lookup("extract-to") == nil {
		t.Error("Expected 'extract-to' flag to be registered")
	}
}

// TestAddServerFlags tests server flag registration
func TestAddServerFlags(t *testing.T) {
	config := NewDefaultConfig()
	cmd := &cobra.Command{Use: "test"}

	config.AddServerFlags(cmd)

	flags := []string{
		"port",
		"read-timeout",
		"write-timeout",
		"shutdown-timeout",
		"scheduler",
		"scheduler-cron",
	}

	for _, flagName := range flags {
		flag := cmd.Flags().Lookup(flagName)
		if flag == nil {
			t.Errorf("Expected flag '%s' to be registered", flagName)
		}
	}
}

// TestValidate tests configuration validation
func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		modifyFn  func(*Config)
		wantError bool
	}{
		{
			name:      "valid default config",
			modifyFn:  func(c *Config) {},
			wantError: false,
		},
		{
			name: "invalid log level",
			modifyFn: func(c *Config) {
				c.LogLevel = "invalid"
			},
			wantError: true,
		},
		{
			name: "invalid server port - negative",
			modifyFn: func(c *Config) {
				c.Server.Port = -1
			},
			wantError: true,
		},
		{
			name: "invalid server port - too high",
			modifyFn: func(c *Config) {
				c.Server.Port = 70000
			},
			wantError: true,
		},
		{
			name: "invalid policy name",
			modifyFn: func(c *Config) {
				c.Policy.Name = "Nonsense"
			},
			wantError: true,
		},
		{
			name: "zero resign validity",
			modifyFn: func(c *Config) {
				c.Signer.ResignValidity = 0
			},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := NewDefaultConfig()
			tt.modifyFn(config)

			err := config.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

// TestSaveToFile tests configuration saving
func TestSaveToFile(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	config := NewDefaultConfig()

	tmpDir := t.TempDir()
	filePath := filepath.Join(tmpDir, "config.yaml")

	if err := config.SaveToFile(filePath); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		t.Error("Config file was not created")
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		t.Fatalf("Failed to read saved config: %v", err)
	}

	if len(data) == 0 {
		t.Error("Saved config file is empty")
	}
}

// TestSaveToFileCreatesDirectory tests directory creation
func TestSaveToFileCreatesDirectory(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	config := NewDefaultConfig()

	tmpDir := t.TempDir()
	nestedPath := filepath.Join(tmpDir, "nested", "dir", "config.yaml")

	if err := config.SaveToFile(nestedPath); err != nil {
		t.Fatalf("Failed to save config to nested path: %v", err)
	}

	if _, err := os.Stat(nestedPath); os.IsNotExist(err) {
		t.Error("Config file was not created in nested directory")
	}
}
