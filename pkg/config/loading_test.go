package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestLoadFromFile tests configuration loading from file
func TestLoadFromFile(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	tests := []struct {
		name      string
		content   string
		wantError bool
	}{
		{
			name: "valid config",
			content: `
loglevel: debug
policy:
  name: HighSecurity
server:
  port: 9090
`,
			wantError: false,
		},
		{
			name:      "empty file",
			content:   "",
			wantError: false, // Should use defaults
		},
		{
			name: "invalid yaml",
			content: `
invalid: [yaml
  missing: bracket
`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			configPath := filepath.Join(tmpDir, "config.yaml")

			if err := os.WriteFile(configPath, []byte(tt.content), 0644); err != nil {
				t.Fatalf("Failed to write test config: %v", err)
			}

			config, err := LoadFromFile(configPath)
			if (err != nil) != tt.wantError {
				t.Errorf("LoadFromFile() error = %v, wantError %v", err, tt.wantError)
				return
			}

			if !tt.wantError && config == nil {
				t.Error("Expected config to be non-nil")
			}
		})
	}
}

// TestLoadFromFileNotFound tests loading non-existent file
func TestLoadFromFileNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

// TestLoadFromFileEmpty tests loading with empty path
func TestLoadFromFileEmpty(t *testing.T) {
	config, err := LoadFromFile("")
	if err != nil {
		t.Fatalf("LoadFromFile(\"\") failed: %v", err)
	}

	if config == nil {
		t.Error("Expected default config for empty path")
	}
}

// TestLoadFromEnv tests environment variable loading
func TestLoadFromEnv(t *testing.T) {
	envVars := []string{
		"PKGSIGN_LOG_LEVEL",
		"PKGSIGN_PRIVATE_KEY",
		"PKGSIGN_PUBLIC_CERT",
		"PKGSIGN_TRUST_DIR",
		"PKGSIGN_POLICY",
		"PKGSIGN_SCHEDULER_CRON",
		"PKGSIGN_SCHEDULER_ENABLED",
		"PKGSIGN_SERVER_PORT",
	}

	original := make(map[string]string)
	for _, env := range envVars {
		original[env] = os.Getenv(env)
	}
	defer func() {
		for _, env := range envVars {
			if val, exists := original[env]; exists && val != "" {
				os.Setenv(env, val)
			} else {
				os.Unsetenv(env)
			}
		}
	}()

	os.Setenv("PKGSIGN_LOG_LEVEL", "debug")
	os.Setenv("PKGSIGN_POLICY", "HighSecurity")
	os.Setenv("PKGSIGN_SERVER_PORT", "9090")
	os.Setenv("PKGSIGN_SCHEDULER_ENABLED", "false")

	config := NewDefaultConfig()
	if err := loadFromEnv(config); err != nil {
		t.Fatalf("loadFromEnv() failed: %v", err)
	}

	if config.LogLevel != "debug" {
		t.Errorf("Expected log level 'debug', got '%s'", config.LogLevel)
	}
	if config.Policy.Name != "HighSecurity" {
		t.Errorf("Expected policy 'HighSecurity', got '%s'", config.Policy.Name)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Expected server port 9090, got %d", config.Server.Port)
	}
	if config.Scheduler.Enabled {
		t.Error("Expected scheduler enabled to be false")
	}
}
