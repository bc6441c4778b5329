package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Version is the application version string persisted in new config files.
const Version = "0.1.0"

// Filename is the config document name inside the user's home directory.
const Filename = ".wgbconf.json"

// Config holds the persisted application configuration
type Config struct {
	// AppName is the application name
	AppName string `json:"app_name"`

	// Version is the version of the application that wrote the file
	Version string `json:"version"`

	// LogLevel is the minimum severity emitted by the logger
	LogLevel string `json:"log_level"`

	// User is the list of per-user VPN settings
	User []UserConfig `json:"user"`
}

// UserConfig holds a single user's VPN settings
type UserConfig struct {
	// ConfigPath is the path to the user's WireGuard configuration file
	ConfigPath string `json:"config_path"`

	// OTP indicates whether a one-time password is required for this user
	OTP bool `json:"otp"`

	// OTPUri is the OTP provisioning URI (QR-code / 2FA setup)
	OTPUri string `json:"otp_uri"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		AppName:  "WGBridge",
		Version:  Version,
		LogLevel: "info",
		User:     []UserConfig{},
	}
}

// DefaultPath returns the config document path in the user's home directory
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine home directory: %w", err)
	}
	return filepath.Join(home, Filename), nil
}

// LoadConfig loads the configuration from a file
func LoadConfig(path string) (*Config, error) {
	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Load the default configuration
	config := DefaultConfig()

	// Decode the JSON document
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Keep the user list non-nil so saves stay symmetric
	if config.User == nil {
		config.User = []UserConfig{}
	}

	// Validate the configuration
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// SaveConfig saves the configuration to a file
func SaveConfig(config *Config, path string) error {
	// Encode the configuration as pretty-printed JSON
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	// Create parent directory if necessary
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// The document carries OTP URIs, keep it private to the user
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadOrCreate loads an existing config document or persists and returns
// the defaults when none exists. The returned bool reports whether a new
// document was created. A malformed existing document is an error; it is
// never overwritten, since that would destroy the user's VPN profiles.
func LoadOrCreate(path string) (*Config, bool, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := DefaultConfig()
		if err := SaveConfig(config, path); err != nil {
			return nil, false, err
		}
		return config, true, nil
	}

	config, err := LoadConfig(path)
	if err != nil {
		return nil, false, err
	}
	return config, false, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if config.AppName == "" {
		return fmt.Errorf("app name must not be empty")
	}

	if config.Version == "" {
		return fmt.Errorf("version must not be empty")
	}

	// Check the log level
	logLevel := strings.ToLower(config.LogLevel)
	if logLevel != "debug" && logLevel != "info" && logLevel != "warn" && logLevel != "error" {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	// Check the user entries
	for i, user := range config.User {
		if user.ConfigPath == "" {
			return fmt.Errorf("user entry %d: config path must not be empty", i)
		}
		if user.OTP && user.OTPUri == "" {
			return fmt.Errorf("user entry %d: otp enabled but no otp uri specified", i)
		}
	}

	return nil
}
