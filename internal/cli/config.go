package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultServerURL is used when neither the environment nor the config file
// names a server.
const DefaultServerURL = "http://localhost:8080"

const (
	envConfig    = "ECRM_CONFIG"
	envServerURL = "ECRM_SERVER_URL"
	envToken     = "ECRM_TOKEN"
)

// CLIConfig is the on-disk state of a signed-in CLI.
type CLIConfig struct {
	ServerURL string `yaml:"server_url,omitempty"`
	Token     string `yaml:"token,omitempty"`
}

// configPath is $ECRM_CONFIG, or ~/.config/ecrm/config.yaml.
func configPath() (string, error) {
	if p := os.Getenv(envConfig); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "ecrm", "config.yaml"), nil
}

// loadConfig returns the zero config when no file has been written yet.
func loadConfig() (CLIConfig, error) {
	var cfg CLIConfig
	path, err := configPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return cfg, nil
	case err != nil:
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// saveConfig writes cfg owner-only; it holds a bearer token.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// updateConfig applies fn to the stored config and saves the result. An
// unreadable file is replaced rather than blocking a fresh login.
func updateConfig(fn func(*CLIConfig)) error {
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}
	fn(&cfg)
	return saveConfig(cfg)
}

// setting resolves one value: environment first, then the config file, then
// fallback.
func setting(env string, field func(CLIConfig) string, fallback string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	if cfg, err := loadConfig(); err == nil {
		if v := field(cfg); v != "" {
			return v
		}
	}
	return fallback
}

func getServerURL() string {
	return setting(envServerURL, func(c CLIConfig) string { return c.ServerURL }, DefaultServerURL)
}

func getToken() string {
	return setting(envToken, func(c CLIConfig) string { return c.Token }, "")
}
