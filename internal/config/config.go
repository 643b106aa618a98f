package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// LocalConfigName is the project config file looked up from the project
// directory upwards
const LocalConfigName = ".npm-release.toml"

// Config holds all application configuration
type Config struct {
	Release       ReleaseConfig       `toml:"release"`
	Registry      RegistryConfig      `toml:"registry"`
	Notifications NotificationsConfig `toml:"notifications"`
}

// ReleaseConfig holds branch and tag settings
type ReleaseConfig struct {
	Branch     string   `toml:"branch"`
	Candidates []string `toml:"candidates"`
	Remote     string   `toml:"remote"`
	TagPrefix  string   `toml:"tag_prefix"`
}

// RegistryConfig holds registry client settings
type RegistryConfig struct {
	Command  string `toml:"command"`
	Manifest string `toml:"manifest"`
}

// NotificationsConfig holds notification settings
type NotificationsConfig struct {
	Desktop      bool   `toml:"desktop"`
	SlackWebhook string `toml:"slack_webhook"`
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Release: ReleaseConfig{
			Candidates: []string{"main", "master"},
			Remote:     "origin",
			TagPrefix:  "v",
		},
		Registry: RegistryConfig{
			Command:  "npm",
			Manifest: "package.json",
		},
	}
}

// Load reads configuration from a TOML file, falling back to defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.Registry.Manifest = ExpandPath(cfg.Registry.Manifest)
	return cfg, nil
}

// FindLocalConfig walks up from dir looking for LocalConfigName. It stops
// at the repository root (a directory containing .git) and returns "" if
// no file is found.
func FindLocalConfig(dir string) string {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, LocalConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return ""
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// LoadForProject loads the explicit path if given, otherwise the nearest
// project config above dir, otherwise defaults
func LoadForProject(explicit, dir string) (*Config, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return nil, err
		}
		return Load(explicit)
	}
	if found := FindLocalConfig(dir); found != "" {
		return Load(found)
	}
	return Default(), nil
}

// ExpandPath expands ~ to the user's home directory
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return path
}
