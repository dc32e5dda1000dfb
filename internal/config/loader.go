package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Telemetry configures the optional telemetry hook chained into the child.
type Telemetry struct {
	Enabled     *bool  `json:"enabled" yaml:"enabled" toml:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name" toml:"service_name"`
	Hook        string `json:"hook" yaml:"hook" toml:"hook"`
}

// Config holds runtime parameters for the manager.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	SocketDir        string     `json:"socket_dir" yaml:"socket_dir" toml:"socket_dir"`
	Loader           string     `json:"loader" yaml:"loader" toml:"loader"`
	EnvVar           string     `json:"env_var" yaml:"env_var" toml:"env_var"`
	BootstrapHook    string     `json:"bootstrap_hook" yaml:"bootstrap_hook" toml:"bootstrap_hook"`
	RegistrySnapshot string     `json:"registry_snapshot" yaml:"registry_snapshot" toml:"registry_snapshot"`
	LogLevel         string     `json:"log_level" yaml:"log_level" toml:"log_level"`
	Telemetry        *Telemetry `json:"telemetry" yaml:"telemetry" toml:"telemetry"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .jsonc, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(b), &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
