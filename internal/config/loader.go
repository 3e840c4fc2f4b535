package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the daemon and the device simulator.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	SerialPort    string `json:"serial_port" yaml:"serial_port" toml:"serial_port"`
	BaudRate      int    `json:"baud_rate" yaml:"baud_rate" toml:"baud_rate"`
	ComposeFile   string `json:"compose_file" yaml:"compose_file" toml:"compose_file"`
	Container     string `json:"container" yaml:"container" toml:"container"`
	HTTPAddr      string `json:"http_addr" yaml:"http_addr" toml:"http_addr"`
	ReadTimeoutMS int    `json:"read_timeout_ms" yaml:"read_timeout_ms" toml:"read_timeout_ms"`
	HeartbeatMS   int    `json:"heartbeat_ms" yaml:"heartbeat_ms" toml:"heartbeat_ms"`
	DebounceMS    int    `json:"debounce_ms" yaml:"debounce_ms" toml:"debounce_ms"`
	DisplayWidth  int    `json:"display_width" yaml:"display_width" toml:"display_width"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
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
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
