package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// LoadFile builds a Config from defaults, the file at path and the
// environment, in that order of precedence. A missing file is not an error.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	LoadFromEnv(cfg)
	return cfg, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "failed to read config file")
	}

	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return errors.Wrap(err, "failed to decode TOML config")
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return errors.Wrap(err, "failed to decode YAML config")
		}
	default:
		return errors.Errorf("unsupported config file extension %q (use .toml, .yaml or .yml)", filepath.Ext(path))
	}

	return nil
}
