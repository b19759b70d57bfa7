package core

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const configFileName = "mdrelink.yaml"

// Config represents the mdrelink.yaml configuration file.
type Config struct {
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`
}

// LoadConfig reads mdrelink.yaml from the vault root.
// Returns zero Config and nil error if the file does not exist.
func LoadConfig(vaultPath string) (Config, error) {
	p := filepath.Join(vaultPath, configFileName)
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", configFileName, err)
	}
	if err := ValidatePatterns(cfg.Include); err != nil {
		return Config{}, fmt.Errorf("%s: include: %w", configFileName, err)
	}
	if err := ValidatePatterns(cfg.Exclude); err != nil {
		return Config{}, fmt.Errorf("%s: exclude: %w", configFileName, err)
	}
	return cfg, nil
}

// Merge appends CLI patterns to the configured ones.
func (c Config) Merge(include, exclude []string) (Config, error) {
	if err := ValidatePatterns(include); err != nil {
		return Config{}, err
	}
	if err := ValidatePatterns(exclude); err != nil {
		return Config{}, err
	}
	out := Config{
		Include: make([]string, 0, len(c.Include)+len(include)),
		Exclude: make([]string, 0, len(c.Exclude)+len(exclude)),
	}
	out.Include = append(append(out.Include, c.Include...), include...)
	out.Exclude = append(append(out.Exclude, c.Exclude...), exclude...)
	return out, nil
}

// Options returns the propagation options for documents whose paths are
// relative to the vault root.
func (c Config) Options() Options {
	return Options{Include: c.Include, Exclude: c.Exclude}
}
