package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

// DefaultConfigFile is looked up in the working directory when no --config
// flag is given.
const DefaultConfigFile = "config.yml"

// Config is the root of the YAML configuration.
type Config struct {
	Logger Logger `yaml:"logger"`
	Scan   Scan   `yaml:"scan"`
	Rules  Rules  `yaml:"rules"`
}

// Logger holds logging settings.
type Logger struct {
	Level string `yaml:"level"`
}

// Scan holds file discovery settings.
type Scan struct {
	Extensions []string `yaml:"extensions"`
	Exclude    []string `yaml:"exclude"`
}

// Rules holds rule tuning: the stack-buffer threshold, disabled rule IDs,
// and additions/overrides for the unsafe-call denylist. Zero values fall
// back to the built-in defaults.
type Rules struct {
	StackBufferThreshold int                   `yaml:"stack_buffer_threshold"`
	Disable              []string              `yaml:"disable"`
	UnsafeCalls          map[string]UnsafeCall `yaml:"unsafe_calls"`
}

// UnsafeCall describes one denylist entry in the configuration file.
// Fields left empty keep the built-in values when overriding a known entry.
type UnsafeCall struct {
	Severity string `yaml:"severity"`
	CWE      string `yaml:"cwe"`
	Message  string `yaml:"message"`
}

// DefaultConfig returns the built-in configuration used when no file is
// present.
func DefaultConfig() *Config {
	return &Config{
		Scan: Scan{
			Extensions: []string{".c", ".h"},
		},
		Rules: Rules{
			StackBufferThreshold: DefaultStackBufferThreshold,
		},
	}
}

// DefaultStackBufferThreshold is the large-stack-buffer limit in bytes.
const DefaultStackBufferThreshold = 4096

// ValidateConfigPath checks that the given path exists and is a file.
func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

// LoadYAML decodes a YAML file into data.
func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig loads the configuration file at configPath over the built-in
// defaults. An empty configPath means the default file name; a missing
// default file is not an error, a missing explicit file is.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath == "" {
		configPath = DefaultConfigFile
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	if err := LoadYAML(configPath, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
	}
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults restores built-in values for directives the file left unset.
func applyDefaults(cfg *Config) {
	cfg.Scan.Extensions = SetThen(cfg.Scan.Extensions, []string{".c", ".h"})
	cfg.Rules.StackBufferThreshold = SetThen(cfg.Rules.StackBufferThreshold, DefaultStackBufferThreshold)
}
