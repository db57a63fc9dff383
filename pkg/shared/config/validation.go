package config

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ValidateConfig checks if the global configurations have valid values.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateScanConfig(&cfg.Scan); err != nil {
		return fmt.Errorf("YAML global config: scan directive is invalid: %w", err)
	}
	if err := ValidateRulesConfig(&cfg.Rules); err != nil {
		return fmt.Errorf("YAML global config: rules directive is invalid: %w", err)
	}
	return nil
}

// ValidateScanConfig checks the file discovery settings.
func ValidateScanConfig(scanConfig *Scan) error {
	if scanConfig == nil {
		return fmt.Errorf("scan configuration is nil")
	}

	if len(scanConfig.Extensions) == 0 {
		return fmt.Errorf("at least one file extension must be configured")
	}
	for _, ext := range scanConfig.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}

	for _, pattern := range scanConfig.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("malformed exclude pattern %q", pattern)
		}
	}
	return nil
}

// ValidateRulesConfig checks the rule tuning settings.
func ValidateRulesConfig(rulesConfig *Rules) error {
	if rulesConfig == nil {
		return fmt.Errorf("rules configuration is nil")
	}

	if rulesConfig.StackBufferThreshold < 0 {
		return fmt.Errorf("stack_buffer_threshold cannot be negative: %d", rulesConfig.StackBufferThreshold)
	}

	for name, call := range rulesConfig.UnsafeCalls {
		if name == "" {
			return fmt.Errorf("unsafe_calls entries must be keyed by a function name")
		}
		if !IsValidSeverity(call.Severity) {
			return fmt.Errorf("unsafe_calls entry %q has unknown severity %q", name, call.Severity)
		}
	}
	return nil
}
