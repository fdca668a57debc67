package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// RulesConfig contains the review rules and messaging templates loaded
// from YAML.
type RulesConfig struct {
	// DefaultRules is the built-in rule list presented to the oracle.
	DefaultRules string `yaml:"default_rules"`
	// CustomRules is appended after the default rules. Operators fill in
	// "what else is forbidden" only; the prompt scaffold and JSON output
	// contract are fixed by the oracle package.
	CustomRules string `yaml:"custom_rules"`
	// WarningTemplate is the group warning posted after a mute. Supports
	// {user}, {reason} and {duration} placeholders.
	WarningTemplate string `yaml:"warning_template"`
}

// DefaultRulesConfig returns the built-in rules configuration.
func DefaultRulesConfig() *RulesConfig {
	return &RulesConfig{
		DefaultRules: "1. Passive-aggressive sarcasm, mockery, or deliberate provocation\n" +
			"2. Quarreling, verbal abuse, personal attacks, malicious slander\n" +
			"3. Sensitive topics (politics, religion, pornography, violence)\n" +
			"4. Spam flooding or advertising harassment",
		WarningTemplate: "⚠️ User {user} has been muted for {duration} seconds: {reason}. Please keep the discussion civil.",
	}
}

// LoadRulesConfig loads the rules configuration from a YAML file.
func LoadRulesConfig(configPath string) (*RulesConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/rules.yaml",
			"./configs/rules.yaml",
			"/etc/chatwarden/rules.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "rules.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	var err error

	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err = os.ReadFile(p)
		if err == nil {
			loadedPath = p
			break
		}
	}

	if data == nil {
		fmt.Println("[Config] No rules.yaml found, using defaults")
		return DefaultRulesConfig(), nil
	}

	fmt.Printf("[Config] Loading rules from: %s\n", loadedPath)

	config := DefaultRulesConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse rules.yaml: %w", err)
	}
	if config.DefaultRules == "" {
		config.DefaultRules = DefaultRulesConfig().DefaultRules
	}
	if config.WarningTemplate == "" {
		config.WarningTemplate = DefaultRulesConfig().WarningTemplate
	}

	return config, nil
}
