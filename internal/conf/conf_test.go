package conf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"TRIGGER_MODE", "CHECK_INTERVAL_SECONDS", "BATCH_SIZE",
		"RECENT_MESSAGE_LIMIT", "BAN_DURATION_SECONDS", "COOLDOWN_SECONDS",
		"SEND_WARNING", "DRY_RUN", "ENABLED_GROUPS", "WHITELIST_USERS",
		"ADMIN_USERS", "LEDGER_DB_PATH", "ORACLE_TIMEOUT_SECONDS",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	config := LoadFromEnv()

	m := config.Moderation
	if m.TriggerMode != TriggerHybrid {
		t.Errorf("TriggerMode = %s, want hybrid", m.TriggerMode)
	}
	if m.CheckInterval != time.Minute {
		t.Errorf("CheckInterval = %v, want 1m", m.CheckInterval)
	}
	if m.BatchSize != 10 {
		t.Errorf("BatchSize = %d, want 10", m.BatchSize)
	}
	if m.RecentMessageLimit != 50 {
		t.Errorf("RecentMessageLimit = %d, want 50", m.RecentMessageLimit)
	}
	if m.BanDuration != 10*time.Minute {
		t.Errorf("BanDuration = %v, want 10m", m.BanDuration)
	}
	if m.Cooldown != time.Hour {
		t.Errorf("Cooldown = %v, want 1h", m.Cooldown)
	}
	if !m.SendWarning {
		t.Error("SendWarning default should be true")
	}
	if m.DryRun {
		t.Error("DryRun default should be false")
	}
	if !strings.HasSuffix(m.LedgerDBPath, filepath.Join(".chatwarden", "ledger.db")) {
		t.Errorf("LedgerDBPath = %q, want home-relative default", m.LedgerDBPath)
	}
	if config.Oracle.Timeout != 30*time.Second {
		t.Errorf("Oracle.Timeout = %v, want 30s", config.Oracle.Timeout)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("TRIGGER_MODE", "strict_hybrid")
	t.Setenv("CHECK_INTERVAL_SECONDS", "120")
	t.Setenv("BATCH_SIZE", "25")
	t.Setenv("SEND_WARNING", "false")
	t.Setenv("DRY_RUN", "true")
	t.Setenv("ENABLED_GROUPS", "g1, g2 ,g3,")
	t.Setenv("ADMIN_USERS", "admin1,admin2")
	t.Setenv("LEDGER_DB_PATH", "/tmp/warden/test.db")

	m := LoadFromEnv().Moderation
	if m.TriggerMode != TriggerStrictHybrid {
		t.Errorf("TriggerMode = %s, want strict_hybrid", m.TriggerMode)
	}
	if m.CheckInterval != 2*time.Minute {
		t.Errorf("CheckInterval = %v, want 2m", m.CheckInterval)
	}
	if m.BatchSize != 25 {
		t.Errorf("BatchSize = %d, want 25", m.BatchSize)
	}
	if m.SendWarning {
		t.Error("SendWarning should be false")
	}
	if !m.DryRun {
		t.Error("DryRun should be true")
	}
	want := []string{"g1", "g2", "g3"}
	if len(m.EnabledGroups) != len(want) {
		t.Fatalf("EnabledGroups = %v, want %v", m.EnabledGroups, want)
	}
	for i, g := range want {
		if m.EnabledGroups[i] != g {
			t.Errorf("EnabledGroups[%d] = %q, want %q", i, m.EnabledGroups[i], g)
		}
	}
	if len(m.AdminUsers) != 2 {
		t.Errorf("AdminUsers = %v, want 2 entries", m.AdminUsers)
	}
	if m.LedgerDBPath != "/tmp/warden/test.db" {
		t.Errorf("LedgerDBPath = %q", m.LedgerDBPath)
	}
}

func TestLoadFromEnvInvalidTriggerMode(t *testing.T) {
	t.Setenv("TRIGGER_MODE", "whenever")

	m := LoadFromEnv().Moderation
	if m.TriggerMode != TriggerHybrid {
		t.Errorf("TriggerMode = %s, want hybrid fallback", m.TriggerMode)
	}
}

func TestLoadFromEnvInvalidIntFallsBack(t *testing.T) {
	t.Setenv("BATCH_SIZE", "lots")

	if got := LoadFromEnv().Moderation.BatchSize; got != 10 {
		t.Errorf("BatchSize = %d, want default 10 on unparseable value", got)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"onebot only", func(c *Config) {
			c.OneBot.WSURL = "ws://localhost:3001"
			c.Oracle.APIKey = "sk-test"
		}, false},
		{"lark only", func(c *Config) {
			c.Lark.AppID = "cli_x"
			c.Lark.AppSecret = "secret"
			c.Oracle.APIKey = "sk-test"
		}, false},
		{"no platform", func(c *Config) {
			c.Oracle.APIKey = "sk-test"
		}, true},
		{"lark missing secret", func(c *Config) {
			c.Lark.AppID = "cli_x"
			c.Oracle.APIKey = "sk-test"
		}, true},
		{"no oracle key", func(c *Config) {
			c.OneBot.WSURL = "ws://localhost:3001"
		}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := &Config{}
			tc.mutate(config)
			err := config.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestLoadRulesConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "custom_rules: |\n  5. No politics in #general\nwarning_template: \"{user} muted: {reason} ({duration}s)\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	rules, err := LoadRulesConfig(path)
	if err != nil {
		t.Fatalf("LoadRulesConfig: %v", err)
	}
	if !strings.Contains(rules.CustomRules, "No politics") {
		t.Errorf("CustomRules = %q", rules.CustomRules)
	}
	if rules.WarningTemplate != "{user} muted: {reason} ({duration}s)" {
		t.Errorf("WarningTemplate = %q", rules.WarningTemplate)
	}
	// Fields absent from the file keep their defaults.
	if rules.DefaultRules == "" {
		t.Error("DefaultRules lost its built-in value")
	}
}

func TestLoadRulesConfigMissingFileUsesDefaults(t *testing.T) {
	rules, err := LoadRulesConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadRulesConfig: %v", err)
	}
	defaults := DefaultRulesConfig()
	if rules.DefaultRules != defaults.DefaultRules {
		t.Error("missing file should fall back to default rules")
	}
	if rules.WarningTemplate != defaults.WarningTemplate {
		t.Error("missing file should fall back to default warning template")
	}
}

func TestLoadRulesConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	if err := os.WriteFile(path, []byte("custom_rules: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRulesConfig(path); err == nil {
		t.Error("malformed YAML should return an error")
	}
}
