package conf

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// TriggerMode selects when buffered messages are submitted for review.
type TriggerMode string

const (
	TriggerTimeOnly     TriggerMode = "time_only"     // periodic timer only
	TriggerCountOnly    TriggerMode = "count_only"    // batch size only
	TriggerHybrid       TriggerMode = "hybrid"        // time OR count
	TriggerStrictHybrid TriggerMode = "strict_hybrid" // time AND count
)

// Config represents application configuration
type Config struct {
	OneBot OneBotConfig
	Lark   LarkConfig
	Oracle OracleConfig

	Moderation ModerationConfig

	// Rules configuration (loaded from YAML)
	Rules *RulesConfig

	Debug bool
}

// OneBotConfig contains the OneBot v11 connection settings (QQ platform).
type OneBotConfig struct {
	WSURL       string
	AccessToken string
}

// LarkConfig contains the Lark adapter settings (optional, warn-only).
type LarkConfig struct {
	AppID     string
	AppSecret string
}

// OracleConfig contains the judgment oracle settings.
type OracleConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// ModerationConfig contains the moderation core settings.
type ModerationConfig struct {
	TriggerMode        TriggerMode
	CheckInterval      time.Duration
	BatchSize          int
	RecentMessageLimit int
	BanDuration        time.Duration
	Cooldown           time.Duration
	SendWarning        bool
	DryRun             bool

	EnabledGroups  []string // empty = all groups
	WhitelistUsers []string
	AdminUsers     []string

	LedgerDBPath string
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() *Config {
	ledgerDBPath := os.Getenv("LEDGER_DB_PATH")
	if ledgerDBPath == "" {
		homeDir, _ := os.UserHomeDir()
		ledgerDBPath = filepath.Join(homeDir, ".chatwarden", "ledger.db")
	}

	mode := TriggerMode(os.Getenv("TRIGGER_MODE"))
	switch mode {
	case TriggerTimeOnly, TriggerCountOnly, TriggerHybrid, TriggerStrictHybrid:
	default:
		mode = TriggerHybrid
	}

	rules, _ := LoadRulesConfig(os.Getenv("RULES_CONFIG_PATH"))

	return &Config{
		OneBot: OneBotConfig{
			WSURL:       os.Getenv("ONEBOT_WS_URL"),
			AccessToken: os.Getenv("ONEBOT_ACCESS_TOKEN"),
		},
		Lark: LarkConfig{
			AppID:     os.Getenv("LARK_APP_ID"),
			AppSecret: os.Getenv("LARK_APP_SECRET"),
		},
		Oracle: OracleConfig{
			APIKey:  os.Getenv("ORACLE_API_KEY"),
			BaseURL: os.Getenv("ORACLE_BASE_URL"),
			Model:   os.Getenv("ORACLE_MODEL"),
			Timeout: time.Duration(envInt("ORACLE_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Moderation: ModerationConfig{
			TriggerMode:        mode,
			CheckInterval:      time.Duration(envInt("CHECK_INTERVAL_SECONDS", 60)) * time.Second,
			BatchSize:          envInt("BATCH_SIZE", 10),
			RecentMessageLimit: envInt("RECENT_MESSAGE_LIMIT", 50),
			BanDuration:        time.Duration(envInt("BAN_DURATION_SECONDS", 600)) * time.Second,
			Cooldown:           time.Duration(envInt("COOLDOWN_SECONDS", 3600)) * time.Second,
			SendWarning:        envBool("SEND_WARNING", true),
			DryRun:             envBool("DRY_RUN", false),
			EnabledGroups:      envList("ENABLED_GROUPS"),
			WhitelistUsers:     envList("WHITELIST_USERS"),
			AdminUsers:         envList("ADMIN_USERS"),
			LedgerDBPath:       ledgerDBPath,
		},
		Rules: rules,
		Debug: os.Getenv("DEBUG") == "true",
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.OneBot.WSURL == "" && (c.Lark.AppID == "" || c.Lark.AppSecret == "") {
		return &ConfigError{Field: "ONEBOT_WS_URL or LARK_APP_ID/LARK_APP_SECRET", Message: "at least one platform is required"}
	}
	if c.Oracle.APIKey == "" {
		return &ConfigError{Field: "ORACLE_API_KEY", Message: "required"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}

func envInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func envList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
