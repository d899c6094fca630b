// Package config loads the operator configuration for the session bridge.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/spf13/viper"
)

// Config is the typed operator configuration. Loading it is ambient
// machinery around the orchestrator proper: it only decides how the
// process is told its listen port, its bot token, and where the agent
// binary lives.
type Config struct {
	// ListenPort is the HTTP server port (teleport, SSE, reload, setup-link).
	ListenPort int `mapstructure:"listen_port"`
	// OperatorChatID is the single chat identity authorized to drive sessions.
	OperatorChatID string `mapstructure:"operator_chat_id"`
	// TelegramBotToken authenticates the chat frontend adapter.
	TelegramBotToken string `mapstructure:"telegram_bot_token"`
	// AgentBinary is the path to the external agent executable launched per session.
	AgentBinary string `mapstructure:"agent_binary"`
	// AllowlistBaseDir overrides the cwd used to resolve .claude/settings.local.json
	// when set; empty means "use the session's own cwd" (the normal case).
	AllowlistBaseDir string `mapstructure:"allowlist_base_dir"`
	// RuleModel is the model id used for smart Bash permission-rule synthesis.
	RuleModel string `mapstructure:"rule_model"`
	// AnthropicAPIKey authenticates the rule-synthesis model call.
	AnthropicAPIKey string `mapstructure:"anthropic_api_key"`
}

// EnvPrefix is the prefix applied to environment variable overrides,
// e.g. SESSIONBRIDGE_LISTEN_PORT overrides listen_port.
const EnvPrefix = "SESSIONBRIDGE"

// DefaultConfig returns the baseline configuration before any file or
// environment overrides are applied.
func DefaultConfig() Config {
	return Config{
		ListenPort:  8787,
		AgentBinary: "claude",
		RuleModel:   "claude-3-5-haiku-20241022",
	}
}

// Load reads the operator config from the named TOML file (if present),
// layering environment variable overrides on top, and validates that the
// fields required to start the server are present.
//
// A missing config file is not an error: defaults plus environment
// variables may be sufficient on their own. A missing required field
// (bot token or operator chat id) is reported as an error so the caller
// can exit non-zero per the "configuration absent" failure kind.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_port", cfg.ListenPort)
	v.SetDefault("agent_binary", cfg.AgentBinary)
	v.SetDefault("rule_model", cfg.RuleModel)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			// With an explicit SetConfigFile path, viper reports a missing
			// file as an fs error rather than ConfigFileNotFoundError.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !errors.Is(err, fs.ErrNotExist) {
				return cfg, fmt.Errorf("reading config %s: %w", path, err)
			}
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that the fields required to serve are present.
func (c Config) Validate() error {
	var missing []string
	if c.TelegramBotToken == "" {
		missing = append(missing, "telegram_bot_token")
	}
	if c.OperatorChatID == "" {
		missing = append(missing, "operator_chat_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("configuration absent: missing required field(s): %s", strings.Join(missing, ", "))
	}
	return nil
}
