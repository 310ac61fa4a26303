package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"
)

type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Models        ModelsConfig        `koanf:"models"`
	Chat          ChatConfig          `koanf:"chat"`
	Store         StoreConfig         `koanf:"store"`
	Sweep         SweepConfig         `koanf:"sweep"`
	Notifications NotificationsConfig `koanf:"notifications"`
	Librarians    LibrariansConfig    `koanf:"librarians"`
	Canned        CannedConfig        `koanf:"canned"`
	Adapters      AdaptersConfig      `koanf:"adapters"`
	Daemon        DaemonConfig        `koanf:"daemon"`
}

type ServerConfig struct {
	Port            int    `koanf:"port"`
	LogLevel        string `koanf:"log_level"`
	ReadTimeout     string `koanf:"read_timeout"`
	WriteTimeout    string `koanf:"write_timeout"`
	IdleTimeout     string `koanf:"idle_timeout"`
	ShutdownTimeout string `koanf:"shutdown_timeout"`
}

type ModelsConfig struct {
	Default             string          `koanf:"default"`
	Fallback            string          `koanf:"fallback"`
	MaxFallbackAttempts int             `koanf:"max_fallback_attempts"`
	Registry            []ModelRegistry `koanf:"registry"`
}

type ModelRegistry struct {
	Name           string `koanf:"name"`
	Provider       string `koanf:"provider"`
	BaseURL        string `koanf:"base_url"`
	APIKey         string `koanf:"api_key"`
	RequestTimeout string `koanf:"request_timeout"`
}

// ChatConfig shapes the bot path of the message router.
type ChatConfig struct {
	Model            string  `koanf:"model"`
	SystemPrompt     string  `koanf:"system_prompt"`
	HistoryTurns     int     `koanf:"history_turns"`
	MaxMessageLength int     `koanf:"max_message_length"`
	Temperature      float32 `koanf:"temperature"`
	TopP             float32 `koanf:"top_p"`
	MaxTokens        int     `koanf:"max_tokens"`
	ReplyTimeout     string  `koanf:"reply_timeout"`
	Apology          string  `koanf:"apology"`
}

type StoreConfig struct {
	MaxConversations int    `koanf:"max_conversations"`
	EvictionBuffer   int    `koanf:"eviction_buffer"`
	LockTimeout      string `koanf:"lock_timeout"`
	LockRetry        string `koanf:"lock_retry"`
	LockMaxRetry     int    `koanf:"lock_max_retry"`
}

type SweepConfig struct {
	ClosedSchedule    string `koanf:"closed_schedule"`
	ClosedRetention   string `koanf:"closed_retention"`
	AbandonedSchedule string `koanf:"abandoned_schedule"`
	AbandonedAfter    string `koanf:"abandoned_after"`
}

type NotificationsConfig struct {
	LogCapacity  int    `koanf:"log_capacity"`
	DashboardURL string `koanf:"dashboard_url"`
	SendTimeout  string `koanf:"send_timeout"`
}

type LibrariansConfig struct {
	DataFile       string   `koanf:"data_file"`
	RequestKeyword string   `koanf:"request_keyword"`
	Seed           []string `koanf:"seed"`
}

type CannedConfig struct {
	File string `koanf:"file"`
}

type AdaptersConfig struct {
	Slack    SlackConfig    `koanf:"slack"`
	Telegram TelegramConfig `koanf:"telegram"`
	Matrix   MatrixConfig   `koanf:"matrix"`
}

type SlackConfig struct {
	Enabled       bool   `koanf:"enabled"`
	Port          int    `koanf:"port"`
	SigningSecret string `koanf:"signing_secret"`
	BotToken      string `koanf:"bot_token"`
}

type TelegramConfig struct {
	Enabled       bool   `koanf:"enabled"`
	BotToken      string `koanf:"bot_token"`
	UpdateTimeout int    `koanf:"update_timeout"`
}

type MatrixConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Homeserver  string `koanf:"homeserver"`
	UserID      string `koanf:"user_id"`
	AccessToken string `koanf:"access_token"`
}

type DaemonConfig struct {
	ShutdownTimeout        string `koanf:"shutdown_timeout"`
	HealthCheckInterval    string `koanf:"health_check_interval"`
	StartupShutdownTimeout string `koanf:"startup_shutdown_timeout"`
	PreflightTimeout       string `koanf:"preflight_timeout"`
	StaleLockTTL           string `koanf:"stale_lock_ttl"`
}

const (
	DefaultServerPort                   = 3000
	DefaultServerLogLevel               = "info"
	DefaultServerReadTimeout            = "10s"
	DefaultServerWriteTimeout           = "90s"
	DefaultServerIdleTimeout            = "60s"
	DefaultServerShutdownTimeout        = "5s"
	DefaultModelDefault                 = "llama3.2"
	DefaultModelFallback                = ""
	DefaultModelMaxFallbackAttempts     = 2
	DefaultOpenAIBaseURL                = "https://api.openai.com/v1"
	DefaultOllamaBaseURL                = "http://localhost:11434/v1"
	DefaultOllamaAPIKey                 = "ollama"
	DefaultModelRequestTimeout          = "60s"
	DefaultChatHistoryTurns             = 10
	DefaultChatMaxMessageLength         = 2000
	DefaultChatTemperature              = 0.7
	DefaultChatTopP                     = 0.9
	DefaultChatMaxTokens                = 1024
	DefaultChatReplyTimeout             = "60s"
	DefaultChatApology                  = "Sorry, I'm having trouble answering right now. Please try again in a moment, or ask to speak with a librarian."
	DefaultStoreMaxConversations        = 1000
	DefaultStoreEvictionBuffer          = 50
	DefaultStoreLockTimeout             = "10s"
	DefaultStoreLockRetry               = "50ms"
	DefaultStoreLockMaxRetry            = 200
	DefaultSweepClosedSchedule          = "@every 5m"
	DefaultSweepClosedRetention         = "1h"
	DefaultSweepAbandonedSchedule       = "@every 30m"
	DefaultSweepAbandonedAfter          = "24h"
	DefaultNotificationsLogCapacity     = 50
	DefaultNotificationsDashboardURL    = "http://localhost:3000/librarian"
	DefaultNotificationsSendTimeout     = "10s"
	DefaultLibrariansRequestKeyword     = "REQUEST_LIBRARIAN_ACCESS"
	DefaultSlackPort                    = 3001
	DefaultTelegramUpdateTimeout        = 60
	DefaultDaemonShutdownTimeout        = "30s"
	DefaultDaemonHealthCheckInterval    = "30s"
	DefaultDaemonStartupShutdownTimeout = "10s"
	DefaultDaemonPreflightTimeout       = "10s"
	DefaultDaemonStaleLockTTL           = "15m"
)

const DefaultChatSystemPrompt = `You are a helpful library assistant chatbot. Your ONLY purpose is to help with library-related topics.

YOU CAN HELP WITH:
- Finding books, journals, and digital resources IN THE LIBRARY
- Library hours, locations, and policies
- Account information, holds, and renewals
- Research assistance and citation help
- Computer, printing, and study room services
- Library events, programs, and workshops
- Membership and library card information

YOU MUST POLITELY DECLINE AND NOT HELP WITH:
- Questions unrelated to library services
- General knowledge questions not related to using library resources
- Personal advice, medical, legal, or financial topics
- Technical support for personal devices
- Homework or assignment completion

When asked about non-library topics, decline politely and redirect to library services. Do not suggest external searches.

If you cannot fully help with a LIBRARY question or the user seems frustrated, suggest: "Would you like to speak with a librarian? They can provide more personalized assistance."

Keep responses concise, friendly, and focused ONLY on library services.`

// HomeDir is the per-user directory holding config.yaml and librarian data.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".libradesk")
}

func Load(cmd *cobra.Command) (*Config, error) {
	k := koanf.New(".")

	defaults := map[string]interface{}{
		"server.port":                  DefaultServerPort,
		"server.log_level":             DefaultServerLogLevel,
		"server.read_timeout":          DefaultServerReadTimeout,
		"server.write_timeout":         DefaultServerWriteTimeout,
		"server.idle_timeout":          DefaultServerIdleTimeout,
		"server.shutdown_timeout":      DefaultServerShutdownTimeout,
		"models.default":               DefaultModelDefault,
		"models.fallback":              DefaultModelFallback,
		"models.max_fallback_attempts": DefaultModelMaxFallbackAttempts,
		"models.registry": []ModelRegistry{
			{Name: DefaultModelDefault, Provider: "ollama", BaseURL: DefaultOllamaBaseURL},
		},
		"chat.model":                       DefaultModelDefault,
		"chat.system_prompt":               DefaultChatSystemPrompt,
		"chat.history_turns":               DefaultChatHistoryTurns,
		"chat.max_message_length":          DefaultChatMaxMessageLength,
		"chat.temperature":                 DefaultChatTemperature,
		"chat.top_p":                       DefaultChatTopP,
		"chat.max_tokens":                  DefaultChatMaxTokens,
		"chat.reply_timeout":               DefaultChatReplyTimeout,
		"chat.apology":                     DefaultChatApology,
		"store.max_conversations":          DefaultStoreMaxConversations,
		"store.eviction_buffer":            DefaultStoreEvictionBuffer,
		"store.lock_timeout":               DefaultStoreLockTimeout,
		"store.lock_retry":                 DefaultStoreLockRetry,
		"store.lock_max_retry":             DefaultStoreLockMaxRetry,
		"sweep.closed_schedule":            DefaultSweepClosedSchedule,
		"sweep.closed_retention":           DefaultSweepClosedRetention,
		"sweep.abandoned_schedule":         DefaultSweepAbandonedSchedule,
		"sweep.abandoned_after":            DefaultSweepAbandonedAfter,
		"notifications.log_capacity":       DefaultNotificationsLogCapacity,
		"notifications.dashboard_url":      DefaultNotificationsDashboardURL,
		"notifications.send_timeout":       DefaultNotificationsSendTimeout,
		"librarians.data_file":             filepath.Join(HomeDir(), "librarian-data.json"),
		"librarians.request_keyword":       DefaultLibrariansRequestKeyword,
		"canned.file":                      "",
		"librarians.seed":                  []string{},
		"adapters.slack.enabled":           false,
		"adapters.slack.port":              DefaultSlackPort,
		"adapters.slack.signing_secret":    "",
		"adapters.slack.bot_token":         "",
		"adapters.telegram.enabled":        false,
		"adapters.telegram.bot_token":      "",
		"adapters.telegram.update_timeout": DefaultTelegramUpdateTimeout,
		"adapters.matrix.enabled":          false,
		"adapters.matrix.homeserver":       "",
		"adapters.matrix.user_id":          "",
		"adapters.matrix.access_token":     "",
		"daemon.shutdown_timeout":          DefaultDaemonShutdownTimeout,
		"daemon.health_check_interval":     DefaultDaemonHealthCheckInterval,
		"daemon.startup_shutdown_timeout":  DefaultDaemonStartupShutdownTimeout,
		"daemon.preflight_timeout":         DefaultDaemonPreflightTimeout,
		"daemon.stale_lock_ttl":            DefaultDaemonStaleLockTTL,
	}
	for key, value := range defaults {
		k.Set(key, value)
	}

	// Config file loading
	configPath := ""
	if cmd != nil {
		if flag := cmd.Flags().Lookup("config"); flag != nil {
			configPath = strings.TrimSpace(flag.Value.String())
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, err
		}
	} else {
		globalPath := filepath.Join(HomeDir(), "config.yaml")
		if err := k.Load(file.Provider(globalPath), yaml.Parser()); err != nil {
			slog.Debug("Global config not found or invalid", "path", globalPath, "error", err)
		}
	}

	// Environment Variables
	k.Load(env.Provider("LIBRADESK_", ".", envKeyResolver(defaults)), nil)

	// CLI Flags
	if cmd != nil {
		k.Load(posflag.Provider(cmd.Flags(), ".", k), nil)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, err
	}

	for i, m := range cfg.Models.Registry {
		if m.Provider == "" {
			cfg.Models.Registry[i].Provider = "ollama"
		}
	}

	injectProviderKeys(&cfg)

	if len(cfg.Librarians.Seed) == 0 {
		cfg.Librarians.Seed = splitList(os.Getenv("LIBRARIAN_PSID"))
	}

	if err := normalizePathFields(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// injectProviderKeys fills registry api keys from the standard provider env vars when unset.
func injectProviderKeys(cfg *Config) {
	envKeys := map[string]string{
		"openai":    "OPENAI_API_KEY",
		"anthropic": "ANTHROPIC_API_KEY",
		"gemini":    "GEMINI_API_KEY",
	}
	for i, m := range cfg.Models.Registry {
		name, ok := envKeys[m.Provider]
		if !ok || m.APIKey != "" {
			continue
		}
		if key := os.Getenv(name); key != "" {
			cfg.Models.Registry[i].APIKey = key
		}
	}
}

// envKeyResolver maps LIBRADESK_SWEEP_ABANDONED_AFTER to sweep.abandoned_after.
// Known keys keep their underscores; anything else nests on every underscore.
func envKeyResolver(known map[string]interface{}) func(string) string {
	flat := make(map[string]string, len(known))
	for key := range known {
		flat[strings.ReplaceAll(key, ".", "_")] = key
	}
	return func(s string) string {
		name := strings.ToLower(strings.TrimPrefix(s, "LIBRADESK_"))
		if key, ok := flat[name]; ok {
			return key
		}
		return strings.ReplaceAll(name, "_", ".")
	}
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizePathFields(cfg *Config) error {
	dataFile, err := ExpandPath(cfg.Librarians.DataFile)
	if err != nil {
		return err
	}
	cfg.Librarians.DataFile = dataFile

	cannedFile, err := ExpandPath(cfg.Canned.File)
	if err != nil {
		return err
	}
	cfg.Canned.File = cannedFile

	return nil
}
