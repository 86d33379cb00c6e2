// Package config loads the process-wide immutable settings snapshot.
// Values come from the environment (.env supported via godotenv) plus an
// optional YAML file for keyword, subreddit and template lists.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"redscout/internal/core/domain"
)

// ConfigError reports required settings that are absent. It is the only
// fatal error class; everything downstream degrades to logged outcomes.
type ConfigError struct {
	Missing []string
}

func (e *ConfigError) Error() string {
	return "missing required settings: " + strings.Join(e.Missing, ", ")
}

// Credentials holds Reddit API login material.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	UserAgent    string
}

// RateLimit bounds one action kind.
type RateLimit struct {
	MaxPerHour  int
	MinInterval time.Duration
	DailyLimit  int
}

// TelegramSettings configure the Telegram approval channel.
type TelegramSettings struct {
	Token  string
	ChatID int64
}

// LLMSettings configure the text-generation collaborator.
type LLMSettings struct {
	Provider string // "openai" or "gemini"
	APIKey   string
	BaseURL  string
	Model    string
}

// HumanizedSettings configure the scheduled multi-account runner.
type HumanizedSettings struct {
	Accounts   []string
	WindowFrom int // hour of day, inclusive
	WindowTo   int // hour of day, exclusive
	MinPause   time.Duration
	MaxPause   time.Duration
}

// Settings is the immutable configuration snapshot loaded once at start.
type Settings struct {
	Credentials Credentials

	Keywords   []string
	Subreddits []string
	Templates  map[string]string
	Denylist   []string

	MockMode                  bool
	EnablePosting             bool
	UseLLM                    bool
	ReviewWhenPostingDisabled bool

	SourceKind   string // "api", "browser" or "mock"
	ApproverKind string // "cli" or "telegram"

	RateLimits         map[domain.Action]RateLimit
	MaxApprovalsPerRun int
	ScanLimit          int
	PostDelay          time.Duration
	FetchTimeout       time.Duration

	LLM       LLMSettings
	Telegram  TelegramSettings
	Humanized HumanizedSettings

	DatabaseURL string
	RunLogPath  string
	MetricsPath string
	StatePath   string
}

type fileConfig struct {
	Keywords   []string                 `yaml:"keywords"`
	Subreddits []string                 `yaml:"subreddits"`
	Templates  map[string]string        `yaml:"templates"`
	Denylist   []string                 `yaml:"denylist"`
	RateLimits map[string]fileRateLimit `yaml:"rate_limits"`
	Humanized  *fileHumanized           `yaml:"humanized"`
}

type fileRateLimit struct {
	MaxPerHour         int `yaml:"max_per_hour"`
	MinIntervalSeconds int `yaml:"min_interval_seconds"`
	DailyLimit         int `yaml:"daily_limit"`
}

type fileHumanized struct {
	Accounts        []string `yaml:"accounts"`
	WindowFrom      int      `yaml:"window_from"`
	WindowTo        int      `yaml:"window_to"`
	MinPauseSeconds int      `yaml:"min_pause_seconds"`
	MaxPauseSeconds int      `yaml:"max_pause_seconds"`
}

var defaultKeywords = []string{
	"microdosing", "microdose", "psilocybin", "shrooms",
	"lsd", "psychedelic", "set and setting", "harm reduction",
}

var defaultSubreddits = []string{"test", "microdosing", "psilocybin"}

var defaultRateLimits = map[domain.Action]RateLimit{
	domain.ActionComment: {MaxPerHour: 12, MinInterval: 5 * time.Minute, DailyLimit: 20},
	domain.ActionPost:    {MaxPerHour: 3, MinInterval: 20 * time.Minute, DailyLimit: 4},
}

// Load builds the settings snapshot. It returns *ConfigError when the
// selected source requires credentials that are absent and mock mode is
// not enabled.
func Load() (*Settings, error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	s := &Settings{
		Credentials: Credentials{
			ClientID:     os.Getenv("REDDIT_CLIENT_ID"),
			ClientSecret: os.Getenv("REDDIT_CLIENT_SECRET"),
			Username:     os.Getenv("REDDIT_USERNAME"),
			Password:     os.Getenv("REDDIT_PASSWORD"),
			UserAgent:    envOr("REDDIT_USER_AGENT", "redscout-research/1.0 (+contact)"),
		},
		Keywords:                  defaultKeywords,
		Subreddits:                defaultSubreddits,
		Templates:                 map[string]string{},
		MockMode:                  boolEnv("MOCK_MODE"),
		EnablePosting:             boolEnv("ENABLE_POSTING"),
		UseLLM:                    boolEnv("USE_LLM"),
		ReviewWhenPostingDisabled: boolEnv("REVIEW_WHEN_POSTING_DISABLED"),
		SourceKind:                envOr("SOURCE", "api"),
		ApproverKind:              envOr("APPROVER", "cli"),
		RateLimits:                copyRateLimits(defaultRateLimits),
		MaxApprovalsPerRun:        intEnv("MAX_APPROVALS_PER_RUN", 5),
		ScanLimit:                 intEnv("SCAN_LIMIT", 50),
		PostDelay:                 time.Duration(intEnv("POST_DELAY_SECONDS", 60)) * time.Second,
		FetchTimeout:              time.Duration(intEnv("FETCH_TIMEOUT_SECONDS", 10)) * time.Second,
		LLM: LLMSettings{
			Provider: envOr("LLM_PROVIDER", "openai"),
			Model:    envOr("LLM_MODEL", "gpt-4o-mini"),
		},
		DatabaseURL: os.Getenv("DATABASE_URL"),
		RunLogPath:  envOr("RUN_LOG_PATH", "data/bot_logs.csv"),
		MetricsPath: envOr("METRICS_PATH", "data/bot_metrics.csv"),
		StatePath:   envOr("STATE_PATH", "data/idempotency.json"),
		Humanized: HumanizedSettings{
			WindowFrom: 9,
			WindowTo:   23,
			MinPause:   2 * time.Minute,
			MaxPause:   10 * time.Minute,
		},
	}

	switch s.LLM.Provider {
	case "gemini":
		s.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
	default:
		s.LLM.APIKey = os.Getenv("OPENROUTER_API_KEY")
		if s.LLM.APIKey == "" {
			s.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		s.LLM.BaseURL = os.Getenv("OPENROUTER_BASE_URL")
	}

	if tok := os.Getenv("TELEGRAM_BOT_TOKEN"); tok != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil && os.Getenv("TELEGRAM_CHAT_ID") != "" {
			return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
		}
		s.Telegram = TelegramSettings{Token: tok, ChatID: chatID}
	}

	if path := envOr("REDSCOUT_CONFIG", "config/redscout.yaml"); path != "" {
		if err := mergeFile(s, path); err != nil {
			return nil, err
		}
	}

	if err := validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func mergeFile(s *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if len(fc.Keywords) > 0 {
		s.Keywords = fc.Keywords
	}
	if len(fc.Subreddits) > 0 {
		s.Subreddits = fc.Subreddits
	}
	if len(fc.Templates) > 0 {
		s.Templates = fc.Templates
	}
	if len(fc.Denylist) > 0 {
		s.Denylist = fc.Denylist
	}
	for name, rl := range fc.RateLimits {
		s.RateLimits[domain.Action(name)] = RateLimit{
			MaxPerHour:  rl.MaxPerHour,
			MinInterval: time.Duration(rl.MinIntervalSeconds) * time.Second,
			DailyLimit:  rl.DailyLimit,
		}
	}
	if fc.Humanized != nil {
		s.Humanized = HumanizedSettings{
			Accounts:   fc.Humanized.Accounts,
			WindowFrom: fc.Humanized.WindowFrom,
			WindowTo:   fc.Humanized.WindowTo,
			MinPause:   time.Duration(fc.Humanized.MinPauseSeconds) * time.Second,
			MaxPause:   time.Duration(fc.Humanized.MaxPauseSeconds) * time.Second,
		}
	}
	return nil
}

func validate(s *Settings) error {
	if s.MockMode || s.SourceKind == "mock" {
		return nil
	}

	var missing []string
	switch s.SourceKind {
	case "api":
		if s.Credentials.ClientID == "" {
			missing = append(missing, "REDDIT_CLIENT_ID")
		}
		if s.Credentials.ClientSecret == "" {
			missing = append(missing, "REDDIT_CLIENT_SECRET")
		}
		fallthrough
	case "browser":
		if s.Credentials.Username == "" {
			missing = append(missing, "REDDIT_USERNAME")
		}
		if s.Credentials.Password == "" {
			missing = append(missing, "REDDIT_PASSWORD")
		}
	default:
		return fmt.Errorf("unknown source kind %q", s.SourceKind)
	}

	if len(missing) > 0 {
		return &ConfigError{Missing: missing}
	}
	return nil
}

// ReadOnly returns a copy with every state-changing capability switched
// off, for scheduled runners. Dry-run review is also disabled so nothing
// blocks on a human who is not there.
func (s *Settings) ReadOnly() *Settings {
	clone := *s
	clone.EnablePosting = false
	clone.UseLLM = false
	clone.ReviewWhenPostingDisabled = false
	return &clone
}

func copyRateLimits(src map[domain.Action]RateLimit) map[domain.Action]RateLimit {
	dst := make(map[domain.Action]RateLimit, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolEnv(key string) bool {
	v := os.Getenv(key)
	return v == "1" || strings.EqualFold(v, "true")
}

func intEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
