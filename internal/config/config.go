package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/aifeed/aifeed/internal/ai"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig              `toml:"server"`
	Database  DatabaseConfig            `toml:"database"`
	Generator GeneratorConfig           `toml:"generator"`
	Providers map[string]ProviderConfig `toml:"providers"`
	News      NewsConfig                `toml:"news"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int  `toml:"port"`
	AutoOpenBrowser bool `toml:"auto_open_browser"`
}

// DatabaseConfig selects and configures the post store.
type DatabaseConfig struct {
	Driver   string `toml:"driver"`
	Path     string `toml:"path"`
	DSN      string `toml:"dsn"`
	MaxConns int    `toml:"max_conns"`
}

// GeneratorConfig holds the post generation policy.
type GeneratorConfig struct {
	Schedule             string `toml:"schedule"`
	Timezone             string `toml:"timezone"`
	MaxAttempts          int    `toml:"max_attempts"`
	BackoffMS            int    `toml:"backoff_ms"`
	MinWords             int    `toml:"min_words"`
	MinChars             int    `toml:"min_chars"`
	Author               string `toml:"author"`
	Source               string `toml:"source"`
	DuplicateWindowHours int    `toml:"duplicate_window_hours"`
	DuplicatePrefixLen   int    `toml:"duplicate_prefix_len"`

	loc *time.Location
}

// ProviderConfig holds one [providers.<name>] table.
type ProviderConfig struct {
	Weight     float64 `toml:"weight"`
	Model      string  `toml:"model"`
	UsageLimit string  `toml:"usage_limit"`
	APIKey     string  `toml:"api_key"`
}

// NewsConfig holds the headline feeds used as prompt context.
type NewsConfig struct {
	Feeds          []string `toml:"feeds"`
	MaxHeadlines   int      `toml:"max_headlines"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// providerDefaults are the registry entries in selection order.
var providerDefaults = []struct {
	name   string
	envKey string
	cfg    ProviderConfig
}{
	{ai.Gemini, "GEMINI_API_KEY", ProviderConfig{Weight: 40, Model: "gemini-1.5-flash", UsageLimit: "15 RPM, 1500 req/día"}},
	{ai.Groq, "GROQ_API_KEY", ProviderConfig{Weight: 25, Model: "llama-3.1-8b-instant", UsageLimit: "30 RPM, 14400 req/día"}},
	{ai.Cohere, "COHERE_API_KEY", ProviderConfig{Weight: 20, Model: "command-r", UsageLimit: "1000 req/mes"}},
	{ai.HuggingFace, "HUGGINGFACE_API_KEY", ProviderConfig{Weight: 15, Model: "mistralai/Mistral-7B-Instruct-v0.3", UsageLimit: "cuota gratuita variable"}},
}

const defaultConfigContent = `[server]
port = 8080
auto_open_browser = false

[database]
driver = "sqlite"                 # "sqlite" or "postgres"
path = "./data/aifeed.db"         # sqlite file
dsn = ""                          # postgres DSN (or set DATABASE_URL env var)
max_conns = 4

[generator]
schedule = "0 */6 * * *"          # cron expression, empty disables the scheduler
timezone = "America/Argentina/Buenos_Aires"
max_attempts = 3
backoff_ms = 1000
min_words = 80
min_chars = 100
author = "AIFeed Bot"
source = "AIFeed Bot"
duplicate_window_hours = 24
duplicate_prefix_len = 20

# API keys are read from GEMINI_API_KEY, GROQ_API_KEY, COHERE_API_KEY and
# HUGGINGFACE_API_KEY (a .env file next to this one is loaded too).
[providers.gemini]
weight = 40.0
model = "gemini-1.5-flash"

[providers.groq]
weight = 25.0
model = "llama-3.1-8b-instant"

[providers.cohere]
weight = 20.0
model = "command-r"

[providers.huggingface]
weight = 15.0
model = "mistralai/Mistral-7B-Instruct-v0.3"

[news]
feeds = []                        # RSS/Atom URLs offered to the models as context
max_headlines = 5
timeout_seconds = 10
`

// Load reads and parses the TOML config from the given path. If the file does
// not exist, it creates a default config file at that path. A .env file in
// the working directory or next to the config is loaded first; environment
// variables override values from the file with highest priority.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return nil, fmt.Errorf("creating default config: %w", err)
		}
		slog.Info("created default config file", "path", path)
	}

	loadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env"))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// Validate explicitly-set values before applying defaults, so that
	// explicitly writing "port = 0" is an error rather than silently
	// being replaced with the default.
	if err := validateExplicit(&cfg, md); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	applyDefaults(&cfg, md)
	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// createDefault writes the default config content to the given path,
// creating any parent directories as needed.
func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigContent), 0o644); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}

// loadDotEnv loads the given .env files when they exist. Variables already
// present in the environment are left untouched.
func loadDotEnv(paths ...string) {
	seen := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil || seen[abs] {
			continue
		}
		seen[abs] = true
		if _, err := os.Stat(abs); err != nil {
			continue
		}
		if err := godotenv.Load(abs); err != nil {
			slog.Warn("failed to load .env file", "path", abs, "error", err)
			continue
		}
		slog.Debug("loaded .env file", "path", abs)
	}
}

// validateExplicit checks values that were explicitly set in the TOML file.
// This catches cases like "port = 0" which would otherwise be silently
// replaced by the default value.
func validateExplicit(cfg *Config, md toml.MetaData) error {
	if md.IsDefined("server", "port") {
		if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
			return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
		}
	}
	if md.IsDefined("generator", "max_attempts") && cfg.Generator.MaxAttempts < 1 {
		return fmt.Errorf("invalid generator.max_attempts %d: must be >= 1", cfg.Generator.MaxAttempts)
	}
	if md.IsDefined("generator", "backoff_ms") && cfg.Generator.BackoffMS < 1 {
		return fmt.Errorf("invalid generator.backoff_ms %d: must be >= 1", cfg.Generator.BackoffMS)
	}
	if md.IsDefined("generator", "min_words") && cfg.Generator.MinWords < 1 {
		return fmt.Errorf("invalid generator.min_words %d: must be >= 1", cfg.Generator.MinWords)
	}
	if md.IsDefined("generator", "min_chars") && cfg.Generator.MinChars < 1 {
		return fmt.Errorf("invalid generator.min_chars %d: must be >= 1", cfg.Generator.MinChars)
	}
	if md.IsDefined("generator", "duplicate_window_hours") && cfg.Generator.DuplicateWindowHours < 1 {
		return fmt.Errorf("invalid generator.duplicate_window_hours %d: must be >= 1", cfg.Generator.DuplicateWindowHours)
	}
	if md.IsDefined("generator", "duplicate_prefix_len") && cfg.Generator.DuplicatePrefixLen < 1 {
		return fmt.Errorf("invalid generator.duplicate_prefix_len %d: must be >= 1", cfg.Generator.DuplicatePrefixLen)
	}
	if md.IsDefined("news", "max_headlines") && cfg.News.MaxHeadlines < 1 {
		return fmt.Errorf("invalid news.max_headlines %d: must be >= 1", cfg.News.MaxHeadlines)
	}
	if md.IsDefined("news", "timeout_seconds") && cfg.News.TimeoutSeconds < 1 {
		return fmt.Errorf("invalid news.timeout_seconds %d: must be >= 1", cfg.News.TimeoutSeconds)
	}
	for name := range cfg.Providers {
		if !knownProvider(name) {
			return fmt.Errorf("unknown provider %q in [providers]", name)
		}
	}
	return nil
}

// applyDefaults sets default values for any zero-valued fields. Provider
// weights are only defaulted when the key is absent, so "weight = 0"
// disables a provider.
func applyDefaults(cfg *Config, md toml.MetaData) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/aifeed.db"
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 4
	}

	g := &cfg.Generator
	if !md.IsDefined("generator", "schedule") {
		g.Schedule = "0 */6 * * *"
	}
	if g.Timezone == "" {
		g.Timezone = "America/Argentina/Buenos_Aires"
	}
	if g.MaxAttempts == 0 {
		g.MaxAttempts = 3
	}
	if g.BackoffMS == 0 {
		g.BackoffMS = 1000
	}
	if g.MinWords == 0 {
		g.MinWords = ai.DefaultRules.MinWords
	}
	if g.MinChars == 0 {
		g.MinChars = ai.DefaultRules.MinChars
	}
	if g.Author == "" {
		g.Author = "AIFeed Bot"
	}
	if g.Source == "" {
		g.Source = "AIFeed Bot"
	}
	if g.DuplicateWindowHours == 0 {
		g.DuplicateWindowHours = 24
	}
	if g.DuplicatePrefixLen == 0 {
		g.DuplicatePrefixLen = 20
	}

	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	for _, d := range providerDefaults {
		p := cfg.Providers[d.name]
		if !md.IsDefined("providers", d.name, "weight") {
			p.Weight = d.cfg.Weight
		}
		if p.Model == "" {
			p.Model = d.cfg.Model
		}
		if p.UsageLimit == "" {
			p.UsageLimit = d.cfg.UsageLimit
		}
		cfg.Providers[d.name] = p
	}

	if cfg.News.MaxHeadlines == 0 {
		cfg.News.MaxHeadlines = 5
	}
	if cfg.News.TimeoutSeconds == 0 {
		cfg.News.TimeoutSeconds = 10
	}
}

// applyEnvOverrides applies environment variable overrides. Environment
// variables take highest priority over config file values.
func applyEnvOverrides(cfg *Config) {
	for _, d := range providerDefaults {
		if v := os.Getenv(d.envKey); v != "" {
			p := cfg.Providers[d.name]
			p.APIKey = v
			cfg.Providers[d.name] = p
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
}

// validate checks that configuration values are within acceptable ranges.
func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d: must be between 1 and 65535", cfg.Server.Port)
	}

	switch cfg.Database.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Database.DSN == "" {
			return errors.New("database.dsn is required for the postgres driver: set it in the config file or via DATABASE_URL")
		}
	default:
		return fmt.Errorf("invalid database.driver %q: must be \"sqlite\" or \"postgres\"", cfg.Database.Driver)
	}

	loc, err := time.LoadLocation(cfg.Generator.Timezone)
	if err != nil {
		return fmt.Errorf("invalid generator.timezone %q: %w", cfg.Generator.Timezone, err)
	}
	cfg.Generator.loc = loc

	if cfg.Generator.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Generator.Schedule); err != nil {
			return fmt.Errorf("invalid generator.schedule %q: %w", cfg.Generator.Schedule, err)
		}
	}

	enabled := 0
	for _, d := range providerDefaults {
		p := cfg.Providers[d.name]
		if p.Weight < 0 {
			return fmt.Errorf("invalid providers.%s.weight %v: must be >= 0", d.name, p.Weight)
		}
		if p.APIKey != "" && p.Weight > 0 {
			enabled++
		}
	}
	if enabled == 0 {
		slog.Warn("no AI provider API key configured: set GEMINI_API_KEY, GROQ_API_KEY, COHERE_API_KEY or HUGGINGFACE_API_KEY")
	}

	return nil
}

func knownProvider(name string) bool {
	for _, d := range providerDefaults {
		if d.name == name {
			return true
		}
	}
	return false
}

// Location returns the generator time zone. It is set by Load.
func (g GeneratorConfig) Location() *time.Location {
	if g.loc == nil {
		return time.UTC
	}
	return g.loc
}

// Backoff returns the base retry delay.
func (g GeneratorConfig) Backoff() time.Duration {
	return time.Duration(g.BackoffMS) * time.Millisecond
}

// DuplicateWindow returns the look-back window of the duplicate guard.
func (g GeneratorConfig) DuplicateWindow() time.Duration {
	return time.Duration(g.DuplicateWindowHours) * time.Hour
}

// Rules returns the draft quality thresholds.
func (g GeneratorConfig) Rules() ai.Rules {
	return ai.Rules{MinChars: g.MinChars, MinWords: g.MinWords}
}

// Timeout returns the per-request timeout for headline feeds.
func (n NewsConfig) Timeout() time.Duration {
	return time.Duration(n.TimeoutSeconds) * time.Second
}

// ProviderConfigs returns the provider settings in registry order.
func (c *Config) ProviderConfigs() []ai.ProviderConfig {
	out := make([]ai.ProviderConfig, 0, len(providerDefaults))
	for _, d := range providerDefaults {
		p := c.Providers[d.name]
		out = append(out, ai.ProviderConfig{
			Name:       d.name,
			APIKey:     p.APIKey,
			Model:      p.Model,
			Weight:     p.Weight,
			UsageLimit: p.UsageLimit,
		})
	}
	return out
}
