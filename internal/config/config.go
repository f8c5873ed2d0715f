// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gokkerz/roulette/internal/model"
	"github.com/gokkerz/roulette/internal/prompt"
	"github.com/gokkerz/roulette/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete roulette configuration.
type Config struct {
	// Server is the HTTP endpoint configuration
	Server ServerConfig `toml:"server" json:"server" yaml:"server"`

	// Provider selects and configures the language model backend
	Provider ProviderConfig `toml:"provider" json:"provider" yaml:"provider"`

	// Chat configures the exchange loop
	Chat ChatConfig `toml:"chat" json:"chat" yaml:"chat"`

	// Tools configures callable tools
	Tools ToolsConfig `toml:"tools" json:"tools" yaml:"tools"`

	// Client configures the terminal client
	Client ClientConfig `toml:"client" json:"client" yaml:"client"`

	// UI configures rendering
	UI UIConfig `toml:"ui" json:"ui" yaml:"ui"`

	// Logging configures the process logger
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Host is the listen address (default 127.0.0.1)
	Host string `toml:"host" json:"host" yaml:"host"`
	// Port is the listen port (default 8787)
	Port int `toml:"port" json:"port" yaml:"port"`
	// AllowedOrigins lists CORS origins; "*" allows any
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins" yaml:"allowed_origins"`
	// MaxRequestBytes caps the request body size
	MaxRequestBytes int64 `toml:"max_request_bytes" json:"max_request_bytes" yaml:"max_request_bytes"`
	// ShutdownTimeoutSecs bounds graceful shutdown
	ShutdownTimeoutSecs int `toml:"shutdown_timeout_secs" json:"shutdown_timeout_secs" yaml:"shutdown_timeout_secs"`
	// RateLimitPerMinute caps chat requests per client IP; 0 disables
	RateLimitPerMinute int `toml:"rate_limit_per_minute" json:"rate_limit_per_minute" yaml:"rate_limit_per_minute"`
}

// ProviderConfig contains language model provider configuration.
type ProviderConfig struct {
	// Backend is "openai" (native streaming client) or "langchain"
	Backend string `toml:"backend" json:"backend" yaml:"backend"`
	// BaseURL is the OpenAI-compatible API root
	BaseURL string `toml:"base_url" json:"base_url" yaml:"base_url"`
	// APIKey is the provider key; prefer APIKeyEnv
	APIKey string `toml:"api_key" json:"api_key" yaml:"api_key"`
	// APIKeyEnv names the environment variable holding the key
	APIKeyEnv string `toml:"api_key_env" json:"api_key_env" yaml:"api_key_env"`
	// DefaultModel is used when a request leaves selectedModel empty
	DefaultModel string `toml:"default_model" json:"default_model" yaml:"default_model"`
}

// ChatConfig contains exchange configuration.
type ChatConfig struct {
	// TimeoutSecs is the hard wall-clock budget of one exchange
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`
	// MaxSteps caps model invocations per exchange (tool round trips + 1)
	MaxSteps int `toml:"max_steps" json:"max_steps" yaml:"max_steps"`
	// PersonaVersion selects the embedded persona text
	PersonaVersion string `toml:"persona_version" json:"persona_version" yaml:"persona_version"`
	// MaxMessages caps the history length of one request
	MaxMessages int `toml:"max_messages" json:"max_messages" yaml:"max_messages"`
	// MaxMessageLength caps the text of one message, in bytes
	MaxMessageLength int `toml:"max_message_length" json:"max_message_length" yaml:"max_message_length"`
}

// ToolsConfig contains tool configuration.
type ToolsConfig struct {
	// WeatherBaseURL is the Open-Meteo forecast endpoint
	WeatherBaseURL string `toml:"weather_base_url" json:"weather_base_url" yaml:"weather_base_url"`
	// TimeoutSecs bounds a single tool execution
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" yaml:"timeout_secs"`
}

// ClientConfig contains terminal client configuration.
type ClientConfig struct {
	// ServerURL is the chat endpoint the client posts to
	ServerURL string `toml:"server_url" json:"server_url" yaml:"server_url"`
}

// UIConfig contains rendering configuration.
type UIConfig struct {
	// TypingDelayMs is how long the typing indicator hides streamed text
	TypingDelayMs int `toml:"typing_delay_ms" json:"typing_delay_ms" yaml:"typing_delay_ms"`
	// MaxVisibleMessages bounds the render window; older bubbles are discarded
	MaxVisibleMessages int `toml:"max_visible_messages" json:"max_visible_messages" yaml:"max_visible_messages"`
	// WordWrap is the markdown wrap width
	WordWrap int `toml:"word_wrap" json:"word_wrap" yaml:"word_wrap"`
}

// LoggingConfig contains logger configuration.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level" json:"level" yaml:"level"`
	// Format is "text" or "json"
	Format string `toml:"format" json:"format" yaml:"format"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:                "127.0.0.1",
			Port:                8787,
			AllowedOrigins:      []string{"http://localhost:3000"},
			MaxRequestBytes:     1 * 1024 * 1024,
			ShutdownTimeoutSecs: 10,
			RateLimitPerMinute:  0,
		},
		Provider: ProviderConfig{
			Backend:      "openai",
			BaseURL:      "https://api.groq.com/openai/v1",
			APIKeyEnv:    "GROQ_API_KEY",
			DefaultModel: string(model.DefaultModel),
		},
		Chat: ChatConfig{
			TimeoutSecs:      30,
			MaxSteps:         5,
			PersonaVersion:   prompt.DefaultVersion,
			MaxMessages:      100,
			MaxMessageLength: 100000,
		},
		Tools: ToolsConfig{
			WeatherBaseURL: "https://api.open-meteo.com/v1/forecast",
			TimeoutSecs:    10,
		},
		Client: ClientConfig{
			ServerURL: "http://127.0.0.1:8787/api/chat",
		},
		UI: UIConfig{
			TypingDelayMs:      4000,
			MaxVisibleMessages: 50,
			WordWrap:           80,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// =============================================================================
// DERIVED VALUES
// =============================================================================

// Timeout returns the exchange budget.
func (c ChatConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// Timeout returns the per-tool budget.
func (c ToolsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// TypingDelay returns the typing indicator window.
func (c UIConfig) TypingDelay() time.Duration {
	return time.Duration(c.TypingDelayMs) * time.Millisecond
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSecs) * time.Second
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ResolvedAPIKey returns the configured key, falling back to the variable
// named by APIKeyEnv.
func (c ProviderConfig) ResolvedAPIKey() string {
	if c.APIKey != "" {
		return c.APIKey
	}
	if c.APIKeyEnv != "" {
		return strings.TrimSpace(os.Getenv(c.APIKeyEnv))
	}
	return ""
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the roulette configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".roulette"), nil
}

func configPath(name string) (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) { return configPath("config.toml") }

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) { return configPath("config.json") }

// ConfigPathYAML returns the path to the YAML config file.
func ConfigPathYAML() (string, error) { return configPath("config.yaml") }

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the first config file found, falling back
// to defaults. Environment overrides are applied last.
func Load() (*Config, error) {
	candidates := []struct {
		path func() (string, error)
		load func(*Config, string) error
		kind string
	}{
		{ConfigPathTOML, LoadTOML, "TOML"},
		{ConfigPathJSON, LoadJSON, "JSON"},
		{ConfigPathYAML, LoadYAML, "YAML"},
	}

	var loadErr error
	for _, c := range candidates {
		path, err := c.path()
		if err != nil {
			continue
		}
		if _, statErr := os.Stat(path); statErr != nil {
			continue
		}
		cfg := Default()
		if err := c.load(cfg, path); err != nil {
			loadErr = fmt.Errorf("failed to load %s config: %w", c.kind, err)
			continue
		}
		return finish(cfg)
	}

	cfg, err := finish(Default())
	if err != nil {
		return nil, err
	}
	// Defaults plus the load error, if any, for the caller to report
	return cfg, loadErr
}

// LoadFromPath loads configuration from a specific file. The format is
// chosen by extension; anything other than .json, .yaml or .yml is TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = LoadJSON(cfg, path)
	case ".yaml", ".yml":
		err = LoadYAML(cfg, path)
	default:
		err = LoadTOML(cfg, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML loads configuration from a TOML file.
func LoadTOML(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	return nil
}

// LoadJSON loads configuration from a JSON file.
func LoadJSON(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// LoadYAML loads configuration from a YAML file.
func LoadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read YAML file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to decode YAML file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration as TOML with 0600 permissions.
// The API key is never written; keys belong in the environment.
func SaveTOML(cfg *Config, path string) error {
	out := *cfg
	out.Provider.APIKey = ""

	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# roulette configuration file")
	fmt.Fprintln(&buf, "#")
	fmt.Fprintf(&buf, "# The provider key is read from $%s.\n", cfg.Provider.APIKeyEnv)
	fmt.Fprintln(&buf, "")

	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		add("server.port", "must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxRequestBytes < 1024 {
		add("server.max_request_bytes", "must be at least 1024, got %d", c.Server.MaxRequestBytes)
	}
	if c.Server.RateLimitPerMinute < 0 {
		add("server.rate_limit_per_minute", "must not be negative, got %d", c.Server.RateLimitPerMinute)
	}

	// Provider
	switch c.Provider.Backend {
	case "openai", "langchain":
	default:
		add("provider.backend", "invalid backend '%s', must be one of: openai, langchain", c.Provider.Backend)
	}
	if err := validateHTTPURL(c.Provider.BaseURL); err != nil {
		add("provider.base_url", "%v", err)
	}
	if !model.Supported.IsSupported(model.ID(c.Provider.DefaultModel)) {
		add("provider.default_model", "unsupported model '%s', must be one of: %v", c.Provider.DefaultModel, model.Supported.IDs())
	}

	// Chat
	if c.Chat.TimeoutSecs < 1 || c.Chat.TimeoutSecs > 600 {
		add("chat.timeout_secs", "must be between 1 and 600, got %d", c.Chat.TimeoutSecs)
	}
	if c.Chat.MaxSteps < 1 || c.Chat.MaxSteps > 20 {
		add("chat.max_steps", "must be between 1 and 20, got %d", c.Chat.MaxSteps)
	}
	if _, err := prompt.Persona(c.Chat.PersonaVersion); err != nil {
		add("chat.persona_version", "%v (known: %v)", err, prompt.Versions())
	}
	if c.Chat.MaxMessages < 1 {
		add("chat.max_messages", "must be positive, got %d", c.Chat.MaxMessages)
	}
	if c.Chat.MaxMessageLength < 1 {
		add("chat.max_message_length", "must be positive, got %d", c.Chat.MaxMessageLength)
	}

	// Tools
	if err := validateHTTPURL(c.Tools.WeatherBaseURL); err != nil {
		add("tools.weather_base_url", "%v", err)
	}
	if c.Tools.TimeoutSecs < 1 {
		add("tools.timeout_secs", "must be positive, got %d", c.Tools.TimeoutSecs)
	}

	// Client
	if err := validateHTTPURL(c.Client.ServerURL); err != nil {
		add("client.server_url", "%v", err)
	}

	// UI
	if c.UI.TypingDelayMs < 0 || c.UI.TypingDelayMs > 60000 {
		add("ui.typing_delay_ms", "must be between 0 and 60000, got %d", c.UI.TypingDelayMs)
	}
	if c.UI.MaxVisibleMessages < 1 {
		add("ui.max_visible_messages", "must be positive, got %d", c.UI.MaxVisibleMessages)
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("logging.level", "invalid level '%s', must be one of: debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		add("logging.format", "invalid format '%s', must be one of: text, json", c.Logging.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateHTTPURL(raw string) error {
	if raw == "" {
		return errors.New("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}

// SetDefaults fills zero values left by a partial config file.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Server.Host == "" {
		c.Server.Host = d.Server.Host
	}
	if c.Server.Port == 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.MaxRequestBytes == 0 {
		c.Server.MaxRequestBytes = d.Server.MaxRequestBytes
	}
	if c.Server.ShutdownTimeoutSecs == 0 {
		c.Server.ShutdownTimeoutSecs = d.Server.ShutdownTimeoutSecs
	}

	if c.Provider.Backend == "" {
		c.Provider.Backend = d.Provider.Backend
	}
	if c.Provider.BaseURL == "" {
		c.Provider.BaseURL = d.Provider.BaseURL
	}
	if c.Provider.DefaultModel == "" {
		c.Provider.DefaultModel = d.Provider.DefaultModel
	}

	if c.Chat.TimeoutSecs == 0 {
		c.Chat.TimeoutSecs = d.Chat.TimeoutSecs
	}
	if c.Chat.MaxSteps == 0 {
		c.Chat.MaxSteps = d.Chat.MaxSteps
	}
	if c.Chat.PersonaVersion == "" {
		c.Chat.PersonaVersion = d.Chat.PersonaVersion
	}
	if c.Chat.MaxMessages == 0 {
		c.Chat.MaxMessages = d.Chat.MaxMessages
	}
	if c.Chat.MaxMessageLength == 0 {
		c.Chat.MaxMessageLength = d.Chat.MaxMessageLength
	}

	if c.Tools.WeatherBaseURL == "" {
		c.Tools.WeatherBaseURL = d.Tools.WeatherBaseURL
	}
	if c.Tools.TimeoutSecs == 0 {
		c.Tools.TimeoutSecs = d.Tools.TimeoutSecs
	}

	if c.Client.ServerURL == "" {
		c.Client.ServerURL = d.Client.ServerURL
	}

	if c.UI.MaxVisibleMessages == 0 {
		c.UI.MaxVisibleMessages = d.UI.MaxVisibleMessages
	}
	if c.UI.WordWrap == 0 {
		c.UI.WordWrap = d.UI.WordWrap
	}

	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - ROULETTE_HOST: overrides server.host
//   - ROULETTE_PORT: overrides server.port
//   - ROULETTE_BACKEND: overrides provider.backend
//   - ROULETTE_BASE_URL: overrides provider.base_url
//   - ROULETTE_API_KEY: overrides provider.api_key
//   - ROULETTE_MODEL: overrides provider.default_model
//   - ROULETTE_SERVER_URL: overrides client.server_url
//   - ROULETTE_TYPING_DELAY_MS: overrides ui.typing_delay_ms
//   - ROULETTE_LOG_LEVEL: overrides logging.level
//   - ROULETTE_LOG_FORMAT: overrides logging.format
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("ROULETTE_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("ROULETTE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("ROULETTE_BACKEND"); v != "" {
		c.Provider.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("ROULETTE_BASE_URL"); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv("ROULETTE_API_KEY"); v != "" {
		c.Provider.APIKey = v
	}
	if v := os.Getenv("ROULETTE_MODEL"); v != "" {
		c.Provider.DefaultModel = v
	}
	if v := os.Getenv("ROULETTE_SERVER_URL"); v != "" {
		c.Client.ServerURL = v
	}
	if v := os.Getenv("ROULETTE_TYPING_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			c.UI.TypingDelayMs = ms
		}
	}
	if v := os.Getenv("ROULETTE_LOG_LEVEL"); v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("ROULETTE_LOG_FORMAT"); v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
}
