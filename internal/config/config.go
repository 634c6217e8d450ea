package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Task     TaskConfig     `mapstructure:"task"     validate:"required"`
	Pacing   PacingConfig   `mapstructure:"pacing"`
	Reddit   RedditConfig   `mapstructure:"reddit"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"             validate:"required,gt=0,lt=65536"`
	LogLevel        string        `mapstructure:"log_level"        validate:"required,oneof=debug info warn error"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0"`
}

// DatabaseConfig selects the persistence backend. The memory driver keeps
// everything in process and needs no URL.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver" validate:"required,oneof=postgres memory"`
	URL    string `mapstructure:"url"    validate:"required_if=Driver postgres"`
}

// TaskConfig sizes the background job runner and the stale-task reaper.
// A zero MaxRunning disables the reaper.
type TaskConfig struct {
	WorkerCount    int           `mapstructure:"worker_count"    validate:"required,gt=0"`
	QueueSize      int           `mapstructure:"queue_size"      validate:"required,gt=0"`
	MaxRunning     time.Duration `mapstructure:"max_running"     validate:"gte=0"`
	ReaperInterval time.Duration `mapstructure:"reaper_interval" validate:"gte=0"`
}

// PacingConfig throttles external actions. MinInterval is slept before every
// attempt; RequestsPerMinute, when set, caps the rate across all runs.
type PacingConfig struct {
	MinInterval       time.Duration `mapstructure:"min_interval"        validate:"gte=0"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute" validate:"gte=0"`
}

// RedditConfig contains the script-app credentials used for the password grant.
type RedditConfig struct {
	ClientID       string   `mapstructure:"client_id"`
	ClientSecret   string   `mapstructure:"client_secret"`
	Username       string   `mapstructure:"username"`
	Password       string   `mapstructure:"password"`
	UserAgent      string   `mapstructure:"user_agent"      validate:"required"`
	BaseURL        string   `mapstructure:"base_url"        validate:"required,url"`
	TokenURL       string   `mapstructure:"token_url"       validate:"required,url"`
	DefaultTargets []string `mapstructure:"default_targets"`
	TopLimit       int      `mapstructure:"top_limit"       validate:"gt=0,lte=100"`
	// CommentLimit caps the comments fetched per scraped thread; 0 skips them.
	CommentLimit int `mapstructure:"comment_limit" validate:"gte=0,lte=500"`
}

// Enabled reports whether enough credentials are configured to talk to Reddit.
func (c RedditConfig) Enabled() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.Username != "" && c.Password != ""
}

// LLMConfig contains all LLM integration related settings.
type LLMConfig struct {
	GeminiAPIKey       string        `mapstructure:"gemini_api_key"`
	ModelName          string        `mapstructure:"model_name"           validate:"required"`
	PromptTemplatePath string        `mapstructure:"prompt_template_path"`
	MaxRetries         int           `mapstructure:"max_retries"          validate:"gte=0,lte=10"`
	BaseDelaySeconds   int           `mapstructure:"base_delay_seconds"   validate:"gte=0"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"      validate:"gte=0"`
}

// Enabled reports whether a content generator can be built.
func (c LLMConfig) Enabled() bool {
	return c.GeminiAPIKey != ""
}
