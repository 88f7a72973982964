// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/testforge/api/schemas"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	AI() AIConfig
	Source() SourceConfig
	Coverage() schemas.ScenarioCoverageConfig
	Generation() GenerationConfig
	Database() DatabaseConfig

	SetCoverage(schemas.ScenarioCoverageConfig)
	SetSource(SourceConfig)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg     LoggerConfig                   `mapstructure:"logger" yaml:"logger"`
	AICfg         AIConfig                       `mapstructure:"ai" yaml:"ai"`
	SourceCfg     SourceConfig                   `mapstructure:"source" yaml:"source"`
	CoverageCfg   schemas.ScenarioCoverageConfig `mapstructure:"coverage" yaml:"coverage"`
	GenerationCfg GenerationConfig               `mapstructure:"generation" yaml:"generation"`
	DatabaseCfg   DatabaseConfig                 `mapstructure:"database" yaml:"database"`
}

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig                     { return c.LoggerCfg }
func (c *Config) AI() AIConfig                             { return c.AICfg }
func (c *Config) Source() SourceConfig                     { return c.SourceCfg }
func (c *Config) Coverage() schemas.ScenarioCoverageConfig { return c.CoverageCfg }
func (c *Config) Generation() GenerationConfig             { return c.GenerationCfg }
func (c *Config) Database() DatabaseConfig                 { return c.DatabaseCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetCoverage(cov schemas.ScenarioCoverageConfig) { c.CoverageCfg = cov }
func (c *Config) SetSource(src SourceConfig)                     { c.SourceCfg = src }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
}

// LLMProvider defines the supported completion providers.
type LLMProvider string

const (
	ProviderGemini    LLMProvider = "gemini"
	ProviderAnthropic LLMProvider = "anthropic"
)

// AIConfig configures the completion endpoint.
type AIConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	// MaxElapsed bounds the total time spent retrying a single completion.
	MaxElapsed time.Duration `mapstructure:"max_elapsed" yaml:"max_elapsed"`
}

// SourceProvider names where module sources come from.
type SourceProvider string

const (
	SourceLocal     SourceProvider = "local"
	SourceGit       SourceProvider = "git"
	SourceGitHub    SourceProvider = "github"
	SourceGitLab    SourceProvider = "gitlab"
	SourceBitbucket SourceProvider = "bitbucket"
	SourceCustom    SourceProvider = "custom"
)

// SourceConfig holds defaults for fetching module sources.
type SourceConfig struct {
	Provider SourceProvider `mapstructure:"provider" yaml:"provider"`
	URL      string         `mapstructure:"url" yaml:"url"`
	// APIBase overrides the hosting API root derived from URL. Required for
	// the custom provider.
	APIBase           string        `mapstructure:"api_base" yaml:"api_base"`
	Branch            string        `mapstructure:"branch" yaml:"branch"`
	Token             string        `mapstructure:"token" yaml:"-"`
	Username          string        `mapstructure:"username" yaml:"username"`
	Password          string        `mapstructure:"password" yaml:"-"`
	ModulePathPattern string        `mapstructure:"module_path_pattern" yaml:"module_path_pattern"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	CloneTimeout      time.Duration `mapstructure:"clone_timeout" yaml:"clone_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	// ProxyURL routes hosting API calls through an HTTP proxy.
	ProxyURL           string `mapstructure:"proxy_url" yaml:"proxy_url"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// GenerationConfig tunes the generation pipeline.
type GenerationConfig struct {
	Concurrency int    `mapstructure:"concurrency" yaml:"concurrency"`
	DebugDir    string `mapstructure:"debug_dir" yaml:"debug_dir"`
}

// DatabaseConfig holds the database connection details.
type DatabaseConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	URL     string `mapstructure:"url" yaml:"-"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "testforge")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	// -- AI --
	v.SetDefault("ai.provider", string(ProviderGemini))
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.api_timeout", "2m")
	v.SetDefault("ai.max_elapsed", "3m")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.temperature", 0.3)

	// -- Source --
	v.SetDefault("source.provider", string(SourceLocal))
	v.SetDefault("source.branch", "main")
	v.SetDefault("source.module_path_pattern", "addons/{module_name}")
	v.SetDefault("source.request_timeout", "30s")
	v.SetDefault("source.clone_timeout", "2m")
	v.SetDefault("source.requests_per_second", 5.0)

	// -- Coverage --
	v.SetDefault("coverage.include_crud", true)
	v.SetDefault("coverage.include_validation", true)
	v.SetDefault("coverage.include_workflow", true)
	v.SetDefault("coverage.include_security", true)
	v.SetDefault("coverage.include_negative", true)
	v.SetDefault("coverage.max_scenarios", 25)

	// -- Generation --
	v.SetDefault("generation.concurrency", 1)

	// -- Database --
	v.SetDefault("database.enabled", false)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Bind environment variables for sensitive data
	_ = v.BindEnv("ai.api_key", "TESTFORGE_AI_API_KEY")
	_ = v.BindEnv("source.token", "TESTFORGE_SOURCE_TOKEN")
	_ = v.BindEnv("source.password", "TESTFORGE_SOURCE_PASSWORD")
	_ = v.BindEnv("database.url", "TESTFORGE_DATABASE_URL")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.AICfg.Validate(); err != nil {
		return fmt.Errorf("ai configuration invalid: %w", err)
	}
	if err := c.SourceCfg.Validate(); err != nil {
		return fmt.Errorf("source configuration invalid: %w", err)
	}
	if c.CoverageCfg.MaxScenarios <= 0 {
		return fmt.Errorf("coverage.max_scenarios must be a positive integer")
	}
	if c.GenerationCfg.Concurrency <= 0 {
		return fmt.Errorf("generation.concurrency must be a positive integer")
	}
	if c.DatabaseCfg.Enabled && c.DatabaseCfg.URL == "" {
		return fmt.Errorf("database.url is required when database.enabled is true")
	}
	return nil
}

// Validate checks the AI settings. The API key is checked by the client factory,
// since analysis-only commands never need one.
func (a *AIConfig) Validate() error {
	switch a.Provider {
	case ProviderGemini, ProviderAnthropic:
	default:
		return fmt.Errorf("unsupported provider %q (supported: %s, %s)", a.Provider, ProviderGemini, ProviderAnthropic)
	}
	if a.Model == "" {
		return fmt.Errorf("model is required")
	}
	if a.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be a positive duration")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0.0 and 2.0")
	}
	if a.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be a positive integer")
	}
	return nil
}

// Validate checks the source settings.
func (s *SourceConfig) Validate() error {
	switch s.Provider {
	case SourceLocal, SourceGit, SourceGitHub, SourceGitLab, SourceBitbucket, SourceCustom:
	default:
		return fmt.Errorf("unsupported provider %q", s.Provider)
	}
	if s.ModulePathPattern != "" && !strings.Contains(s.ModulePathPattern, "{module_name}") {
		return fmt.Errorf("module_path_pattern must contain {module_name}")
	}
	if s.RequestsPerSecond < 0 {
		return fmt.Errorf("requests_per_second must not be negative")
	}
	if s.ProxyURL != "" {
		if u, err := url.Parse(s.ProxyURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("proxy_url %q is not an absolute URL", s.ProxyURL)
		}
	}
	if s.Provider == SourceCustom && s.APIBase == "" {
		return fmt.Errorf("custom provider requires api_base")
	}
	return nil
}
