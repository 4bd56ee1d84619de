package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration.
// It is built once at startup and handed to constructors; components never read
// the environment themselves.
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Storage     StorageConfig   `toml:"storage"`
	Analysis    AnalysisConfig  `toml:"analysis"`
	SMTP        SMTPConfig      `toml:"smtp"`
	Report      ReportConfig    `toml:"report"`
	LLM         LLMConfig       `toml:"llm"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Logging     LoggingConfig   `toml:"logging"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
	InMemory       bool   `toml:"in_memory"`        // Keep the store in memory (tests, dry runs)
}

// AnalysisConfig points at the remote portfolio analysis service
type AnalysisConfig struct {
	BaseURL   string `toml:"base_url"`   // e.g. "http://localhost:4000"
	Timeout   string `toml:"timeout"`    // Request timeout (default: "30s")
	RateLimit int    `toml:"rate_limit"` // Requests per second
}

// SMTPConfig holds the mail transport settings and sender identity
type SMTPConfig struct {
	Host        string `toml:"host"`
	Port        int    `toml:"port"`
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	From        string `toml:"from"`
	FromName    string `toml:"from_name"`
	ImplicitTLS bool   `toml:"implicit_tls"` // true for port 465 style TLS, false for STARTTLS
	DialTimeout string `toml:"dial_timeout"`
}

// ReportConfig controls where report artifacts are written
type ReportConfig struct {
	ReportsDir      string `toml:"reports_dir"`       // Text reports (daily_report_*.txt)
	FinalReportsDir string `toml:"final_reports_dir"` // HTML renderings (final_report_*.html)
	GenerateTimeout string `toml:"generate_timeout"`  // Upper bound on report generation
	Model           string `toml:"model"`             // Model string passed to the provider factory
	Currency        string `toml:"currency"`          // ISO code used when formatting amounts
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
	// LLMProviderOffline renders reports from the built-in template
	LLMProviderOffline LLMProvider = "offline"
)

// LLMConfig selects the report generation provider
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"`
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
}

// SchedulerConfig controls the recurring delivery run
type SchedulerConfig struct {
	Enabled   bool   `toml:"enabled"`
	Schedule  string `toml:"schedule"`  // Standard 5-field cron expression
	Frequency string `toml:"frequency"` // Subscriber frequency served by the schedule
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
	Dir    string   `toml:"dir"`    // Directory for file output
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Analysis: AnalysisConfig{
			BaseURL:   "http://localhost:4000",
			Timeout:   "30s",
			RateLimit: 5,
		},
		SMTP: SMTPConfig{
			Host:        "smtp.gmail.com",
			Port:        587,
			FromName:    "Stock Analysis Report Engine",
			DialTimeout: "30s",
		},
		Report: ReportConfig{
			ReportsDir:      "./reports",
			FinalReportsDir: "./final_reports",
			GenerateTimeout: "5m",
			Currency:        "INR",
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderOffline, // Cloud providers need an API key
		},
		Gemini: GeminiConfig{
			Model:       "gemini-3-flash-preview",
			Temperature: 0.7,
		},
		Claude: ClaudeConfig{
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   8192,
			Temperature: 0.7,
		},
		Scheduler: SchedulerConfig{
			Enabled:   true,
			Schedule:  "0 7 * * *", // Every day at 07:00
			Frequency: "daily",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout", "file"},
			Dir:    "./logs",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("DIGEST_ENV"); env != "" {
		config.Environment = env
	}

	// Storage
	if badgerPath := os.Getenv("DIGEST_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Analysis service
	if baseURL := os.Getenv("DIGEST_ANALYSIS_BASE_URL"); baseURL != "" {
		config.Analysis.BaseURL = baseURL
	}
	if timeout := os.Getenv("DIGEST_ANALYSIS_TIMEOUT"); timeout != "" {
		config.Analysis.Timeout = timeout
	}

	// SMTP
	if host := os.Getenv("DIGEST_SMTP_HOST"); host != "" {
		config.SMTP.Host = host
	}
	if port := os.Getenv("DIGEST_SMTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.SMTP.Port = p
		}
	}
	if username := os.Getenv("DIGEST_SMTP_USERNAME"); username != "" {
		config.SMTP.Username = username
	}
	if password := os.Getenv("DIGEST_SMTP_PASSWORD"); password != "" {
		config.SMTP.Password = password
	}
	if from := os.Getenv("DIGEST_SMTP_FROM"); from != "" {
		config.SMTP.From = from
	}

	// Report
	if dir := os.Getenv("DIGEST_REPORTS_DIR"); dir != "" {
		config.Report.ReportsDir = dir
	}
	if dir := os.Getenv("DIGEST_FINAL_REPORTS_DIR"); dir != "" {
		config.Report.FinalReportsDir = dir
	}

	// LLM
	if provider := os.Getenv("DIGEST_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}
	if apiKey := os.Getenv("DIGEST_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("DIGEST_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // DIGEST_ prefix takes priority
	}

	// Scheduler
	if schedule := os.Getenv("DIGEST_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	// Logging
	if level := os.Getenv("DIGEST_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("DIGEST_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, logLevel string) {
	if logLevel != "" {
		config.Logging.Level = logLevel
	}
}

// Validate checks that required external inputs are present.
// Hosts are not contacted here; an unreachable host is discovered at run time.
func (c *Config) Validate() error {
	var missing []string

	if !c.Storage.Badger.InMemory && c.Storage.Badger.Path == "" {
		missing = append(missing, "storage.badger.path")
	}
	if c.Analysis.BaseURL == "" {
		missing = append(missing, "analysis.base_url")
	}
	if c.SMTP.Host == "" {
		missing = append(missing, "smtp.host")
	}
	if c.SMTP.Port <= 0 {
		missing = append(missing, "smtp.port")
	}
	if c.SMTP.From == "" {
		missing = append(missing, "smtp.from")
	}
	if c.SMTP.Password == "" {
		missing = append(missing, "smtp.password")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}

	if c.Scheduler.Enabled {
		if err := ValidateSchedule(c.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid scheduler.schedule: %w", err)
		}
	}

	return nil
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDuration parses a duration string, returning fallback when empty or malformed
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// SMTPUsername returns the login identity, defaulting to the sender address
func (c *Config) SMTPUsername() string {
	if c.SMTP.Username != "" {
		return c.SMTP.Username
	}
	return c.SMTP.From
}
