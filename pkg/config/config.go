package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database (run history journal, optional)
	Database DatabaseConfig

	// Redis (analysis cache, optional)
	Redis RedisConfig

	// Confluence catalog override
	Confluence ConfluenceConfig

	// Flow sequencer
	Flow FlowConfig

	// Scheduler
	Scheduler SchedulerConfig

	// Webhook notification sink
	Webhook WebhookConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Enabled reports whether a database URL was supplied.
func (d DatabaseConfig) Enabled() bool {
	return d.URL != ""
}

// ConfluenceConfig points at an optional YAML indicator catalog
type ConfluenceConfig struct {
	CatalogPath string // empty: built-in catalog and presets
}

// FlowConfig holds sequencer pacing defaults
type FlowConfig struct {
	Mode           string        // auto, manual
	StepDelay      time.Duration // post-delay for auto mode steps
	QuickDemoDelay time.Duration // fixed delay between quick demo steps
	Prompt         string        // initial flow prompt
	ControlRPS     int           // rate limit for flow control endpoints
}

// SchedulerConfig holds cron expressions for scheduled jobs
type SchedulerConfig struct {
	FlowDemoSchedule string
	WarmupSchedule   string
}

// WebhookConfig holds the optional notification webhook
type WebhookConfig struct {
	URL     string
	Timeout time.Duration
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Confluence: ConfluenceConfig{
			CatalogPath: getEnv("CONFLUENCE_CATALOG", ""),
		},

		Flow: FlowConfig{
			Mode:           getEnv("FLOW_MODE", "auto"),
			StepDelay:      getEnvAsDuration("FLOW_STEP_DELAY", "1500ms"),
			QuickDemoDelay: getEnvAsDuration("FLOW_QUICK_DEMO_DELAY", "800ms"),
			Prompt:         getEnv("FLOW_PROMPT", ""),
			ControlRPS:     getEnvAsInt("FLOW_CONTROL_RPS", 5),
		},

		Scheduler: SchedulerConfig{
			FlowDemoSchedule: getEnv("SCHED_FLOW_DEMO", "0 0 9 * * 1-5"),
			WarmupSchedule:   getEnv("SCHED_WARMUP", "0 */30 * * * *"),
		},

		Webhook: WebhookConfig{
			URL:     getEnv("WEBHOOK_URL", ""),
			Timeout: getEnvAsDuration("WEBHOOK_TIMEOUT", "5s"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	// Validate configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	// Validate environment
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Flow.Mode != "auto" && c.Flow.Mode != "manual" {
		return fmt.Errorf("FLOW_MODE must be one of: auto, manual")
	}

	if c.Flow.StepDelay < 0 || c.Flow.QuickDemoDelay < 0 {
		return fmt.Errorf("flow delays must not be negative")
	}

	if c.Flow.ControlRPS <= 0 {
		return fmt.Errorf("FLOW_CONTROL_RPS must be positive")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		// Fallback to default
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
