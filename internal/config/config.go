package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	// Server
	Env  string
	Port string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Pipeline trigger
	PipelineAPIKey string

	Evaluation EvaluationConfig
	Notify     NotifyConfig
}

// EvaluationConfig bounds the per-budget fan-out of a status evaluation.
type EvaluationConfig struct {
	Concurrency   int
	QueryTimeout  time.Duration
	NotifyTimeout time.Duration
	// AlertCooldown suppresses re-sending the same (budget, status) alert
	// within the window. Zero re-sends on every evaluation.
	AlertCooldown time.Duration
	// CooldownCapacity is how many (budget, status) pairs the cooldown tracks.
	CooldownCapacity int
	Schedule         string
}

// NotifyConfig selects and configures the alert transports.
type NotifyConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string

	SlackWebhookURL string
	SlackChannel    string

	WebhookURL    string
	WebhookSecret string
}

// EmailEnabled reports whether an SMTP relay is configured.
func (n NotifyConfig) EmailEnabled() bool {
	return n.SMTPHost != "" && n.SMTPFrom != ""
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "8080"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "budgetwatch"),
		DBPassword: getEnv("DB_PASSWORD", "budgetwatch"),
		DBName:     getEnv("DB_NAME", "budgetwatch"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		JWTSecret:      getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),
		PipelineAPIKey: getEnv("PIPELINE_API_KEY", ""),

		Evaluation: EvaluationConfig{
			Concurrency:      getEnvInt("EVAL_CONCURRENCY", 4),
			QueryTimeout:     getEnvPositiveDuration("EVAL_QUERY_TIMEOUT", 5*time.Second),
			NotifyTimeout:    getEnvPositiveDuration("EVAL_NOTIFY_TIMEOUT", 10*time.Second),
			AlertCooldown:    getEnvDuration("ALERT_COOLDOWN", 0),
			CooldownCapacity: getEnvInt("ALERT_COOLDOWN_CAPACITY", 100000),
			Schedule:         getEnv("EVALUATOR_SCHEDULE", "@every 1h"),
		},

		Notify: NotifyConfig{
			SMTPHost:        getEnv("SMTP_HOST", ""),
			SMTPPort:        getEnvInt("SMTP_PORT", 587),
			SMTPUsername:    getEnv("SMTP_USERNAME", ""),
			SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
			SMTPFrom:        getEnv("SMTP_FROM", ""),
			SlackWebhookURL: getEnv("SLACK_WEBHOOK_URL", ""),
			SlackChannel:    getEnv("SLACK_CHANNEL", "#budget-alerts"),
			WebhookURL:      getEnv("ALERT_WEBHOOK_URL", ""),
			WebhookSecret:   getEnv("ALERT_WEBHOOK_SECRET", ""),
		},
	}

	config.JWTExpirationDur = getEnvDuration("JWT_EXPIRES_IN", 24*time.Hour)

	if config.Evaluation.Concurrency < 1 {
		log.Printf("Warning: EVAL_CONCURRENCY must be at least 1, got %d; using 1\n", config.Evaluation.Concurrency)
		config.Evaluation.Concurrency = 1
	}
	if config.Evaluation.CooldownCapacity < 1 {
		log.Printf("Warning: ALERT_COOLDOWN_CAPACITY must be at least 1, got %d; using 100000\n", config.Evaluation.CooldownCapacity)
		config.Evaluation.CooldownCapacity = 100000
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

// getEnvPositiveDuration is getEnvDuration for settings where zero would mean
// "unbounded".
func getEnvPositiveDuration(key string, defaultValue time.Duration) time.Duration {
	d := getEnvDuration(key, defaultValue)
	if d <= 0 {
		log.Printf("Warning: %s must be positive, got %s; using %s\n", key, d, defaultValue)
		return defaultValue
	}
	return d
}
