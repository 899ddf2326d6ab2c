package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sp-hack/server/internal/validation"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Auth        AuthConfig      `yaml:"auth"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	CORS        CORSConfig      `yaml:"cors"`
	Captcha     CaptchaConfig   `yaml:"captcha"`
	Email       EmailConfig     `yaml:"email"`
	Event       EventConfig     `yaml:"event"`
	Logging     LoggingConfig   `yaml:"logging"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Environment string          `yaml:"environment"`
	// AllowForbidden unlocks operations that stay hidden behind the feature gate.
	AllowForbidden bool `yaml:"allow_forbidden"`
}

type ServerConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	BaseURL   string `yaml:"base_url"`
	StaticDir string `yaml:"static_dir"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	JWTExpiry time.Duration `yaml:"jwt_expiry"`
}

type RateLimitConfig struct {
	// Limit is the number of requests a fingerprint may make per window.
	Limit             int           `yaml:"limit"`
	Window            time.Duration `yaml:"window"`
	TrustedProxyCIDRs []string      `yaml:"trusted_proxy_cidrs"`
}

type CORSConfig struct {
	AllowAllOrigins bool     `yaml:"allow_all_origins"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

type CaptchaConfig struct {
	Client string        `yaml:"client"`
	Secret string        `yaml:"secret"`
	Store  string        `yaml:"store"`
	TTL    time.Duration `yaml:"ttl"`
}

type EmailConfig struct {
	Provider      string  `yaml:"provider"`
	User          string  `yaml:"user"`
	Password      string  `yaml:"password"`
	Host          string  `yaml:"host"`
	Port          int     `yaml:"port"`
	ResendAPIKey  string  `yaml:"resend_api_key"`
	SendPerSecond float64 `yaml:"send_per_second"`
}

type EventConfig struct {
	Timezone string `yaml:"timezone"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// Load reads configuration from the environment and validates it.
func Load() (Config, error) {
	cfg := fromEnv()
	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile reads the environment first and then overlays the YAML file at
// path. Keys missing from the file keep their environment value.
func LoadFile(path string) (Config, error) {
	cfg := fromEnv()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if err := cfg.finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func fromEnv() Config {
	return Config{
		Server: ServerConfig{
			Host:      getEnv("SERVER_HOST", "0.0.0.0"),
			Port:      getEnvInt("PORT", 5000),
			BaseURL:   getEnv("BASE_URL", "http://localhost:5000"),
			StaticDir: getEnv("STATIC_DIR", "../frontend/dist"),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConnections: getEnvInt("DATABASE_MAX_CONNECTIONS", 10),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			JWTExpiry: time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Limit:             getEnvInt("RATE_LIMIT", 100),
			Window:            time.Duration(getEnvInt("RATE_LIMIT_TIME", 60000)) * time.Millisecond,
			TrustedProxyCIDRs: getEnvList("TRUSTED_PROXY_CIDRS"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_URLS"),
		},
		Captcha: CaptchaConfig{
			Client: getEnv("CAPTCHAS_CLIENT", "demo"),
			Secret: getEnv("CAPTCHAS_SECRET", "secret"),
			Store:  getEnv("CAPTCHA_STORE", "memory"),
			TTL:    time.Duration(getEnvInt("CAPTCHA_TTL_MINUTES", 60)) * time.Minute,
		},
		Email: EmailConfig{
			Provider:      getEnv("EMAIL_PROVIDER", "smtp"),
			User:          getEnv("EMAIL_USER", ""),
			Password:      getEnv("EMAIL_PASSWORD", ""),
			Host:          getEnv("EMAIL_HOST", ""),
			Port:          getEnvInt("EMAIL_PORT", 465),
			ResendAPIKey:  getEnv("RESEND_API_KEY", ""),
			SendPerSecond: getEnvFloat("EMAIL_SEND_PER_SECOND", 5),
		},
		Event: EventConfig{
			Timezone: getEnv("EVENT_TIMEZONE", "Europe/Moscow"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("TRACING_ENABLED", false),
			Exporter:     getEnv("TRACING_EXPORTER", "stdout"),
			ServiceName:  getEnv("TRACING_SERVICE_NAME", "sp-hack-server"),
			OTLPEndpoint: getEnv("OTLP_ENDPOINT", "localhost:4317"),
			SampleRate:   getEnvFloat("TRACING_SAMPLE_RATE", 1.0),
		},
		Environment:    getEnv("ENVIRONMENT", EnvDevelopment),
		AllowForbidden: getEnvBool("ALLOW_FORBIDDEN", false),
	}
}

// finalize applies derived settings and checks required values.
func (c *Config) finalize() error {
	switch c.Environment {
	case EnvProduction, EnvDevelopment, EnvTest:
	default:
		return fmt.Errorf("ENVIRONMENT must be one of production, development, test; got %q", c.Environment)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.JWTExpiry <= 0 {
		c.Auth.JWTExpiry = 24 * time.Hour
	}
	if c.RateLimit.Limit <= 0 {
		return fmt.Errorf("RATE_LIMIT must be positive")
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("RATE_LIMIT_TIME must be positive")
	}
	if err := validation.ValidateURL(c.Server.BaseURL, "BASE_URL", false); err != nil {
		return err
	}
	for _, origin := range c.CORS.AllowedOrigins {
		if err := validation.ValidateOrigin(origin, "CORS_URLS"); err != nil {
			return err
		}
	}
	if c.IsProduction() {
		c.CORS.AllowAllOrigins = false
		if len(c.CORS.AllowedOrigins) == 0 {
			return fmt.Errorf("CORS_URLS is required in production")
		}
	} else {
		c.CORS.AllowAllOrigins = true
	}
	switch c.Captcha.Store {
	case "memory", "postgres":
	default:
		return fmt.Errorf("CAPTCHA_STORE must be memory or postgres; got %q", c.Captcha.Store)
	}
	switch c.Email.Provider {
	case "smtp", "resend", "log":
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be smtp, resend or log; got %q", c.Email.Provider)
	}
	if c.Email.Provider == "resend" && c.Email.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY is required when EMAIL_PROVIDER=resend")
	}
	if _, err := time.LoadLocation(c.Event.Timezone); err != nil {
		return fmt.Errorf("EVENT_TIMEZONE: %w", err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// getEnvList accepts either a JSON array (`["https://a","https://b"]`) or a
// comma separated list.
func getEnvList(key string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return nil
	}
	if strings.HasPrefix(value, "[") {
		var items []string
		if err := json.Unmarshal([]byte(value), &items); err == nil {
			return items
		}
	}
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
