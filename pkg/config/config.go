package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv     string
	LogLevel   string
	Server     ServerConfig
	Backend    BackendConfig
	Nimbus     NimbusConfig
	Metrics    MetricsConfig
	Security   SecurityConfig
	Session    SessionConfig
	NATS       NATSConfig
	CloudWatch CloudWatchConfig
	S3         S3Config
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// BackendConfig описывает deploy API и сервис autoscaling групп
type BackendConfig struct {
	DeployAPIURL      string
	AutoscalingAPIURL string
	Timeout           time.Duration
	MaxResponseBytes  int64
}

// NimbusConfig включает связку stage <-> внешний identifier
type NimbusConfig struct {
	Enabled    bool
	APIURL     string
	ConsoleURL string
	Timeout    time.Duration
}

type MetricsConfig struct {
	APIPrefix         string
	HealthCheckURL    string
	SiteMetricsConfig string
	DefaultStartTime  string
	FetchTimeout      time.Duration
	MaxResponseBytes  int64
}

type SecurityConfig struct {
	AllowedOrigins    []string
	SessionCookieName string
	SecureCookies     bool
}

// SessionConfig описывает Redis, где хранится соответствие session id -> backend token
type SessionConfig struct {
	Enabled   bool
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
	Timeout   time.Duration
}

type NATSConfig struct {
	Enabled       bool
	URL           string
	SubjectPrefix string
}

type CloudWatchConfig struct {
	MetricsEnabled  bool
	LogsEnabled     bool
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Namespace       string
	LogGroupName    string
	LogStreamName   string
}

type S3Config struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
}

func Load() (*Config, error) {
	// Загружаем .env файл (игнорируем ошибку если файла нет)
	_ = godotenv.Load()

	backendTimeout, err := parseDuration(getEnv("DEPLOY_API_TIMEOUT", "10s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEPLOY_API_TIMEOUT: %w", err)
	}

	nimbusTimeout, err := parseDuration(getEnv("NIMBUS_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid NIMBUS_TIMEOUT: %w", err)
	}

	fetchTimeout, err := parseDuration(getEnv("METRICS_FETCH_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_FETCH_TIMEOUT: %w", err)
	}

	sessionTimeout, err := parseDuration(getEnv("SESSION_REDIS_TIMEOUT", "2s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_REDIS_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := parseDuration(getEnv("SERVER_SHUTDOWN_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_SHUTDOWN_TIMEOUT: %w", err)
	}

	backendMaxMB, err := strconv.Atoi(getEnv("DEPLOY_API_MAX_RESPONSE_MB", "8"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEPLOY_API_MAX_RESPONSE_MB: %w", err)
	}

	metricsMaxMB, err := strconv.Atoi(getEnv("METRICS_MAX_RESPONSE_MB", "4"))
	if err != nil {
		return nil, fmt.Errorf("invalid METRICS_MAX_RESPONSE_MB: %w", err)
	}

	sessionDB, err := strconv.Atoi(getEnv("SESSION_REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_REDIS_DB: %w", err)
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "20"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS: %w", err)
	}

	burst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "40"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_BURST: %w", err)
	}

	deployURL := strings.TrimRight(getEnv("DEPLOY_API_URL", "http://localhost:8011/v1"), "/")

	cfg := &Config{
		AppEnv:   getEnv("APP_ENV", "production"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8888"),
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: shutdownTimeout,
		},
		Backend: BackendConfig{
			DeployAPIURL:      deployURL,
			AutoscalingAPIURL: strings.TrimRight(getEnv("AUTOSCALING_API_URL", deployURL), "/"),
			Timeout:           backendTimeout,
			MaxResponseBytes:  int64(backendMaxMB) * 1024 * 1024,
		},
		Nimbus: NimbusConfig{
			Enabled:    getEnvBool("NIMBUS_ENABLED", false),
			APIURL:     strings.TrimRight(getEnv("NIMBUS_API_URL", ""), "/"),
			ConsoleURL: strings.TrimRight(getEnv("NIMBUS_CONSOLE_URL", ""), "/"),
			Timeout:    nimbusTimeout,
		},
		Metrics: MetricsConfig{
			APIPrefix:         getEnv("STATSBOARD_API_PREFIX", ""),
			HealthCheckURL:    getEnv("DEPLOY_HEALTHCHECK_URL", deployURL+"/healthcheck"),
			SiteMetricsConfig: getEnv("SITE_METRICS_CONFIG", ""),
			DefaultStartTime:  getEnv("DEFAULT_START_TIME", "-1d"),
			FetchTimeout:      fetchTimeout,
			MaxResponseBytes:  int64(metricsMaxMB) * 1024 * 1024,
		},
		Security: SecurityConfig{
			AllowedOrigins:    splitCSV(getEnv("ALLOWED_ORIGINS", "")),
			SessionCookieName: getEnv("SESSION_COOKIE_NAME", "deploy_board_session"),
			SecureCookies:     getEnvBool("SECURE_COOKIES", true),
		},
		Session: SessionConfig{
			Enabled:   getEnvBool("SESSION_REDIS_ENABLED", false),
			Host:      getEnv("SESSION_REDIS_HOST", "localhost"),
			Port:      getEnv("SESSION_REDIS_PORT", "6379"),
			Password:  getEnv("SESSION_REDIS_PASSWORD", ""),
			DB:        sessionDB,
			KeyPrefix: getEnv("SESSION_REDIS_KEY_PREFIX", "deploy-board:session:"),
			Timeout:   sessionTimeout,
		},
		NATS: NATSConfig{
			Enabled:       getEnvBool("NATS_ENABLED", false),
			URL:           getEnv("NATS_URL", "nats://localhost:4222"),
			SubjectPrefix: getEnv("NATS_SUBJECT_PREFIX", "deployboard"),
		},
		CloudWatch: CloudWatchConfig{
			MetricsEnabled:  getEnvBool("CLOUDWATCH_METRICS_ENABLED", false),
			LogsEnabled:     getEnvBool("CLOUDWATCH_LOGS_ENABLED", false),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			Endpoint:        getEnv("CLOUDWATCH_ENDPOINT", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Namespace:       getEnv("CLOUDWATCH_NAMESPACE", "DeployBoard/Web"),
			LogGroupName:    getEnv("CLOUDWATCH_LOG_GROUP", "/deploy-board/web"),
			LogStreamName:   getEnv("CLOUDWATCH_LOG_STREAM", hostname()),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", getEnv("AWS_REGION", "us-east-1")),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", getEnv("AWS_ACCESS_KEY_ID", "")),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", getEnv("AWS_SECRET_ACCESS_KEY", "")),
			UsePathStyle:    getEnvBool("S3_USE_PATH_STYLE", false),
		},
		RateLimit: RateLimitConfig{
			Enabled: getEnvBool("RATE_LIMIT_ENABLED", true),
			RPS:     rps,
			Burst:   burst,
		},
	}

	if cfg.Nimbus.Enabled && cfg.Nimbus.APIURL == "" {
		return nil, fmt.Errorf("NIMBUS_API_URL is required when NIMBUS_ENABLED=true")
	}
	if cfg.RateLimit.Enabled && (cfg.RateLimit.RPS <= 0 || cfg.RateLimit.Burst <= 0) {
		return nil, fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	return cfg, nil
}

// Addr возвращает адрес Redis для хранилища сессий
func (c *SessionConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}

	return parsed
}

func splitCSV(raw string) []string {
	items := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "deploy-board"
	}
	return name
}
