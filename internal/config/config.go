package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all gateway configuration. It is loaded once at startup from
// environment variables (optionally seeded from a .env file) and never
// reloaded.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Services ServicesConfig
	JWT      JWTConfig
	Proxy    ProxyConfig
	CORS     CORSConfig
	OTel     OTelConfig
	Log      LogConfig
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string
	Environment string // development, staging, production
	Version     string
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// ServicesConfig holds base URLs of the internal backend services.
type ServicesConfig struct {
	AuthServiceURL    string
	ProductServiceURL string
	CartServiceURL    string
	OrderServiceURL   string
}

// JWTConfig holds token verification settings. A single symmetric secret and
// a single algorithm; there is no multi-key or multi-algorithm negotiation.
type JWTConfig struct {
	Secret    string
	Algorithm string
}

// ProxyConfig holds forwarding engine settings. Timeouts are per-phase:
// connect, read and write are configured independently.
type ProxyConfig struct {
	ConnectTimeout  time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	MaxRetries      int
	BackoffInterval time.Duration
	MaxConns        int
	MaxIdleConns    int
}

// CORSConfig holds allowed cross-origin sources.
type CORSConfig struct {
	Origins []string
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled       bool
	CollectorAddr string
	SampleRatio   float64
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string
}

// Load loads configuration from environment variables and an optional .env
// file in the working directory.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")

	// .env is optional, environment variables alone are enough
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	cfg := bindConfig(v)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("APP_NAME", "api-gateway")
	v.SetDefault("APP_ENVIRONMENT", "development")
	v.SetDefault("APP_VERSION", "0.1.0")

	// Server defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_READ_TIMEOUT", "30s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "30s")
	v.SetDefault("SERVER_IDLE_TIMEOUT", "120s")

	// Backend service URLs (Docker network addresses)
	v.SetDefault("AUTH_SERVICE_URL", "http://auth-service:8001")
	v.SetDefault("PRODUCT_SERVICE_URL", "http://product-service:8002")
	v.SetDefault("CART_SERVICE_URL", "http://cart-service:8003")
	v.SetDefault("ORDER_SERVICE_URL", "http://order-service:8004")

	// JWT defaults
	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ALGORITHM", "HS256")

	// Proxy defaults
	v.SetDefault("PROXY_TIMEOUT_CONNECT", "5s")
	v.SetDefault("PROXY_TIMEOUT_READ", "30s")
	v.SetDefault("PROXY_TIMEOUT_WRITE", "10s")
	v.SetDefault("PROXY_MAX_RETRIES", 3)
	v.SetDefault("PROXY_BACKOFF_INTERVAL", "500ms")
	v.SetDefault("PROXY_MAX_CONNS", 100)
	v.SetDefault("PROXY_MAX_IDLE_CONNS", 20)

	// CORS defaults
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")

	// OTel defaults
	v.SetDefault("OTEL_ENABLED", false)
	v.SetDefault("OTEL_COLLECTOR_ADDR", "localhost:4317")
	v.SetDefault("OTEL_SAMPLE_RATIO", 1.0)

	// Log defaults
	v.SetDefault("LOG_LEVEL", "info")
}

func bindConfig(v *viper.Viper) *Config {
	cfg := &Config{}

	// App
	cfg.App.Name = v.GetString("APP_NAME")
	cfg.App.Environment = v.GetString("APP_ENVIRONMENT")
	cfg.App.Version = v.GetString("APP_VERSION")

	// Server
	cfg.Server.Host = v.GetString("SERVER_HOST")
	cfg.Server.Port = v.GetInt("SERVER_PORT")
	cfg.Server.ReadTimeout = v.GetDuration("SERVER_READ_TIMEOUT")
	cfg.Server.WriteTimeout = v.GetDuration("SERVER_WRITE_TIMEOUT")
	cfg.Server.IdleTimeout = v.GetDuration("SERVER_IDLE_TIMEOUT")

	// Services
	cfg.Services.AuthServiceURL = v.GetString("AUTH_SERVICE_URL")
	cfg.Services.ProductServiceURL = v.GetString("PRODUCT_SERVICE_URL")
	cfg.Services.CartServiceURL = v.GetString("CART_SERVICE_URL")
	cfg.Services.OrderServiceURL = v.GetString("ORDER_SERVICE_URL")

	// JWT
	cfg.JWT.Secret = v.GetString("JWT_SECRET_KEY")
	cfg.JWT.Algorithm = v.GetString("JWT_ALGORITHM")

	// Proxy
	cfg.Proxy.ConnectTimeout = v.GetDuration("PROXY_TIMEOUT_CONNECT")
	cfg.Proxy.ReadTimeout = v.GetDuration("PROXY_TIMEOUT_READ")
	cfg.Proxy.WriteTimeout = v.GetDuration("PROXY_TIMEOUT_WRITE")
	cfg.Proxy.MaxRetries = v.GetInt("PROXY_MAX_RETRIES")
	cfg.Proxy.BackoffInterval = v.GetDuration("PROXY_BACKOFF_INTERVAL")
	cfg.Proxy.MaxConns = v.GetInt("PROXY_MAX_CONNS")
	cfg.Proxy.MaxIdleConns = v.GetInt("PROXY_MAX_IDLE_CONNS")

	// CORS (comma-separated list)
	origins := v.GetString("CORS_ORIGINS")
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORS.Origins = append(cfg.CORS.Origins, o)
		}
	}

	// OTel
	cfg.OTel.Enabled = v.GetBool("OTEL_ENABLED")
	cfg.OTel.CollectorAddr = v.GetString("OTEL_COLLECTOR_ADDR")
	cfg.OTel.SampleRatio = v.GetFloat64("OTEL_SAMPLE_RATIO")

	// Log
	cfg.Log.Level = v.GetString("LOG_LEVEL")

	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	if !strings.HasPrefix(c.JWT.Algorithm, "HS") {
		return fmt.Errorf("unsupported JWT algorithm %q: only HMAC algorithms are supported", c.JWT.Algorithm)
	}

	if c.Proxy.MaxRetries <= 0 {
		return fmt.Errorf("PROXY_MAX_RETRIES must be positive, got %d", c.Proxy.MaxRetries)
	}

	if c.Proxy.MaxIdleConns > c.Proxy.MaxConns {
		return fmt.Errorf("PROXY_MAX_IDLE_CONNS (%d) cannot exceed PROXY_MAX_CONNS (%d)",
			c.Proxy.MaxIdleConns, c.Proxy.MaxConns)
	}

	return nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
