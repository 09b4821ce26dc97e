package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Log       LogConfig
	DocStore  DocStoreConfig
	Realtime  RealtimeConfig
	Report    ReportConfig
	Auth      AuthConfig
	Session   SessionConfig
	Scanner   ScannerConfig
	Changelog ChangelogConfig
	Export    ExportConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name              string `envconfig:"APP_NAME" default:"beerzone-pos"`
	StoreName         string `envconfig:"APP_STORE_NAME" default:"BeerZone"`
	Environment       string `envconfig:"APP_ENV" default:"development"`
	Debug             bool   `envconfig:"APP_DEBUG" default:"false"`
	Version           string `envconfig:"APP_VERSION" default:"1.0.0"`
	CurrencySymbol    string `envconfig:"APP_CURRENCY_SYMBOL" default:"₹"`
	LowStockThreshold int    `envconfig:"APP_LOW_STOCK_THRESHOLD" default:"10"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"console"` // console or json
	Output string `envconfig:"LOG_OUTPUT" default:"stdout"`
}

// DocStoreConfig holds the products/sales database settings.
type DocStoreConfig struct {
	Type string `envconfig:"DOCSTORE_TYPE" default:"sqlite"` // sqlite, mysql, or postgres
	Path string `envconfig:"DOCSTORE_PATH" default:"./data/beerzone.db"`
	// MySQL / PostgreSQL settings
	Host     string `envconfig:"DOCSTORE_HOST" default:"localhost"`
	Port     int    `envconfig:"DOCSTORE_PORT" default:"0"`
	Name     string `envconfig:"DOCSTORE_NAME" default:"beerzone"`
	User     string `envconfig:"DOCSTORE_USER" default:"beerzone"`
	Password string `envconfig:"DOCSTORE_PASS" default:""`
	SSLMode  string `envconfig:"DOCSTORE_SSLMODE" default:"disable"`
}

// RealtimeConfig holds the inventory key-value store settings.
type RealtimeConfig struct {
	Type      string `envconfig:"REALTIME_TYPE" default:"memory"` // memory, redis, or pebble
	KeyPrefix string `envconfig:"REALTIME_KEY_PREFIX" default:"beerzone"`
	PebbleDir string `envconfig:"REALTIME_PEBBLE_DIR" default:"./data/realtime"`

	RedisHost     string `envconfig:"REALTIME_REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REALTIME_REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REALTIME_REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REALTIME_REDIS_DB" default:"0"`
}

// ReportConfig holds reporting settings.
type ReportConfig struct {
	Timezone string `envconfig:"REPORT_TIMEZONE" default:"Asia/Kolkata"`
}

// AuthConfig holds bearer token verification settings.
// An empty secret disables authentication.
type AuthConfig struct {
	JWTSecret string `envconfig:"AUTH_JWT_SECRET" default:""`
	Issuer    string `envconfig:"AUTH_ISSUER" default:""`
}

// SessionConfig holds session registry settings.
type SessionConfig struct {
	TTL           time.Duration `envconfig:"SESSION_TTL" default:"2h"`
	SweepInterval time.Duration `envconfig:"SESSION_SWEEP_INTERVAL" default:"5m"`
}

// ScannerConfig holds scanner session settings.
type ScannerConfig struct {
	Cooldown time.Duration `envconfig:"SCANNER_COOLDOWN" default:"1500ms"`
	Device   string        `envconfig:"SCANNER_DEVICE" default:""`
}

// ChangelogConfig holds the inventory history changelog settings.
type ChangelogConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:""`
	Topic   string   `envconfig:"KAFKA_HISTORY_TOPIC" default:"beerzone.inventory_history"`
}

// ExportConfig holds spreadsheet archive settings.
type ExportConfig struct {
	Dir      string `envconfig:"EXPORT_DIR" default:""`
	S3Bucket string `envconfig:"EXPORT_S3_BUCKET" default:""`
	S3Region string `envconfig:"EXPORT_S3_REGION" default:"ap-south-1"`
	S3Prefix string `envconfig:"EXPORT_S3_PREFIX" default:"exports/"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// DSN returns the driver name and data source name for the configured type.
func (d *DocStoreConfig) DSN() (driver, dsn string, err error) {
	switch strings.ToLower(d.Type) {
	case "", "sqlite":
		return "sqlite", d.Path, nil
	case "mysql":
		port := d.Port
		if port == 0 {
			port = 3306
		}
		return "mysql", fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			d.User, d.Password, d.Host, port, d.Name), nil
	case "postgres":
		port := d.Port
		if port == 0 {
			port = 5432
		}
		return "postgres", fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			d.User, d.Password, d.Host, port, d.Name, d.SSLMode), nil
	default:
		return "", "", fmt.Errorf("unknown docstore type %q", d.Type)
	}
}

// RedisAddress returns the Redis address in host:port format.
func (r *RealtimeConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", r.RedisHost, r.RedisPort)
}

// Enabled reports whether history entries should be published to Kafka.
func (c *ChangelogConfig) Enabled() bool {
	for _, b := range c.Brokers {
		if strings.TrimSpace(b) != "" {
			return true
		}
	}
	return false
}

// Enabled reports whether bearer tokens are verified.
func (a *AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.Scanner.Cooldown < 0 {
		return nil, fmt.Errorf("SCANNER_COOLDOWN must not be negative")
	}
	if cfg.App.LowStockThreshold < 0 {
		return nil, fmt.Errorf("APP_LOW_STOCK_THRESHOLD must not be negative")
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
