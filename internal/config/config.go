package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MaxPoolConns caps DB_MAX_CONNS. The pool size is an int32 in pgxpool
// and PostgreSQL's own default max_connections is far below this.
const MaxPoolConns = 1000

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig describes where tasks are stored.
type DatabaseConfig struct {
	Driver     string `mapstructure:"DB_DRIVER"`
	Host       string `mapstructure:"DB_HOST"`
	Port       int    `mapstructure:"DB_PORT"`
	User       string `mapstructure:"DB_USER"`
	Password   string `mapstructure:"DB_PASSWORD"`
	Name       string `mapstructure:"DB_NAME"`
	SSLMode    string `mapstructure:"DB_SSLMODE"`
	MaxConns   int    `mapstructure:"DB_MAX_CONNS"`
	SQLitePath string `mapstructure:"SQLITE_PATH"`
	Seed       bool   `mapstructure:"SEED_SAMPLE_DATA"`
}

// Config is the server configuration.
type Config struct {
	Port            int            `mapstructure:"PORT"`
	WebDir          string         `mapstructure:"WEB_DIR"`
	LogLevel        string         `mapstructure:"LOG_LEVEL"`
	LogFormat       string         `mapstructure:"LOG_FORMAT"`
	ShutdownTimeout time.Duration  `mapstructure:"SHUTDOWN_TIMEOUT"`
	Database        DatabaseConfig `mapstructure:",squash"`
}

var defaults = map[string]any{
	"PORT":             5000,
	"WEB_DIR":          "web",
	"LOG_LEVEL":        "info",
	"LOG_FORMAT":       "text",
	"SHUTDOWN_TIMEOUT": "30s",
	"DB_DRIVER":        DriverPostgres,
	"DB_HOST":          "localhost",
	"DB_PORT":          5432,
	"DB_USER":          "postgres",
	"DB_PASSWORD":      "",
	"DB_NAME":          "task_tracker",
	"DB_SSLMODE":       "disable",
	"DB_MAX_CONNS":     10,
	"SQLITE_PATH":      "tasks.db",
	"SEED_SAMPLE_DATA": true,
}

// Load reads configuration from the environment, layered over an optional
// file and the defaults. path may name a YAML or .env file; when empty,
// CONFIG_FILE is consulted and then ".env" in the working directory. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	explicit := path != ""
	if !explicit {
		path = os.Getenv("CONFIG_FILE")
		explicit = path != ""
	}
	if path == "" {
		path = ".env"
	}
	v.SetConfigFile(path)
	if strings.HasSuffix(path, ".env") {
		v.SetConfigType("env")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			if explicit {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
		default:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Database.Driver = strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values Load cannot type-check.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT %v: must be positive", c.ShutdownTimeout)
	}
	switch c.Database.Driver {
	case DriverPostgres:
		if c.Database.Port <= 0 || c.Database.Port > 65535 {
			return fmt.Errorf("invalid DB_PORT %d", c.Database.Port)
		}
		if c.Database.Name == "" {
			return errors.New("DB_NAME is required")
		}
		if c.Database.MaxConns <= 0 || c.Database.MaxConns > MaxPoolConns {
			return fmt.Errorf("invalid DB_MAX_CONNS %d: must be between 1 and %d", c.Database.MaxConns, MaxPoolConns)
		}
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.Database.Driver)
	}
	return nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}
