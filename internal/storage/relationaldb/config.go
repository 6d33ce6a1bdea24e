package relationaldb

import (
	"fmt"
	"net/url"
	"time"
)

// Driver names accepted by Config.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config contains archive database settings.
type Config struct {
	Driver           string `json:"driver" mapstructure:"driver"`
	ConnectionString string `json:"connection_string" mapstructure:"connection_string"`
	Host             string `json:"host" mapstructure:"host"`
	Port             int    `json:"port" mapstructure:"port"`
	Database         string `json:"database" mapstructure:"database"`
	Username         string `json:"username" mapstructure:"username"`
	Password         string `json:"password" mapstructure:"password"`
	SSLMode          string `json:"ssl_mode" mapstructure:"ssl_mode"`

	// Connection pool settings
	MaxOpenConns    int           `json:"max_open_conns" mapstructure:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns" mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" mapstructure:"conn_max_lifetime"`

	DefaultTimeout time.Duration `json:"default_timeout" mapstructure:"default_timeout"`

	// Retry settings used by Manager
	MaxRetries int           `json:"max_retries" mapstructure:"max_retries"`
	RetryDelay time.Duration `json:"retry_delay" mapstructure:"retry_delay"`

	EnableWALMode bool `json:"enable_wal_mode" mapstructure:"enable_wal_mode"`
}

// NewConfig creates a Config with defaults for a local PostgreSQL server.
func NewConfig() *Config {
	return &Config{
		Driver:          DriverPostgres,
		Host:            "localhost",
		Port:            5432,
		Database:        "marble",
		Username:        "marble",
		SSLMode:         "prefer",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		DefaultTimeout:  10 * time.Second,
		MaxRetries:      3,
		RetryDelay:      100 * time.Millisecond,
		EnableWALMode:   true,
	}
}

// SQLiteConfig creates a SQLite configuration. Use ":memory:" for a
// throwaway archive.
func SQLiteConfig(path string) *Config {
	config := NewConfig()
	config.Driver = DriverSQLite
	config.Database = path
	config.MaxOpenConns = 1
	config.MaxIdleConns = 1
	return config
}

// Validate checks the configuration and normalises the driver name.
func (c *Config) Validate() error {
	switch c.Driver {
	case "postgres", "postgresql":
		c.Driver = DriverPostgres
	case "sqlite", "sqlite3":
		c.Driver = DriverSQLite
	default:
		return fmt.Errorf("%w: %s", ErrInvalidDriver, c.Driver)
	}

	if c.ConnectionString == "" {
		if c.Database == "" {
			return ErrMissingDatabase
		}
		if c.Driver == DriverPostgres {
			if c.Host == "" {
				return ErrMissingHost
			}
			if c.Port <= 0 || c.Port > 65535 {
				return ErrInvalidPort
			}
			switch c.SSLMode {
			case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
			default:
				return fmt.Errorf("invalid SSL mode: %s", c.SSLMode)
			}
		}
	}

	if c.MaxOpenConns < 0 || c.MaxIdleConns < 0 {
		return ErrInvalidPoolSize
	}
	if c.MaxIdleConns > c.MaxOpenConns && c.MaxOpenConns > 0 {
		return ErrMaxIdleExceedsMaxOpen
	}
	if c.DefaultTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxRetries < 0 || c.RetryDelay < 0 {
		return ErrInvalidRetry
	}
	return nil
}

// BuildConnectionString builds the driver DSN from the config.
func (c *Config) BuildConnectionString() (string, error) {
	if c.ConnectionString != "" {
		return c.ConnectionString, nil
	}

	switch c.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
			Path:   "/" + c.Database,
		}
		if c.Username != "" {
			if c.Password != "" {
				u.User = url.UserPassword(c.Username, c.Password)
			} else {
				u.User = url.User(c.Username)
			}
		}
		params := url.Values{}
		params.Set("sslmode", c.SSLMode)
		params.Set("application_name", "marbled")
		u.RawQuery = params.Encode()
		return u.String(), nil

	case DriverSQLite:
		if c.Database == ":memory:" {
			return c.Database, nil
		}
		params := url.Values{}
		params.Add("_pragma", "busy_timeout(5000)")
		if c.EnableWALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
		return "file:" + c.Database + "?" + params.Encode(), nil
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidDriver, c.Driver)
}

// Clone creates a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration with the password redacted.
func (c *Config) String() string {
	clone := c.Clone()
	if clone.Password != "" {
		clone.Password = "***"
	}
	connStr, _ := clone.BuildConnectionString()
	return fmt.Sprintf("Config{Driver: %s, Database: %s, Connection: %s}", clone.Driver, clone.Database, connStr)
}
