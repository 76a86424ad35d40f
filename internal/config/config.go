// Package config loads restql configuration from YAML or CUE files.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/restql/internal/ir"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Defaults for a local Postgres instance.
const (
	DefaultHost     = "localhost"
	DefaultPort     = 5432
	DefaultUser     = "postgres"
	DefaultPassword = "example"
	DefaultDBName   = "postgres"
	DefaultSSLMode  = "disable"

	DefaultMaxOpenConns  = 16
	DefaultMaxIdleConns  = 4
	DefaultCommandBuffer = 100
	DefaultMaxCommands   = 1000
)

// Config is the complete restql configuration.
type Config struct {
	Database    Database    `yaml:"database" json:"database"`
	Transaction Transaction `yaml:"transaction" json:"transaction"`
	Log         Log         `yaml:"log" json:"log"`
}

// Database configures the connection pool.
//
// DSN, when set, is passed to the driver verbatim and the individual
// connection fields are ignored. For sqlite3 it is the database path.
type Database struct {
	Driver          string   `yaml:"driver" json:"driver"`
	DSN             string   `yaml:"dsn" json:"dsn,omitempty"`
	Host            string   `yaml:"host" json:"host,omitempty"`
	Port            int      `yaml:"port" json:"port,omitempty"`
	User            string   `yaml:"user" json:"user,omitempty"`
	Password        string   `yaml:"password" json:"password,omitempty"`
	DBName          string   `yaml:"dbname" json:"dbname,omitempty"`
	SSLMode         string   `yaml:"sslmode" json:"sslmode,omitempty"`
	MaxOpenConns    int      `yaml:"max_open_conns" json:"max_open_conns,omitempty"`
	MaxIdleConns    int      `yaml:"max_idle_conns" json:"max_idle_conns,omitempty"`
	ConnMaxLifetime Duration `yaml:"conn_max_lifetime" json:"conn_max_lifetime,omitempty"`
}

// Transaction configures scripted transactions.
type Transaction struct {
	// Savepoints wraps each get/create in a savepoint so a failure the
	// script catches does not abort the surrounding transaction.
	Savepoints bool `yaml:"savepoints" json:"savepoints,omitempty"`

	// CommandBuffer is the capacity of the script-to-owner command channel.
	CommandBuffer int `yaml:"command_buffer" json:"command_buffer,omitempty"`

	// MaxCommands caps get/create calls per transaction.
	MaxCommands int `yaml:"max_commands" json:"max_commands,omitempty"`

	// Timeout bounds a whole scripted transaction. Zero means no limit.
	Timeout Duration `yaml:"timeout" json:"timeout,omitempty"`
}

// Log configures the slog handler.
type Log struct {
	Level  string `yaml:"level" json:"level,omitempty"`   // debug | info | warn | error
	Format string `yaml:"format" json:"format,omitempty"` // text | json
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Default returns a Config with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	db := &c.Database
	if db.Driver == "" {
		db.Driver = DriverPostgres
	}
	if db.Driver == DriverPostgres && db.DSN == "" {
		if db.Host == "" {
			db.Host = DefaultHost
		}
		if db.Port == 0 {
			db.Port = DefaultPort
		}
		if db.User == "" {
			db.User = DefaultUser
		}
		if db.Password == "" {
			db.Password = DefaultPassword
		}
		if db.DBName == "" {
			db.DBName = DefaultDBName
		}
		if db.SSLMode == "" {
			db.SSLMode = DefaultSSLMode
		}
	}
	if db.MaxOpenConns == 0 {
		db.MaxOpenConns = DefaultMaxOpenConns
	}
	if db.MaxIdleConns == 0 {
		db.MaxIdleConns = DefaultMaxIdleConns
	}

	tx := &c.Transaction
	if tx.CommandBuffer == 0 {
		tx.CommandBuffer = DefaultCommandBuffer
	}
	if tx.MaxCommands == 0 {
		tx.MaxCommands = DefaultMaxCommands
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks field values after defaults are applied.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres:
	case DriverSQLite:
		if c.Database.DSN == "" {
			return ir.NewError(ir.ErrCodeParse, "config: sqlite3 requires database.dsn (a file path or :memory:)")
		}
	default:
		return ir.NewError(ir.ErrCodeParse, "config: unsupported database.driver %q (want %s or %s)",
			c.Database.Driver, DriverPostgres, DriverSQLite)
	}

	if c.Database.Port < 0 || c.Database.Port > 65535 {
		return ir.NewError(ir.ErrCodeParse, "config: database.port %d out of range", c.Database.Port)
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		return ir.NewError(ir.ErrCodeParse, "config: connection limits must not be negative")
	}
	if c.Transaction.CommandBuffer < 1 {
		return ir.NewError(ir.ErrCodeParse, "config: transaction.command_buffer must be at least 1")
	}
	if c.Transaction.MaxCommands < 1 {
		return ir.NewError(ir.ErrCodeParse, "config: transaction.max_commands must be at least 1")
	}
	if c.Transaction.Timeout < 0 {
		return ir.NewError(ir.ErrCodeParse, "config: transaction.timeout must not be negative")
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return ir.NewError(ir.ErrCodeParse, "config: unknown log.level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return ir.NewError(ir.ErrCodeParse, "config: unknown log.format %q", c.Log.Format)
	}
	return nil
}

// DataSourceName returns the driver connection string.
func (d Database) DataSourceName() string {
	if d.DSN != "" || d.Driver != DriverPostgres {
		return d.DSN
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + strconv.Itoa(d.Port),
		Path:   "/" + d.DBName,
	}
	if d.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {d.SSLMode}}.Encode()
	}
	return u.String()
}
