package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	sqladapter "github.com/bft-labs/rowship/internal/adapters/sql"
)

// Defaults for the remote service and local database.
const (
	DefaultUserID      = 2
	DefaultDBPort      = 3306
	DefaultCatalogPath = "tables.json"
	DefaultEnvFile     = ".env"
)

// Config holds CLI configuration for rowship.
type Config struct {
	ServiceURL string `flag:"service-url" validate:"required,url"`
	Username   string `flag:"username" validate:"required"`
	Password   string `flag:"password" validate:"required"`
	UserID     int    `flag:"user-id" validate:"gte=1"`

	DBDriver   string `flag:"db-driver" validate:"oneof=mysql sqlite3"`
	DBHost     string `flag:"db-host"`
	DBPort     int    `flag:"db-port" validate:"gte=1,lte=65535"`
	DBUser     string `flag:"db-user" validate:"required_if=DBDriver mysql"`
	DBPassword string `flag:"db-password"`
	DBName     string `flag:"db-name" validate:"required_if=DBDriver mysql"`
	DBPath     string `flag:"db-path" validate:"required_if=DBDriver sqlite3"`

	CatalogPath string `flag:"catalog" validate:"required"`
	StateDir    string `flag:"state-dir"`

	Edit       bool
	FullResync bool
	Checkpoint string `flag:"checkpoint" validate:"oneof=run table"`

	HTTPTimeout  time.Duration `flag:"timeout" validate:"gt=0"`
	Watch        bool
	PollInterval time.Duration `flag:"poll" validate:"gt=0"`

	LogLevel string `flag:"log-level" validate:"oneof=debug info warn error"`
	LogFile  string

	PushgatewayURL string `flag:"pushgateway-url" validate:"omitempty,url"`
	EnvFile        string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		UserID:       DefaultUserID,
		DBDriver:     sqladapter.DriverMySQL,
		DBHost:       "localhost",
		DBPort:       DefaultDBPort,
		CatalogPath:  DefaultCatalogPath,
		Checkpoint:   "run",
		HTTPTimeout:  30 * time.Second,
		PollInterval: time.Minute,
		LogLevel:     "info",
		EnvFile:      DefaultEnvFile,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	c.ServiceURL = strings.TrimRight(strings.TrimSpace(c.ServiceURL), "/")
	c.LogLevel = strings.ToLower(c.LogLevel)

	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}
	// --edit also re-reads every table from the start, so existing records get updated.
	if c.Edit {
		c.FullResync = true
	}

	return validateStruct(c)
}

// DataSource returns the driver name and DSN for the local database.
func (c Config) DataSource() (driver, dsn string) {
	if c.DBDriver == sqladapter.DriverSQLite {
		return sqladapter.DriverSQLite, sqladapter.SQLiteDSN(c.DBPath)
	}
	return sqladapter.DriverMySQL, sqladapter.MySQLConfig{
		Host:     c.DBHost,
		Port:     c.DBPort,
		User:     c.DBUser,
		Password: c.DBPassword,
		Database: c.DBName,
	}.DSN()
}

// Redacted returns a copy safe for logging.
func (c Config) Redacted() Config {
	if c.Password != "" {
		c.Password = "*****"
	}
	if c.DBPassword != "" {
		c.DBPassword = "*****"
	}
	return c
}

// DefaultStateDir returns ~/.rowship, or the working directory when the
// home directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rowship")
	}
	return "."
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" and "yes" (any case) as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes":
		*dst = true
	default:
		*dst = false
	}
}
