package cliconfig

import (
	"fmt"
	"os"

	"github.com/subosito/gotenv"
)

// legacyEnv maps flag names to the variable names used by earlier
// deployments. They are read only when the ROWSHIP_* variable is unset.
var legacyEnv = map[string]string{
	"username":    "APP_USERNAME",
	"password":    "APP_PASSWORD",
	"edit":        "SETTING_EDIT",
	"db-user":     "DB_USERNAME",
	"db-password": "DB_PASSWORD",
	"db-host":     "DB_HOST",
	"db-port":     "DB_PORT",
	"db-name":     "DB_DATABASE",
}

// LoadEnvFile loads variables from a dotenv file without overriding ones
// already set in the environment. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" || !FileExists(path) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func getenv(flag, name string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	if legacy, ok := legacyEnv[flag]; ok {
		return os.Getenv(legacy)
	}
	return ""
}

// legacyEdit reports edit mode from SETTING_EDIT, which turns it on by being
// present at all, whatever its value. It is nil when ROWSHIP_EDIT is set or
// SETTING_EDIT is absent.
func legacyEdit() *bool {
	if os.Getenv("ROWSHIP_EDIT") != "" {
		return nil
	}
	if _, ok := os.LookupEnv(legacyEnv["edit"]); !ok {
		return nil
	}
	on := true
	return &on
}

// ApplyEnvConfig applies configuration from environment variables (ROWSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", getenv("service-url", "ROWSHIP_SERVICE_URL"), &cfg.ServiceURL)
	s.setString("username", getenv("username", "ROWSHIP_USERNAME"), &cfg.Username)
	s.setString("password", getenv("password", "ROWSHIP_PASSWORD"), &cfg.Password)
	if err := s.setIntFromString("user-id", getenv("user-id", "ROWSHIP_USER_ID"), &cfg.UserID); err != nil {
		return err
	}

	s.setString("db-driver", getenv("db-driver", "ROWSHIP_DB_DRIVER"), &cfg.DBDriver)
	s.setString("db-host", getenv("db-host", "ROWSHIP_DB_HOST"), &cfg.DBHost)
	if err := s.setIntFromString("db-port", getenv("db-port", "ROWSHIP_DB_PORT"), &cfg.DBPort); err != nil {
		return err
	}
	s.setString("db-user", getenv("db-user", "ROWSHIP_DB_USER"), &cfg.DBUser)
	s.setString("db-password", getenv("db-password", "ROWSHIP_DB_PASSWORD"), &cfg.DBPassword)
	s.setString("db-name", getenv("db-name", "ROWSHIP_DB_NAME"), &cfg.DBName)
	s.setString("db-path", getenv("db-path", "ROWSHIP_DB_PATH"), &cfg.DBPath)

	s.setString("catalog", getenv("catalog", "ROWSHIP_CATALOG"), &cfg.CatalogPath)
	s.setString("state-dir", getenv("state-dir", "ROWSHIP_STATE_DIR"), &cfg.StateDir)
	s.setString("checkpoint", getenv("checkpoint", "ROWSHIP_CHECKPOINT"), &cfg.Checkpoint)
	s.setString("log-level", getenv("log-level", "ROWSHIP_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-file", getenv("log-file", "ROWSHIP_LOG_FILE"), &cfg.LogFile)
	s.setString("pushgateway-url", getenv("pushgateway-url", "ROWSHIP_PUSHGATEWAY_URL"), &cfg.PushgatewayURL)

	if err := s.setDuration("timeout", getenv("timeout", "ROWSHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("poll", getenv("poll", "ROWSHIP_POLL_INTERVAL"), &cfg.PollInterval); err != nil {
		return err
	}

	s.setBoolFromString("edit", os.Getenv("ROWSHIP_EDIT"), &cfg.Edit)
	s.setBool("edit", legacyEdit(), &cfg.Edit)
	s.setBoolFromString("full-resync", getenv("full-resync", "ROWSHIP_FULL_RESYNC"), &cfg.FullResync)
	s.setBoolFromString("watch", getenv("watch", "ROWSHIP_WATCH"), &cfg.Watch)

	return nil
}
