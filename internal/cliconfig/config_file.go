package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	ServiceURL     string `toml:"service_url"`
	Username       string `toml:"username"`
	Password       string `toml:"password"`
	UserID         int    `toml:"user_id"`
	DBDriver       string `toml:"db_driver"`
	DBHost         string `toml:"db_host"`
	DBPort         int    `toml:"db_port"`
	DBUser         string `toml:"db_user"`
	DBPassword     string `toml:"db_password"`
	DBName         string `toml:"db_name"`
	DBPath         string `toml:"db_path"`
	CatalogPath    string `toml:"catalog"`
	StateDir       string `toml:"state_dir"`
	Edit           *bool  `toml:"edit"`
	FullResync     *bool  `toml:"full_resync"`
	Checkpoint     string `toml:"checkpoint"`
	HTTPTimeout    string `toml:"http_timeout"`
	Watch          *bool  `toml:"watch"`
	PollInterval   string `toml:"poll_interval"`
	LogLevel       string `toml:"log_level"`
	LogFile        string `toml:"log_file"`
	PushgatewayURL string `toml:"pushgateway_url"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.rowship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".rowship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("service-url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("password", fc.Password, &cfg.Password)
	s.setInt("user-id", fc.UserID, &cfg.UserID)

	s.setString("db-driver", fc.DBDriver, &cfg.DBDriver)
	s.setString("db-host", fc.DBHost, &cfg.DBHost)
	s.setInt("db-port", fc.DBPort, &cfg.DBPort)
	s.setString("db-user", fc.DBUser, &cfg.DBUser)
	s.setString("db-password", fc.DBPassword, &cfg.DBPassword)
	s.setString("db-name", fc.DBName, &cfg.DBName)
	s.setString("db-path", fc.DBPath, &cfg.DBPath)

	s.setString("catalog", fc.CatalogPath, &cfg.CatalogPath)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("checkpoint", fc.Checkpoint, &cfg.Checkpoint)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)
	s.setString("pushgateway-url", fc.PushgatewayURL, &cfg.PushgatewayURL)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}

	s.setBool("edit", fc.Edit, &cfg.Edit)
	s.setBool("full-resync", fc.FullResync, &cfg.FullResync)
	s.setBool("watch", fc.Watch, &cfg.Watch)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
