package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/rowship/internal/cliconfig"
)

const helpDescription = `
Migrate rows from a local MariaDB/MySQL (or SQLite) database to a remote GIS
web service, one row at a time.

Each table listed in the catalog is read above its last confirmed primary key,
converted to the remote schema and created remotely. Progress is kept in a
state file, so a rerun only sends what is new.

  - Stops at the first failed row; the next run resumes from it.
  - Re-authenticates only when the bearer token is older than five minutes.
  - --edit updates records that already exist instead of skipping them.
  - Configure via file, env (ROWSHIP_* or the legacy APP_/DB_ names), or flags.
`

var exampleUsage = strings.TrimSpace(`
  rowship --service-url https://gis.example.com/api --username migrator --db-name elf
  rowship --catalog tables.toml --edit
  rowship --watch --poll 5m --pushgateway-url http://pushgateway:9091
  rowship state reset sostegni_aerei
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// bootstrapLogger is used until the configured logger exists.
var bootstrapLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "rowship",
		Short:         "Migrate local database rows to a remote GIS web service",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(cmd, &cfg, cfgPath)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closer, err := cliconfig.NewLogger(cfg.LogLevel, cfg.LogFile)
			if err != nil {
				return err
			}
			defer closer.Close()

			logger.Info().Interface("config", cfg.Redacted()).Msg("configuration")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runSync(ctx, cfg, logger)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.rowship/config.toml)")
	pf.StringVar(&cfg.EnvFile, "env-file", cfg.EnvFile, "dotenv file loaded before reading the environment")
	pf.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory holding sync-state.json (default: $HOME/.rowship)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	pf.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write JSON logs to this file, rotated by size")

	f := root.Flags()
	f.StringVar(&cfg.ServiceURL, "service-url", cfg.ServiceURL, "base URL of the remote service")
	f.StringVar(&cfg.Username, "username", cfg.Username, "remote service username")
	f.StringVar(&cfg.Password, "password", cfg.Password, "remote service password (prefer ROWSHIP_PASSWORD)")
	f.IntVar(&cfg.UserID, "user-id", cfg.UserID, "id_utente sent with existence checks")

	f.StringVar(&cfg.DBDriver, "db-driver", cfg.DBDriver, "local database driver (mysql, sqlite3)")
	f.StringVar(&cfg.DBHost, "db-host", cfg.DBHost, "database host")
	f.IntVar(&cfg.DBPort, "db-port", cfg.DBPort, "database port")
	f.StringVar(&cfg.DBUser, "db-user", cfg.DBUser, "database user")
	f.StringVar(&cfg.DBPassword, "db-password", cfg.DBPassword, "database password (prefer ROWSHIP_DB_PASSWORD)")
	f.StringVar(&cfg.DBName, "db-name", cfg.DBName, "database name")
	f.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "SQLite database file (db-driver=sqlite3)")

	f.StringVar(&cfg.CatalogPath, "catalog", cfg.CatalogPath, "table to remote object mapping (.json or .toml)")
	f.BoolVar(&cfg.Edit, "edit", cfg.Edit, "update records that already exist remotely (implies --full-resync)")
	f.BoolVar(&cfg.FullResync, "full-resync", cfg.FullResync, "read every table from the start")
	f.StringVar(&cfg.Checkpoint, "checkpoint", cfg.Checkpoint, "when to save progress: run (at the end) or table (after every table)")
	f.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP timeout")

	f.BoolVar(&cfg.Watch, "watch", cfg.Watch, "keep running passes until interrupted")
	f.DurationVar(&cfg.PollInterval, "poll", cfg.PollInterval, "pause between passes in watch mode")
	f.StringVar(&cfg.PushgatewayURL, "pushgateway-url", cfg.PushgatewayURL, "push run metrics to this Prometheus Pushgateway")

	root.AddCommand(newStateCommand(&cfg))

	if err := root.Execute(); err != nil {
		bootstrapLogger.Error().Err(err).Msg("rowship")
		os.Exit(1)
	}
}

// loadConfig applies, in increasing precedence, the config file, the
// dotenv file and the environment, leaving explicitly set flags alone.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	} else if cfgPath != "" {
		return fmt.Errorf("config file %s not found", cfgPath)
	}

	if err := cliconfig.LoadEnvFile(cfg.EnvFile); err != nil {
		return err
	}
	return cliconfig.ApplyEnvConfig(cfg, changed)
}
