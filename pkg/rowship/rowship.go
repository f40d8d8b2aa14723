package rowship

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	fsAdapter "github.com/bft-labs/rowship/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/rowship/internal/adapters/http"
	logAdapter "github.com/bft-labs/rowship/internal/adapters/log"
	sqlAdapter "github.com/bft-labs/rowship/internal/adapters/sql"
	"github.com/bft-labs/rowship/internal/app"
	"github.com/bft-labs/rowship/internal/catalog"
	"github.com/bft-labs/rowship/internal/domain"
	"github.com/bft-labs/rowship/internal/transcode"
)

// Re-exported domain types.
type (
	// TableMapping associates a local table with its remote object.
	TableMapping = domain.TableMapping
	// ObjectPolicy holds per-object key and payload exceptions.
	ObjectPolicy = domain.ObjectPolicy
	// Report summarizes a pass.
	Report = app.Report
	// TableReport counts what happened to one table.
	TableReport = app.TableReport
)

// Errors returned by Run, wrapped with context.
var (
	ErrAuth          = domain.ErrAuth
	ErrTransport     = domain.ErrTransport
	ErrProtocol      = domain.ErrProtocol
	ErrRowRejected   = domain.ErrRowRejected
	ErrBadKey        = domain.ErrBadKey
	ErrInvalidConfig = domain.ErrInvalidConfig
)

// Default values applied by Config.SetDefaults.
const (
	DefaultUserID      = 2
	DefaultHTTPTimeout = 30 * time.Second
)

// Config holds the settings for a Syncer.
type Config struct {
	ServiceURL string
	Username   string
	Password   string
	// UserID is sent as id_utente with existence checks.
	UserID int

	// Driver is "mysql" or "sqlite3". Ignored when WithRowSource is used.
	Driver string
	DSN    string

	// StateDir holds sync-state.json. Ignored when WithStateRepository is used.
	StateDir string

	FullResync bool
	AllowEdit  bool
	// SaveEveryTable also saves state after each completed table.
	SaveEveryTable bool

	HTTPTimeout time.Duration
}

// SetDefaults fills zero fields with default values.
func (c *Config) SetDefaults() {
	if c.UserID == 0 {
		c.UserID = DefaultUserID
	}
	if c.HTTPTimeout == 0 {
		c.HTTPTimeout = DefaultHTTPTimeout
	}
	if c.StateDir == "" {
		c.StateDir = "."
	}
	c.ServiceURL = strings.TrimRight(c.ServiceURL, "/")
}

// validate reports missing required settings.
func (c Config) validate(o options) error {
	var missing []string
	if c.ServiceURL == "" {
		missing = append(missing, "ServiceURL")
	}
	if c.Username == "" {
		missing = append(missing, "Username")
	}
	if o.source == nil && (c.Driver == "" || c.DSN == "") {
		missing = append(missing, "Driver/DSN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrInvalidConfig, strings.Join(missing, ", "))
	}
	return nil
}

// Syncer runs migration passes.
type Syncer struct {
	config Config
	opts   options
}

// New creates a Syncer. No connection is made until Run.
func New(cfg Config, opts ...Option) (*Syncer, error) {
	cfg.SetDefaults()

	o := options{
		httpClient: &http.Client{Timeout: cfg.HTTPTimeout},
		logger:     logAdapter.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.validate(o); err != nil {
		return nil, err
	}
	return &Syncer{config: cfg, opts: o}, nil
}

// Run executes one pass over tables, in order.
func (s *Syncer) Run(ctx context.Context, tables []TableMapping) (Report, error) {
	source := s.opts.source
	if source == nil {
		src, err := sqlAdapter.Open(ctx, s.config.Driver, s.config.DSN)
		if err != nil {
			return Report{}, err
		}
		defer src.Close()
		source = src
	}

	repo := s.opts.stateRepo
	if repo == nil {
		repo = fsAdapter.NewStateFileRepository(s.config.StateDir)
	}

	checkpoint := app.CheckpointRun
	if s.config.SaveEveryTable {
		checkpoint = app.CheckpointTable
	}

	client := httpAdapter.NewClient(s.opts.httpClient, s.config.ServiceURL, s.config.UserID, s.opts.logger)
	transcoder := s.opts.transcoder
	if transcoder == nil {
		transcoder = transcode.Default()
	}

	engine := app.NewEngine(app.EngineConfig{
		FullResync: s.config.FullResync,
		AllowEdit:  s.config.AllowEdit,
		Checkpoint: checkpoint,
		Username:   s.config.Username,
		Password:   s.config.Password,
		Clock:      s.opts.clock,
	}, source, client, transcoder, repo, s.opts.logger, s.opts.observer)

	return engine.Run(ctx, tables)
}

// LoadCatalog reads a table mapping file (.json or .toml).
func LoadCatalog(path string) ([]TableMapping, error) {
	return catalog.Load(path)
}
