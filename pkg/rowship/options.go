package rowship

import (
	"time"

	"github.com/bft-labs/rowship/internal/ports"
	"github.com/bft-labs/rowship/internal/transcode"
)

// HTTPClient is the interface for making HTTP requests.
// *http.Client satisfies this interface.
type HTTPClient = ports.HTTPClient

// Logger is the interface for structured logging.
type Logger = ports.Logger

// LogField represents a structured log field.
type LogField = ports.Field

// RowSource reads rows above a watermark from local tables.
type RowSource = ports.RowSource

// StateRepository persists sync progress between runs.
type StateRepository = ports.StateRepository

// Observer is notified of every row outcome and of the end of each pass.
type Observer = ports.SyncObserver

// Rule rewrites matching columns before a row is sent.
type Rule = transcode.Rule

// DefaultRules returns the conversions applied when WithRules is not used.
func DefaultRules() []Rule {
	return transcode.DefaultRules()
}

// Option configures optional behavior of a Syncer.
type Option func(*options)

type options struct {
	httpClient ports.HTTPClient
	logger     ports.Logger
	observer   ports.SyncObserver
	source     ports.RowSource
	stateRepo  ports.StateRepository
	transcoder *transcode.Transcoder
	clock      ports.Clock
}

// WithHTTPClient sets a custom HTTP client for the remote service.
// If not provided, a default client with the configured timeout is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver registers an observer, such as a metrics recorder.
// Calls are made synchronously from the sync goroutine.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithRowSource replaces the database connection built from Config.Driver
// and Config.DSN.
func WithRowSource(source RowSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithStateRepository replaces the state file in Config.StateDir.
func WithStateRepository(repo StateRepository) Option {
	return func(o *options) {
		o.stateRepo = repo
	}
}

// WithRules replaces the default value conversions.
func WithRules(rules ...Rule) Option {
	return func(o *options) {
		o.transcoder = transcode.New(rules...)
	}
}

// WithClock sets the time source used for token expiry.
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.clock = clock
	}
}
