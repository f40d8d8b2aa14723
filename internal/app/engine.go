package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/bft-labs/rowship/internal/domain"
	"github.com/bft-labs/rowship/internal/ports"
	"github.com/bft-labs/rowship/internal/transcode"
)

// SaveTimeout bounds the final state save, which runs even after the pass
// context has been canceled.
const SaveTimeout = 10 * time.Second

// CheckpointMode selects when state is written during a pass.
type CheckpointMode string

const (
	// CheckpointRun saves once, when the pass ends.
	CheckpointRun CheckpointMode = "run"
	// CheckpointTable also saves after every completed table.
	CheckpointTable CheckpointMode = "table"
)

// EngineConfig contains configuration for a sync pass.
type EngineConfig struct {
	// FullResync starts every table from watermark 0.
	FullResync bool
	// AllowEdit updates remote records that already exist instead of skipping them.
	AllowEdit bool
	// Checkpoint controls intermediate state saves.
	Checkpoint CheckpointMode

	Username string
	Password string

	// Clock defaults to time.Now.
	Clock ports.Clock
}

// TableReport counts what happened to one table during a pass.
type TableReport struct {
	Table     string
	Object    string
	Fetched   int
	Created   int
	Edited    int
	Skipped   int
	Warnings  int
	Watermark int64
}

// Migrated returns the number of rows confirmed by the remote service.
func (t TableReport) Migrated() int {
	return t.Created + t.Edited + t.Skipped
}

// Report summarizes a pass.
type Report struct {
	RunID    string
	Tables   []TableReport
	Duration time.Duration
}

// Migrated returns the number of confirmed rows across all tables.
func (r Report) Migrated() int {
	n := 0
	for _, t := range r.Tables {
		n += t.Migrated()
	}
	return n
}

// Engine migrates new rows of each table to its remote object.
// Rows are sent one at a time in ascending key order; the first failure
// ends the pass and everything confirmed before it is kept.
type Engine struct {
	config     EngineConfig
	source     ports.RowSource
	remote     ports.RemoteClient
	transcoder *transcode.Transcoder
	stateRepo  ports.StateRepository
	logger     ports.Logger
	observer   ports.SyncObserver
}

// NewEngine creates an engine with the given dependencies.
// observer may be nil.
func NewEngine(
	config EngineConfig,
	source ports.RowSource,
	remote ports.RemoteClient,
	transcoder *transcode.Transcoder,
	stateRepo ports.StateRepository,
	logger ports.Logger,
	observer ports.SyncObserver,
) *Engine {
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.Checkpoint == "" {
		config.Checkpoint = CheckpointRun
	}
	if transcoder == nil {
		transcoder = transcode.Default()
	}
	return &Engine{
		config:     config,
		source:     source,
		remote:     remote,
		transcoder: transcoder,
		stateRepo:  stateRepo,
		logger:     logger,
		observer:   observer,
	}
}

// Run executes one pass over tables, in order.
// State is saved when the pass ends, whether it succeeded or not; a save
// failure is returned together with the pass error.
func (e *Engine) Run(ctx context.Context, tables []domain.TableMapping) (Report, error) {
	start := e.config.Clock()
	report := Report{RunID: uuid.NewString()}
	runID := ports.String("run_id", report.RunID)

	state, err := e.stateRepo.Load(ctx)
	if err != nil {
		return report, fmt.Errorf("load state: %w", err)
	}

	e.logger.Info("sync started",
		runID,
		ports.Int("tables", len(tables)),
		ports.Bool("full_resync", e.config.FullResync),
		ports.Bool("allow_edit", e.config.AllowEdit),
	)

	runErr := e.run(ctx, state, tables, &report, runID)

	state.LastRunAt = e.config.Clock()
	state.LastError = ""
	if runErr != nil {
		state.LastError = runErr.Error()
	}
	if err := e.save(state); err != nil {
		err = fmt.Errorf("save state: %w", err)
		if runErr == nil {
			runErr = err
		} else {
			runErr = multierror.Append(runErr, err)
		}
	}

	report.Duration = e.config.Clock().Sub(start)
	if e.observer != nil {
		e.observer.OnRunFinished(runErr, report.Duration)
	}

	if runErr != nil {
		e.logger.Error("sync failed",
			runID,
			ports.Err(runErr),
			ports.Int("migrated", report.Migrated()),
			ports.Duration("duration", report.Duration),
		)
		return report, runErr
	}
	e.logger.Info("sync finished",
		runID,
		ports.Int("migrated", report.Migrated()),
		ports.Duration("duration", report.Duration),
	)
	return report, nil
}

func (e *Engine) run(ctx context.Context, state *domain.State, tables []domain.TableMapping, report *Report, runID ports.Field) error {
	tokens := NewTokenSource(state, e.remote, e.config.Username, e.config.Password, e.config.Clock, e.logger)

	// Log in before touching any table so bad credentials fail fast.
	if _, err := tokens.Current(ctx); err != nil {
		return err
	}

	for _, m := range tables {
		tr, err := e.syncTable(ctx, state, tokens, m, runID)
		report.Tables = append(report.Tables, tr)
		if err != nil {
			return err
		}

		e.logger.Info("table synced",
			runID,
			ports.String("table", m.Table),
			ports.Int("fetched", tr.Fetched),
			ports.Int("created", tr.Created),
			ports.Int("edited", tr.Edited),
			ports.Int("skipped", tr.Skipped),
			ports.Int64("watermark", tr.Watermark),
		)

		if e.config.Checkpoint == CheckpointTable {
			if err := e.save(state); err != nil {
				e.logger.Warn("checkpoint save failed", runID, ports.String("table", m.Table), ports.Err(err))
			}
		}
	}
	return nil
}

func (e *Engine) syncTable(ctx context.Context, state *domain.State, tokens *TokenSource, m domain.TableMapping, runID ports.Field) (TableReport, error) {
	tr := TableReport{Table: m.Table, Object: m.Object}

	after := state.Watermark(m.Table)
	if e.config.FullResync {
		after = 0
	}

	rows, err := e.source.FetchAfter(ctx, m.Table, after)
	if err != nil {
		tr.Watermark = state.Watermark(m.Table)
		return tr, fmt.Errorf("fetch %s: %w", m.Table, err)
	}
	tr.Fetched = len(rows)
	e.logger.Debug("fetched rows", runID, ports.String("table", m.Table), ports.Int64("after", after), ports.Int("rows", len(rows)))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			tr.Watermark = state.Watermark(m.Table)
			return tr, err
		}
		outcome, warnings, err := e.syncRow(ctx, tokens, m, row, runID)
		tr.Warnings += warnings
		if err != nil {
			tr.Watermark = state.Watermark(m.Table)
			return tr, err
		}

		switch outcome {
		case domain.OutcomeCreated:
			tr.Created++
		case domain.OutcomeEdited:
			tr.Edited++
		case domain.OutcomeSkipped:
			tr.Skipped++
		}

		key, _ := row.Key()
		if state.AdvanceWatermark(m.Table, key) && e.observer != nil {
			e.observer.OnWatermark(m.Table, key)
		}
	}

	tr.Watermark = state.Watermark(m.Table)
	return tr, nil
}

func (e *Engine) syncRow(ctx context.Context, tokens *TokenSource, m domain.TableMapping, row domain.Row, runID ports.Field) (domain.Outcome, int, error) {
	key, err := row.Key()
	if err != nil {
		return domain.OutcomeRejected, 0, fmt.Errorf("table %s: %w", m.Table, err)
	}

	transcoded, warnings := e.transcoder.Transcode(row)
	for _, w := range warnings {
		e.logger.Warn("value left unconverted",
			runID,
			ports.String("table", m.Table),
			ports.Int64("pk", key),
			ports.String("rule", w.Rule),
			ports.String("column", w.Column),
			ports.Err(w.Err),
		)
	}

	outcome, err := e.remote.Upsert(ctx, tokens.Current, m, row, transcoded, e.config.AllowEdit)
	if err != nil {
		return domain.OutcomeRejected, len(warnings), fmt.Errorf("table %s pk %d: %w", m.Table, key, err)
	}
	if e.observer != nil {
		e.observer.OnRow(m.Table, outcome, len(warnings))
	}
	if !outcome.Succeeded() {
		return outcome, len(warnings), fmt.Errorf("%w: table %s pk %d", domain.ErrRowRejected, m.Table, key)
	}

	e.logger.Debug("row migrated",
		runID,
		ports.String("table", m.Table),
		ports.Int64("pk", key),
		ports.String("outcome", outcome.String()),
	)
	return outcome, len(warnings), nil
}

// save writes state on a context of its own so a canceled pass still
// records the rows it confirmed.
func (e *Engine) save(state *domain.State) error {
	ctx, cancel := context.WithTimeout(context.Background(), SaveTimeout)
	defer cancel()
	return e.stateRepo.Save(ctx, state)
}
