package app

import (
	"context"
	"time"

	"github.com/bft-labs/rowship/internal/domain"
	"github.com/bft-labs/rowship/internal/ports"
)

// DefaultPollInterval is the pause between passes in watch mode.
const DefaultPollInterval = time.Minute

// Runner executes one sync pass. *Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, tables []domain.TableMapping) (Report, error)
}

// LoopConfig contains configuration for the watch loop.
type LoopConfig struct {
	PollInterval   time.Duration
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Loop runs passes until its context is canceled.
type Loop struct {
	config  LoopConfig
	runner  Runner
	tables  func() ([]domain.TableMapping, error)
	trigger <-chan struct{}
	logger  ports.Logger

	// AfterPass, if set, is called after every pass attempt, including one
	// cut short by cancellation.
	AfterPass func(ctx context.Context, report Report, err error)
}

// NewLoop creates a watch loop. tables is called before every pass so catalog
// edits take effect without a restart. trigger may be nil; a signal on it
// starts the next pass early.
func NewLoop(config LoopConfig, runner Runner, tables func() ([]domain.TableMapping, error), trigger <-chan struct{}, logger ports.Logger) *Loop {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.BackoffInitial <= 0 {
		config.BackoffInitial = DefaultBackoffInitial
	}
	if config.BackoffMax <= 0 {
		config.BackoffMax = DefaultBackoffMax
	}
	return &Loop{
		config:  config,
		runner:  runner,
		tables:  tables,
		trigger: trigger,
		logger:  logger,
	}
}

// Run executes passes back to back, waiting PollInterval after a clean pass
// and a growing backoff after a failed one. It returns ctx.Err() on shutdown.
func (l *Loop) Run(ctx context.Context) error {
	b := newBackoff(l.config.BackoffInitial, l.config.BackoffMax)

	for {
		report, err := l.pass(ctx)
		if l.AfterPass != nil {
			l.AfterPass(ctx, report, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		wait := l.config.PollInterval
		if err != nil {
			wait = b.Next()
			l.logger.Warn("pass failed, retrying", ports.Err(err), ports.Duration("backoff", wait))
		} else {
			b.Reset()
		}

		if err := l.wait(ctx, wait); err != nil {
			return err
		}
	}
}

func (l *Loop) pass(ctx context.Context) (Report, error) {
	tables, err := l.tables()
	if err != nil {
		return Report{}, err
	}
	return l.runner.Run(ctx, tables)
}

func (l *Loop) wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
	case <-l.trigger:
		l.logger.Info("catalog changed, starting pass")
	}
	return nil
}
