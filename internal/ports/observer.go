package ports

import (
	"time"

	"github.com/bft-labs/rowship/internal/domain"
)

// SyncObserver is notified as a pass progresses.
type SyncObserver interface {
	OnRow(table string, outcome domain.Outcome, warnings int)
	OnWatermark(table string, watermark int64)
	OnRunFinished(err error, duration time.Duration)
}
