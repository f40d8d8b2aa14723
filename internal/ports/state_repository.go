package ports

import (
	"context"

	"github.com/bft-labs/rowship/internal/domain"
)

// StateRepository handles state persistence between runs.
// Implementations persist state to disk (or other storage) atomically.
type StateRepository interface {
	// Load retrieves the last saved state.
	// Returns an empty state and nil error if no state exists.
	// Returns an error only for actual read failures.
	Load(ctx context.Context) (*domain.State, error)

	// Save persists the current state atomically.
	Save(ctx context.Context, state *domain.State) error
}
