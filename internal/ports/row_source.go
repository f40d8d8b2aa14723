package ports

import (
	"context"

	"github.com/bft-labs/rowship/internal/domain"
)

// RowSource reads rows from local tables.
type RowSource interface {
	// PrimaryKey returns the name of the table's primary key column.
	PrimaryKey(ctx context.Context, table string) (string, error)

	// FetchAfter returns all rows whose primary key is strictly greater than
	// after, in ascending primary key order.
	FetchAfter(ctx context.Context, table string, after int64) ([]domain.Row, error)
}
