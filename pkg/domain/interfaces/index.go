package interfaces

import (
	"context"

	"github.com/secmon-lab/gerri/pkg/domain/model"
)

// Index is the nearest-neighbor search contract consumed by the query
// pipeline. Search must be safely callable from concurrent queries.
type Index interface {
	// Search returns up to topK records ordered by ascending distance to
	// the query's embedding. Distance ties keep insertion order.
	Search(ctx context.Context, query string, topK int) ([]model.Record, error)

	// Count returns the number of indexed vectors (0 before build/load).
	Count() int
}
