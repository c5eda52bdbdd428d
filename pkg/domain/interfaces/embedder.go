package interfaces

import "context"

// Embedder converts texts into fixed-dimension vectors. Implementations
// must return one vector per input text, in the same order, and keep the
// dimension constant for their lifetime.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimension. It is fixed at the first
	// successful Embed call.
	Dimension() int
}
