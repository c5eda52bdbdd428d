package embedding

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/gerri/pkg/domain/interfaces"
	"github.com/secmon-lab/gerri/pkg/domain/types"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultDimension is the requested embedding vector width
	DefaultDimension = 768

	// DefaultBatchSize is the number of texts sent per backend request
	DefaultBatchSize = 64

	defaultParallelism = 4
)

// Gateway is the thin contract to the embedding provider. It batches texts
// through a gollem LLM client and guarantees one fixed-width vector per
// input text, in input order. The dimension is locked at the first
// successful call and never changes for the gateway's lifetime.
type Gateway struct {
	llm         gollem.LLMClient
	dimension   int
	batchSize   int
	parallelism int

	mu          sync.Mutex
	established int
}

var _ interfaces.Embedder = &Gateway{}

// Option is a functional option for Gateway configuration
type Option func(*Gateway)

// WithDimension overrides the requested vector dimension
func WithDimension(dim int) Option {
	return func(g *Gateway) {
		if dim > 0 {
			g.dimension = dim
		}
	}
}

// WithBatchSize overrides the per-request batch size
func WithBatchSize(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.batchSize = n
		}
	}
}

// WithParallelism overrides the number of concurrent backend requests
func WithParallelism(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.parallelism = n
		}
	}
}

// New creates a Gateway over the provided LLM client
func New(llm gollem.LLMClient, opts ...Option) (*Gateway, error) {
	if llm == nil {
		return nil, goerr.New("LLM client is required")
	}

	g := &Gateway{
		llm:         llm,
		dimension:   DefaultDimension,
		batchSize:   DefaultBatchSize,
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Dimension returns the vector dimension. Before the first Embed call it
// reports the requested dimension; afterwards the established one.
func (g *Gateway) Dimension() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.established > 0 {
		return g.established
	}
	return g.dimension
}

// Embed converts texts into vectors, one per input in input order. Batches
// run concurrently but results land at their input positions. Any backend
// failure aborts the whole call.
func (g *Gateway) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors := make([][]float32, len(texts))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelism)

	for start := 0; start < len(texts); start += g.batchSize {
		end := min(start+g.batchSize, len(texts))
		eg.Go(func() error {
			batch := texts[start:end]
			embedded, err := g.llm.GenerateEmbedding(ctx, g.dimension, batch)
			if err != nil {
				return goerr.Wrap(types.ErrEmbedding, "embedding backend request failed",
					goerr.V("offset", start),
					goerr.V("batch_size", len(batch)),
					goerr.V("error", err.Error()),
				)
			}
			if len(embedded) != len(batch) {
				return goerr.Wrap(types.ErrEmbedding, "embedding count mismatch",
					goerr.V("expected", len(batch)),
					goerr.V("actual", len(embedded)),
				)
			}

			for i, vec := range embedded {
				if err := g.verifyDimension(len(vec)); err != nil {
					return err
				}
				converted := make([]float32, len(vec))
				for j, v := range vec {
					converted[j] = float32(v)
				}
				vectors[start+i] = converted
			}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// verifyDimension locks the dimension on first sight and rejects any later
// deviation. Changing embedding models requires a new gateway.
func (g *Gateway) verifyDimension(n int) error {
	if n == 0 {
		return goerr.Wrap(types.ErrEmbedding, "embedding backend returned an empty vector")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.established == 0 {
		g.established = n
		return nil
	}
	if n != g.established {
		return goerr.Wrap(types.ErrEmbedding, "embedding dimension changed",
			goerr.V("established", g.established),
			goerr.V("actual", n),
		)
	}
	return nil
}
