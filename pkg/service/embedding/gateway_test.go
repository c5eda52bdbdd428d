package embedding_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/m-mizutani/gollem"
	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gerri/pkg/domain/types"
	"github.com/secmon-lab/gerri/pkg/service/embedding"
)

type mockLLMClient struct {
	generateEmbeddingFn func(ctx context.Context, dimension int, input []string) ([][]float64, error)
}

func (m *mockLLMClient) NewSession(ctx context.Context, options ...gollem.SessionOption) (gollem.Session, error) {
	return nil, nil
}

func (m *mockLLMClient) GenerateEmbedding(ctx context.Context, dimension int, input []string) ([][]float64, error) {
	if m.generateEmbeddingFn != nil {
		return m.generateEmbeddingFn(ctx, dimension, input)
	}
	vectors := make([][]float64, len(input))
	for i := range input {
		vec := make([]float64, dimension)
		vec[0] = 0.5
		vectors[i] = vec
	}
	return vectors, nil
}

func TestGateway_New(t *testing.T) {
	t.Run("requires an LLM client", func(t *testing.T) {
		_, err := embedding.New(nil)
		gt.Error(t, err)
	})

	t.Run("reports requested dimension before first call", func(t *testing.T) {
		g, err := embedding.New(&mockLLMClient{}, embedding.WithDimension(32))
		gt.NoError(t, err).Required()
		gt.Value(t, g.Dimension()).Equal(32)
	})
}

func TestGateway_Embed(t *testing.T) {
	t.Run("returns one vector per input in input order", func(t *testing.T) {
		// The vector's first element encodes the input's numeric suffix so
		// positions can be checked after concurrent batches land.
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				vectors := make([][]float64, len(input))
				for i, text := range input {
					n, err := strconv.Atoi(text)
					if err != nil {
						return nil, err
					}
					vec := make([]float64, dimension)
					vec[0] = float64(n)
					vectors[i] = vec
				}
				return vectors, nil
			},
		}

		g, err := embedding.New(llm,
			embedding.WithDimension(4),
			embedding.WithBatchSize(3),
			embedding.WithParallelism(2),
		)
		gt.NoError(t, err).Required()

		texts := make([]string, 10)
		for i := range texts {
			texts[i] = strconv.Itoa(i)
		}

		vectors, err := g.Embed(context.Background(), texts)
		gt.NoError(t, err).Required()
		gt.Array(t, vectors).Length(10).Required()
		for i, vec := range vectors {
			gt.Array(t, vec).Length(4).Required()
			gt.Value(t, vec[0]).Equal(float32(i))
		}
	})

	t.Run("splits inputs into batches of configured size", func(t *testing.T) {
		var mu sync.Mutex
		var batchSizes []int
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				mu.Lock()
				batchSizes = append(batchSizes, len(input))
				mu.Unlock()
				vectors := make([][]float64, len(input))
				for i := range input {
					vectors[i] = make([]float64, dimension)
				}
				return vectors, nil
			},
		}

		g, err := embedding.New(llm, embedding.WithBatchSize(4))
		gt.NoError(t, err).Required()

		_, err = g.Embed(context.Background(), make([]string, 10))
		gt.NoError(t, err).Required()

		gt.Array(t, batchSizes).Length(3).Required()
		var total int
		for _, n := range batchSizes {
			total += n
		}
		gt.Value(t, total).Equal(10)
	})

	t.Run("empty input yields empty output without a backend call", func(t *testing.T) {
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				t.Error("backend must not be called for empty input")
				return nil, nil
			},
		}
		g, err := embedding.New(llm)
		gt.NoError(t, err).Required()

		vectors, err := g.Embed(context.Background(), nil)
		gt.NoError(t, err).Required()
		gt.Array(t, vectors).Length(0)
	})

	t.Run("backend failure aborts with embedding error", func(t *testing.T) {
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				return nil, errors.New("backend down")
			},
		}
		g, err := embedding.New(llm)
		gt.NoError(t, err).Required()

		_, err = g.Embed(context.Background(), []string{"a"})
		gt.Error(t, err).Is(types.ErrEmbedding)
	})

	t.Run("count mismatch fails with embedding error", func(t *testing.T) {
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				return [][]float64{make([]float64, dimension)}, nil
			},
		}
		g, err := embedding.New(llm)
		gt.NoError(t, err).Required()

		_, err = g.Embed(context.Background(), []string{"a", "b"})
		gt.Error(t, err).Is(types.ErrEmbedding)
	})

	t.Run("dimension locks at first call", func(t *testing.T) {
		dims := []int{8, 8, 16}
		var call int
		var mu sync.Mutex
		llm := &mockLLMClient{
			generateEmbeddingFn: func(ctx context.Context, dimension int, input []string) ([][]float64, error) {
				mu.Lock()
				d := dims[call]
				call++
				mu.Unlock()
				vectors := make([][]float64, len(input))
				for i := range input {
					vectors[i] = make([]float64, d)
				}
				return vectors, nil
			},
		}

		g, err := embedding.New(llm, embedding.WithParallelism(1))
		gt.NoError(t, err).Required()

		_, err = g.Embed(context.Background(), []string{"a"})
		gt.NoError(t, err).Required()
		gt.Value(t, g.Dimension()).Equal(8)

		_, err = g.Embed(context.Background(), []string{"b"})
		gt.NoError(t, err).Required()

		_, err = g.Embed(context.Background(), []string{"c"})
		gt.Error(t, err).Is(types.ErrEmbedding)
	})
}
