package index

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gerri/pkg/domain/interfaces"
	"github.com/secmon-lab/gerri/pkg/domain/model"
	"github.com/secmon-lab/gerri/pkg/domain/types"
)

// ProgressFunc observes index construction. It is called once after each
// vector insertion with (completed, total); the last call has
// completed == total.
type ProgressFunc func(completed, total int)

// generation is one complete, internally consistent pairing of vectors and
// the dataset they index. Generations are immutable after construction;
// replacement happens by atomic pointer swap so in-flight searches see
// either the old generation to completion or the new one entirely.
type generation struct {
	dimension int
	vectors   [][]float32
	dataset   model.Dataset
}

// Index is an exact flat nearest-neighbor index over embedded records,
// ordered by Euclidean distance. Searches are safe to run concurrently
// with each other and with rebuilds.
type Index struct {
	embedder interfaces.Embedder
	gen      atomic.Pointer[generation]
}

var _ interfaces.Index = &Index{}

// New creates an empty index over the given embedder
func New(embedder interfaces.Embedder) *Index {
	return &Index{embedder: embedder}
}

// Build embeds the whole dataset in one batch and constructs a fresh
// generation, inserting vectors one at a time while reporting progress.
// An empty dataset fails with types.ErrEmptyDataset. On any failure the
// previous generation stays in place; no partial index is retained.
func (x *Index) Build(ctx context.Context, dataset model.Dataset, progress ProgressFunc) error {
	if dataset.Rows() == 0 {
		return goerr.Wrap(types.ErrEmptyDataset, "cannot build index")
	}
	if err := dataset.Verify(); err != nil {
		return goerr.Wrap(types.ErrDataIntegrity, "dataset failed pre-build verification",
			goerr.V("error", err.Error()),
		)
	}

	texts, err := dataset.Serialize()
	if err != nil {
		return goerr.Wrap(err, "failed to serialize dataset for embedding")
	}

	embedded, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return goerr.Wrap(err, "failed to embed dataset", goerr.V("rows", dataset.Rows()))
	}
	if len(embedded) != dataset.Rows() {
		return goerr.Wrap(types.ErrEmbedding, "embedding count differs from dataset",
			goerr.V("expected", dataset.Rows()),
			goerr.V("actual", len(embedded)),
		)
	}

	gen := &generation{
		dimension: len(embedded[0]),
		vectors:   make([][]float32, 0, len(embedded)),
		dataset:   dataset,
	}
	total := len(embedded)
	for i, vec := range embedded {
		if len(vec) != gen.dimension {
			return goerr.Wrap(types.ErrEmbedding, "vector dimension differs within build",
				goerr.V(types.RowIndexKey, i),
				goerr.V("expected", gen.dimension),
				goerr.V("actual", len(vec)),
			)
		}
		gen.vectors = append(gen.vectors, vec)
		if progress != nil {
			progress(i+1, total)
		}
	}

	x.gen.Store(gen)
	return nil
}

// Append embeds additional records and swaps in a new generation holding
// the old vectors plus the new ones. The index must already be built and
// carry its dataset. Concurrent appends retry against the generation that
// won; no append is lost.
func (x *Index) Append(ctx context.Context, records []model.Record) error {
	if x.gen.Load() == nil {
		return goerr.Wrap(types.ErrIndexNotBuilt, "cannot append to an unbuilt index")
	}
	if len(records) == 0 {
		return nil
	}

	texts, err := model.Dataset(records).Serialize()
	if err != nil {
		return goerr.Wrap(err, "failed to serialize appended records")
	}
	embedded, err := x.embedder.Embed(ctx, texts)
	if err != nil {
		return goerr.Wrap(err, "failed to embed appended records", goerr.V("rows", len(records)))
	}

	for {
		gen := x.gen.Load()
		if gen == nil {
			return goerr.Wrap(types.ErrIndexNotBuilt, "cannot append to an unbuilt index")
		}

		extended := make(model.Dataset, 0, len(gen.dataset)+len(records))
		extended = append(extended, gen.dataset...)
		extended = append(extended, records...)
		if err := extended.Verify(); err != nil {
			return goerr.Wrap(types.ErrDataIntegrity, "appended records break dataset invariants",
				goerr.V("error", err.Error()),
			)
		}

		vectors := make([][]float32, 0, len(gen.vectors)+len(embedded))
		vectors = append(vectors, gen.vectors...)
		for i, vec := range embedded {
			if len(vec) != gen.dimension {
				return goerr.Wrap(types.ErrEmbedding, "appended vector dimension differs from generation",
					goerr.V(types.RowIndexKey, i),
					goerr.V("expected", gen.dimension),
					goerr.V("actual", len(vec)),
				)
			}
			vectors = append(vectors, vec)
		}

		next := &generation{
			dimension: gen.dimension,
			vectors:   vectors,
			dataset:   extended,
		}
		if x.gen.CompareAndSwap(gen, next) {
			return nil
		}
	}
}

// Count returns the number of indexed vectors (0 before build/load)
func (x *Index) Count() int {
	if gen := x.gen.Load(); gen != nil {
		return len(gen.vectors)
	}
	return 0
}

// Dimension returns the generation's vector dimension (0 before build/load)
func (x *Index) Dimension() int {
	if gen := x.gen.Load(); gen != nil {
		return gen.dimension
	}
	return 0
}

// AttachDataset re-associates records with a loaded vector set by position.
// A length mismatch is accepted here and surfaces lazily as
// types.ErrDataIntegrity when Search tries to map hits back to records.
func (x *Index) AttachDataset(dataset model.Dataset) error {
	gen := x.gen.Load()
	if gen == nil {
		return goerr.Wrap(types.ErrIndexNotBuilt, "cannot attach dataset to an unbuilt index")
	}
	if err := dataset.Verify(); err != nil {
		return goerr.Wrap(types.ErrDataIntegrity, "dataset failed verification",
			goerr.V("error", err.Error()),
		)
	}

	x.gen.Store(&generation{
		dimension: gen.dimension,
		vectors:   gen.vectors,
		dataset:   dataset,
	})
	return nil
}

// Search embeds the query text and returns up to topK records ordered by
// ascending L2 distance. Ties keep insertion order. Asking for more results
// than are indexed returns everything available without error.
func (x *Index) Search(ctx context.Context, query string, topK int) ([]model.Record, error) {
	gen := x.gen.Load()
	if gen == nil {
		return nil, goerr.Wrap(types.ErrIndexNotBuilt, "build or load the index before searching")
	}
	if topK <= 0 {
		return nil, goerr.New("topK must be positive", goerr.V("top_k", topK))
	}
	if len(gen.dataset) != len(gen.vectors) {
		return nil, goerr.Wrap(types.ErrDataIntegrity, "vector count differs from dataset length",
			goerr.V("vectors", len(gen.vectors)),
			goerr.V("records", len(gen.dataset)),
		)
	}

	embedded, err := x.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed query")
	}
	if len(embedded) != 1 {
		return nil, goerr.Wrap(types.ErrEmbedding, "expected exactly one query vector",
			goerr.V("actual", len(embedded)),
		)
	}
	qvec := embedded[0]
	if len(qvec) != gen.dimension {
		return nil, goerr.Wrap(types.ErrEmbedding, "query dimension differs from index",
			goerr.V("expected", gen.dimension),
			goerr.V("actual", len(qvec)),
		)
	}

	type hit struct {
		pos  int
		dist float64
	}
	hits := make([]hit, len(gen.vectors))
	for i, vec := range gen.vectors {
		hits[i] = hit{pos: i, dist: squaredL2(qvec, vec)}
	}

	// Stable sort keeps insertion order for equal distances.
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].dist < hits[j].dist
	})

	if topK > len(hits) {
		topK = len(hits)
	}
	results := make([]model.Record, topK)
	for i := 0; i < topK; i++ {
		results[i] = gen.dataset[hits[i].pos]
	}
	return results, nil
}

// squaredL2 computes squared Euclidean distance, which orders hits
// identically to L2 without the square root.
func squaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
