package usecase

import (
	"github.com/m-mizutani/gollem"
	"github.com/secmon-lab/gerri/pkg/domain/interfaces"
	"github.com/secmon-lab/gerri/pkg/service/index"
)

// UseCases bundles the core workflows: ingestion/indexing and
// retrieval-augmented querying.
type UseCases struct {
	Ingest *IngestUseCase
	Query  *QueryUseCase
}

type options struct {
	topK         int
	instructions string
}

// Option configures optional use case behavior
type Option func(*options)

// WithDefaultTopK sets the retrieval depth used when a query does not
// specify one.
func WithDefaultTopK(topK int) Option {
	return func(o *options) {
		if topK > 0 {
			o.topK = topK
		}
	}
}

// WithInstructions appends extra operator-supplied instruction text to the
// generation prompt.
func WithInstructions(text string) Option {
	return func(o *options) {
		o.instructions = text
	}
}

// New wires the use cases. The Query use case is only available when an
// LLM client and session repository are provided; Ingest only needs the
// index.
func New(idx *index.Index, sessions interfaces.SessionRepository, llmClient gollem.LLMClient, opts ...Option) *UseCases {
	o := &options{topK: DefaultTopK}
	for _, opt := range opts {
		opt(o)
	}

	uc := &UseCases{
		Ingest: NewIngestUseCase(idx),
	}
	if llmClient != nil && sessions != nil {
		// A typed nil *index.Index must not reach the interface field, or
		// the nil check in RunQuery would pass and Search would panic.
		var searchIndex interfaces.Index
		if idx != nil {
			searchIndex = idx
		}
		uc.Query = NewQueryUseCase(searchIndex, sessions, llmClient,
			WithDefaultTopK(o.topK),
			WithInstructions(o.instructions),
		)
	}
	return uc
}
