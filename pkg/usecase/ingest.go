package usecase

import (
	"context"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gerri/pkg/service/index"
	"github.com/secmon-lab/gerri/pkg/service/ingest"
	"github.com/secmon-lab/gerri/pkg/utils/logging"
)

// IngestUseCase runs the full ingestion workflow: normalize a tabular
// source, build the vector index with observable progress, and persist
// both the index and the dataset for later reload.
type IngestUseCase struct {
	index *index.Index
}

// NewIngestUseCase creates a new IngestUseCase
func NewIngestUseCase(idx *index.Index) *IngestUseCase {
	return &IngestUseCase{index: idx}
}

// IngestOption holds options for one ProcessAndIndex run
type IngestOption struct {
	Input       string
	IndexPath   string // empty skips index persistence
	DatasetPath string // empty skips dataset persistence
	Progress    index.ProgressFunc
}

// IngestResult reports what was ingested
type IngestResult struct {
	Rows      int
	Dimension int
}

// ProcessAndIndex normalizes the source, re-verifies the normalization
// invariant, builds a fresh index generation, and persists artifacts when
// paths are configured. A failure at any step leaves the previous
// generation and any previously persisted artifacts untouched.
func (uc *IngestUseCase) ProcessAndIndex(ctx context.Context, opts IngestOption) (*IngestResult, error) {
	logger := logging.From(ctx)

	dataset, err := ingest.Normalize(opts.Input)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to normalize source", goerr.V("input", opts.Input))
	}
	logger.Info("source normalized", "input", opts.Input, "rows", dataset.Rows())

	if err := dataset.Verify(); err != nil {
		return nil, goerr.Wrap(err, "normalized dataset failed verification")
	}

	if err := uc.index.Build(ctx, dataset, opts.Progress); err != nil {
		return nil, goerr.Wrap(err, "failed to build index", goerr.V("rows", dataset.Rows()))
	}
	logger.Info("index built", "rows", uc.index.Count(), "dimension", uc.index.Dimension())

	if opts.DatasetPath != "" {
		if err := ingest.SaveDataset(opts.DatasetPath, dataset); err != nil {
			return nil, goerr.Wrap(err, "failed to persist dataset", goerr.V("path", opts.DatasetPath))
		}
		logger.Info("dataset persisted", "path", opts.DatasetPath)
	}
	if opts.IndexPath != "" {
		if err := uc.index.Save(opts.IndexPath); err != nil {
			return nil, goerr.Wrap(err, "failed to persist index", goerr.V("path", opts.IndexPath))
		}
		logger.Info("index persisted", "path", opts.IndexPath)
	}

	return &IngestResult{
		Rows:      dataset.Rows(),
		Dimension: uc.index.Dimension(),
	}, nil
}
