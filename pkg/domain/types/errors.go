package types

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for the ingestion/indexing/query core. Callers match
// them with errors.Is; call sites attach context via goerr.Wrap.
var (
	// ErrIngestion indicates a missing, unreadable, or empty data source.
	ErrIngestion = goerr.New("ingestion failed")

	// ErrDataIntegrity indicates a broken invariant between normalized
	// records and indexed vectors. It is never auto-repaired.
	ErrDataIntegrity = goerr.New("data integrity violation")

	// ErrEmptyDataset indicates an index build was requested for a dataset
	// with no records.
	ErrEmptyDataset = goerr.New("dataset is empty")

	// ErrIndexNotBuilt indicates a search was requested before the index
	// was built or loaded.
	ErrIndexNotBuilt = goerr.New("vector index is not built")

	// ErrEmbedding indicates the embedding backend failed or returned an
	// inconsistent result.
	ErrEmbedding = goerr.New("embedding failed")

	// ErrGeneration indicates the generation backend failed before
	// completing its token stream.
	ErrGeneration = goerr.New("generation failed")
)

// Context keys for error values
const (
	SourcePathKey = "source_path"
	RowIndexKey   = "row_index"
	SessionIDKey  = "session_id"
)
