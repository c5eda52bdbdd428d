package ingest

import (
	"encoding/json"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gerri/pkg/domain/model"
	"github.com/secmon-lab/gerri/pkg/domain/types"
)

// SaveDataset writes the dataset as a JSON array of record mappings. The
// array position of each record matches its vector position in the index.
func SaveDataset(path string, dataset model.Dataset) error {
	data, err := json.MarshalIndent(dataset, "", "  ")
	if err != nil {
		return goerr.Wrap(err, "failed to encode dataset", goerr.V("rows", dataset.Rows()))
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return goerr.Wrap(err, "failed to write dataset file", goerr.V("path", path))
	}
	return nil
}

// LoadDataset reads a dataset persisted by SaveDataset. Record key order is
// taken from the document, so reloaded records serialize exactly as they
// did before saving.
func LoadDataset(path string) (model.Dataset, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(types.ErrIngestion, "failed to read dataset file",
			goerr.V("path", path),
			goerr.V("error", err.Error()),
		)
	}

	var dataset model.Dataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		return nil, goerr.Wrap(types.ErrIngestion, "failed to parse dataset file",
			goerr.V("path", path),
			goerr.V("error", err.Error()),
		)
	}

	if err := dataset.Verify(); err != nil {
		return nil, goerr.Wrap(types.ErrDataIntegrity, "reloaded dataset is inconsistent",
			goerr.V("path", path),
			goerr.V("error", err.Error()),
		)
	}
	return dataset, nil
}
