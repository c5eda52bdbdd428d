package model

import (
	"github.com/m-mizutani/goerr/v2"
)

// Dataset is an ordered sequence of normalized Records. A Dataset pairs 1:1
// with one vector index generation: the vector at position i corresponds
// exactly to the record at position i.
type Dataset []Record

// Rows returns the number of records in the dataset
func (d Dataset) Rows() int {
	return len(d)
}

// Verify re-checks the normalization hard invariant across the whole
// dataset: every record is internally consistent and every record carries
// the same columns in the same order. Violations are never repaired here.
func (d Dataset) Verify() error {
	if len(d) == 0 {
		return nil
	}

	first := d[0].columns
	for i, rec := range d {
		if err := rec.Verify(); err != nil {
			return goerr.Wrap(err, "invalid record", goerr.V("row_index", i))
		}
		if len(rec.columns) != len(first) {
			return goerr.New("record column count differs from dataset",
				goerr.V("row_index", i),
				goerr.V("expected", len(first)),
				goerr.V("actual", len(rec.columns)),
			)
		}
		for j, c := range rec.columns {
			if c != first[j] {
				return goerr.New("record columns differ from dataset",
					goerr.V("row_index", i),
					goerr.V("expected", first[j]),
					goerr.V("actual", c),
				)
			}
		}
	}
	return nil
}

// Serialize returns the canonical JSON text of every record, in dataset
// order. These texts are the embedding inputs for an index build.
func (d Dataset) Serialize() ([]string, error) {
	texts := make([]string, len(d))
	for i, rec := range d {
		text, err := rec.Serialize()
		if err != nil {
			return nil, goerr.Wrap(err, "failed to serialize record", goerr.V("row_index", i))
		}
		texts[i] = text
	}
	return texts, nil
}
