package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gerri/pkg/domain/model"
	"github.com/secmon-lab/gerri/pkg/domain/types"
	"github.com/secmon-lab/gerri/pkg/utils/safe"
	"github.com/xuri/excelize/v2"
)

// Normalize reads a tabular source file and returns a normalized Dataset.
// The first row is the header; every following row becomes one Record.
// Normalization applies, in order: missing cells become empty strings,
// date/time cells become YYYY-MM-DD strings, and everything else is kept
// as a plain string. A missing, unreadable, or empty source fails with
// types.ErrIngestion.
func Normalize(path string) (model.Dataset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, goerr.Wrap(types.ErrIngestion, "source file is not readable",
			goerr.V(types.SourcePathKey, path),
			goerr.V("error", err.Error()),
		)
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, err = readExcel(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, goerr.Wrap(types.ErrIngestion, "unsupported source format",
			goerr.V(types.SourcePathKey, path),
		)
	}
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, goerr.Wrap(types.ErrIngestion, "source has no header row",
			goerr.V(types.SourcePathKey, path),
		)
	}

	dataset, err := FromRows(rows[0], rows[1:])
	if err != nil {
		return nil, goerr.Wrap(err, "failed to normalize source",
			goerr.V(types.SourcePathKey, path),
		)
	}
	return dataset, nil
}

// FromRows normalizes raw header+rows into a Dataset. Zero data rows fail
// with types.ErrIngestion.
func FromRows(header []string, rows [][]string) (model.Dataset, error) {
	if len(rows) == 0 {
		return nil, goerr.Wrap(types.ErrIngestion, "source yielded zero rows")
	}

	columns := make([]string, len(header))
	for i, col := range header {
		columns[i] = strings.TrimSpace(col)
	}

	dataset := make(model.Dataset, 0, len(rows))
	for i, row := range rows {
		values := make([]string, len(columns))
		for j := range columns {
			// Rows shorter than the header read as missing cells.
			if j < len(row) {
				values[j] = normalizeCell(row[j])
			}
		}

		rec, err := model.NewRecord(columns, values)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to build record", goerr.V(types.RowIndexKey, i))
		}
		dataset = append(dataset, rec)
	}

	return dataset, nil
}

// dateLayouts are the datetime shapes recognized during normalization.
// Anything matching one of them is canonicalized to YYYY-MM-DD.
var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

func normalizeCell(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return ""
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return v
}

func readExcel(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, goerr.Wrap(types.ErrIngestion, "failed to open Excel file",
			goerr.V(types.SourcePathKey, path),
			goerr.V("error", err.Error()),
		)
	}
	defer safe.Close(context.Background(), f)

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, goerr.Wrap(types.ErrIngestion, "Excel file has no sheets",
			goerr.V(types.SourcePathKey, path),
		)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, goerr.Wrap(types.ErrIngestion, "failed to read Excel rows",
			goerr.V(types.SourcePathKey, path),
			goerr.V("sheet", sheets[0]),
			goerr.V("error", err.Error()),
		)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	// #nosec G304 - path is expected to be provided by CLI argument
	f, err := os.Open(path)
	if err != nil {
		return nil, goerr.Wrap(types.ErrIngestion, "failed to open CSV file",
			goerr.V(types.SourcePathKey, path),
			goerr.V("error", err.Error()),
		)
	}
	defer safe.Close(context.Background(), f)

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(types.ErrIngestion, "failed to parse CSV",
				goerr.V(types.SourcePathKey, path),
				goerr.V("error", err.Error()),
			)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
