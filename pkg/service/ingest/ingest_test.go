package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gerri/pkg/domain/types"
	"github.com/secmon-lab/gerri/pkg/service/ingest"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source.csv")
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600)).Required()
	return path
}

func TestNormalize(t *testing.T) {
	t.Run("reads CSV with header", func(t *testing.T) {
		path := writeCSV(t, "name,city\nalice,tokyo\nbob,osaka\n")

		dataset, err := ingest.Normalize(path)
		gt.NoError(t, err).Required()
		gt.Value(t, dataset.Rows()).Equal(2)

		v, ok := dataset[0].Get("name")
		gt.Bool(t, ok).True()
		gt.Value(t, v).Equal("alice")
		v, ok = dataset[1].Get("city")
		gt.Bool(t, ok).True()
		gt.Value(t, v).Equal("osaka")
	})

	t.Run("missing cells become empty strings", func(t *testing.T) {
		path := writeCSV(t, "a,b,c\n1,2\n")

		dataset, err := ingest.Normalize(path)
		gt.NoError(t, err).Required()
		gt.Value(t, dataset.Rows()).Equal(1)

		v, ok := dataset[0].Get("c")
		gt.Bool(t, ok).True()
		gt.Value(t, v).Equal("")
	})

	t.Run("datetime cells canonicalize to date", func(t *testing.T) {
		path := writeCSV(t, "event,when\nlaunch,2024-03-15T09:30:00Z\nreview,2024/04/01\nplain,not a date\n")

		dataset, err := ingest.Normalize(path)
		gt.NoError(t, err).Required()

		v, _ := dataset[0].Get("when")
		gt.Value(t, v).Equal("2024-03-15")
		v, _ = dataset[1].Get("when")
		gt.Value(t, v).Equal("2024-04-01")
		v, _ = dataset[2].Get("when")
		gt.Value(t, v).Equal("not a date")
	})

	t.Run("cells keep leading zeros and commas", func(t *testing.T) {
		path := writeCSV(t, "id,amount\n007,\"1,234\"\n")

		dataset, err := ingest.Normalize(path)
		gt.NoError(t, err).Required()

		v, _ := dataset[0].Get("id")
		gt.Value(t, v).Equal("007")
		v, _ = dataset[0].Get("amount")
		gt.Value(t, v).Equal("1,234")
	})

	t.Run("missing file fails with ingestion error", func(t *testing.T) {
		_, err := ingest.Normalize(filepath.Join(t.TempDir(), "nope.csv"))
		gt.Error(t, err).Is(types.ErrIngestion)
	})

	t.Run("header-only file fails with ingestion error", func(t *testing.T) {
		path := writeCSV(t, "a,b\n")
		_, err := ingest.Normalize(path)
		gt.Error(t, err).Is(types.ErrIngestion)
	})

	t.Run("empty file fails with ingestion error", func(t *testing.T) {
		path := writeCSV(t, "")
		_, err := ingest.Normalize(path)
		gt.Error(t, err).Is(types.ErrIngestion)
	})

	t.Run("unsupported extension fails with ingestion error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "source.txt")
		gt.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0600)).Required()
		_, err := ingest.Normalize(path)
		gt.Error(t, err).Is(types.ErrIngestion)
	})
}

func TestFromRows(t *testing.T) {
	t.Run("normalized dataset passes verification", func(t *testing.T) {
		dataset, err := ingest.FromRows(
			[]string{" name ", "joined"},
			[][]string{
				{"alice", "2023-01-02 10:00:00"},
				{"bob"},
			},
		)
		gt.NoError(t, err).Required()
		gt.NoError(t, dataset.Verify())

		gt.Value(t, dataset[0].Columns()).Equal([]string{"name", "joined"})
		v, _ := dataset[0].Get("joined")
		gt.Value(t, v).Equal("2023-01-02")
		v, _ = dataset[1].Get("joined")
		gt.Value(t, v).Equal("")
	})

	t.Run("zero rows fail with ingestion error", func(t *testing.T) {
		_, err := ingest.FromRows([]string{"a"}, nil)
		gt.Error(t, err).Is(types.ErrIngestion)
	})
}

func TestDatasetPersistence(t *testing.T) {
	t.Run("save and load round trip", func(t *testing.T) {
		orig, err := ingest.FromRows(
			[]string{"z", "a"},
			[][]string{{"1", "2"}, {"3", "4"}},
		)
		gt.NoError(t, err).Required()

		path := filepath.Join(t.TempDir(), "data.json")
		gt.NoError(t, ingest.SaveDataset(path, orig)).Required()

		loaded, err := ingest.LoadDataset(path)
		gt.NoError(t, err).Required()
		gt.Value(t, loaded.Rows()).Equal(2)

		origTexts, err := orig.Serialize()
		gt.NoError(t, err).Required()
		loadedTexts, err := loaded.Serialize()
		gt.NoError(t, err).Required()
		gt.Value(t, loadedTexts).Equal(origTexts)
	})

	t.Run("load of missing file fails with ingestion error", func(t *testing.T) {
		_, err := ingest.LoadDataset(filepath.Join(t.TempDir(), "nope.json"))
		gt.Error(t, err).Is(types.ErrIngestion)
	})

	t.Run("load of malformed JSON fails with ingestion error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data.json")
		gt.NoError(t, os.WriteFile(path, []byte("{broken"), 0600)).Required()
		_, err := ingest.LoadDataset(path)
		gt.Error(t, err).Is(types.ErrIngestion)
	})
}
