package model_test

import (
	"encoding/json"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/secmon-lab/gerri/pkg/domain/model"
)

func TestRecord_NewRecord(t *testing.T) {
	t.Run("creates record from parallel slices", func(t *testing.T) {
		rec, err := model.NewRecord([]string{"name", "age"}, []string{"alice", "30"})
		gt.NoError(t, err).Required()
		gt.Value(t, rec.Len()).Equal(2)

		v, ok := rec.Get("name")
		gt.Bool(t, ok).True()
		gt.Value(t, v).Equal("alice")

		_, ok = rec.Get("missing")
		gt.Bool(t, ok).False()
	})

	t.Run("rejects length mismatch", func(t *testing.T) {
		_, err := model.NewRecord([]string{"a", "b"}, []string{"1"})
		gt.Error(t, err)
	})

	t.Run("rejects duplicate columns", func(t *testing.T) {
		_, err := model.NewRecord([]string{"a", "a"}, []string{"1", "2"})
		gt.Error(t, err)
	})

	t.Run("rejects empty column name", func(t *testing.T) {
		_, err := model.NewRecord([]string{"a", ""}, []string{"1", "2"})
		gt.Error(t, err)
	})
}

func TestRecord_Serialize(t *testing.T) {
	t.Run("keys follow column order", func(t *testing.T) {
		rec, err := model.NewRecord([]string{"z", "a", "m"}, []string{"1", "2", "3"})
		gt.NoError(t, err).Required()

		text, err := rec.Serialize()
		gt.NoError(t, err).Required()
		gt.Value(t, text).Equal(`{"z":"1","a":"2","m":"3"}`)
	})

	t.Run("identical records serialize identically", func(t *testing.T) {
		a, err := model.NewRecord([]string{"name", "city"}, []string{"alice", "tokyo"})
		gt.NoError(t, err).Required()
		b, err := model.NewRecord([]string{"name", "city"}, []string{"alice", "tokyo"})
		gt.NoError(t, err).Required()

		ta, err := a.Serialize()
		gt.NoError(t, err).Required()
		tb, err := b.Serialize()
		gt.NoError(t, err).Required()
		gt.Value(t, ta).Equal(tb)
	})

	t.Run("escapes special characters", func(t *testing.T) {
		rec, err := model.NewRecord([]string{"note"}, []string{`say "hi"`})
		gt.NoError(t, err).Required()

		text, err := rec.Serialize()
		gt.NoError(t, err).Required()

		var decoded map[string]string
		gt.NoError(t, json.Unmarshal([]byte(text), &decoded)).Required()
		gt.Value(t, decoded["note"]).Equal(`say "hi"`)
	})
}

func TestRecord_JSONRoundTrip(t *testing.T) {
	t.Run("round trip preserves column order", func(t *testing.T) {
		orig, err := model.NewRecord([]string{"z", "a", "m"}, []string{"1", "", "3"})
		gt.NoError(t, err).Required()

		data, err := json.Marshal(orig)
		gt.NoError(t, err).Required()

		var restored model.Record
		gt.NoError(t, json.Unmarshal(data, &restored)).Required()

		gt.Value(t, restored.Columns()).Equal([]string{"z", "a", "m"})

		origText, err := orig.Serialize()
		gt.NoError(t, err).Required()
		restoredText, err := restored.Serialize()
		gt.NoError(t, err).Required()
		gt.Value(t, restoredText).Equal(origText)
	})

	t.Run("rejects non-string values", func(t *testing.T) {
		var rec model.Record
		gt.Error(t, json.Unmarshal([]byte(`{"age":30}`), &rec))
	})

	t.Run("rejects non-object documents", func(t *testing.T) {
		var rec model.Record
		gt.Error(t, json.Unmarshal([]byte(`["a","b"]`), &rec))
	})
}

func TestDataset_Verify(t *testing.T) {
	mustRecord := func(cols, vals []string) model.Record {
		rec, err := model.NewRecord(cols, vals)
		gt.NoError(t, err).Required()
		return rec
	}

	t.Run("accepts uniform columns", func(t *testing.T) {
		ds := model.Dataset{
			mustRecord([]string{"a", "b"}, []string{"1", "2"}),
			mustRecord([]string{"a", "b"}, []string{"3", "4"}),
		}
		gt.NoError(t, ds.Verify())
		gt.Value(t, ds.Rows()).Equal(2)
	})

	t.Run("accepts empty dataset", func(t *testing.T) {
		gt.NoError(t, model.Dataset{}.Verify())
	})

	t.Run("rejects differing column sets", func(t *testing.T) {
		ds := model.Dataset{
			mustRecord([]string{"a", "b"}, []string{"1", "2"}),
			mustRecord([]string{"a", "c"}, []string{"3", "4"}),
		}
		gt.Error(t, ds.Verify())
	})

	t.Run("rejects differing column counts", func(t *testing.T) {
		ds := model.Dataset{
			mustRecord([]string{"a", "b"}, []string{"1", "2"}),
			mustRecord([]string{"a"}, []string{"3"}),
		}
		gt.Error(t, ds.Verify())
	})
}

func TestDataset_Serialize(t *testing.T) {
	rec1, err := model.NewRecord([]string{"name"}, []string{"alice"})
	gt.NoError(t, err).Required()
	rec2, err := model.NewRecord([]string{"name"}, []string{"bob"})
	gt.NoError(t, err).Required()

	texts, err := model.Dataset{rec1, rec2}.Serialize()
	gt.NoError(t, err).Required()
	gt.Array(t, texts).Length(2).Required()
	gt.Value(t, texts[0]).Equal(`{"name":"alice"}`)
	gt.Value(t, texts[1]).Equal(`{"name":"bob"}`)
}
