package metadata

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingOrCorrupt(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	assert.Equal(t, Info{}, Load(filepath.Join(dir, "nope.json")))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	assert.Equal(t, Info{}, Load(bad))
}

func TestSaveLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "sub", "info.json")
	want := Info{
		LastParse: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		RunID:     uuid.New(),
		AllLangs:  []string{"de", "en"},
	}
	require.NoError(t, Save(path, want))

	got := Load(path)
	assert.True(t, want.LastParse.Equal(got.LastParse))
	assert.Equal(t, want.RunID, got.RunID)
	assert.Equal(t, want.AllLangs, got.AllLangs)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMerge(t *testing.T) {
	t.Parallel()

	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := t1.Add(24 * time.Hour)

	info := Info{}.Merge(Update{At: t1, Langs: []string{"en", "de", "en"}, LinksParsed: true})
	assert.Equal(t, []string{"de", "en"}, info.AllLangs)
	assert.True(t, info.Has("en"))
	assert.False(t, info.Has("fr"))

	info = info.Merge(Update{At: t2, Langs: nil, LinksParsed: false})
	assert.Equal(t, t2, info.LastParse)
	assert.Equal(t, []string{"de", "en"}, info.AllLangs, "pages-only run keeps languages")

	info = info.Merge(Update{At: t2, Langs: []string{"fr"}, LinksParsed: true})
	assert.Equal(t, []string{"fr"}, info.AllLangs)
}

func TestMerge_PartialRunAddsLanguages(t *testing.T) {
	t.Parallel()

	info := Info{AllLangs: []string{"de", "en"}}

	info = info.Merge(Update{Langs: []string{"fr", "en"}, LinksParsed: true, Partial: true})
	assert.Equal(t, []string{"de", "en", "fr"}, info.AllLangs)

	info = info.Merge(Update{Langs: nil, LinksParsed: true, Partial: true})
	assert.Equal(t, []string{"de", "en", "fr"}, info.AllLangs)
}
