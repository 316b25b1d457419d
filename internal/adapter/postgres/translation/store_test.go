package translation_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	postgres "github.com/heartmarshall/wikititles/internal/adapter/postgres"
	"github.com/heartmarshall/wikititles/internal/adapter/postgres/testhelper"
	"github.com/heartmarshall/wikititles/internal/adapter/postgres/translation"
	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/titleindex"
)

func newStore(t *testing.T) *translation.Store {
	t.Helper()
	pool := testhelper.SetupTestDB(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return translation.New(log, pool, postgres.NewTxManager(pool), 2, titleindex.DefaultMinSimilarity)
}

// uniqueLang returns a language code no other test uses, so tests can share
// the container database.
func uniqueLang() string {
	return "t" + uuid.New().String()[:8]
}

func records(runID uuid.UUID, src, tgt string, rows ...[2]string) []domain.TranslationRecord {
	out := make([]domain.TranslationRecord, len(rows))
	for i, r := range rows {
		out[i] = domain.TranslationRecord{
			RunID: runID, PageID: int64(i + 1),
			OriginalTitle: r[0], Translated: r[1],
			SourceLang: src, TargetLang: tgt,
		}
	}
	return out
}

func TestStore_WriteBatchAndSearch(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	src, tgt := uniqueLang(), uniqueLang()
	pair := domain.Pair{Source: src, Target: tgt}
	recs := records(uuid.New(), src, tgt,
		[2]string{"Bratislava", "Bratislava"},
		[2]string{"Bratislavský kraj", "Bratislava Region"},
		[2]string{"Mestá na Slovensku", "Category:Cities in Slovakia"},
	)
	require.NoError(t, s.WriteBatch(ctx, pair, recs))

	ok, err := s.HasPair(ctx, pair)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.HasPair(ctx, pair.Reverse())
	require.NoError(t, err)
	assert.False(t, ok)

	matches, err := s.Query(ctx, src, "bratislava")
	require.NoError(t, err)
	assert.Equal(t, []domain.TitleMatch{
		{PageID: 1, Title: "Bratislava"},
		{PageID: 2, Title: "Bratislavský kraj"},
	}, matches)

	links, err := s.Lookup(ctx, pair, []int64{2, 3, 99})
	require.NoError(t, err)
	assert.Equal(t, map[int64][]string{
		2: {"Bratislava Region"},
		3: {"Category:Cities in Slovakia"},
	}, links)

	found, err := s.SearchLinks(ctx, pair, "cities slovakia")
	require.NoError(t, err)
	assert.Equal(t, []domain.LinkMatch{{PageID: 3, Title: "Category:Cities in Slovakia"}}, found)

	titles, err := s.Titles(ctx, src, []int64{3})
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{3: "Mestá na Slovensku"}, titles)

	sugg, ok, err := s.Suggest(ctx, src, "Bratislavaa")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Bratislava", sugg)
}

func TestStore_WriteBatchReplacesPair(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	src, tgt := uniqueLang(), uniqueLang()
	pair := domain.Pair{Source: src, Target: tgt}

	require.NoError(t, s.WriteBatch(ctx, pair, records(uuid.New(), src, tgt, [2]string{"Praha", "Prague"})))
	require.NoError(t, s.WriteBatch(ctx, pair, records(uuid.New(), src, tgt, [2]string{"Brno", "Brno"})))

	got, err := s.Query(ctx, src, "praha")
	require.NoError(t, err)
	assert.Empty(t, got, "rows of a rebuilt pair are replaced")

	got, err = s.Query(ctx, src, "brno")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestStore_WriteBatchAtomic(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	src, tgt := uniqueLang(), uniqueLang()
	pair := domain.Pair{Source: src, Target: tgt}
	require.NoError(t, s.WriteBatch(ctx, pair, records(uuid.New(), src, tgt, [2]string{"Oulu", "Uleåborg"})))

	bad := records(uuid.New(), src, tgt,
		[2]string{"Turku", "Åbo"},
		[2]string{"Tampere", "Tammerfors"},
		[2]string{"Espoo", "Esbo\x00"},
	)
	require.Error(t, s.WriteBatch(ctx, pair, bad), "NUL bytes are rejected by postgres text")

	got, err := s.Query(ctx, src, "oulu")
	require.NoError(t, err)
	assert.Len(t, got, 1, "failed unit leaves previous rows intact")
	got, err = s.Query(ctx, src, "turku")
	require.NoError(t, err)
	assert.Empty(t, got, "no partial commit")
}

func TestStore_RecordRun(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	ctx := context.Background()

	started := time.Now().UTC().Add(time.Hour).Truncate(time.Microsecond)
	run := translation.RunSummary{ID: uuid.New(), StartedAt: started, Total: 4, Completed: 2, Skipped: 1, Failed: 1, Records: 10}
	require.NoError(t, s.RecordRun(ctx, run))

	run.FinishedAt = started.Add(time.Minute)
	run.Completed = 3
	require.NoError(t, s.RecordRun(ctx, run))

	got, err := s.LastRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, 3, got.Completed)
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))
}

func TestStore_SuspendResumeRefresh(t *testing.T) {
	s := newStore(t)
	pool := testhelper.SetupTestDB(t)
	ctx := context.Background()

	indexCount := func() int {
		var n int
		err := pool.QueryRow(ctx,
			`SELECT count(*) FROM pg_indexes WHERE tablename = 'translations' AND indexname LIKE '%_gin'`,
		).Scan(&n)
		require.NoError(t, err)
		return n
	}

	require.NoError(t, s.SuspendRefresh(ctx))
	assert.Equal(t, 0, indexCount())
	require.NoError(t, s.SuspendRefresh(ctx), "suspend is idempotent")

	src, tgt := uniqueLang(), uniqueLang()
	require.NoError(t, s.WriteBatch(ctx, domain.Pair{Source: src, Target: tgt},
		records(uuid.New(), src, tgt, [2]string{"Helsinki", "Helsingfors"})))

	require.NoError(t, s.ResumeRefresh(ctx))
	assert.Equal(t, 2, indexCount())

	got, err := s.Query(ctx, src, "helsinki")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
