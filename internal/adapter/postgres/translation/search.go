package translation

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/wikititles/internal/adapter/postgres"
	"github.com/heartmarshall/wikititles/internal/domain"
	"github.com/heartmarshall/wikititles/internal/titleindex"
)

// ---------------------------------------------------------------------------
// Resolver ports
// ---------------------------------------------------------------------------

// Query returns the distinct (page id, title) of lang pages whose original
// title contains every token of text, sorted by page id then title.
func (s *Store) Query(ctx context.Context, lang, text string) ([]domain.TitleMatch, error) {
	tokens := titleindex.Tokens(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	q := builder.Select("DISTINCT page_id", "original_title").
		From(entity).
		Where(sq.Eq{"source_lang": lang}).
		Where("original_tokens @> ?", tokens).
		OrderBy("page_id", "original_title")

	return s.collectMatches(ctx, q, lang)
}

// Suggest returns the title of lang closest to text within the length window
// of the shared scorer.
func (s *Store) Suggest(ctx context.Context, lang, text string) (string, bool, error) {
	sg := titleindex.NewSuggester(titleindex.Normalize(text), s.minSimilarity)
	lo, hi := sg.LengthWindow()

	query, args, err := builder.Select("original_norm", "MIN(original_title)").
		From(entity).
		Where(sq.Eq{"source_lang": lang}).
		Where("char_length(original_norm) BETWEEN ? AND ?", lo, hi).
		GroupBy("original_norm").
		ToSql()
	if err != nil {
		return "", false, fmt.Errorf("build suggest query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return "", false, postgres.MapError(err, entity, "suggest "+lang)
	}
	defer rows.Close()

	for rows.Next() {
		var norm, title string
		if err := rows.Scan(&norm, &title); err != nil {
			return "", false, postgres.MapError(err, entity, "suggest "+lang)
		}
		sg.Offer(norm, title)
	}
	if err := rows.Err(); err != nil {
		return "", false, postgres.MapError(err, entity, "suggest "+lang)
	}

	title, ok := sg.Result()
	return title, ok, nil
}

// HasPair reports whether any row was built for pair.
func (s *Store) HasPair(ctx context.Context, pair domain.Pair) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM translations WHERE source_lang = $1 AND target_lang = $2)`,
		pair.Source, pair.Target,
	).Scan(&exists)
	if err != nil {
		return false, postgres.MapError(err, entity, pair.String())
	}
	return exists, nil
}

// Lookup returns the translated titles of pair for each page id.
func (s *Store) Lookup(ctx context.Context, pair domain.Pair, ids []int64) (map[int64][]string, error) {
	out := make(map[int64][]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query, args, err := builder.Select("page_id", "translated").
		From(entity).
		Where(sq.Eq{"source_lang": pair.Source, "target_lang": pair.Target}).
		Where("page_id = ANY(?)", ids).
		OrderBy("page_id", "translated").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build lookup query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, entity, pair.String())
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var title string
		if err := rows.Scan(&id, &title); err != nil {
			return nil, postgres.MapError(err, entity, pair.String())
		}
		out[id] = append(out[id], title)
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, entity, pair.String())
	}
	return out, nil
}

// SearchLinks returns rows of pair whose translated title contains every
// token of text, sorted by page id then title.
func (s *Store) SearchLinks(ctx context.Context, pair domain.Pair, text string) ([]domain.LinkMatch, error) {
	tokens := titleindex.Tokens(text)
	if len(tokens) == 0 {
		return nil, nil
	}

	q := builder.Select("DISTINCT page_id", "translated").
		From(entity).
		Where(sq.Eq{"source_lang": pair.Source, "target_lang": pair.Target}).
		Where("translated_tokens @> ?", tokens).
		OrderBy("page_id", "translated")

	matches, err := s.collectMatches(ctx, q, pair.String())
	if err != nil {
		return nil, err
	}
	out := make([]domain.LinkMatch, len(matches))
	for i, m := range matches {
		out[i] = domain.LinkMatch(m)
	}
	return out, nil
}

// Titles returns original titles of lang pages by id.
func (s *Store) Titles(ctx context.Context, lang string, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	q := builder.Select("DISTINCT ON (page_id) page_id", "original_title").
		From(entity).
		Where(sq.Eq{"source_lang": lang}).
		Where("page_id = ANY(?)", ids).
		OrderBy("page_id", "original_title")

	matches, err := s.collectMatches(ctx, q, lang)
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		out[m.PageID] = m.Title
	}
	return out, nil
}

func (s *Store) collectMatches(ctx context.Context, q sq.SelectBuilder, key string) ([]domain.TitleMatch, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, entity, key)
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TitleMatch, error) {
		var m domain.TitleMatch
		err := row.Scan(&m.PageID, &m.Title)
		return m, err
	})
	if err != nil {
		return nil, postgres.MapError(err, entity, key)
	}
	return out, nil
}
