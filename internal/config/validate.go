package config

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/wikititles/internal/domain"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Languages.validate(); err != nil {
		return fmt.Errorf("languages: %w", err)
	}
	if err := c.Build.validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := c.Resolver.validate(); err != nil {
		return fmt.Errorf("resolver: %w", err)
	}
	if c.Resolver.Backend == BackendCluster && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required when resolver.backend is %q", BackendCluster)
	}
	return nil
}

func (l *LanguagesConfig) validate() error {
	primary, err := ParseLanguages(l.PrimaryRaw)
	if err != nil {
		return fmt.Errorf("primary: %w", err)
	}
	if len(primary) == 0 {
		return fmt.Errorf("at least one primary language is required")
	}
	secondary, err := ParseLanguages(l.SecondaryRaw)
	if err != nil {
		return fmt.Errorf("secondary: %w", err)
	}
	l.Primary = primary
	l.Secondary = secondary
	return nil
}

func (b *BuildConfig) validate() error {
	if b.Workers < 1 {
		return fmt.Errorf("workers must be >= 1 (got %d)", b.Workers)
	}
	if b.ChunkSize < 1 {
		return fmt.Errorf("chunk_size must be >= 1 (got %d)", b.ChunkSize)
	}
	if b.UnitTimeout <= 0 {
		return fmt.Errorf("unit_timeout must be > 0 (got %v)", b.UnitTimeout)
	}
	if b.RetryInitialInterval <= 0 || b.RetryMaxInterval < b.RetryInitialInterval {
		return fmt.Errorf("retry intervals must satisfy 0 < initial <= max (got %v, %v)",
			b.RetryInitialInterval, b.RetryMaxInterval)
	}
	return nil
}

func (r *ResolverConfig) validate() error {
	switch r.Backend {
	case BackendLocal, BackendCluster:
	default:
		return fmt.Errorf("backend must be %q or %q (got %q)", BackendLocal, BackendCluster, r.Backend)
	}
	if r.SuggestMinSimilarity < 0 || r.SuggestMinSimilarity > 1 {
		return fmt.Errorf("suggest_min_similarity must be in [0, 1] (got %v)", r.SuggestMinSimilarity)
	}
	if r.TableCacheSize < 1 {
		return fmt.Errorf("table_cache_size must be >= 1 (got %d)", r.TableCacheSize)
	}
	return nil
}

// ParseLanguages parses a comma-separated list of language codes (e.g. "cs,fi,sk").
// Codes are lowercased and deduplicated in order. An empty string returns a nil slice.
func ParseLanguages(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	langs := make([]string, 0, len(parts))
	seen := make(map[string]struct{}, len(parts))

	for _, p := range parts {
		code := domain.NormalizeLangCode(p)
		if code == "" {
			continue
		}
		if !domain.ValidLangCode(code) {
			return nil, fmt.Errorf("invalid language code %q", code)
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		langs = append(langs, code)
	}

	return langs, nil
}
