package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeYAML(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}
	return path
}

const validYAML = `
data:
  dump_dir: "/data/dumps"
  table_dir: "/data/tables"
  index_dir: "/data/index"
  metadata_path: "/data/info.json"

languages:
  primary: "cs, SK"
  secondary: "en,de,en"

database:
  dsn: "postgres://u:p@localhost:5432/testdb"
  max_conns: 10
  min_conns: 2

build:
  workers: 8
  chunk_size: 1000
  unit_timeout: "90s"
  max_retries: 5

resolver:
  backend: "cluster"
  strip_namespaces: false
  suggest_min_similarity: 0.6

log:
  level: "debug"
  format: "text"
`

// validConfig returns a Config that passes validation before Validate parses the raw lists.
func validConfig() *Config {
	return &Config{
		Languages: LanguagesConfig{PrimaryRaw: "cs,fi,sk"},
		Build: BuildConfig{
			Workers:              4,
			ChunkSize:            50000,
			UnitTimeout:          2 * time.Minute,
			MaxRetries:           3,
			RetryInitialInterval: 500 * time.Millisecond,
			RetryMaxInterval:     30 * time.Second,
		},
		Resolver: ResolverConfig{
			Backend:              BackendLocal,
			SuggestMinSimilarity: 0.75,
			TableCacheSize:       16,
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Data
	if cfg.Data.DumpDir != "/data/dumps" {
		t.Errorf("data.dump_dir = %q", cfg.Data.DumpDir)
	}
	if cfg.Data.MetadataPath != "/data/info.json" {
		t.Errorf("data.metadata_path = %q", cfg.Data.MetadataPath)
	}

	// Languages
	if got := cfg.Languages.Primary; len(got) != 2 || got[0] != "cs" || got[1] != "sk" {
		t.Errorf("languages.primary = %v, want [cs sk]", got)
	}
	if got := cfg.Languages.Secondary; len(got) != 2 || got[0] != "en" || got[1] != "de" {
		t.Errorf("languages.secondary = %v, want [en de]", got)
	}
	if !cfg.Languages.IsPrimary("sk") || cfg.Languages.IsPrimary("en") {
		t.Error("IsPrimary mismatch")
	}

	// Database
	if cfg.Database.MaxConns != 10 {
		t.Errorf("database.max_conns = %d, want 10", cfg.Database.MaxConns)
	}

	// Build
	if cfg.Build.Workers != 8 {
		t.Errorf("build.workers = %d, want 8", cfg.Build.Workers)
	}
	if cfg.Build.UnitTimeout != 90*time.Second {
		t.Errorf("build.unit_timeout = %v, want 90s", cfg.Build.UnitTimeout)
	}
	if cfg.Build.RetryMaxInterval != 30*time.Second {
		t.Errorf("build.retry_max_interval = %v, want 30s (default)", cfg.Build.RetryMaxInterval)
	}

	// Resolver
	if cfg.Resolver.Backend != BackendCluster {
		t.Errorf("resolver.backend = %q", cfg.Resolver.Backend)
	}
	if cfg.Resolver.StripNamespaces {
		t.Error("resolver.strip_namespaces should be false")
	}
	if cfg.Resolver.SuggestMinSimilarity != 0.6 {
		t.Errorf("resolver.suggest_min_similarity = %v, want 0.6", cfg.Resolver.SuggestMinSimilarity)
	}

	// Log
	if cfg.Log.Format != "text" {
		t.Errorf("log.format = %q, want %q", cfg.Log.Format, "text")
	}
}

func TestLoad_ENVOverridesYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), validYAML)
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("BUILD_WORKERS", "2")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Build.Workers != 2 {
		t.Errorf("build.workers = %d, want 2 (ENV override)", cfg.Build.Workers)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log.level = %q, want %q (ENV override)", cfg.Log.Level, "warn")
	}
}

func TestLoad_NoFile_ENVOnly(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Resolver.Backend != BackendLocal {
		t.Errorf("resolver.backend = %q, want local (default)", cfg.Resolver.Backend)
	}
	if got := cfg.Languages.Primary; len(got) != 3 {
		t.Errorf("languages.primary = %v, want default cs,fi,sk", got)
	}
	if cfg.Languages.Secondary != nil {
		t.Errorf("languages.secondary = %v, want nil", cfg.Languages.Secondary)
	}
	if cfg.Build.ChunkSize != 50000 {
		t.Errorf("build.chunk_size = %d, want 50000 (default)", cfg.Build.ChunkSize)
	}
}

func TestLoadFile_ExplicitPathNotFound(t *testing.T) {
	if _, err := LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeYAML(t, t.TempDir(), `{{{invalid yaml`)
	t.Setenv("CONFIG_PATH", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no primary", mutate: func(c *Config) { c.Languages.PrimaryRaw = " , " }, wantErr: true},
		{name: "bad primary code", mutate: func(c *Config) { c.Languages.PrimaryRaw = "cs,e n" }, wantErr: true},
		{name: "bad secondary code", mutate: func(c *Config) { c.Languages.SecondaryRaw = "1de" }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.Build.Workers = 0 }, wantErr: true},
		{name: "zero chunk size", mutate: func(c *Config) { c.Build.ChunkSize = 0 }, wantErr: true},
		{name: "zero unit timeout", mutate: func(c *Config) { c.Build.UnitTimeout = 0 }, wantErr: true},
		{name: "max interval below initial", mutate: func(c *Config) { c.Build.RetryMaxInterval = time.Millisecond }, wantErr: true},
		{name: "unknown backend", mutate: func(c *Config) { c.Resolver.Backend = "elastic" }, wantErr: true},
		{name: "similarity above one", mutate: func(c *Config) { c.Resolver.SuggestMinSimilarity = 1.5 }, wantErr: true},
		{name: "similarity negative", mutate: func(c *Config) { c.Resolver.SuggestMinSimilarity = -0.1 }, wantErr: true},
		{name: "similarity boundary", mutate: func(c *Config) { c.Resolver.SuggestMinSimilarity = 1 }},
		{name: "zero table cache", mutate: func(c *Config) { c.Resolver.TableCacheSize = 0 }, wantErr: true},
		{name: "cluster without dsn", mutate: func(c *Config) { c.Resolver.Backend = BackendCluster }, wantErr: true},
		{
			name: "cluster with dsn",
			mutate: func(c *Config) {
				c.Resolver.Backend = BackendCluster
				c.Database.DSN = "postgres://localhost/wiki"
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestParseLanguages(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{raw: "", want: nil},
		{raw: "cs,fi,sk", want: []string{"cs", "fi", "sk"}},
		{raw: " CS , fi,,cs ", want: []string{"cs", "fi"}},
		{raw: "zh-yue,be_x_old", want: []string{"zh-yue", "be_x_old"}},
	}
	for _, tt := range tests {
		got, err := ParseLanguages(tt.raw)
		if err != nil {
			t.Fatalf("ParseLanguages(%q): unexpected error: %v", tt.raw, err)
		}
		if len(got) != len(tt.want) {
			t.Fatalf("ParseLanguages(%q) = %v, want %v", tt.raw, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ParseLanguages(%q)[%d] = %q, want %q", tt.raw, i, got[i], tt.want[i])
			}
		}
	}

	if _, err := ParseLanguages("cs,!!"); err == nil {
		t.Error("expected error for invalid code")
	}
}
