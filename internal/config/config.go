package config

import (
	"slices"
	"time"
)

// Config is the root application configuration.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Languages LanguagesConfig `yaml:"languages"`
	Database  DatabaseConfig  `yaml:"database"`
	Build     BuildConfig     `yaml:"build"`
	Resolver  ResolverConfig  `yaml:"resolver"`
	Log       LogConfig       `yaml:"log"`
}

// DataConfig holds on-disk locations of dumps and derived artifacts.
type DataConfig struct {
	DumpDir      string `yaml:"dump_dir"      env:"DATA_DUMP_DIR"      env-default:"./dumps"`
	TableDir     string `yaml:"table_dir"     env:"DATA_TABLE_DIR"     env-default:"./tables"`
	IndexDir     string `yaml:"index_dir"     env:"DATA_INDEX_DIR"     env-default:"./index"`
	MetadataPath string `yaml:"metadata_path" env:"DATA_METADATA_PATH" env-default:"./info.json"`
}

// LanguagesConfig holds the primary and secondary language lists.
type LanguagesConfig struct {
	PrimaryRaw   string `yaml:"primary"   env:"LANGUAGES_PRIMARY"   env-default:"cs,fi,sk"`
	SecondaryRaw string `yaml:"secondary" env:"LANGUAGES_SECONDARY"`

	// Primary is parsed from PrimaryRaw during validation.
	Primary []string `yaml:"-" env:"-"`
	// Secondary is parsed from SecondaryRaw during validation.
	// Empty means every language discovered during ingestion.
	Secondary []string `yaml:"-" env:"-"`
}

// IsPrimary reports whether lang has a Title Index.
func (c LanguagesConfig) IsPrimary(lang string) bool {
	return slices.Contains(c.Primary, lang)
}

// DatabaseConfig holds PostgreSQL connection settings for the cluster store.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// BuildConfig holds bulk build settings.
type BuildConfig struct {
	Workers              int           `yaml:"workers"                env:"BUILD_WORKERS"                env-default:"4"`
	ChunkSize            int           `yaml:"chunk_size"             env:"BUILD_CHUNK_SIZE"             env-default:"50000"`
	UnitTimeout          time.Duration `yaml:"unit_timeout"           env:"BUILD_UNIT_TIMEOUT"           env-default:"120s"`
	MaxRetries           uint64        `yaml:"max_retries"            env:"BUILD_MAX_RETRIES"            env-default:"3"`
	RetryInitialInterval time.Duration `yaml:"retry_initial_interval" env:"BUILD_RETRY_INITIAL_INTERVAL" env-default:"500ms"`
	RetryMaxInterval     time.Duration `yaml:"retry_max_interval"     env:"BUILD_RETRY_MAX_INTERVAL"     env-default:"30s"`
}

// Resolver backends.
const (
	BackendLocal   = "local"
	BackendCluster = "cluster"
)

// ResolverConfig holds translation lookup settings.
type ResolverConfig struct {
	Backend              string  `yaml:"backend"                env:"RESOLVER_BACKEND"                env-default:"local"`
	StripNamespaces      bool    `yaml:"strip_namespaces"       env:"RESOLVER_STRIP_NAMESPACES"       env-default:"true"`
	CollapseDuplicates   bool    `yaml:"collapse_duplicates"    env:"RESOLVER_COLLAPSE_DUPLICATES"    env-default:"true"`
	ShowUntranslated     bool    `yaml:"show_untranslated"      env:"RESOLVER_SHOW_UNTRANSLATED"      env-default:"false"`
	SuggestMinSimilarity float64 `yaml:"suggest_min_similarity" env:"RESOLVER_SUGGEST_MIN_SIMILARITY" env-default:"0.75"`
	TableCacheSize       int     `yaml:"table_cache_size"       env:"RESOLVER_TABLE_CACHE_SIZE"       env-default:"16"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}
