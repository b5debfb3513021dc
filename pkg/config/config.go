// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Corpus, Index, Search, Postgres, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Corpus   CorpusConfig   `yaml:"corpus"`
	Index    IndexConfig    `yaml:"index"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// Corpus sources.
const (
	SourceTREC     = "trec"
	SourcePostgres = "postgres"
)

// CorpusConfig says where documents come from and how they are tokenized.
type CorpusConfig struct {
	Source        string `yaml:"source"`
	Path          string `yaml:"path"`
	StopwordsPath string `yaml:"stopwordsPath"`
	IncludeTitle  bool   `yaml:"includeTitle"`
}

// IndexConfig controls the JSON export of a built index.
type IndexConfig struct {
	ExportPath string `yaml:"exportPath"`
	Compressed bool   `yaml:"compressed"`
	Format     string `yaml:"format"`
}

// BM25Config holds the ranking parameters.
type BM25Config struct {
	K1 float64 `yaml:"k1"`
	B  float64 `yaml:"b"`
}

// SearchConfig controls result limits, batch concurrency and ranking.
type SearchConfig struct {
	MaxResults       int        `yaml:"maxResults"`
	DefaultLimit     int        `yaml:"defaultLimit"`
	BatchConcurrency int        `yaml:"batchConcurrency"`
	BM25             BM25Config `yaml:"bm25"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled             bool          `yaml:"enabled"`
	Addr                string        `yaml:"addr"`
	Password            string        `yaml:"password"`
	DB                  int           `yaml:"db"`
	PoolSize            int           `yaml:"poolSize"`
	CacheTTL            time.Duration `yaml:"cacheTTL"`
	BreakerThreshold    int           `yaml:"breakerThreshold"`
	BreakerResetTimeout time.Duration `yaml:"breakerResetTimeout"`
}

// KafkaConfig holds Kafka broker and topic settings for search events.
type KafkaConfig struct {
	Enabled     bool     `yaml:"enabled"`
	Brokers     []string `yaml:"brokers"`
	SearchTopic string   `yaml:"searchTopic"`
	BufferSize  int      `yaml:"bufferSize"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects values the ranking and search layers cannot work with.
func (c *Config) Validate() error {
	if c.Search.BM25.K1 <= 0 {
		return fmt.Errorf("search.bm25.k1 must be positive, got %v", c.Search.BM25.K1)
	}
	if c.Search.BM25.B < 0 || c.Search.BM25.B > 1 {
		return fmt.Errorf("search.bm25.b must be within [0, 1], got %v", c.Search.BM25.B)
	}
	if c.Search.DefaultLimit <= 0 || c.Search.MaxResults <= 0 {
		return fmt.Errorf("search limits must be positive (defaultLimit=%d, maxResults=%d)",
			c.Search.DefaultLimit, c.Search.MaxResults)
	}
	switch c.Corpus.Source {
	case SourceTREC, SourcePostgres:
	default:
		return fmt.Errorf("unknown corpus source %q", c.Corpus.Source)
	}
	return nil
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Corpus: CorpusConfig{
			Source:        SourceTREC,
			Path:          "data/ptwiki-v2.trec.xml",
			StopwordsPath: "data/stopwords.txt",
		},
		Index: IndexConfig{
			ExportPath: "index",
			Compressed: false,
			Format:     "frequencies",
		},
		Search: SearchConfig{
			MaxResults:       100,
			DefaultLimit:     10,
			BatchConcurrency: 4,
			BM25: BM25Config{
				K1: 1.5,
				B:  0.75,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "termindex",
			User:            "termindex",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:             true,
			Addr:                "localhost:6379",
			DB:                  0,
			PoolSize:            10,
			CacheTTL:            60 * time.Second,
			BreakerThreshold:    5,
			BreakerResetTimeout: 30 * time.Second,
		},
		Kafka: KafkaConfig{
			Enabled:     false,
			Brokers:     []string{"localhost:9092"},
			SearchTopic: "search-events",
			BufferSize:  10000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads TI_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TI_CORPUS_SOURCE"); v != "" {
		cfg.Corpus.Source = v
	}
	if v := os.Getenv("TI_CORPUS_PATH"); v != "" {
		cfg.Corpus.Path = v
	}
	if v := os.Getenv("TI_CORPUS_STOPWORDS"); v != "" {
		cfg.Corpus.StopwordsPath = v
	}
	if v := os.Getenv("TI_BM25_K1"); v != "" {
		if k1, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.BM25.K1 = k1
		}
	}
	if v := os.Getenv("TI_BM25_B"); v != "" {
		if b, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.BM25.B = b
		}
	}
	if v := os.Getenv("TI_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("TI_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("TI_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("TI_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("TI_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("TI_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("TI_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("TI_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("TI_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TI_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
