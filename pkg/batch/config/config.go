package config

import (
	"fmt"
	"net/url"
	"strings"
)

// EmbeddedConfig は main.go から渡される埋め込み設定ファイルの内容です。
type EmbeddedConfig []byte

// ConnectionPoolConfig はコネクションプールの設定です。
type ConnectionPoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds"`
}

// DatabaseConfig はジョブリポジトリと取込先テーブルを置くデータベースの設定です。
type DatabaseConfig struct {
	Type     string `yaml:"type"` // sqlite, postgres, redshift, mysql, snowflake
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Sslmode  string `yaml:"sslmode"`

	// sqlite のデータベースファイル
	Path string `yaml:"path"`

	// Snowflake 用
	Account   string `yaml:"account"`
	Warehouse string `yaml:"warehouse"`
	Schema    string `yaml:"schema"`
	Role      string `yaml:"role"`

	ConnectionPool ConnectionPoolConfig `yaml:"connection_pool"`
}

// ConnectionString はドライバに渡す DSN を返します。
func (c DatabaseConfig) ConnectionString() string {
	switch strings.ToLower(c.Type) {
	case "postgres", "redshift":
		sslmode := c.Sslmode
		if sslmode == "" {
			sslmode = "disable"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			url.PathEscape(c.User), url.PathEscape(c.Password), c.Host, c.Port, c.Database, sslmode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "sqlite":
		return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", c.Path)
	case "snowflake":
		q := url.Values{}
		if c.Warehouse != "" {
			q.Set("warehouse", c.Warehouse)
		}
		if c.Role != "" {
			q.Set("role", c.Role)
		}
		dsn := fmt.Sprintf("%s:%s@%s/%s", url.PathEscape(c.User), url.PathEscape(c.Password), c.Account, c.Database)
		if c.Schema != "" {
			dsn += "/" + c.Schema
		}
		if enc := q.Encode(); enc != "" {
			dsn += "?" + enc
		}
		return dsn
	default:
		return ""
	}
}

// ItemRetryConfig はアイテムレベルのリトライ設定です。
type ItemRetryConfig struct {
	MaxAttempts           int      `yaml:"max_attempts"`
	InitialIntervalMillis int      `yaml:"initial_interval_millis"`
	RetryableExceptions   []string `yaml:"retryable_exceptions"`
}

// ItemSkipConfig はアイテムレベルのスキップ設定です。
// SkipLimit が 0 以下の場合、スキップ可能なエラーは件数無制限でスキップします。
type ItemSkipConfig struct {
	SkipLimit           int      `yaml:"skip_limit"`
	SkippableExceptions []string `yaml:"skippable_exceptions"`
}

type BatchConfig struct {
	JobName       string          `yaml:"job_name"`
	ChunkSize     int             `yaml:"chunk_size"`
	ParallelFiles int             `yaml:"parallel_files"`
	ItemRetry     ItemRetryConfig `yaml:"item_retry"`
	ItemSkip      ItemSkipConfig  `yaml:"item_skip"`
}

// GenerateConfig は合成レガシーファイル生成の設定です。
type GenerateConfig struct {
	OutputDir     string  `yaml:"output_dir"`
	Seed          int64   `yaml:"seed"`
	Customers     int     `yaml:"customers"`
	Invoices      int     `yaml:"invoices"`
	Payments      int     `yaml:"payments"`
	JournalLines  int     `yaml:"journal_lines"`
	MalformedRate float64 `yaml:"malformed_rate"`
}

// IngestConfig は固定長ファイル取込の設定です。
type IngestConfig struct {
	InputDir          string   `yaml:"input_dir"`
	OutputDir         string   `yaml:"output_dir"`
	Sinks             []string `yaml:"sinks"` // sql, csv, xlsx
	TablePrefix       string   `yaml:"table_prefix"`
	RequiredTables    []string `yaml:"required_tables"`
	MaxReportedErrors int      `yaml:"max_reported_errors"`
	// ファイルごとに batch_parse_errors へ保存するエラーの上限。0 以下は無制限
	MaxPersistedErrors int            `yaml:"max_persisted_errors"`
	VerifyRoundTrip    bool           `yaml:"verify_round_trip"`
	Generate           GenerateConfig `yaml:"generate"`
}

// HasSink は指定された出力先が有効かどうかを返します。
func (c IngestConfig) HasSink(name string) bool {
	for _, s := range c.Sinks {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return true
		}
	}
	return false
}

// IsRequired は取込失敗をジョブ失敗とみなすテーブルかどうかを返します。
func (c IngestConfig) IsRequired(layoutName string) bool {
	for _, t := range c.RequiredTables {
		if strings.EqualFold(strings.TrimSpace(t), layoutName) {
			return true
		}
	}
	return false
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type SystemConfig struct {
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

type Config struct {
	Database       DatabaseConfig `yaml:"database"`
	Batch          BatchConfig    `yaml:"batch"`
	Ingest         IngestConfig   `yaml:"ingest"`
	System         SystemConfig   `yaml:"system"`
	EmbeddedConfig EmbeddedConfig `yaml:"-"`
}

// NewConfig はデフォルト値を設定した Config を返します。
// YAML はこの値の上に読み込まれるため、YAML に書かれていない項目はデフォルトのまま残ります。
func NewConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "data/batch.db",
		},
		Batch: BatchConfig{
			JobName:       "ingestJob",
			ChunkSize:     500,
			ParallelFiles: 4,
			ItemRetry: ItemRetryConfig{
				MaxAttempts:           3,
				InitialIntervalMillis: 100,
				RetryableExceptions:   []string{},
			},
			ItemSkip: ItemSkipConfig{
				SkipLimit:           0,
				SkippableExceptions: []string{},
			},
		},
		Ingest: IngestConfig{
			InputDir:           "data/physical_files",
			OutputDir:          "data/extracts",
			Sinks:              []string{"sql", "csv"},
			TablePrefix:        "raw_",
			RequiredTables:     []string{},
			MaxReportedErrors:  5,
			MaxPersistedErrors: 1000,
			Generate: GenerateConfig{
				OutputDir:    "data/physical_files",
				Seed:         42,
				Customers:    500,
				Invoices:     5000,
				Payments:     4000,
				JournalLines: 8000,
			},
		},
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO"},
		},
	}
}
