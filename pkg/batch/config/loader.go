package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// ConfigLoader は設定を読み込むインターフェースです。
type ConfigLoader interface {
	Load() (*Config, error)
}

// BytesConfigLoader はバイトスライスから設定を読み込みます。
type BytesConfigLoader struct {
	data []byte
}

// NewBytesConfigLoader は新しい BytesConfigLoader を作成します。
func NewBytesConfigLoader(data []byte) *BytesConfigLoader {
	return &BytesConfigLoader{data: data}
}

// Load はデフォルト値、YAML、環境変数の順に設定を重ねて返します。
func (l *BytesConfigLoader) Load() (*Config, error) {
	cfg := NewConfig()
	if err := yaml.Unmarshal(l.data, cfg); err != nil {
		return nil, exception.NewBatchError("config", "YAML設定のパースに失敗しました", err, false, false)
	}
	cfg.EmbeddedConfig = l.data

	loadEnvVars(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate は起動を続けられない設定値を検出します。
func Validate(cfg *Config) error {
	if cfg.Batch.ChunkSize <= 0 {
		return exception.NewBatchErrorf("config", nil, "batch.chunk_size は 1 以上である必要があります: %d", cfg.Batch.ChunkSize)
	}
	if cfg.Batch.ParallelFiles <= 0 {
		return exception.NewBatchErrorf("config", nil, "batch.parallel_files は 1 以上である必要があります: %d", cfg.Batch.ParallelFiles)
	}
	for _, s := range cfg.Ingest.Sinks {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "sql", "csv", "xlsx":
		default:
			return exception.NewBatchErrorf("config", nil, "ingest.sinks に未対応の出力先が指定されています: %s", s)
		}
	}
	return nil
}

func envString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logger.Warnf("%s の値 '%s' が無効です。設定ファイルまたはデフォルトの値を使用します。", key, v)
		return
	}
	*dst = n
}

func envBool(key string, dst *bool) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logger.Warnf("%s の値 '%s' が無効です。設定ファイルまたはデフォルトの値を使用します。", key, v)
		return
	}
	*dst = b
}

func envList(key string, dst *[]string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	*dst = out
}

// loadEnvVars は環境変数で個別の設定値を上書きします。
func loadEnvVars(cfg *Config) {
	envString("DATABASE_TYPE", &cfg.Database.Type)
	envString("DATABASE_HOST", &cfg.Database.Host)
	envInt("DATABASE_PORT", &cfg.Database.Port)
	envString("DATABASE_DATABASE", &cfg.Database.Database)
	envString("DATABASE_USER", &cfg.Database.User)
	envString("DATABASE_PASSWORD", &cfg.Database.Password)
	envString("DATABASE_SSLMODE", &cfg.Database.Sslmode)
	envString("DATABASE_PATH", &cfg.Database.Path)
	envString("DATABASE_ACCOUNT", &cfg.Database.Account)
	envString("DATABASE_WAREHOUSE", &cfg.Database.Warehouse)
	envString("DATABASE_SCHEMA", &cfg.Database.Schema)
	envString("DATABASE_ROLE", &cfg.Database.Role)
	envInt("DATABASE_MAX_OPEN_CONNS", &cfg.Database.ConnectionPool.MaxOpenConns)
	envInt("DATABASE_MAX_IDLE_CONNS", &cfg.Database.ConnectionPool.MaxIdleConns)
	envInt("DATABASE_CONN_MAX_LIFETIME_SECONDS", &cfg.Database.ConnectionPool.ConnMaxLifetimeSeconds)

	envString("BATCH_JOB_NAME", &cfg.Batch.JobName)
	envInt("BATCH_CHUNK_SIZE", &cfg.Batch.ChunkSize)
	envInt("BATCH_PARALLEL_FILES", &cfg.Batch.ParallelFiles)
	envInt("BATCH_ITEM_SKIP_LIMIT", &cfg.Batch.ItemSkip.SkipLimit)
	envInt("BATCH_ITEM_RETRY_MAX_ATTEMPTS", &cfg.Batch.ItemRetry.MaxAttempts)

	envString("INGEST_INPUT_DIR", &cfg.Ingest.InputDir)
	envString("INGEST_OUTPUT_DIR", &cfg.Ingest.OutputDir)
	envList("INGEST_SINKS", &cfg.Ingest.Sinks)
	envString("INGEST_TABLE_PREFIX", &cfg.Ingest.TablePrefix)
	envList("INGEST_REQUIRED_TABLES", &cfg.Ingest.RequiredTables)
	envInt("INGEST_MAX_REPORTED_ERRORS", &cfg.Ingest.MaxReportedErrors)
	envInt("INGEST_MAX_PERSISTED_ERRORS", &cfg.Ingest.MaxPersistedErrors)
	envBool("INGEST_VERIFY_ROUND_TRIP", &cfg.Ingest.VerifyRoundTrip)

	envString("SYSTEM_TIMEZONE", &cfg.System.Timezone)
	envString("SYSTEM_LOGGING_LEVEL", &cfg.System.Logging.Level)
}

// String はパスワードを伏せた設定の概要を返します。
func (c *Config) String() string {
	return fmt.Sprintf("database=%s batch.job=%s chunk=%d parallel=%d ingest.input=%s sinks=%v",
		c.Database.Type, c.Batch.JobName, c.Batch.ChunkSize, c.Batch.ParallelFiles, c.Ingest.InputDir, c.Ingest.Sinks)
}
