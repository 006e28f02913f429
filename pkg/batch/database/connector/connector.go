package connector

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// DBConnector は特定のデータベースタイプへの接続を確立します。
type DBConnector interface {
	Connect(cfg config.DatabaseConfig) (*sql.DB, error)
}

var (
	mu         sync.RWMutex
	connectors = make(map[string]DBConnector)
)

// RegisterConnector はデータベースタイプ名で DBConnector を登録します。
// 各コネクタは init で自身を登録します。
func RegisterConnector(dbType string, c DBConnector) {
	mu.Lock()
	defer mu.Unlock()
	key := strings.ToLower(dbType)
	if _, exists := connectors[key]; exists {
		logger.Warnf("DBConnector '%s' は既に登録されています。上書きします。", dbType)
	}
	connectors[key] = c
}

// GetSQLDB は設定に合ったコネクタで *sql.DB を開きます。
func GetSQLDB(cfg config.DatabaseConfig) (*sql.DB, error) {
	mu.RLock()
	c, ok := connectors[strings.ToLower(cfg.Type)]
	mu.RUnlock()
	if !ok {
		return nil, exception.NewBatchErrorf("database", nil, "未対応のデータベースタイプ: %s", cfg.Type)
	}
	return c.Connect(cfg)
}

// NewDBConnectionFromConfig は接続を確立し、Ping で疎通を確認した DBConnection を返します。
func NewDBConnectionFromConfig(ctx context.Context, cfg config.DatabaseConfig) (database.DBConnection, error) {
	dialect, ok := database.ParseDialect(cfg.Type)
	if !ok {
		return nil, exception.NewBatchErrorf("database", nil, "未対応のデータベースタイプ: %s", cfg.Type)
	}
	rawDB, err := GetSQLDB(cfg)
	if err != nil {
		return nil, err
	}
	if err := rawDB.PingContext(ctx); err != nil {
		rawDB.Close()
		return nil, exception.NewBatchError("database", "データベースへのPingに失敗しました", err, true, false)
	}
	return database.NewSQLDBAdapter(rawDB, dialect), nil
}

// openWithPool はドライバで接続を開き、コネクションプール設定を適用します。
func openWithPool(driverName, label string, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open(driverName, cfg.ConnectionString())
	if err != nil {
		return nil, exception.NewBatchError("database", label+" への接続に失敗しました", err, false, false)
	}
	pool := cfg.ConnectionPool
	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetimeSeconds > 0 {
		db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeSeconds) * time.Second)
	}
	logger.Debugf("%s の接続を開きました。MaxOpenConns: %d, MaxIdleConns: %d, ConnMaxLifetime: %d秒",
		label, pool.MaxOpenConns, pool.MaxIdleConns, pool.ConnMaxLifetimeSeconds)
	return db, nil
}
