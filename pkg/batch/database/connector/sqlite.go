package connector

import (
	"database/sql"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
)

type sqliteConnector struct{}

// Connect はローカルの SQLite ファイルを開きます。親ディレクトリがなければ作成します。
// 書き込みを直列化するため、プール設定がない場合は接続数を 1 に制限します。
func (c *sqliteConnector) Connect(cfg config.DatabaseConfig) (*sql.DB, error) {
	if cfg.Path == "" {
		return nil, exception.NewBatchErrorf("database", nil, "sqlite には database.path の指定が必要です")
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, exception.NewBatchError("database", "SQLite のディレクトリ作成に失敗しました", err, false, false)
		}
	}
	if cfg.ConnectionPool.MaxOpenConns == 0 {
		cfg.ConnectionPool.MaxOpenConns = 1
	}
	return openWithPool("sqlite", "SQLite", cfg)
}

func init() {
	RegisterConnector("sqlite", &sqliteConnector{})
}
