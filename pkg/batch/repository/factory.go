package repository

import (
	"context"
	"fmt"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database/connector"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// NewJobRepository は設定を基にデータベース接続を確立し、JobRepository を作成します。
// 返されたリポジトリの Close で接続も閉じられます。
func NewJobRepository(ctx context.Context, cfg config.Config) (JobRepository, error) {
	logger.Debugf("JobRepository の生成を開始します (Type: %s).", cfg.Database.Type)

	dbConn, err := connector.NewDBConnectionFromConfig(ctx, cfg.Database)
	if err != nil {
		logger.Errorf("JobRepository 用のデータベース接続確立に失敗しました (Type: %s): %v", cfg.Database.Type, err)
		return nil, exception.NewBatchError("repository_factory", fmt.Sprintf("JobRepository 用のデータベース接続確立に失敗しました (Type: %s)", cfg.Database.Type), err, false, false)
	}
	logger.Debugf("SQLJobRepository を生成しました。")
	return NewSQLJobRepository(dbConn), nil
}

// NewJobRepositoryWithMigrations はマイグレーション専用の接続でスキーマを最新化してから JobRepository を作成します。
func NewJobRepositoryWithMigrations(ctx context.Context, cfg config.Config) (JobRepository, error) {
	migrationConn, err := connector.NewDBConnectionFromConfig(ctx, cfg.Database)
	if err != nil {
		return nil, exception.NewBatchError("repository_factory", "マイグレーション用のデータベース接続確立に失敗しました", err, false, false)
	}
	if err := database.RunMigrations(migrationConn); err != nil {
		return nil, err
	}
	return NewJobRepository(ctx, cfg)
}
