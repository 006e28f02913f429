package repository

import (
	"database/sql"
	"time"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

const module = "job_repository"

// SQLJobRepository は JobRepository インターフェースの SQL データベース実装です。
// 各リポジトリの具体的な実装を埋め込み、委譲します。
type SQLJobRepository struct {
	dbConnection database.DBConnection

	*SQLJobInstanceRepository
	*SQLJobExecutionRepository
	*SQLStepExecutionRepository
	*SQLParseErrorRepository
}

// NewSQLJobRepository は確立済みの接続から SQLJobRepository を作成します。
func NewSQLJobRepository(dbConn database.DBConnection) *SQLJobRepository {
	stepRepo := NewSQLStepExecutionRepository(dbConn)
	return &SQLJobRepository{
		dbConnection:               dbConn,
		SQLJobInstanceRepository:   NewSQLJobInstanceRepository(dbConn),
		SQLJobExecutionRepository:  NewSQLJobExecutionRepository(dbConn, stepRepo),
		SQLStepExecutionRepository: stepRepo,
		SQLParseErrorRepository:    NewSQLParseErrorRepository(dbConn),
	}
}

// GetDBConnection は JobRepository インターフェースの実装です。
func (r *SQLJobRepository) GetDBConnection() database.DBConnection {
	return r.dbConnection
}

// Close はデータベース接続を閉じます。
func (r *SQLJobRepository) Close() error {
	if r.dbConnection == nil {
		return nil
	}
	if err := r.dbConnection.Close(); err != nil {
		return exception.NewBatchError(module, "データベース接続を閉じるのに失敗しました", err, false, false)
	}
	logger.Debugf("Job Repository のデータベース接続を閉じました。")
	return nil
}

var _ JobRepository = (*SQLJobRepository)(nil)

// nullTime はゼロ値の時刻を NULL として書き込みます。
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timeOf(nt sql.NullTime) time.Time {
	if !nt.Valid {
		return time.Time{}
	}
	return nt.Time
}
