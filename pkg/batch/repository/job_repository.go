package repository

import (
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository/job"
)

// JobRepository はバッチ実行に関するメタデータを永続化・管理するためのインターフェースです。
// 複数のより小さなリポジトリインターフェースを埋め込むことで、責務を分割します。
type JobRepository interface {
	job.JobInstance
	job.JobExecution
	job.StepExecution
	job.ParseErrorRecorder

	// Close はリポジトリが使用するデータベース接続を解放します。
	Close() error

	// GetDBConnection は、ステップ内でトランザクションを開始するための接続を返します。
	GetDBConnection() database.DBConnection
}
