package joboperator

import (
	"context"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository/job"
)

// JobOperator はバッチ実行の照会と管理操作を行うためのインターフェースです。
type JobOperator interface {
	// Restart は FAILED または STOPPED の JobExecution を同じパラメータで再実行します。
	Restart(ctx context.Context, executionID string) (*core.JobExecution, error)

	// Abandon は終了していない、または失敗した JobExecution を ABANDONED にします。
	Abandon(ctx context.Context, executionID string) error

	// GetJobExecution は StepExecution を含む JobExecution を取得します。
	GetJobExecution(ctx context.Context, executionID string) (*core.JobExecution, error)

	// GetJobExecutions は JobExecution と同じ JobInstance に属する全ての実行を取得します。
	GetJobExecutions(ctx context.Context, instanceID string) ([]*core.JobExecution, error)

	// GetParseErrors は JobExecution で記録された取り込みエラーを取得します。
	GetParseErrors(ctx context.Context, executionID string) ([]job.ParseError, error)

	// GetJobNames はリポジトリに記録されたジョブ名を取得します。
	GetJobNames(ctx context.Context) ([]string, error)
}
