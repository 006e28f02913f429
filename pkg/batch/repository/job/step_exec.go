package job

import (
	"context"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

// StepExecution は StepExecution の永続化と取得に関する操作を定義します。
type StepExecution interface {
	SaveStepExecution(ctx context.Context, stepExecution *core.StepExecution) error
	UpdateStepExecution(ctx context.Context, stepExecution *core.StepExecution) error

	// FindStepExecutionByID は StepExecution を検索します。JobExecution は ID のみ設定された状態で返ります。
	FindStepExecutionByID(ctx context.Context, executionID string) (*core.StepExecution, error)

	FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error)
}
