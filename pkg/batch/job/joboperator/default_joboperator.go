package joboperator

import (
	"context"
	"fmt"
	"time"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/job/joblauncher"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository/job"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// DefaultJobOperator は JobRepository と JobLauncher を使う JobOperator の実装です。
type DefaultJobOperator struct {
	jobRepository repository.JobRepository
	launcher      joblauncher.JobLauncher
}

var _ JobOperator = (*DefaultJobOperator)(nil)

// NewDefaultJobOperator は新しい DefaultJobOperator のインスタンスを作成します。
func NewDefaultJobOperator(jobRepository repository.JobRepository, launcher joblauncher.JobLauncher) *DefaultJobOperator {
	return &DefaultJobOperator{jobRepository: jobRepository, launcher: launcher}
}

// Restart は前回のパラメータで JobLauncher を起動し直します。
// JobLauncher が同じ JobInstance を解決し、ExecutionContext を引き継ぎます。
func (o *DefaultJobOperator) Restart(ctx context.Context, executionID string) (*core.JobExecution, error) {
	prev, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return nil, err
	}
	if prev.Status != core.BatchStatusFailed && prev.Status != core.BatchStatusStopped {
		return nil, exception.NewBatchErrorf("job_operator", nil,
			"JobExecution (ID: %s) は再実行可能な状態ではありません (現在の状態: %s)", executionID, prev.Status)
	}
	logger.Infof("JobExecution (ID: %s, Status: %s) を再実行します。", executionID, prev.Status)

	instance, err := o.jobRepository.FindJobInstanceByID(ctx, prev.JobInstanceID)
	if err != nil {
		return nil, err
	}
	return o.launcher.Launch(ctx, prev.JobName, instance.Parameters)
}

// Abandon は JobExecution を ABANDONED として記録します。完了済みの実行は変更できません。
func (o *DefaultJobOperator) Abandon(ctx context.Context, executionID string) error {
	je, err := o.jobRepository.FindJobExecutionByID(ctx, executionID)
	if err != nil {
		return err
	}
	if je.Status == core.BatchStatusCompleted || je.Status == core.BatchStatusAbandoned {
		return exception.NewBatchErrorf("job_operator", nil, "JobExecution (ID: %s) は %s のため放棄できません", executionID, je.Status)
	}
	je.Status = core.BatchStatusAbandoned
	je.ExitStatus = core.ExitStatusAbandoned
	if je.EndTime.IsZero() {
		je.EndTime = time.Now()
	}
	if err := o.jobRepository.UpdateJobExecution(ctx, je); err != nil {
		return exception.NewBatchError("job_operator", fmt.Sprintf("JobExecution (ID: %s) の放棄に失敗しました", executionID), err, false, false)
	}
	logger.Infof("JobExecution (ID: %s) を ABANDONED にしました。", executionID)
	return nil
}

func (o *DefaultJobOperator) GetJobExecution(ctx context.Context, executionID string) (*core.JobExecution, error) {
	return o.jobRepository.FindJobExecutionByID(ctx, executionID)
}

func (o *DefaultJobOperator) GetJobExecutions(ctx context.Context, instanceID string) ([]*core.JobExecution, error) {
	instance, err := o.jobRepository.FindJobInstanceByID(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	return o.jobRepository.FindJobExecutionsByJobInstance(ctx, instance)
}

func (o *DefaultJobOperator) GetParseErrors(ctx context.Context, executionID string) ([]job.ParseError, error) {
	return o.jobRepository.FindParseErrorsByJobExecutionID(ctx, executionID)
}

func (o *DefaultJobOperator) GetJobNames(ctx context.Context) ([]string, error) {
	return o.jobRepository.GetJobNames(ctx)
}
