package joblauncher

import (
	"context"
	"fmt"
	"sync"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/job/factory"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// PreviousExecutionKey は再実行時に前回の JobExecution ID を格納する ExecutionContext のキーです。
const PreviousExecutionKey = "launcher.previous_execution_id"

// maxInstanceLookups は RunIDIncrementer による JobInstance 探索の上限です。
const maxInstanceLookups = 10000

// SimpleJobLauncher は JobLauncher インターフェースのシンプルな実装です。
// JobInstance の解決、JobExecution のライフサイクル管理と永続化を行います。
type SimpleJobLauncher struct {
	jobRepository repository.JobRepository
	jobFactory    *factory.JobFactory

	mu                     sync.Mutex
	activeJobCancellations map[string]context.CancelFunc
}

// NewSimpleJobLauncher は新しい SimpleJobLauncher のインスタンスを作成します。
func NewSimpleJobLauncher(jobRepository repository.JobRepository, jobFactory *factory.JobFactory) *SimpleJobLauncher {
	return &SimpleJobLauncher{
		jobRepository:          jobRepository,
		jobFactory:             jobFactory,
		activeJobCancellations: make(map[string]context.CancelFunc),
	}
}

// Stop は実行中の JobExecution をキャンセルします。実行中でなければ false を返します。
func (l *SimpleJobLauncher) Stop(executionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	cancel, ok := l.activeJobCancellations[executionID]
	if ok {
		cancel()
		logger.Infof("JobExecution (ID: %s) に停止を要求しました。", executionID)
	}
	return ok
}

func (l *SimpleJobLauncher) register(executionID string, cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.activeJobCancellations[executionID] = cancel
}

func (l *SimpleJobLauncher) unregister(executionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if cancel, ok := l.activeJobCancellations[executionID]; ok {
		cancel()
		delete(l.activeJobCancellations, executionID)
	}
}

// Launch は Job を作成し、JobInstance を解決してから同期的に実行します。
//
// 同じパラメータの JobInstance が完了済みの場合、Incrementer があれば新しいパラメータで
// 別の JobInstance を作成し、なければエラーを返します。失敗または停止した JobInstance は
// 再利用され、前回の JobExecution の ExecutionContext が引き継がれます。
func (l *SimpleJobLauncher) Launch(ctx context.Context, jobName string, params core.JobParameters) (*core.JobExecution, error) {
	logger.Infof("Job '%s' を起動します。", jobName)

	batchJob, err := l.jobFactory.CreateJob(jobName)
	if err != nil {
		return nil, err
	}
	if err := batchJob.ValidateParameters(params); err != nil {
		return nil, exception.NewBatchError("job_launcher", "JobParameters のバリデーションエラー", err, false, false)
	}

	jobInstance, previous, err := l.resolveInstance(ctx, jobName, params)
	if err != nil {
		return nil, err
	}

	jobExecution := core.NewJobExecution(jobInstance.ID, jobName, jobInstance.Parameters)
	if previous != nil {
		jobExecution.ExecutionContext = previous.ExecutionContext.Copy()
		jobExecution.ExecutionContext.Put(PreviousExecutionKey, previous.ID)
		logger.Infof("JobInstance (ID: %s) を再実行します。前回の JobExecution: %s (%s)", jobInstance.ID, previous.ID, previous.Status)
	}

	jobCtx, cancel := context.WithCancel(ctx)
	jobExecution.CancelFunc = cancel
	l.register(jobExecution.ID, cancel)
	defer l.unregister(jobExecution.ID)

	if err := l.jobRepository.SaveJobExecution(jobCtx, jobExecution); err != nil {
		return jobExecution, exception.NewBatchError("job_launcher", "JobExecution の初期保存に失敗しました", err, false, false)
	}
	jobExecution.MarkAsStarted()
	if err := l.jobRepository.UpdateJobExecution(jobCtx, jobExecution); err != nil {
		return jobExecution, exception.NewBatchError("job_launcher", "JobExecution の Started 状態への更新に失敗しました", err, false, false)
	}

	logger.Infof("Job '%s' (Execution ID: %s, Job Instance ID: %s) を実行します。", jobName, jobExecution.ID, jobInstance.ID)
	runErr := batchJob.Run(jobCtx, jobExecution, jobExecution.Parameters)

	if !jobExecution.Status.IsFinished() {
		switch {
		case runErr != nil && jobCtx.Err() != nil:
			jobExecution.AddFailureException(runErr)
			jobExecution.MarkAsStopped()
		case runErr != nil:
			jobExecution.MarkAsFailed(runErr)
		default:
			jobExecution.MarkAsCompleted()
		}
	}

	// キャンセル後でも最終状態は保存する
	if updateErr := l.jobRepository.UpdateJobExecution(context.WithoutCancel(ctx), jobExecution); updateErr != nil {
		logger.Errorf("JobExecution (ID: %s) の最終状態の更新に失敗しました: %v", jobExecution.ID, updateErr)
		if runErr == nil {
			runErr = exception.NewBatchError("job_launcher", "JobExecution 最終状態の永続化に失敗しました", updateErr, false, false)
		}
	}
	return jobExecution, runErr
}

// resolveInstance は実行対象の JobInstance と、再実行の場合は前回の JobExecution を返します。
func (l *SimpleJobLauncher) resolveInstance(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, *core.JobExecution, error) {
	incrementer := l.jobFactory.GetJobParametersIncrementer(jobName)

	for range maxInstanceLookups {
		instance, err := l.jobRepository.FindJobInstanceByJobNameAndParameters(ctx, jobName, params)
		if err != nil {
			return nil, nil, err
		}
		if instance == nil {
			instance = core.NewJobInstance(jobName, params)
			if err := l.jobRepository.SaveJobInstance(ctx, instance); err != nil {
				return nil, nil, err
			}
			logger.Infof("新しい JobInstance (ID: %s, JobName: %s) を作成しました。", instance.ID, jobName)
			return instance, nil, nil
		}

		latest, err := l.jobRepository.FindLatestJobExecution(ctx, instance.ID)
		if err != nil {
			return nil, nil, err
		}
		switch {
		case latest == nil:
			return instance, nil, nil
		case latest.Status == core.BatchStatusCompleted:
			if incrementer == nil {
				return nil, nil, exception.NewBatchErrorf("job_launcher", nil,
					"JobInstance (ID: %s) は完了済みです。別のパラメータで起動してください", instance.ID)
			}
			params = incrementer.GetNext(instance.Parameters)
			continue
		case !latest.Status.IsFinished():
			logger.Warnf("JobExecution (ID: %s) が %s のまま残っています。ABANDONED として扱います。", latest.ID, latest.Status)
			latest.Status = core.BatchStatusAbandoned
			latest.ExitStatus = core.ExitStatusAbandoned
			if err := l.jobRepository.UpdateJobExecution(ctx, latest); err != nil {
				return nil, nil, err
			}
		}
		return instance, latest, nil
	}
	return nil, nil, exception.NewBatchError("job_launcher", fmt.Sprintf("Job '%s' の JobInstance を解決できませんでした", jobName), nil, false, false)
}

var _ JobLauncher = (*SimpleJobLauncher)(nil)
