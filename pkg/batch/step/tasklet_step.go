package step

import (
	"context"
	"fmt"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// ExecutionContextPromotion はステップ終了時に JobExecution へ引き上げるキーです。
// JobLevelKeys に対応がある場合はその名前で保存します。
type ExecutionContextPromotion struct {
	Keys         []string
	JobLevelKeys map[string]string
}

// TaskletStep は Tasklet を 1 回実行するステップです。
type TaskletStep struct {
	name          string
	tasklet       core.Tasklet
	stepListeners []core.StepExecutionListener
	jobRepository repository.JobRepository
	promotion     *ExecutionContextPromotion
}

var _ core.Step = (*TaskletStep)(nil)

// NewTaskletStep は新しい TaskletStep のインスタンスを作成します。promotion は nil でも構いません。
func NewTaskletStep(
	name string,
	tasklet core.Tasklet,
	jobRepository repository.JobRepository,
	stepListeners []core.StepExecutionListener,
	promotion *ExecutionContextPromotion,
) *TaskletStep {
	return &TaskletStep{
		name:          name,
		tasklet:       tasklet,
		jobRepository: jobRepository,
		stepListeners: stepListeners,
		promotion:     promotion,
	}
}

func (s *TaskletStep) StepName() string { return s.name }

func (s *TaskletStep) ID() string { return s.name }

// Execute は StepExecution を保存してから Tasklet を実行し、最終状態を永続化します。
func (s *TaskletStep) Execute(ctx context.Context, jobExecution *core.JobExecution, stepExecution *core.StepExecution) (err error) {
	logger.Infof("Taskletステップ '%s' (Execution ID: %s) を開始します。", s.name, stepExecution.ID)

	if err := s.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
		return err
	}
	for _, l := range s.stepListeners {
		l.BeforeStep(ctx, stepExecution)
	}
	stepExecution.MarkAsStarted()

	defer func() {
		if closeErr := s.tasklet.Close(ctx); closeErr != nil {
			logger.Errorf("Taskletステップ '%s': Tasklet のクローズに失敗しました: %v", s.name, closeErr)
			stepExecution.AddFailureException(closeErr)
		}
		for _, l := range s.stepListeners {
			l.AfterStep(ctx, stepExecution)
		}
		s.promoteExecutionContext(jobExecution, stepExecution)
		if updErr := s.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), stepExecution); updErr != nil {
			logger.Errorf("Taskletステップ '%s': StepExecution の更新に失敗しました: %v", s.name, updErr)
			if err == nil {
				err = updErr
			}
		}
	}()

	exitStatus, execErr := s.tasklet.Execute(ctx, stepExecution)
	if execErr != nil {
		logger.Errorf("Taskletステップ '%s' の実行中にエラーが発生しました: %v", s.name, execErr)
		stepExecution.MarkAsFailed(execErr)
		return exception.NewBatchError(s.name, "Tasklet 実行エラー", execErr, false, false)
	}

	switch exitStatus {
	case core.ExitStatusCompleted, core.ExitStatusNoOp:
		stepExecution.MarkAsCompleted()
		stepExecution.ExitStatus = exitStatus
	default:
		failure := fmt.Errorf("tasklet returned exit status %s", exitStatus)
		stepExecution.MarkAsFailed(failure)
		return exception.NewBatchError(s.name, "Tasklet が完了以外の終了ステータスを返しました", failure, false, false)
	}

	logger.Infof("Taskletステップ '%s' が正常に完了しました。ExitStatus: %s", s.name, exitStatus)
	return nil
}

// promoteExecutionContext は指定されたキーを JobExecution の ExecutionContext にコピーします。
func (s *TaskletStep) promoteExecutionContext(jobExecution *core.JobExecution, stepExecution *core.StepExecution) {
	if s.promotion == nil || jobExecution == nil {
		return
	}
	if jobExecution.ExecutionContext == nil {
		jobExecution.ExecutionContext = core.NewExecutionContext()
	}
	for _, key := range s.promotion.Keys {
		val, ok := stepExecution.ExecutionContext[key]
		if !ok {
			logger.Warnf("Taskletステップ '%s': プロモート対象のキー '%s' が見つかりませんでした。", s.name, key)
			continue
		}
		jobKey := key
		if mapped, found := s.promotion.JobLevelKeys[key]; found {
			jobKey = mapped
		}
		jobExecution.ExecutionContext.Put(jobKey, val)
		logger.Debugf("Taskletステップ '%s': キー '%s' を JobExecutionContext の '%s' にプロモートしました。", s.name, key, jobKey)
	}
}
