package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	serialization "github.com/Vignesh4110/finance-modernization/pkg/batch/util/serialization"
)

const jobExecutionColumns = "id, job_instance_id, job_name, job_parameters, start_time, end_time, status, exit_status, exit_code, failures, version, create_time, last_updated, execution_context, current_step_name"

// SQLJobExecutionRepository は JobExecution インターフェースの SQL データベース実装です。
type SQLJobExecutionRepository struct {
	dbConnection database.DBConnection
	stepRepo     *SQLStepExecutionRepository
}

// NewSQLJobExecutionRepository は SQLJobExecutionRepository を作成します。
// stepRepo は JobExecution のロード時に StepExecution を復元するために使います。
func NewSQLJobExecutionRepository(dbConn database.DBConnection, stepRepo *SQLStepExecutionRepository) *SQLJobExecutionRepository {
	return &SQLJobExecutionRepository{dbConnection: dbConn, stepRepo: stepRepo}
}

func (r *SQLJobExecutionRepository) rebind(query string) string {
	return r.dbConnection.Dialect().Rebind(query)
}

type encodedJobExecution struct {
	params, failures, context string
}

func encodeJobExecution(je *core.JobExecution) (encodedJobExecution, error) {
	var v encodedJobExecution
	params, err := serialization.MarshalJobParameters(je.Parameters)
	if err != nil {
		return v, err
	}
	failures, err := serialization.MarshalFailures(je.Failures)
	if err != nil {
		return v, err
	}
	ec, err := serialization.MarshalExecutionContext(je.ExecutionContext)
	if err != nil {
		return v, err
	}
	return encodedJobExecution{params: string(params), failures: string(failures), context: string(ec)}, nil
}

// SaveJobExecution は新しい JobExecution をデータベースに保存します。
func (r *SQLJobExecutionRepository) SaveJobExecution(ctx context.Context, je *core.JobExecution) error {
	v, err := encodeJobExecution(je)
	if err != nil {
		return err
	}
	query := r.rebind(`INSERT INTO batch_job_execution (` + jobExecutionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.dbConnection.ExecContext(ctx, query,
		je.ID,
		je.JobInstanceID,
		je.JobName,
		v.params,
		nullTime(je.StartTime),
		nullTime(je.EndTime),
		string(je.Status),
		string(je.ExitStatus),
		je.ExitCode,
		v.failures,
		je.Version,
		je.CreateTime.UTC(),
		je.LastUpdated.UTC(),
		v.context,
		je.CurrentStepName,
	)
	if err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の保存に失敗しました", je.ID), err, false, false)
	}
	logger.Debugf("JobExecution (ID: %s, Status: %s) を保存しました。", je.ID, je.Status)
	return nil
}

// UpdateJobExecution は JobExecution を更新し、Version を 1 つ進めます。
// 保存済みの Version が一致しない場合はエラーを返します。
func (r *SQLJobExecutionRepository) UpdateJobExecution(ctx context.Context, je *core.JobExecution) error {
	v, err := encodeJobExecution(je)
	if err != nil {
		return err
	}
	je.LastUpdated = time.Now()
	query := r.rebind(`UPDATE batch_job_execution
SET start_time = ?, end_time = ?, status = ?, exit_status = ?, exit_code = ?, failures = ?,
    version = ?, last_updated = ?, execution_context = ?, current_step_name = ?
WHERE id = ? AND version = ?`)
	res, err := r.dbConnection.ExecContext(ctx, query,
		nullTime(je.StartTime),
		nullTime(je.EndTime),
		string(je.Status),
		string(je.ExitStatus),
		je.ExitCode,
		v.failures,
		je.Version+1,
		je.LastUpdated.UTC(),
		v.context,
		je.CurrentStepName,
		je.ID,
		je.Version,
	)
	if err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の更新に失敗しました", je.ID), err, true, false)
	}
	if err := checkUpdated(res, "JobExecution", je.ID, je.Version); err != nil {
		return err
	}
	je.Version++
	logger.Debugf("JobExecution (ID: %s, Status: %s, Version: %d) を更新しました。", je.ID, je.Status, je.Version)
	return nil
}

// FindJobExecutionByID は JobExecution を StepExecution と共にロードします。
func (r *SQLJobExecutionRepository) FindJobExecutionByID(ctx context.Context, executionID string) (*core.JobExecution, error) {
	query := r.rebind(`SELECT ` + jobExecutionColumns + ` FROM batch_job_execution WHERE id = ?`)
	je, err := scanJobExecution(r.dbConnection.QueryRowContext(ctx, query, executionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exception.NewBatchErrorf(module, err, "JobExecution (ID: %s) が見つかりません", executionID)
	}
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の取得に失敗しました", executionID), err, false, false)
	}
	if err := r.attachSteps(ctx, je); err != nil {
		return nil, err
	}
	return je, nil
}

// FindLatestJobExecution は JobInstance の最新の JobExecution を返します。存在しない場合は nil, nil です。
func (r *SQLJobExecutionRepository) FindLatestJobExecution(ctx context.Context, jobInstanceID string) (*core.JobExecution, error) {
	query := r.rebind(`SELECT ` + jobExecutionColumns + ` FROM batch_job_execution WHERE job_instance_id = ? ORDER BY create_time DESC`)
	je, err := scanJobExecution(r.dbConnection.QueryRowContext(ctx, query, jobInstanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の最新 JobExecution の取得に失敗しました", jobInstanceID), err, false, false)
	}
	if err := r.attachSteps(ctx, je); err != nil {
		return nil, err
	}
	return je, nil
}

// FindJobExecutionsByJobInstance は JobInstance の JobExecution を作成順で返します。
func (r *SQLJobExecutionRepository) FindJobExecutionsByJobInstance(ctx context.Context, jobInstance *core.JobInstance) ([]*core.JobExecution, error) {
	query := r.rebind(`SELECT ` + jobExecutionColumns + ` FROM batch_job_execution WHERE job_instance_id = ? ORDER BY create_time`)
	rows, err := r.dbConnection.QueryContext(ctx, query, jobInstance.ID)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の JobExecution 一覧の取得に失敗しました", jobInstance.ID), err, false, false)
	}
	defer rows.Close()

	var executions []*core.JobExecution
	for rows.Next() {
		je, err := scanJobExecution(rows)
		if err != nil {
			return nil, exception.NewBatchError(module, "JobExecution のスキャンに失敗しました", err, false, false)
		}
		executions = append(executions, je)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(module, "JobExecution 一覧の読み込み中にエラーが発生しました", err, false, false)
	}
	rows.Close()

	for _, je := range executions {
		if err := r.attachSteps(ctx, je); err != nil {
			return nil, err
		}
	}
	return executions, nil
}

func (r *SQLJobExecutionRepository) attachSteps(ctx context.Context, je *core.JobExecution) error {
	if r.stepRepo == nil {
		return nil
	}
	steps, err := r.stepRepo.FindStepExecutionsByJobExecutionID(ctx, je.ID)
	if err != nil {
		return err
	}
	for _, se := range steps {
		se.JobExecution = je
	}
	je.StepExecutions = steps
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJobExecution(row rowScanner) (*core.JobExecution, error) {
	je := &core.JobExecution{}
	var (
		params, failures, ec, exitStatus, currentStep sql.NullString
		start, end                                    sql.NullTime
		exitCode                                      sql.NullInt64
		status                                        string
	)
	err := row.Scan(
		&je.ID, &je.JobInstanceID, &je.JobName, &params,
		&start, &end, &status, &exitStatus, &exitCode, &failures,
		&je.Version, &je.CreateTime, &je.LastUpdated, &ec, &currentStep,
	)
	if err != nil {
		return nil, err
	}
	je.StartTime = timeOf(start)
	je.EndTime = timeOf(end)
	je.Status = core.JobStatus(status)
	je.ExitStatus = core.ExitStatus(exitStatus.String)
	je.ExitCode = int(exitCode.Int64)
	je.CurrentStepName = currentStep.String
	je.StepExecutions = make([]*core.StepExecution, 0)

	if err := serialization.UnmarshalJobParameters([]byte(params.String), &je.Parameters); err != nil {
		logger.Errorf("JobExecution (ID: %s) の JobParameters のデコードに失敗しました: %v", je.ID, err)
	}
	if err := serialization.UnmarshalExecutionContext([]byte(ec.String), &je.ExecutionContext); err != nil {
		logger.Errorf("JobExecution (ID: %s) の ExecutionContext のデコードに失敗しました: %v", je.ID, err)
	}
	if je.Failures, err = serialization.UnmarshalFailures([]byte(failures.String)); err != nil {
		logger.Errorf("JobExecution (ID: %s) の Failures のデコードに失敗しました: %v", je.ID, err)
		je.Failures = []error{}
	}
	return je, nil
}

// checkUpdated は楽観ロックによる更新が 1 行に適用されたことを確認します。
func checkUpdated(res sql.Result, entity, id string, version int) error {
	n, err := res.RowsAffected()
	if err != nil {
		// 影響行数を返さないドライバでは検証を省略する
		return nil
	}
	if n == 0 {
		return exception.NewBatchErrorf(module, nil, "%s (ID: %s, Version: %d) は他の更新と競合したか存在しません", entity, id, version)
	}
	return nil
}
