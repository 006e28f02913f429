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

const stepExecutionColumns = "id, job_execution_id, step_name, start_time, end_time, status, exit_status, failures, read_count, write_count, commit_count, rollback_count, filter_count, skip_read_count, skip_process_count, skip_write_count, execution_context, last_updated, version"

// SQLStepExecutionRepository は StepExecution インターフェースの SQL データベース実装です。
type SQLStepExecutionRepository struct {
	dbConnection database.DBConnection
}

// NewSQLStepExecutionRepository は新しい SQLStepExecutionRepository のインスタンスを作成します。
func NewSQLStepExecutionRepository(dbConn database.DBConnection) *SQLStepExecutionRepository {
	return &SQLStepExecutionRepository{dbConnection: dbConn}
}

func (r *SQLStepExecutionRepository) rebind(query string) string {
	return r.dbConnection.Dialect().Rebind(query)
}

// SaveStepExecution は新しい StepExecution をデータベースに保存します。
func (r *SQLStepExecutionRepository) SaveStepExecution(ctx context.Context, se *core.StepExecution) error {
	if se.JobExecution == nil {
		return exception.NewBatchError(module, "StepExecution が JobExecution に紐づいていません", nil, false, false)
	}
	failures, err := serialization.MarshalFailures(se.Failures)
	if err != nil {
		return err
	}
	ec, err := serialization.MarshalExecutionContext(se.ExecutionContext)
	if err != nil {
		return err
	}

	query := r.rebind(`INSERT INTO batch_step_execution (` + stepExecutionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.dbConnection.ExecContext(ctx, query,
		se.ID,
		se.JobExecution.ID,
		se.StepName,
		nullTime(se.StartTime),
		nullTime(se.EndTime),
		string(se.Status),
		string(se.ExitStatus),
		string(failures),
		se.ReadCount,
		se.WriteCount,
		se.CommitCount,
		se.RollbackCount,
		se.FilterCount,
		se.SkipReadCount,
		se.SkipProcessCount,
		se.SkipWriteCount,
		string(ec),
		se.LastUpdated.UTC(),
		se.Version,
	)
	if err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("StepExecution (ID: %s) の保存に失敗しました", se.ID), err, false, false)
	}
	logger.Debugf("StepExecution (ID: %s, StepName: %s) を保存しました。", se.ID, se.StepName)
	return nil
}

// UpdateStepExecution はカウンタと状態を更新し、Version を 1 つ進めます。
func (r *SQLStepExecutionRepository) UpdateStepExecution(ctx context.Context, se *core.StepExecution) error {
	failures, err := serialization.MarshalFailures(se.Failures)
	if err != nil {
		return err
	}
	ec, err := serialization.MarshalExecutionContext(se.ExecutionContext)
	if err != nil {
		return err
	}
	se.LastUpdated = time.Now()

	query := r.rebind(`UPDATE batch_step_execution
SET start_time = ?, end_time = ?, status = ?, exit_status = ?, failures = ?,
    read_count = ?, write_count = ?, commit_count = ?, rollback_count = ?, filter_count = ?,
    skip_read_count = ?, skip_process_count = ?, skip_write_count = ?,
    execution_context = ?, last_updated = ?, version = ?
WHERE id = ? AND version = ?`)
	res, err := r.dbConnection.ExecContext(ctx, query,
		nullTime(se.StartTime),
		nullTime(se.EndTime),
		string(se.Status),
		string(se.ExitStatus),
		string(failures),
		se.ReadCount,
		se.WriteCount,
		se.CommitCount,
		se.RollbackCount,
		se.FilterCount,
		se.SkipReadCount,
		se.SkipProcessCount,
		se.SkipWriteCount,
		string(ec),
		se.LastUpdated.UTC(),
		se.Version+1,
		se.ID,
		se.Version,
	)
	if err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("StepExecution (ID: %s) の更新に失敗しました", se.ID), err, true, false)
	}
	if err := checkUpdated(res, "StepExecution", se.ID, se.Version); err != nil {
		return err
	}
	se.Version++
	logger.Debugf("StepExecution (ID: %s, Status: %s, Read: %d, Write: %d) を更新しました。",
		se.ID, se.Status, se.ReadCount, se.WriteCount)
	return nil
}

// FindStepExecutionByID は StepExecution を取得します。
func (r *SQLStepExecutionRepository) FindStepExecutionByID(ctx context.Context, executionID string) (*core.StepExecution, error) {
	query := r.rebind(`SELECT ` + stepExecutionColumns + ` FROM batch_step_execution WHERE id = ?`)
	se, err := scanStepExecution(r.dbConnection.QueryRowContext(ctx, query, executionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exception.NewBatchErrorf(module, err, "StepExecution (ID: %s) が見つかりません", executionID)
	}
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("StepExecution (ID: %s) の取得に失敗しました", executionID), err, false, false)
	}
	return se, nil
}

// FindStepExecutionsByJobExecutionID は JobExecution の StepExecution を開始順で返します。
func (r *SQLStepExecutionRepository) FindStepExecutionsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]*core.StepExecution, error) {
	query := r.rebind(`SELECT ` + stepExecutionColumns + ` FROM batch_step_execution WHERE job_execution_id = ? ORDER BY start_time, step_name`)
	rows, err := r.dbConnection.QueryContext(ctx, query, jobExecutionID)
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobExecution (ID: %s) の StepExecution 一覧の取得に失敗しました", jobExecutionID), err, false, false)
	}
	defer rows.Close()

	steps := make([]*core.StepExecution, 0)
	for rows.Next() {
		se, err := scanStepExecution(rows)
		if err != nil {
			return nil, exception.NewBatchError(module, "StepExecution のスキャンに失敗しました", err, false, false)
		}
		steps = append(steps, se)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(module, "StepExecution 一覧の読み込み中にエラーが発生しました", err, false, false)
	}
	return steps, nil
}

func scanStepExecution(row rowScanner) (*core.StepExecution, error) {
	se := &core.StepExecution{}
	var (
		jobExecutionID, status   string
		exitStatus, failures, ec sql.NullString
		start, end               sql.NullTime
	)
	err := row.Scan(
		&se.ID, &jobExecutionID, &se.StepName, &start, &end, &status, &exitStatus, &failures,
		&se.ReadCount, &se.WriteCount, &se.CommitCount, &se.RollbackCount, &se.FilterCount,
		&se.SkipReadCount, &se.SkipProcessCount, &se.SkipWriteCount,
		&ec, &se.LastUpdated, &se.Version,
	)
	if err != nil {
		return nil, err
	}
	se.JobExecution = &core.JobExecution{ID: jobExecutionID}
	se.StartTime = timeOf(start)
	se.EndTime = timeOf(end)
	se.Status = core.JobStatus(status)
	se.ExitStatus = core.ExitStatus(exitStatus.String)

	if err := serialization.UnmarshalExecutionContext([]byte(ec.String), &se.ExecutionContext); err != nil {
		logger.Errorf("StepExecution (ID: %s) の ExecutionContext のデコードに失敗しました: %v", se.ID, err)
	}
	if se.Failures, err = serialization.UnmarshalFailures([]byte(failures.String)); err != nil {
		logger.Errorf("StepExecution (ID: %s) の Failures のデコードに失敗しました: %v", se.ID, err)
		se.Failures = []error{}
	}
	return se, nil
}
