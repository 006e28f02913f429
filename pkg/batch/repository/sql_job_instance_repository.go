package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	serialization "github.com/Vignesh4110/finance-modernization/pkg/batch/util/serialization"
)

const jobInstanceColumns = "id, job_name, job_parameters, parameters_hash, create_time, version"

// SQLJobInstanceRepository は JobInstance インターフェースの SQL データベース実装です。
type SQLJobInstanceRepository struct {
	dbConnection database.DBConnection
}

// NewSQLJobInstanceRepository は新しい SQLJobInstanceRepository のインスタンスを作成します。
func NewSQLJobInstanceRepository(dbConn database.DBConnection) *SQLJobInstanceRepository {
	return &SQLJobInstanceRepository{dbConnection: dbConn}
}

func (r *SQLJobInstanceRepository) rebind(query string) string {
	return r.dbConnection.Dialect().Rebind(query)
}

// SaveJobInstance は新しい JobInstance をデータベースに保存します。
func (r *SQLJobInstanceRepository) SaveJobInstance(ctx context.Context, jobInstance *core.JobInstance) error {
	paramsJSON, err := serialization.MarshalJobParameters(jobInstance.Parameters)
	if err != nil {
		return err
	}
	if jobInstance.ParametersHash == "" {
		jobInstance.ParametersHash = jobInstance.Parameters.Hash()
	}

	query := r.rebind(`INSERT INTO batch_job_instance (` + jobInstanceColumns + `) VALUES (?, ?, ?, ?, ?, ?)`)
	_, err = r.dbConnection.ExecContext(ctx, query,
		jobInstance.ID,
		jobInstance.JobName,
		string(paramsJSON),
		jobInstance.ParametersHash,
		jobInstance.CreateTime.UTC(),
		jobInstance.Version,
	)
	if err != nil {
		return exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の保存に失敗しました", jobInstance.ID), err, false, false)
	}

	logger.Debugf("JobInstance (ID: %s, JobName: %s) を保存しました。", jobInstance.ID, jobInstance.JobName)
	return nil
}

// FindJobInstanceByJobNameAndParameters はジョブ名とパラメータハッシュで JobInstance を検索します。
func (r *SQLJobInstanceRepository) FindJobInstanceByJobNameAndParameters(ctx context.Context, jobName string, params core.JobParameters) (*core.JobInstance, error) {
	query := r.rebind(`SELECT ` + jobInstanceColumns + ` FROM batch_job_instance WHERE job_name = ? AND parameters_hash = ? ORDER BY create_time DESC`)
	ji, err := scanJobInstance(r.dbConnection.QueryRowContext(ctx, query, jobName, params.Hash()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (JobName: %s) の検索に失敗しました", jobName), err, false, false)
	}
	return ji, nil
}

// FindJobInstanceByID は指定された ID の JobInstance をデータベースから取得します。
func (r *SQLJobInstanceRepository) FindJobInstanceByID(ctx context.Context, instanceID string) (*core.JobInstance, error) {
	query := r.rebind(`SELECT ` + jobInstanceColumns + ` FROM batch_job_instance WHERE id = ?`)
	ji, err := scanJobInstance(r.dbConnection.QueryRowContext(ctx, query, instanceID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, exception.NewBatchErrorf(module, err, "JobInstance (ID: %s) が見つかりません", instanceID)
	}
	if err != nil {
		return nil, exception.NewBatchError(module, fmt.Sprintf("JobInstance (ID: %s) の取得に失敗しました", instanceID), err, false, false)
	}
	return ji, nil
}

// GetJobInstanceCount は指定されたジョブ名の JobInstance の数を返します。
func (r *SQLJobInstanceRepository) GetJobInstanceCount(ctx context.Context, jobName string) (int, error) {
	var count int
	query := r.rebind(`SELECT COUNT(*) FROM batch_job_instance WHERE job_name = ?`)
	if err := r.dbConnection.QueryRowContext(ctx, query, jobName).Scan(&count); err != nil {
		return 0, exception.NewBatchError(module, fmt.Sprintf("JobInstance 数 (JobName: %s) の取得に失敗しました", jobName), err, false, false)
	}
	return count, nil
}

// GetJobNames は登録済みのジョブ名を名前順で返します。
func (r *SQLJobInstanceRepository) GetJobNames(ctx context.Context) ([]string, error) {
	rows, err := r.dbConnection.QueryContext(ctx, `SELECT DISTINCT job_name FROM batch_job_instance ORDER BY job_name`)
	if err != nil {
		return nil, exception.NewBatchError(module, "ジョブ名一覧の取得に失敗しました", err, false, false)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, exception.NewBatchError(module, "ジョブ名のスキャンに失敗しました", err, false, false)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(module, "ジョブ名一覧の読み込み中にエラーが発生しました", err, false, false)
	}
	return names, nil
}

func scanJobInstance(row *sql.Row) (*core.JobInstance, error) {
	ji := &core.JobInstance{}
	var paramsJSON sql.NullString
	if err := row.Scan(&ji.ID, &ji.JobName, &paramsJSON, &ji.ParametersHash, &ji.CreateTime, &ji.Version); err != nil {
		return nil, err
	}
	if err := serialization.UnmarshalJobParameters([]byte(paramsJSON.String), &ji.Parameters); err != nil {
		logger.Errorf("JobInstance (ID: %s) の JobParameters のデコードに失敗しました: %v", ji.ID, err)
	}
	return ji, nil
}
