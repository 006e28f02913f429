package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository/job"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// parseErrorValueLimit は raw_value / cause 列の長さです。
const parseErrorValueLimit = 1024

const parseErrorColumns = "id, job_execution_id, layout_name, file_name, line_number, source_name, raw_value, cause, created_at"

// SQLParseErrorRepository は取り込みエラーを batch_parse_errors に記録します。
type SQLParseErrorRepository struct {
	dbConnection database.DBConnection
}

// NewSQLParseErrorRepository は SQLParseErrorRepository を作成します。
func NewSQLParseErrorRepository(dbConn database.DBConnection) *SQLParseErrorRepository {
	return &SQLParseErrorRepository{dbConnection: dbConn}
}

// SaveParseErrors は errs を 1 トランザクションで保存します。ID と CreatedAt が空なら補完します。
func (r *SQLParseErrorRepository) SaveParseErrors(ctx context.Context, errs []job.ParseError) (err error) {
	if len(errs) == 0 {
		return nil
	}
	tx, err := r.dbConnection.BeginTx(ctx, nil)
	if err != nil {
		return exception.NewBatchError(module, "ParseError 保存用トランザクションの開始に失敗しました", err, true, false)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Warnf("ParseError 保存のロールバックに失敗しました: %v", rbErr)
			}
		}
	}()

	if err = InsertParseErrors(ctx, tx, r.dbConnection.Dialect(), errs); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return exception.NewBatchError(module, "ParseError 保存のコミットに失敗しました", err, true, false)
	}
	logger.Debugf("ParseError を %d 件保存しました。", len(errs))
	return nil
}

// InsertParseErrors は呼び出し元のトランザクション内で errs を挿入します。
// チャンクのトランザクションと同じ単位でエラーを記録する Writer から使います。
func InsertParseErrors(ctx context.Context, tx database.Tx, dialect database.Dialect, errs []job.ParseError) error {
	if len(errs) == 0 {
		return nil
	}
	query := dialect.Rebind(`INSERT INTO batch_parse_errors (` + parseErrorColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return exception.NewBatchError(module, "ParseError 挿入文の準備に失敗しました", err, false, false)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range errs {
		pe := &errs[i]
		if pe.ID == "" {
			pe.ID = uuid.NewString()
		}
		if pe.CreatedAt.IsZero() {
			pe.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			pe.ID, pe.JobExecutionID, pe.LayoutName, pe.FileName, pe.LineNumber, nullString(pe.SourceName),
			truncate(pe.RawValue, parseErrorValueLimit), truncate(pe.Cause, parseErrorValueLimit), pe.CreatedAt.UTC(),
		); err != nil {
			return exception.NewBatchError(module, fmt.Sprintf("ParseError (%s:%d) の保存に失敗しました", pe.FileName, pe.LineNumber), err, false, false)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// FindParseErrorsByJobExecutionID は JobExecution に記録されたエラーをファイルと行番号の順で返します。
func (r *SQLParseErrorRepository) FindParseErrorsByJobExecutionID(ctx context.Context, jobExecutionID string) ([]job.ParseError, error) {
	query := r.dbConnection.Dialect().Rebind(`SELECT ` + parseErrorColumns + ` FROM batch_parse_errors WHERE job_execution_id = ? ORDER BY file_name, line_number, source_name`)
	rows, err := r.dbConnection.QueryContext(ctx, query, jobExecutionID)
	if err != nil {
		return nil, exception.NewBatchError(module, "ParseError 一覧の取得に失敗しました", err, false, false)
	}
	defer rows.Close()

	var out []job.ParseError
	for rows.Next() {
		var pe job.ParseError
		var source, raw sql.NullString
		if err := rows.Scan(&pe.ID, &pe.JobExecutionID, &pe.LayoutName, &pe.FileName, &pe.LineNumber,
			&source, &raw, &pe.Cause, &pe.CreatedAt); err != nil {
			return nil, exception.NewBatchError(module, "ParseError のスキャンに失敗しました", err, false, false)
		}
		pe.SourceName = source.String
		pe.RawValue = raw.String
		out = append(out, pe)
	}
	if err := rows.Err(); err != nil {
		return nil, exception.NewBatchError(module, "ParseError 一覧の読み込み中にエラーが発生しました", err, false, false)
	}
	return out, nil
}

// truncate は UTF-8 の文字境界を保ったまま n バイト以内に切り詰めます。
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
