package writer

import (
	"context"
	"fmt"
	"strings"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	"github.com/Vignesh4110/finance-modernization/example/as400/step/reader"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// SQLTableWriter はデコード済みレコードを取込先テーブルへ挿入します。
// テーブルはレイアウトから生成した DDL で Open 時に作成し、挿入はチャンクのトランザクション内で行います。
// 全行に load_id と取込元のファイル名・行番号を付けます。
// 同じ load_id で再実行された場合、Open で再開位置より後ろの行を削除してから挿入し直します。
type SQLTableWriter struct {
	conn       database.DBConnection
	layout     *fixedwidth.RecordLayout
	table      string
	loadID     string
	sourceFile string

	insertSQL string
}

var _ core.ItemWriter[entity.DecodedRow] = (*SQLTableWriter)(nil)

// NewSQLTableWriter は新しい SQLTableWriter を作成します。テーブル名は prefix とレイアウト名の小文字です。
func NewSQLTableWriter(conn database.DBConnection, layout *fixedwidth.RecordLayout, prefix, loadID, sourceFile string) *SQLTableWriter {
	return &SQLTableWriter{
		conn:       conn,
		layout:     layout,
		table:      prefix + strings.ToLower(layout.Name),
		loadID:     loadID,
		sourceFile: sourceFile,
	}
}

// TableName は書き込み先のテーブル名です。
func (w *SQLTableWriter) TableName() string {
	return w.table
}

// Open は取込先テーブルが無ければ作成し、コミット済み位置より後ろの行を削除します。
func (w *SQLTableWriter) Open(ctx context.Context, ec core.ExecutionContext) error {
	d := w.conn.Dialect()
	ddl := CreateTableDDL(d, w.table, w.layout)
	if _, err := w.conn.ExecContext(ctx, ddl); err != nil {
		return exception.NewBatchError("sql_table_writer", fmt.Sprintf("テーブル '%s' の作成に失敗しました", w.table), err, false, false)
	}

	resume, _ := ec.GetInt(reader.LinePositionKey)
	del := d.Rebind(fmt.Sprintf("DELETE FROM %s WHERE %s = ? AND %s = ? AND %s > ?",
		d.QuoteIdent(w.table), d.QuoteIdent(columnLoadID), d.QuoteIdent(columnSourceFile), d.QuoteIdent(columnSourceLine)))
	res, err := w.conn.ExecContext(ctx, del, w.loadID, w.sourceFile, resume)
	if err != nil {
		return exception.NewBatchError("sql_table_writer", fmt.Sprintf("テーブル '%s' の未確定行の削除に失敗しました", w.table), err, false, false)
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		logger.Warnf("テーブル '%s' から %s の %d 行目より後ろの行 %d 件を削除しました。", w.table, w.sourceFile, resume, n)
	}

	w.insertSQL = w.buildInsert()
	logger.Debugf("取込先テーブル '%s' を準備しました。", w.table)
	return nil
}

// Write は items をトランザクション tx 内で挿入します。
func (w *SQLTableWriter) Write(ctx context.Context, tx database.Tx, items []entity.DecodedRow) error {
	if len(items) == 0 {
		return nil
	}
	if tx == nil {
		return exception.NewBatchErrorf("sql_table_writer", nil, "テーブル '%s' への書き込みにはトランザクションが必要です", w.table)
	}
	stmt, err := tx.PrepareContext(ctx, w.insertSQL)
	if err != nil {
		return exception.NewBatchError("sql_table_writer", fmt.Sprintf("テーブル '%s' の挿入文の準備に失敗しました", w.table), err, false, false)
	}
	defer stmt.Close()

	for _, row := range items {
		if err := ctx.Err(); err != nil {
			return err
		}
		args := make([]any, 0, len(w.layout.Fields)+3)
		args = append(args, w.loadID, row.File, row.Line)
		args = append(args, row.Record.Values(w.layout)...)
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			// 接続断などはチャンク単位で再試行する
			return exception.NewBatchError("sql_table_writer",
				fmt.Sprintf("テーブル '%s' への %s %d 行目の挿入に失敗しました", w.table, row.File, row.Line), err, true, false)
		}
	}
	logger.Debugf("テーブル '%s' に %d 件挿入しました。", w.table, len(items))
	return nil
}

// Close は何もしません。接続はジョブリポジトリが管理します。
func (w *SQLTableWriter) Close(ctx context.Context) error {
	return nil
}

func (w *SQLTableWriter) buildInsert() string {
	d := w.conn.Dialect()
	cols := []string{d.QuoteIdent(columnLoadID), d.QuoteIdent(columnSourceFile), d.QuoteIdent(columnSourceLine)}
	for _, f := range w.layout.Fields {
		cols = append(cols, d.QuoteIdent(f.OutputName))
	}
	return d.Rebind(fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.QuoteIdent(w.table), strings.Join(cols, ", "), database.Placeholders(len(cols))))
}

// CreateTableDDL はレイアウトから取込先テーブルの CREATE TABLE 文を生成します。
func CreateTableDDL(d database.Dialect, table string, layout *fixedwidth.RecordLayout) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "CREATE TABLE IF NOT EXISTS %s (\n", d.QuoteIdent(table))
	fmt.Fprintf(&sb, "    %s VARCHAR(36) NOT NULL,\n", d.QuoteIdent(columnLoadID))
	fmt.Fprintf(&sb, "    %s VARCHAR(255) NOT NULL,\n", d.QuoteIdent(columnSourceFile))
	fmt.Fprintf(&sb, "    %s INTEGER NOT NULL", d.QuoteIdent(columnSourceLine))
	for _, f := range layout.Fields {
		fmt.Fprintf(&sb, ",\n    %s %s", d.QuoteIdent(f.OutputName), columnType(f))
	}
	sb.WriteString("\n)")
	return sb.String()
}

func columnType(f fixedwidth.FieldSpec) string {
	switch f.Kind {
	case fixedwidth.KindScaledDecimal:
		return fmt.Sprintf("NUMERIC(%d, %d)", f.Width, f.Scale)
	case fixedwidth.KindDate:
		return "DATE"
	case fixedwidth.KindTime:
		return "TIME"
	default:
		return fmt.Sprintf("VARCHAR(%d)", f.Width)
	}
}
