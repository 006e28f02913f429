package writer

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	reader "github.com/Vignesh4110/finance-modernization/example/as400/step/reader"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// CSVTableWriter はデコード済みレコードを <prefix><layout>.csv に書き出します。
// ファイルはトランザクションに参加しないため、チャンクがロールバックされても書き込み済みの行は残ります。
type CSVTableWriter struct {
	dir    string
	name   string
	layout *fixedwidth.RecordLayout

	file *os.File
	w    *csv.Writer
	rows int
}

var _ core.ItemWriter[entity.DecodedRow] = (*CSVTableWriter)(nil)

// NewCSVTableWriter は新しい CSVTableWriter を作成します。
func NewCSVTableWriter(dir string, layout *fixedwidth.RecordLayout, prefix string) *CSVTableWriter {
	return &CSVTableWriter{
		dir:    dir,
		name:   prefix + strings.ToLower(layout.Name) + ".csv",
		layout: layout,
	}
}

// Path は出力先ファイルのパスです。
func (w *CSVTableWriter) Path() string {
	return filepath.Join(w.dir, w.name)
}

// Open はファイルを作成してヘッダを書き込みます。
// Reader の再開位置がある場合は既存ファイルに追記します。
func (w *CSVTableWriter) Open(ctx context.Context, ec core.ExecutionContext) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return exception.NewBatchError("csv_table_writer", fmt.Sprintf("出力ディレクトリ '%s' の作成に失敗しました", w.dir), err, false, false)
	}
	resume, _ := ec.GetInt(reader.LinePositionKey)
	appending := false
	if resume > 0 {
		if _, err := os.Stat(w.Path()); err == nil {
			appending = true
		}
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if appending {
		flags = os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(w.Path(), flags, 0o644)
	if err != nil {
		return exception.NewBatchError("csv_table_writer", fmt.Sprintf("ファイル '%s' を開けませんでした", w.Path()), err, false, false)
	}
	w.file = f
	w.w = csv.NewWriter(f)
	if appending {
		logger.Infof("CSV '%s' に追記します。", w.Path())
		return nil
	}
	if err := w.w.Write(headerRow(w.layout)); err != nil {
		return exception.NewBatchError("csv_table_writer", "CSV ヘッダの書き込みに失敗しました", err, false, false)
	}
	return nil
}

// Write は items を CSV に書き込み、チャンクごとにフラッシュします。
func (w *CSVTableWriter) Write(ctx context.Context, tx database.Tx, items []entity.DecodedRow) error {
	for _, row := range items {
		rec := make([]string, 0, len(w.layout.Fields)+2)
		rec = append(rec, row.File, strconv.Itoa(row.Line))
		for _, f := range w.layout.Fields {
			rec = append(rec, formatValue(f, row.Record[f.OutputName]))
		}
		if err := w.w.Write(rec); err != nil {
			return exception.NewBatchError("csv_table_writer", fmt.Sprintf("%s %d 行目の CSV 出力に失敗しました", row.File, row.Line), err, false, false)
		}
	}
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		return exception.NewBatchError("csv_table_writer", "CSV のフラッシュに失敗しました", err, false, false)
	}
	w.rows += len(items)
	return nil
}

// Close はファイルを閉じます。
func (w *CSVTableWriter) Close(ctx context.Context) error {
	if w.file == nil {
		return nil
	}
	w.w.Flush()
	flushErr := w.w.Error()
	closeErr := w.file.Close()
	w.file = nil
	if flushErr != nil {
		return flushErr
	}
	if closeErr == nil {
		logger.Infof("CSV '%s' に %d 件出力しました。", w.Path(), w.rows)
	}
	return closeErr
}
