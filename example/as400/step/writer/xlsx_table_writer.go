package writer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// xlsxMaxRows は 1 シートに書ける最大行数です (ヘッダを含む)。
const xlsxMaxRows = excelize.TotalRows

// XLSXTableWriter はデコード済みレコードを <prefix><layout>.xlsx のシートに書き出します。
// StreamWriter で行を追加し、Close 時にファイルへ保存します。
// 金額は丸めを避けるため scale 桁固定の文字列として書き込みます。
type XLSXTableWriter struct {
	dir    string
	name   string
	layout *fixedwidth.RecordLayout

	file   *excelize.File
	stream *excelize.StreamWriter
	row    int
}

var _ core.ItemWriter[entity.DecodedRow] = (*XLSXTableWriter)(nil)

// NewXLSXTableWriter は新しい XLSXTableWriter を作成します。
func NewXLSXTableWriter(dir string, layout *fixedwidth.RecordLayout, prefix string) *XLSXTableWriter {
	return &XLSXTableWriter{
		dir:    dir,
		name:   prefix + strings.ToLower(layout.Name) + ".xlsx",
		layout: layout,
	}
}

// Path は出力先ファイルのパスです。
func (w *XLSXTableWriter) Path() string {
	return filepath.Join(w.dir, w.name)
}

// Open はブックを作成し、レイアウト名のシートにヘッダ行を書き込みます。
func (w *XLSXTableWriter) Open(ctx context.Context, ec core.ExecutionContext) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return exception.NewBatchError("xlsx_table_writer", fmt.Sprintf("出力ディレクトリ '%s' の作成に失敗しました", w.dir), err, false, false)
	}
	f := excelize.NewFile()
	sheet := w.layout.Name
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		_ = f.Close()
		return exception.NewBatchError("xlsx_table_writer", "シート名の設定に失敗しました", err, false, false)
	}
	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		_ = f.Close()
		return exception.NewBatchError("xlsx_table_writer", "StreamWriter の作成に失敗しました", err, false, false)
	}
	header := headerRow(w.layout)
	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := sw.SetRow("A1", cells); err != nil {
		_ = f.Close()
		return exception.NewBatchError("xlsx_table_writer", "ヘッダ行の書き込みに失敗しました", err, false, false)
	}
	w.file, w.stream, w.row = f, sw, 1
	return nil
}

// Write は items をシートに追加します。
func (w *XLSXTableWriter) Write(ctx context.Context, tx database.Tx, items []entity.DecodedRow) error {
	if w.row+len(items) > xlsxMaxRows {
		return exception.NewBatchErrorf("xlsx_table_writer", nil, "シート '%s' の行数が上限 %d を超えます", w.layout.Name, xlsxMaxRows)
	}
	for _, row := range items {
		cells := make([]interface{}, 0, len(w.layout.Fields)+2)
		cells = append(cells, row.File, row.Line)
		for _, f := range w.layout.Fields {
			cells = append(cells, formatValue(f, row.Record[f.OutputName]))
		}
		w.row++
		cell, err := excelize.CoordinatesToCellName(1, w.row)
		if err != nil {
			return exception.NewBatchError("xlsx_table_writer", "セル座標の計算に失敗しました", err, false, false)
		}
		if err := w.stream.SetRow(cell, cells); err != nil {
			return exception.NewBatchError("xlsx_table_writer", fmt.Sprintf("%s %d 行目の XLSX 出力に失敗しました", row.File, row.Line), err, false, false)
		}
	}
	return nil
}

// Close はシートを確定してファイルに保存します。
func (w *XLSXTableWriter) Close(ctx context.Context) error {
	if w.file == nil {
		return nil
	}
	defer func() {
		if err := w.file.Close(); err != nil {
			logger.Warnf("XLSX ブックのクローズに失敗しました: %v", err)
		}
		w.file, w.stream = nil, nil
	}()
	if err := w.stream.Flush(); err != nil {
		return exception.NewBatchError("xlsx_table_writer", "シートのフラッシュに失敗しました", err, false, false)
	}
	if err := w.file.SaveAs(w.Path()); err != nil {
		return exception.NewBatchError("xlsx_table_writer", fmt.Sprintf("'%s' の保存に失敗しました", w.Path()), err, false, false)
	}
	logger.Infof("XLSX '%s' に %d 件出力しました。", w.Path(), w.row-1)
	return nil
}
