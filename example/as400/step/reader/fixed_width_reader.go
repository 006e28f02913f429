package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// LinePositionKey は処理済みの最終行番号を保存する ExecutionContext のキーです。
const LinePositionKey = "fixedwidth.reader.line"

// FixedWidthFileReader は固定長ファイルを 1 行ずつ読み込む ItemReader です。
// 空行 (空白のみの行を含む) は読み飛ばしますが、行番号には数えます。
// fixedwidth.MaxLineBytes を超える行は切り詰めて返し、判定はプロセッサに任せます。
type FixedWidthFileReader struct {
	path   string
	layout string

	file   *os.File
	lines  *fixedwidth.LineReader
	lineNo int
}

var _ core.ItemReader[entity.RawLine] = (*FixedWidthFileReader)(nil)

// NewFixedWidthFileReader は新しい FixedWidthFileReader を作成します。
func NewFixedWidthFileReader(path, layoutName string) *FixedWidthFileReader {
	return &FixedWidthFileReader{path: path, layout: layoutName}
}

// Open はファイルを開き、ExecutionContext に保存された位置まで読み進めます。
func (r *FixedWidthFileReader) Open(ctx context.Context, ec core.ExecutionContext) error {
	f, err := os.Open(r.path)
	if err != nil {
		return exception.NewBatchError("fixed_width_reader", fmt.Sprintf("ファイル '%s' を開けませんでした", r.path), err, false, false)
	}
	r.file = f
	r.lines = fixedwidth.NewLineReader(f)
	r.lineNo = 0

	resume, ok := ec.GetInt(LinePositionKey)
	if !ok || resume <= 0 {
		return nil
	}
	for r.lineNo < resume {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.lines.Next(); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return exception.NewBatchError("fixed_width_reader", "再開位置までの読み込みに失敗しました", err, false, false)
		}
		r.lineNo++
	}
	logger.Infof("'%s' を %d 行目の次から再開します。", filepath.Base(r.path), r.lineNo)
	return nil
}

// Read は次の空でない行を返します。ファイルの終端では io.EOF を返します。
func (r *FixedWidthFileReader) Read(ctx context.Context) (entity.RawLine, error) {
	for {
		if err := ctx.Err(); err != nil {
			return entity.RawLine{}, err
		}
		l, err := r.lines.Next()
		if errors.Is(err, io.EOF) {
			return entity.RawLine{}, io.EOF
		}
		if err != nil {
			return entity.RawLine{}, exception.NewBatchError("fixed_width_reader",
				fmt.Sprintf("'%s' の %d 行目以降の読み込みに失敗しました", r.path, r.lineNo), err, false, false)
		}
		r.lineNo++
		if l.Blank() {
			continue
		}
		return entity.RawLine{
			File:   filepath.Base(r.path),
			Layout: r.layout,
			Line:   r.lineNo,
			Text:   l.Text,
			Length: l.Length,
		}, nil
	}
}

// Close はファイルを閉じます。
func (r *FixedWidthFileReader) Close(ctx context.Context) error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// GetExecutionContext は最後に読み込んだ行番号を返します。
func (r *FixedWidthFileReader) GetExecutionContext(ctx context.Context) (core.ExecutionContext, error) {
	ec := core.NewExecutionContext()
	ec.Put(LinePositionKey, r.lineNo)
	return ec, nil
}
