package fixedwidth

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// LineResult は 1 行分のデコード結果です。
type LineResult struct {
	Line   int
	Text   string // 改行を除いた元の行
	Record Record
	Errors []*DecodeError
	// Padded は行がレコード長に満たず空白で補われたことを示します。
	Padded bool
}

// Rejected はレコード全体が捨てられたかどうかを返します。
func (r LineResult) Rejected() bool {
	return r.Record == nil
}

// DecodeLine は 1 行をレイアウトに従ってデコードします。
//
// フィールドは宣言順にバイト位置で切り出し、それぞれ独立にデコードします。
// 失敗したフィールドは DecodeError を記録して欠損値とし、残りのフィールドはそのままデコードします。
// レコード長に満たない行は空白で補います。先頭フィールドすら収まらない行はレコードごと捨てます。
func DecodeLine(layout *RecordLayout, lineNo int, line string) LineResult {
	line = strings.TrimRight(line, "\r\n")
	res := LineResult{Line: lineNo, Text: line}

	if first := layout.Fields[0]; len(line) < first.Width {
		res.Errors = []*DecodeError{{
			Line: lineNo,
			Raw:  line,
			Cause: fmt.Errorf("%w: %d characters do not cover first field %s (%d)",
				ErrRecordLength, len(line), first.SourceName, first.Width),
		}}
		return res
	}
	if len(line) < layout.RecordLength {
		logger.Warnf("%s %d 行目: 行長 %d がレコード長 %d に満たないため空白で補います。", layout.Name, lineNo, len(line), layout.RecordLength)
		line += strings.Repeat(" ", layout.RecordLength-len(line))
		res.Padded = true
	}

	rec := make(Record, len(layout.Fields))
	offset := 0
	for _, f := range layout.Fields {
		raw := line[offset : offset+f.Width]
		offset += f.Width
		v, err := f.Decode(raw)
		if err != nil {
			logger.Warnf("%s %d 行目: フィールド %s のデコードに失敗しました: %v", layout.Name, lineNo, f.SourceName, err)
			res.Errors = append(res.Errors, &DecodeError{Line: lineNo, SourceName: f.SourceName, Raw: raw, Cause: err})
		}
		rec[f.OutputName] = v
	}
	res.Record = rec
	return res
}

// ScanLines は r の空行以外を 1 行ずつデコードして fn に渡します。
// MaxLineBytes を超える行はレコード単位のエラーとして fn に渡し、次の行へ進みます。
// fn がエラーを返すと走査を中断します。読み込み自体の失敗はエラーとして返します。
func ScanLines(r io.Reader, name string, layout *RecordLayout, fn func(LineResult) error) error {
	lr := NewLineReader(r)
	for {
		l, err := lr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s: read after line %d: %w", name, lr.Line(), err)
		}
		if l.Blank() {
			continue
		}
		if l.Truncated() {
			logger.Warnf("%s %d 行目: 行長 %d バイトが上限 %d を超えるため破棄します。", name, l.Number, l.Length, MaxLineBytes)
		}
		res := DecodePhysicalLine(layout, l)
		for _, e := range res.Errors {
			e.File = name
		}
		if err := fn(res); err != nil {
			return err
		}
	}
}

// DecodeReader は r を最後まで読み、デコードできたレコードと集計を返します。
// 不正なレコードがあっても処理は継続し、エラーを返すのは読み込みに失敗した場合だけです。
func DecodeReader(r io.Reader, name string, layout *RecordLayout) ([]Record, ParseStats, error) {
	var (
		records []Record
		stats   ParseStats
	)
	err := ScanLines(r, name, layout, func(res LineResult) error {
		stats.Add(res)
		if !res.Rejected() {
			records = append(records, res.Record)
		}
		return nil
	})
	if err != nil {
		return records, stats, err
	}
	stats.FilesProcessed = 1
	return records, stats, nil
}

// DecodeFile はファイルを開いて DecodeReader を実行します。
func DecodeFile(path string, layout *RecordLayout) ([]Record, ParseStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ParseStats{}, err
	}
	defer f.Close()
	return DecodeReader(f, filepath.Base(path), layout)
}
