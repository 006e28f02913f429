package fixedwidth

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LineTerminator はレガシー環境に合わせた改行コードです。
const LineTerminator = "\r\n"

// EncodeRecord はレコードを固定長の 1 行に変換します。改行は含みません。
// レコードにないフィールドは種別ごとの空表現で埋めます。
func EncodeRecord(layout *RecordLayout, rec Record) (string, error) {
	var sb strings.Builder
	sb.Grow(layout.RecordLength)
	for _, f := range layout.Fields {
		s, err := f.Encode(rec[f.OutputName])
		if err != nil {
			return "", fmt.Errorf("%s: %w", layout.Name, err)
		}
		sb.WriteString(s)
	}
	line := sb.String()
	if len(line) != layout.RecordLength {
		return "", fmt.Errorf("%w: %s encoded %d characters, want %d", ErrRecordLength, layout.Name, len(line), layout.RecordLength)
	}
	return line, nil
}

// Canonicalize は行をデコードして再エンコードした正規形を返します。
// 正規形を再度デコード・エンコードしても変化しないこと (不動点) を確認します。
func Canonicalize(layout *RecordLayout, line string) (string, error) {
	res := DecodeLine(layout, 1, line)
	if res.Rejected() {
		return "", res.Errors[0]
	}
	first, err := EncodeRecord(layout, res.Record)
	if err != nil {
		return "", err
	}
	again := DecodeLine(layout, 1, first)
	if again.Rejected() || len(again.Errors) > 0 {
		return "", fmt.Errorf("%w: %s canonical form does not decode cleanly", ErrRoundTrip, layout.Name)
	}
	second, err := EncodeRecord(layout, again.Record)
	if err != nil {
		return "", err
	}
	if second != first {
		return "", fmt.Errorf("%w: %s\n first: %q\nsecond: %q", ErrRoundTrip, layout.Name, first, second)
	}
	return first, nil
}

// Writer は固定長レコードを CRLF 区切りで書き出します。
type Writer struct {
	layout *RecordLayout
	w      *bufio.Writer
	count  int
}

// NewWriter は w に書き込む Writer を作成します。
func NewWriter(w io.Writer, layout *RecordLayout) *Writer {
	return &Writer{layout: layout, w: bufio.NewWriter(w)}
}

// Write は 1 レコードを書き込みます。
func (w *Writer) Write(rec Record) error {
	line, err := EncodeRecord(w.layout, rec)
	if err != nil {
		return err
	}
	if _, err := w.w.WriteString(line); err != nil {
		return err
	}
	if _, err := w.w.WriteString(LineTerminator); err != nil {
		return err
	}
	w.count++
	return nil
}

// Count は書き込んだレコード数です。
func (w *Writer) Count() int {
	return w.count
}

// Flush はバッファを書き出します。
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// WriteFile は records を path に書き出します。既存のファイルは上書きします。
func WriteFile(path string, layout *RecordLayout, records []Record) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	w := NewWriter(f, layout)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return w.Flush()
}
