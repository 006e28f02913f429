package fixedwidth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// MaxLineBytes は 1 行として保持する最大バイト数です。これを超える部分は読み捨てます。
const MaxLineBytes = 1 << 20

// 破棄した長大行の DecodeError.Raw に残すバイト数
const longLineRawBytes = 80

// PhysicalLine は改行を除いた物理行です。
type PhysicalLine struct {
	Number int    // 1 始まり。空行も数える
	Text   string // MaxLineBytes で切り詰めた内容
	Length int    // 元の行のバイト数
}

// Truncated は行が MaxLineBytes を超えて切り詰められたかどうかを返します。
func (l PhysicalLine) Truncated() bool {
	return l.Length > len(l.Text)
}

// Blank は空行 (空白のみの行を含む) かどうかを返します。
func (l PhysicalLine) Blank() bool {
	return !l.Truncated() && strings.TrimSpace(l.Text) == ""
}

// LineReader は \n または \r\n 区切りの行を読み込みます。
// MaxLineBytes を超える行でも読み込みを止めず、超過分を読み捨てて次の行に進みます。
type LineReader struct {
	br     *bufio.Reader
	max    int
	lineNo int
}

// NewLineReader は新しい LineReader を作成します。
func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{br: bufio.NewReaderSize(r, 64*1024), max: MaxLineBytes}
}

// Next は次の物理行を返します。終端では io.EOF を返します。
func (r *LineReader) Next() (PhysicalLine, error) {
	var (
		buf    []byte
		length int
	)
	for {
		frag, isPrefix, err := r.br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && length > 0 {
				break
			}
			return PhysicalLine{}, err
		}
		length += len(frag)
		if room := r.max - len(buf); room > 0 {
			if len(frag) > room {
				frag = frag[:room]
			}
			buf = append(buf, frag...)
		}
		if !isPrefix {
			break
		}
	}
	r.lineNo++
	text := string(buf)
	if length == len(buf) {
		// 終端の改行を伴わない \r
		text = strings.TrimRight(text, "\r")
		length = len(text)
	}
	return PhysicalLine{Number: r.lineNo, Text: text, Length: length}, nil
}

// Line は最後に返した行の番号です。
func (r *LineReader) Line() int {
	return r.lineNo
}

// DecodePhysicalLine は LineReader が返した行をデコードします。
// 切り詰められた行はレコード長を判定できないため、レコードごと捨てます。
func DecodePhysicalLine(layout *RecordLayout, l PhysicalLine) LineResult {
	if !l.Truncated() {
		return DecodeLine(layout, l.Number, l.Text)
	}
	raw := l.Text
	if len(raw) > longLineRawBytes {
		raw = raw[:longLineRawBytes] + "..."
	}
	return LineResult{
		Line: l.Number,
		Text: raw,
		Errors: []*DecodeError{{
			Line: l.Number,
			Raw:  raw,
			Cause: fmt.Errorf("%w: line of %d bytes exceeds %d byte limit (record length %d)",
				ErrRecordLength, l.Length, MaxLineBytes, layout.RecordLength),
		}},
	}
}
