package entity

import (
	"fmt"

	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// RawLine は物理ファイルから読み込んだ 1 行です。
type RawLine struct {
	File   string // ファイル名 (ディレクトリを含まない)
	Layout string
	Line   int // 1 始まり。空行も数える
	Text   string
	// Length は元の行のバイト数です。Text より長ければ切り詰められています。
	Length int
}

func (l RawLine) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// DecodedRow はデコード済みのレコードです。
// フィールド単位のエラーがあっても、そのフィールドを欠損値にして出力されます。
type DecodedRow struct {
	File   string
	Line   int
	Record fixedwidth.Record
	Errors []*fixedwidth.DecodeError
}

func (r DecodedRow) String() string {
	return fmt.Sprintf("%s:%d", r.File, r.Line)
}
