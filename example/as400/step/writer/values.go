// Package writer はデコード済みレコードの出力先 (SQL テーブル、CSV、XLSX) と取り込みエラーの記録を提供します。
package writer

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// 出力テーブルに付加するメタデータ列です。
const (
	columnLoadID     = "load_id"
	columnSourceFile = "source_file"
	columnSourceLine = "source_line"
)

// formatValue はファイル出力向けに値を文字列化します。欠損値は空文字です。
// 金額は scale 桁固定の表記にして、浮動小数点を経由しません。
func formatValue(f fixedwidth.FieldSpec, v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case decimal.NullDecimal:
		if !x.Valid {
			return ""
		}
		return x.Decimal.StringFixed(int32(f.Scale))
	case decimal.Decimal:
		return x.StringFixed(int32(f.Scale))
	case fixedwidth.NullDate:
		return x.String()
	case fixedwidth.NullTime:
		return x.String()
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}

// headerRow はファイル出力のヘッダ行です。
func headerRow(layout *fixedwidth.RecordLayout) []string {
	return append([]string{columnSourceFile, columnSourceLine}, layout.OutputNames()...)
}
