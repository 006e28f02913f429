package fixedwidth

import (
	"github.com/shopspring/decimal"
)

// Record はデコード済みの 1 レコードです。キーは出力カラム名、値は
// string、decimal.NullDecimal、NullDate、NullTime のいずれかです。
type Record map[string]any

// String は文字列フィールドの値を返します。
func (r Record) String(name string) string {
	s, _ := r[name].(string)
	return s
}

// Decimal は数値フィールドの値を返します。
func (r Record) Decimal(name string) decimal.NullDecimal {
	d, _ := r[name].(decimal.NullDecimal)
	return d
}

// Date は日付フィールドの値を返します。
func (r Record) Date(name string) NullDate {
	d, _ := r[name].(NullDate)
	return d
}

// Time は時刻フィールドの値を返します。
func (r Record) Time(name string) NullTime {
	t, _ := r[name].(NullTime)
	return t
}

// Values はレイアウトの宣言順に値を並べます。SQL の引数やシート行の生成に使います。
func (r Record) Values(layout *RecordLayout) []any {
	out := make([]any, len(layout.Fields))
	for i, f := range layout.Fields {
		v, ok := r[f.OutputName]
		if !ok {
			v = f.fieldType().null()
		}
		out[i] = v
	}
	return out
}
