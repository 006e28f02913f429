package fixedwidth

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Kind はフィールドの種別です。種別は以下の 4 つに限られます。
type Kind int

const (
	KindText Kind = iota
	KindScaledDecimal
	KindDate
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "TEXT"
	case KindScaledDecimal:
		return "DECIMAL"
	case KindDate:
		return "DATE"
	case KindTime:
		return "TIME"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// FieldSpec はレイアウト内の 1 カラムの定義です。
type FieldSpec struct {
	SourceName string // レガシー側のフィールド名 (診断用)
	Width      int
	Kind       Kind
	Scale      int // KindScaledDecimal のときのみ有効
	OutputName string
}

// Text は固定長文字列フィールドを定義します。
func Text(source string, width int, output string) FieldSpec {
	return FieldSpec{SourceName: source, Width: width, Kind: KindText, OutputName: output}
}

// Decimal は scale 桁の暗黙小数点を持つ数値フィールドを定義します。
func Decimal(source string, width, scale int, output string) FieldSpec {
	return FieldSpec{SourceName: source, Width: width, Kind: KindScaledDecimal, Scale: scale, OutputName: output}
}

// Date は CYYMMDD 形式の日付フィールドを定義します。幅は常に 7 です。
func Date(source, output string) FieldSpec {
	return FieldSpec{SourceName: source, Width: dateWidth, Kind: KindDate, OutputName: output}
}

// Time は HHMMSS 形式の時刻フィールドを定義します。幅は常に 6 です。
func Time(source, output string) FieldSpec {
	return FieldSpec{SourceName: source, Width: timeWidth, Kind: KindTime, OutputName: output}
}

// fieldType は種別ごとの変換規則です。実装はこのパッケージ内の 4 つに閉じています。
type fieldType interface {
	decode(raw string) (any, error)
	encode(v any, width int) (string, error)
	// null はデコード失敗時に代入する欠損値です。
	null() any
}

func (f FieldSpec) fieldType() fieldType {
	switch f.Kind {
	case KindScaledDecimal:
		return decimalField{scale: f.Scale}
	case KindDate:
		return dateField{}
	case KindTime:
		return timeField{}
	default:
		return textField{}
	}
}

// Decode は raw をこのフィールドの値に変換します。
// 失敗した場合も種別ごとの欠損値を返します。
func (f FieldSpec) Decode(raw string) (any, error) {
	ft := f.fieldType()
	v, err := ft.decode(raw)
	if err != nil {
		return ft.null(), err
	}
	return v, nil
}

// Encode は v をちょうど Width 文字 (バイト) の文字列に変換します。
// nil は種別ごとの空表現 (空白、ゼロ金額、ゼロ日付) になります。
func (f FieldSpec) Encode(v any) (string, error) {
	s, err := f.fieldType().encode(v, f.Width)
	if err != nil {
		return "", fmt.Errorf("field %s: %w", f.SourceName, err)
	}
	return s, nil
}

type textField struct{}

func (textField) decode(raw string) (any, error) {
	return strings.TrimRight(strings.ToValidUTF8(raw, "?"), " "), nil
}

func (textField) encode(v any, width int) (string, error) {
	var s string
	switch x := v.(type) {
	case nil:
	case string:
		s = x
	case fmt.Stringer:
		s = x.String()
	default:
		return "", fmt.Errorf("%w: %T for TEXT", ErrValueType, v)
	}
	if len(s) > width {
		cut := width
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s + strings.Repeat(" ", width-len(s)), nil
}

func (textField) null() any { return "" }

type decimalField struct{ scale int }

func (f decimalField) decode(raw string) (any, error) {
	return DecodeScaledDecimal(raw, f.scale)
}

func (f decimalField) encode(v any, width int) (string, error) {
	var d decimal.Decimal
	switch x := v.(type) {
	case nil:
	case decimal.Decimal:
		d = x
	case decimal.NullDecimal:
		if x.Valid {
			d = x.Decimal
		}
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case string:
		parsed, err := decimal.NewFromString(x)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrNotNumeric, x)
		}
		d = parsed
	default:
		return "", fmt.Errorf("%w: %T for DECIMAL", ErrValueType, v)
	}
	return encodeScaledDecimal(d, f.scale, width)
}

func (decimalField) null() any { return decimal.NullDecimal{} }

type dateField struct{}

func (dateField) decode(raw string) (any, error) {
	return DecodeLegacyDate(raw)
}

func (dateField) encode(v any, width int) (string, error) {
	var d NullDate
	switch x := v.(type) {
	case nil:
	case NullDate:
		d = x
	case time.Time:
		d = NullDate{Date: x, Valid: !x.IsZero()}
	default:
		return "", fmt.Errorf("%w: %T for DATE", ErrValueType, v)
	}
	return EncodeLegacyDate(d)
}

func (dateField) null() any { return NullDate{} }

type timeField struct{}

func (timeField) decode(raw string) (any, error) {
	return DecodeLegacyTime(raw)
}

func (timeField) encode(v any, width int) (string, error) {
	var t NullTime
	switch x := v.(type) {
	case nil:
	case NullTime:
		t = x
	case TimeOfDay:
		t = NullTime{Time: x, Valid: true}
	case time.Time:
		t = TimeFrom(x)
	default:
		return "", fmt.Errorf("%w: %T for TIME", ErrValueType, v)
	}
	return EncodeLegacyTime(t)
}

func (timeField) null() any { return NullTime{} }
