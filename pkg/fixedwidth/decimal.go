package fixedwidth

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// DecodeScaledDecimal はパック10進数のテキスト表現を scale 桁の小数として解釈します。
//
// 通常は符号 (先頭の +/- または末尾の -) と数字のみの文字列で、小数点は暗黙です。
// "00012345" を scale 2 で読むと 123.45 になります。
// リテラルの小数点は位置に関係なくすべて取り除き、残った数字を同じ規則で解釈します
// "12.3" を scale 2 で読むと 1.23 です。
// 桁区切りや通貨記号、途中の空白を含む場合は警告を出した上で取り除いて解釈します。
// それでも数字列にならない指数表記などは scale 桁に丸めた近似値として読み込みます。
// 空文字は欠損、数値として解釈できない場合は ErrNotNumeric を返します。
func DecodeScaledDecimal(raw string, scale int) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.NullDecimal{}, nil
	}

	neg := false
	switch {
	case s[0] == '-' || s[0] == '+':
		neg = s[0] == '-'
		s = s[1:]
	case s[len(s)-1] == '-':
		neg = true
		s = s[:len(s)-1]
	}

	if digits := strings.ReplaceAll(s, ".", ""); allDigits(digits) {
		return impliedDecimal(digits, scale, neg), nil
	}

	cleaned := strings.NewReplacer(",", "", "$", "", " ", "").Replace(s)
	if digits := strings.ReplaceAll(cleaned, ".", ""); allDigits(digits) {
		logger.Warnf("パック10進数 '%s' から桁区切りや通貨記号を取り除いて読み込みます。", raw)
		return impliedDecimal(digits, scale, neg), nil
	}

	if neg {
		cleaned = "-" + cleaned
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("%w: %q", ErrNotNumeric, raw)
	}
	rounded := d.Round(int32(scale))
	logger.Warnf("パック10進数 '%s' を暗黙小数点として解釈できないため、近似値 %s (scale=%d) として読み込みます。", raw, rounded.StringFixed(int32(scale)), scale)
	return decimal.NewNullDecimal(rounded), nil
}

// impliedDecimal は数字列 digits の末尾 scale 桁を小数部とみなします。
func impliedDecimal(digits string, scale int, neg bool) decimal.NullDecimal {
	d := decimal.RequireFromString(digits).Shift(int32(-scale))
	if neg {
		d = d.Neg()
	}
	return decimal.NewNullDecimal(d)
}

// encodeScaledDecimal は scale 桁固定の表記を width 桁に右寄せします。
// scale > 0 のときは小数点も桁数に含みます。
func encodeScaledDecimal(d decimal.Decimal, scale, width int) (string, error) {
	s := d.StringFixed(int32(scale))
	if len(s) > width {
		return "", fmt.Errorf("%w: %s needs %d characters, field has %d", ErrFieldOverflow, s, len(s), width)
	}
	return strings.Repeat(" ", width-len(s)) + s, nil
}
