package fixedwidth

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	dateWidth = 7
	timeWidth = 6

	zeroDate = "0000000"
	zeroTime = "000000"
)

// NullDate は欠損しうる日付です。レガシーファイルでは欠損日付をゼロ埋めで表します。
type NullDate struct {
	Date  time.Time
	Valid bool
}

// DateOf は UTC 0 時の有効な NullDate を返します。
func DateOf(year int, month time.Month, day int) NullDate {
	return NullDate{Date: time.Date(year, month, day, 0, 0, 0, 0, time.UTC), Valid: true}
}

// Value は driver.Valuer の実装です。
func (d NullDate) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Date, nil
}

func (d NullDate) String() string {
	if !d.Valid {
		return ""
	}
	return d.Date.Format(time.DateOnly)
}

// DecodeLegacyDate は CYYMMDD 形式の文字列を日付に変換します。
// C は世紀を表し、0 なら 19xx 年、1 なら 20xx 年です。
//
// 空文字、ゼロのみ、数字以外を含む入力は欠損として扱い、エラーにはしません。
// 7 桁未満の数字列は左ゼロ埋めします。整数列のエクスポートでは先頭のゼロが
// 落ちるためです ("991231" は 1999-12-31)。
// 日付として成立しない数字列は ErrInvalidDate を返します。
func DecodeLegacyDate(raw string) (NullDate, error) {
	s := strings.TrimSpace(raw)
	if s == "" || allZero(s) || !allDigits(s) {
		return NullDate{}, nil
	}
	if len(s) > dateWidth {
		return NullDate{}, fmt.Errorf("%w: %q has more than %d digits", ErrInvalidDate, raw, dateWidth)
	}
	s = strings.Repeat("0", dateWidth-len(s)) + s

	century := int(s[0] - '0')
	if century > 1 {
		return NullDate{}, fmt.Errorf("%w: %q has century digit %d", ErrInvalidDate, raw, century)
	}
	yy, _ := strconv.Atoi(s[1:3])
	mm, _ := strconv.Atoi(s[3:5])
	dd, _ := strconv.Atoi(s[5:7])
	year := 1900 + 100*century + yy

	t := time.Date(year, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if mm < 1 || mm > 12 || t.Month() != time.Month(mm) || t.Day() != dd {
		return NullDate{}, fmt.Errorf("%w: %q is not a calendar date", ErrInvalidDate, raw)
	}
	return NullDate{Date: t, Valid: true}, nil
}

// EncodeLegacyDate は日付を 7 文字の CYYMMDD 形式に変換します。
// 欠損日付は "0000000" になります。
func EncodeLegacyDate(d NullDate) (string, error) {
	if !d.Valid {
		return zeroDate, nil
	}
	y := d.Date.Year()
	if y < 1900 || y > 2099 {
		return "", fmt.Errorf("%w: %s", ErrDateOutOfRange, d.Date.Format(time.DateOnly))
	}
	century, base := 0, 1900
	if y >= 2000 {
		century, base = 1, 2000
	}
	return fmt.Sprintf("%d%02d%02d%02d", century, y-base, int(d.Date.Month()), d.Date.Day()), nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func allZero(s string) bool {
	return strings.Trim(s, "0") == ""
}
