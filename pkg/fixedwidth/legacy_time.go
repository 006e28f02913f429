package fixedwidth

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay は秒精度の時刻です。
type TimeOfDay struct {
	Hour, Minute, Second int
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

func (t TimeOfDay) valid() bool {
	return t.Hour >= 0 && t.Hour < 24 && t.Minute >= 0 && t.Minute < 60 && t.Second >= 0 && t.Second < 60
}

// NullTime は欠損しうる時刻です。
type NullTime struct {
	Time  TimeOfDay
	Valid bool
}

// TimeOf は有効な NullTime を返します。
func TimeOf(hour, minute, second int) NullTime {
	return NullTime{Time: TimeOfDay{Hour: hour, Minute: minute, Second: second}, Valid: true}
}

// TimeFrom は t の時刻部分を取り出します。
func TimeFrom(t time.Time) NullTime {
	return TimeOf(t.Hour(), t.Minute(), t.Second())
}

// Value は driver.Valuer の実装です。
// "HH:MM:SS" 形式の文字列としてバインドし、各 DB 側で TIME 型へキャストさせます。
func (t NullTime) Value() (driver.Value, error) {
	if !t.Valid {
		return nil, nil
	}
	return t.Time.String(), nil
}

func (t NullTime) String() string {
	if !t.Valid {
		return ""
	}
	return t.Time.String()
}

// DecodeLegacyTime は HHMMSS 形式の文字列を時刻に変換します。
// 欠損の扱いは DecodeLegacyDate と同じです。時刻として成立しない値は ErrInvalidTime を返します。
// "000000" は欠損と区別できないため、0 時 0 分 0 秒は常に欠損としてデコードされます。
func DecodeLegacyTime(raw string) (NullTime, error) {
	s := strings.TrimSpace(raw)
	if s == "" || allZero(s) || !allDigits(s) {
		return NullTime{}, nil
	}
	if len(s) > timeWidth {
		return NullTime{}, fmt.Errorf("%w: %q has more than %d digits", ErrInvalidTime, raw, timeWidth)
	}
	s = strings.Repeat("0", timeWidth-len(s)) + s

	hh, _ := strconv.Atoi(s[0:2])
	mi, _ := strconv.Atoi(s[2:4])
	ss, _ := strconv.Atoi(s[4:6])
	t := TimeOfDay{Hour: hh, Minute: mi, Second: ss}
	if !t.valid() {
		return NullTime{}, fmt.Errorf("%w: %q is not a clock time", ErrInvalidTime, raw)
	}
	return NullTime{Time: t, Valid: true}, nil
}

// EncodeLegacyTime は時刻を HHMMSS 形式に変換します。欠損時刻は "000000" になります。
func EncodeLegacyTime(t NullTime) (string, error) {
	if !t.Valid {
		return zeroTime, nil
	}
	if !t.Time.valid() {
		return "", fmt.Errorf("%w: %s", ErrInvalidTime, t.Time)
	}
	return fmt.Sprintf("%02d%02d%02d", t.Time.Hour, t.Time.Minute, t.Time.Second), nil
}
