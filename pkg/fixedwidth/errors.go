package fixedwidth

import "errors"

// レイアウト定義の誤り。起動時または検索時に致命的エラーとして扱います。
var (
	ErrInvalidLayout       = errors.New("fixedwidth: invalid layout")
	ErrLayoutWidthMismatch = errors.New("fixedwidth: record length does not match sum of field widths")
	ErrUnknownLayout       = errors.New("fixedwidth: unknown layout")
)

// フィールド単位のエラー。デコーダは記録した上で処理を継続します。
var (
	ErrInvalidDate    = errors.New("fixedwidth: malformed CYYMMDD date")
	ErrInvalidTime    = errors.New("fixedwidth: malformed HHMMSS time")
	ErrDateOutOfRange = errors.New("fixedwidth: date outside 1900-01-01..2099-12-31")
	ErrNotNumeric     = errors.New("fixedwidth: value is not numeric")
	ErrFieldOverflow  = errors.New("fixedwidth: value does not fit field width")
	ErrValueType      = errors.New("fixedwidth: unsupported value type for field kind")
)

// レコード単位のエラー。
var (
	ErrRecordLength = errors.New("fixedwidth: record length mismatch")
	ErrRoundTrip    = errors.New("fixedwidth: encode/decode is not a fixed point")
)
