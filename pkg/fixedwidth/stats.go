package fixedwidth

import "fmt"

// DecodeError はフィールドまたはレコードのデコード失敗です。
// SourceName が空の場合はレコード全体の失敗を表します。
type DecodeError struct {
	File       string
	Line       int // 1 始まり
	SourceName string
	Raw        string
	Cause      error
}

func (e *DecodeError) Error() string {
	where := fmt.Sprintf("%s:%d", e.File, e.Line)
	if e.File == "" {
		where = fmt.Sprintf("line %d", e.Line)
	}
	if e.SourceName == "" {
		return fmt.Sprintf("%s: record rejected: %v", where, e.Cause)
	}
	return fmt.Sprintf("%s: field %s %q: %v", where, e.SourceName, e.Raw, e.Cause)
}

func (e *DecodeError) Unwrap() error {
	return e.Cause
}

// RecordLevel はレコード全体が捨てられたエラーかどうかを返します。
func (e *DecodeError) RecordLevel() bool {
	return e.SourceName == ""
}

// ParseStats はデコード結果の集計です。
// Merge は件数を加算しエラーを連結するだけなので、結合順序に依存しません (エラーの並びを除く)。
type ParseStats struct {
	FilesProcessed int
	RecordsParsed  int
	RecordsFailed  int
	FieldErrors    int
	PaddedLines    int
	Errors         []*DecodeError
}

// Merge は other を s に加算します。
func (s *ParseStats) Merge(other ParseStats) {
	s.FilesProcessed += other.FilesProcessed
	s.RecordsParsed += other.RecordsParsed
	s.RecordsFailed += other.RecordsFailed
	s.FieldErrors += other.FieldErrors
	s.PaddedLines += other.PaddedLines
	s.Errors = append(s.Errors, other.Errors...)
}

// Add は 1 行分のデコード結果を加算します。
func (s *ParseStats) Add(res LineResult) {
	if res.Rejected() {
		s.RecordsFailed++
	} else {
		s.RecordsParsed++
		s.FieldErrors += len(res.Errors)
	}
	if res.Padded {
		s.PaddedLines++
	}
	s.Errors = append(s.Errors, res.Errors...)
}

// FirstErrors は先頭から最大 n 件のエラーを返します。
func (s *ParseStats) FirstErrors(n int) []*DecodeError {
	if n < 0 || n > len(s.Errors) {
		n = len(s.Errors)
	}
	return s.Errors[:n]
}

// HasErrors はフィールドまたはレコードのエラーが 1 件でもあるかを返します。
func (s *ParseStats) HasErrors() bool {
	return len(s.Errors) > 0
}
