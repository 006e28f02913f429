package fixedwidth

import (
	"fmt"
	"strings"
)

// RecordLayout は 1 ファイル分の固定長レコード定義です。
// フィールド i の開始位置はフィールド 0..i-1 の幅の合計です。
type RecordLayout struct {
	Name         string
	Description  string
	RecordLength int
	Fields       []FieldSpec
}

// Column はツール向けのフィールド位置情報です。Start と End は 1 始まりで両端を含みます。
type Column struct {
	FieldSpec
	Start int
	End   int
}

// TotalWidth はフィールド幅の合計です。
func (l *RecordLayout) TotalWidth() int {
	total := 0
	for _, f := range l.Fields {
		total += f.Width
	}
	return total
}

// FieldCount はフィールド数です。
func (l *RecordLayout) FieldCount() int {
	return len(l.Fields)
}

// Columns は各フィールドの位置を宣言順に返します。
func (l *RecordLayout) Columns() []Column {
	cols := make([]Column, 0, len(l.Fields))
	offset := 0
	for _, f := range l.Fields {
		cols = append(cols, Column{FieldSpec: f, Start: offset + 1, End: offset + f.Width})
		offset += f.Width
	}
	return cols
}

// OutputNames は出力カラム名を宣言順に返します。
func (l *RecordLayout) OutputNames() []string {
	names := make([]string, len(l.Fields))
	for i, f := range l.Fields {
		names[i] = f.OutputName
	}
	return names
}

// Field は出力カラム名からフィールド定義を探します。
func (l *RecordLayout) Field(outputName string) (FieldSpec, bool) {
	for _, f := range l.Fields {
		if f.OutputName == outputName {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// Validate はレイアウト定義の整合性を検査します。
// 幅の合計が RecordLength と一致しない場合は ErrLayoutWidthMismatch、
// その他の定義誤りは ErrInvalidLayout を返します。どちらも errors.Is(err, ErrInvalidLayout) を満たします。
func (l *RecordLayout) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return fmt.Errorf("%w: layout name is empty", ErrInvalidLayout)
	}
	if len(l.Fields) == 0 {
		return fmt.Errorf("%w: %s has no fields", ErrInvalidLayout, l.Name)
	}
	seen := make(map[string]struct{}, len(l.Fields))
	for i, f := range l.Fields {
		if err := f.validate(); err != nil {
			return fmt.Errorf("%w: %s field %d (%s): %v", ErrInvalidLayout, l.Name, i, f.SourceName, err)
		}
		if _, dup := seen[f.OutputName]; dup {
			return fmt.Errorf("%w: %s has duplicate output name %q", ErrInvalidLayout, l.Name, f.OutputName)
		}
		seen[f.OutputName] = struct{}{}
	}
	if total := l.TotalWidth(); total != l.RecordLength {
		return fmt.Errorf("%w: %w: %s declares %d, fields sum to %d",
			ErrInvalidLayout, ErrLayoutWidthMismatch, l.Name, l.RecordLength, total)
	}
	return nil
}

func (f FieldSpec) validate() error {
	switch {
	case f.Width <= 0:
		return fmt.Errorf("width %d is not positive", f.Width)
	case strings.TrimSpace(f.OutputName) == "":
		return fmt.Errorf("output name is empty")
	case f.Scale < 0:
		return fmt.Errorf("scale %d is negative", f.Scale)
	case f.Scale != 0 && f.Kind != KindScaledDecimal:
		return fmt.Errorf("scale %d on %s field", f.Scale, f.Kind)
	case f.Kind == KindDate && f.Width != dateWidth:
		return fmt.Errorf("date width %d, want %d", f.Width, dateWidth)
	case f.Kind == KindTime && f.Width != timeWidth:
		return fmt.Errorf("time width %d, want %d", f.Width, timeWidth)
	case f.Kind < KindText || f.Kind > KindTime:
		return fmt.Errorf("unknown kind %s", f.Kind)
	case f.Kind == KindScaledDecimal && f.Scale > 0 && f.Width < f.Scale+2:
		return fmt.Errorf("width %d cannot hold scale %d", f.Width, f.Scale)
	}
	return nil
}
