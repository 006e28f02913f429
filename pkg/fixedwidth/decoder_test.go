package fixedwidth_test

import (
	"io/fs"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func mixedLayout() *fixedwidth.RecordLayout {
	return &fixedwidth.RecordLayout{
		Name:         "MIXED",
		RecordLength: 10 + 7 + 6 + 8,
		Fields: []fixedwidth.FieldSpec{
			fixedwidth.Text("NAME", 10, "name"),
			fixedwidth.Date("DT", "dt"),
			fixedwidth.Time("TM", "tm"),
			fixedwidth.Decimal("AMT", 8, 2, "amount"),
		},
	}
}

func TestDecodeLine_ConcreteScenario(t *testing.T) {
	l := sampleLayout()
	res := fixedwidth.DecodeLine(&l, 1, "ABC       00001234")

	require.False(t, res.Rejected())
	assert.Empty(t, res.Errors)
	assert.False(t, res.Padded)
	assert.Equal(t, "ABC", res.Record.String("field1"))
	assert.True(t, res.Record.Decimal("field2").Decimal.Equal(decimal.RequireFromString("12.34")))
}

func TestDecodeLine_FieldIsolation(t *testing.T) {
	line := "ACME CORP " + "1241399" + "143052" + "00001234"
	res := fixedwidth.DecodeLine(mixedLayout(), 7, line)

	require.False(t, res.Rejected())
	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, "DT", e.SourceName)
	assert.Equal(t, 7, e.Line)
	assert.Equal(t, "1241399", e.Raw)
	assert.ErrorIs(t, e, fixedwidth.ErrInvalidDate)
	assert.False(t, e.RecordLevel())

	assert.Equal(t, fixedwidth.NullDate{}, res.Record["dt"])
	assert.Equal(t, "ACME CORP", res.Record.String("name"))
	assert.Equal(t, fixedwidth.TimeOf(14, 30, 52), res.Record.Time("tm"))
	assert.True(t, res.Record.Decimal("amount").Decimal.Equal(decimal.RequireFromString("12.34")))
}

func TestDecodeLine_ShortLineIsPadded(t *testing.T) {
	l := sampleLayout()
	res := fixedwidth.DecodeLine(&l, 2, "ABC       12")

	require.False(t, res.Rejected())
	assert.True(t, res.Padded)
	assert.Empty(t, res.Errors)
	assert.True(t, res.Record.Decimal("field2").Decimal.Equal(decimal.RequireFromString("0.12")))
}

func TestDecodeLine_RejectsWhenFirstFieldMissing(t *testing.T) {
	l := sampleLayout()
	res := fixedwidth.DecodeLine(&l, 3, "AB")

	assert.True(t, res.Rejected())
	require.Len(t, res.Errors, 1)
	assert.True(t, res.Errors[0].RecordLevel())
	assert.ErrorIs(t, res.Errors[0], fixedwidth.ErrRecordLength)
}

func TestDecodeLine_StripsTerminator(t *testing.T) {
	l := sampleLayout()
	res := fixedwidth.DecodeLine(&l, 1, "ABC       00001234\r\n")
	require.False(t, res.Rejected())
	assert.False(t, res.Padded)
}

func TestDecodeReader_ContinuesPastBadRecords(t *testing.T) {
	l := sampleLayout()
	input := "ABC       00001234\r\n" +
		"\r\n" +
		"XYZ       0000ABCD\r\n" +
		"AB\n" +
		"LAST      00000100"

	records, stats, err := fixedwidth.DecodeReader(strings.NewReader(input), "SAMPLE.txt", &l)
	require.NoError(t, err)

	assert.Len(t, records, 3)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 3, stats.RecordsParsed)
	assert.Equal(t, 1, stats.RecordsFailed)
	assert.Equal(t, 1, stats.FieldErrors)
	require.Len(t, stats.Errors, 2)

	assert.Equal(t, "SAMPLE.txt", stats.Errors[0].File)
	assert.Equal(t, 3, stats.Errors[0].Line)
	assert.ErrorIs(t, stats.Errors[0], fixedwidth.ErrNotNumeric)
	assert.Equal(t, 4, stats.Errors[1].Line)
	assert.True(t, stats.Errors[1].RecordLevel())

	assert.True(t, records[2].Decimal("field2").Decimal.Equal(decimal.RequireFromString("1.00")))
	assert.Len(t, stats.FirstErrors(1), 1)
	assert.Len(t, stats.FirstErrors(10), 2)
}

func TestDecodeFile_MissingFile(t *testing.T) {
	l := sampleLayout()
	_, _, err := fixedwidth.DecodeFile(filepath.Join(t.TempDir(), "SAMPLE.txt"), &l)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestParseStats_MergeIsOrderIndependent(t *testing.T) {
	a := fixedwidth.ParseStats{FilesProcessed: 1, RecordsParsed: 10, RecordsFailed: 1,
		Errors: []*fixedwidth.DecodeError{{File: "A", Line: 1}}}
	b := fixedwidth.ParseStats{FilesProcessed: 1, RecordsParsed: 5, FieldErrors: 2, PaddedLines: 1}
	c := fixedwidth.ParseStats{FilesProcessed: 1, RecordsFailed: 3,
		Errors: []*fixedwidth.DecodeError{{File: "C", Line: 9}}}

	var left, right fixedwidth.ParseStats
	left.Merge(a)
	left.Merge(b)
	left.Merge(c)

	right.Merge(c)
	bc := b
	bc.Merge(a)
	right.Merge(bc)

	assert.Equal(t, left.FilesProcessed, right.FilesProcessed)
	assert.Equal(t, left.RecordsParsed, right.RecordsParsed)
	assert.Equal(t, left.RecordsFailed, right.RecordsFailed)
	assert.Equal(t, left.FieldErrors, right.FieldErrors)
	assert.Equal(t, left.PaddedLines, right.PaddedLines)
	assert.ElementsMatch(t, left.Errors, right.Errors)
	assert.Equal(t, 3, left.FilesProcessed)
	assert.Equal(t, 15, left.RecordsParsed)
	assert.Equal(t, 4, left.RecordsFailed)
}
