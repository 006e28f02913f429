package fixedwidth_test

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

func TestLineReader_Terminators(t *testing.T) {
	lr := fixedwidth.NewLineReader(strings.NewReader("A\r\n\nB\nC\r"))
	var got []fixedwidth.PhysicalLine
	for {
		l, err := lr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got = append(got, l)
	}
	require.Len(t, got, 4)
	assert.Equal(t, fixedwidth.PhysicalLine{Number: 1, Text: "A", Length: 1}, got[0])
	assert.True(t, got[1].Blank())
	assert.Equal(t, "B", got[2].Text)
	assert.Equal(t, fixedwidth.PhysicalLine{Number: 4, Text: "C", Length: 1}, got[3])
	assert.Equal(t, 4, lr.Line())
}

func TestLineReader_TruncatesLongLine(t *testing.T) {
	long := strings.Repeat("X", fixedwidth.MaxLineBytes+4096)
	lr := fixedwidth.NewLineReader(strings.NewReader(long + "\nNEXT"))

	l, err := lr.Next()
	require.NoError(t, err)
	assert.True(t, l.Truncated())
	assert.False(t, l.Blank())
	assert.Len(t, l.Text, fixedwidth.MaxLineBytes)
	assert.Equal(t, len(long), l.Length)

	l, err = lr.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, l.Number)
	assert.Equal(t, "NEXT", l.Text)
}

func TestDecodeReader_LongLineBetweenValidRecords(t *testing.T) {
	l := sampleLayout()
	input := "ABC       00001234\r\n" +
		strings.Repeat("Z", 2<<20) + "\r\n" +
		"LAST      00000100\r\n"

	records, stats, err := fixedwidth.DecodeReader(strings.NewReader(input), "SAMPLE.txt", &l)
	require.NoError(t, err)

	assert.Len(t, records, 2)
	assert.Equal(t, 1, stats.FilesProcessed)
	assert.Equal(t, 2, stats.RecordsParsed)
	assert.Equal(t, 1, stats.RecordsFailed)
	require.Len(t, stats.Errors, 1)

	e := stats.Errors[0]
	assert.Equal(t, 2, e.Line)
	assert.Equal(t, "SAMPLE.txt", e.File)
	assert.True(t, e.RecordLevel())
	assert.ErrorIs(t, e, fixedwidth.ErrRecordLength)
	assert.Less(t, len(e.Raw), 100)
	assert.Equal(t, "LAST", records[1].String("field1"))
}
