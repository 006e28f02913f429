package fixedwidth_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth/layouts"
)

var decimalEqual = cmp.Comparer(func(a, b decimal.Decimal) bool { return a.Equal(b) })

func TestEncodeRecord_ConcreteScenario(t *testing.T) {
	l := sampleLayout()
	rec := fixedwidth.DecodeLine(&l, 1, "ABC       00001234").Record

	line, err := fixedwidth.EncodeRecord(&l, rec)
	require.NoError(t, err)
	assert.Equal(t, "ABC          12.34", line)
	assert.Len(t, line, 18)
}

func TestEncodeRecord_MissingKeysUseEmptyRepresentation(t *testing.T) {
	line, err := fixedwidth.EncodeRecord(mixedLayout(), fixedwidth.Record{})
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat(" ", 10)+"0000000"+"000000"+"    0.00", line)
}

func TestEncodeRecord_Values(t *testing.T) {
	rec := fixedwidth.Record{
		"name":   "日本語テ",
		"dt":     time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		"tm":     fixedwidth.TimeOf(9, 5, 0),
		"amount": decimal.RequireFromString("-5.5"),
	}
	line, err := fixedwidth.EncodeRecord(mixedLayout(), rec)
	require.NoError(t, err)
	assert.Equal(t, "日本語 "+"1240115"+"090500"+"   -5.50", line)
}

func TestEncodeRecord_Errors(t *testing.T) {
	l := sampleLayout()

	_, err := fixedwidth.EncodeRecord(&l, fixedwidth.Record{"field2": decimal.RequireFromString("123456.78")})
	assert.ErrorIs(t, err, fixedwidth.ErrFieldOverflow)

	_, err = fixedwidth.EncodeRecord(&l, fixedwidth.Record{"field1": 42})
	assert.ErrorIs(t, err, fixedwidth.ErrValueType)

	_, err = fixedwidth.EncodeRecord(mixedLayout(), fixedwidth.Record{"dt": fixedwidth.DateOf(2150, time.March, 1)})
	assert.ErrorIs(t, err, fixedwidth.ErrDateOutOfRange)
}

func TestEncodeRecord_TruncatesText(t *testing.T) {
	l := sampleLayout()
	line, err := fixedwidth.EncodeRecord(&l, fixedwidth.Record{"field1": "ABCDEFGHIJKLMNOP", "field2": dec("1")})
	require.NoError(t, err)
	assert.Equal(t, "ABCDEFGHIJ    1.00", line)
}

func TestCanonicalize_FixedPoint(t *testing.T) {
	l := sampleLayout()
	for _, line := range []string{
		"ABC       00001234",
		"ABC          12.34",
		"  lead    1234-   ",
		"X         1,234.5 ",
		"X         ",
	} {
		first, err := fixedwidth.Canonicalize(&l, line)
		require.NoError(t, err, line)
		assert.Len(t, first, 18)
		second, err := fixedwidth.Canonicalize(&l, first)
		require.NoError(t, err, line)
		assert.Equal(t, first, second, line)
	}

	_, err := fixedwidth.Canonicalize(&l, "A")
	assert.ErrorIs(t, err, fixedwidth.ErrRecordLength)
}

func TestWriter_UsesCRLF(t *testing.T) {
	l := sampleLayout()
	var buf bytes.Buffer
	w := fixedwidth.NewWriter(&buf, &l)
	require.NoError(t, w.Write(fixedwidth.Record{"field1": "A", "field2": dec("1.5")}))
	require.NoError(t, w.Write(fixedwidth.Record{"field1": "B"}))
	require.NoError(t, w.Flush())

	assert.Equal(t, 2, w.Count())
	assert.Equal(t, "A             1.50\r\nB             0.00\r\n", buf.String())
}

func TestWriteFile_DecodeFileRoundTrip(t *testing.T) {
	reg, err := layouts.NewRegistry()
	require.NoError(t, err)
	l, err := reg.Get("PAYTRAN")
	require.NoError(t, err)

	in := []fixedwidth.Record{{
		"payment_id":        dec("123456789"),
		"customer_id":       dec("100042"),
		"payment_date":      fixedwidth.DateOf(2024, time.February, 29),
		"payment_amount":    dec("15234.07"),
		"payment_method":    "CK",
		"check_number":      "000123",
		"bank_reference":    "REF-77",
		"remittance_name":   "ACME CORPORATION",
		"invoice_reference": dec("900001"),
		"applied_flag":      "Y",
		"applied_date":      fixedwidth.DateOf(1999, time.December, 31),
		"applied_amount":    dec("15234.07"),
		"unapplied_amount":  dec("0"),
		"payment_type":      "PY",
		"status":            "AP",
		"batch_session":     dec("77"),
		"batch_id":          "B20240229",
		"created_date":      fixedwidth.DateOf(2024, time.February, 29),
		"updated_date":      fixedwidth.NullDate{},
		"updated_time":      fixedwidth.TimeOf(23, 59, 59),
		"updated_by":        "QBATCH",
	}}

	path := filepath.Join(t.TempDir(), "PAYTRAN.txt")
	require.NoError(t, fixedwidth.WriteFile(path, l, in))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, raw, l.RecordLength+2)
	assert.True(t, bytes.HasSuffix(raw, []byte("\r\n")))

	out, stats, err := fixedwidth.DecodeFile(path, l)
	require.NoError(t, err)
	assert.False(t, stats.HasErrors())
	require.Len(t, out, 1)
	if diff := cmp.Diff(in[0], out[0], decimalEqual); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
