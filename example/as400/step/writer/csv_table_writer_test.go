package writer

import (
	"context"
	"encoding/csv"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	"github.com/Vignesh4110/finance-modernization/example/as400/step/reader"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVTableWriter_WritesHeaderAndFixedScaleValues(t *testing.T) {
	ctx := context.Background()
	w := NewCSVTableWriter(t.TempDir(), itemLayout(), "raw_")
	require.NoError(t, w.Open(ctx, core.NewExecutionContext()))
	require.NoError(t, w.Write(ctx, nil, []entity.DecodedRow{itemRow(1, 42, "Widget", "123.4"), itemRow(3, 7, "Comma, Inc", "-0.50")}))
	require.NoError(t, w.Close(ctx))

	got := readCSV(t, w.Path())
	assert.Equal(t, [][]string{
		{"source_file", "source_line", "item_id", "name", "amount", "posted_date", "posted_time"},
		{"ITEM.TXT", "1", "42", "Widget", "123.40", "2024-01-15", ""},
		{"ITEM.TXT", "3", "7", "Comma, Inc", "-0.50", "2024-01-15", ""},
	}, got)
}

func TestCSVTableWriter_AppendsWhenResuming(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := NewCSVTableWriter(dir, itemLayout(), "raw_")
	require.NoError(t, first.Open(ctx, core.NewExecutionContext()))
	require.NoError(t, first.Write(ctx, nil, []entity.DecodedRow{itemRow(1, 1, "a", "1.00")}))
	require.NoError(t, first.Close(ctx))

	ec := core.NewExecutionContext()
	ec.Put(reader.LinePositionKey, 1)
	second := NewCSVTableWriter(dir, itemLayout(), "raw_")
	require.NoError(t, second.Open(ctx, ec))
	require.NoError(t, second.Write(ctx, nil, []entity.DecodedRow{itemRow(2, 2, "b", "2.00")}))
	require.NoError(t, second.Close(ctx))

	got := readCSV(t, second.Path())
	require.Len(t, got, 3)
	assert.Equal(t, "source_file", got[0][0])
	assert.Equal(t, "1", got[1][1])
	assert.Equal(t, "2", got[2][1])
}
