package writer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

func TestXLSXTableWriter_WritesSheetNamedAfterLayout(t *testing.T) {
	ctx := context.Background()
	w := NewXLSXTableWriter(t.TempDir(), itemLayout(), "raw_")
	require.NoError(t, w.Open(ctx, core.NewExecutionContext()))
	require.NoError(t, w.Write(ctx, nil, []entity.DecodedRow{itemRow(1, 42, "Widget", "123.45")}))
	require.NoError(t, w.Write(ctx, nil, []entity.DecodedRow{itemRow(2, 43, "Gadget", "0.10")}))
	require.NoError(t, w.Close(ctx))

	f, err := excelize.OpenFile(w.Path())
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("ITEM")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"source_file", "source_line", "item_id", "name", "amount", "posted_date"}, rows[0][:6])
	assert.Equal(t, "Widget", rows[1][3])
	assert.Equal(t, "123.45", rows[1][4])
	assert.Equal(t, "2", rows[2][1])
	assert.Equal(t, "0.10", rows[2][4])
}

func TestXLSXTableWriter_CloseWithoutOpen(t *testing.T) {
	w := NewXLSXTableWriter(t.TempDir(), itemLayout(), "raw_")
	assert.NoError(t, w.Close(context.Background()))
}
