package writer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	"github.com/Vignesh4110/finance-modernization/example/as400/step/reader"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

func TestCreateTableDDL(t *testing.T) {
	ddl := CreateTableDDL(database.DialectPostgres, "raw_item", itemLayout())
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "raw_item"`)
	assert.Contains(t, ddl, `"load_id" VARCHAR(36) NOT NULL`)
	assert.Contains(t, ddl, `"item_id" NUMERIC(6, 0)`)
	assert.Contains(t, ddl, `"name" VARCHAR(10)`)
	assert.Contains(t, ddl, `"amount" NUMERIC(8, 2)`)
	assert.Contains(t, ddl, `"posted_date" DATE`)
	assert.Contains(t, ddl, `"posted_time" TIME`)
}

func writeChunk(t *testing.T, conn database.DBConnection, w *SQLTableWriter, rows []entity.DecodedRow) {
	t.Helper()
	ctx := context.Background()
	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, tx, rows))
	require.NoError(t, tx.Commit())
}

func sourceLines(t *testing.T, conn database.DBConnection, table string) []int {
	t.Helper()
	rows, err := conn.QueryContext(context.Background(), "SELECT source_line FROM "+table+" ORDER BY source_line")
	require.NoError(t, err)
	defer rows.Close()
	var out []int
	for rows.Next() {
		var n int
		require.NoError(t, rows.Scan(&n))
		out = append(out, n)
	}
	require.NoError(t, rows.Err())
	return out
}

func TestSQLTableWriter_InsertsWithinChunkTransaction(t *testing.T) {
	repo := newTestRepository(t)
	conn := repo.GetDBConnection()
	ctx := context.Background()

	w := NewSQLTableWriter(conn, itemLayout(), "raw_", "load-1", "ITEM.TXT")
	assert.Equal(t, "raw_item", w.TableName())
	require.NoError(t, w.Open(ctx, core.NewExecutionContext()))
	writeChunk(t, conn, w, []entity.DecodedRow{itemRow(1, 42, "Widget", "123.45"), itemRow(2, 43, "Gadget", "-5.00")})

	// ロールバックされたチャンクは残らない
	tx, err := conn.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, w.Write(ctx, tx, []entity.DecodedRow{itemRow(3, 44, "Lost", "1.00")}))
	require.NoError(t, tx.Rollback())
	require.NoError(t, w.Close(ctx))

	assert.Equal(t, []int{1, 2}, sourceLines(t, conn, "raw_item"))

	var name, loadID string
	require.NoError(t, conn.QueryRowContext(ctx, "SELECT name, load_id FROM raw_item WHERE source_line = 1").Scan(&name, &loadID))
	assert.Equal(t, "Widget", name)
	assert.Equal(t, "load-1", loadID)
}

func TestSQLTableWriter_WriteRequiresTransaction(t *testing.T) {
	repo := newTestRepository(t)
	w := NewSQLTableWriter(repo.GetDBConnection(), itemLayout(), "raw_", "load-1", "ITEM.TXT")
	require.NoError(t, w.Open(context.Background(), core.NewExecutionContext()))
	assert.Error(t, w.Write(context.Background(), nil, []entity.DecodedRow{itemRow(1, 1, "x", "1.00")}))
}

func TestSQLTableWriter_OpenRemovesRowsPastResumePosition(t *testing.T) {
	repo := newTestRepository(t)
	conn := repo.GetDBConnection()
	ctx := context.Background()

	first := NewSQLTableWriter(conn, itemLayout(), "raw_", "load-1", "ITEM.TXT")
	require.NoError(t, first.Open(ctx, core.NewExecutionContext()))
	writeChunk(t, conn, first, []entity.DecodedRow{itemRow(1, 1, "a", "1.00"), itemRow(2, 2, "b", "2.00"), itemRow(3, 3, "c", "3.00")})

	// 別ロードの行は削除対象にならない
	other := NewSQLTableWriter(conn, itemLayout(), "raw_", "load-0", "ITEM.TXT")
	require.NoError(t, other.Open(ctx, core.NewExecutionContext()))
	writeChunk(t, conn, other, []entity.DecodedRow{itemRow(9, 9, "z", "9.00")})

	ec := core.NewExecutionContext()
	ec.Put(reader.LinePositionKey, 2)
	resumed := NewSQLTableWriter(conn, itemLayout(), "raw_", "load-1", "ITEM.TXT")
	require.NoError(t, resumed.Open(ctx, ec))

	assert.Equal(t, []int{1, 2, 9}, sourceLines(t, conn, "raw_item"))
}
