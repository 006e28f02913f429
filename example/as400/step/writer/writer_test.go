package writer

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

func itemLayout() *fixedwidth.RecordLayout {
	return &fixedwidth.RecordLayout{
		Name:         "ITEM",
		Description:  "test item file",
		RecordLength: 37,
		Fields: []fixedwidth.FieldSpec{
			fixedwidth.Decimal("ITID", 6, 0, "item_id"),
			fixedwidth.Text("ITNAME", 10, "name"),
			fixedwidth.Decimal("ITAMT", 8, 2, "amount"),
			fixedwidth.Date("ITDATE", "posted_date"),
			fixedwidth.Time("ITTIME", "posted_time"),
		},
	}
}

func itemRow(line int, id int64, name, amount string) entity.DecodedRow {
	return entity.DecodedRow{
		File: "ITEM.TXT",
		Line: line,
		Record: fixedwidth.Record{
			"item_id":     decimal.NewNullDecimal(decimal.NewFromInt(id)),
			"name":        name,
			"amount":      decimal.NewNullDecimal(decimal.RequireFromString(amount)),
			"posted_date": fixedwidth.DateOf(2024, 1, 15),
			"posted_time": fixedwidth.NullTime{},
		},
	}
}

func newTestRepository(t *testing.T) repository.JobRepository {
	t.Helper()
	cfg := config.Config{Database: config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "batch.db")}}
	repo, err := repository.NewJobRepositoryWithMigrations(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}
