package job

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tasklet "github.com/Vignesh4110/finance-modernization/example/as400/step/tasklet"
	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth/layouts"
)

func TestGenerateThenIngest(t *testing.T) {
	registry, err := layouts.NewRegistry()
	require.NoError(t, err)
	h := newHarness(t, registry)
	h.cfg.Batch.ChunkSize = 50
	h.cfg.Ingest.RequiredTables = []string{"CUSMAS", "ARMAS"}
	h.cfg.Ingest.Generate = config.GenerateConfig{Seed: 42, Customers: 15, Invoices: 40, Payments: 20, JournalLines: 30}

	params := core.NewJobParameters()
	params.Put(OutputDirParam, h.inputDir)
	params.Put(SeedParam, 7)
	gen, err := h.launcher.Launch(context.Background(), GenerateJobName, params)
	require.NoError(t, err)
	require.Equal(t, core.BatchStatusCompleted, gen.Status)

	dir, ok := gen.ExecutionContext.GetString(tasklet.OutputDirKey)
	require.True(t, ok)
	assert.Equal(t, h.inputDir, dir)
	customers := ecInt(t, gen.ExecutionContext, tasklet.RecordsKeyPrefix+"CUSMAS")
	invoices := ecInt(t, gen.ExecutionContext, tasklet.RecordsKeyPrefix+"ARMAS")
	assert.Equal(t, 15, customers)
	assert.Equal(t, 40, invoices)
	require.Len(t, gen.StepExecutions, 1)
	assert.Equal(t, core.BatchStatusCompleted, gen.StepExecutions[0].Status)

	ing, err := h.ingest(t)
	require.NoError(t, err)
	require.Equal(t, core.BatchStatusCompleted, ing.Status)
	assert.Equal(t, 4, ecInt(t, ing.ExecutionContext, FilesProcessedKey))
	assert.Zero(t, ecInt(t, ing.ExecutionContext, RecordsFailedKey))
	assert.Zero(t, ecInt(t, ing.ExecutionContext, FieldErrorsKey))
	assert.Equal(t, customers, h.countRows(t, "raw_cusmas"))
	assert.Equal(t, invoices, h.countRows(t, "raw_armas"))

	// 取込ステップでは再エンコード検証が全行成功している
	for _, se := range ing.StepExecutions {
		n, _ := se.ExecutionContext.GetInt(RoundTripFailuresKey)
		assert.Zero(t, n, se.StepName)
	}
}

func TestGenerateJob_ValidateParameters(t *testing.T) {
	registry, err := layouts.NewRegistry()
	require.NoError(t, err)
	cfg := config.NewConfig()
	j := NewGenerateJob(nil, cfg, registry, nil)

	p := core.NewJobParameters()
	p.Put(OutputDirParam, filepath.Join(t.TempDir(), "out"))
	p.Put(SeedParam, 3)
	assert.NoError(t, j.ValidateParameters(p))

	bad := core.NewJobParameters()
	bad.Put(SeedParam, "abc")
	assert.Error(t, j.ValidateParameters(bad))

	cfg.Ingest.Generate.MalformedRate = 1.5
	assert.Error(t, j.ValidateParameters(p))
}
