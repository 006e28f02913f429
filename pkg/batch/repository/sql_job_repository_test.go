package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database/connector"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository/job"
)

func newTestRepository(t *testing.T) *SQLJobRepository {
	t.Helper()
	ctx := context.Background()
	cfg := config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "batch.db")}

	migrationConn, err := connector.NewDBConnectionFromConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, database.RunMigrations(migrationConn))

	conn, err := connector.NewDBConnectionFromConfig(ctx, cfg)
	require.NoError(t, err)
	repo := NewSQLJobRepository(conn)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newTestExecution(t *testing.T, repo *SQLJobRepository) (*core.JobInstance, *core.JobExecution) {
	t.Helper()
	ctx := context.Background()
	params := core.NewJobParameters()
	params.Put("input.dir", "data/raw")

	ji := core.NewJobInstance("ingestJob", params)
	require.NoError(t, repo.SaveJobInstance(ctx, ji))
	je := core.NewJobExecution(ji.ID, ji.JobName, params)
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	return ji, je
}

func TestJobInstance_SaveAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	ji, _ := newTestExecution(t, repo)

	found, err := repo.FindJobInstanceByJobNameAndParameters(ctx, "ingestJob", ji.Parameters)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ji.ID, found.ID)
	assert.Equal(t, "data/raw", found.Parameters.Params["input.dir"])

	other := core.NewJobParameters()
	other.Put("input.dir", "elsewhere")
	missing, err := repo.FindJobInstanceByJobNameAndParameters(ctx, "ingestJob", other)
	require.NoError(t, err)
	assert.Nil(t, missing)

	byID, err := repo.FindJobInstanceByID(ctx, ji.ID)
	require.NoError(t, err)
	assert.Equal(t, ji.ParametersHash, byID.ParametersHash)

	count, err := repo.GetJobInstanceCount(ctx, "ingestJob")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	names, err := repo.GetJobNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ingestJob"}, names)
}

func TestJobExecution_UpdateAndLoadWithSteps(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	ji, je := newTestExecution(t, repo)

	je.MarkAsStarted()
	je.ExecutionContext.Put("files", 4)
	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	assert.Equal(t, 1, je.Version)

	se := core.NewStepExecution("CUSMAS", je)
	require.NoError(t, repo.SaveStepExecution(ctx, se))
	se.MarkAsStarted()
	se.ReadCount = 10
	se.WriteCount = 9
	se.SkipProcessCount = 1
	se.ExecutionContext.Put("reader.line", 10)
	require.NoError(t, repo.UpdateStepExecution(ctx, se))

	je.MarkAsFailed(errors.New("required table missing"))
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	loaded, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusFailed, loaded.Status)
	assert.Equal(t, 2, loaded.Version)
	require.Len(t, loaded.Failures, 1)
	assert.Equal(t, "required table missing", loaded.Failures[0].Error())
	n, ok := loaded.ExecutionContext.GetInt("files")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	require.Len(t, loaded.StepExecutions, 1)
	step := loaded.StepExecutions[0]
	assert.Equal(t, "CUSMAS", step.StepName)
	assert.Equal(t, 10, step.ReadCount)
	assert.Equal(t, 1, step.SkipCount())
	assert.Same(t, loaded, step.JobExecution)
	line, _ := step.ExecutionContext.GetInt("reader.line")
	assert.Equal(t, 10, line)

	latest, err := repo.FindLatestJobExecution(ctx, ji.ID)
	require.NoError(t, err)
	assert.Equal(t, je.ID, latest.ID)

	all, err := repo.FindJobExecutionsByJobInstance(ctx, ji)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestJobExecution_StaleVersionIsRejected(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, je := newTestExecution(t, repo)

	stale := *je
	require.NoError(t, repo.UpdateJobExecution(ctx, je))
	err := repo.UpdateJobExecution(ctx, &stale)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "競合")
}

func TestParseErrors_SaveAndFind(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, je := newTestExecution(t, repo)

	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	errs := []job.ParseError{
		{JobExecutionID: je.ID, LayoutName: "PAYTRAN", FileName: "PAYTRAN.txt", LineNumber: 7, SourceName: "PTPAYDT", RawValue: "1AB0101", Cause: "invalid date"},
		{JobExecutionID: je.ID, LayoutName: "PAYTRAN", FileName: "PAYTRAN.txt", LineNumber: 3, Cause: string(long)},
	}
	require.NoError(t, repo.SaveParseErrors(ctx, errs))
	assert.NotEmpty(t, errs[0].ID)

	found, err := repo.FindParseErrorsByJobExecutionID(ctx, je.ID)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, 3, found[0].LineNumber)
	assert.Len(t, found[0].Cause, parseErrorValueLimit)
	assert.Equal(t, "PTPAYDT", found[1].SourceName)
	assert.Equal(t, "1AB0101", found[1].RawValue)
}

func TestTruncate_KeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "ab", truncate("abc", 2))
	assert.Equal(t, "a", truncate("aé", 2))
	assert.Equal(t, "short", truncate("short", 10))
}
