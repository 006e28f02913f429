package joboperator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/job/factory"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/job/joblauncher"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
)

type flakyJob struct{ failures int }

func (j *flakyJob) JobName() string                              { return "flakyJob" }
func (j *flakyJob) ValidateParameters(core.JobParameters) error { return nil }

func (j *flakyJob) Run(ctx context.Context, je *core.JobExecution, params core.JobParameters) error {
	if j.failures > 0 {
		j.failures--
		err := errors.New("transient")
		je.MarkAsFailed(err)
		return err
	}
	je.MarkAsCompleted()
	return nil
}

func newOperator(t *testing.T, job core.Job) (*DefaultJobOperator, joblauncher.JobLauncher) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Database = config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "batch.db")}
	repo, err := repository.NewJobRepositoryWithMigrations(context.Background(), *cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	f := factory.NewJobFactory(cfg, repo)
	f.RegisterJobBuilder(job.JobName(), func(repository.JobRepository, *config.Config, []core.JobExecutionListener) (core.Job, error) {
		return job, nil
	})
	launcher := joblauncher.NewSimpleJobLauncher(repo, f)
	return NewDefaultJobOperator(repo, launcher), launcher
}

func TestRestart_RerunsFailedExecution(t *testing.T) {
	op, launcher := newOperator(t, &flakyJob{failures: 1})
	ctx := context.Background()

	failed, err := launcher.Launch(ctx, "flakyJob", core.NewJobParameters())
	require.Error(t, err)

	restarted, err := op.Restart(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, restarted.Status)
	assert.Equal(t, failed.JobInstanceID, restarted.JobInstanceID)

	executions, err := op.GetJobExecutions(ctx, failed.JobInstanceID)
	require.NoError(t, err)
	assert.Len(t, executions, 2)

	_, err = op.Restart(ctx, restarted.ID)
	assert.Error(t, err, "完了済みの実行は再実行できない")
}

func TestAbandon(t *testing.T) {
	op, launcher := newOperator(t, &flakyJob{failures: 1})
	ctx := context.Background()

	failed, _ := launcher.Launch(ctx, "flakyJob", core.NewJobParameters())
	require.NoError(t, op.Abandon(ctx, failed.ID))

	je, err := op.GetJobExecution(ctx, failed.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusAbandoned, je.Status)
	assert.Error(t, op.Abandon(ctx, failed.ID))

	names, err := op.GetJobNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"flakyJob"}, names)
}
