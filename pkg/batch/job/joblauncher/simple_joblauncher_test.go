package joblauncher

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
	"github.com/Vignesh4110/finance-modernization/pkg/batch/job/incrementer"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
)

// stubJob は fail が true の間は失敗するジョブです。
type stubJob struct {
	name string
	fail bool
	runs int
	seen core.ExecutionContext
}

func (j *stubJob) JobName() string                              { return j.name }
func (j *stubJob) ValidateParameters(params core.JobParameters) error { return nil }

func (j *stubJob) Run(ctx context.Context, je *core.JobExecution, params core.JobParameters) error {
	j.runs++
	j.seen = je.ExecutionContext.Copy()
	je.ExecutionContext.Put("runs", j.runs)
	if j.fail {
		err := errors.New("boom")
		je.MarkAsFailed(err)
		return err
	}
	je.MarkAsCompleted()
	return nil
}

func newLauncher(t *testing.T, job *stubJob, inc core.JobParametersIncrementer) (*SimpleJobLauncher, repository.JobRepository) {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Database = config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "batch.db")}
	repo, err := repository.NewJobRepositoryWithMigrations(context.Background(), *cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	f := factory.NewJobFactory(cfg, repo)
	f.RegisterJobBuilder(job.name, func(repository.JobRepository, *config.Config, []core.JobExecutionListener) (core.Job, error) {
		return job, nil
	})
	if inc != nil {
		f.RegisterJobParametersIncrementer(job.name, inc)
	}
	return NewSimpleJobLauncher(repo, f), repo
}

func params() core.JobParameters {
	p := core.NewJobParameters()
	p.Put("input.dir", "data")
	return p
}

func TestLaunch_PersistsCompletedExecution(t *testing.T) {
	job := &stubJob{name: "ingestJob"}
	l, repo := newLauncher(t, job, nil)

	je, err := l.Launch(context.Background(), "ingestJob", params())
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, je.Status)

	stored, err := repo.FindJobExecutionByID(context.Background(), je.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, stored.Status)
	assert.False(t, stored.EndTime.IsZero())
}

func TestLaunch_CompletedInstanceWithoutIncrementerIsRejected(t *testing.T) {
	job := &stubJob{name: "ingestJob"}
	l, _ := newLauncher(t, job, nil)

	_, err := l.Launch(context.Background(), "ingestJob", params())
	require.NoError(t, err)
	_, err = l.Launch(context.Background(), "ingestJob", params())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "完了済み")
	assert.Equal(t, 1, job.runs)
}

func TestLaunch_IncrementerCreatesNewInstances(t *testing.T) {
	job := &stubJob{name: "ingestJob"}
	l, repo := newLauncher(t, job, incrementer.NewRunIDIncrementer("run.id"))
	ctx := context.Background()

	first, err := l.Launch(ctx, "ingestJob", params())
	require.NoError(t, err)
	second, err := l.Launch(ctx, "ingestJob", params())
	require.NoError(t, err)
	third, err := l.Launch(ctx, "ingestJob", params())
	require.NoError(t, err)

	assert.NotEqual(t, first.JobInstanceID, second.JobInstanceID)
	assert.NotEqual(t, second.JobInstanceID, third.JobInstanceID)
	runID, _ := third.Parameters.GetInt("run.id")
	assert.Equal(t, 2, runID)

	count, err := repo.GetJobInstanceCount(ctx, "ingestJob")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestLaunch_FailedInstanceIsRestartedWithContext(t *testing.T) {
	job := &stubJob{name: "ingestJob", fail: true}
	l, _ := newLauncher(t, job, incrementer.NewRunIDIncrementer("run.id"))
	ctx := context.Background()

	failed, err := l.Launch(ctx, "ingestJob", params())
	require.Error(t, err)
	assert.Equal(t, core.BatchStatusFailed, failed.Status)

	job.fail = false
	restarted, err := l.Launch(ctx, "ingestJob", params())
	require.NoError(t, err)
	assert.Equal(t, failed.JobInstanceID, restarted.JobInstanceID)
	prevID, ok := job.seen.GetString(PreviousExecutionKey)
	assert.True(t, ok)
	assert.Equal(t, failed.ID, prevID)
	runs, _ := job.seen.GetInt("runs")
	assert.Equal(t, 1, runs)
}

func TestLaunch_UnknownJob(t *testing.T) {
	l, _ := newLauncher(t, &stubJob{name: "ingestJob"}, nil)
	_, err := l.Launch(context.Background(), "missingJob", params())
	require.Error(t, err)
}
