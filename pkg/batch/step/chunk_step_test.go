package step

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/step/processor"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/step/reader"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/step/writer"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
)

func newTestRepository(t *testing.T) repository.JobRepository {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Database = config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "batch.db")}
	repo, err := repository.NewJobRepositoryWithMigrations(context.Background(), *cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newTestJobExecution(t *testing.T, repo repository.JobRepository) *core.JobExecution {
	t.Helper()
	ctx := context.Background()
	ji := core.NewJobInstance("testJob", core.NewJobParameters())
	require.NoError(t, repo.SaveJobInstance(ctx, ji))
	je := core.NewJobExecution(ji.ID, ji.JobName, ji.Parameters)
	require.NoError(t, repo.SaveJobExecution(ctx, je))
	return je
}

func ints(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

var noRetry = config.ItemRetryConfig{MaxAttempts: 1}

// flakyWriter は最初の failures 回だけ err を返します。
type flakyWriter struct {
	*writer.ListWriter[int]
	failures int
	err      error
}

func (w *flakyWriter) Write(ctx context.Context, tx database.Tx, items []int) error {
	if w.failures > 0 {
		w.failures--
		return w.err
	}
	return w.ListWriter.Write(ctx, tx, items)
}

func TestChunkStep_CountsAndCheckpoint(t *testing.T) {
	repo := newTestRepository(t)
	je := newTestJobExecution(t, repo)
	ctx := context.Background()

	dropMultiplesOfThree := processor.Func[int, int](func(ctx context.Context, n int) (int, bool, error) {
		return n * 10, n%3 != 0, nil
	})
	out := writer.NewListWriter[int]()
	st := NewChunkStep[int, int]("numbers", reader.NewSliceReader("numbers.pos", ints(7)), dropMultiplesOfThree, out, 3, repo, noRetry, config.ItemSkipConfig{})

	se := core.NewStepExecution(st.StepName(), je)
	require.NoError(t, st.Execute(ctx, je, se))

	assert.Equal(t, core.BatchStatusCompleted, se.Status)
	assert.Equal(t, []int{10, 20, 40, 50, 70}, out.Items())
	assert.Equal(t, 7, se.ReadCount)
	assert.Equal(t, 5, se.WriteCount)
	assert.Equal(t, 2, se.FilterCount)
	assert.Equal(t, 3, se.CommitCount)

	stored, err := repo.FindStepExecutionByID(ctx, se.ID)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, stored.Status)
	assert.Equal(t, 7, stored.ReadCount)
	pos, ok := stored.ExecutionContext.GetInt("numbers.pos")
	assert.True(t, ok)
	assert.Equal(t, 7, pos)
}

func TestChunkStep_RestartsFromCheckpoint(t *testing.T) {
	repo := newTestRepository(t)
	je := newTestJobExecution(t, repo)

	out := writer.NewListWriter[int]()
	identity := processor.Func[int, int](func(ctx context.Context, n int) (int, bool, error) { return n, true, nil })
	st := NewChunkStep[int, int]("numbers", reader.NewSliceReader("numbers.pos", ints(5)), identity, out, 2, repo, noRetry, config.ItemSkipConfig{})

	se := core.NewStepExecution(st.StepName(), je)
	se.ExecutionContext.Put("numbers.pos", 3)
	require.NoError(t, st.Execute(context.Background(), je, se))
	assert.Equal(t, []int{4, 5}, out.Items())
}

func TestChunkStep_SkipsWithinLimit(t *testing.T) {
	repo := newTestRepository(t)
	je := newTestJobExecution(t, repo)

	rejectEven := processor.Func[int, int](func(ctx context.Context, n int) (int, bool, error) {
		if n%2 == 0 {
			return 0, false, exception.NewSkippableError("test", "even", nil)
		}
		return n, true, nil
	})
	out := writer.NewListWriter[int]()
	st := NewChunkStep[int, int]("odd", reader.NewSliceReader("pos", ints(5)), rejectEven, out, 10, repo, noRetry, config.ItemSkipConfig{SkipLimit: 2})

	se := core.NewStepExecution(st.StepName(), je)
	require.NoError(t, st.Execute(context.Background(), je, se))
	assert.Equal(t, []int{1, 3, 5}, out.Items())
	assert.Equal(t, 2, se.SkipProcessCount)
	assert.Equal(t, core.BatchStatusCompleted, se.Status)
}

func TestChunkStep_FailsWhenSkipLimitExceeded(t *testing.T) {
	repo := newTestRepository(t)
	je := newTestJobExecution(t, repo)

	rejectAll := processor.Func[int, int](func(ctx context.Context, n int) (int, bool, error) {
		return 0, false, exception.NewSkippableError("test", "rejected", nil)
	})
	st := NewChunkStep[int, int]("reject", reader.NewSliceReader("pos", ints(3)), rejectAll, writer.NewListWriter[int](), 10, repo, noRetry, config.ItemSkipConfig{SkipLimit: 1})

	se := core.NewStepExecution(st.StepName(), je)
	err := st.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.Equal(t, core.BatchStatusFailed, se.Status)
	assert.Equal(t, 1, se.SkipProcessCount)

	stored, findErr := repo.FindStepExecutionByID(context.Background(), se.ID)
	require.NoError(t, findErr)
	assert.Equal(t, core.BatchStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Failures)
}

func TestChunkStep_RetriesTemporaryWriteError(t *testing.T) {
	repo := newTestRepository(t)
	je := newTestJobExecution(t, repo)

	w := &flakyWriter{
		ListWriter: writer.NewListWriter[int](),
		failures:   1,
		err:        exception.NewBatchError("test", "locked", errors.New("database is locked"), true, false),
	}
	identity := processor.Func[int, int](func(ctx context.Context, n int) (int, bool, error) { return n, true, nil })
	st := NewChunkStep[int, int]("retry", reader.NewSliceReader("pos", ints(4)), identity, w, 4, repo,
		config.ItemRetryConfig{MaxAttempts: 3}, config.ItemSkipConfig{})

	se := core.NewStepExecution(st.StepName(), je)
	require.NoError(t, st.Execute(context.Background(), je, se))
	assert.Equal(t, []int{1, 2, 3, 4}, w.Items())
	assert.Equal(t, 1, se.RollbackCount)
	assert.Equal(t, 4, se.WriteCount)
}

func TestChunkStep_FatalWriteErrorFailsStep(t *testing.T) {
	repo := newTestRepository(t)
	je := newTestJobExecution(t, repo)

	w := &flakyWriter{ListWriter: writer.NewListWriter[int](), failures: 10, err: errors.New("disk full")}
	identity := processor.Func[int, int](func(ctx context.Context, n int) (int, bool, error) { return n, true, nil })
	st := NewChunkStep[int, int]("fatal", reader.NewSliceReader("pos", ints(2)), identity, w, 2, repo, noRetry, config.ItemSkipConfig{})

	se := core.NewStepExecution(st.StepName(), je)
	err := st.Execute(context.Background(), je, se)
	require.Error(t, err)
	assert.Equal(t, core.BatchStatusFailed, se.Status)
	assert.Empty(t, w.Items())
	assert.Equal(t, 0, se.WriteCount)
}
