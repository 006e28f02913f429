package job

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/job/factory"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/job/joblauncher"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

const itemFile = "000042Widget    000123451240115134500\r\n" + // 正常
	"000043Gadget    000000991241399000000\r\n" + // 日付エラー
	"0042\r\n" + // 破棄
	"\r\n" +
	"000044Short\r\n" + // 空白補完
	"000045Thing     000001001231231235959\r\n"

func testRegistry() *fixedwidth.Registry {
	return fixedwidth.NewRegistry().MustRegister(
		fixedwidth.RecordLayout{
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
		},
		fixedwidth.RecordLayout{
			Name:         "NOTE",
			Description:  "test note file",
			RecordLength: 24,
			Fields: []fixedwidth.FieldSpec{
				fixedwidth.Decimal("NTID", 4, 0, "note_id"),
				fixedwidth.Text("NTTEXT", 20, "text"),
			},
		},
	)
}

type harness struct {
	cfg      *config.Config
	repo     repository.JobRepository
	launcher *joblauncher.SimpleJobLauncher
	inputDir string
}

func newHarness(t *testing.T, registry *fixedwidth.Registry) *harness {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Database = config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "batch.db")}
	cfg.Batch.ChunkSize = 2
	cfg.Batch.ParallelFiles = 2
	cfg.Batch.ItemRetry.InitialIntervalMillis = 1
	cfg.Ingest.OutputDir = t.TempDir()
	cfg.Ingest.Sinks = []string{SinkSQL, SinkCSV}
	cfg.Ingest.RequiredTables = nil
	cfg.Ingest.VerifyRoundTrip = true

	repo, err := repository.NewJobRepositoryWithMigrations(context.Background(), *cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	f := factory.NewJobFactory(cfg, repo)
	f.RegisterJobBuilder(IngestJobName, func(r repository.JobRepository, c *config.Config, ls []core.JobExecutionListener) (core.Job, error) {
		return NewIngestJob(r, c, registry, ls), nil
	})
	f.RegisterJobBuilder(GenerateJobName, func(r repository.JobRepository, c *config.Config, ls []core.JobExecutionListener) (core.Job, error) {
		return NewGenerateJob(r, c, registry, ls), nil
	})
	return &harness{cfg: cfg, repo: repo, launcher: joblauncher.NewSimpleJobLauncher(repo, f), inputDir: t.TempDir()}
}

func (h *harness) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(h.inputDir, name), []byte(content), 0o644))
}

func (h *harness) ingest(t *testing.T) (*core.JobExecution, error) {
	t.Helper()
	params := core.NewJobParameters()
	params.Put(InputDirParam, h.inputDir)
	je, err := h.launcher.Launch(context.Background(), IngestJobName, params)
	require.NotNil(t, je)
	return je, err
}

func (h *harness) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	require.NoError(t, h.repo.GetDBConnection().QueryRowContext(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func ecInt(t *testing.T, ec core.ExecutionContext, key string) int {
	t.Helper()
	n, ok := ec.GetInt(key)
	require.True(t, ok, key)
	return n
}

func TestIngestJob_DecodesFileAndReportsMissing(t *testing.T) {
	h := newHarness(t, testRegistry())
	// 拡張子の大文字小文字は区別しない
	h.write(t, "item.TXT", itemFile)

	je, err := h.ingest(t)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, je.Status)

	ec := je.ExecutionContext
	assert.Equal(t, 1, ecInt(t, ec, FilesProcessedKey))
	assert.Equal(t, 4, ecInt(t, ec, RecordsParsedKey))
	assert.Equal(t, 1, ecInt(t, ec, RecordsFailedKey))
	assert.Equal(t, 1, ecInt(t, ec, FieldErrorsKey))
	assert.Equal(t, 1, ecInt(t, ec, PaddedLinesKey))
	assert.Equal(t, 2, ecInt(t, ec, ErrorsPersistedKey))
	assert.Equal(t, []string{"NOTE"}, ec.Get(FilesMissingKey))
	loadID, ok := ec.GetString(LoadIDKey)
	require.True(t, ok)
	assert.Equal(t, je.ID, loadID)

	assert.Equal(t, 4, h.countRows(t, "raw_item"))
	_, err = os.Stat(filepath.Join(h.cfg.Ingest.OutputDir, "raw_item.csv"))
	assert.NoError(t, err)

	require.Len(t, je.StepExecutions, 1)
	se := je.StepExecutions[0]
	assert.Equal(t, "ingest.ITEM", se.StepName)
	assert.Equal(t, core.BatchStatusCompleted, se.Status)
	assert.Equal(t, 1, se.SkipProcessCount)
	assert.Equal(t, 4, se.WriteCount)

	pes, err := h.repo.FindParseErrorsByJobExecutionID(context.Background(), je.ID)
	require.NoError(t, err)
	require.Len(t, pes, 3)
	byFile := map[string]int{}
	for _, pe := range pes {
		byFile[pe.LayoutName]++
	}
	assert.Equal(t, map[string]int{"ITEM": 2, "NOTE": 1}, byFile)
}

func TestIngestJob_RequiredTableWithRejectedRecordsFails(t *testing.T) {
	h := newHarness(t, testRegistry())
	h.cfg.Ingest.RequiredTables = []string{"item"}
	h.write(t, "ITEM.txt", itemFile)
	h.write(t, "NOTE.txt", "0001hello\r\n")

	je, err := h.ingest(t)
	require.Error(t, err)
	assert.Equal(t, core.BatchStatusFailed, je.Status)
	// 破棄があっても正常な行は取り込まれている
	assert.Equal(t, 4, h.countRows(t, "raw_item"))
	assert.Equal(t, 1, h.countRows(t, "raw_note"))
	assert.Equal(t, 2, ecInt(t, je.ExecutionContext, FilesProcessedKey))
}

func TestIngestJob_RestartSkipsCompletedFiles(t *testing.T) {
	h := newHarness(t, testRegistry())
	h.cfg.Ingest.RequiredTables = []string{"NOTE"}
	h.write(t, "ITEM.txt", itemFile)

	first, err := h.ingest(t)
	require.Error(t, err)
	assert.Equal(t, core.BatchStatusFailed, first.Status)
	firstLoad, _ := first.ExecutionContext.GetString(LoadIDKey)

	h.write(t, "NOTE.txt", "0001hello\r\n0002world\r\n")
	second, err := h.ingest(t)
	require.NoError(t, err)
	assert.Equal(t, core.BatchStatusCompleted, second.Status)
	assert.Equal(t, first.JobInstanceID, second.JobInstanceID)

	secondLoad, _ := second.ExecutionContext.GetString(LoadIDKey)
	assert.Equal(t, firstLoad, secondLoad)

	steps := map[string]*core.StepExecution{}
	for _, se := range second.StepExecutions {
		steps[se.StepName] = se
	}
	require.Contains(t, steps, "ingest.ITEM")
	assert.Equal(t, core.ExitStatusNoOp, steps["ingest.ITEM"].ExitStatus)
	assert.Equal(t, core.BatchStatusCompleted, steps["ingest.NOTE"].Status)

	// 完了済みファイルは再取込されず、件数は前回分を引き継ぐ
	assert.Equal(t, 4, h.countRows(t, "raw_item"))
	assert.Equal(t, 2, h.countRows(t, "raw_note"))
	assert.Equal(t, 6, ecInt(t, second.ExecutionContext, RecordsParsedKey))
	assert.Equal(t, 2, ecInt(t, second.ExecutionContext, FilesProcessedKey))
	assert.Equal(t, []string{}, second.ExecutionContext.Get(FilesMissingKey))

	stored, err := h.repo.FindStepExecutionsByJobExecutionID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestIngestJob_MissingInputDirFails(t *testing.T) {
	h := newHarness(t, testRegistry())
	params := core.NewJobParameters()
	params.Put(InputDirParam, filepath.Join(h.inputDir, "nope"))
	je, err := h.launcher.Launch(context.Background(), IngestJobName, params)
	require.Error(t, err)
	require.NotNil(t, je)
	assert.Equal(t, core.BatchStatusFailed, je.Status)
}

func TestIngestJob_ValidateParameters(t *testing.T) {
	cfg := config.NewConfig()
	j := NewIngestJob(nil, cfg, testRegistry(), nil)

	ok := core.NewJobParameters()
	ok.Put(InputDirParam, "data")
	assert.NoError(t, j.ValidateParameters(ok))

	blank := core.NewJobParameters()
	blank.Put(InputDirParam, "  ")
	assert.Error(t, j.ValidateParameters(blank))

	cfg.Ingest.Sinks = []string{"sql", "parquet"}
	assert.Error(t, j.ValidateParameters(ok))

	cfg.Ingest.Sinks = []string{"sql"}
	cfg.Ingest.RequiredTables = []string{"PAYTRAN"}
	assert.Error(t, j.ValidateParameters(ok))
}
