package job

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	processor "github.com/Vignesh4110/finance-modernization/example/as400/step/processor"
	reader "github.com/Vignesh4110/finance-modernization/example/as400/step/reader"
	writer "github.com/Vignesh4110/finance-modernization/example/as400/step/writer"
	config "github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	joblauncher "github.com/Vignesh4110/finance-modernization/pkg/batch/job/joblauncher"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	jobrepo "github.com/Vignesh4110/finance-modernization/pkg/batch/repository/job"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/step"
	steplistener "github.com/Vignesh4110/finance-modernization/pkg/batch/step/listener"
	stepwriter "github.com/Vignesh4110/finance-modernization/pkg/batch/step/writer"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

const IngestJobName = "ingestJob"

// ジョブパラメータ。
const (
	InputDirParam = "input.dir"
)

// 出力先の名前。ingest.sinks に指定します。
const (
	SinkSQL  = "sql"
	SinkCSV  = "csv"
	SinkXLSX = "xlsx"
)

// JobExecution の ExecutionContext に保存する集計のキー。
const (
	LoadIDKey          = "ingest.load_id"
	InputDirKey        = "ingest.input_dir"
	FilesProcessedKey  = "ingest.files_processed"
	FilesMissingKey    = "ingest.files_missing"
	ErrorsPersistedKey = "ingest.errors_persisted"
)

const ingestStepPrefix = "ingest."

// IngestJob は入力ディレクトリの物理ファイルをレイアウトごとに取り込むジョブです。
//
// Registry に登録された各レイアウトについて <NAME>.txt を大文字小文字を区別せずに探し、
// 見つかったファイルを 1 ファイル 1 ChunkStep として最大 batch.parallel_files 並列で処理します。
// 見つからない・読めないファイルは報告して読み飛ばします。
// 集計は Registry の登録順に合算し、ingest.required_tables に含まれるテーブルで
// レコードの破棄があった場合はジョブを失敗させます。
//
// 同じ JobInstance の再実行では、前回完了したファイルは読み飛ばし、
// 途中で失敗したファイルは最後にコミットした行の次から再開します。
type IngestJob struct {
	name         string
	repo         repository.JobRepository
	cfg          *config.Config
	registry     *fixedwidth.Registry
	jobListeners []core.JobExecutionListener
}

var _ core.Job = (*IngestJob)(nil)

// NewIngestJob は新しい IngestJob のインスタンスを作成します。
func NewIngestJob(
	repo repository.JobRepository,
	cfg *config.Config,
	registry *fixedwidth.Registry,
	listeners []core.JobExecutionListener,
) *IngestJob {
	return &IngestJob{
		name:         IngestJobName,
		repo:         repo,
		cfg:          cfg,
		registry:     registry,
		jobListeners: listeners,
	}
}

func (j *IngestJob) JobName() string {
	return j.name
}

// ValidateParameters は input.dir の型と出力先の指定を検査します。
func (j *IngestJob) ValidateParameters(params core.JobParameters) error {
	if v, ok := params.Params[InputDirParam]; ok {
		if s, isString := v.(string); !isString || strings.TrimSpace(s) == "" {
			return exception.NewBatchErrorf(j.name, nil, "パラメータ '%s' は空でない文字列で指定してください: %v", InputDirParam, v)
		}
	}
	if len(j.cfg.Ingest.Sinks) == 0 {
		return exception.NewBatchErrorf(j.name, nil, "ingest.sinks が指定されていません")
	}
	for _, s := range j.cfg.Ingest.Sinks {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case SinkSQL, SinkCSV, SinkXLSX:
		default:
			return exception.NewBatchErrorf(j.name, nil, "不明な出力先です: %q", s)
		}
	}
	for _, t := range j.cfg.Ingest.RequiredTables {
		if _, err := j.registry.Get(t); err != nil {
			return exception.NewBatchError(j.name, "ingest.required_tables に未登録のレイアウトがあります", err, false, false)
		}
	}
	return nil
}

func (j *IngestJob) notifyBeforeJob(ctx context.Context, je *core.JobExecution) {
	for _, l := range j.jobListeners {
		l.BeforeJob(ctx, je)
	}
}

func (j *IngestJob) notifyAfterJob(ctx context.Context, je *core.JobExecution) {
	for _, l := range j.jobListeners {
		l.AfterJob(ctx, je)
	}
}

// fileIngest は 1 レイアウト分の取込状態です。
type fileIngest struct {
	layout    *fixedwidth.RecordLayout
	path      string // 空の場合は取込対象外
	reason    error  // 取込対象外の理由
	stepExec  *core.StepExecution
	skipped   bool // 前回の実行で完了済み
	restored  fixedwidth.ParseStats
	stats     fixedwidth.ParseStats
	persisted int
	err       error
}

// Run は全ファイルを取り込み、集計を JobExecution の ExecutionContext に保存します。
func (j *IngestJob) Run(ctx context.Context, je *core.JobExecution, params core.JobParameters) error {
	j.notifyBeforeJob(ctx, je)
	defer j.notifyAfterJob(context.WithoutCancel(ctx), je)

	inputDir := j.cfg.Ingest.InputDir
	if v, ok := params.GetString(InputDirParam); ok {
		inputDir = v
	}
	je.ExecutionContext.Put(InputDirKey, inputDir)
	loadID, ok := je.ExecutionContext.GetString(LoadIDKey)
	if !ok || loadID == "" {
		loadID = je.ID
		je.ExecutionContext.Put(LoadIDKey, loadID)
	}
	logger.Infof("ジョブ '%s': '%s' のファイルを取り込みます。(load_id: %s)", j.name, inputDir, loadID)

	files, err := j.resolveFiles(inputDir)
	if err != nil {
		je.MarkAsFailed(err)
		return err
	}

	previous := j.previousSteps(ctx, je)
	var missing []jobrepo.ParseError
	for _, f := range files {
		if f.path == "" {
			logger.Warnf("ジョブ '%s': %s を取り込めません: %v", j.name, f.layout.Name, f.reason)
			missing = append(missing, jobrepo.ParseError{
				JobExecutionID: je.ID,
				LayoutName:     f.layout.Name,
				FileName:       f.layout.Name + ".txt",
				Cause:          f.reason.Error(),
			})
			continue
		}
		// StepExecution は JobExecution に追加されるため、並列実行の前に作成する
		f.stepExec = core.NewStepExecution(ingestStepPrefix+f.layout.Name, je)
		if prev, found := previous[f.stepExec.StepName]; found {
			j.restore(f, prev)
		}
	}
	if len(missing) > 0 {
		if err := j.repo.SaveParseErrors(ctx, missing); err != nil {
			logger.Errorf("ジョブ '%s': 欠落ファイルの記録に失敗しました: %v", j.name, err)
		}
	}
	for _, f := range files {
		if f.skipped {
			if err := j.repo.SaveStepExecution(ctx, f.stepExec); err != nil {
				je.MarkAsFailed(err)
				return exception.NewBatchError(j.name, "StepExecution の保存に失敗しました", err, false, false)
			}
		}
	}

	parallel := j.cfg.Batch.ParallelFiles
	if parallel < 1 {
		parallel = 1
	}
	// 1 ファイルの失敗で他のファイルを止めないよう、キャンセルを伝播しない Group を使う
	var g errgroup.Group
	g.SetLimit(parallel)
	for _, f := range files {
		if f.path == "" || f.skipped {
			continue
		}
		g.Go(func() error {
			j.ingestFile(ctx, je, loadID, f)
			return nil
		})
	}
	_ = g.Wait()

	return j.summarize(ctx, je, files)
}

// resolveFiles は Registry の登録順に取込対象のファイルを決めます。
func (j *IngestJob) resolveFiles(dir string) ([]*fileIngest, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, exception.NewBatchError(j.name, fmt.Sprintf("入力ディレクトリ '%s' を読み込めませんでした", dir), err, false, false)
	}
	byName := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		key := strings.ToUpper(e.Name())
		if _, dup := byName[key]; !dup {
			byName[key] = e.Name()
		}
	}

	var files []*fileIngest
	for layout := range j.registry.All() {
		f := &fileIngest{layout: layout}
		name, ok := byName[strings.ToUpper(layout.Name)+".TXT"]
		if !ok {
			f.reason = fmt.Errorf("%s.txt が '%s' にありません", layout.Name, dir)
			files = append(files, f)
			continue
		}
		path := filepath.Join(dir, name)
		fh, err := os.Open(path)
		if err != nil {
			f.reason = err
			files = append(files, f)
			continue
		}
		fh.Close()
		f.path = path
		files = append(files, f)
	}
	return files, nil
}

// previousSteps は再実行時に前回の JobExecution の StepExecution をステップ名で返します。
func (j *IngestJob) previousSteps(ctx context.Context, je *core.JobExecution) map[string]*core.StepExecution {
	prevID, ok := je.ExecutionContext.GetString(joblauncher.PreviousExecutionKey)
	if !ok || prevID == "" {
		return nil
	}
	ses, err := j.repo.FindStepExecutionsByJobExecutionID(ctx, prevID)
	if err != nil {
		logger.Warnf("ジョブ '%s': 前回の StepExecution を取得できないため、全ファイルを最初から取り込みます: %v", j.name, err)
		return nil
	}
	out := make(map[string]*core.StepExecution, len(ses))
	for _, se := range ses {
		out[se.StepName] = se
	}
	return out
}

// restore は前回の StepExecution から再開位置と件数を引き継ぎます。
func (j *IngestJob) restore(f *fileIngest, prev *core.StepExecution) {
	se := f.stepExec
	if prev.Status == core.BatchStatusCompleted {
		f.skipped = true
		f.stats = statsFrom(prev.ExecutionContext)
		se.ExecutionContext = prev.ExecutionContext.Copy()
		se.ReadCount = prev.ReadCount
		se.WriteCount = prev.WriteCount
		se.FilterCount = prev.FilterCount
		se.SkipProcessCount = prev.SkipProcessCount
		se.MarkAsStarted()
		se.MarkAsCompleted()
		se.ExitStatus = core.ExitStatusNoOp
		logger.Infof("ジョブ '%s': %s は前回の実行で完了しているため読み飛ばします。", j.name, f.layout.Name)
		return
	}
	if j.cfg.Ingest.HasSink(SinkXLSX) {
		// XLSX は追記できないため、ファイルの先頭から取り込み直す
		logger.Warnf("ジョブ '%s': XLSX 出力が有効なため、%s は先頭から取り込み直します。", j.name, f.layout.Name)
		return
	}
	se.ExecutionContext = prev.ExecutionContext.Copy()
	f.restored = statsFrom(prev.ExecutionContext)
}

// ingestFile は 1 ファイル分の ChunkStep を組み立てて実行します。
func (j *IngestJob) ingestFile(ctx context.Context, je *core.JobExecution, loadID string, f *fileIngest) {
	layout := f.layout
	fileName := filepath.Base(f.path)
	stepName := f.stepExec.StepName

	proc := processor.NewRecordDecodeProcessor(layout, j.cfg.Ingest.VerifyRoundTrip)
	errWriter := writer.NewParseErrorWriter(j.repo, proc, je.ID, layout.Name, j.cfg.Ingest.MaxPersistedErrors)
	checkpoint := newStatsCheckpoint(proc, f.restored)

	var sinks []core.ItemWriter[entity.DecodedRow]
	if j.cfg.Ingest.HasSink(SinkSQL) {
		sinks = append(sinks, writer.NewSQLTableWriter(j.repo.GetDBConnection(), layout, j.cfg.Ingest.TablePrefix, loadID, fileName))
	}
	if j.cfg.Ingest.HasSink(SinkCSV) {
		sinks = append(sinks, writer.NewCSVTableWriter(j.cfg.Ingest.OutputDir, layout, j.cfg.Ingest.TablePrefix))
	}
	if j.cfg.Ingest.HasSink(SinkXLSX) {
		sinks = append(sinks, writer.NewXLSXTableWriter(j.cfg.Ingest.OutputDir, layout, j.cfg.Ingest.TablePrefix))
	}
	sinks = append(sinks, errWriter)

	st := step.NewChunkStep[entity.RawLine, entity.DecodedRow](
		stepName,
		checkpoint.wrap(reader.NewFixedWidthFileReader(f.path, layout.Name)),
		proc,
		stepwriter.NewCompositeWriter(sinks...),
		j.cfg.Batch.ChunkSize,
		j.repo,
		j.cfg.Batch.ItemRetry,
		j.cfg.Batch.ItemSkip,
	).
		WithStepListeners(steplistener.NewLoggingStepExecutionListener(), checkpoint).
		WithChunkListeners(steplistener.NewLoggingChunkListener(), errWriter, checkpoint).
		WithItemListeners(steplistener.NewLoggingItemListener()).
		WithSkipListeners(steplistener.NewLoggingSkipListener(stepName)).
		WithRetryListeners(steplistener.NewLoggingRetryItemListener(stepName))

	f.err = st.Execute(ctx, je, f.stepExec)
	f.stats = checkpoint.final
	f.persisted = errWriter.Persisted()
}

// summarize は登録順に集計してログに出力し、ジョブの最終状態を決めます。
func (j *IngestJob) summarize(ctx context.Context, je *core.JobExecution, files []*fileIngest) error {
	var (
		total        fixedwidth.ParseStats
		missing      = []string{}
		gateFailures []string
		stepErrs     []error
		persisted    int
	)
	for _, f := range files {
		name := f.layout.Name
		required := j.cfg.Ingest.IsRequired(name)
		if f.path == "" {
			missing = append(missing, name)
			if required {
				gateFailures = append(gateFailures, fmt.Sprintf("%s: %v", name, f.reason))
			}
			continue
		}
		persisted += f.persisted
		if f.err != nil {
			stepErrs = append(stepErrs, fmt.Errorf("%s: %w", name, f.err))
			total.Merge(f.stats)
			continue
		}
		st := f.stats
		st.FilesProcessed = 1
		total.Merge(st)
		if required && st.RecordsFailed > 0 {
			gateFailures = append(gateFailures, fmt.Sprintf("%s: %d 件のレコードを破棄しました", name, st.RecordsFailed))
		}
	}

	ec := je.ExecutionContext
	ec.Put(FilesProcessedKey, total.FilesProcessed)
	ec.Put(FilesMissingKey, missing)
	ec.Put(ErrorsPersistedKey, persisted)
	putStats(ec, total)

	logger.Infof("ジョブ '%s': 取込結果 ファイル %d/%d, レコード %d 件成功, %d 件破棄, フィールドエラー %d 件, 補完行 %d 件",
		j.name, total.FilesProcessed, len(files), total.RecordsParsed, total.RecordsFailed, total.FieldErrors, total.PaddedLines)
	shown := total.FirstErrors(j.cfg.Ingest.MaxReportedErrors)
	for _, e := range shown {
		logger.Warnf("  - %v", e)
	}
	if rest := len(total.Errors) - len(shown); rest > 0 {
		logger.Warnf("  ... 他 %d 件のエラー (batch_parse_errors に %d 件保存)", rest, persisted)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		je.AddFailureException(ctxErr)
		je.MarkAsStopped()
		return ctxErr
	}
	if len(stepErrs) > 0 {
		err := exception.NewBatchError(j.name, fmt.Sprintf("%d 件のファイルの取込に失敗しました", len(stepErrs)), errors.Join(stepErrs...), false, false)
		je.MarkAsFailed(err)
		return err
	}
	if len(gateFailures) > 0 {
		err := exception.NewBatchErrorf(j.name, nil, "必須テーブルの取込に問題があります: %s", strings.Join(gateFailures, "; "))
		je.MarkAsFailed(err)
		return err
	}
	je.MarkAsCompleted()
	return nil
}
