package step

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/config"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	exception "github.com/Vignesh4110/finance-modernization/pkg/batch/util/exception"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// ChunkStep はチャンク指向のステップを実装します。
// Reader が io.EOF を返すまでアイテムを読み込み、chunkSize 件ごとに 1 トランザクションで書き込みます。
// チャンクのコミット後に Reader の ExecutionContext を StepExecution に保存します。
type ChunkStep[I, O any] struct {
	name          string
	reader        core.ItemReader[I]
	processor     core.ItemProcessor[I, O]
	writer        core.ItemWriter[O]
	chunkSize     int
	jobRepository repository.JobRepository

	stepListeners  []core.StepExecutionListener
	chunkListeners []core.ChunkListener
	itemListeners  []core.ItemListener
	skipListeners  []core.SkipListener
	retryListeners []core.RetryItemListener

	itemRetryConfig config.ItemRetryConfig
	itemSkipConfig  config.ItemSkipConfig
}

// NewChunkStep は新しい ChunkStep のインスタンスを作成します。chunkSize が 1 未満の場合は 1 とみなします。
func NewChunkStep[I, O any](
	name string,
	r core.ItemReader[I],
	p core.ItemProcessor[I, O],
	w core.ItemWriter[O],
	chunkSize int,
	repo repository.JobRepository,
	itemRetryCfg config.ItemRetryConfig,
	itemSkipCfg config.ItemSkipConfig,
) *ChunkStep[I, O] {
	if chunkSize < 1 {
		chunkSize = 1
	}
	return &ChunkStep[I, O]{
		name:            name,
		reader:          r,
		processor:       p,
		writer:          w,
		chunkSize:       chunkSize,
		jobRepository:   repo,
		itemRetryConfig: itemRetryCfg,
		itemSkipConfig:  itemSkipCfg,
	}
}

// WithStepListeners は StepExecutionListener を追加します。
func (cs *ChunkStep[I, O]) WithStepListeners(ls ...core.StepExecutionListener) *ChunkStep[I, O] {
	cs.stepListeners = append(cs.stepListeners, ls...)
	return cs
}

// WithChunkListeners は ChunkListener を追加します。
func (cs *ChunkStep[I, O]) WithChunkListeners(ls ...core.ChunkListener) *ChunkStep[I, O] {
	cs.chunkListeners = append(cs.chunkListeners, ls...)
	return cs
}

// WithItemListeners は ItemListener を追加します。
func (cs *ChunkStep[I, O]) WithItemListeners(ls ...core.ItemListener) *ChunkStep[I, O] {
	cs.itemListeners = append(cs.itemListeners, ls...)
	return cs
}

// WithSkipListeners は SkipListener を追加します。
func (cs *ChunkStep[I, O]) WithSkipListeners(ls ...core.SkipListener) *ChunkStep[I, O] {
	cs.skipListeners = append(cs.skipListeners, ls...)
	return cs
}

// WithRetryListeners は RetryItemListener を追加します。
func (cs *ChunkStep[I, O]) WithRetryListeners(ls ...core.RetryItemListener) *ChunkStep[I, O] {
	cs.retryListeners = append(cs.retryListeners, ls...)
	return cs
}

func (cs *ChunkStep[I, O]) ID() string { return cs.name }

func (cs *ChunkStep[I, O]) StepName() string { return cs.name }

// Execute はチャンクステップを実行します。stepExecution は未保存のものを渡します。
func (cs *ChunkStep[I, O]) Execute(ctx context.Context, jobExecution *core.JobExecution, stepExecution *core.StepExecution) (err error) {
	logger.Infof("ステップ '%s' の実行を開始します。", cs.name)

	if err := cs.jobRepository.SaveStepExecution(ctx, stepExecution); err != nil {
		return err
	}

	for _, l := range cs.stepListeners {
		l.BeforeStep(ctx, stepExecution)
	}
	stepExecution.MarkAsStarted()
	if err := cs.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
		return exception.NewBatchError("chunk_step", fmt.Sprintf("StepExecution (ID: %s) の状態更新に失敗しました", stepExecution.ID), err, false, false)
	}

	if err := cs.reader.Open(ctx, stepExecution.ExecutionContext); err != nil {
		stepExecution.MarkAsFailed(err)
		cs.finish(ctx, stepExecution)
		return exception.NewBatchError("chunk_step", "Reader のオープンに失敗しました", err, false, false)
	}
	if err := cs.writer.Open(ctx, stepExecution.ExecutionContext); err != nil {
		stepExecution.MarkAsFailed(err)
		cs.closeAll(ctx)
		cs.finish(ctx, stepExecution)
		return exception.NewBatchError("chunk_step", "Writer のオープンに失敗しました", err, false, false)
	}

	defer func() {
		if closeErr := cs.closeAll(ctx); closeErr != nil && err == nil {
			stepExecution.MarkAsFailed(closeErr)
			err = closeErr
		}
		cs.finish(ctx, stepExecution)
	}()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			stepExecution.MarkAsFailed(ctxErr)
			stepExecution.Status = core.BatchStatusStopped
			stepExecution.ExitStatus = core.ExitStatusStopped
			logger.Warnf("ステップ '%s' がコンテキストキャンセルにより停止されました: %v", cs.name, ctxErr)
			return ctxErr
		}

		for _, l := range cs.chunkListeners {
			l.BeforeChunk(ctx, stepExecution)
		}
		items, readCount, eof, err := cs.readChunk(ctx, stepExecution)
		if err != nil {
			stepExecution.MarkAsFailed(err)
			return err
		}
		if readCount == 0 && eof {
			break
		}

		if len(items) > 0 {
			if err := cs.writeChunk(ctx, stepExecution, items); err != nil {
				stepExecution.MarkAsFailed(err)
				return err
			}
		} else {
			// 全件フィルタまたはスキップされたチャンクもコミット済みとして数える
			stepExecution.CommitCount++
		}

		cs.checkpoint(ctx, stepExecution)
		if err := cs.jobRepository.UpdateStepExecution(ctx, stepExecution); err != nil {
			stepExecution.MarkAsFailed(err)
			return err
		}
		for _, l := range cs.chunkListeners {
			l.AfterChunk(ctx, stepExecution)
		}
		if eof {
			break
		}
	}

	stepExecution.MarkAsCompleted()
	return nil
}

// readChunk は最大 chunkSize 件を読み込んで処理します。
func (cs *ChunkStep[I, O]) readChunk(ctx context.Context, se *core.StepExecution) (items []O, readCount int, eof bool, err error) {
	items = make([]O, 0, cs.chunkSize)
	for readCount < cs.chunkSize {
		item, readErr := cs.readItem(ctx, se)
		if errors.Is(readErr, io.EOF) {
			return items, readCount, true, nil
		}
		if errors.Is(readErr, errSkipped) {
			continue
		}
		if readErr != nil {
			return nil, readCount, false, readErr
		}
		readCount++
		se.ReadCount++

		out, ok, procErr := cs.processItem(ctx, se, item)
		if errors.Is(procErr, errSkipped) {
			continue
		}
		if procErr != nil {
			return nil, readCount, false, procErr
		}
		if !ok {
			se.FilterCount++
			continue
		}
		items = append(items, out)
	}
	return items, readCount, false, nil
}

// errSkipped はアイテムがスキップされたことを示す内部シグナルです。
var errSkipped = errors.New("item skipped")

func (cs *ChunkStep[I, O]) readItem(ctx context.Context, se *core.StepExecution) (I, error) {
	var zero I
	for attempt := 1; ; attempt++ {
		item, err := cs.reader.Read(ctx)
		if err == nil || errors.Is(err, io.EOF) {
			return item, err
		}
		if cs.shouldRetry(err, attempt) {
			for _, l := range cs.retryListeners {
				l.OnRetryRead(ctx, err)
			}
			if waitErr := cs.backoff(ctx, attempt); waitErr != nil {
				return zero, waitErr
			}
			continue
		}
		if cs.shouldSkip(err, se) {
			se.SkipReadCount++
			for _, l := range cs.skipListeners {
				l.OnSkipRead(ctx, err)
			}
			return zero, errSkipped
		}
		for _, l := range cs.itemListeners {
			l.OnReadError(ctx, err)
		}
		return zero, err
	}
}

func (cs *ChunkStep[I, O]) processItem(ctx context.Context, se *core.StepExecution, item I) (O, bool, error) {
	var zero O
	for attempt := 1; ; attempt++ {
		out, ok, err := cs.processor.Process(ctx, item)
		if err == nil {
			return out, ok, nil
		}
		if cs.shouldRetry(err, attempt) {
			for _, l := range cs.retryListeners {
				l.OnRetryProcess(ctx, item, err)
			}
			if waitErr := cs.backoff(ctx, attempt); waitErr != nil {
				return zero, false, waitErr
			}
			continue
		}
		if cs.shouldSkip(err, se) {
			se.SkipProcessCount++
			for _, l := range cs.skipListeners {
				l.OnSkipProcess(ctx, item, err)
			}
			return zero, false, errSkipped
		}
		for _, l := range cs.itemListeners {
			l.OnProcessError(ctx, item, err)
		}
		return zero, false, err
	}
}

// writeChunk は items を 1 トランザクションで書き込みます。
// リトライ可能なエラーはロールバック後に新しいトランザクションでやり直します。
// スキップ可能なエラーはチャンク全体を書き込みスキップとして数えます。
func (cs *ChunkStep[I, O]) writeChunk(ctx context.Context, se *core.StepExecution, items []O) error {
	for attempt := 1; ; attempt++ {
		err := cs.writeOnce(ctx, items)
		if err == nil {
			se.WriteCount += len(items)
			se.CommitCount++
			return nil
		}
		se.RollbackCount++

		if cs.shouldRetry(err, attempt) {
			for _, l := range cs.retryListeners {
				l.OnRetryWrite(ctx, toInterfaceSlice(items), err)
			}
			if waitErr := cs.backoff(ctx, attempt); waitErr != nil {
				return waitErr
			}
			continue
		}
		if cs.shouldSkip(err, se) {
			se.SkipWriteCount += len(items)
			for _, l := range cs.skipListeners {
				for _, item := range items {
					l.OnSkipWrite(ctx, item, err)
				}
			}
			return nil
		}
		for _, l := range cs.itemListeners {
			l.OnWriteError(ctx, toInterfaceSlice(items), err)
		}
		return err
	}
}

func (cs *ChunkStep[I, O]) writeOnce(ctx context.Context, items []O) (err error) {
	var tx database.Tx
	if conn := cs.jobRepository.GetDBConnection(); conn != nil {
		tx, err = conn.BeginTx(ctx, nil)
		if err != nil {
			return exception.NewBatchError("chunk_step", "トランザクションの開始に失敗しました", err, true, false)
		}
	}
	if err := cs.writer.Write(ctx, tx, items); err != nil {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logger.Errorf("ステップ '%s' のロールバックに失敗しました: %v", cs.name, rbErr)
			}
		}
		return err
	}
	if tx != nil {
		if err := tx.Commit(); err != nil {
			return exception.NewBatchError("chunk_step", "トランザクションのコミットに失敗しました", err, true, false)
		}
	}
	return nil
}

// shouldRetry は err が一時的なエラーで、試行回数が上限未満かを判定します。
func (cs *ChunkStep[I, O]) shouldRetry(err error, attempt int) bool {
	if attempt >= cs.itemRetryConfig.MaxAttempts {
		return false
	}
	if exception.IsTemporary(err) {
		return true
	}
	return matchesAny(err, cs.itemRetryConfig.RetryableExceptions)
}

// shouldSkip は err がスキップ可能で、スキップ上限に達していないかを判定します。
// SkipLimit が 0 以下の場合は上限なしです。
func (cs *ChunkStep[I, O]) shouldSkip(err error, se *core.StepExecution) bool {
	if !exception.IsSkippable(err) && !matchesAny(err, cs.itemSkipConfig.SkippableExceptions) {
		return false
	}
	limit := cs.itemSkipConfig.SkipLimit
	return limit <= 0 || se.SkipCount() < limit
}

func (cs *ChunkStep[I, O]) backoff(ctx context.Context, attempt int) error {
	interval := time.Duration(cs.itemRetryConfig.InitialIntervalMillis) * time.Millisecond
	if interval <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(interval * time.Duration(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// checkpoint は Reader の位置を StepExecution の ExecutionContext に反映します。
func (cs *ChunkStep[I, O]) checkpoint(ctx context.Context, se *core.StepExecution) {
	ec, err := cs.reader.GetExecutionContext(ctx)
	if err != nil {
		logger.Warnf("ステップ '%s' の Reader の ExecutionContext 取得に失敗しました: %v", cs.name, err)
		return
	}
	if se.ExecutionContext == nil {
		se.ExecutionContext = core.NewExecutionContext()
	}
	for k, v := range ec {
		se.ExecutionContext.Put(k, v)
	}
}

func (cs *ChunkStep[I, O]) closeAll(ctx context.Context) error {
	var errs []error
	if err := cs.reader.Close(ctx); err != nil {
		errs = append(errs, exception.NewBatchError("chunk_step", "Reader のクローズに失敗しました", err, false, false))
	}
	if err := cs.writer.Close(ctx); err != nil {
		errs = append(errs, exception.NewBatchError("chunk_step", "Writer のクローズに失敗しました", err, false, false))
	}
	return errors.Join(errs...)
}

// finish は AfterStep を呼び出し、最終状態を保存します。
func (cs *ChunkStep[I, O]) finish(ctx context.Context, se *core.StepExecution) {
	for _, l := range cs.stepListeners {
		l.AfterStep(ctx, se)
	}
	// キャンセル後でも最終状態は保存する
	if err := cs.jobRepository.UpdateStepExecution(context.WithoutCancel(ctx), se); err != nil {
		logger.Errorf("ステップ '%s' の最終 StepExecution (ID: %s) の更新に失敗しました: %v", cs.name, se.ID, err)
	}
	logger.Infof("ステップ '%s' の実行が完了しました。ステータス: %s, 終了ステータス: %s", cs.name, se.Status, se.ExitStatus)
}

func matchesAny(err error, typeNames []string) bool {
	for _, name := range typeNames {
		if exception.IsErrorOfType(err, name) {
			return true
		}
	}
	return false
}

func toInterfaceSlice[T any](slice []T) []interface{} {
	out := make([]interface{}, len(slice))
	for i, v := range slice {
		out[i] = v
	}
	return out
}

var _ core.Step = (*ChunkStep[any, any])(nil)
