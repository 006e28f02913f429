package writer

import (
	"context"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository"
	"github.com/Vignesh4110/finance-modernization/pkg/batch/repository/job"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// ErrorSource はデコード中に記録されたエラーを取り出せるものです。
type ErrorSource interface {
	Drain() []*fixedwidth.DecodeError
}

// ParseErrorWriter はデコードエラーを batch_parse_errors に保存します。
//
// エラーはチャンクのトランザクション内で挿入し、AfterChunk (コミット後) で保存済みとして数えます。
// 書き込みがリトライされた場合は同じエラーを新しいトランザクションで挿入し直します。
// 全件が破棄されて書き込みの無かったチャンクのエラーは AfterChunk で直接保存します。
// ファイルごとに保存する件数は limit 件までです (0 以下は無制限)。
type ParseErrorWriter struct {
	repo           repository.JobRepository
	source         ErrorSource
	jobExecutionID string
	layoutName     string
	limit          int

	inflight       []job.ParseError
	persisted      int
	dropped        int
	skipWriteCount int
}

var (
	_ core.ItemWriter[entity.DecodedRow] = (*ParseErrorWriter)(nil)
	_ core.ChunkListener                 = (*ParseErrorWriter)(nil)
)

// NewParseErrorWriter は新しい ParseErrorWriter を作成します。
// ChunkStep には Writer と ChunkListener の両方として登録してください。
func NewParseErrorWriter(repo repository.JobRepository, source ErrorSource, jobExecutionID, layoutName string, limit int) *ParseErrorWriter {
	return &ParseErrorWriter{
		repo:           repo,
		source:         source,
		jobExecutionID: jobExecutionID,
		layoutName:     layoutName,
		limit:          limit,
	}
}

func (w *ParseErrorWriter) Open(ctx context.Context, ec core.ExecutionContext) error {
	return nil
}

// Write は未保存のエラーを tx 内で挿入します。items は使いません。
func (w *ParseErrorWriter) Write(ctx context.Context, tx database.Tx, items []entity.DecodedRow) error {
	w.inflight = append(w.inflight, w.take(w.source.Drain())...)
	if len(w.inflight) == 0 {
		return nil
	}
	if tx == nil {
		return w.repo.SaveParseErrors(ctx, w.inflight)
	}
	return repository.InsertParseErrors(ctx, tx, w.repo.GetDBConnection().Dialect(), w.inflight)
}

func (w *ParseErrorWriter) BeforeChunk(ctx context.Context, se *core.StepExecution) {}

// AfterChunk はコミット済みのエラーを確定し、書き込みの無かったチャンクのエラーを保存します。
// チャンクの書き込みがスキップされた場合、挿入はロールバックされているので保存し直します。
func (w *ParseErrorWriter) AfterChunk(ctx context.Context, se *core.StepExecution) {
	if se.SkipWriteCount > w.skipWriteCount {
		w.skipWriteCount = se.SkipWriteCount
		w.save(ctx, w.inflight)
	} else {
		w.persisted += len(w.inflight)
	}
	w.inflight = nil
	w.flush(ctx)
}

// Close は残っているエラーを保存します。
// コミットを確認できなかったエラー (ステップ失敗時) もここで保存します。
func (w *ParseErrorWriter) Close(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	w.save(ctx, w.inflight)
	w.inflight = nil
	w.flush(ctx)
	if w.dropped > 0 {
		logger.Warnf("%s: 保存上限 %d 件を超えたため、%d 件のエラーは batch_parse_errors に保存していません。", w.layoutName, w.limit, w.dropped)
	}
	return nil
}

// Persisted は保存済みのエラー件数です。
func (w *ParseErrorWriter) Persisted() int {
	return w.persisted
}

func (w *ParseErrorWriter) flush(ctx context.Context) {
	w.save(ctx, w.take(w.source.Drain()))
}

func (w *ParseErrorWriter) save(ctx context.Context, pes []job.ParseError) {
	if len(pes) == 0 {
		return
	}
	if err := w.repo.SaveParseErrors(ctx, pes); err != nil {
		logger.Errorf("%s: ParseError %d 件の保存に失敗しました: %v", w.layoutName, len(pes), err)
		return
	}
	w.persisted += len(pes)
}

// take は保存上限の範囲でエラーを ParseError に変換します。
func (w *ParseErrorWriter) take(errs []*fixedwidth.DecodeError) []job.ParseError {
	if w.limit > 0 {
		room := w.limit - w.persisted - len(w.inflight)
		if room < 0 {
			room = 0
		}
		if len(errs) > room {
			w.dropped += len(errs) - room
			errs = errs[:room]
		}
	}
	out := make([]job.ParseError, 0, len(errs))
	for _, e := range errs {
		out = append(out, ToParseError(w.jobExecutionID, w.layoutName, e))
	}
	return out
}

// ToParseError は DecodeError を保存用の ParseError に変換します。
func ToParseError(jobExecutionID, layoutName string, e *fixedwidth.DecodeError) job.ParseError {
	cause := ""
	if e.Cause != nil {
		cause = e.Cause.Error()
	}
	return job.ParseError{
		JobExecutionID: jobExecutionID,
		LayoutName:     layoutName,
		FileName:       e.File,
		LineNumber:     e.Line,
		SourceName:     e.SourceName,
		RawValue:       e.Raw,
		Cause:          cause,
	}
}
