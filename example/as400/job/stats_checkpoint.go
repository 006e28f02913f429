package job

import (
	"context"

	entity "github.com/Vignesh4110/finance-modernization/example/as400/domain/entity"
	processor "github.com/Vignesh4110/finance-modernization/example/as400/step/processor"
	reader "github.com/Vignesh4110/finance-modernization/example/as400/step/reader"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	"github.com/Vignesh4110/finance-modernization/pkg/fixedwidth"
)

// ExecutionContext に保存するデコード件数のキー。ステップとジョブの両方で使います。
const (
	RecordsParsedKey     = "ingest.records_parsed"
	RecordsFailedKey     = "ingest.records_failed"
	FieldErrorsKey       = "ingest.field_errors"
	PaddedLinesKey       = "ingest.padded_lines"
	RoundTripFailuresKey = "ingest.round_trip_failures"
)

// statsCheckpoint はコミット済みチャンクまでのデコード件数をステップの ExecutionContext に残します。
// 件数は Reader の位置と同じ ExecutionContext に載せ、チャンクごとに同じ更新で保存されます。
// 再実行時は base (前回までの件数) に今回の件数を加算します。
type statsCheckpoint struct {
	proc      *processor.RecordDecodeProcessor
	base      fixedwidth.ParseStats
	committed fixedwidth.ParseStats
	final     fixedwidth.ParseStats
}

var (
	_ core.ChunkListener              = (*statsCheckpoint)(nil)
	_ core.StepExecutionListener      = (*statsCheckpoint)(nil)
	_ core.ItemReader[entity.RawLine] = (*checkpointedReader)(nil)
)

func newStatsCheckpoint(proc *processor.RecordDecodeProcessor, base fixedwidth.ParseStats) *statsCheckpoint {
	return &statsCheckpoint{proc: proc, base: base}
}

func (c *statsCheckpoint) BeforeChunk(ctx context.Context, se *core.StepExecution) {}

func (c *statsCheckpoint) AfterChunk(ctx context.Context, se *core.StepExecution) {
	c.committed = c.proc.Counts()
}

// running は base に現在までの件数を加えたものです。
func (c *statsCheckpoint) running() fixedwidth.ParseStats {
	st := c.base
	st.Merge(c.proc.Counts())
	return st
}

// wrap は r の ExecutionContext に件数を加える Reader を返します。
func (c *statsCheckpoint) wrap(r *reader.FixedWidthFileReader) *checkpointedReader {
	return &checkpointedReader{FixedWidthFileReader: r, checkpoint: c}
}

// checkpointedReader は ChunkStep がコミット後に取得する ExecutionContext にデコード件数を含めます。
type checkpointedReader struct {
	*reader.FixedWidthFileReader
	checkpoint *statsCheckpoint
}

func (r *checkpointedReader) GetExecutionContext(ctx context.Context) (core.ExecutionContext, error) {
	ec, err := r.FixedWidthFileReader.GetExecutionContext(ctx)
	if err != nil {
		return nil, err
	}
	putStats(ec, r.checkpoint.running())
	ec.Put(RoundTripFailuresKey, r.checkpoint.proc.RoundTripFailures())
	return ec, nil
}

func (c *statsCheckpoint) BeforeStep(ctx context.Context, se *core.StepExecution) {}

// AfterStep は最終的な件数を保存します。失敗したステップではコミット済みの件数だけを残します。
func (c *statsCheckpoint) AfterStep(ctx context.Context, se *core.StepExecution) {
	st := c.committed
	if se.Status == core.BatchStatusCompleted {
		st = c.proc.Stats()
	}
	c.final = c.base
	c.final.Merge(st)
	if se.ExecutionContext == nil {
		se.ExecutionContext = core.NewExecutionContext()
	}
	putStats(se.ExecutionContext, c.final)
	se.ExecutionContext.Put(RoundTripFailuresKey, c.proc.RoundTripFailures())
}

func putStats(ec core.ExecutionContext, s fixedwidth.ParseStats) {
	ec.Put(RecordsParsedKey, s.RecordsParsed)
	ec.Put(RecordsFailedKey, s.RecordsFailed)
	ec.Put(FieldErrorsKey, s.FieldErrors)
	ec.Put(PaddedLinesKey, s.PaddedLines)
}

// statsFrom は ExecutionContext から件数を復元します。エラーの一覧は復元しません。
func statsFrom(ec core.ExecutionContext) fixedwidth.ParseStats {
	var s fixedwidth.ParseStats
	s.RecordsParsed, _ = ec.GetInt(RecordsParsedKey)
	s.RecordsFailed, _ = ec.GetInt(RecordsFailedKey)
	s.FieldErrors, _ = ec.GetInt(FieldErrorsKey)
	s.PaddedLines, _ = ec.GetInt(PaddedLinesKey)
	return s
}
