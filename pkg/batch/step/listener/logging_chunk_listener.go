package listener

import (
	"context"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// LoggingChunkListener はチャンク処理の開始と完了をデバッグログに出力します。
type LoggingChunkListener struct{}

// NewLoggingChunkListener は新しい LoggingChunkListener のインスタンスを作成します。
func NewLoggingChunkListener() *LoggingChunkListener {
	return &LoggingChunkListener{}
}

// BeforeChunk はチャンク処理が開始される直前に呼び出されます。
func (l *LoggingChunkListener) BeforeChunk(ctx context.Context, stepExecution *core.StepExecution) {
	logger.Debugf("ステップ '%s' のチャンク処理を開始します。(読込済み: %d)", stepExecution.StepName, stepExecution.ReadCount)
}

// AfterChunk はチャンクのコミット後に呼び出されます。
func (l *LoggingChunkListener) AfterChunk(ctx context.Context, stepExecution *core.StepExecution) {
	logger.Debugf("ステップ '%s' のチャンクをコミットしました。(書込済み: %d, コミット: %d)",
		stepExecution.StepName, stepExecution.WriteCount, stepExecution.CommitCount)
}

var _ core.ChunkListener = (*LoggingChunkListener)(nil)
