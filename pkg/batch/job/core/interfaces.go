package core

import (
	"context"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
)

// Job は実行可能なバッチジョブです。
type Job interface {
	Run(ctx context.Context, jobExecution *JobExecution, jobParameters JobParameters) error
	JobName() string
	ValidateParameters(params JobParameters) error
}

// Step はジョブ内で実行される単一のステップです。
type Step interface {
	Execute(ctx context.Context, jobExecution *JobExecution, stepExecution *StepExecution) error
	StepName() string
	ID() string
}

// ItemReader はアイテムを 1 件ずつ読み込みます。
// 入力が尽きた場合は io.EOF を返します。
type ItemReader[O any] interface {
	Open(ctx context.Context, ec ExecutionContext) error
	Read(ctx context.Context) (O, error)
	Close(ctx context.Context) error
	// GetExecutionContext は再開のための現在位置を返します。
	GetExecutionContext(ctx context.Context) (ExecutionContext, error)
}

// ItemProcessor はアイテムを変換します。
// ok が false の場合、そのアイテムはフィルタされ書き込まれません。
type ItemProcessor[I, O any] interface {
	Process(ctx context.Context, item I) (out O, ok bool, err error)
}

// ItemWriter はチャンク単位でアイテムを書き込みます。
// tx はデータベースを使わない構成では nil です。
type ItemWriter[I any] interface {
	Open(ctx context.Context, ec ExecutionContext) error
	Write(ctx context.Context, tx database.Tx, items []I) error
	Close(ctx context.Context) error
}

// Tasklet は単一の操作を実行するステップ本体です。
type Tasklet interface {
	Execute(ctx context.Context, stepExecution *StepExecution) (ExitStatus, error)
	Close(ctx context.Context) error
}

// JobExecutionListener はジョブ実行の前後に呼び出されます。
type JobExecutionListener interface {
	BeforeJob(ctx context.Context, jobExecution *JobExecution)
	AfterJob(ctx context.Context, jobExecution *JobExecution)
}

// StepExecutionListener はステップ実行の前後に呼び出されます。
type StepExecutionListener interface {
	BeforeStep(ctx context.Context, stepExecution *StepExecution)
	AfterStep(ctx context.Context, stepExecution *StepExecution)
}

// ChunkListener はチャンク処理の前後に呼び出されます。
type ChunkListener interface {
	BeforeChunk(ctx context.Context, stepExecution *StepExecution)
	AfterChunk(ctx context.Context, stepExecution *StepExecution)
}

// ItemListener はリトライもスキップもできなかったアイテムのエラーを通知されます。
type ItemListener interface {
	OnReadError(ctx context.Context, err error)
	OnProcessError(ctx context.Context, item interface{}, err error)
	OnWriteError(ctx context.Context, items []interface{}, err error)
}

// RetryItemListener はアイテムレベルのリトライを通知されます。
type RetryItemListener interface {
	OnRetryRead(ctx context.Context, err error)
	OnRetryProcess(ctx context.Context, item interface{}, err error)
	OnRetryWrite(ctx context.Context, items []interface{}, err error)
}

// SkipListener はアイテムのスキップを通知されます。
type SkipListener interface {
	OnSkipRead(ctx context.Context, err error)
	OnSkipProcess(ctx context.Context, item interface{}, err error)
	OnSkipWrite(ctx context.Context, item interface{}, err error)
}

// JobParametersIncrementer は JobParameters を次の実行用に更新します。
type JobParametersIncrementer interface {
	GetNext(params JobParameters) JobParameters
}
