package listener

import (
	"context"
	"time"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// LoggingStepExecutionListener はステップの開始と終了、件数をログに出力します。
type LoggingStepExecutionListener struct{}

func NewLoggingStepExecutionListener() *LoggingStepExecutionListener {
	return &LoggingStepExecutionListener{}
}

// BeforeStep はステップ開始時に呼び出されます。
func (l *LoggingStepExecutionListener) BeforeStep(ctx context.Context, se *core.StepExecution) {
	logger.Infof("ステップ '%s' を開始します。", se.StepName)
}

// AfterStep はステップ終了時に呼び出されます。
func (l *LoggingStepExecutionListener) AfterStep(ctx context.Context, se *core.StepExecution) {
	var elapsed time.Duration
	if !se.StartTime.IsZero() {
		elapsed = time.Since(se.StartTime).Round(time.Millisecond)
	}
	logger.Infof("ステップ '%s' が終了しました。ステータス: %s, 読込: %d, 書込: %d, フィルタ: %d, スキップ: %d, 所要時間: %s",
		se.StepName, se.Status, se.ReadCount, se.WriteCount, se.FilterCount, se.SkipCount(), elapsed)
}

var _ core.StepExecutionListener = (*LoggingStepExecutionListener)(nil)
