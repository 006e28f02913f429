package listener

import (
	"context"
	"time"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// LoggingJobListener はジョブの開始と終了をログに出力します。
type LoggingJobListener struct{}

func NewLoggingJobListener() *LoggingJobListener {
	return &LoggingJobListener{}
}

// BeforeJob はジョブ開始時に呼び出されます。
func (l *LoggingJobListener) BeforeJob(ctx context.Context, je *core.JobExecution) {
	logger.Infof("Job '%s' (Execution ID: %s) の実行を開始します。", je.JobName, je.ID)
}

// AfterJob はジョブ終了時に呼び出されます。失敗時は記録されたエラーを全て出力します。
func (l *LoggingJobListener) AfterJob(ctx context.Context, je *core.JobExecution) {
	elapsed := time.Duration(0)
	if !je.StartTime.IsZero() && !je.EndTime.IsZero() {
		elapsed = je.EndTime.Sub(je.StartTime).Round(time.Millisecond)
	}
	if je.Status == core.BatchStatusCompleted {
		logger.Infof("Job '%s' (Execution ID: %s) が正常に完了しました。所要時間: %s", je.JobName, je.ID, elapsed)
		return
	}
	logger.Errorf("Job '%s' (Execution ID: %s) がステータス %s で終了しました。所要時間: %s", je.JobName, je.ID, je.Status, elapsed)
	for _, f := range je.Failures {
		logger.Errorf("  - %v", f)
	}
}

var _ core.JobExecutionListener = (*LoggingJobListener)(nil)
