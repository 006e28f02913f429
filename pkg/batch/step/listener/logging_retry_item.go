package listener

import (
	"context"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// LoggingRetryItemListener はアイテムレベルのリトライをステップ名付きでログに出力します。
type LoggingRetryItemListener struct {
	stepName string
}

func NewLoggingRetryItemListener(stepName string) *LoggingRetryItemListener {
	return &LoggingRetryItemListener{stepName: stepName}
}

func (l *LoggingRetryItemListener) OnRetryRead(ctx context.Context, err error) {
	logger.Warnf("[%s] 読み込みを再試行します: %v", l.stepName, err)
}

func (l *LoggingRetryItemListener) OnRetryProcess(ctx context.Context, item interface{}, err error) {
	logger.Warnf("[%s] %s の処理を再試行します: %v", l.stepName, describe(item), err)
}

// OnRetryWrite はチャンクがロールバックされ、新しいトランザクションで書き直されるときに呼び出されます。
func (l *LoggingRetryItemListener) OnRetryWrite(ctx context.Context, items []interface{}, err error) {
	logger.Warnf("[%s] %d 件のチャンクをロールバックして再試行します: %v", l.stepName, len(items), err)
}

var _ core.RetryItemListener = (*LoggingRetryItemListener)(nil)
