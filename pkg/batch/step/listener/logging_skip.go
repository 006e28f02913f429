package listener

import (
	"context"
	"fmt"
	"sync/atomic"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// LoggingSkipListener はスキップされたアイテムをステップ名付きでログに出力し、件数を数えます。
// アイテムは fmt.Stringer を実装していればその表現で、そうでなければ型名で出力します。
type LoggingSkipListener struct {
	stepName string
	skipped  atomic.Int64
}

func NewLoggingSkipListener(stepName string) *LoggingSkipListener {
	return &LoggingSkipListener{stepName: stepName}
}

func (l *LoggingSkipListener) OnSkipRead(ctx context.Context, err error) {
	l.skipped.Add(1)
	logger.Warnf("[%s] 読み込みをスキップしました: %v", l.stepName, err)
}

func (l *LoggingSkipListener) OnSkipProcess(ctx context.Context, item interface{}, err error) {
	l.skipped.Add(1)
	logger.Warnf("[%s] %s の処理をスキップしました: %v", l.stepName, describe(item), err)
}

func (l *LoggingSkipListener) OnSkipWrite(ctx context.Context, item interface{}, err error) {
	l.skipped.Add(1)
	logger.Warnf("[%s] %s の書き込みをスキップしました: %v", l.stepName, describe(item), err)
}

// Skipped は通知されたスキップの件数です。
func (l *LoggingSkipListener) Skipped() int64 {
	return l.skipped.Load()
}

// describe はログ向けにアイテムを短く表現します。
func describe(item interface{}) string {
	if s, ok := item.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", item)
}

var _ core.SkipListener = (*LoggingSkipListener)(nil)
