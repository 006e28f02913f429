package listener

import (
	"context"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// LoggingItemListener はアイテムの致命的なエラーをログ出力する ItemListener の実装です。
type LoggingItemListener struct{}

// NewLoggingItemListener は新しい LoggingItemListener のインスタンスを作成します。
func NewLoggingItemListener() *LoggingItemListener {
	return &LoggingItemListener{}
}

// OnReadError は読み込みエラー時に呼び出されます。
func (l *LoggingItemListener) OnReadError(ctx context.Context, err error) {
	logger.Errorf("アイテムの読み込み中にエラーが発生しました: %v", err)
}

// OnProcessError は処理エラー時に呼び出されます。
func (l *LoggingItemListener) OnProcessError(ctx context.Context, item interface{}, err error) {
	logger.Errorf("アイテムの処理中にエラーが発生しました (アイテム: %v): %v", item, err)
}

// OnWriteError は書き込みエラー時に呼び出されます。
func (l *LoggingItemListener) OnWriteError(ctx context.Context, items []interface{}, err error) {
	logger.Errorf("アイテムの書き込み中にエラーが発生しました (アイテム数: %d): %v", len(items), err)
}

var _ core.ItemListener = (*LoggingItemListener)(nil)
