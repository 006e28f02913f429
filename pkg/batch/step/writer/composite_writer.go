// Package writer は汎用の ItemWriter 実装を提供します。
package writer

import (
	"context"
	"errors"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
	logger "github.com/Vignesh4110/finance-modernization/pkg/batch/util/logger"
)

// CompositeWriter は同じチャンクを複数の ItemWriter に順に書き込みます。
// いずれかが失敗した時点でエラーを返し、チャンクのトランザクションはロールバックされます。
type CompositeWriter[T any] struct {
	writers []core.ItemWriter[T]
}

// NewCompositeWriter は CompositeWriter を作成します。
func NewCompositeWriter[T any](writers ...core.ItemWriter[T]) *CompositeWriter[T] {
	return &CompositeWriter[T]{writers: writers}
}

// Open は全ての writer を開きます。途中で失敗した場合は開いた writer を閉じます。
func (w *CompositeWriter[T]) Open(ctx context.Context, ec core.ExecutionContext) error {
	for i, wr := range w.writers {
		if err := wr.Open(ctx, ec); err != nil {
			for _, opened := range w.writers[:i] {
				if closeErr := opened.Close(ctx); closeErr != nil {
					logger.Warnf("Writer のクローズに失敗しました: %v", closeErr)
				}
			}
			return err
		}
	}
	return nil
}

// Write は items を全ての writer に書き込みます。
func (w *CompositeWriter[T]) Write(ctx context.Context, tx database.Tx, items []T) error {
	for _, wr := range w.writers {
		if err := wr.Write(ctx, tx, items); err != nil {
			return err
		}
	}
	return nil
}

// Close は全ての writer を閉じ、エラーをまとめて返します。
func (w *CompositeWriter[T]) Close(ctx context.Context) error {
	var errs []error
	for _, wr := range w.writers {
		if err := wr.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ core.ItemWriter[int] = (*CompositeWriter[int])(nil)
