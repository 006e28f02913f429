// Package reader は汎用の ItemReader 実装を提供します。
package reader

import (
	"context"
	"io"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

// SliceReader はメモリ上のスライスを順に返す ItemReader です。
// 読み込み位置を ExecutionContext の key に保存し、再開時はその位置から読み込みます。
type SliceReader[T any] struct {
	key   string
	items []T
	pos   int
}

// NewSliceReader は SliceReader を作成します。
func NewSliceReader[T any](key string, items []T) *SliceReader[T] {
	return &SliceReader[T]{key: key, items: items}
}

// Open は ExecutionContext から読み込み位置を復元します。
func (r *SliceReader[T]) Open(ctx context.Context, ec core.ExecutionContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.pos = 0
	if pos, ok := ec.GetInt(r.key); ok && pos >= 0 && pos <= len(r.items) {
		r.pos = pos
	}
	return nil
}

// Read は次のアイテムを返します。終端では io.EOF を返します。
func (r *SliceReader[T]) Read(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if r.pos >= len(r.items) {
		return zero, io.EOF
	}
	item := r.items[r.pos]
	r.pos++
	return item, nil
}

func (r *SliceReader[T]) Close(ctx context.Context) error { return nil }

// GetExecutionContext は現在の読み込み位置を返します。
func (r *SliceReader[T]) GetExecutionContext(ctx context.Context) (core.ExecutionContext, error) {
	ec := core.NewExecutionContext()
	ec.Put(r.key, r.pos)
	return ec, nil
}

var _ core.ItemReader[int] = (*SliceReader[int])(nil)
