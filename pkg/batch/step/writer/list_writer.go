package writer

import (
	"context"
	"sync"

	"github.com/Vignesh4110/finance-modernization/pkg/batch/database"
	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

// ListWriter は書き込まれたアイテムをメモリに保持する ItemWriter です。
type ListWriter[T any] struct {
	mu    sync.Mutex
	items []T
}

func NewListWriter[T any]() *ListWriter[T] {
	return &ListWriter[T]{}
}

func (w *ListWriter[T]) Open(ctx context.Context, ec core.ExecutionContext) error { return nil }

// Write は items を追加します。tx は使用しません。
func (w *ListWriter[T]) Write(ctx context.Context, tx database.Tx, items []T) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, items...)
	return nil
}

func (w *ListWriter[T]) Close(ctx context.Context) error { return nil }

// Items はこれまでに書き込まれたアイテムのコピーを返します。
func (w *ListWriter[T]) Items() []T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]T(nil), w.items...)
}

var _ core.ItemWriter[int] = (*ListWriter[int])(nil)
