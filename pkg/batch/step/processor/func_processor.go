// Package processor は汎用の ItemProcessor 実装を提供します。
package processor

import (
	"context"

	core "github.com/Vignesh4110/finance-modernization/pkg/batch/job/core"
)

// Func は関数を ItemProcessor として扱うアダプタです。
type Func[I, O any] func(ctx context.Context, item I) (O, bool, error)

// Process は f を呼び出します。
func (f Func[I, O]) Process(ctx context.Context, item I) (O, bool, error) {
	return f(ctx, item)
}

// Chain は 2 つの ItemProcessor を順に適用します。first がフィルタしたアイテムは second に渡しません。
func Chain[A, B, C any](first core.ItemProcessor[A, B], second core.ItemProcessor[B, C]) core.ItemProcessor[A, C] {
	return Func[A, C](func(ctx context.Context, item A) (C, bool, error) {
		var zero C
		mid, ok, err := first.Process(ctx, item)
		if err != nil || !ok {
			return zero, false, err
		}
		return second.Process(ctx, mid)
	})
}

var _ core.ItemProcessor[int, int] = Func[int, int](nil)
