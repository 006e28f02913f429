package fixedwidth

import (
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"sync"
)

// Registry はレイアウト名からレイアウトを引く表です。
// 起動時に一度だけ構築し、デコーダやバッチに明示的に渡します。
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]*RecordLayout
	ordered []*RecordLayout
}

// NewRegistry は空の Registry を作成します。
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*RecordLayout)}
}

// registryKey は大文字小文字を区別せず、ディレクトリと拡張子を取り除いたキーを返します。
func registryKey(name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToUpper(base)
}

// Register はレイアウトを検査して登録します。同名のレイアウトは登録できません。
func (r *Registry) Register(layout RecordLayout) error {
	if err := layout.Validate(); err != nil {
		return err
	}
	key := registryKey(layout.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byName[key]; exists {
		return fmt.Errorf("%w: layout %s is already registered", ErrInvalidLayout, layout.Name)
	}
	l := clone(&layout)
	r.byName[key] = l
	r.ordered = append(r.ordered, l)
	return nil
}

// clone は Fields を含めてレイアウトを複製します。
func clone(l *RecordLayout) *RecordLayout {
	c := *l
	c.Fields = append([]FieldSpec(nil), l.Fields...)
	return &c
}

// MustRegister は Register が失敗した場合に panic します。組み込みカタログの構築に使います。
func (r *Registry) MustRegister(layouts ...RecordLayout) *Registry {
	for _, l := range layouts {
		if err := r.Register(l); err != nil {
			panic(err)
		}
	}
	return r
}

// Get はレイアウトを取得します。"cusmas.txt" や "CUSMAS" のどちらでも引けます。
// 返すのは複製なので、呼び出し側が変更しても登録済みのレイアウトには影響しません。
func (r *Registry) Get(name string) (*RecordLayout, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.byName[registryKey(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
	return clone(l), nil
}

// Len は登録済みレイアウト数です。
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.ordered)
}

func (r *Registry) snapshot() []*RecordLayout {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*RecordLayout(nil), r.ordered...)
}

// Names は登録順にレイアウト名を返します。何度でも反復できます。
func (r *Registry) Names() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, l := range r.snapshot() {
			if !yield(l.Name) {
				return
			}
		}
	}
}

// All は登録順にレイアウトの複製を返します。何度でも反復できます。
func (r *Registry) All() iter.Seq[*RecordLayout] {
	return func(yield func(*RecordLayout) bool) {
		for _, l := range r.snapshot() {
			if !yield(clone(l)) {
				return
			}
		}
	}
}
