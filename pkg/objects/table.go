// Package objects provides the object table scripts refer to through weak
// handles. Handles carry a slot index and a generation, so a handle to a
// destroyed object never resolves again, even after its slot is reused.
package objects

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/zurustar/aurora-nwscript/pkg/logger"
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

const (
	indexBits      = 20
	indexMask      = 1<<indexBits - 1
	generationBits = 10
	generationMask = 1<<generationBits - 1

	// MaxObjects はテーブルが同時に保持できるオブジェクトの最大数
	MaxObjects = indexMask + 1
)

// ハンドルは generation<<20 | index で、generationは1から始まるため
// 0（OBJECT_SELF）、1、0x7F000000（OBJECT_INVALID）と衝突しない
func makeID(index, generation uint32) nwscript.ObjectID {
	return nwscript.ObjectID(generation<<indexBits | index)
}

func splitID(id nwscript.ObjectID) (index, generation uint32) {
	return uint32(id) & indexMask, uint32(id) >> indexBits & generationMask
}

type slot struct {
	generation uint32
	obj        *Object
}

// Table はアリーナ方式のオブジェクトテーブル
// スクリプトはハンドルを保持するだけでオブジェクトを所有しない
type Table struct {
	mu    sync.RWMutex
	slots []slot
	free  []uint32
	order []*Object // 生成順

	onDestroy []func(nwscript.ObjectID)
	log       *slog.Logger
}

// Option はTableの設定オプション
type Option func(*Table)

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(t *Table) {
		t.log = log
	}
}

// NewTable は空のオブジェクトテーブルを作成する
func NewTable(opts ...Option) *Table {
	t := &Table{
		slots: make([]slot, 0, 64),
		log:   logger.Channel(logger.ChannelLogic),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Create は新しいオブジェクトを作成する
func (t *Table) Create(kind Kind, tag string) (*Object, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var index uint32
	if n := len(t.free); n > 0 {
		index = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		if len(t.slots) >= MaxObjects {
			return nil, ErrTableFull
		}
		index = uint32(len(t.slots))
		t.slots = append(t.slots, slot{generation: 1})
	}

	s := &t.slots[index]
	obj := newObject(makeID(index, s.generation), kind, tag)
	s.obj = obj
	t.order = append(t.order, obj)

	t.log.Debug("Object created", "id", obj.id, "kind", kind, "tag", tag)
	return obj, nil
}

// Destroy はオブジェクトを破棄する
// スロットの世代が進むため、破棄されたオブジェクトのハンドルは無効になる
func (t *Table) Destroy(id nwscript.ObjectID) error {
	t.mu.Lock()
	obj, ok := t.get(id)
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("destroy %d: %w", id, ErrObjectNotFound)
	}

	index, _ := splitID(id)
	s := &t.slots[index]
	s.obj = nil
	s.generation++
	if s.generation > generationMask {
		s.generation = 1
	}
	t.free = append(t.free, index)

	for i, o := range t.order {
		if o == obj {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	hooks := slices.Clone(t.onDestroy)
	t.mu.Unlock()

	t.log.Debug("Object destroyed", "id", id)
	for _, hook := range hooks {
		hook(id)
	}
	return nil
}

// OnDestroy はオブジェクト破棄時に呼ばれる関数を登録する
// 遅延コマンドの取り消しなどに使う
func (t *Table) OnDestroy(fn func(nwscript.ObjectID)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDestroy = append(t.onDestroy, fn)
}

func (t *Table) get(id nwscript.ObjectID) (*Object, bool) {
	if !id.Valid() {
		return nil, false
	}
	index, generation := splitID(id)
	if int(index) >= len(t.slots) {
		return nil, false
	}
	s := t.slots[index]
	if s.obj == nil || s.generation != generation {
		return nil, false
	}
	return s.obj, true
}

// Get はハンドルからオブジェクトを取得する
func (t *Table) Get(id nwscript.ObjectID) (*Object, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.get(id)
}

// Lookup はnwscript.ObjectTableの実装
func (t *Table) Lookup(id nwscript.ObjectID) (nwscript.Object, bool) {
	obj, ok := t.Get(id)
	if !ok {
		return nil, false
	}
	return obj, true
}

// FindByTag はタグが一致するnth番目（0始まり、生成順）のオブジェクトを返す
func (t *Table) FindByTag(tag string, nth int) (nwscript.Object, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, obj := range t.order {
		if obj.Tag() != tag {
			continue
		}
		if nth == 0 {
			return obj, true
		}
		nth--
	}
	return nil, false
}

// Objects は生きているオブジェクトを生成順で返す
func (t *Table) Objects() []*Object {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]*Object(nil), t.order...)
}

// Len は生きているオブジェクトの数を返す
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

// ModuleObject は最初に作成されたモジュールオブジェクトを返す
func (t *Table) ModuleObject() nwscript.ObjectID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, obj := range t.order {
		if obj.kind == KindModule {
			return obj.id
		}
	}
	return nwscript.ObjectInvalid
}

// PCs はプレイヤーキャラクターのハンドルを生成順で返す
func (t *Table) PCs() []nwscript.ObjectID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var ids []nwscript.ObjectID
	for _, obj := range t.order {
		if obj.IsPC() {
			ids = append(ids, obj.id)
		}
	}
	return ids
}
