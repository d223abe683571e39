// Package script loads compiled NWScript (NCS) resources by name.
package script

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/zurustar/aurora-nwscript/pkg/fileutil"
	"github.com/zurustar/aurora-nwscript/pkg/logger"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
)

// Extension はコンパイル済みスクリプトの拡張子
const Extension = ".ncs"

// MaxNameLength はリソース名（ResRef）の最大長
const MaxNameLength = 16

// ErrInvalidName はリソース名として使えない名前の場合のエラー
var ErrInvalidName = errors.New("invalid script name")

// Loader はNCSファイルの読み込みとキャッシュを行う
// リソース名は大文字小文字を区別しない
type Loader struct {
	search *fileutil.SearchPath

	mu    sync.Mutex
	cache map[string]*opcode.Program
	log   *slog.Logger
}

// NewLoader Loaderを作成
func NewLoader(search *fileutil.SearchPath) *Loader {
	return &Loader{
		search: search,
		cache:  make(map[string]*opcode.Program),
		log:    logger.Channel(logger.ChannelScripts),
	}
}

// Load はスクリプトを読み込んでデコードする
// 一度読み込んだスクリプトはキャッシュされる
func (l *Loader) Load(name string) (*opcode.Program, error) {
	key, err := resRef(name)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	prog, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return prog, nil
	}

	data, err := l.search.ReadFile(fileutil.ResourceFile(key, Extension))
	if err != nil {
		return nil, err
	}
	prog, err = opcode.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	l.mu.Lock()
	if cached, ok := l.cache[key]; ok {
		prog = cached
	} else {
		l.cache[key] = prog
	}
	l.mu.Unlock()

	l.log.Debug("Script loaded", "script", key, "instructions", prog.Len(), "size", prog.Size)
	return prog, nil
}

// Invalidate はスクリプトのキャッシュを破棄する
func (l *Loader) Invalidate(name string) {
	key, err := resRef(name)
	if err != nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.cache, key)
}

// Cached はキャッシュ済みのスクリプト名をソートして返す
func (l *Loader) Cached() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.cache))
	for name := range l.cache {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resRef はスクリプト名を正規化する（小文字、拡張子なし）
func resRef(name string) (string, error) {
	key := strings.ToLower(name)
	if strings.HasSuffix(key, Extension) {
		key = strings.TrimSuffix(key, Extension)
	}
	if key == "" || len(key) > MaxNameLength || strings.ContainsAny(key, `/\.`) {
		return "", fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return key, nil
}
