// Package fileutil finds game resources in directory trees whose file name
// case does not match the resource names scripts use.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strings"
)

// ErrNotFound はどのルートにもリソースが見つからない場合のエラー
var ErrNotFound = errors.New("resource not found")

// FindFold はdir内のnameに一致するファイルを大文字小文字を無視して検索し、
// fsys内での実際のパスを返す
func FindFold(fsys fs.FS, dir, name string) (string, error) {
	// まず直接アクセスを試みる
	direct := path.Join(dir, name)
	if info, err := fs.Stat(fsys, direct); err == nil && !info.IsDir() {
		return direct, nil
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), name) {
			return path.Join(dir, entry.Name()), nil
		}
	}
	return "", fmt.Errorf("%s in %s: %w", name, dir, ErrNotFound)
}

// ResourceFile はリソース名と拡張子からファイル名を作る
// 拡張子が既に付いている場合はそのまま返す
func ResourceFile(name, ext string) string {
	if strings.EqualFold(path.Ext(name), ext) {
		return name
	}
	return name + ext
}

// SearchPath は複数のルートを順番に検索する
// 先に追加したルートが優先される
type SearchPath struct {
	roots []root
}

type root struct {
	name string
	fsys fs.FS
}

// NewSearchPath はディレクトリのリストからSearchPathを作成する
func NewSearchPath(dirs ...string) *SearchPath {
	sp := &SearchPath{}
	for _, dir := range dirs {
		sp.Add(dir, os.DirFS(dir))
	}
	return sp
}

// Add はルートを追加する（embed.FSやfstest.MapFSも使える）
func (sp *SearchPath) Add(name string, fsys fs.FS) {
	sp.roots = append(sp.roots, root{name: name, fsys: fsys})
}

// Len はルートの数を返す
func (sp *SearchPath) Len() int {
	return len(sp.roots)
}

// Find はnameを各ルートの最上位で検索し、見つかったルート名とパスを返す
func (sp *SearchPath) Find(name string) (rootName, file string, err error) {
	for _, r := range sp.roots {
		file, err := FindFold(r.fsys, ".", name)
		if err == nil {
			return r.name, file, nil
		}
	}
	return "", "", fmt.Errorf("%s: %w", name, ErrNotFound)
}

// ReadFile はnameを検索して内容を読み込む
func (sp *SearchPath) ReadFile(name string) ([]byte, error) {
	for _, r := range sp.roots {
		file, err := FindFold(r.fsys, ".", name)
		if err != nil {
			continue
		}
		data, err := fs.ReadFile(r.fsys, file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s from %s: %w", file, r.name, err)
		}
		return data, nil
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
}
