package objects

import "errors"

// オブジェクト関連のエラー定義
var (
	// ErrObjectNotFound はオブジェクトが見つからない（破棄済みを含む）場合のエラー
	ErrObjectNotFound = errors.New("object not found")

	// ErrTableFull はスロットを使い切った場合のエラー
	ErrTableFull = errors.New("object table full")
)
