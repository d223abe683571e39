package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var globalLogger *slog.Logger

// デバッグチャンネル名
const (
	ChannelScripts = "scripts" // スクリプトの実行
	ChannelEngine  = "engine"  // エンジン関数の呼び出し
	ChannelLogic   = "logic"   // ゲームロジック（遅延コマンドなど）
	ChannelHost    = "host"    // ホストのゲームループ
)

// ChannelAll はすべてのチャンネルを指す特別な名前
const ChannelAll = "all"

var (
	channelsMu sync.RWMutex
	channels   = map[string]bool{}
)

// ParseLevel ログレベル文字列をslog.Levelに変換
func ParseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}

// InitLogger ログレベルに応じてslogを初期化
func InitLogger(level string) error {
	return InitLoggerWithWriter(level, os.Stdout)
}

// InitLoggerWithWriter 出力先を指定してslogを初期化
func InitLoggerWithWriter(level string, w io.Writer) error {
	slogLevel, err := ParseLevel(level)
	if err != nil {
		return err
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slogLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)

	return nil
}

// GetLogger グローバルロガーを取得
func GetLogger() *slog.Logger {
	if globalLogger == nil {
		// デフォルトロガーを返す
		return slog.Default()
	}
	return globalLogger
}

// EnableChannels デバッグチャンネルを有効化する
// "all" を指定するとすべてのチャンネルが有効になる
func EnableChannels(names ...string) {
	channelsMu.Lock()
	defer channelsMu.Unlock()
	for _, name := range names {
		name = strings.TrimSpace(strings.ToLower(name))
		if name != "" {
			channels[name] = true
		}
	}
}

// DisableChannels デバッグチャンネルを無効化する
func DisableChannels(names ...string) {
	channelsMu.Lock()
	defer channelsMu.Unlock()
	for _, name := range names {
		delete(channels, strings.TrimSpace(strings.ToLower(name)))
	}
}

// ChannelEnabled チャンネルのデバッグ出力が有効かどうか
func ChannelEnabled(name string) bool {
	channelsMu.RLock()
	defer channelsMu.RUnlock()
	return channels[ChannelAll] || channels[name]
}

// Channel デバッグチャンネル付きのロガーを取得
// チャンネルが無効な場合、Debugレベルのログは出力されない
// 出力先は呼び出し時点ではなくログ出力時点のグローバルロガーになる
func Channel(name string) *slog.Logger {
	return slog.New(&channelHandler{channel: name}).With("channel", name)
}

// channelHandler グローバルロガーに委譲しつつチャンネルでDebugを絞るハンドラー
type channelHandler struct {
	channel string
	ops     []func(slog.Handler) slog.Handler
}

func (h *channelHandler) base() slog.Handler {
	handler := GetLogger().Handler()
	for _, op := range h.ops {
		handler = op(handler)
	}
	return handler
}

func (h *channelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < slog.LevelInfo && !ChannelEnabled(h.channel) {
		return false
	}
	return GetLogger().Handler().Enabled(ctx, level)
}

func (h *channelHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.base().Handle(ctx, r)
}

func (h *channelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(base slog.Handler) slog.Handler { return base.WithAttrs(attrs) })
}

func (h *channelHandler) WithGroup(name string) slog.Handler {
	return h.with(func(base slog.Handler) slog.Handler { return base.WithGroup(name) })
}

func (h *channelHandler) with(op func(slog.Handler) slog.Handler) slog.Handler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &channelHandler{channel: h.channel, ops: append(ops, op)}
}
