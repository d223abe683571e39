// Package host はスクリプトランタイムを駆動するゲームループを提供する
// ヘッドレスのティッカーとEbitengineのウィンドウの2種類がある
package host

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/zurustar/aurora-nwscript/pkg/logger"
)

// DefaultTickRate は1秒あたりのティック数のデフォルト値
const DefaultTickRate = 60

// Runner はホストが駆動するランタイム
type Runner interface {
	Advance(ctx context.Context, deltaMs uint32) (int, error)
	Pending() int
	Now() uint64
}

type options struct {
	tickRate     int
	timeout      time.Duration
	realtime     bool
	stopWhenIdle bool
	log          *slog.Logger
}

// Option はループとウィンドウの設定を行う関数オプション
type Option func(*options)

// WithTickRate は1秒あたりのティック数を設定する
func WithTickRate(tps int) Option {
	return func(o *options) {
		if tps > 0 {
			o.tickRate = tps
		}
	}
}

// WithTimeout は実時間でのタイムアウトを設定する（0は無制限）
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithRealtime はティックを実時間に合わせるかどうかを設定する
// falseの場合、論理時計はできるだけ速く進む
func WithRealtime(v bool) Option {
	return func(o *options) {
		o.realtime = v
	}
}

// WithStopWhenIdle は遅延コマンドがなくなったらループを終了するかどうかを設定する
func WithStopWhenIdle(v bool) Option {
	return func(o *options) {
		o.stopWhenIdle = v
	}
}

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		o.log = log
	}
}

func buildOptions(opts []Option) options {
	o := options{
		tickRate:     DefaultTickRate,
		realtime:     true,
		stopWhenIdle: true,
		log:          logger.Channel(logger.ChannelHost),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// tickMs は1ティックの論理時間（ミリ秒、最低1）
func (o options) tickMs() uint32 {
	ms := 1000 / o.tickRate
	if ms < 1 {
		ms = 1
	}
	return uint32(ms)
}

// Loop はヘッドレスのゲームループ
type Loop struct {
	runner Runner
	opts   options
	ticks  int
}

// NewLoop はrunnerを駆動するヘッドレスループを作成する
func NewLoop(runner Runner, opts ...Option) *Loop {
	return &Loop{
		runner: runner,
		opts:   buildOptions(opts),
	}
}

// TickMs は1ティックで進める論理時間を返す
func (l *Loop) TickMs() uint32 {
	return l.opts.tickMs()
}

// Ticks はこれまでに実行したティック数を返す
func (l *Loop) Ticks() int {
	return l.ticks
}

// Tick は論理時計を1ティック進める
func (l *Loop) Tick(ctx context.Context) error {
	l.ticks++
	ran, err := l.runner.Advance(ctx, l.TickMs())
	if ran > 0 {
		l.opts.log.Debug("Tick", "now", l.runner.Now(), "resumed", ran, "pending", l.runner.Pending())
	}
	return err
}

// Run はタイムアウト、コンテキストのキャンセル、またはアイドル状態になるまで
// ティックを繰り返す。タイムアウトによる終了はエラーにならない
func (l *Loop) Run(ctx context.Context) error {
	runCtx := ctx
	if l.opts.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, l.opts.timeout)
		defer cancel()
	}

	l.opts.log.Info("Host loop started", "tps", l.opts.tickRate, "realtime", l.opts.realtime, "pending", l.runner.Pending())

	var ticker *time.Ticker
	if l.opts.realtime {
		ticker = time.NewTicker(time.Duration(l.TickMs()) * time.Millisecond)
		defer ticker.Stop()
	}

	for {
		if l.opts.stopWhenIdle && l.runner.Pending() == 0 {
			l.opts.log.Info("Host loop idle", "now", l.runner.Now(), "ticks", l.ticks)
			return nil
		}

		if ticker != nil {
			select {
			case <-runCtx.Done():
				return l.finish(ctx, runCtx.Err())
			case <-ticker.C:
			}
		} else if err := runCtx.Err(); err != nil {
			return l.finish(ctx, err)
		}

		if err := l.Tick(runCtx); err != nil {
			return l.finish(ctx, err)
		}
	}
}

// finish はタイムアウトを正常終了として扱う
func (l *Loop) finish(parent context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && parent.Err() == nil {
		l.opts.log.Info("Host loop timed out", "timeout", l.opts.timeout, "now", l.runner.Now())
		return nil
	}
	return err
}
