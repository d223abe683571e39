package host

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
)

const (
	screenWidth  = 1024
	screenHeight = 768
	lineHeight   = 16
)

var (
	// 背景色 #0087C8
	backgroundColor = color.RGBA{0x00, 0x87, 0xC8, 0xFF}
	// テキスト色（白）
	textColor = color.White
	// ステータス行の色（黄色）
	statusTextColor = color.RGBA{0xFF, 0xFF, 0x00, 0xFF}
	// デフォルトフォント
	defaultFace = text.NewGoXFace(basicfont.Face7x13)
)

// Game はEbitengineのゲームインターフェースを実装する
// Updateごとに論理時計を1ティック進める
type Game struct {
	runner    Runner
	screen    *Screen
	console   *Console
	title     string
	opts      options
	startTime time.Time
	ctx       context.Context

	overlay *ebiten.Image

	mu  sync.RWMutex
	err error
}

// NewGame はrunnerを駆動するGameを作成する
// screenとconsoleはnilでもよい
func NewGame(ctx context.Context, runner Runner, screen *Screen, console *Console, title string, opts ...Option) *Game {
	return &Game{
		runner:    runner,
		screen:    screen,
		console:   console,
		title:     title,
		opts:      buildOptions(opts),
		startTime: time.Now(),
		ctx:       ctx,
	}
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	// タイムアウトチェック
	if g.opts.timeout > 0 && time.Since(g.startTime) >= g.opts.timeout {
		return ebiten.Termination
	}
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}

	// Escキーで終了（1回だけ反応）
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	return g.advance()
}

// advance は論理時計を1ティック進める
// 遅延コマンドのエラーはランタイムがログに出すので、ここではコンテキストのエラーのみ扱う
func (g *Game) advance() error {
	if _, err := g.runner.Advance(g.ctx, g.opts.tickMs()); err != nil {
		g.mu.Lock()
		g.err = err
		g.mu.Unlock()
		return ebiten.Termination
	}
	return nil
}

// Err はゲームループを止めたエラーを返す
func (g *Game) Err() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.err
}

// Status は画面上部に表示するステータス行
func (g *Game) Status() string {
	return fmt.Sprintf("%s  t=%dms  pending=%d", g.title, g.runner.Now(), g.runner.Pending())
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(backgroundColor)

	op := &text.DrawOptions{}
	op.GeoM.Translate(16, 16)
	op.ColorScale.ScaleWithColor(statusTextColor)
	text.Draw(screen, g.Status(), defaultFace, op)

	if g.console != nil {
		lines := g.console.Lines()
		for i, line := range lines {
			op := &text.DrawOptions{}
			op.GeoM.Translate(16, float64(48+i*lineHeight))
			op.ColorScale.ScaleWithColor(textColor)
			text.Draw(screen, line, defaultFace, op)
		}
	}

	// フェードの覆いは最後に描く
	if g.screen != nil {
		overlay := g.screen.Overlay()
		if overlay.A > 0 {
			if g.overlay == nil {
				g.overlay = ebiten.NewImage(screenWidth, screenHeight)
			}
			g.overlay.Fill(overlay)
			screen.DrawImage(g.overlay, nil)
		}
	}
}

// Layout 画面サイズを返す
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// ConsoleLines はウィンドウに収まるコンソールの行数
const ConsoleLines = (screenHeight - 64) / lineHeight

// Run GUIモードでウィンドウを実行
func Run(game *Game) error {
	ebiten.SetWindowSize(screenWidth, screenHeight)
	ebiten.SetWindowTitle(fmt.Sprintf("nwscript - %s", game.title))
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(game.opts.tickRate)

	game.opts.log.Info("Window started", "tps", game.opts.tickRate)
	if err := ebiten.RunGame(game); err != nil {
		return fmt.Errorf("failed to run game: %w", err)
	}
	return game.Err()
}
