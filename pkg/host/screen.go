package host

import (
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/zurustar/aurora-nwscript/pkg/fileutil"
	"github.com/zurustar/aurora-nwscript/pkg/logger"
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// fade は論理時計上のフェード区間
type fade struct {
	start, end uint64 // 論理時刻（ミリ秒）
	from, to   float32
	color      nwscript.Vector
}

func (f fade) alpha(now uint64) float32 {
	switch {
	case now >= f.end:
		return f.to
	case now <= f.start:
		return f.from
	}
	t := float32(now-f.start) / float32(f.end-f.start)
	return f.from + (f.to-f.from)*t
}

// Screen はフェードとリターン文字列参照を保持する
// 時刻はランタイムの論理時計で測る
type Screen struct {
	mu    sync.Mutex
	clock func() uint64
	fade  fade

	showReturn  bool
	returnRef   int32
	returnQuery int32
}

// NewScreen はclockを論理時計として使うScreenを作成する
func NewScreen(clock func() uint64) *Screen {
	return &Screen{clock: clock}
}

func (s *Screen) setFade(wait, run float32, color nwscript.Vector, from, to float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	start := now + millis(wait)
	s.fade = fade{
		start: start,
		end:   start + millis(run),
		from:  from,
		to:    to,
		color: color,
	}
}

func millis(seconds float32) uint64 {
	ms := float64(seconds) * 1000
	switch {
	case ms >= math.MaxUint32:
		return math.MaxUint32
	case ms > 0:
		return uint64(ms)
	}
	return 0
}

// FadeOut は wait 秒後から run 秒かけて画面を color で覆う
func (s *Screen) FadeOut(wait, run float32, color nwscript.Vector) {
	s.setFade(wait, run, color, s.Alpha(), 1)
}

// FadeIn は wait 秒後から run 秒かけて覆いを取り除く
func (s *Screen) FadeIn(wait, run float32, color nwscript.Vector) {
	s.setFade(wait, run, color, s.Alpha(), 0)
}

// Alpha は現在の覆いの不透明度（0〜1）
func (s *Screen) Alpha() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fade.alpha(s.clock())
}

// Overlay は現在の覆いの色を返す（乗算済みアルファ）
func (s *Screen) Overlay() color.RGBA {
	s.mu.Lock()
	f := s.fade
	now := s.clock()
	s.mu.Unlock()

	a := f.alpha(now)
	return color.RGBA{
		R: channel(f.color[0] * a),
		G: channel(f.color[1] * a),
		B: channel(f.color[2] * a),
		A: channel(a),
	}
}

func channel(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 0xFF
	}
	return uint8(v*0xFF + 0.5)
}

func (s *Screen) SetReturnStrref(show bool, strRef, queryStrRef int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showReturn = show
	s.returnRef = strRef
	s.returnQuery = queryStrRef
}

// ReturnStrref は「戻る」ボタンの設定を返す
func (s *Screen) ReturnStrref() (show bool, strRef, queryStrRef int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showReturn, s.returnRef, s.returnQuery
}

type areaMusic struct {
	day, night int32
	playing    bool
}

// Jukebox はエリアごとのBGM設定を保持する
// 実際の再生は行わない
type Jukebox struct {
	mu    sync.Mutex
	areas map[nwscript.ObjectID]*areaMusic
	log   *slog.Logger
}

// NewJukebox は空のJukeboxを作成する
func NewJukebox() *Jukebox {
	return &Jukebox{
		areas: make(map[nwscript.ObjectID]*areaMusic),
		log:   logger.Channel(logger.ChannelHost),
	}
}

func (j *Jukebox) area(id nwscript.ObjectID) *areaMusic {
	a, ok := j.areas[id]
	if !ok {
		a = &areaMusic{}
		j.areas[id] = a
	}
	return a
}

func (j *Jukebox) Play(area nwscript.ObjectID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	a := j.area(area)
	a.playing = true
	j.log.Debug("Music started", "area", area, "day", a.day, "night", a.night)
}

func (j *Jukebox) Stop(area nwscript.ObjectID) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.area(area).playing = false
	j.log.Debug("Music stopped", "area", area)
}

func (j *Jukebox) ChangeDay(area nwscript.ObjectID, track int32) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.area(area).day = track
}

func (j *Jukebox) ChangeNight(area nwscript.ObjectID, track int32) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.area(area).night = track
}

func (j *Jukebox) DayTrack(area nwscript.ObjectID) int32 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.area(area).day
}

func (j *Jukebox) NightTrack(area nwscript.ObjectID) int32 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.area(area).night
}

// Playing はエリアのBGMが再生中かどうか
func (j *Jukebox) Playing(area nwscript.ObjectID) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	a, ok := j.areas[area]
	return ok && a.playing
}

// MovieExt はムービーファイルの拡張子
const MovieExt = ".bik"

// Movies はムービーの再生要求を記録する
// 検索パスが設定されている場合、ファイルが見つからなければエラーになる
type Movies struct {
	mu     sync.Mutex
	search *fileutil.SearchPath
	played []string
	log    *slog.Logger
}

// NewMovies はsearchからムービーを探すMoviesを作成する（nilなら存在確認をしない）
func NewMovies(search *fileutil.SearchPath) *Movies {
	return &Movies{
		search: search,
		log:    logger.Channel(logger.ChannelHost),
	}
}

func (m *Movies) PlayMovie(name string) error {
	if name == "" {
		return fmt.Errorf("empty movie name")
	}
	if m.search != nil && m.search.Len() > 0 {
		root, file, err := m.search.Find(fileutil.ResourceFile(name, MovieExt))
		if err != nil {
			return fmt.Errorf("movie %q: %w", name, err)
		}
		m.log.Info("Playing movie", "movie", name, "root", root, "file", file)
	} else {
		m.log.Info("Playing movie", "movie", name)
	}

	m.mu.Lock()
	m.played = append(m.played, strings.ToLower(name))
	m.mu.Unlock()
	return nil
}

// Played は再生したムービー名を順に返す
func (m *Movies) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.played...)
}

// Console はスクリプトのコンソール出力の直近の行を保持するio.Writer
type Console struct {
	mu      sync.Mutex
	lines   []string
	partial string
	max     int
}

// NewConsole は最大max行を保持するConsoleを作成する
func NewConsole(max int) *Console {
	if max < 1 {
		max = 1
	}
	return &Console{max: max}
}

func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	text := c.partial + string(p)
	parts := strings.Split(text, "\n")
	c.partial = parts[len(parts)-1]
	for _, line := range parts[:len(parts)-1] {
		c.lines = append(c.lines, strings.TrimRight(line, "\r"))
	}
	if over := len(c.lines) - c.max; over > 0 {
		c.lines = append(c.lines[:0], c.lines[over:]...)
	}
	return len(p), nil
}

// Lines は保持している行を古い順に返す
func (c *Console) Lines() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lines...)
}
