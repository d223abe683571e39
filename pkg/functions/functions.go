// Package functions implements the engine functions scripts call through
// ACTION. The implementations are shared by every supported title; the
// kotor and nwn subpackages bind them to each title's routine numbers.
//
// Engine functions reach the game only through the narrow collaborator
// interfaces declared here, and reach objects through capability
// interfaces the object type may or may not implement.
package functions

import (
	"context"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/zurustar/aurora-nwscript/pkg/logger"
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// Scheduler runs and defers scripts.
type Scheduler interface {
	DelayScript(script string, state nwscript.ScriptState, target, triggerer nwscript.ObjectID, delayMs uint32) error
	ExecuteScript(ctx context.Context, name string, caller, triggerer nwscript.ObjectID) error
}

// TalkTable resolves string references.
type TalkTable interface {
	String(strRef uint32, feminine bool) (string, bool)
}

// TagFinder is implemented by object tables that can search by tag.
type TagFinder interface {
	FindByTag(tag string, nth int) (nwscript.Object, bool)
}

// Module exposes the running module.
type Module interface {
	ModuleObject() nwscript.ObjectID
	PCs() []nwscript.ObjectID
}

// Screen receives full-screen presentation requests.
type Screen interface {
	FadeOut(wait, run float32, color nwscript.Vector)
	FadeIn(wait, run float32, color nwscript.Vector)
	SetReturnStrref(show bool, strRef, queryStrRef int32)
}

// Music controls the background music of areas.
type Music interface {
	Play(area nwscript.ObjectID)
	Stop(area nwscript.ObjectID)
	ChangeDay(area nwscript.ObjectID, track int32)
	ChangeNight(area nwscript.ObjectID, track int32)
	DayTrack(area nwscript.ObjectID) int32
	NightTrack(area nwscript.ObjectID) int32
}

// MoviePlayer plays full-screen movies.
type MoviePlayer interface {
	PlayMovie(name string) error
}

// Object capabilities. Engine functions type-assert for them and fall back
// to the documented default when an object lacks one.
type (
	HitPoints interface {
		CurrentHitPoints() int32
		MaxHitPoints() int32
		SetMaxHitPoints(hp int32)
		MinOneHP() bool
		SetMinOneHP(v bool)
	}

	Situated interface {
		Locked() bool
		SetLocked(v bool)
		IsOpen() bool
		LastOpenedBy() nwscript.ObjectID
		LastClosedBy() nwscript.ObjectID
		LastUsedBy() nwscript.ObjectID
	}

	Creature interface {
		Gender() int32
		Race() int32
		SubRace() int32
		ClassByPosition(pos int) (class, level int32, ok bool)
		LevelByClass(class int32) int32
	}

	Player interface {
		IsPC() bool
	}

	Locals interface {
		Local(name string, kind nwscript.Kind) nwscript.Variable
		SetLocal(name string, v nwscript.Variable)
	}

	Speaker interface {
		Speak(text string, volume int32)
		SpeakOneLiner(dialog string, tokenTarget nwscript.ObjectID)
	}

	MessageReceiver interface {
		ReceiveMessage(text string)
	}
)

// Functions holds the collaborators engine functions work against.
type Functions struct {
	objects   nwscript.ObjectTable
	scheduler Scheduler
	talk      TalkTable
	module    Module
	screen    Screen
	music     Music
	movies    MoviePlayer
	console   io.Writer
	clock     func() time.Time
	log       *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	pcMu     sync.Mutex
	pcCursor int
}

// Option is a functional option for configuring Functions.
type Option func(*Functions)

// WithObjects sets the object table.
func WithObjects(objects nwscript.ObjectTable) Option {
	return func(f *Functions) { f.objects = objects }
}

// WithScheduler sets the script scheduler, usually the vm.Runtime.
func WithScheduler(s Scheduler) Option {
	return func(f *Functions) { f.scheduler = s }
}

// WithTalkTable sets the talk table.
func WithTalkTable(t TalkTable) Option {
	return func(f *Functions) { f.talk = t }
}

// WithModule sets the module.
func WithModule(m Module) Option {
	return func(f *Functions) { f.module = m }
}

// WithScreen sets the screen.
func WithScreen(s Screen) Option {
	return func(f *Functions) { f.screen = s }
}

// WithMusic sets the music controller.
func WithMusic(m Music) Option {
	return func(f *Functions) { f.music = m }
}

// WithMovies sets the movie player.
func WithMovies(m MoviePlayer) Option {
	return func(f *Functions) { f.movies = m }
}

// WithConsole sets where the Print functions write. Without a console they
// only log.
func WithConsole(w io.Writer) Option {
	return func(f *Functions) { f.console = w }
}

// WithClock sets the wall clock used for timestamped log entries.
func WithClock(clock func() time.Time) Option {
	return func(f *Functions) { f.clock = clock }
}

// WithSeed makes the dice deterministic.
func WithSeed(seed uint64) Option {
	return func(f *Functions) { f.rng = rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)) }
}

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(f *Functions) { f.log = log }
}

// New creates the engine function implementations. Missing collaborators
// make the functions that need them behave as if nothing was found.
func New(opts ...Option) *Functions {
	f := &Functions{
		clock: time.Now,
		log:   logger.Channel(logger.ChannelEngine),
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.rng == nil {
		f.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), rand.Uint64()))
	}
	return f
}

// lookup resolves a handle to a live object.
func (f *Functions) lookup(id nwscript.ObjectID) (nwscript.Object, bool) {
	if f.objects == nil || !id.Valid() {
		return nil, false
	}
	return f.objects.Lookup(id)
}

// paramObject resolves object parameter i to a live object.
func (f *Functions) paramObject(ctx *nwscript.FunctionContext, i int) (nwscript.Object, bool, error) {
	id, err := ctx.ParamObject(i)
	if err != nil {
		return nil, false, err
	}
	obj, ok := f.lookup(id)
	return obj, ok, nil
}

// capability resolves object parameter i and asserts capability T.
func capability[T any](f *Functions, ctx *nwscript.FunctionContext, i int) (T, bool, error) {
	var zero T
	obj, ok, err := f.paramObject(ctx, i)
	if err != nil || !ok {
		return zero, false, err
	}
	c, ok := obj.(T)
	return c, ok, nil
}

// callerCapability asserts capability T on the calling object.
func callerCapability[T any](f *Functions, ctx *nwscript.FunctionContext) (T, bool) {
	var zero T
	obj, ok := f.lookup(ctx.Caller())
	if !ok {
		return zero, false
	}
	c, ok := obj.(T)
	return c, ok
}

// random returns the sum of n rolls in [lo, hi].
func (f *Functions) random(lo, hi, n int32) int32 {
	if n < 1 || hi < lo {
		return 0
	}
	f.rngMu.Lock()
	defer f.rngMu.Unlock()
	var r int32
	for ; n > 0; n-- {
		r += lo + f.rng.Int32N(hi-lo+1)
	}
	return r
}
