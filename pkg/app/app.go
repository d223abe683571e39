// Package app は設定の読み込みからスクリプトの実行までを組み立てる
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/zurustar/aurora-nwscript/pkg/cli"
	"github.com/zurustar/aurora-nwscript/pkg/config"
	"github.com/zurustar/aurora-nwscript/pkg/fileutil"
	"github.com/zurustar/aurora-nwscript/pkg/functions"
	"github.com/zurustar/aurora-nwscript/pkg/functions/kotor"
	"github.com/zurustar/aurora-nwscript/pkg/functions/nwn"
	"github.com/zurustar/aurora-nwscript/pkg/host"
	"github.com/zurustar/aurora-nwscript/pkg/logger"
	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
	"github.com/zurustar/aurora-nwscript/pkg/objects"
	"github.com/zurustar/aurora-nwscript/pkg/script"
	"github.com/zurustar/aurora-nwscript/pkg/talktable"
	"github.com/zurustar/aurora-nwscript/pkg/vm"
)

// MoviesDir はゲームディレクトリ内のムービーの置き場所
const MoviesDir = "movies"

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	args   *cli.Config
	config *config.Config
	log    *slog.Logger
	stdout io.Writer

	objects *objects.Table
	runtime *vm.Runtime
	table   *nwscript.FunctionTable
	screen  *host.Screen
	music   *host.Jukebox
	movies  *host.Movies
	console *host.Console
}

// New Applicationを作成（stdoutはログとスクリプトのコンソール出力先）
func New(stdout io.Writer) *Application {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Application{stdout: stdout}
}

// Run アプリケーションを実行
func (app *Application) Run(ctx context.Context, args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.args.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	// 2. 設定ファイルの読み込み（コマンドライン引数が優先）
	if err := app.loadConfig(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started", "title", app.config.Game.Title, "dir", app.config.Dir)

	// 4. ランタイムの組み立て
	if err := app.setup(); err != nil {
		return fmt.Errorf("failed to set up runtime: %w", err)
	}

	// 5. エントリースクリプトの実行
	if err := app.runEntry(ctx); err != nil {
		return fmt.Errorf("failed to run entry script: %w", err)
	}

	// 6. 遅延コマンドを処理するゲームループ
	if err := app.runHost(ctx); err != nil {
		return fmt.Errorf("host loop failed: %w", err)
	}

	// 7. 未実行の遅延コマンドの保存
	if err := app.saveSnapshot(); err != nil {
		return fmt.Errorf("failed to save queue snapshot: %w", err)
	}

	app.logDiagnostics()
	app.log.Info("Application terminated normally", "now", app.runtime.Now(), "pending", app.runtime.Pending())
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	config, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.args = config
	return nil
}

// loadConfig 設定ファイルを読み込み、コマンドライン引数で上書きする
func (app *Application) loadConfig() error {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case app.args.ConfigPath != "":
		cfg, err = config.Load(app.args.ConfigPath)
	case app.args.GamePath != "":
		cfg, err = config.LoadDir(app.args.GamePath)
	default:
		cfg, err = config.LoadDir(".")
	}
	if err != nil {
		return err
	}

	if err := merge(cfg, app.args); err != nil {
		return err
	}
	app.config = cfg
	return nil
}

// merge はコマンドライン引数のうち指定されたものを設定に反映する
func merge(cfg *config.Config, args *cli.Config) error {
	if args.Title != "" {
		cfg.Game.Title = args.Title
	}
	if args.EntryScript != "" {
		cfg.Scripts.Entry = args.EntryScript
	}
	if args.Timeout > 0 {
		cfg.Runtime.Timeout = args.Timeout
	}
	if args.TickRate > 0 {
		cfg.Runtime.TickRate = args.TickRate
	}
	if args.Headless {
		cfg.Runtime.Headless = true
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	cfg.Log.Channels = append(cfg.Log.Channels, args.Channels...)
	return cfg.Validate()
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLoggerWithWriter(app.config.Log.Level, app.stdout); err != nil {
		return err
	}
	logger.EnableChannels(app.config.Log.Channels...)
	app.log = logger.GetLogger()
	return nil
}

// setup はオブジェクト、トークテーブル、エンジン関数、ランタイムを組み立てる
func (app *Application) setup() error {
	cfg := app.config

	search := fileutil.NewSearchPath(cfg.ScriptDirPaths()...)
	loader := script.NewLoader(search)

	app.objects = objects.NewTable()
	module, err := app.objects.Create(objects.KindModule, "MODULE")
	if err != nil {
		return err
	}
	module.SetName("Module")
	pc, err := app.objects.Create(objects.KindCreature, "player")
	if err != nil {
		return err
	}
	pc.SetPC(true)
	pc.SetName("Player")

	var vmOpts []vm.Option
	if cfg.Runtime.MaxSteps > 0 {
		vmOpts = append(vmOpts, vm.WithMaxSteps(cfg.Runtime.MaxSteps))
	}
	app.runtime = vm.NewRuntime(loader, app.objects, vmOpts...)
	app.objects.OnDestroy(func(id nwscript.ObjectID) {
		app.runtime.CancelFor(id)
	})

	talk, err := loadTalkTables(cfg)
	if err != nil {
		return err
	}

	app.screen = host.NewScreen(app.runtime.Now)
	app.music = host.NewJukebox()
	app.movies = host.NewMovies(fileutil.NewSearchPath(filepath.Join(cfg.Dir, MoviesDir)))
	app.console = host.NewConsole(host.ConsoleLines)

	var out io.Writer = app.stdout
	if !cfg.Runtime.Headless {
		out = io.MultiWriter(app.stdout, app.console)
	}

	fnOpts := []functions.Option{
		functions.WithObjects(app.objects),
		functions.WithScheduler(app.runtime),
		functions.WithTalkTable(talk),
		functions.WithModule(app.objects),
		functions.WithScreen(app.screen),
		functions.WithMusic(app.music),
		functions.WithMovies(app.movies),
		functions.WithConsole(out),
	}
	if cfg.Runtime.Seed != 0 {
		fnOpts = append(fnOpts, functions.WithSeed(cfg.Runtime.Seed))
	}
	fns := functions.New(fnOpts...)

	stub, err := cfg.StubReturnType()
	if err != nil {
		return err
	}
	table, err := titleTable(cfg.Game.Title, fns, nwscript.WithStubReturnType(stub))
	if err != nil {
		return err
	}
	app.table = table
	app.runtime.RegisterFunctions(table)

	app.log.Info("Runtime ready", "functions", table.Len(), "scripts", cfg.ScriptDirPaths(), "objects", app.objects.Len())
	return nil
}

// titleTable はタイトルに対応するエンジン関数テーブルを作る
func titleTable(title string, fns *functions.Functions, opts ...nwscript.TableOption) (*nwscript.FunctionTable, error) {
	switch title {
	case config.TitleKotOR, config.TitleKotOR2:
		return kotor.Table(fns, opts...)
	case config.TitleNWN, config.TitleNWN2:
		return nwn.Table(fns, opts...)
	}
	return nil, fmt.Errorf("no function table for title %q", title)
}

// loadTalkTables は設定されたトークテーブルを読み込む
func loadTalkTables(cfg *config.Config) (*talktable.Manager, error) {
	m := talktable.NewManager()
	mainPath, femPath, altPath := cfg.TalkTablePaths()

	load := func(path string) (*talktable.Table, error) {
		if path == "" {
			return nil, nil
		}
		return talktable.Load(path)
	}

	main, err := load(mainPath)
	if err != nil {
		return nil, err
	}
	fem, err := load(femPath)
	if err != nil {
		return nil, err
	}
	if main != nil {
		m.SetMain(main, fem)
	}

	alt, err := load(altPath)
	if err != nil {
		return nil, err
	}
	if alt != nil {
		m.SetAlt(alt, nil)
	}
	return m, nil
}

// runEntry はモジュールをOBJECT_SELFとしてエントリースクリプトを実行する
func (app *Application) runEntry(ctx context.Context) error {
	entry := app.config.Scripts.Entry
	if entry == "" {
		return fmt.Errorf("no entry script (set scripts.entry in %s or pass it as an argument)", config.FileName)
	}

	result, err := app.runtime.RunScript(ctx, entry, app.objects.ModuleObject(), nwscript.ObjectInvalid)
	var fault *nwscript.RuntimeError
	if errors.As(err, &fault) {
		// 異常終了したのはこのスクリプトだけなので、登録済みの遅延コマンドは処理を続ける
		app.log.Error("Entry script aborted", "script", entry, "error", err, "pending", app.runtime.Pending())
		return nil
	}
	if err != nil {
		return err
	}
	app.log.Info("Entry script finished", "script", entry, "result", result.Repr(), "pending", app.runtime.Pending())
	return nil
}

// runHost は遅延コマンドを処理するゲームループを実行する
func (app *Application) runHost(ctx context.Context) error {
	rc := app.config.Runtime
	opts := []host.Option{
		host.WithTickRate(rc.TickRate),
		host.WithTimeout(rc.Timeout),
	}

	// ヘッドレスモードでは論理時計をできるだけ速く進める
	if rc.Headless {
		loop := host.NewLoop(app.runtime, append(opts, host.WithRealtime(false))...)
		return loop.Run(ctx)
	}

	game := host.NewGame(ctx, app.runtime, app.screen, app.console, app.config.Game.Title, opts...)
	return host.Run(game)
}

// saveSnapshot は終了時に残っている遅延コマンドを runtime.snapshot に書き出す
func (app *Application) saveSnapshot() error {
	path := app.config.SnapshotPath()
	if path == "" || app.runtime.Pending() == 0 {
		return nil
	}
	data, err := app.runtime.MarshalQueue()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	app.log.Info("Saved pending commands", "path", path, "pending", app.runtime.Pending(), "now", app.runtime.Now())
	return nil
}

// logDiagnostics はスタブで応答したエンジン関数を報告する
func (app *Application) logDiagnostics() {
	calls := app.table.Diagnostics().Snapshot()
	if len(calls) == 0 {
		return
	}
	ids := make([]uint32, 0, len(calls))
	for id := range calls {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		app.log.Warn("Engine function answered by stub", "id", id, "name", app.table.Name(id), "calls", calls[id])
	}
}
