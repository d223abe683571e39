package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config はコマンドライン引数から解析された設定を保持する
// ゼロ値の項目は設定ファイルの値を上書きしない
type Config struct {
	GamePath    string        // ゲームディレクトリのパス
	EntryScript string        // エントリースクリプト名（NCSファイル指定時）
	ConfigPath  string        // 設定ファイルのパス（省略時は GamePath/nwscript.toml）
	Title       string        // ゲームタイトル（kotor, kotor2, nwn, nwn2）
	Timeout     time.Duration // タイムアウト時間（0は無制限）
	LogLevel    string        // ログレベル（debug, info, warn, error）
	Channels    []string      // 有効にするデバッグチャンネル
	TickRate    int           // 1秒あたりのティック数
	Headless    bool          // ヘッドレスモード
	ShowHelp    bool          // ヘルプ表示フラグ
}

var boolFlags = map[string]bool{
	"-h": true, "-help": true, "--help": true,
	"-headless": true, "--headless": true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("nwscript", flag.ContinueOnError)

	config := &Config{}

	var timeoutSec int
	var channels string
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "", "ログレベル（短縮形）")
	fs.StringVar(&config.ConfigPath, "config", "", "設定ファイルのパス")
	fs.StringVar(&config.ConfigPath, "c", "", "設定ファイルのパス（短縮形）")
	fs.StringVar(&config.Title, "title", "", "ゲームタイトル（kotor, kotor2, nwn, nwn2）")
	fs.StringVar(&channels, "debug", "", "デバッグチャンネル（カンマ区切り、all で全て）")
	fs.IntVar(&config.TickRate, "tps", 0, "1秒あたりのティック数")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.Headless {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
		}
	}

	if timeoutSec == 0 {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
			}
		}
	}

	if config.LogLevel == "" {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
		}
	}

	if channels == "" {
		channels = os.Getenv("NWSCRIPT_DEBUG")
	}
	for _, ch := range strings.Split(channels, ",") {
		if ch = strings.TrimSpace(ch); ch != "" {
			config.Channels = append(config.Channels, strings.ToLower(ch))
		}
	}

	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	if config.TickRate < 0 {
		return nil, fmt.Errorf("tick rate must be non-negative, got %d", config.TickRate)
	}

	if config.LogLevel != "" {
		validLogLevels := map[string]bool{
			"debug": true,
			"info":  true,
			"warn":  true,
			"error": true,
		}
		if !validLogLevels[config.LogLevel] {
			return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
		}
	}

	// 位置引数（ゲームディレクトリまたはNCSファイル）
	if fs.NArg() > 0 {
		path := fs.Arg(0)

		// NCSファイルが指定された場合、ディレクトリとエントリースクリプトに分離
		if strings.HasSuffix(strings.ToLower(path), ".ncs") {
			config.GamePath = filepath.Dir(path)
			base := filepath.Base(path)
			config.EntryScript = base[:len(base)-len(".ncs")]
		} else {
			config.GamePath = path
		}
	}
	if fs.NArg() > 1 && config.EntryScript == "" {
		config.EntryScript = fs.Arg(1)
	}

	return config, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			// -t 5 のように値を取るフラグは次の引数も移動する
			if !strings.Contains(arg, "=") && !boolFlags[arg] && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, arg)
		}
	}

	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `nwscript - NWScript runner for Aurora engine games

Usage:
  nwscript [options] [game-path] [entry-script]

Arguments:
  game-path     ゲームディレクトリ（nwscript.toml を含む）、またはNCSファイルのパス
  entry-script  最初に実行するスクリプト名（設定ファイルの scripts.entry より優先）

Options:
  -c, --config <file>         設定ファイル（デフォルト: <game-path>/nwscript.toml）
  --title <name>              ゲームタイトル: kotor, kotor2, nwn, nwn2
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --debug <channels>          デバッグチャンネル: scripts, engine, logic, host, all
  --tps <n>                   1秒あたりのティック数（デフォルト: 60）
  --headless                  ヘッドレスモード（GUIなし）
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  NWSCRIPT_DEBUG=<channels>   デバッグチャンネル

Examples:
  nwscript /games/kotor k_pebn_start     エントリースクリプトを指定
  nwscript /games/kotor/k_test.ncs       NCSファイルを直接実行
  nwscript --headless --timeout 10 .     ヘッドレスで10秒間実行
`)
}
