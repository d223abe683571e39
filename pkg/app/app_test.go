package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/zurustar/aurora-nwscript/pkg/cli"
	"github.com/zurustar/aurora-nwscript/pkg/config"
	"github.com/zurustar/aurora-nwscript/pkg/functions"
	"github.com/zurustar/aurora-nwscript/pkg/opcode"
	"github.com/zurustar/aurora-nwscript/pkg/vm"
)

// ルーチン番号（両タイトル共通）
const (
	routinePrintString  = 1
	routineDelayCommand = 7
)

func writeScript(t *testing.T, dir, name string, fn func(b *opcode.Builder)) {
	t.Helper()
	b := opcode.NewBuilder()
	fn(b)
	data, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func printString(b *opcode.Builder, s string) {
	b.ConstString(s)
	b.Action(routinePrintString, 1)
}

// newGameDir は即時出力と遅延出力を行うスクリプトを持つゲームディレクトリを作る
func newGameDir(t *testing.T, toml string) string {
	t.Helper()
	dir := t.TempDir()
	if toml != "" {
		if err := os.WriteFile(filepath.Join(dir, config.FileName), []byte(toml), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	writeScript(t, dir, "K_START.NCS", func(b *opcode.Builder) {
		printString(b, "hello from start")
		b.StoreState(0, 0)
		b.Jump(opcode.JMP, "after")
		printString(b, "hello later")
		b.Retn()
		b.Label("after")
		b.ConstFloat(0.5)
		b.Action(routineDelayCommand, 2)
		b.Retn()
	})
	writeScript(t, dir, "k_waiting.ncs", func(b *opcode.Builder) {
		b.StoreState(0, 0)
		b.Jump(opcode.JMP, "after")
		printString(b, "hello much later")
		b.Retn()
		b.Label("after")
		b.ConstFloat(1e6)
		b.Action(routineDelayCommand, 2)
		b.Retn()
	})
	writeScript(t, dir, "k_unknown.ncs", func(b *opcode.Builder) {
		b.Action(4000, 0)
		b.Retn()
	})
	writeScript(t, dir, "k_fault.ncs", func(b *opcode.Builder) {
		b.StoreState(0, 0)
		b.Jump(opcode.JMP, "after")
		printString(b, "hello after fault")
		b.Retn()
		b.Label("after")
		b.ConstFloat(0.5)
		b.Action(routineDelayCommand, 2)
		b.ConstInt(1)
		b.ConstInt(0)
		b.Op(opcode.DIV, opcode.TypeIntInt)
		b.Retn()
	})
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := New(&out).Run(ctx, args)
	return out.String(), err
}

func TestRunHeadless(t *testing.T) {
	dir := newGameDir(t, "[scripts]\nentry = \"k_start\"\n")

	out, err := run(t, "--headless", dir)
	if err != nil {
		t.Fatalf("Run() error = %v\n%s", err, out)
	}

	first := strings.Index(out, "hello from start")
	later := strings.Index(out, "hello later")
	if first < 0 || later < 0 || later < first {
		t.Errorf("unexpected output order:\n%s", out)
	}
	if !strings.Contains(out, "Application terminated normally") {
		t.Errorf("missing termination log:\n%s", out)
	}
}

func TestRunNCSPath(t *testing.T) {
	dir := newGameDir(t, "")

	out, err := run(t, "--headless", "--title", "nwn", filepath.Join(dir, "k_start.ncs"))
	if err != nil {
		t.Fatalf("Run() error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "hello later") {
		t.Errorf("deferred command did not run:\n%s", out)
	}
}

func TestRunUnknownFunctionIsStubbed(t *testing.T) {
	dir := newGameDir(t, "")

	out, err := run(t, "--headless", dir, "k_unknown")
	if err != nil {
		t.Fatalf("Run() error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "Engine function answered by stub") {
		t.Errorf("missing stub diagnostics:\n%s", out)
	}
}

func TestRunEntryFaultDrainsQueue(t *testing.T) {
	dir := newGameDir(t, "")

	// スクリプトの異常終了後も、それまでに登録した遅延コマンドは実行される
	out, err := run(t, "--headless", dir, "k_fault")
	if err != nil {
		t.Fatalf("Run() error = %v\n%s", err, out)
	}
	if !strings.Contains(out, "division by zero") {
		t.Errorf("fault was not logged:\n%s", out)
	}
	if !strings.Contains(out, "hello after fault") {
		t.Errorf("deferred command did not run after the fault:\n%s", out)
	}
	if !strings.Contains(out, "Application terminated normally") {
		t.Errorf("missing termination log:\n%s", out)
	}
}

func TestRunSavesPendingCommands(t *testing.T) {
	dir := newGameDir(t, "[runtime]\ntimeout = \"200ms\"\nsnapshot = \"pending.cbor\"\n")

	out, err := run(t, "--headless", dir, "k_waiting")
	if err != nil {
		t.Fatalf("Run() error = %v\n%s", err, out)
	}
	if strings.Contains(out, "hello much later") {
		t.Fatalf("command ran before its delay:\n%s", out)
	}

	data, err := os.ReadFile(filepath.Join(dir, "pending.cbor"))
	if err != nil {
		t.Fatalf("snapshot not written: %v\n%s", err, out)
	}
	restored := vm.NewRuntime(nil, nil)
	if err := restored.UnmarshalQueue(data); err != nil {
		t.Fatalf("UnmarshalQueue: %v", err)
	}
	if restored.Pending() != 1 {
		t.Errorf("restored Pending() = %d, want 1", restored.Pending())
	}
	cmd, ok := restored.Queue().Peek()
	if !ok || !strings.EqualFold(cmd.Script, "k_waiting") || cmd.DelayMs != 1e9 {
		t.Errorf("restored command = %+v", cmd)
	}
}

func TestRunErrors(t *testing.T) {
	dir := newGameDir(t, "")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"エントリーなし", []string{"--headless", dir}, "no entry script"},
		{"存在しないスクリプト", []string{"--headless", dir, "k_missing"}, "k_missing"},
		{"無効なタイトル", []string{"--headless", "--title", "jade", dir, "k_start"}, "unknown game title"},
		{"無効な引数", []string{"--log-level", "loud"}, "invalid log level"},
		{"存在しない設定ファイル", []string{"-c", filepath.Join(dir, "missing.toml")}, "cannot read"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, tt.args...)
			if err == nil {
				t.Fatalf("expected error\n%s", out)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to contain %q", err, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	cfg := config.Default("/games/kotor")
	cfg.Log.Channels = []string{"scripts"}

	args := &cli.Config{
		Title:       "NWN",
		EntryScript: "nw_start",
		Timeout:     5 * time.Second,
		TickRate:    30,
		Headless:    true,
		LogLevel:    "debug",
		Channels:    []string{"engine"},
	}
	if err := merge(cfg, args); err != nil {
		t.Fatal(err)
	}

	if cfg.Game.Title != config.TitleNWN || cfg.Scripts.Entry != "nw_start" {
		t.Errorf("game = %+v, scripts = %+v", cfg.Game, cfg.Scripts)
	}
	if cfg.Runtime.Timeout != 5*time.Second || cfg.Runtime.TickRate != 30 || !cfg.Runtime.Headless {
		t.Errorf("runtime = %+v", cfg.Runtime)
	}
	if cfg.Log.Level != "debug" || len(cfg.Log.Channels) != 2 {
		t.Errorf("log = %+v", cfg.Log)
	}

	// 未指定の引数は設定を変えない
	before := *cfg
	if err := merge(cfg, &cli.Config{}); err != nil {
		t.Fatal(err)
	}
	if cfg.Game != before.Game || cfg.Runtime != before.Runtime || cfg.Log.Level != before.Log.Level {
		t.Errorf("empty args changed the config: %+v", cfg)
	}
}

func TestTitleTable(t *testing.T) {
	fns := functions.New()
	for _, title := range []string{config.TitleKotOR, config.TitleKotOR2, config.TitleNWN, config.TitleNWN2} {
		if _, err := titleTable(title, fns); err != nil {
			t.Errorf("titleTable(%q) error = %v", title, err)
		}
	}
	if _, err := titleTable("jade", fns); err == nil {
		t.Error("expected error for unknown title")
	}
}
