// Package config handles the nwscript.toml game configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/zurustar/aurora-nwscript/pkg/nwscript"
)

// FileName is the configuration file looked up in the game directory.
const FileName = "nwscript.toml"

// Supported game titles.
const (
	TitleKotOR  = "kotor"
	TitleKotOR2 = "kotor2"
	TitleNWN    = "nwn"
	TitleNWN2   = "nwn2"
)

// DefaultTickRate is the number of host ticks per second.
const DefaultTickRate = 60

// Config is a game configuration.
type Config struct {
	Game    Game    `toml:"game"`
	Scripts Scripts `toml:"scripts"`
	Runtime Runtime `toml:"runtime"`
	Log     Log     `toml:"log"`

	// Dir is the directory containing the configuration file (set at load time).
	Dir string `toml:"-"`
}

// Game names the title and its talk tables.
type Game struct {
	Title             string `toml:"title"`
	TalkTable         string `toml:"talk-table"`
	TalkTableFeminine string `toml:"talk-table-female"`
	AltTalkTable      string `toml:"alt-talk-table"`
}

// Scripts configures where compiled scripts are found.
type Scripts struct {
	Dirs  []string `toml:"dirs"`
	Entry string   `toml:"entry"`
}

// Runtime configures the host loop and the interpreter.
type Runtime struct {
	TickRate   int           `toml:"tick-rate"`
	Headless   bool          `toml:"headless"`
	Timeout    time.Duration `toml:"timeout"`
	MaxSteps   int           `toml:"max-steps"`
	StubReturn string        `toml:"stub-return"`
	Seed       uint64        `toml:"seed"`

	// Snapshot is where commands still queued at exit are saved as CBOR.
	Snapshot string `toml:"snapshot"`
}

// Log configures logging.
type Log struct {
	Level    string   `toml:"level"`
	Channels []string `toml:"channels"`
}

// Default returns the configuration used when no file is present.
func Default(dir string) *Config {
	c := &Config{Dir: dir}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Game.Title == "" {
		c.Game.Title = TitleKotOR
	}
	if len(c.Scripts.Dirs) == 0 {
		c.Scripts.Dirs = []string{"."}
	}
	if c.Runtime.TickRate == 0 {
		c.Runtime.TickRate = DefaultTickRate
	}
	if c.Runtime.StubReturn == "" {
		c.Runtime.StubReturn = "int"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Parse decodes a configuration; relative paths are resolved against dir.
func Parse(data []byte, dir string) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	c.Dir = dir
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	dir, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	c, err := Parse(data, dir)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// LoadDir loads FileName from dir, or returns the defaults for dir when the
// directory has no configuration file.
func LoadDir(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
		}
		return Default(abs), nil
	}
	return Load(path)
}

// Validate checks the values that have a fixed set of choices.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Game.Title) {
	case TitleKotOR, TitleKotOR2, TitleNWN, TitleNWN2:
		c.Game.Title = strings.ToLower(c.Game.Title)
	default:
		return fmt.Errorf("unknown game title %q", c.Game.Title)
	}
	if c.Runtime.TickRate < 1 || c.Runtime.TickRate > 1000 {
		return fmt.Errorf("tick rate must be between 1 and 1000, got %d", c.Runtime.TickRate)
	}
	if c.Runtime.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %s", c.Runtime.Timeout)
	}
	if c.Runtime.MaxSteps < 0 {
		return fmt.Errorf("max steps must be non-negative, got %d", c.Runtime.MaxSteps)
	}
	if _, err := c.StubReturnType(); err != nil {
		return err
	}
	return nil
}

// ScriptDirPaths returns the script directories resolved against Dir.
func (c *Config) ScriptDirPaths() []string {
	paths := make([]string, len(c.Scripts.Dirs))
	for i, d := range c.Scripts.Dirs {
		paths[i] = c.resolve(d)
	}
	return paths
}

// TalkTablePaths returns the resolved main, feminine and alternate talk
// table paths. Unset tables are empty.
func (c *Config) TalkTablePaths() (main, feminine, alt string) {
	return c.resolve(c.Game.TalkTable), c.resolve(c.Game.TalkTableFeminine), c.resolve(c.Game.AltTalkTable)
}

// SnapshotPath returns the resolved queue snapshot path, or "" when unset.
func (c *Config) SnapshotPath() string {
	return c.resolve(c.Runtime.Snapshot)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// TickMs returns the logical milliseconds per host tick.
func (c *Config) TickMs() uint32 {
	return uint32(1000 / c.Runtime.TickRate)
}

// StubReturnType parses the return type of unknown engine functions.
func (c *Config) StubReturnType() (nwscript.Type, error) {
	switch strings.ToLower(c.Runtime.StubReturn) {
	case "void":
		return nwscript.TypeVoid, nil
	case "int":
		return nwscript.TypeInt, nil
	case "float":
		return nwscript.TypeFloat, nil
	case "string":
		return nwscript.TypeString, nil
	case "object":
		return nwscript.TypeObject, nil
	}
	return nwscript.TypeVoid, fmt.Errorf("invalid stub return type %q (must be void, int, float, string or object)", c.Runtime.StubReturn)
}
