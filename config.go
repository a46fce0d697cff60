// config.go - TOML configuration for the Word Engine

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// EngineConfig mirrors the command-line flags. Flags given explicitly win.
type EngineConfig struct {
	Program  string         `toml:"program"`
	Log      LogConfig      `toml:"log"`
	Input    InputConfig    `toml:"input"`
	Trace    TraceConfig    `toml:"trace"`
	Snapshot SnapshotConfig `toml:"snapshot"`
	Debug    DebugConfig    `toml:"debug"`

	// Dir is the directory containing the config file (set at load time).
	Dir string `toml:"-"`
}

type LogConfig struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
	Debug     bool   `toml:"debug"`
}

type InputConfig struct {
	Script string `toml:"script"`
	Echo   bool   `toml:"echo"`
}

type TraceConfig struct {
	Database string `toml:"database"`
	Batch    int    `toml:"batch"`
}

type SnapshotConfig struct {
	Load string `toml:"load"`
	Save string `toml:"save"`
}

type DebugConfig struct {
	Breakpoints []string `toml:"breakpoints"`
	Condition   string   `toml:"condition"`
	Set         []string `toml:"set"`   // "R7=25734", applied after loading
	Patch       []string `toml:"patch"` // "$0209=21,21", applied after loading
}

// DefaultConfig is the configuration used when no file is given.
func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Input: InputConfig{Echo: true},
		Trace: TraceConfig{Batch: defaultTraceBatch},
	}
}

// LoadConfig parses a TOML file on top of DefaultConfig. Relative paths in
// the file are resolved against the file's directory.
func LoadConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := DefaultConfig()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}

	cfg.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	if cfg.Trace.Batch <= 0 {
		cfg.Trace.Batch = defaultTraceBatch
	}
	cfg.resolvePaths()
	return cfg, nil
}

func (c *EngineConfig) resolvePaths() {
	for _, p := range []*string{
		&c.Program,
		&c.Log.File,
		&c.Input.Script,
		&c.Trace.Database,
		&c.Snapshot.Load,
		&c.Snapshot.Save,
	} {
		*p = c.resolve(*p)
	}
}

func (c *EngineConfig) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
