// Package config handles tether.toml session configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/tliron/commonlog"

	"github.com/chazu/tether/bridge"
)

// FileName is the name of the configuration file looked up by Load.
const FileName = "tether.toml"

// Config represents a tether.toml file.
type Config struct {
	Log          Log          `toml:"log" json:"log"`
	Frames       Frames       `toml:"frames" json:"frames"`
	Finalization Finalization `toml:"finalization" json:"finalization"`
	Journal      Journal      `toml:"journal" json:"journal"`
	Sweeper      Sweeper      `toml:"sweeper" json:"sweeper"`

	// Dir is the directory containing the tether.toml file (set at load time).
	Dir string `toml:"-" json:"-"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity" json:"verbosity"`
	Path      string `toml:"path,omitempty" json:"path,omitempty"`
}

// Frames configures the call-frame table.
type Frames struct {
	Capacity int `toml:"capacity" json:"capacity"`
}

// Finalization configures delivery of collection notifications.
type Finalization struct {
	Deferred bool `toml:"deferred" json:"deferred"`
}

// Journal configures the crossing journal. An empty path disables it.
type Journal struct {
	Path string `toml:"path,omitempty" json:"path,omitempty"`
}

// Sweeper configures the background object map sweeper.
type Sweeper struct {
	Enabled  bool   `toml:"enabled" json:"enabled"`
	Interval string `toml:"interval" json:"interval"`
}

// Default returns the configuration used when no tether.toml exists.
func Default() *Config {
	return &Config{
		Log:          Log{Verbosity: 0},
		Frames:       Frames{Capacity: bridge.DefaultFrameCapacity},
		Finalization: Finalization{Deferred: true},
		Sweeper: Sweeper{
			Enabled:  false,
			Interval: bridge.DefaultSweepInterval.String(),
		},
	}
}

// Load parses the tether.toml file in dir.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses and validates a configuration file. Settings missing from
// the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	md, err := toml.Decode(string(data), c)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	var errs *multierror.Error
	for _, key := range md.Undecoded() {
		errs = multierror.Append(errs, fmt.Errorf("unknown setting %q", key.String()))
	}
	if err := c.Validate(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := errs.ErrorOrNil(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a tether.toml file, then loads
// and returns it. Returns nil if no file is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// SweepInterval returns the parsed sweeper interval.
func (c *Config) SweepInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sweeper.Interval)
	if err != nil {
		return 0, fmt.Errorf("sweeper interval: %w", err)
	}
	return d, nil
}

// JournalPath returns the journal location resolved against Dir, or "" when
// journaling is off.
func (c *Config) JournalPath() string {
	return c.resolve(c.Journal.Path)
}

// LogPath returns the log file location resolved against Dir, or "" for
// standard error.
func (c *Config) LogPath() string {
	return c.resolve(c.Log.Path)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.Dir == "" {
		return path
	}
	return filepath.Join(c.Dir, path)
}

// ConfigureLogging applies the [log] section to commonlog.
func (c *Config) ConfigureLogging() {
	if path := c.LogPath(); path != "" {
		commonlog.Configure(c.Log.Verbosity, &path)
	} else {
		commonlog.Configure(c.Log.Verbosity, nil)
	}
}

// EngineOptions maps the configuration to engine options.
func (c *Config) EngineOptions() []bridge.Option {
	return []bridge.Option{
		bridge.WithFrameCapacity(c.Frames.Capacity),
		bridge.WithDeferredFinalization(c.Finalization.Deferred),
	}
}
