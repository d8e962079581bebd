package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the hypertype daemon.
//
// The file is the primary configuration surface; flags only override. Both YAML
// and TOML files are accepted (picked by extension). Keep defaults and validation
// centralized so the rest of the code can assume a well-formed config.
type Config struct {
	Sound   SoundConfig   `yaml:"sound" toml:"sound"`
	Display DisplayConfig `yaml:"display" toml:"display"`
	IPC     IPCConfig     `yaml:"ipc" toml:"ipc"`
	Input   InputConfig   `yaml:"input" toml:"input"`
	Effects EffectsConfig `yaml:"effects" toml:"effects"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
}

type SoundConfig struct {
	// Enabled is the persisted sound toggle forwarded to display surfaces.
	Enabled bool `yaml:"enabled" toml:"enabled"`
	// Local plays sounds on this machine's speaker as well.
	Local bool `yaml:"local" toml:"local"`
}

type DisplayConfig struct {
	// WSListen is the host:port of the display websocket server. Empty disables it.
	WSListen   string `yaml:"ws_listen" toml:"ws_listen"`
	WSPath     string `yaml:"ws_path" toml:"ws_path"`
	MaxPending int    `yaml:"max_pending" toml:"max_pending"` // 0 = unbounded
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path" toml:"socket_path"` // empty disables IPC
}

type InputConfig struct {
	// Devices are Linux evdev keyboards (/dev/input/eventN) read by the daemon.
	Devices []string `yaml:"devices,omitempty" toml:"devices,omitempty"`
}

type EffectsConfig struct {
	GlyphSize      int `yaml:"glyph_size" toml:"glyph_size"`
	PitchQuietMS   int `yaml:"pitch_quiet_ms" toml:"pitch_quiet_ms"`
	RecentCapacity int `yaml:"recent_capacity" toml:"recent_capacity"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`                 // auto, text or json
	File   string `yaml:"file,omitempty" toml:"file,omitempty"` // empty = stderr
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		Sound: SoundConfig{
			Enabled: true,
			Local:   false,
		},
		Display: DisplayConfig{
			WSListen:   defaultWSListen,
			WSPath:     defaultWSPath,
			MaxPending: defaultMaxPending,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		Effects: EffectsConfig{
			GlyphSize:      defaultGlyphSize,
			PitchQuietMS:   int(defaultPitchQuiet / time.Millisecond),
			RecentCapacity: defaultRecentCapacity,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// configSearchPaths lists the files tried when no -config flag is given.
func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	var dirs []string
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		dirs = append(dirs, filepath.Join(v, "hypertype"))
	}
	if home != "" {
		d := filepath.Join(home, ".config", "hypertype")
		if len(dirs) == 0 || dirs[0] != d {
			dirs = append(dirs, d)
		}
	}

	var paths []string
	for _, d := range dirs {
		for _, name := range []string{"config.yaml", "config.yml", "config.toml"} {
			paths = append(paths, filepath.Join(d, name))
		}
	}
	return paths
}

// FindConfigFile returns the first existing file from the search path, or "".
func FindConfigFile() string {
	for _, p := range configSearchPaths() {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p
		}
	}
	return ""
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// LoadConfigFile reads and parses a config file on top of DefaultConfig.
//
// Unknown keys are rejected in both formats to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	if isTOML(path) {
		return decodeConfigTOML(b)
	}
	return decodeConfigYAML(b)
}

func decodeConfigYAML(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Ensure there's no trailing garbage (only whitespace/comments are allowed after the document).
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

func decodeConfigTOML(b []byte) (Config, error) {
	cfg := DefaultConfig()

	md, err := toml.Decode(string(b), &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("decode config toml: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, fmt.Errorf("decode config toml: unknown keys: %s", strings.Join(keys, ", "))
	}

	return cfg, nil
}

// SaveConfigFile writes cfg to path in the format implied by its extension.
// The file is replaced atomically.
func SaveConfigFile(path string, cfg Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	path = ExpandPath(path)

	var buf bytes.Buffer
	if isTOML(path) {
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return fmt.Errorf("encode config toml: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return fmt.Errorf("encode config yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("encode config yaml: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".hypertype-config-*")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; each override is only applied if the pointer is
// non-nil (main.go only sets pointers for flags that were given explicitly).
type FlagOverrides struct {
	SoundEnabled *bool
	SoundLocal   *bool

	WSListen   *string
	WSPath     *string
	MaxPending *int

	IPCSocketPath *string
	InputDevices  *[]string

	GlyphSize      *int
	PitchQuietMS   *int
	RecentCapacity *int

	LogLevel  *string
	LogFormat *string
	LogFile   *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.SoundEnabled != nil {
		cfg.Sound.Enabled = *o.SoundEnabled
	}
	if o.SoundLocal != nil {
		cfg.Sound.Local = *o.SoundLocal
	}

	if o.WSListen != nil {
		cfg.Display.WSListen = *o.WSListen
	}
	if o.WSPath != nil {
		cfg.Display.WSPath = *o.WSPath
	}
	if o.MaxPending != nil {
		cfg.Display.MaxPending = *o.MaxPending
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.InputDevices != nil {
		cfg.Input.Devices = *o.InputDevices
	}

	if o.GlyphSize != nil {
		cfg.Effects.GlyphSize = *o.GlyphSize
	}
	if o.PitchQuietMS != nil {
		cfg.Effects.PitchQuietMS = *o.PitchQuietMS
	}
	if o.RecentCapacity != nil {
		cfg.Effects.RecentCapacity = *o.RecentCapacity
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFormat != nil {
		cfg.Logging.Format = *o.LogFormat
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Display
	if c.Display.WSListen != "" {
		if c.Display.WSPath == "" || c.Display.WSPath[0] != '/' {
			return errors.New("display.ws_path must start with '/'")
		}
	}
	if c.Display.MaxPending < 0 {
		return errors.New("display.max_pending must be >= 0")
	}

	// Input
	for _, d := range c.Input.Devices {
		if strings.TrimSpace(d) == "" {
			return errors.New("input.devices must not contain empty paths")
		}
	}

	// Effects
	if c.Effects.GlyphSize < 4 || c.Effects.GlyphSize > 256 {
		return errors.New("effects.glyph_size must be between 4 and 256")
	}
	if c.Effects.PitchQuietMS <= 0 {
		return errors.New("effects.pitch_quiet_ms must be > 0")
	}
	if c.Effects.RecentCapacity <= 0 {
		return errors.New("effects.recent_capacity must be > 0")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	switch c.Logging.Format {
	case "auto", "text", "json":
	default:
		return fmt.Errorf("logging.format must be auto, text or json (got %q)", c.Logging.Format)
	}

	return nil
}

// PitchQuiet is the pitch debounce as a duration.
func (c *Config) PitchQuiet() time.Duration {
	return time.Duration(c.Effects.PitchQuietMS) * time.Millisecond
}

// ExpandPath expands a leading "~" to the user's home directory.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
