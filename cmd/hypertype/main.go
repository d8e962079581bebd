package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const version = "1.0.0"

func printVersion() {
	fmt.Printf("hypertype v%s\n", version)
	fmt.Println("Typing effects daemon: floating glyphs, corner boxes, pulses and pitched sounds per keystroke")
}

func printUsage() {
	printVersion()
	fmt.Println()
	fmt.Println("USAGE:")
	fmt.Println("  hypertype [serve] [OPTIONS]")
	fmt.Println("  hypertype edit [OPTIONS] [FILE]")
	fmt.Println("  hypertype frames [OPTIONS]")
	fmt.Println()
	fmt.Println("DESCRIPTION:")
	fmt.Println("  Animates every keystroke typed into an editor. Keystrokes arrive from the")
	fmt.Println("  built-in terminal editor, Linux keyboard devices or the IPC socket; display")
	fmt.Println("  surfaces connect over a websocket and receive shake, playSound, toggleSound")
	fmt.Println("  and update messages once they report ready.")
	fmt.Println()
	fmt.Println("COMMON OPTIONS:")
	fmt.Println("  -config string")
	fmt.Println("        Path to a YAML or TOML config file (default: first of")
	fmt.Println("        $XDG_CONFIG_HOME/hypertype/config.{yaml,yml,toml}, ~/.config/hypertype/...)")
	fmt.Println()
	fmt.Println("  -sound bool")
	fmt.Println("        Enable typing sounds (default true)")
	fmt.Println()
	fmt.Println("  -sound-local bool")
	fmt.Println("        Also play sounds on this machine's speaker (default false)")
	fmt.Println()
	fmt.Println("  -glyph-size int")
	fmt.Printf("        Floating glyph font size in px (default %d)\n", defaultGlyphSize)
	fmt.Println()
	fmt.Println("  -pitch-quiet-ms int")
	fmt.Printf("        Quiet interval that resets the pitch level in ms (default %d)\n", defaultPitchQuiet.Milliseconds())
	fmt.Println()
	fmt.Println("  -recent-capacity int")
	fmt.Printf("        Entries kept in the recent buffer (default %d)\n", defaultRecentCapacity)
	fmt.Println()
	fmt.Println("  -log-level string")
	fmt.Println("        Log level: error, warn, info, debug (default \"info\")")
	fmt.Println()
	fmt.Println("  -log-format string")
	fmt.Println("        Log format: auto, text, json (default \"auto\")")
	fmt.Println()
	fmt.Println("  -log-file string")
	fmt.Println("        Write logs to this file instead of stderr")
	fmt.Println()
	fmt.Println("SERVE OPTIONS:")
	fmt.Println("  -ws-listen string")
	fmt.Printf("        Display websocket listen address, empty disables (default %q)\n", defaultWSListen)
	fmt.Println()
	fmt.Println("  -ws-path string")
	fmt.Printf("        Display websocket path (default %q)\n", defaultWSPath)
	fmt.Println()
	fmt.Println("  -max-pending int")
	fmt.Printf("        Messages queued before a surface is ready, 0 = unbounded (default %d)\n", defaultMaxPending)
	fmt.Println()
	fmt.Println("  -ipc-socket string")
	fmt.Printf("        Unix domain socket path for IPC, empty disables (default %q)\n", defaultSocketPath)
	fmt.Println()
	fmt.Println("  -input string")
	fmt.Println("        Comma-separated Linux keyboards to animate, e.g. /dev/input/event3")
	fmt.Println("        (needs read access: run as root or add user to 'input' group)")
	fmt.Println()
	fmt.Println("FRAMES OPTIONS:")
	fmt.Println("  -token string")
	fmt.Println("        Text to type (required)")
	fmt.Println()
	fmt.Println("  -out string")
	fmt.Println("        Output directory for PNG frames (default \"frames\")")
	fmt.Println()
	fmt.Println("  -backspace bool")
	fmt.Println("        Delete the text again after typing it (default false)")
	fmt.Println()
	fmt.Println("  -seed int")
	fmt.Println("        Seed for the special palette (default 1)")
	fmt.Println()
	fmt.Println("OTHER:")
	fmt.Println("  -version")
	fmt.Println("        Print version and exit")
	fmt.Println()
	fmt.Println("  -help")
	fmt.Println("        Print this help message")
	fmt.Println()
	fmt.Println("EDITOR KEYS:")
	fmt.Println("  Ctrl+S save, Ctrl+T toggle sound, Esc or Ctrl+C quit")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  # Start the daemon and type into it from a script")
	fmt.Println("  hypertype")
	fmt.Println("  hypertype-ctl type 'hello'")
	fmt.Println()
	fmt.Println("  # Animate a physical keyboard, playing sounds locally")
	fmt.Println("  hypertype -input /dev/input/event3 -sound-local")
	fmt.Println()
	fmt.Println("  # Edit a file with effects and local sound")
	fmt.Println("  hypertype edit -sound-local notes.txt")
	fmt.Println()
	fmt.Println("  # Export the frames of an ENTER keystroke")
	fmt.Println("  hypertype frames -token $'\\n' -out /tmp/enter")
	fmt.Println()
}

// commonFlags are shared by every subcommand that runs the engine.
type commonFlags struct {
	configPath *string

	soundEnabled *bool
	soundLocal   *bool

	glyphSize      *int
	pitchQuietMS   *int
	recentCapacity *int

	logLevel  *string
	logFormat *string
	logFile   *string

	showVersion *bool
	showHelp    *bool
}

func registerCommonFlags(fs *flag.FlagSet) *commonFlags {
	def := DefaultConfig()
	return &commonFlags{
		configPath:     fs.String("config", "", "Path to a YAML or TOML config file"),
		soundEnabled:   fs.Bool("sound", def.Sound.Enabled, "Enable typing sounds"),
		soundLocal:     fs.Bool("sound-local", def.Sound.Local, "Also play sounds on the local speaker"),
		glyphSize:      fs.Int("glyph-size", def.Effects.GlyphSize, "Floating glyph font size in px"),
		pitchQuietMS:   fs.Int("pitch-quiet-ms", def.Effects.PitchQuietMS, "Quiet interval that resets the pitch level (ms)"),
		recentCapacity: fs.Int("recent-capacity", def.Effects.RecentCapacity, "Entries kept in the recent buffer"),
		logLevel:       fs.String("log-level", def.Logging.Level, "Log level: error, warn, info, debug"),
		logFormat:      fs.String("log-format", def.Logging.Format, "Log format: auto, text, json"),
		logFile:        fs.String("log-file", "", "Write logs to this file instead of stderr"),
		showVersion:    fs.Bool("version", false, "Print version and exit"),
		showHelp:       fs.Bool("help", false, "Print help message"),
	}
}

// overrides returns only the flags that were set explicitly, so defaults never
// clobber values from the config file.
func (c *commonFlags) overrides(fs *flag.FlagSet) FlagOverrides {
	var o FlagOverrides
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "sound":
			o.SoundEnabled = c.soundEnabled
		case "sound-local":
			o.SoundLocal = c.soundLocal
		case "glyph-size":
			o.GlyphSize = c.glyphSize
		case "pitch-quiet-ms":
			o.PitchQuietMS = c.pitchQuietMS
		case "recent-capacity":
			o.RecentCapacity = c.recentCapacity
		case "log-level":
			o.LogLevel = c.logLevel
		case "log-format":
			o.LogFormat = c.logFormat
		case "log-file":
			o.LogFile = c.logFile
		}
	})
	return o
}

// loadConfig resolves defaults, the config file and flag overrides, then
// validates. It also returns the config file path ("" if none was found).
func loadConfig(explicit string, o FlagOverrides) (Config, string, error) {
	path := explicit
	if path == "" {
		path = FindConfigFile()
	}

	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadConfigFile(path)
		if err != nil {
			return Config{}, "", err
		}
		cfg = loaded
	}

	o.Apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, path, nil
}

// buildLogger opens the configured log destination (fallback when none is set).
func buildLogger(cfg Config, fallback io.Writer) (*slog.Logger, func() error, error) {
	level, err := parseLogLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	w, closeFn, err := openLogOutput(cfg.Logging.File, fallback)
	if err != nil {
		return nil, nil, err
	}
	return setupLogger(level, cfg.Logging.Format, w), closeFn, nil
}

// persistSoundFunc stores toggled sound state in the config file. Only the
// sound.enabled key changes; flag overrides are not written back.
func persistSoundFunc(configPath string, logger *slog.Logger) func(bool) error {
	target := configPath
	if target == "" {
		paths := configSearchPaths()
		if len(paths) == 0 {
			return nil
		}
		target = paths[0]
	}

	return func(enabled bool) error {
		cfg, err := LoadConfigFile(target)
		if errors.Is(err, os.ErrNotExist) {
			cfg, err = DefaultConfig(), nil
		}
		if err != nil {
			return err
		}
		cfg.Sound.Enabled = enabled
		if err := SaveConfigFile(target, cfg); err != nil {
			return err
		}
		logger.Debug("sound setting saved", "path", target, "enabled", enabled)
		return nil
	}
}

// splitList splits a comma-separated flag value, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		switch args[0] {
		case "serve", "edit", "frames":
			cmd, args = args[0], args[1:]
		case "version", "-version", "--version":
			printVersion()
			return
		case "help", "-help", "--help", "-h":
			printUsage()
			return
		}
	}

	var err error
	switch cmd {
	case "edit":
		err = runEditSubcommand(args)
	case "frames":
		err = runFramesSubcommand(args)
	default:
		err = runServeSubcommand(args)
	}
	if err != nil {
		fatal(err)
	}
}

// runServeSubcommand runs the headless daemon: display websocket, IPC and the
// engine loop.
func runServeSubcommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Usage = printUsage
	common := registerCommonFlags(fs)
	def := DefaultConfig()
	wsListen := fs.String("ws-listen", def.Display.WSListen, "Display websocket listen address (empty disables)")
	wsPath := fs.String("ws-path", def.Display.WSPath, "Display websocket path")
	maxPending := fs.Int("max-pending", def.Display.MaxPending, "Messages queued before a surface is ready (0 = unbounded)")
	ipcSocket := fs.String("ipc-socket", def.IPC.SocketPath, "Unix domain socket path for IPC (empty disables)")
	inputDevices := fs.String("input", "", "Comma-separated evdev keyboards to read (e.g. /dev/input/event3)")
	_ = fs.Parse(args)

	if *common.showHelp {
		printUsage()
		return nil
	}
	if *common.showVersion {
		printVersion()
		return nil
	}

	o := common.overrides(fs)
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ws-listen":
			o.WSListen = wsListen
		case "ws-path":
			o.WSPath = wsPath
		case "max-pending":
			o.MaxPending = maxPending
		case "ipc-socket":
			o.IPCSocketPath = ipcSocket
		case "input":
			devices := splitList(*inputDevices)
			o.InputDevices = &devices
		}
	})

	cfg, cfgPath, err := loadConfig(*common.configPath, o)
	if err != nil {
		return err
	}
	logger, closeLog, err := buildLogger(cfg, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting hypertype", "version", version)
	logger.Debug("configuration",
		"config_file", cfgPath,
		"sound_enabled", cfg.Sound.Enabled,
		"sound_local", cfg.Sound.Local,
		"ws_listen", cfg.Display.WSListen,
		"ws_path", cfg.Display.WSPath,
		"max_pending", cfg.Display.MaxPending,
		"ipc_socket", cfg.IPC.SocketPath,
		"input_devices", cfg.Input.Devices,
		"glyph_size", cfg.Effects.GlyphSize,
		"pitch_quiet_ms", cfg.Effects.PitchQuietMS,
		"recent_capacity", cfg.Effects.RecentCapacity)

	err = serve(ctx, cfg, persistSoundFunc(cfgPath, logger), logger)
	logger.Info("shut down")
	return err
}

// serve runs every daemon component under one errgroup until ctx ends.
func serve(ctx context.Context, cfg Config, persist func(bool) error, logger *slog.Logger) error {
	events := make(chan Event, defaultEventsBuf)
	calls := make(chan func(), defaultCallsBuf)

	g, gctx := errgroup.WithContext(ctx)

	var surfaces multiSurface
	if cfg.Display.WSListen != "" {
		hub := newDisplayHub(logger, displayHubConfig{})
		mux := http.NewServeMux()
		mux.Handle(cfg.Display.WSPath, newDisplayServer(gctx, hub, events, logger))

		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.Display.WSListen, mux, nil, logger)
		})
		surfaces = append(surfaces, hubSurface{hub: hub, logger: logger})
	}
	display := NewDisplayChannel(surfaces, cfg.Display.MaxPending, logger)
	if cfg.Sound.Local {
		display.AddLocal(NewSoundPlayer(cfg.Sound.Enabled, logger))
	}
	doc := NewDocument("")
	engine := NewEngine(documentHost{doc: doc}, newLoopScheduler(gctx, calls), display, EngineConfig{
		GlyphSize:      cfg.Effects.GlyphSize,
		PitchQuiet:     cfg.PitchQuiet(),
		RecentCapacity: cfg.Effects.RecentCapacity,
		SoundEnabled:   cfg.Sound.Enabled,
		PersistSound:   persist,
	}, logger)

	// Without a websocket nothing will ever report ready.
	if cfg.Display.WSListen == "" {
		events <- SurfaceReady{Client: "local"}
	}

	if cfg.IPC.SocketPath != "" {
		g.Go(func() error {
			backend := ipcBackend{Events: events, Status: engineStatusQuery(calls, engine)}
			return runIPCServer(gctx, cfg.IPC.SocketPath, backend, nil, logger)
		})
	}

	if len(cfg.Input.Devices) > 0 {
		g.Go(func() error {
			return runKeyboardInput(gctx, cfg.Input.Devices, events, logger)
		})
	}

	g.Go(func() error {
		runDaemon(gctx, events, calls, engine, daemonHooks{}, logger)
		return nil
	})

	return g.Wait()
}

// runEditSubcommand opens the terminal editor.
func runEditSubcommand(args []string) error {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	fs.Usage = printUsage
	common := registerCommonFlags(fs)
	_ = fs.Parse(args)

	if *common.showHelp {
		printUsage()
		return nil
	}
	if *common.showVersion {
		printVersion()
		return nil
	}
	if fs.NArg() > 1 {
		return fmt.Errorf("edit takes at most one file, got %d", fs.NArg())
	}

	cfg, cfgPath, err := loadConfig(*common.configPath, common.overrides(fs))
	if err != nil {
		return err
	}
	// The screen owns the terminal; logs only go to a file.
	logger, closeLog, err := buildLogger(cfg, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return runEditor(ctx, fs.Arg(0), cfg, persistSoundFunc(cfgPath, logger), logger)
}

// runFramesSubcommand exports one keystroke's animation frames as PNGs.
func runFramesSubcommand(args []string) error {
	fs := flag.NewFlagSet("frames", flag.ExitOnError)
	fs.Usage = printUsage
	token := fs.String("token", "", "Text to type")
	out := fs.String("out", "frames", "Output directory for PNG frames")
	backspace := fs.Bool("backspace", false, "Delete the text again after typing it")
	seed := fs.Uint64("seed", 1, "Seed for the special palette")
	glyphSize := fs.Int("glyph-size", defaultGlyphSize, "Floating glyph font size in px")
	logLevelStr := fs.String("log-level", "warn", "Log level: error, warn, info, debug")
	_ = fs.Parse(args)

	if *token == "" {
		return errors.New("frames: -token is required")
	}
	level, err := parseLogLevel(*logLevelStr)
	if err != nil {
		return err
	}
	logger := setupLogger(level, "auto", os.Stderr)

	names, err := ExportFrames(FrameExport{
		Text:      *token,
		Backspace: *backspace,
		GlyphSize: *glyphSize,
		OutDir:    *out,
		Seed:      *seed,
	}, logger)
	for _, n := range names {
		fmt.Println(n)
	}
	return err
}
