// sdorfehs-bar feeds a dzen2-compatible status bar.
//
// It runs one goroutine per configured module (clock, battery, network,
// cpu, memory, temperature, weather, crypto, tailscale, kubernetes),
// composes their fragments into a single markup line, and streams that
// line to a renderer subprocess. Snapshot modules are fed by an
// i3status-compatible aggregator subprocess; the rest poll on their own
// cadences.
//
// Usage:
//
//	sdorfehs-bar [flags]
//
// Flags:
//
//	-config string  Path to configuration file (default: ~/.config/sdorfehs-bar/config.toml)
//	-oneshot        Render every module once, print the line to stdout, and exit
//	-doctor         Check configuration, external binaries, and runtime paths
//	-send string    Send a command (STATUS, TOGGLE [module], RELOAD, QUIT) to the running bar
//	-verbose        Enable verbose logging
//	-version        Print version and exit
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jcs/sdorfehs-bar/pkg/config"
	"github.com/jcs/sdorfehs-bar/pkg/daemon"
)

var (
	version = "0.3.1"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		oneshot     = flag.Bool("oneshot", false, "Render every module once, print the line to stdout, and exit")
		doctor      = flag.Bool("doctor", false, "Check configuration, external binaries, and runtime paths")
		send        = flag.String("send", "", "Send a command (STATUS, TOGGLE [module], RELOAD, QUIT) to the running bar")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		showVersion = flag.Bool("version", false, "Print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("sdorfehs-bar %s (%s) built %s\n", version, commit, date)
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Client commands against a running bar; no validation or logging
	// setup needed.
	if *send != "" {
		client := daemon.NewControlClient(socketPath(cfg))
		resp, err := client.SendCommand(*send)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(1)
		}
		fmt.Println(resp)
		os.Exit(0)
	}

	// The doctor reports configuration problems instead of dying on them.
	if *doctor {
		os.Exit(runDoctor(os.Stdout, cfg, *configPath))
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger, closeLog, err := newLogger(cfg, *verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if *oneshot {
		if err := runOneshot(cfg, logger); err != nil {
			logger.Error("oneshot render failed", "err", err)
			os.Exit(1)
		}
		return
	}

	pidPath := cfg.General.PIDFile
	if pidPath == "" {
		pidPath = daemon.DefaultPIDPath()
	}
	if err := daemon.AcquirePID(pidPath); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	logger.Info("starting sdorfehs-bar",
		"version", version,
		"config", resolvedConfigPath(*configPath),
		"pid", os.Getpid(),
	)

	code := supervise(*configPath, cfg, logger)

	_ = daemon.ReleasePID(pidPath)
	closeLog()
	os.Exit(code)
}

// loadConfig reads the config from an explicit path or the standard
// search locations.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromFile(path)
	}
	return config.Load()
}

// resolvedConfigPath names the config file in use for logs and the config
// watcher. Empty means the built-in defaults.
func resolvedConfigPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	return config.ResolvePath()
}

// socketPath picks the control socket: the configured one or the per-user
// default.
func socketPath(cfg *config.Config) string {
	if cfg.General.Socket != "" {
		return cfg.General.Socket
	}
	return daemon.DefaultSocketPath()
}

// newLogger writes to stderr and the log file. The returned func closes
// the file.
func newLogger(cfg *config.Config, verbose bool) (*slog.Logger, func(), error) {
	level := parseLogLevel(cfg.General.LogLevel)
	if verbose {
		level = slog.LevelDebug
	}

	logPath := cfg.General.LogFile
	if logPath == "" {
		logPath = filepath.Join(cfg.General.CacheDir, "bar.log")
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(io.MultiWriter(os.Stderr, f), &slog.HandlerOptions{
		Level: level,
	}))
	return logger, func() { f.Close() }, nil
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
