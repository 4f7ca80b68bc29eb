package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/cache"
	"github.com/jcs/sdorfehs-bar/pkg/config"
	"github.com/jcs/sdorfehs-bar/pkg/daemon"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
	"github.com/jcs/sdorfehs-bar/pkg/modules"
	"github.com/jcs/sdorfehs-bar/pkg/render"
	"github.com/jcs/sdorfehs-bar/pkg/source"
	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

// engineStopGrace bounds how long shutdown waits for module goroutines. A
// module stuck in blocking I/O past this is abandoned; the process is
// exiting anyway.
const engineStopGrace = 2 * time.Second

// runOutcome says why a bar run ended and what the supervisor does next.
type runOutcome int

const (
	outcomeQuit runOutcome = iota
	outcomeReload
	outcomeFatal
)

// supervise runs the bar until it quits for good, tearing down and
// rebuilding the whole pipeline on every reload. A reload with a broken
// config keeps the previous one, so a typo in the file never kills a
// running bar.
func supervise(configPath string, cfg *config.Config, log *slog.Logger) int {
	for {
		switch runBar(configPath, cfg, log) {
		case outcomeReload:
			next, err := loadConfig(configPath)
			if err == nil {
				err = next.Validate()
			}
			if err != nil {
				log.Error("reload: keeping previous config", "err", err)
			} else {
				cfg = next
			}
			log.Info("restarting bar")
		case outcomeQuit:
			log.Info("bar stopped")
			return 0
		default:
			return 1
		}
	}
}

// runBar builds the pipeline from cfg, runs it, and tears it down. It
// blocks until a signal, a control command, a config file change, or the
// death of a subprocess ends the run.
func runBar(configPath string, cfg *config.Config, log *slog.Logger) runOutcome {
	palette, err := theme.Resolve(cfg.General.Palette, config.ConfigDir())
	if err != nil {
		log.Error("palette", "err", err)
		return outcomeFatal
	}

	deps := modules.Deps{Logger: log}
	store, err := cache.NewStore(cache.StoreConfig{Dir: cfg.General.CacheDir})
	if err != nil {
		log.Warn("cache disabled", "err", err)
	} else {
		deps.Cache = store
		defer store.Close()
	}

	reg, err := modules.Build(cfg, deps)
	if err != nil {
		log.Error("module setup", "err", err)
		return outcomeFatal
	}
	if reg.Len() == 0 {
		log.Error("no modules enabled")
		return outcomeFatal
	}

	comp := bar.NewCompositor(reg.Names(), separator(cfg, palette))

	// Subprocess deaths land here; the first one decides the run.
	fatal := make(chan error, 1)
	reportFatal := func(err error) {
		select {
		case fatal <- err:
		default:
		}
	}

	bridge := source.New(source.Config{
		Command: cfg.General.SourceCommand,
		Logger:  log,
		OnFatal: reportFatal,
	})

	eng := bar.NewEngine(bar.EngineConfig{
		Registry:   reg,
		Compositor: comp,
		Palette:    palette,
		Snapshots:  bridge.Snapshot,
		Subscribe:  bridge.Subscribe,
		Logger:     log,
	})

	proc := render.NewProcess(render.ProcessConfig{
		Command: cfg.General.RenderCommand,
		Logger:  log,
		OnFatal: reportFatal,
	})
	if err := proc.Start(); err != nil {
		log.Error("renderer", "err", err)
		return outcomeFatal
	}
	defer proc.Stop()

	writer := render.NewWriter(render.WriterConfig{
		Sink:     proc.Stdin(),
		Line:     comp.Line,
		Changed:  comp.Changed(),
		BlinkOn:  cfg.General.BlinkOn.Duration,
		BlinkOff: cfg.General.BlinkOff.Duration,
		Dim:      palette.Dim,
		Logger:   log,
		OnFatal:  reportFatal,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The engine registers the bridge subscriptions, so it starts before
	// the bridge feeds records.
	eng.Start(ctx)
	defer eng.Stop(engineStopGrace)

	writer.Start()
	defer writer.Stop()

	if err := bridge.Start(); err != nil {
		log.Error("aggregator", "err", err)
		return outcomeFatal
	}
	defer bridge.Stop()

	requests := make(chan runOutcome, 1)
	request := func(o runOutcome) {
		select {
		case requests <- o:
		default:
		}
	}

	ctl := &controlHandler{
		engine:  eng,
		comp:    comp,
		toggle:  cfg.General.ToggleModule,
		started: time.Now(),
		request: request,
	}
	srv := daemon.NewControlServer(socketPath(cfg), ctl)
	if err := srv.Start(); err != nil {
		log.Error("control socket", "err", err)
		return outcomeFatal
	}
	defer srv.Stop()

	if path := resolvedConfigPath(configPath); path != "" && cfg.General.WatchConfig {
		stopWatch, err := watchConfig(path, log, func() { request(outcomeReload) })
		if err != nil {
			log.Warn("config watch disabled", "err", err)
		} else {
			defer stopWatch()
		}
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP, syscall.SIGUSR1)
	defer signal.Stop(sigc)

	log.Info("bar running", "modules", reg.Names(), "socket", socketPath(cfg))

	for {
		select {
		case sig := <-sigc:
			switch sig {
			case syscall.SIGHUP:
				log.Info("reload requested", "via", "SIGHUP")
				return outcomeReload
			case syscall.SIGUSR1:
				name := cfg.General.ToggleModule
				if name == "" {
					continue
				}
				on, err := eng.Toggle(name)
				if err != nil {
					log.Warn("toggle failed", "module", name, "err", err)
					continue
				}
				log.Info("toggled", "module", name, "on", on)
			default:
				log.Info("shutdown requested", "signal", sig.String())
				return outcomeQuit
			}
		case err := <-fatal:
			log.Error("shutting down", "err", err)
			return outcomeFatal
		case o := <-requests:
			return o
		}
	}
}

// separator is the markup placed between module fragments. The default is
// a pipe drawn in the dim color so module boundaries read quietly.
func separator(cfg *config.Config, p theme.Palette) string {
	if cfg.General.Separator != "" {
		return cfg.General.Separator
	}
	return markup.Separator(p.Dim)
}

// watchConfig reloads the bar when the config file changes. The watch is
// on the directory because editors typically replace the file, which would
// orphan a watch on the file itself.
func watchConfig(path string, log *slog.Logger, onChange func()) (func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	path = filepath.Clean(path)
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				log.Info("config file changed", "path", path)
				onChange()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warn("config watch", "err", err)
			}
		}
	}()
	return func() { w.Close() }, nil
}

// controlHandler answers the control socket commands against the running
// engine.
type controlHandler struct {
	engine  *bar.Engine
	comp    *bar.Compositor
	toggle  string
	started time.Time
	request func(runOutcome)
}

// barStatus is the STATUS response.
type barStatus struct {
	PID     int                `json:"pid"`
	Version string             `json:"version"`
	Uptime  string             `json:"uptime"`
	Line    string             `json:"line"`
	Modules []bar.ModuleStatus `json:"modules"`
}

func (h *controlHandler) HandleCommand(cmd string, args []string) (string, error) {
	switch cmd {
	case "STATUS":
		data, err := json.Marshal(barStatus{
			PID:     os.Getpid(),
			Version: version,
			Uptime:  time.Since(h.started).Round(time.Second).String(),
			Line:    h.comp.Line(),
			Modules: h.engine.Status(),
		})
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "TOGGLE":
		name := h.toggle
		if len(args) > 0 {
			name = args[0]
		}
		if name == "" {
			return "", fmt.Errorf("no module to toggle: pass a name or set general.toggle_module")
		}
		on, err := h.engine.Toggle(name)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(map[string]any{"module": name, "toggled": on})
		if err != nil {
			return "", err
		}
		return string(data), nil

	case "RELOAD":
		h.request(outcomeReload)
		return `{"reloading":true}`, nil

	case "QUIT":
		h.request(outcomeQuit)
		return `{"quitting":true}`, nil

	default:
		return "", fmt.Errorf("unknown command %q (STATUS, TOGGLE, RELOAD, QUIT)", cmd)
	}
}
