package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
	"golang.org/x/sys/unix"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/cache"
	"github.com/jcs/sdorfehs-bar/pkg/config"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
	"github.com/jcs/sdorfehs-bar/pkg/modules"
	"github.com/jcs/sdorfehs-bar/pkg/source"
	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

// oneshotTimeout bounds the whole preview render, shared across modules.
// Slow fetchers surface as a "!" fragment instead of a hung command.
const oneshotTimeout = 20 * time.Second

// runOneshot renders every enabled module once and prints the composed
// line to stdout. There is no aggregator in this mode, so record-driven
// modules see an empty snapshot and hide themselves.
func runOneshot(cfg *config.Config, log *slog.Logger) error {
	palette, err := theme.Resolve(cfg.General.Palette, config.ConfigDir())
	if err != nil {
		return err
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
		return err
	}
	comp := bar.NewCompositor(reg.Names(), separator(cfg, palette))

	ctx, cancel := context.WithTimeout(context.Background(), oneshotTimeout)
	defer cancel()

	for _, spec := range reg.Specs() {
		name := spec.Module.Name()
		frag, err := spec.Module.Render(ctx, bar.View{
			Snapshot: source.Snapshot{},
			Palette:  palette,
			Toggled:  spec.Toggled,
		})
		if err != nil {
			log.Warn("render failed", "module", name, "err", err)
			frag = markup.Fg(palette.Dim, name) + markup.Fg(palette.Crit, "!")
		}
		comp.Set(name, frag)
	}

	// A one-off print has no blink timer, so show the lit phase.
	lit, _ := markup.SplitBlink(comp.Line(), palette.Dim)
	_, err = fmt.Fprintln(os.Stdout, renderForTerminal(lit))
	return err
}

// renderForTerminal adapts dzen markup for stdout: real colors truncated
// to the terminal width on a TTY, plain text when piped.
func renderForTerminal(line string) string {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return markup.Strip(line)
	}
	out := markup.ANSI(line, termenv.ColorProfile())
	if ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ); err == nil && ws.Col > 0 {
		out = ansi.Truncate(out, int(ws.Col), "…")
	}
	return out
}
