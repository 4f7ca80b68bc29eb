// Package bar defines the module contract and the machinery that runs
// modules: a registry of specs, a per-module execution engine with timed,
// scheduled, and event-driven wakes, and a compositor that folds fragments
// into the single line handed to the renderer. Each module (clock, battery,
// weather, ...) implements the Module interface in a sub-package and is
// registered at startup in the order the bar displays them.
package bar

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jcs/sdorfehs-bar/pkg/source"
	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

// Module is a single fragment producer.
type Module interface {
	// Name returns a unique identifier for this module (e.g. "battery").
	Name() string

	// Render produces the module's fragment as raw markup. An empty
	// string with a nil error hides the fragment. Render is called from
	// the module's own goroutine and must honor ctx.
	Render(ctx context.Context, v View) (string, error)
}

// View is everything a module may read while rendering.
type View struct {
	// Snapshot holds the latest aggregator records.
	Snapshot source.Snapshot

	// Palette carries the colors for this bar run.
	Palette theme.Palette

	// Toggled reports the state of the module's toggle flag.
	Toggled bool
}

// Spec binds a module to its wake sources.
type Spec struct {
	Module Module

	// Every re-renders the module at this cadence. Zero means no timed
	// wake.
	Every time.Duration

	// Retry replaces Every while the module is failing, so a module with
	// a long cadence does not stay wrong for a whole period. Zero keeps
	// Every.
	Retry time.Duration

	// Sources are the aggregator record names whose changes wake the
	// module.
	Sources []string

	// Schedule is an optional cron wake used alongside Every, e.g. to
	// align a clock to minute boundaries. Nil means none.
	Schedule cron.Schedule

	// Toggled is the initial state of the module's toggle flag.
	Toggled bool
}

// ModuleStatus tracks the runtime state of a single module. The engine
// updates this after every render and serves it over the control socket.
type ModuleStatus struct {
	Name       string    `json:"name"`
	Failing    bool      `json:"failing"`
	LastRender time.Time `json:"last_render"`
	LastError  string    `json:"last_error,omitempty"`
	Renders    int64     `json:"renders"`
	Errors     int64     `json:"errors"`
	Toggled    bool      `json:"toggled"`
	Fragment   string    `json:"fragment,omitempty"`
}
