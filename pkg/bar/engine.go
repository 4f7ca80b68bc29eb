package bar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jcs/sdorfehs-bar/pkg/markup"
	"github.com/jcs/sdorfehs-bar/pkg/source"
	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

// defaultRenderTimeout bounds a single Render call so one stuck module
// cannot wedge its goroutine forever.
const defaultRenderTimeout = 15 * time.Second

// EngineConfig holds the dependencies of an Engine.
type EngineConfig struct {
	Registry   *Registry
	Compositor *Compositor
	Palette    theme.Palette

	// Snapshots supplies the latest aggregator records for each render.
	// Nil gives modules an empty snapshot.
	Snapshots func() source.Snapshot

	// Subscribe registers a wake channel for an aggregator record name.
	// The engine calls it once per source name at Start; the bridge's
	// Subscribe fits here.
	Subscribe func(name string, wake chan<- struct{})

	Logger *slog.Logger

	// Clock drives timed wakes; nil uses the time package. Tests inject
	// a fake.
	Clock Clock

	// RenderTimeout bounds a single Render call. Zero picks the default.
	RenderTimeout time.Duration
}

// Engine runs one goroutine per registered module. Every module renders
// once at start and then sleeps until its cadence timer, cron schedule, or
// a subscribed record change wakes it. Each wake channel holds at most one
// pending signal, so wakes that arrive while a module is already rendering
// coalesce into a single follow-up render.
type Engine struct {
	cfg     EngineConfig
	log     *slog.Logger
	clock   Clock
	timeout time.Duration

	mu     sync.Mutex
	states []*moduleState
	byName map[string]*moduleState

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// moduleState is the engine's bookkeeping for one module. All mutable
// fields are guarded by Engine.mu; the wake channel is owned by the
// module's goroutine and signaled by anyone.
type moduleState struct {
	spec Spec
	wake chan struct{}

	toggled    bool
	failing    bool
	lastGood   string
	lastErr    string
	lastRender time.Time
	renders    int64
	errors     int64
	fragment   string
}

// NewEngine builds an Engine over the registry's specs.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = NewClock()
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = defaultRenderTimeout
	}

	e := &Engine{
		cfg:     cfg,
		log:     cfg.Logger,
		clock:   cfg.Clock,
		timeout: cfg.RenderTimeout,
		byName:  make(map[string]*moduleState),
	}
	for _, spec := range cfg.Registry.Specs() {
		st := &moduleState{
			spec:    spec,
			wake:    make(chan struct{}, 1),
			toggled: spec.Toggled,
		}
		e.states = append(e.states, st)
		e.byName[spec.Module.Name()] = st
	}
	return e
}

// Start subscribes the source-driven modules and launches one goroutine
// per module. Each module renders immediately.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	for _, st := range e.states {
		if e.cfg.Subscribe != nil {
			for _, name := range st.spec.Sources {
				e.cfg.Subscribe(name, st.wake)
			}
		}
		e.wg.Add(1)
		go e.runModule(ctx, st)
	}
}

// Stop cancels all module goroutines and waits up to grace for them to
// finish. It reports whether the join completed; a false return means a
// module ignored cancellation and its goroutine was abandoned.
func (e *Engine) Stop(grace time.Duration) bool {
	if e.cancel == nil {
		return true
	}
	e.cancel()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

// Toggle flips the named module's toggle flag and wakes it. It returns the
// new state.
func (e *Engine) Toggle(name string) (bool, error) {
	e.mu.Lock()
	st, ok := e.byName[name]
	if !ok {
		e.mu.Unlock()
		return false, fmt.Errorf("bar: unknown module %q", name)
	}
	st.toggled = !st.toggled
	now := st.toggled
	e.mu.Unlock()

	wakeSignal(st.wake)
	return now, nil
}

// Wake nudges the named module to render now.
func (e *Engine) Wake(name string) error {
	e.mu.Lock()
	st, ok := e.byName[name]
	e.mu.Unlock()
	if !ok {
		return fmt.Errorf("bar: unknown module %q", name)
	}
	wakeSignal(st.wake)
	return nil
}

// Status returns a snapshot of every module's runtime state in display
// order.
func (e *Engine) Status() []ModuleStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ModuleStatus, 0, len(e.states))
	for _, st := range e.states {
		out = append(out, ModuleStatus{
			Name:       st.spec.Module.Name(),
			Failing:    st.failing,
			LastRender: st.lastRender,
			LastError:  st.lastErr,
			Renders:    st.renders,
			Errors:     st.errors,
			Toggled:    st.toggled,
			Fragment:   st.fragment,
		})
	}
	return out
}

// runModule is the per-module loop: render, sleep until something wants a
// re-render, repeat. A module with no cadence, no schedule, and no sources
// renders once and then only wakes for Toggle or Wake.
func (e *Engine) runModule(ctx context.Context, st *moduleState) {
	defer e.wg.Done()

	e.renderOnce(ctx, st)
	for {
		var timer Timer
		var timerC <-chan time.Time
		if d, ok := e.nextWait(st); ok {
			timer = e.clock.NewTimer(d)
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case <-st.wake:
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}

		e.renderOnce(ctx, st)
	}
}

// nextWait computes how long the module may sleep before its next timed
// render. The failing cadence substitutes Retry for Every; a cron schedule
// competes with the cadence and the earlier one wins.
func (e *Engine) nextWait(st *moduleState) (time.Duration, bool) {
	e.mu.Lock()
	failing := st.failing
	e.mu.Unlock()

	every := st.spec.Every
	if failing && st.spec.Retry > 0 {
		every = st.spec.Retry
	}

	d := every
	have := every > 0
	if st.spec.Schedule != nil {
		now := e.clock.Now()
		if next := st.spec.Schedule.Next(now); !next.IsZero() {
			if cd := next.Sub(now); !have || cd < d {
				d, have = cd, true
			}
		}
	}
	return d, have
}

// renderOnce calls the module and installs the result in the compositor.
// Failures keep the previous good fragment on screen with a marker
// appended; the stored good fragment itself is never overwritten by a
// fallback.
func (e *Engine) renderOnce(ctx context.Context, st *moduleState) {
	e.mu.Lock()
	view := View{Palette: e.cfg.Palette, Toggled: st.toggled}
	e.mu.Unlock()
	if e.cfg.Snapshots != nil {
		view.Snapshot = e.cfg.Snapshots()
	} else {
		view.Snapshot = source.Snapshot{}
	}

	rctx, cancel := context.WithTimeout(ctx, e.timeout)
	out, err := st.spec.Module.Render(rctx, view)
	cancel()

	if err != nil && ctx.Err() != nil {
		// Shutting down; a canceled render is not a module failure.
		return
	}

	name := st.spec.Module.Name()

	e.mu.Lock()
	st.lastRender = e.clock.Now()
	st.renders++
	var fragment string
	if err != nil {
		st.errors++
		st.failing = true
		st.lastErr = err.Error()
		fragment = errorFragment(name, st.lastGood, e.cfg.Palette)
	} else {
		st.failing = false
		st.lastErr = ""
		st.lastGood = out
		fragment = out
	}
	st.fragment = fragment
	e.mu.Unlock()

	if err != nil {
		e.log.Warn("bar: module render failed", "module", name, "err", err)
	}

	if e.cfg.Compositor != nil {
		e.cfg.Compositor.Set(name, fragment)
	}
}

// errorFragment is what a failing module shows: its last good content with
// a failure marker, or its dimmed name when it has never produced content.
func errorFragment(name, lastGood string, p theme.Palette) string {
	marker := markup.Fg(p.Crit, "!")
	if lastGood != "" {
		return lastGood + marker
	}
	return markup.Fg(p.Dim, name) + marker
}

// wakeSignal delivers a coalescing wake: if a signal is already pending
// the new one is dropped.
func wakeSignal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
