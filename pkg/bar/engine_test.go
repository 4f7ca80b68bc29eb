package bar

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPalette() theme.Palette {
	return theme.Palette{
		Name:       "test",
		Foreground: "#ffffff",
		Background: "#000000",
		Dim:        "#444444",
		Accent:     "#8888ff",
		Good:       "#00ff00",
		Warn:       "#ffff00",
		Crit:       "#ff0000",
	}
}

// waitFor polls cond until it holds or the test deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// --- fake clock ---

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	ch       chan time.Time
}

func (t *fakeTimer) C() <-chan time.Time { return t.ch }

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	for i, x := range t.clock.timers {
		if x == t {
			t.clock.timers = append(t.clock.timers[:i], t.clock.timers[i+1:]...)
			return true
		}
	}
	return false
}

// fakeClock drives engine timers from the test. Advance moves time and
// fires due timers; BlockUntil waits for the engine goroutines to have n
// timers armed, which is how the test knows a render cycle finished.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTimer(d time.Duration) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), ch: make(chan time.Time, 1)}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now
	var due []*fakeTimer
	keep := c.timers[:0]
	for _, t := range c.timers {
		if t.deadline.After(now) {
			keep = append(keep, t)
		} else {
			due = append(due, t)
		}
	}
	c.timers = keep
	c.mu.Unlock()

	for _, t := range due {
		t.ch <- now
	}
}

func (c *fakeClock) BlockUntil(t *testing.T, n int) {
	t.Helper()
	waitFor(t, "timers to be armed", func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		return len(c.timers) >= n
	})
}

// --- test modules ---

// countModule renders a fixed fragment and counts calls.
type countModule struct {
	name string
	out  string
	n    atomic.Int64
}

func (m *countModule) Name() string { return m.name }
func (m *countModule) Render(context.Context, View) (string, error) {
	m.n.Add(1)
	return m.out, nil
}

// scriptModule replays a list of results, repeating the last one.
type scriptResult struct {
	out string
	err error
}

type scriptModule struct {
	name   string
	mu     sync.Mutex
	script []scriptResult
	i      int
	n      atomic.Int64
}

func (m *scriptModule) Name() string { return m.name }
func (m *scriptModule) Render(context.Context, View) (string, error) {
	m.n.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.script[m.i]
	if m.i < len(m.script)-1 {
		m.i++
	}
	return r.out, r.err
}

// toggleModule echoes its toggle flag.
type toggleModule struct {
	name string
}

func (m *toggleModule) Name() string { return m.name }
func (m *toggleModule) Render(_ context.Context, v View) (string, error) {
	if v.Toggled {
		return "on", nil
	}
	return "off", nil
}

// --- harness ---

type engineHarness struct {
	eng  *Engine
	comp *Compositor
	subs map[string][]chan<- struct{}
}

func startEngine(t *testing.T, clock Clock, specs ...Spec) *engineHarness {
	t.Helper()

	reg := NewRegistry()
	for _, s := range specs {
		if err := reg.Register(s); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	h := &engineHarness{
		comp: NewCompositor(reg.Names(), " | "),
		subs: map[string][]chan<- struct{}{},
	}
	h.eng = NewEngine(EngineConfig{
		Registry:   reg,
		Compositor: h.comp,
		Palette:    testPalette(),
		Logger:     discardLogger(),
		Clock:      clock,
		Subscribe: func(name string, wake chan<- struct{}) {
			h.subs[name] = append(h.subs[name], wake)
		},
	})
	h.eng.Start(context.Background())
	t.Cleanup(func() {
		if !h.eng.Stop(2 * time.Second) {
			t.Error("engine goroutines did not stop")
		}
	})
	return h
}

// wakeSource simulates a record change for name.
func (h *engineHarness) wakeSource(name string) {
	for _, ch := range h.subs[name] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// --- tests ---

func TestEngineRendersEveryModuleAtStart(t *testing.T) {
	a := &countModule{name: "a", out: "A"}
	b := &countModule{name: "b", out: "B"}
	h := startEngine(t, nil, Spec{Module: a}, Spec{Module: b})

	waitFor(t, "initial line", func() bool { return h.comp.Line() == "A | B" })

	if a.n.Load() != 1 || b.n.Load() != 1 {
		t.Errorf("render counts = %d, %d, want 1, 1", a.n.Load(), b.n.Load())
	}
}

func TestEngineCadences(t *testing.T) {
	fc := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	fast := &countModule{name: "fast", out: "f"}
	slow := &countModule{name: "slow", out: "s"}
	once := &countModule{name: "once", out: "o"}
	startEngine(t, fc,
		Spec{Module: fast, Every: time.Second},
		Spec{Module: slow, Every: 5 * time.Second},
		Spec{Module: once},
	)

	waitFor(t, "initial renders", func() bool {
		return fast.n.Load() == 1 && slow.n.Load() == 1 && once.n.Load() == 1
	})

	// Walk five seconds in one-second steps. The fast module re-renders
	// each step, the slow one on the fifth, the parked one never.
	for i := 1; i <= 5; i++ {
		fc.BlockUntil(t, 2)
		fc.Advance(time.Second)
		want := int64(1 + i)
		waitFor(t, "fast render", func() bool { return fast.n.Load() == want })
	}

	waitFor(t, "slow render", func() bool { return slow.n.Load() == 2 })
	if got := once.n.Load(); got != 1 {
		t.Errorf("parked module rendered %d times, want 1", got)
	}
}

func TestEngineSourceWake(t *testing.T) {
	m := &countModule{name: "battery", out: "bat"}
	h := startEngine(t, nil, Spec{Module: m, Sources: []string{"battery"}})

	waitFor(t, "initial render", func() bool { return m.n.Load() == 1 })

	if len(h.subs["battery"]) != 1 {
		t.Fatalf("engine subscribed %d channels for battery, want 1", len(h.subs["battery"]))
	}

	h.wakeSource("battery")
	waitFor(t, "wake render", func() bool { return m.n.Load() == 2 })
}

func TestEngineErrorKeepsLastGood(t *testing.T) {
	m := &scriptModule{name: "weather", script: []scriptResult{
		{out: "21C", err: nil},
		{out: "", err: errors.New("fetch failed")},
	}}
	h := startEngine(t, nil, Spec{Module: m, Sources: []string{"weather"}})

	waitFor(t, "good render", func() bool { return h.comp.Line() == "21C" })

	marker := "^fg(#ff0000)!^fg()"

	h.wakeSource("weather")
	waitFor(t, "fallback render", func() bool { return h.comp.Line() == "21C"+marker })

	// Another failure must not stack markers: the stored good fragment
	// is never replaced by a fallback.
	h.wakeSource("weather")
	waitFor(t, "third render", func() bool { return m.n.Load() == 3 })
	if got := h.comp.Line(); got != "21C"+marker {
		t.Errorf("Line() = %q, want %q", got, "21C"+marker)
	}

	st := h.eng.Status()
	if len(st) != 1 || !st[0].Failing {
		t.Errorf("Status() = %+v, want failing module", st)
	}
	if st[0].LastError != "fetch failed" {
		t.Errorf("LastError = %q, want %q", st[0].LastError, "fetch failed")
	}
}

func TestEngineErrorBeforeAnyGoodShowsName(t *testing.T) {
	m := &scriptModule{name: "weather", script: []scriptResult{
		{out: "", err: errors.New("fetch failed")},
	}}
	h := startEngine(t, nil, Spec{Module: m})

	want := "^fg(#444444)weather^fg()" + "^fg(#ff0000)!^fg()"
	waitFor(t, "fallback render", func() bool { return h.comp.Line() == want })
}

func TestEngineRecoveryClearsMarker(t *testing.T) {
	m := &scriptModule{name: "crypto", script: []scriptResult{
		{out: "btc 60k", err: nil},
		{out: "", err: errors.New("api down")},
		{out: "btc 61k", err: nil},
	}}
	h := startEngine(t, nil, Spec{Module: m, Sources: []string{"crypto"}})

	waitFor(t, "good render", func() bool { return h.comp.Line() == "btc 60k" })
	h.wakeSource("crypto")
	waitFor(t, "fallback render", func() bool { return strings.HasSuffix(h.comp.Line(), "!^fg()") })
	h.wakeSource("crypto")
	waitFor(t, "recovered render", func() bool { return h.comp.Line() == "btc 61k" })

	st := h.eng.Status()
	if st[0].Failing {
		t.Error("module should not be failing after recovery")
	}
	if st[0].Errors != 1 || st[0].Renders != 3 {
		t.Errorf("Renders/Errors = %d/%d, want 3/1", st[0].Renders, st[0].Errors)
	}
}

func TestEngineRetryCadenceWhileFailing(t *testing.T) {
	fc := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	m := &scriptModule{name: "weather", script: []scriptResult{
		{out: "", err: errors.New("down")},
		{out: "ok", err: nil},
	}}
	startEngine(t, fc, Spec{Module: m, Every: time.Hour, Retry: time.Second})

	waitFor(t, "initial render", func() bool { return m.n.Load() == 1 })

	// Failing: the retry cadence applies.
	fc.BlockUntil(t, 1)
	fc.Advance(time.Second)
	waitFor(t, "retry render", func() bool { return m.n.Load() == 2 })

	// Recovered: back to the hourly cadence, so one second is not enough.
	fc.BlockUntil(t, 1)
	fc.Advance(time.Second)
	time.Sleep(20 * time.Millisecond)
	if got := m.n.Load(); got != 2 {
		t.Errorf("render count = %d, want 2 (hourly cadence after recovery)", got)
	}
}

func TestEngineSchedule(t *testing.T) {
	fc := newFakeClock(time.Date(2026, 3, 1, 12, 0, 30, 0, time.UTC))
	sched, err := cron.ParseStandard("* * * * *")
	if err != nil {
		t.Fatalf("ParseStandard: %v", err)
	}
	m := &countModule{name: "clock", out: "12:00"}
	startEngine(t, fc, Spec{Module: m, Schedule: sched})

	waitFor(t, "initial render", func() bool { return m.n.Load() == 1 })

	// 30 seconds to the next minute boundary.
	fc.BlockUntil(t, 1)
	fc.Advance(30 * time.Second)
	waitFor(t, "minute render", func() bool { return m.n.Load() == 2 })
}

func TestEngineToggle(t *testing.T) {
	m := &toggleModule{name: "network"}
	h := startEngine(t, nil, Spec{Module: m})

	waitFor(t, "initial render", func() bool { return h.comp.Line() == "off" })

	on, err := h.eng.Toggle("network")
	if err != nil {
		t.Fatalf("Toggle: %v", err)
	}
	if !on {
		t.Error("Toggle should report the new state true")
	}
	waitFor(t, "toggled render", func() bool { return h.comp.Line() == "on" })

	if _, err := h.eng.Toggle("nonesuch"); err == nil {
		t.Error("Toggle(unknown) should fail")
	}
}

func TestEngineWake(t *testing.T) {
	m := &countModule{name: "cpu", out: "c"}
	h := startEngine(t, nil, Spec{Module: m})

	waitFor(t, "initial render", func() bool { return m.n.Load() == 1 })

	if err := h.eng.Wake("cpu"); err != nil {
		t.Fatalf("Wake: %v", err)
	}
	waitFor(t, "woken render", func() bool { return m.n.Load() == 2 })

	if err := h.eng.Wake("nonesuch"); err == nil {
		t.Error("Wake(unknown) should fail")
	}
}

func TestEngineStatusOrder(t *testing.T) {
	h := startEngine(t, nil,
		Spec{Module: &countModule{name: "weather", out: "w"}},
		Spec{Module: &countModule{name: "clock", out: "c"}},
	)

	waitFor(t, "initial line", func() bool { return h.comp.Line() == "w | c" })

	st := h.eng.Status()
	if len(st) != 2 || st[0].Name != "weather" || st[1].Name != "clock" {
		t.Errorf("Status() order = %+v, want weather then clock", st)
	}
	if st[0].Renders < 1 {
		t.Errorf("Status()[0].Renders = %d, want >= 1", st[0].Renders)
	}
}
