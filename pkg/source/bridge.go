package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// stopGrace is how long Stop waits for the aggregator to exit after
// SIGTERM before killing it.
const stopGrace = 2 * time.Second

// Config holds the settings for a Bridge.
type Config struct {
	// Command is the aggregator argv, e.g. ["i3status"].
	Command []string

	Logger *slog.Logger

	// OnFatal is called once when the aggregator stream ends on its own.
	// A bar without its data plane is dead weight, so the caller is
	// expected to shut down. Not called after Stop.
	OnFatal func(error)
}

// Bridge owns the aggregator subprocess and the latest Snapshot of its
// output. Subscriptions must be registered before Start.
type Bridge struct {
	cfg Config
	log *slog.Logger

	mu   sync.RWMutex
	snap Snapshot
	subs map[string][]chan<- struct{}

	cmd      *exec.Cmd
	stdout   io.ReadCloser
	waitDone chan struct{}
	stopping atomic.Bool
	alive    atomic.Bool
}

// New creates a Bridge. Start must be called before records flow.
func New(cfg Config) *Bridge {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Bridge{
		cfg:      cfg,
		log:      cfg.Logger,
		snap:     Snapshot{},
		subs:     map[string][]chan<- struct{}{},
		waitDone: make(chan struct{}),
	}
}

// Subscribe registers a wake channel for a record name. The bridge sends a
// non-blocking signal whenever that record appears, changes, or disappears;
// a full channel means a wake is already pending and the send is dropped.
func (b *Bridge) Subscribe(name string, wake chan<- struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[name] = append(b.subs[name], wake)
}

// Snapshot returns a copy of the latest records.
func (b *Bridge) Snapshot() Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap := make(Snapshot, len(b.snap))
	for k, v := range b.snap {
		snap[k] = v
	}
	return snap
}

// Alive reports whether the aggregator subprocess is still feeding records.
func (b *Bridge) Alive() bool {
	return b.alive.Load()
}

// Start spawns the aggregator and begins consuming its output.
func (b *Bridge) Start() error {
	if len(b.cfg.Command) == 0 {
		return fmt.Errorf("source: no aggregator command configured")
	}

	cmd := exec.Command(b.cfg.Command[0], b.cfg.Command[1:]...)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("source: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("source: start %s: %w", b.cfg.Command[0], err)
	}

	b.cmd = cmd
	b.stdout = stdout
	b.alive.Store(true)
	b.log.Info("source: aggregator started", "command", b.cfg.Command[0], "pid", cmd.Process.Pid)

	go b.run()
	return nil
}

// Stop terminates the aggregator and waits for it to be reaped. Safe to
// call when Start was never called or the process already exited.
func (b *Bridge) Stop() {
	if b.cmd == nil {
		return
	}
	b.stopping.Store(true)

	if b.cmd.Process != nil {
		_ = b.cmd.Process.Signal(syscall.SIGTERM)
	}
	select {
	case <-b.waitDone:
	case <-time.After(stopGrace):
		if b.cmd.Process != nil {
			_ = b.cmd.Process.Kill()
		}
		<-b.waitDone
	}
}

// run consumes the stream, then reaps the subprocess and reports the loss.
func (b *Bridge) run() {
	b.consume(b.stdout)

	err := b.cmd.Wait()
	b.alive.Store(false)
	close(b.waitDone)

	if b.stopping.Load() {
		return
	}
	if err == nil {
		err = fmt.Errorf("source: aggregator exited")
	} else {
		err = fmt.Errorf("source: aggregator exited: %w", err)
	}
	b.log.Error("source: stream ended", "err", err)
	if b.cfg.OnFatal != nil {
		b.cfg.OnFatal(err)
	}
}

// consume reads the aggregator stream line by line until EOF. Lines that
// are not record arrays (the version header, the array opener, partial
// writes) are skipped; the stream stays on whatever it last parsed.
func (b *Bridge) consume(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		line = bytes.TrimPrefix(line, []byte(","))
		line = bytes.TrimSuffix(line, []byte(","))
		if len(line) == 0 || line[0] != '[' {
			continue
		}

		var records []Record
		if err := json.Unmarshal(line, &records); err != nil {
			b.log.Debug("source: skipping malformed line", "err", err)
			continue
		}
		b.apply(records)
	}
	if err := scanner.Err(); err != nil {
		b.log.Warn("source: read error", "err", err)
	}
}

// apply installs records as the new snapshot and wakes the subscribers of
// every record that appeared, changed, or went away. A module subscribed
// to several changed names is woken once.
func (b *Bridge) apply(records []Record) {
	next := make(Snapshot, len(records))
	for _, r := range records {
		next[r.Name] = r
	}

	b.mu.Lock()
	var changed []string
	for name, r := range next {
		if old, ok := b.snap[name]; !ok || old != r {
			changed = append(changed, name)
		}
	}
	for name := range b.snap {
		if _, ok := next[name]; !ok {
			changed = append(changed, name)
		}
	}
	b.snap = next

	wakes := map[chan<- struct{}]bool{}
	for _, name := range changed {
		for _, ch := range b.subs[name] {
			wakes[ch] = true
		}
	}
	b.mu.Unlock()

	for ch := range wakes {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
