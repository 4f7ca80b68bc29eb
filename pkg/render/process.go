package render

import (
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

// stopGrace is how long Stop waits for the renderer to exit after SIGTERM
// before killing it.
const stopGrace = 2 * time.Second

// ProcessConfig holds the settings for a renderer Process.
type ProcessConfig struct {
	// Command is the renderer argv, e.g. ["dzen2", "-ta", "r"].
	Command []string

	Logger *slog.Logger

	// OnFatal is called once when the renderer exits on its own. A bar
	// with no renderer has nowhere to draw, so the caller is expected to
	// shut down. Not called after Stop.
	OnFatal func(error)
}

// Process owns the renderer subprocess and the write side of its stdin.
type Process struct {
	cfg ProcessConfig
	log *slog.Logger

	cmd       *exec.Cmd
	stdin     io.WriteCloser
	waitDone  chan struct{}
	stopping  atomic.Bool
	alive     atomic.Bool
	closeOnce sync.Once
}

// NewProcess creates a Process. Start must be called before Stdin is usable.
func NewProcess(cfg ProcessConfig) *Process {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Process{
		cfg:      cfg,
		log:      cfg.Logger,
		waitDone: make(chan struct{}),
	}
}

// Stdin returns the renderer's input stream. Valid after Start.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdin
}

// Alive reports whether the renderer subprocess is still running.
func (p *Process) Alive() bool {
	return p.alive.Load()
}

// Start spawns the renderer with its stdin piped. A missing binary is
// reported here, before anything is written.
func (p *Process) Start() error {
	if len(p.cfg.Command) == 0 {
		return fmt.Errorf("render: no renderer command configured")
	}

	cmd := exec.Command(p.cfg.Command[0], p.cfg.Command[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("render: stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("render: start %s: %w", p.cfg.Command[0], err)
	}

	p.cmd = cmd
	p.stdin = stdin
	p.alive.Store(true)
	p.log.Info("render: renderer started", "command", p.cfg.Command[0], "pid", cmd.Process.Pid)

	go p.wait()
	return nil
}

// Stop closes the renderer's stdin, terminates it, and waits for it to be
// reaped. Safe to call when Start was never called or the process already
// exited.
func (p *Process) Stop() {
	if p.cmd == nil {
		return
	}
	p.stopping.Store(true)
	p.closeStdin()

	if p.cmd.Process != nil {
		_ = p.cmd.Process.Signal(syscall.SIGTERM)
	}
	select {
	case <-p.waitDone:
	case <-time.After(stopGrace):
		if p.cmd.Process != nil {
			_ = p.cmd.Process.Kill()
		}
		<-p.waitDone
	}
}

// wait reaps the subprocess and reports the loss.
func (p *Process) wait() {
	err := p.cmd.Wait()
	p.alive.Store(false)
	close(p.waitDone)

	if p.stopping.Load() {
		return
	}
	if err == nil {
		err = fmt.Errorf("render: renderer exited")
	} else {
		err = fmt.Errorf("render: renderer exited: %w", err)
	}
	p.log.Error("render: renderer lost", "err", err)
	if p.cfg.OnFatal != nil {
		p.cfg.OnFatal(err)
	}
}

func (p *Process) closeStdin() {
	p.closeOnce.Do(func() {
		if p.stdin != nil {
			_ = p.stdin.Close()
		}
	})
}
