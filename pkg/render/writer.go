// Package render owns the write side of the bar: the renderer subprocess
// (dzen2 or compatible) and the writer loop that feeds composed lines to
// its stdin, expanding blink regions into timed lit/dark emissions.
package render

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

const (
	defaultBlinkOn  = 800 * time.Millisecond
	defaultBlinkOff = 400 * time.Millisecond
)

// WriterConfig holds the settings for a Writer.
type WriterConfig struct {
	// Sink is where composed lines go, normally the renderer's stdin.
	Sink io.Writer

	// Line returns the current composed line; Changed signals that it
	// may differ from the last one read.
	Line    func() string
	Changed <-chan struct{}

	// BlinkOn and BlinkOff set the lit and dark phase durations.
	BlinkOn  time.Duration
	BlinkOff time.Duration

	// Dim is the hex color used for the dark phase of blink regions.
	Dim string

	Logger *slog.Logger

	// OnFatal is called when a write to the sink fails, which means the
	// renderer is gone. Not called after Stop.
	OnFatal func(error)
}

// Writer is the single consumer of the composed line. It parks on the
// change signal and emits each new line to the sink, running the lit,
// dark, lit sequence when the line contains a blink region.
type Writer struct {
	cfg WriterConfig
	log *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewWriter creates a Writer. Start must be called for lines to flow.
func NewWriter(cfg WriterConfig) *Writer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BlinkOn <= 0 {
		cfg.BlinkOn = defaultBlinkOn
	}
	if cfg.BlinkOff <= 0 {
		cfg.BlinkOff = defaultBlinkOff
	}
	return &Writer{
		cfg:  cfg,
		log:  cfg.Logger,
		done: make(chan struct{}),
	}
}

// Start launches the writer loop. The current line is emitted immediately
// so the bar is never blank while waiting for the first change.
func (w *Writer) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop wakes the writer out of any wait and joins its goroutine. The sink
// is not closed; it belongs to the renderer Process.
func (w *Writer) Stop() {
	w.closeOnce.Do(func() {
		close(w.done)
	})
	w.wg.Wait()
}

func (w *Writer) loop() {
	defer w.wg.Done()

	if !w.emit(w.cfg.Line()) {
		return
	}
	for {
		select {
		case <-w.done:
			return
		case <-w.cfg.Changed:
			if !w.emit(w.cfg.Line()) {
				return
			}
		}
	}
}

// emit writes one composed line, expanding a blink region into the
// three-phase sequence. It reports whether the writer should keep running.
func (w *Writer) emit(line string) bool {
	if !markup.HasBlink(line) {
		return w.write(line)
	}

	lit, dark := markup.SplitBlink(line, w.cfg.Dim)
	if !w.write(lit) {
		return false
	}
	if !w.pause(w.cfg.BlinkOn) {
		return false
	}
	if !w.write(dark) {
		return false
	}
	if !w.pause(w.cfg.BlinkOff) {
		return false
	}
	return w.write(lit)
}

func (w *Writer) write(line string) bool {
	if _, err := io.WriteString(w.cfg.Sink, line+"\n"); err != nil {
		select {
		case <-w.done:
			// Shutdown already closed the pipe under us.
			return false
		default:
		}
		err = fmt.Errorf("render: write to renderer: %w", err)
		w.log.Error("render: sink lost", "err", err)
		if w.cfg.OnFatal != nil {
			w.cfg.OnFatal(err)
		}
		return false
	}
	return true
}

// pause sleeps for one blink phase, cut short by shutdown.
func (w *Writer) pause(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-w.done:
		return false
	case <-t.C:
		return true
	}
}
