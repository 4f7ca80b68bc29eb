package source

import (
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestBridge() *Bridge {
	return New(Config{
		Command: []string{"true"},
		Logger:  discardLogger(),
	})
}

func drained(ch chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// --- Stream parsing ---

func TestConsumeBuildsSnapshot(t *testing.T) {
	b := newTestBridge()

	input := `{"version":1}
[
[{"name":"battery","full_text":"CHR|85|0.0"},{"name":"wireless","full_text":"W: home 87%"}]
`
	b.consume(strings.NewReader(input))

	snap := b.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d records, want 2", len(snap))
	}
	r, ok := snap.Get("battery")
	if !ok {
		t.Fatal("battery record missing")
	}
	if r.FullText != "CHR|85|0.0" {
		t.Errorf("battery FullText = %q, want %q", r.FullText, "CHR|85|0.0")
	}
}

func TestConsumeLeadingCommaLines(t *testing.T) {
	b := newTestBridge()

	input := `[{"name":"battery","full_text":"CHR|85|0.0"}]
,[{"name":"battery","full_text":"CHR|86|0.0"}]
`
	b.consume(strings.NewReader(input))

	r, _ := b.Snapshot().Get("battery")
	if r.FullText != "CHR|86|0.0" {
		t.Errorf("battery FullText = %q, want last array's value", r.FullText)
	}
}

func TestConsumeSkipsMalformedLines(t *testing.T) {
	b := newTestBridge()

	input := `[{"name":"battery","full_text":"one"}]
[{"name":"battery","full_te
garbage that is not json
,[{"name":"battery","full_text":"two"}]
`
	b.consume(strings.NewReader(input))

	r, ok := b.Snapshot().Get("battery")
	if !ok {
		t.Fatal("battery record missing")
	}
	if r.FullText != "two" {
		t.Errorf("battery FullText = %q, want %q (stream should survive bad lines)", r.FullText, "two")
	}
}

func TestConsumeDuplicateNamesLastWins(t *testing.T) {
	b := newTestBridge()

	input := `[{"name":"battery","full_text":"one"},{"name":"battery","full_text":"two"}]
`
	b.consume(strings.NewReader(input))

	r, _ := b.Snapshot().Get("battery")
	if r.FullText != "two" {
		t.Errorf("battery FullText = %q, want %q", r.FullText, "two")
	}
}

// --- Wake semantics ---

func TestIdenticalArraysWakeOnce(t *testing.T) {
	b := newTestBridge()
	wake := make(chan struct{}, 1)
	b.Subscribe("battery", wake)

	input := `[{"name":"battery","full_text":"CHR|85|0.0"}]
,[{"name":"battery","full_text":"CHR|85|0.0"}]
`
	b.consume(strings.NewReader(input))

	if !drained(wake) {
		t.Fatal("expected one wake for the first array")
	}
	if drained(wake) {
		t.Error("identical repeat array should not wake again")
	}
}

func TestChangedRecordWakes(t *testing.T) {
	b := newTestBridge()
	wake := make(chan struct{}, 1)
	b.Subscribe("battery", wake)

	b.consume(strings.NewReader(`[{"name":"battery","full_text":"CHR|85|0.0"}]` + "\n"))
	if !drained(wake) {
		t.Fatal("expected wake for first appearance")
	}

	b.consume(strings.NewReader(`[{"name":"battery","full_text":"BAT|84|7.5"}]` + "\n"))
	if !drained(wake) {
		t.Error("expected wake for changed record")
	}
}

func TestUnrelatedChangeDoesNotWake(t *testing.T) {
	b := newTestBridge()
	wake := make(chan struct{}, 1)
	b.Subscribe("battery", wake)

	b.consume(strings.NewReader(`[{"name":"battery","full_text":"a"},{"name":"wireless","full_text":"w1"}]` + "\n"))
	if !drained(wake) {
		t.Fatal("expected wake for first appearance")
	}

	// Only wireless changes.
	b.consume(strings.NewReader(`,[{"name":"battery","full_text":"a"},{"name":"wireless","full_text":"w2"}]` + "\n"))
	if drained(wake) {
		t.Error("battery subscriber should not wake for a wireless-only change")
	}
}

func TestDisappearedRecordWakes(t *testing.T) {
	b := newTestBridge()
	wake := make(chan struct{}, 1)
	b.Subscribe("battery", wake)

	b.consume(strings.NewReader(`[{"name":"battery","full_text":"a"}]` + "\n"))
	if !drained(wake) {
		t.Fatal("expected wake for first appearance")
	}

	b.consume(strings.NewReader(`,[{"name":"wireless","full_text":"w"}]` + "\n"))
	if !drained(wake) {
		t.Error("expected wake when the record disappears")
	}
	if _, ok := b.Snapshot().Get("battery"); ok {
		t.Error("battery should be gone from the snapshot")
	}
}

func TestMultiNameSubscriberWokenOnce(t *testing.T) {
	b := newTestBridge()
	wake := make(chan struct{}, 1)
	b.Subscribe("wireless", wake)
	b.Subscribe("ethernet", wake)

	// Both names change in one array; the subscriber gets one signal.
	b.consume(strings.NewReader(`[{"name":"wireless","full_text":"w"},{"name":"ethernet","full_text":"e"}]` + "\n"))

	if !drained(wake) {
		t.Fatal("expected a wake")
	}
	if drained(wake) {
		t.Error("one array should produce at most one wake per subscriber")
	}
}

// --- Subprocess lifecycle ---

func TestStartOnFatalWhenStreamEnds(t *testing.T) {
	fatal := make(chan error, 1)
	b := New(Config{
		Command: []string{"sh", "-c", `echo '[{"name":"battery","full_text":"a"}]'`},
		Logger:  discardLogger(),
		OnFatal: func(err error) { fatal <- err },
	})

	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	select {
	case err := <-fatal:
		if err == nil {
			t.Error("OnFatal called with nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("OnFatal not called after stream ended")
	}

	if b.Alive() {
		t.Error("Alive() = true after stream ended")
	}
	r, ok := b.Snapshot().Get("battery")
	if !ok || r.FullText != "a" {
		t.Errorf("snapshot should hold the final records, got %+v ok=%v", r, ok)
	}
}

func TestStopDoesNotCallOnFatal(t *testing.T) {
	fatal := make(chan error, 1)
	b := New(Config{
		Command: []string{"sh", "-c", "sleep 30"},
		Logger:  discardLogger(),
		OnFatal: func(err error) { fatal <- err },
	})

	if err := b.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	b.Stop()

	select {
	case err := <-fatal:
		t.Errorf("OnFatal called on deliberate Stop: %v", err)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStartMissingCommand(t *testing.T) {
	b := New(Config{Logger: discardLogger()})
	if err := b.Start(); err == nil {
		t.Error("Start with empty command should fail")
	}
}

func TestStopWithoutStart(t *testing.T) {
	b := newTestBridge()
	// Must not panic or hang.
	b.Stop()
}
