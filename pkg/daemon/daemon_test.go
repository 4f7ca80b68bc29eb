package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

// --- PID file ---

func TestAcquireReleasePID(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.pid")

	if err := AcquirePID(path); err != nil {
		t.Fatalf("AcquirePID: %v", err)
	}

	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("ReadPID = %d, want %d", pid, os.Getpid())
	}

	if err := ReleasePID(path); err != nil {
		t.Fatalf("ReleasePID: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("PID file should be gone after release")
	}
}

func TestAcquirePIDRefusesLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.pid")

	// Our own PID is definitely alive.
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	err := AcquirePID(path)
	if err == nil {
		t.Fatal("AcquirePID should refuse while holder is alive")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Errorf("error should mention already running, got: %v", err)
	}
}

func TestAcquirePIDReplacesStaleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.pid")

	// A PID that cannot be a live process.
	if err := os.WriteFile(path, []byte("999999999"), 0o644); err != nil {
		t.Fatalf("write pid: %v", err)
	}

	if err := AcquirePID(path); err != nil {
		t.Fatalf("AcquirePID over stale file: %v", err)
	}
	pid, err := ReadPID(path)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Errorf("ReadPID = %d, want %d", pid, os.Getpid())
	}
	_ = ReleasePID(path)
}

func TestReleasePIDMissingIsNoError(t *testing.T) {
	if err := ReleasePID(filepath.Join(t.TempDir(), "never.pid")); err != nil {
		t.Errorf("ReleasePID(missing) error: %v", err)
	}
}

func TestIsProcessAlive(t *testing.T) {
	if !IsProcessAlive(os.Getpid()) {
		t.Error("IsProcessAlive(self) = false, want true")
	}
	if IsProcessAlive(0) {
		t.Error("IsProcessAlive(0) = true, want false")
	}
	if IsProcessAlive(-5) {
		t.Error("IsProcessAlive(-5) = true, want false")
	}
}

// --- Control socket ---

// testHandler echoes commands and errors on demand.
type testHandler struct {
	lastCmd  string
	lastArgs []string
}

func (h *testHandler) HandleCommand(cmd string, args []string) (string, error) {
	h.lastCmd = cmd
	h.lastArgs = args
	switch cmd {
	case "STATUS":
		return `{"modules": []}`, nil
	case "TOGGLE":
		return fmt.Sprintf(`{"ok": true, "module": %q}`, strings.Join(args, " ")), nil
	case "BOOM":
		return "", fmt.Errorf("it broke")
	}
	return `{"ok": true}`, nil
}

func startTestServer(t *testing.T) (*ControlServer, *ControlClient, *testHandler) {
	t.Helper()
	// Socket paths have a low length limit; keep it short.
	sock := filepath.Join(os.TempDir(), fmt.Sprintf("sbar-test-%d.sock", os.Getpid()))
	h := &testHandler{}
	srv := NewControlServer(sock, h)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(srv.Stop)
	return srv, NewControlClient(sock), h
}

func TestControlRoundTrip(t *testing.T) {
	_, client, h := startTestServer(t)

	resp, err := client.SendCommand("STATUS")
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if h.lastCmd != "STATUS" {
		t.Errorf("handler saw cmd %q, want STATUS", h.lastCmd)
	}
	// Response must be compacted to one line.
	if resp != `{"modules":[]}` {
		t.Errorf("response = %q, want %q", resp, `{"modules":[]}`)
	}
}

func TestControlCommandUppercasedWithArgs(t *testing.T) {
	_, client, h := startTestServer(t)

	if _, err := client.SendCommand("toggle network"); err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if h.lastCmd != "TOGGLE" {
		t.Errorf("handler saw cmd %q, want TOGGLE", h.lastCmd)
	}
	if len(h.lastArgs) != 1 || h.lastArgs[0] != "network" {
		t.Errorf("handler saw args %v, want [network]", h.lastArgs)
	}
}

func TestControlHandlerErrorBecomesJSON(t *testing.T) {
	_, client, _ := startTestServer(t)

	resp, err := client.SendCommand("BOOM")
	if err != nil {
		t.Fatalf("SendCommand: %v", err)
	}
	if !strings.Contains(resp, `"error"`) || !strings.Contains(resp, "it broke") {
		t.Errorf("response = %q, want error JSON", resp)
	}
}

func TestControlClientNoServer(t *testing.T) {
	client := NewControlClient(filepath.Join(t.TempDir(), "nope.sock"))
	if _, err := client.SendCommand("STATUS"); err == nil {
		t.Error("SendCommand should fail with no server")
	}
}

// --- Default paths ---

func TestDefaultPathsUseRuntimeDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	if got := DefaultSocketPath(); got != filepath.Join(dir, "sdorfehs-bar.sock") {
		t.Errorf("DefaultSocketPath() = %q", got)
	}
	if got := DefaultPIDPath(); got != filepath.Join(dir, "sdorfehs-bar.pid") {
		t.Errorf("DefaultPIDPath() = %q", got)
	}
}

func TestDefaultPathsFallBackToTmp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")

	want := filepath.Join(os.TempDir(), fmt.Sprintf("sdorfehs-bar-%d.sock", os.Getuid()))
	if got := DefaultSocketPath(); got != want {
		t.Errorf("DefaultSocketPath() = %q, want %q", got, want)
	}
}
