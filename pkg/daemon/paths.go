package daemon

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultSocketPath returns the control socket path for this user:
// $XDG_RUNTIME_DIR/sdorfehs-bar.sock, or a per-UID file under /tmp when no
// runtime dir is set.
func DefaultSocketPath() string {
	return runtimePath("sdorfehs-bar.sock", "sdorfehs-bar-%d.sock")
}

// DefaultPIDPath returns the PID file path for this user, placed next to
// the control socket.
func DefaultPIDPath() string {
	return runtimePath("sdorfehs-bar.pid", "sdorfehs-bar-%d.pid")
}

func runtimePath(name, tmpPattern string) string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, name)
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf(tmpPattern, os.Getuid()))
}
