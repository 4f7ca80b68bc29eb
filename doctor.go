package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/lipgloss"
	"k8s.io/client-go/tools/clientcmd"
	"tailscale.com/paths"

	"github.com/jcs/sdorfehs-bar/pkg/config"
	"github.com/jcs/sdorfehs-bar/pkg/daemon"
	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

type checkLevel int

const (
	checkOK checkLevel = iota
	checkWarn
	checkFail
)

type checkResult struct {
	name    string
	message string
	level   checkLevel
}

// doctor accumulates environment checks. Failed checks are things the bar
// cannot run without; warnings are features that would degrade at runtime.
type doctor struct {
	results []checkResult
	failed  bool
}

func (d *doctor) ok(name, msg string) {
	d.results = append(d.results, checkResult{name, msg, checkOK})
}

func (d *doctor) warn(name, msg string) {
	d.results = append(d.results, checkResult{name, msg, checkWarn})
}

func (d *doctor) fail(name, msg string) {
	d.results = append(d.results, checkResult{name, msg, checkFail})
	d.failed = true
}

// runDoctor checks the config and the host environment and prints a
// report. It returns the process exit code: 0 when the bar would start,
// 1 when a hard check failed.
func runDoctor(w io.Writer, cfg *config.Config, configPath string) int {
	d := &doctor{}

	if path := resolvedConfigPath(configPath); path != "" {
		d.ok("config", path)
	} else {
		d.ok("config", "built-in defaults (no config file)")
	}

	if err := cfg.Validate(); err != nil {
		d.fail("validate", err.Error())
	} else {
		d.ok("validate", "config is valid")
	}

	if _, err := theme.Resolve(cfg.General.Palette, config.ConfigDir()); err != nil {
		d.fail("palette", err.Error())
	} else {
		d.ok("palette", cfg.General.Palette)
	}

	d.checkBinary("aggregator", cfg.General.SourceCommand)
	d.checkBinary("renderer", cfg.General.RenderCommand)
	d.checkCacheDir(cfg.General.CacheDir)
	d.checkInstance(cfg)

	if cfg.Modules.Kubernetes.Enabled {
		d.checkKubeconfig(cfg.Modules.Kubernetes.Kubeconfig)
	}
	if cfg.Modules.Tailscale.Enabled {
		d.checkTailscaled(cfg.Modules.Tailscale.Socket)
	}

	d.print(w)
	if d.failed {
		return 1
	}
	return 0
}

func (d *doctor) checkBinary(name string, argv []string) {
	if len(argv) == 0 || argv[0] == "" {
		d.fail(name, "no command configured")
		return
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		d.fail(name, fmt.Sprintf("%s not found in PATH", argv[0]))
		return
	}
	d.ok(name, path)
}

func (d *doctor) checkCacheDir(dir string) {
	if dir == "" {
		d.warn("cache", "no cache directory; network modules lose their stale fallback")
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		d.warn("cache", err.Error())
		return
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		d.warn("cache", fmt.Sprintf("%s is not writable: %v", dir, err))
		return
	}
	probe.Close()
	os.Remove(probe.Name())
	d.ok("cache", dir)
}

func (d *doctor) checkInstance(cfg *config.Config) {
	pidPath := cfg.General.PIDFile
	if pidPath == "" {
		pidPath = daemon.DefaultPIDPath()
	}
	pid, err := daemon.ReadPID(pidPath)
	if err != nil {
		d.ok("instance", "not running")
		return
	}
	if daemon.IsProcessAlive(pid) {
		d.ok("instance", fmt.Sprintf("running (pid %d, socket %s)", pid, socketPath(cfg)))
		return
	}
	d.warn("instance", fmt.Sprintf("stale pid file %s (pid %d is gone)", pidPath, pid))
}

func (d *doctor) checkKubeconfig(explicit string) {
	path := explicit
	if path == "" {
		path = clientcmd.RecommendedHomeFile
	}
	if _, err := os.Stat(path); err != nil {
		d.warn("kubernetes", fmt.Sprintf("kubeconfig %s not readable; module will report an error", path))
		return
	}
	d.ok("kubernetes", path)
}

func (d *doctor) checkTailscaled(socket string) {
	if socket == "" {
		socket = paths.DefaultTailscaledSocket()
	}
	if _, err := os.Stat(socket); err != nil {
		d.warn("tailscale", fmt.Sprintf("tailscaled socket %s not found; module will report an error", socket))
		return
	}
	d.ok("tailscale", socket)
}

func (d *doctor) print(w io.Writer) {
	titleStyle := lipgloss.NewStyle().Bold(true)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	failStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle := lipgloss.NewStyle().Faint(true)

	fmt.Fprintln(w, titleStyle.Render("sdorfehs-bar doctor"))
	for _, r := range d.results {
		var mark string
		switch r.level {
		case checkWarn:
			mark = warnStyle.Render("⚠")
		case checkFail:
			mark = failStyle.Render("✗")
		default:
			mark = okStyle.Render("✓")
		}
		fmt.Fprintf(w, "%s %-10s %s\n", mark, r.name, dimStyle.Render(r.message))
	}

	fmt.Fprintln(w)
	if d.failed {
		fmt.Fprintln(w, failStyle.Render("the bar cannot start; fix the failed checks above"))
	} else {
		fmt.Fprintln(w, okStyle.Render("ready"))
	}
}
