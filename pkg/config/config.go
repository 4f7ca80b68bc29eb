package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the root of the bar configuration file.
type Config struct {
	General GeneralConfig `toml:"general" yaml:"general"`
	Modules ModulesConfig `toml:"modules" yaml:"modules"`
}

// GeneralConfig holds daemon-wide settings.
type GeneralConfig struct {
	// SourceCommand is the argv of the aggregator subprocess whose JSON
	// output feeds the event-driven modules.
	SourceCommand []string `toml:"source_command" yaml:"source_command"`
	// RenderCommand is the argv of the renderer subprocess the composed
	// bar line is piped to.
	RenderCommand []string `toml:"render_command" yaml:"render_command"`

	LogLevel string `toml:"log_level" yaml:"log_level"`
	// LogFile receives a copy of the log stream alongside stderr. Empty
	// means <cache_dir>/bar.log.
	LogFile  string `toml:"log_file" yaml:"log_file"`
	CacheDir string `toml:"cache_dir" yaml:"cache_dir"`
	// Socket is the control socket path. Empty picks a per-user default
	// under XDG_RUNTIME_DIR.
	Socket  string `toml:"socket" yaml:"socket"`
	PIDFile string `toml:"pid_file" yaml:"pid_file"`

	// Palette is a builtin palette name or a TOML palette file.
	Palette string `toml:"palette" yaml:"palette"`
	// Separator is the raw markup placed between module fragments. Empty
	// picks a dim pipe built from the palette.
	Separator string `toml:"separator" yaml:"separator"`

	// BlinkOn and BlinkOff are the lit and dark phase lengths of the
	// blink protocol.
	BlinkOn  Duration `toml:"blink_on" yaml:"blink_on"`
	BlinkOff Duration `toml:"blink_off" yaml:"blink_off"`

	// Order lists module names left to right. Disabled modules are
	// skipped; names not listed here never appear.
	Order []string `toml:"order" yaml:"order"`

	// ToggleModule names the module whose boolean option SIGUSR1 and the
	// control socket TOGGLE command flip.
	ToggleModule string `toml:"toggle_module" yaml:"toggle_module"`

	// WatchConfig reloads the bar when the config file changes on disk.
	WatchConfig bool `toml:"watch_config" yaml:"watch_config"`
}

// ModulesConfig holds the per-module settings.
type ModulesConfig struct {
	Clock       ClockModuleConfig       `toml:"clock" yaml:"clock"`
	Battery     BatteryModuleConfig     `toml:"battery" yaml:"battery"`
	Network     NetworkModuleConfig     `toml:"network" yaml:"network"`
	CPU         CPUModuleConfig         `toml:"cpu" yaml:"cpu"`
	Memory      MemoryModuleConfig      `toml:"memory" yaml:"memory"`
	Temperature TemperatureModuleConfig `toml:"temperature" yaml:"temperature"`
	Weather     WeatherModuleConfig     `toml:"weather" yaml:"weather"`
	Crypto      CryptoModuleConfig      `toml:"crypto" yaml:"crypto"`
	Tailscale   TailscaleModuleConfig   `toml:"tailscale" yaml:"tailscale"`
	Kubernetes  KubernetesModuleConfig  `toml:"kubernetes" yaml:"kubernetes"`
}

type ClockModuleConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Every   Duration `toml:"every" yaml:"every"`
	// Schedule is an optional cron expression; when set the module also
	// wakes on each matching minute, so the clock can align to :00.
	Schedule string `toml:"schedule" yaml:"schedule"`
	Format   string `toml:"format" yaml:"format"`
	Once     bool   `toml:"once" yaml:"once"`
}

type BatteryModuleConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
	// Sources are the aggregator record names this module re-renders on.
	Sources []string `toml:"sources" yaml:"sources"`
	// BlinkBelow makes the charge percentage blink at or below this
	// value while discharging.
	BlinkBelow int `toml:"blink_below" yaml:"blink_below"`
}

type NetworkModuleConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Sources []string `toml:"sources" yaml:"sources"`
	// Verbose shows the full aggregator text instead of the short form.
	// This is the boolean the toggle control flips when toggle_module is
	// "network".
	Verbose bool `toml:"verbose" yaml:"verbose"`
}

type CPUModuleConfig struct {
	Enabled   bool     `toml:"enabled" yaml:"enabled"`
	Every     Duration `toml:"every" yaml:"every"`
	WarnAbove float64  `toml:"warn_above" yaml:"warn_above"`
	Once      bool     `toml:"once" yaml:"once"`
}

type MemoryModuleConfig struct {
	Enabled   bool     `toml:"enabled" yaml:"enabled"`
	Every     Duration `toml:"every" yaml:"every"`
	WarnAbove float64  `toml:"warn_above" yaml:"warn_above"`
	Once      bool     `toml:"once" yaml:"once"`
}

type TemperatureModuleConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Every   Duration `toml:"every" yaml:"every"`
	// Sensor selects the sensor by substring match on its key. Empty
	// takes the hottest reading.
	Sensor string `toml:"sensor" yaml:"sensor"`
	// MinShow hides the fragment while the reading is below this many
	// degrees Celsius.
	MinShow float64 `toml:"min_show" yaml:"min_show"`
	// WarnAbove and CritAbove color the reading once it crosses them.
	WarnAbove float64 `toml:"warn_above" yaml:"warn_above"`
	CritAbove float64 `toml:"crit_above" yaml:"crit_above"`
	Once      bool    `toml:"once" yaml:"once"`
}

type WeatherModuleConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Every   Duration `toml:"every" yaml:"every"`
	// Retry is the shortened cadence used after a failed fetch.
	Retry    Duration `toml:"retry" yaml:"retry"`
	Schedule string   `toml:"schedule" yaml:"schedule"`
	// Station is the weather service observation station identifier.
	Station string `toml:"station" yaml:"station"`
	// Units is C or F.
	Units string `toml:"units" yaml:"units"`
	Once  bool   `toml:"once" yaml:"once"`
}

type CryptoModuleConfig struct {
	Enabled  bool     `toml:"enabled" yaml:"enabled"`
	Every    Duration `toml:"every" yaml:"every"`
	Retry    Duration `toml:"retry" yaml:"retry"`
	Schedule string   `toml:"schedule" yaml:"schedule"`
	Coins    []string `toml:"coins" yaml:"coins"`
	Currency string   `toml:"currency" yaml:"currency"`
	Once     bool     `toml:"once" yaml:"once"`
}

type TailscaleModuleConfig struct {
	Enabled bool     `toml:"enabled" yaml:"enabled"`
	Every   Duration `toml:"every" yaml:"every"`
	// Socket overrides the tailscaled socket path.
	Socket string `toml:"socket" yaml:"socket"`
	Once   bool   `toml:"once" yaml:"once"`
}

type KubernetesModuleConfig struct {
	Enabled    bool     `toml:"enabled" yaml:"enabled"`
	Every      Duration `toml:"every" yaml:"every"`
	Retry      Duration `toml:"retry" yaml:"retry"`
	Schedule   string   `toml:"schedule" yaml:"schedule"`
	Kubeconfig string   `toml:"kubeconfig" yaml:"kubeconfig"`
	Context    string   `toml:"context" yaml:"context"`
	// Namespace restricts the pod counts. Empty counts all namespaces.
	Namespace string `toml:"namespace" yaml:"namespace"`
	Once      bool   `toml:"once" yaml:"once"`
}

// DefaultConfig returns the default configuration with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()
	cacheDir := filepath.Join(xdgCacheHome(home), "sdorfehs-bar")

	return &Config{
		General: GeneralConfig{
			SourceCommand: []string{"i3status"},
			RenderCommand: []string{"dzen2", "-ta", "r", "-dock"},
			LogLevel:      "info",
			CacheDir:      cacheDir,
			Palette:       "default",
			BlinkOn:       Duration{800 * time.Millisecond},
			BlinkOff:      Duration{400 * time.Millisecond},
			Order: []string{
				"weather", "crypto", "tailscale", "kubernetes",
				"temperature", "cpu", "memory", "network", "battery",
				"clock",
			},
			ToggleModule: "network",
			WatchConfig:  true,
		},
		Modules: ModulesConfig{
			Clock: ClockModuleConfig{
				Enabled:  true,
				Every:    Duration{60 * time.Second},
				Schedule: "* * * * *",
				Format:   "Mon 02 Jan 15:04",
			},
			Battery: BatteryModuleConfig{
				Enabled:    true,
				Sources:    []string{"battery"},
				BlinkBelow: 10,
			},
			Network: NetworkModuleConfig{
				Enabled: true,
				Sources: []string{"wireless", "ethernet"},
			},
			CPU: CPUModuleConfig{
				Enabled:   true,
				Every:     Duration{2 * time.Second},
				WarnAbove: 80,
			},
			Memory: MemoryModuleConfig{
				Enabled:   true,
				Every:     Duration{5 * time.Second},
				WarnAbove: 85,
			},
			Temperature: TemperatureModuleConfig{
				Enabled:   true,
				Every:     Duration{10 * time.Second},
				MinShow:   45,
				WarnAbove: 70,
				CritAbove: 85,
			},
			Weather: WeatherModuleConfig{
				Enabled: true,
				Every:   Duration{15 * time.Minute},
				Retry:   Duration{2 * time.Minute},
				Station: "KORD",
				Units:   "C",
			},
			Crypto: CryptoModuleConfig{
				Enabled:  true,
				Every:    Duration{5 * time.Minute},
				Retry:    Duration{1 * time.Minute},
				Coins:    []string{"bitcoin"},
				Currency: "usd",
			},
			Tailscale: TailscaleModuleConfig{
				Enabled: true,
				Every:   Duration{30 * time.Second},
			},
			Kubernetes: KubernetesModuleConfig{
				Enabled: false,
				Every:   Duration{60 * time.Second},
				Retry:   Duration{5 * time.Minute},
			},
		},
	}
}
