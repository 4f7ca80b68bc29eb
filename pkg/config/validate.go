package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// knownModules is the full set of module names the bar can build.
var knownModules = map[string]bool{
	"clock":       true,
	"battery":     true,
	"network":     true,
	"cpu":         true,
	"memory":      true,
	"temperature": true,
	"weather":     true,
	"crypto":      true,
	"tailscale":   true,
	"kubernetes":  true,
}

// logLevels are the accepted log_level values.
var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks the configuration for mistakes that would otherwise
// surface as a bar that silently shows nothing. Callers treat an error as
// fatal at startup.
func (c *Config) Validate() error {
	if len(c.General.SourceCommand) == 0 {
		return fmt.Errorf("config: general.source_command must not be empty")
	}
	if len(c.General.RenderCommand) == 0 {
		return fmt.Errorf("config: general.render_command must not be empty")
	}
	if !logLevels[strings.ToLower(c.General.LogLevel)] {
		return fmt.Errorf("config: unknown log_level %q (debug, info, warn, error)", c.General.LogLevel)
	}
	if c.General.BlinkOn.Duration <= 0 {
		return fmt.Errorf("config: general.blink_on must be positive")
	}
	if c.General.BlinkOff.Duration <= 0 {
		return fmt.Errorf("config: general.blink_off must be positive")
	}

	seen := map[string]bool{}
	for _, name := range c.General.Order {
		if !knownModules[name] {
			return fmt.Errorf("config: unknown module %q in general.order", name)
		}
		if seen[name] {
			return fmt.Errorf("config: module %q listed twice in general.order", name)
		}
		seen[name] = true
	}

	if c.General.ToggleModule != "" && !knownModules[c.General.ToggleModule] {
		return fmt.Errorf("config: unknown module %q in general.toggle_module", c.General.ToggleModule)
	}

	if b := c.Modules.Battery; b.Enabled {
		if len(b.Sources) == 0 {
			return fmt.Errorf("config: modules.battery needs at least one source name")
		}
		if b.BlinkBelow < 0 || b.BlinkBelow > 100 {
			return fmt.Errorf("config: modules.battery.blink_below must be 0-100, got %d", b.BlinkBelow)
		}
	}
	if n := c.Modules.Network; n.Enabled && len(n.Sources) == 0 {
		return fmt.Errorf("config: modules.network needs at least one source name")
	}
	if t := c.Modules.Temperature; t.Enabled && t.CritAbove < t.WarnAbove {
		return fmt.Errorf("config: modules.temperature.crit_above must be >= warn_above")
	}
	if w := c.Modules.Weather; w.Enabled {
		if w.Station == "" {
			return fmt.Errorf("config: modules.weather.station must be set")
		}
		switch strings.ToUpper(w.Units) {
		case "", "C", "F":
		default:
			return fmt.Errorf("config: modules.weather.units must be C or F, got %q", w.Units)
		}
	}
	if cr := c.Modules.Crypto; cr.Enabled {
		if len(cr.Coins) == 0 {
			return fmt.Errorf("config: modules.crypto.coins must not be empty")
		}
		if cr.Currency == "" {
			return fmt.Errorf("config: modules.crypto.currency must be set")
		}
	}

	// Every enabled module needs a way to run again: a cadence, a cron
	// schedule, or source records to react to. once = true opts in to a
	// single render at startup instead.
	wakes := []struct {
		name     string
		enabled  bool
		every    Duration
		schedule string
		sources  []string
		once     bool
	}{
		{"clock", c.Modules.Clock.Enabled, c.Modules.Clock.Every, c.Modules.Clock.Schedule, nil, c.Modules.Clock.Once},
		{"battery", c.Modules.Battery.Enabled, Duration{}, "", c.Modules.Battery.Sources, false},
		{"network", c.Modules.Network.Enabled, Duration{}, "", c.Modules.Network.Sources, false},
		{"cpu", c.Modules.CPU.Enabled, c.Modules.CPU.Every, "", nil, c.Modules.CPU.Once},
		{"memory", c.Modules.Memory.Enabled, c.Modules.Memory.Every, "", nil, c.Modules.Memory.Once},
		{"temperature", c.Modules.Temperature.Enabled, c.Modules.Temperature.Every, "", nil, c.Modules.Temperature.Once},
		{"weather", c.Modules.Weather.Enabled, c.Modules.Weather.Every, c.Modules.Weather.Schedule, nil, c.Modules.Weather.Once},
		{"crypto", c.Modules.Crypto.Enabled, c.Modules.Crypto.Every, c.Modules.Crypto.Schedule, nil, c.Modules.Crypto.Once},
		{"tailscale", c.Modules.Tailscale.Enabled, c.Modules.Tailscale.Every, "", nil, c.Modules.Tailscale.Once},
		{"kubernetes", c.Modules.Kubernetes.Enabled, c.Modules.Kubernetes.Every, c.Modules.Kubernetes.Schedule, nil, c.Modules.Kubernetes.Once},
	}
	for _, w := range wakes {
		if !w.enabled {
			continue
		}
		if w.schedule != "" {
			if _, err := cron.ParseStandard(w.schedule); err != nil {
				return fmt.Errorf("config: modules.%s.schedule: %w", w.name, err)
			}
		}
		if w.every.Duration <= 0 && w.schedule == "" && len(w.sources) == 0 && !w.once {
			return fmt.Errorf("config: module %q would never run: set every, schedule, sources, or once", w.name)
		}
	}

	return nil
}
