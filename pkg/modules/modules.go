// Package modules contains the built-in status bar modules: the snapshot
// renderers fed by the aggregator (battery, network), the local pollers
// (clock, cpu, memory, temperature), and the remote pollers (weather,
// crypto, tailscale, kubernetes).
package modules

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/cache"
	"github.com/jcs/sdorfehs-bar/pkg/config"
	"github.com/jcs/sdorfehs-bar/pkg/theme"
)

// Deps carries the shared infrastructure modules draw on.
type Deps struct {
	// Cache persists the remote pollers' last responses so a restart
	// repaints without waiting on the network. Nil disables caching.
	Cache *cache.Store

	Logger *slog.Logger

	// Now overrides the time source.
	Now func() time.Time
}

// Build constructs the module registry in general.order order. Disabled
// modules are skipped; an unknown name is an error.
func Build(cfg *config.Config, deps Deps) (*bar.Registry, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	reg := bar.NewRegistry()
	for _, name := range cfg.General.Order {
		spec, enabled, err := buildModule(name, cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("modules: %s: %w", name, err)
		}
		if !enabled {
			continue
		}
		if err := reg.Register(spec); err != nil {
			return nil, fmt.Errorf("modules: %w", err)
		}
	}
	return reg, nil
}

func buildModule(name string, cfg *config.Config, deps Deps) (bar.Spec, bool, error) {
	mods := cfg.Modules
	switch name {
	case "clock":
		mc := mods.Clock
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		sched, err := schedule(mc.Schedule)
		if err != nil {
			return bar.Spec{}, false, err
		}
		spec := bar.Spec{
			Module:   NewClock(ClockConfig{Format: mc.Format, Now: deps.Now}),
			Every:    mc.Every.Duration,
			Schedule: sched,
		}
		return applyOnce(spec, mc.Once), true, nil

	case "battery":
		mc := mods.Battery
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		source := ""
		if len(mc.Sources) > 0 {
			source = mc.Sources[0]
		}
		spec := bar.Spec{
			Module:  NewBattery(BatteryConfig{Source: source, BlinkBelow: mc.BlinkBelow}),
			Sources: mc.Sources,
		}
		return spec, true, nil

	case "network":
		mc := mods.Network
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		spec := bar.Spec{
			Module:  NewNetwork(NetworkConfig{Sources: mc.Sources}),
			Sources: mc.Sources,
			Toggled: mc.Verbose,
		}
		return spec, true, nil

	case "cpu":
		mc := mods.CPU
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		spec := bar.Spec{
			Module: NewCPU(CPUConfig{WarnAbove: mc.WarnAbove}),
			Every:  mc.Every.Duration,
		}
		return applyOnce(spec, mc.Once), true, nil

	case "memory":
		mc := mods.Memory
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		spec := bar.Spec{
			Module: NewMemory(MemoryConfig{WarnAbove: mc.WarnAbove}),
			Every:  mc.Every.Duration,
		}
		return applyOnce(spec, mc.Once), true, nil

	case "temperature":
		mc := mods.Temperature
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		spec := bar.Spec{
			Module: NewTemperature(TemperatureConfig{
				Sensor:    mc.Sensor,
				MinShow:   mc.MinShow,
				WarnAbove: mc.WarnAbove,
				CritAbove: mc.CritAbove,
			}),
			Every: mc.Every.Duration,
		}
		return applyOnce(spec, mc.Once), true, nil

	case "weather":
		mc := mods.Weather
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		sched, err := schedule(mc.Schedule)
		if err != nil {
			return bar.Spec{}, false, err
		}
		spec := bar.Spec{
			Module: NewWeather(WeatherConfig{
				Station: mc.Station,
				Units:   mc.Units,
				Cache:   deps.Cache,
				TTL:     mc.Every.Duration,
			}),
			Every:    mc.Every.Duration,
			Retry:    mc.Retry.Duration,
			Schedule: sched,
		}
		return applyOnce(spec, mc.Once), true, nil

	case "crypto":
		mc := mods.Crypto
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		sched, err := schedule(mc.Schedule)
		if err != nil {
			return bar.Spec{}, false, err
		}
		spec := bar.Spec{
			Module: NewCrypto(CryptoConfig{
				Coins:    mc.Coins,
				Currency: mc.Currency,
				Cache:    deps.Cache,
				TTL:      mc.Every.Duration,
			}),
			Every:    mc.Every.Duration,
			Retry:    mc.Retry.Duration,
			Schedule: sched,
		}
		return applyOnce(spec, mc.Once), true, nil

	case "tailscale":
		mc := mods.Tailscale
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		spec := bar.Spec{
			Module: NewTailscale(TailscaleConfig{Socket: mc.Socket}),
			Every:  mc.Every.Duration,
		}
		return applyOnce(spec, mc.Once), true, nil

	case "kubernetes":
		mc := mods.Kubernetes
		if !mc.Enabled {
			return bar.Spec{}, false, nil
		}
		sched, err := schedule(mc.Schedule)
		if err != nil {
			return bar.Spec{}, false, err
		}
		spec := bar.Spec{
			Module: NewKubernetes(KubernetesConfig{
				Kubeconfig: mc.Kubeconfig,
				Context:    mc.Context,
				Namespace:  mc.Namespace,
			}),
			Every:    mc.Every.Duration,
			Retry:    mc.Retry.Duration,
			Schedule: sched,
		}
		return applyOnce(spec, mc.Once), true, nil

	default:
		return bar.Spec{}, false, fmt.Errorf("unknown module %q", name)
	}
}

// schedule parses a cron expression, mapping "" to no schedule.
func schedule(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, nil
	}
	return cron.ParseStandard(expr)
}

// applyOnce strips all re-run triggers so the module renders exactly once
// at startup.
func applyOnce(spec bar.Spec, once bool) bar.Spec {
	if once {
		spec.Every = 0
		spec.Retry = 0
		spec.Schedule = nil
		spec.Sources = nil
	}
	return spec
}

// levelColor picks the palette color for a reading against warn and crit
// thresholds. Below warn it returns "" so the fragment keeps the default
// foreground.
func levelColor(p theme.Palette, v, warn, crit float64) string {
	switch {
	case crit > 0 && v >= crit:
		return p.Crit
	case warn > 0 && v >= warn:
		return p.Warn
	}
	return ""
}
