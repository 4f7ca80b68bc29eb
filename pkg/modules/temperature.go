package modules

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shirou/gopsutil/v4/sensors"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

// TemperatureConfig configures the temperature module.
type TemperatureConfig struct {
	// Sensor selects sensors by case-insensitive substring match on the
	// sensor key. Empty matches every sensor.
	Sensor string

	// MinShow hides the fragment while the reading is below this many
	// degrees Celsius.
	MinShow float64

	// WarnAbove and CritAbove color the reading once it crosses them.
	WarnAbove float64
	CritAbove float64
}

// Temperature shows the hottest matching sensor. A cool machine shows
// nothing; the fragment only appears once the reading is worth a glance.
type Temperature struct {
	sensor    string
	minShow   float64
	warnAbove float64
	critAbove float64

	read func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

func NewTemperature(cfg TemperatureConfig) *Temperature {
	return &Temperature{
		sensor:    strings.ToLower(cfg.Sensor),
		minShow:   cfg.MinShow,
		warnAbove: cfg.WarnAbove,
		critAbove: cfg.CritAbove,
		read:      sensors.TemperaturesWithContext,
	}
}

func (t *Temperature) Name() string { return "temperature" }

func (t *Temperature) Render(ctx context.Context, v bar.View) (string, error) {
	stats, err := t.read(ctx)
	// Partial sensor failures still return readings; only a total miss
	// counts as an error.
	if err != nil && len(stats) == 0 {
		return "", fmt.Errorf("temperature: %w", err)
	}

	hottest := math.Inf(-1)
	found := false
	for _, st := range stats {
		if t.sensor != "" && !strings.Contains(strings.ToLower(st.SensorKey), t.sensor) {
			continue
		}
		if st.Temperature > hottest {
			hottest = st.Temperature
			found = true
		}
	}
	if !found || hottest < t.minShow {
		return "", nil
	}

	out := fmt.Sprintf("temp %.0fC", hottest)
	return markup.Fg(levelColor(v.Palette, hottest, t.warnAbove, t.critAbove), out), nil
}
