package modules

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

// batteryWarnBelow is the discharge percentage at which the reading turns
// the warn color.
const batteryWarnBelow = 25

// BatteryConfig configures the battery module.
type BatteryConfig struct {
	// Source is the aggregator record name to read.
	Source string

	// BlinkBelow makes the percentage blink at or below this value while
	// discharging. Zero disables blinking.
	BlinkBelow int
}

// Battery renders the aggregator's battery record. The record's full_text
// carries STATUS|PCT|WATTS, e.g. "CHR|85|0.0". An absent record means the
// machine has no battery and the module contributes nothing.
type Battery struct {
	source     string
	blinkBelow int
}

func NewBattery(cfg BatteryConfig) *Battery {
	if cfg.Source == "" {
		cfg.Source = "battery"
	}
	return &Battery{source: cfg.Source, blinkBelow: cfg.BlinkBelow}
}

func (b *Battery) Name() string { return "battery" }

func (b *Battery) Render(_ context.Context, v bar.View) (string, error) {
	rec, ok := v.Snapshot.Get(b.source)
	if !ok {
		return "", nil
	}
	status, pct, watts, err := parseBatteryRecord(rec.FullText)
	if err != nil {
		return "", err
	}

	p := v.Palette
	label := strconv.Itoa(pct) + "%"
	switch status {
	case "CHR":
		return markup.Fg(p.Good, "bat +"+label), nil
	case "FULL":
		return markup.Fg(p.Dim, "bat ="+label), nil
	case "BAT", "DIS":
		text := "bat " + label
		color := ""
		switch {
		case b.blinkBelow > 0 && pct <= b.blinkBelow:
			text = "bat " + markup.Blink(label)
			color = p.Crit
		case pct <= batteryWarnBelow:
			color = p.Warn
		}
		out := markup.Fg(color, text)
		if watts > 0 {
			out += markup.Fg(p.Dim, fmt.Sprintf(" %.1fW", watts))
		}
		return out, nil
	default:
		return markup.Fg(p.Dim, "bat ?"), nil
	}
}

// parseBatteryRecord splits STATUS|PCT|WATTS. The watts field is optional.
func parseBatteryRecord(s string) (string, int, float64, error) {
	parts := strings.Split(s, "|")
	if len(parts) < 2 {
		return "", 0, 0, fmt.Errorf("battery: unexpected record %q", s)
	}
	status := strings.TrimSpace(parts[0])
	pct, err := strconv.Atoi(strings.TrimSuffix(strings.TrimSpace(parts[1]), "%"))
	if err != nil {
		return "", 0, 0, fmt.Errorf("battery: bad percentage in %q", s)
	}
	var watts float64
	if len(parts) > 2 {
		watts, _ = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	}
	return status, pct, watts, nil
}
