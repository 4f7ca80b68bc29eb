package modules

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/load"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

// cpuCritAbove is the fixed usage percentage at which the reading turns
// the crit color.
const cpuCritAbove = 95

// CPUConfig configures the cpu module.
type CPUConfig struct {
	// WarnAbove colors the reading once total usage crosses it. Zero
	// disables the warn color.
	WarnAbove float64
}

// CPU shows total processor usage and the one-minute load average. Usage
// is measured since the previous render, so the reading matches the
// module's cadence.
type CPU struct {
	warnAbove float64

	percent func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	loadAvg func(ctx context.Context) (*load.AvgStat, error)
}

func NewCPU(cfg CPUConfig) *CPU {
	return &CPU{
		warnAbove: cfg.WarnAbove,
		percent:   cpu.PercentWithContext,
		loadAvg:   load.AvgWithContext,
	}
}

func (c *CPU) Name() string { return "cpu" }

func (c *CPU) Render(ctx context.Context, v bar.View) (string, error) {
	pcts, err := c.percent(ctx, 0, false)
	if err != nil {
		return "", fmt.Errorf("cpu: %w", err)
	}
	if len(pcts) == 0 {
		return "", fmt.Errorf("cpu: no usage data")
	}
	total := pcts[0]

	out := fmt.Sprintf("cpu %.0f%%", total)
	// The load average is garnish; show usage alone when it fails.
	if avg, err := c.loadAvg(ctx); err == nil && avg != nil {
		out += fmt.Sprintf(" %.2f", avg.Load1)
	}
	return markup.Fg(levelColor(v.Palette, total, c.warnAbove, cpuCritAbove), out), nil
}
