package modules

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

// memCritAbove is the fixed usage percentage at which the reading turns
// the crit color.
const memCritAbove = 95

// MemoryConfig configures the memory module.
type MemoryConfig struct {
	// WarnAbove colors the reading once used percent crosses it. Zero
	// disables the warn color.
	WarnAbove float64
}

// Memory shows physical memory usage.
type Memory struct {
	warnAbove float64

	virtualMemory func(ctx context.Context) (*mem.VirtualMemoryStat, error)
}

func NewMemory(cfg MemoryConfig) *Memory {
	return &Memory{
		warnAbove:     cfg.WarnAbove,
		virtualMemory: mem.VirtualMemoryWithContext,
	}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Render(ctx context.Context, v bar.View) (string, error) {
	vm, err := m.virtualMemory(ctx)
	if err != nil {
		return "", fmt.Errorf("memory: %w", err)
	}
	out := fmt.Sprintf("mem %.0f%%", vm.UsedPercent)
	return markup.Fg(levelColor(v.Palette, vm.UsedPercent, m.warnAbove, memCritAbove), out), nil
}
