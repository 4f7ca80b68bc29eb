package modules

import (
	"context"
	"time"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

const defaultClockFormat = "Mon 02 Jan 15:04"

// ClockConfig configures the clock module.
type ClockConfig struct {
	// Format is the time layout of the display.
	Format string

	// Now overrides the time source.
	Now func() time.Time
}

// Clock shows the local time. Toggled switches the display to UTC.
type Clock struct {
	format string
	now    func() time.Time
}

func NewClock(cfg ClockConfig) *Clock {
	if cfg.Format == "" {
		cfg.Format = defaultClockFormat
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Clock{format: cfg.Format, now: cfg.Now}
}

func (c *Clock) Name() string { return "clock" }

func (c *Clock) Render(_ context.Context, v bar.View) (string, error) {
	now := c.now()
	if v.Toggled {
		return now.UTC().Format(c.format) + markup.Fg(v.Palette.Dim, " UTC"), nil
	}
	return now.Format(c.format), nil
}
