package bar

import (
	"strings"
	"sync"
)

// Compositor folds module fragments into the single line the renderer
// draws. Modules overwrite only their own slot; the compositor joins the
// non-empty fragments in display order and signals the writer only when
// the composed line actually changed, so redundant renders cost nothing
// downstream.
type Compositor struct {
	mu    sync.Mutex
	order []string
	frags map[string]string
	sep   string
	line  string

	// changed carries at most one pending signal; a full channel means
	// the writer already owes us a redraw.
	changed chan struct{}
}

// NewCompositor creates a compositor for modules in the given display
// order, joined by sep. Fragments for names outside order are ignored.
func NewCompositor(order []string, sep string) *Compositor {
	c := &Compositor{
		order:   append([]string(nil), order...),
		frags:   make(map[string]string, len(order)),
		sep:     sep,
		changed: make(chan struct{}, 1),
	}
	return c
}

// Set installs a module's fragment and recomposes the line. An empty
// fragment hides the module. Setting the same fragment again, or a change
// that leaves the composed line identical, does not signal the writer.
func (c *Compositor) Set(name, fragment string) {
	c.mu.Lock()

	if old, ok := c.frags[name]; ok && old == fragment {
		c.mu.Unlock()
		return
	}
	c.frags[name] = fragment

	var parts []string
	for _, n := range c.order {
		if f := c.frags[n]; f != "" {
			parts = append(parts, f)
		}
	}
	line := strings.Join(parts, c.sep)

	if line == c.line {
		c.mu.Unlock()
		return
	}
	c.line = line
	c.mu.Unlock()

	select {
	case c.changed <- struct{}{}:
	default:
	}
}

// Line returns the current composed line.
func (c *Compositor) Line() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.line
}

// Changed returns the channel the writer waits on. A receive means the
// line differs from whatever the writer last drew; the writer should read
// Line and redraw.
func (c *Compositor) Changed() <-chan struct{} {
	return c.changed
}
