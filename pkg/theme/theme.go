// Package theme defines the color palettes the bar draws with. A palette is
// resolved once at startup from a builtin name or a TOML file and handed to
// the modules through their render view; nothing in this package tracks an
// active palette.
package theme

import (
	"sort"
	"strings"
	"sync"
)

// Palette is the set of colors a bar run draws with.
type Palette struct {
	Name string

	// Base colors
	Foreground string // hex color e.g. "#ABB2BF"
	Background string // hex color
	Dim        string // dimmed text, separators, dark blink phase
	Accent     string // highlights

	// Status colors
	Good string // green - healthy
	Warn string // yellow - attention
	Crit string // red - failing, blink-worthy
}

var (
	mu       sync.RWMutex
	registry = map[string]Palette{}
)

func init() {
	plRegisterBuiltins()
}

// Get returns a builtin palette by name, falling back to default if not
// found.
func Get(name string) Palette {
	mu.RLock()
	defer mu.RUnlock()
	if p, ok := registry[strings.ToLower(name)]; ok {
		return p
	}
	return registry["default"]
}

// Names returns all builtin palette names sorted alphabetically.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Has reports whether name is a builtin palette.
func Has(name string) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := registry[strings.ToLower(name)]
	return ok
}

// plRegister adds a palette to the registry under its lowercase name.
func plRegister(p Palette) {
	mu.Lock()
	defer mu.Unlock()
	registry[strings.ToLower(p.Name)] = p
}
