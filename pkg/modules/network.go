package modules

import (
	"context"
	"strings"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

// NetworkConfig configures the network module.
type NetworkConfig struct {
	// Sources are the aggregator record names, in display order.
	Sources []string
}

// Network renders the wireless and ethernet records. Interfaces that are
// down contribute nothing; when every interface is down the whole fragment
// is hidden. The toggle switches between the aggregator's short and full
// text.
type Network struct {
	sources []string
}

func NewNetwork(cfg NetworkConfig) *Network {
	sources := cfg.Sources
	if len(sources) == 0 {
		sources = []string{"wireless", "ethernet"}
	}
	return &Network{sources: sources}
}

func (n *Network) Name() string { return "network" }

func (n *Network) Render(_ context.Context, v bar.View) (string, error) {
	var parts []string
	for _, name := range n.sources {
		rec, ok := v.Snapshot.Get(name)
		if !ok || ifaceDown(rec.FullText) {
			continue
		}
		text := rec.FullText
		if !v.Toggled && rec.ShortText != "" {
			text = rec.ShortText
		}
		parts = append(parts, markup.Fg(rec.Color, text))
	}
	return strings.Join(parts, " "), nil
}

// ifaceDown reports whether the aggregator text marks the interface down.
func ifaceDown(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return true
	}
	return s == "down" || strings.HasSuffix(s, ": down") || strings.HasSuffix(s, " down")
}
