package modules

import (
	"context"
	"fmt"
	"strings"

	"tailscale.com/client/local"
	"tailscale.com/ipn/ipnstate"

	"github.com/jcs/sdorfehs-bar/pkg/bar"
	"github.com/jcs/sdorfehs-bar/pkg/markup"
)

// StatusClient abstracts the tailscaled LocalAPI. The production
// implementation is tailscale.com/client/local.Client.
type StatusClient interface {
	Status(ctx context.Context) (*ipnstate.Status, error)
}

// TailscaleConfig configures the tailscale module.
type TailscaleConfig struct {
	// Socket overrides the tailscaled socket path. Empty uses the
	// platform default.
	Socket string

	// Client overrides the LocalAPI client.
	Client StatusClient
}

// Tailscale shows the tailnet backend state and how many peers are online.
type Tailscale struct {
	client StatusClient
}

func NewTailscale(cfg TailscaleConfig) *Tailscale {
	client := cfg.Client
	if client == nil {
		lc := &local.Client{}
		if cfg.Socket != "" {
			lc.Socket = cfg.Socket
		}
		client = lc
	}
	return &Tailscale{client: client}
}

func (t *Tailscale) Name() string { return "tailscale" }

func (t *Tailscale) Render(ctx context.Context, v bar.View) (string, error) {
	st, err := t.client.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("tailscale: status: %w", err)
	}
	if st == nil {
		return "", fmt.Errorf("tailscale: nil status")
	}

	p := v.Palette
	switch st.BackendState {
	case "Running":
		online, total := 0, 0
		for _, pub := range st.Peers() {
			peer := st.Peer[pub]
			if peer == nil {
				continue
			}
			total++
			if peer.Online {
				online++
			}
		}
		return markup.Fg(p.Good, "ts") + fmt.Sprintf(" %d/%d", online, total), nil
	case "Stopped":
		return markup.Fg(p.Dim, "ts down"), nil
	case "NeedsLogin", "NeedsMachineAuth":
		return markup.Fg(p.Warn, "ts login"), nil
	default:
		return markup.Fg(p.Dim, "ts "+strings.ToLower(st.BackendState)), nil
	}
}
