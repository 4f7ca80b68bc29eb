package modules

import (
	"context"
	"errors"
	"testing"

	"go4.org/mem"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/types/key"
)

// mockStatusClient is a test double for StatusClient.
type mockStatusClient struct {
	status *ipnstate.Status
	err    error
}

func (m *mockStatusClient) Status(ctx context.Context) (*ipnstate.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return m.status, m.err
}

// makePeerKey creates a deterministic key.NodePublic for testing.
func makePeerKey(id byte) key.NodePublic {
	var raw [32]byte
	raw[0] = id
	return key.NodePublicFromRaw32(mem.B(raw[:]))
}

func runningStatus(online, offline int) *ipnstate.Status {
	st := &ipnstate.Status{
		BackendState: "Running",
		Peer:         map[key.NodePublic]*ipnstate.PeerStatus{},
	}
	id := byte(1)
	for i := 0; i < online; i++ {
		k := makePeerKey(id)
		st.Peer[k] = &ipnstate.PeerStatus{PublicKey: k, Online: true}
		id++
	}
	for i := 0; i < offline; i++ {
		k := makePeerKey(id)
		st.Peer[k] = &ipnstate.PeerStatus{PublicKey: k, Online: false}
		id++
	}
	return st
}

func TestTailscaleRunning(t *testing.T) {
	ts := NewTailscale(TailscaleConfig{Client: &mockStatusClient{status: runningStatus(2, 1)}})

	got, err := ts.Render(context.Background(), testView(nil, false))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := "^fg(#00ff00)ts^fg() 2/3"; got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestTailscaleNoPeers(t *testing.T) {
	ts := NewTailscale(TailscaleConfig{Client: &mockStatusClient{status: runningStatus(0, 0)}})

	got, err := ts.Render(context.Background(), testView(nil, false))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if want := "^fg(#00ff00)ts^fg() 0/0"; got != want {
		t.Errorf("Render = %q, want %q", got, want)
	}
}

func TestTailscaleBackendStates(t *testing.T) {
	cases := []struct {
		state string
		want  string
	}{
		{"Stopped", "^fg(#444444)ts down^fg()"},
		{"NeedsLogin", "^fg(#ffff00)ts login^fg()"},
		{"NeedsMachineAuth", "^fg(#ffff00)ts login^fg()"},
		{"Starting", "^fg(#444444)ts starting^fg()"},
	}
	for _, c := range cases {
		t.Run(c.state, func(t *testing.T) {
			client := &mockStatusClient{status: &ipnstate.Status{BackendState: c.state}}
			ts := NewTailscale(TailscaleConfig{Client: client})

			got, err := ts.Render(context.Background(), testView(nil, false))
			if err != nil {
				t.Fatalf("Render: %v", err)
			}
			if got != c.want {
				t.Errorf("Render = %q, want %q", got, c.want)
			}
		})
	}
}

func TestTailscaleStatusError(t *testing.T) {
	ts := NewTailscale(TailscaleConfig{Client: &mockStatusClient{err: errors.New("no daemon")}})
	if _, err := ts.Render(context.Background(), testView(nil, false)); err == nil {
		t.Fatal("Render should fail when tailscaled is unreachable")
	}
}

func TestTailscaleNilStatus(t *testing.T) {
	ts := NewTailscale(TailscaleConfig{Client: &mockStatusClient{}})
	if _, err := ts.Render(context.Background(), testView(nil, false)); err == nil {
		t.Fatal("Render should fail on a nil status")
	}
}
