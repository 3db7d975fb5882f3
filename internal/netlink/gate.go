package netlink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"autoprint/internal/config"
	"autoprint/internal/services"
)

const stage = "network"

// ProbeFunc runs an external command and returns its standard output.
type ProbeFunc func(ctx context.Context, binary string, args ...string) (string, error)

// Gate answers whether the link to the printer is usable.
type Gate struct {
	iface     string
	ssid      string
	sysfsRoot string
	probeBin  string
	probe     ProbeFunc
}

// Option configures the gate.
type Option func(*Gate)

// WithProbe injects a custom SSID probe (primarily for tests).
func WithProbe(probe ProbeFunc) Option {
	return func(g *Gate) {
		if probe != nil {
			g.probe = probe
		}
	}
}

// NewGate builds a gate from the [network] config section. An empty
// interface name disables the check.
func NewGate(cfg config.Network, opts ...Option) *Gate {
	gate := &Gate{
		iface:     strings.TrimSpace(cfg.Interface),
		ssid:      strings.TrimSpace(cfg.SSID),
		sysfsRoot: strings.TrimSpace(cfg.SysfsRoot),
		probeBin:  strings.TrimSpace(cfg.SSIDProbeBinary),
		probe:     commandProbe,
	}
	if gate.sysfsRoot == "" {
		gate.sysfsRoot = "/sys/class/net"
	}
	if gate.probeBin == "" {
		gate.probeBin = "iwgetid"
	}
	for _, opt := range opts {
		opt(gate)
	}
	return gate
}

// Interface returns the monitored interface name.
func (g *Gate) Interface() string {
	return g.iface
}

// Ready reports whether the link is up (and associated with the configured
// SSID). When it is not, the returned error explains why and carries
// services.ErrTransientLink.
func (g *Gate) Ready(ctx context.Context) (bool, error) {
	if g.iface == "" {
		return true, nil
	}
	state, err := g.operState()
	if err != nil {
		return false, services.Wrap(services.ErrTransientLink, stage, "read operstate", fmt.Sprintf("Cannot read state of %s", g.iface), err)
	}
	if state != "up" {
		return false, services.Wrap(services.ErrTransientLink, stage, "operstate", fmt.Sprintf("Interface %s is %s", g.iface, state), nil)
	}
	if g.ssid == "" {
		return true, nil
	}
	out, err := g.probe(ctx, g.probeBin, "-r", g.iface)
	if err != nil {
		return false, services.Wrap(services.ErrTransientLink, stage, "probe ssid", "SSID probe failed", services.FromContext(ctx, stage, "probe ssid", err))
	}
	current := strings.TrimSpace(out)
	if current != g.ssid {
		return false, services.Wrap(services.ErrTransientLink, stage, "probe ssid",
			fmt.Sprintf("Associated with %q, want %q", current, g.ssid), nil)
	}
	return true, nil
}

func (g *Gate) operState() (string, error) {
	data, err := os.ReadFile(filepath.Join(g.sysfsRoot, g.iface, "operstate"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("interface %s not present", g.iface)
		}
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(string(data))), nil
}

func commandProbe(ctx context.Context, binary string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, binary, args...).Output() //nolint:gosec
	if err != nil {
		return "", fmt.Errorf("%s: %w", binary, err)
	}
	return string(out), nil
}
