package netlink

import (
	"context"
	"testing"

	"github.com/pilebones/go-udev/netlink"
)

func TestNewMonitorRequiresInterface(t *testing.T) {
	if m := NewMonitor("  ", nil, nil); m != nil {
		t.Fatal("expected nil monitor without interface")
	}
	m := NewMonitor("wlan0", nil, nil)
	if m == nil || m.iface != "wlan0" {
		t.Fatalf("unexpected monitor %+v", m)
	}
	if m.Running() {
		t.Fatal("unstarted monitor must not report running")
	}
}

func TestNilMonitorIsSafe(t *testing.T) {
	var m *Monitor
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start on nil monitor: %v", err)
	}
	m.Stop()
	if m.Running() {
		t.Fatal("nil monitor must not report running")
	}
}

func TestMonitorHandleEvent(t *testing.T) {
	calls := 0
	m := NewMonitor("wlan0", nil, func() { calls++ })

	m.handleEvent(netlink.UEvent{Action: netlink.CHANGE, Env: map[string]string{"INTERFACE": "wlan0"}})
	m.handleEvent(netlink.UEvent{Action: netlink.ADD, Env: map[string]string{"INTERFACE": "eth0"}})

	if calls != 1 {
		t.Fatalf("expected one wake-up, got %d", calls)
	}
}

func TestMonitorMatcher(t *testing.T) {
	m := NewMonitor("wlan0", nil, nil)
	matcher := m.matcher()
	event := netlink.UEvent{
		Action: netlink.CHANGE,
		KObj:   "/devices/pci0000:00/net/wlan0",
		Env:    map[string]string{"SUBSYSTEM": "net", "INTERFACE": "wlan0"},
	}
	if !matcher.Evaluate(event) {
		t.Fatal("expected matcher to accept interface change")
	}
	event.Env["SUBSYSTEM"] = "block"
	if matcher.Evaluate(event) {
		t.Fatal("expected matcher to reject other subsystems")
	}
}
