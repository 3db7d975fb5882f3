// Package netlink implements the Network Gate for the wireless link the
// printer sits behind.
//
// Gate reads the interface operstate from sysfs and, when an SSID is
// configured, confirms the association with an SSID probe tool. Monitor
// listens for udev netlink events on the interface so the engine can re-check
// the gate as soon as the link changes instead of waiting for its next tick.
package netlink
