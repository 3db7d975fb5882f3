package netlink

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"autoprint/internal/logging"
)

// Monitor listens for udev netlink events on one network interface and
// invokes onChange for each. It never decides readiness itself.
type Monitor struct {
	iface    string
	logger   *slog.Logger
	onChange func()

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

// NewMonitor returns nil when no interface is configured.
func NewMonitor(iface string, logger *slog.Logger, onChange func()) *Monitor {
	iface = strings.TrimSpace(iface)
	if iface == "" {
		return nil
	}
	return &Monitor{
		iface:    iface,
		logger:   logging.NewComponentLogger(logger, "netlink-monitor"),
		onChange: onChange,
	}
}

// Start begins listening. Failing to open the netlink socket is not fatal;
// the engine still re-checks the link on every tick.
func (m *Monitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		logging.WarnWithContext(m.logger, "failed to connect to netlink socket; link changes will be noticed on the next tick",
			"netlink_connect_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "jobs resume up to one tick later after the link returns"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true

	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("netlink monitor started",
		logging.String(logging.FieldEventType, "netlink_monitor_started"),
		logging.String("interface", m.iface),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *Monitor) Stop() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false

	m.logger.Info("netlink monitor stopped",
		logging.String(logging.FieldEventType, "netlink_monitor_stopped"),
	)
}

// Running reports whether the monitor is active.
func (m *Monitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Monitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.matcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			logging.WarnWithContext(m.logger, "netlink monitor error",
				"netlink_monitor_error",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "link changes noticed on the next tick"),
			)
		}
	}
}

// matcher selects events for the configured interface:
// SUBSYSTEM=net, INTERFACE=<iface>, ACTION=add|remove|change|move
func (m *Monitor) matcher() netlink.Matcher {
	action := "add|remove|change|move"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "net",
			"INTERFACE": m.iface,
		},
	})
	return rules
}

func (m *Monitor) handleEvent(uevent netlink.UEvent) {
	if name := uevent.Env["INTERFACE"]; name != "" && name != m.iface {
		return
	}
	m.logger.Debug("link event",
		logging.String(logging.FieldEventType, "netlink_link_event"),
		logging.String("interface", m.iface),
		logging.String("action", string(uevent.Action)),
	)
	if m.onChange != nil {
		m.onChange()
	}
}
