package live

import (
	"log/slog"
	"time"
)

// DefaultHeartbeatInterval is the probe cycle period when none is configured.
const DefaultHeartbeatInterval = 30 * time.Second

// Monitor probes every registered connection on a fixed cycle and evicts
// those that did not answer the previous cycle's probe.
//
// Each connection moves through a two-state machine: alive and suspect.
// At the start of a cycle every member is demoted to suspect and sent a
// ping; a pong received at any time promotes it back to alive. A member
// found still suspect at the start of the next cycle is evicted, so an
// unresponsive connection is removed within one to two cycle periods.
type Monitor struct {
	registry *Registry
	interval time.Duration
	logger   *slog.Logger

	stop chan struct{}
	done chan struct{}
}

// NewMonitor creates a heartbeat monitor over the given registry.
// A non-positive interval falls back to DefaultHeartbeatInterval.
func NewMonitor(registry *Registry, interval time.Duration, logger *slog.Logger) *Monitor {
	if interval <= 0 {
		interval = DefaultHeartbeatInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Monitor{
		registry: registry,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the heartbeat loop. Call Stop to shut it down.
func (m *Monitor) Start() {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run()
	m.logger.Info("heartbeat monitor started", "interval", m.interval)
}

// Stop shuts down the heartbeat loop and waits for it to exit.
func (m *Monitor) Stop() {
	if m.stop != nil {
		close(m.stop)
		<-m.done
		m.stop = nil
		m.done = nil
	}
}

func (m *Monitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep runs one heartbeat cycle over a registry snapshot.
func (m *Monitor) sweep() {
	for _, c := range m.registry.Snapshot() {
		if !c.demote() {
			// Still suspect from the previous cycle: no pong arrived.
			m.logger.Info("heartbeat: evicting unresponsive connection", "conn", c.ID())
			m.registry.Remove(c)
			_ = c.Close()
			continue
		}
		if err := c.Ping(); err != nil {
			// A failed probe counts as a missed response; the connection
			// stays suspect and is evicted next cycle.
			m.logger.Warn("heartbeat: probe failed", "conn", c.ID(), "err", err)
		}
	}
}
