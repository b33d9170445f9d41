package websocket

import (
	"time"

	"go.uber.org/zap"
)

// ConnectionMonitor periodically reports how many connections and streaming
// recognition sessions the hub is carrying. Sessions tied to vanished
// connections are torn down by the hub itself; this loop only observes.
type ConnectionMonitor struct {
	hub      *Hub
	logger   *zap.Logger
	interval time.Duration
	stopChan chan struct{}
}

func NewConnectionMonitor(hub *Hub, logger *zap.Logger) *ConnectionMonitor {
	return &ConnectionMonitor{
		hub:      hub,
		logger:   logger,
		interval: 5 * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background reporting loop.
func (m *ConnectionMonitor) Start() {
	go m.loop()
	m.logger.Info("Connection monitor started")
}

// Stop ends the reporting loop.
func (m *ConnectionMonitor) Stop() {
	close(m.stopChan)
	m.logger.Info("Connection monitor stopped")
}

func (m *ConnectionMonitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopChan:
			return
		case <-ticker.C:
			m.report()
		}
	}
}

func (m *ConnectionMonitor) report() {
	m.logger.Info("Connection stats",
		zap.Int("activeClients", m.hub.ActiveClients()),
		zap.Int("activeSessions", m.hub.realtime.ActiveSessions()))
}
