package websocket

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/voxbridge/server/domain"
	"github.com/voxbridge/server/internal/rooms"
	"github.com/voxbridge/server/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512 * 1024 // 512KB for audio chunks
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Mirrors the permissive CORS policy of the HTTP surface.
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of active clients and is the delivery surface the
// Room Broadcaster sends through.
type Hub struct {
	registry *rooms.Registry
	logger   *zap.Logger

	realtime *usecase.RealtimeService
	discrete *usecase.DiscreteService

	mu      sync.RWMutex
	clients map[string]*Client
}

// NewHub creates a hub bound to the given registry. Services are attached
// afterwards with SetServices, since they in turn depend on a broadcaster
// that sends through this hub.
func NewHub(registry *rooms.Registry, logger *zap.Logger) *Hub {
	return &Hub{
		registry: registry,
		logger:   logger,
		clients:  make(map[string]*Client),
	}
}

// SetServices wires in the recognition flows. Must be called before the hub
// accepts its first connection.
func (h *Hub) SetServices(realtime *usecase.RealtimeService, discrete *usecase.DiscreteService) {
	h.realtime = realtime
	h.discrete = discrete
}

// Send delivers one marshaled frame to one connection. Reports false when
// the connection is gone or its outbound buffer is full; the caller treats
// that as best-effort delivery.
func (h *Hub) Send(connectionID string, payload []byte) bool {
	h.mu.RLock()
	client := h.clients[connectionID]
	h.mu.RUnlock()
	if client == nil {
		return false
	}
	return client.trySend(payload)
}

var _ rooms.Sender = (*Hub)(nil)

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()
	h.registry.Register(client.id)
	h.logger.Info("Client connected", zap.String("connectionID", client.id))
}

// removeClient tears down everything the connection owned: its streaming
// session, its room membership, and finally the client record itself.
func (h *Hub) removeClient(client *Client) {
	h.realtime.Disconnect(client.id)
	h.registry.Unregister(client.id)

	h.mu.Lock()
	delete(h.clients, client.id)
	h.mu.Unlock()
	client.closeSend()
	h.logger.Info("Client disconnected", zap.String("connectionID", client.id))
}

// ActiveClients reports the number of live connections.
func (h *Hub) ActiveClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWebSocket upgrades the request and runs the connection until it
// closes.
func HandleWebSocket(hub *Hub, c echo.Context, logger *zap.Logger) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, 256),
		id:     uuid.NewString(),
		logger: logger,
	}
	hub.addClient(client)

	go client.writePump()
	go client.readPump()

	client.sendMessage(domain.NewConnectionSuccess("Connected successfully"))
	return nil
}
