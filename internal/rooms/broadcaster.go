package rooms

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Sender delivers one marshaled frame to one connection. Delivery is
// best-effort: a severed or slow connection returns false and the broadcast
// carries on.
type Sender interface {
	Send(connectionID string, payload []byte) bool
}

// Broadcaster fans a single event out to every current member of a room.
// Membership is read fresh from the registry on every call, never captured
// earlier.
type Broadcaster struct {
	registry *Registry
	sender   Sender
	logger   *zap.Logger
}

func NewBroadcaster(registry *Registry, sender Sender, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		sender:   sender,
		logger:   logger,
	}
}

// Broadcast marshals message once and delivers it to all members of roomID.
func (b *Broadcaster) Broadcast(roomID string, message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		b.logger.Error("Failed to marshal broadcast message",
			zap.String("roomID", roomID),
			zap.Error(err))
		return
	}

	for _, connectionID := range b.registry.MembersOf(roomID) {
		if !b.sender.Send(connectionID, payload) {
			b.logger.Warn("Dropped broadcast for unreachable member",
				zap.String("roomID", roomID),
				zap.String("connectionID", connectionID))
		}
	}
}

// SendTo delivers message to one connection only, best-effort.
func (b *Broadcaster) SendTo(connectionID string, message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		b.logger.Error("Failed to marshal direct message",
			zap.String("connectionID", connectionID),
			zap.Error(err))
		return
	}
	if !b.sender.Send(connectionID, payload) {
		b.logger.Warn("Dropped direct message for unreachable connection",
			zap.String("connectionID", connectionID))
	}
}
