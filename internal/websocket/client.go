package websocket

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/voxbridge/server/domain"
	"github.com/voxbridge/server/domain/repositories"
	"github.com/voxbridge/server/usecase"
)

// Client is the middleman between one websocket connection and the rest of
// the server.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	id     string
	logger *zap.Logger

	// Broadcasts and async acks outlive the read loop, so queueing a frame
	// races against teardown routinely. sendMu serializes every channel send
	// with the close.
	sendMu sync.Mutex
	closed bool
}

// trySend queues one frame unless the client is already torn down or its
// outbound buffer is full.
func (c *Client) trySend(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// closeSend closes the outbound channel exactly once.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
	c.sendMu.Unlock()
}

// readPump pumps messages from the websocket connection into the event
// dispatcher. It runs for the lifetime of the connection; on exit the
// connection's sessions and registrations are torn down.
func (c *Client) readPump() {
	defer func() {
		c.hub.removeClient(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.String("connectionID", c.id), zap.Error(err))
			}
			break
		}
		c.dispatch(message)
	}
}

// writePump pumps outbound frames to the websocket connection and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				c.logger.Error("Failed to write message", zap.String("connectionID", c.id), zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// sendMessage queues one message for this connection, best-effort.
func (c *Client) sendMessage(message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		c.logger.Error("Failed to marshal message", zap.Error(err))
		return
	}
	if !c.trySend(payload) {
		c.logger.Warn("Dropping message for closed or congested connection",
			zap.String("connectionID", c.id))
	}
}

// dispatch routes one inbound frame by its event name.
func (c *Client) dispatch(message []byte) {
	var envelope domain.Envelope
	if err := json.Unmarshal(message, &envelope); err != nil {
		c.logger.Warn("Failed to parse message", zap.String("connectionID", c.id), zap.Error(err))
		c.sendMessage(domain.NewError("Invalid message format"))
		return
	}

	switch envelope.Event {
	case domain.EventJoinRoom:
		c.handleJoinRoom(message)
	case domain.EventAudioChunk:
		c.handleAudioChunk(message)
	case domain.EventStartRealtime:
		c.handleStartRealtime(message)
	case domain.EventRealtimeAudio:
		c.handleRealtimeAudio(message)
	case domain.EventStopRealtime:
		c.handleStopRealtime()
	default:
		c.logger.Warn("Unknown event",
			zap.String("connectionID", c.id),
			zap.String("event", envelope.Event))
	}
}

func (c *Client) handleJoinRoom(message []byte) {
	var msg domain.JoinRoomMessage
	if err := json.Unmarshal(message, &msg); err != nil || msg.Room == "" {
		c.logger.Warn("Client attempted to join without specifying a room",
			zap.String("connectionID", c.id))
		c.sendMessage(domain.NewError("Room is required to join"))
		return
	}

	c.hub.registry.JoinRoom(c.id, msg.Room)
	c.logger.Info("Joined room",
		zap.String("connectionID", c.id),
		zap.String("room", msg.Room))
	c.sendMessage(domain.NewRoomJoined(msg.Room))
}

func (c *Client) handleAudioChunk(message []byte) {
	var msg domain.AudioChunkMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendMessage(domain.NewError("Invalid audio chunk message"))
		return
	}
	if msg.RoomID == "" || msg.Audio == "" || msg.Language == "" {
		c.logger.Warn("Incomplete audio chunk data", zap.String("connectionID", c.id))
		c.sendMessage(domain.NewTranslationError("Incomplete audio data received.", msg.RoomID))
		return
	}
	audio, err := base64.StdEncoding.DecodeString(msg.Audio)
	if err != nil || len(audio) == 0 {
		c.logger.Warn("Undecodable audio chunk data", zap.String("connectionID", c.id), zap.Error(err))
		c.sendMessage(domain.NewTranslationError("Incomplete audio data received.", msg.RoomID))
		return
	}

	c.logger.Info("Received audio chunk",
		zap.String("connectionID", c.id),
		zap.String("roomID", msg.RoomID),
		zap.String("language", msg.Language),
		zap.Strings("targetLanguages", msg.TargetLanguages))

	// Recognition and translation are slow; keep the read loop free for the
	// next frame.
	go func() {
		if err := c.hub.discrete.ProcessChunk(context.Background(), msg.RoomID, audio, msg.Language, msg.TargetLanguages); err != nil {
			c.logger.Error("Audio chunk processing failed",
				zap.String("connectionID", c.id),
				zap.Error(err))
			c.sendMessage(domain.NewError("Audio chunk processing error: " + err.Error()))
		}
	}()
}

func (c *Client) handleStartRealtime(message []byte) {
	var msg domain.StartRealtimeMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendMessage(domain.NewError("Invalid start message"))
		return
	}
	if msg.RoomID == "" {
		c.sendMessage(domain.NewError("Room ID is required for real-time recognition"))
		return
	}
	language := msg.Language
	if language == "" {
		language = "en-US"
	}

	// Recognizer allocation can take a moment; do not hold up the read loop.
	go func() {
		err := c.hub.realtime.Start(context.Background(), c.id, msg.RoomID, language, msg.TargetLanguages)
		switch {
		case err == nil:
			c.sendMessage(&domain.RealtimeStartedMessage{
				Event:   domain.EventRealtimeStarted,
				Message: "Real-time recognition started",
				RoomID:  msg.RoomID,
			})
		case errors.Is(err, usecase.ErrSessionExists):
			c.sendMessage(domain.NewError("Real-time recognition is already active"))
		case errors.Is(err, repositories.ErrRecognitionUnavailable), errors.Is(err, repositories.ErrNotConfigured):
			c.sendMessage(domain.NewError("Failed to create speech recognizer"))
		case errors.Is(err, usecase.ErrNoSession):
			// The connection went away while starting; nobody to tell.
		default:
			c.sendMessage(domain.NewError("Failed to start real-time recognition"))
		}
	}()
}

func (c *Client) handleRealtimeAudio(message []byte) {
	var msg domain.RealtimeAudioMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.sendMessage(domain.NewError("Invalid audio message"))
		return
	}
	c.hub.realtime.WriteChunk(c.id, msg.AudioData)
}

func (c *Client) handleStopRealtime() {
	roomID, err := c.hub.realtime.Stop(c.id)
	if err != nil {
		// No session to stop; nothing to acknowledge.
		return
	}
	c.sendMessage(&domain.RealtimeStoppedMessage{
		Event:   domain.EventRealtimeStopped,
		Message: "Real-time recognition stopped",
		RoomID:  roomID,
	})
}
