package transport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/domain/entities"
	"github.com/pawhaven/voicecore/usecase"
)

type writeData struct {
	messageType int
	payload     []byte
}

// Client is the middleman between one device's websocket connection
// and its voice session. It implements the session's event sink, so
// boundary decisions and resolved dialogs flow straight back down the
// socket they belong to.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan writeData
	deviceID string
	session  *usecase.VoiceSession
	logger   *zap.Logger
}

var _ usecase.SessionEvents = (*Client)(nil)

// SpeechStarted implements usecase.SessionEvents.
func (c *Client) SpeechStarted(at time.Time) {
	c.sendJSON(SpeechEventMessage{
		Type:      MessageTypeSpeechStarted,
		Timestamp: at.UnixMilli(),
	})
}

// SpeechEnded implements usecase.SessionEvents.
func (c *Client) SpeechEnded(at time.Time, utterance time.Duration) {
	c.sendJSON(SpeechEventMessage{
		Type:        MessageTypeSpeechEnded,
		Timestamp:   at.UnixMilli(),
		UtteranceMs: utterance.Milliseconds(),
	})
}

// DialogResolved implements usecase.SessionEvents.
func (c *Client) DialogResolved(result *entities.DialogResult) {
	c.sendJSON(DialogDoneMessage{Type: MessageTypeDialogDone, Result: result})
}

// readPump pumps messages from the websocket connection into the voice
// session.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", zap.Error(err))
			}
			break
		}

		switch messageType {
		case websocket.BinaryMessage:
			// raw energy frame
			c.session.PushFrame(message)
		case websocket.TextMessage:
			c.processMessage(message)
		default:
			c.logger.Warn("Received unknown websocket message type", zap.Int("type", messageType))
		}
	}
}

// writePump pumps messages from the send channel to the websocket
// connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(message.messageType, message.payload); err != nil {
				c.logger.Error("Failed to write message", zap.Error(err))
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

// processMessage dispatches one JSON message from the device.
func (c *Client) processMessage(data []byte) {
	msg, err := ParseInbound(data)
	if err != nil {
		c.logger.Warn("Rejected inbound message", zap.Error(err))
		c.sendJSON(ErrorMessage{Type: MessageTypeError, Message: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch msg.Type {
	case MessageTypeEnergyFrame:
		c.session.PushFrame(msg.Frame)

	case MessageTypeInteraction:
		if err := c.session.Interaction(entities.InteractionKind(msg.Kind)); err != nil {
			c.sendJSON(ErrorMessage{Type: MessageTypeError, Message: err.Error()})
		}

	case MessageTypeIntent:
		if _, err := c.session.HandleIntent(ctx, *msg.Intent); err != nil {
			c.logger.Error("Failed to handle intent", zap.Error(err))
			c.sendJSON(ErrorMessage{Type: MessageTypeError, Message: "failed to start dialog"})
		}

	case MessageTypeDialogTurn:
		if err := c.session.HandleTurn(ctx, msg.DialogID, msg.Text, msg.Entities); err != nil {
			c.logger.Error("Failed to process dialog turn", zap.Error(err))
			c.sendJSON(ErrorMessage{Type: MessageTypeError, Message: err.Error()})
		}

	case MessageTypeFillerWord:
		c.session.MarkFillerWord()

	case MessageTypeAudioLevel:
		c.sendJSON(AudioLevelMessage{Type: MessageTypeAudioLevel, Level: c.session.Level()})
	}
}

// enqueue queues an outbound frame, dropping it with a warning when
// the device cannot keep up. A slow device must not stall engines
// writing through the hub.
func (c *Client) enqueue(messageType int, payload []byte) {
	select {
	case c.send <- writeData{messageType: messageType, payload: payload}:
	default:
		c.logger.Warn("Dropping outbound message, send buffer full")
	}
}

func (c *Client) sendJSON(v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		c.logger.Error("Failed to encode outbound message", zap.Error(err))
		return
	}
	c.enqueue(websocket.TextMessage, payload)
}
