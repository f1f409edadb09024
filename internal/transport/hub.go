package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/domain/entities"
	"github.com/pawhaven/voicecore/domain/repositories"
	"github.com/pawhaven/voicecore/usecase"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Energy frames are small;
	// this leaves headroom for entity-heavy dialog turns.
	maxMessageSize = 64 * 1024
)

// ErrNoDevices is returned when an alert has no connected device to
// reach.
var ErrNoDevices = errors.New("no connected devices")

// ErrDeviceNotConnected is returned when a prompt targets a device
// without an open websocket.
var ErrDeviceNotConnected = errors.New("device not connected")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// devices authenticate with JWTs, not origins
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub maintains the set of connected devices and routes voice-core
// output to them. It is the delivery sink for the alert scheduler and
// the prompt speaker for dialog sessions.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	sessions *usecase.SessionManager
	logger   *zap.Logger
}

// Compile-time checks that the hub fills both sink roles.
var (
	_ repositories.AlertDeliverer = (*Hub)(nil)
	_ repositories.PromptSpeaker  = (*Hub)(nil)
)

// NewHub creates a hub over the session manager.
func NewHub(sessions *usecase.SessionManager, logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		sessions:   sessions,
		logger:     logger,
	}
}

// Run starts the hub's registration loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.dropClient(client)
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.deviceID] = client
	h.mu.Unlock()
	h.logger.Info("Device connected", zap.String("deviceID", client.deviceID))
}

// dropClient unregisters a closing connection. Only the client that
// currently owns the device's registration tears down its voice
// session; a stale socket from before a reconnect must not take the
// replacement down with it.
func (h *Hub) dropClient(client *Client) {
	h.mu.Lock()
	current, ok := h.clients[client.deviceID]
	owner := ok && current == client
	if owner {
		delete(h.clients, client.deviceID)
		close(client.send)
	}
	h.mu.Unlock()

	if !owner {
		return
	}
	h.sessions.Close(client.deviceID)
	h.logger.Info("Device disconnected", zap.String("deviceID", client.deviceID))
}

// HandleWebSocket upgrades an authenticated request and opens the
// device's voice session.
func (h *Hub) HandleWebSocket(c echo.Context, deviceID string) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return err
	}

	client := &Client{
		hub:      h,
		conn:     conn,
		send:     make(chan writeData, 256),
		deviceID: deviceID,
		logger:   h.logger.With(zap.String("deviceID", deviceID)),
	}
	client.session = h.sessions.Open(deviceID, h, client)

	h.register <- client

	go client.writePump()
	go client.readPump()

	return nil
}

// DeliverAlert implements the scheduler's delivery sink: the alert
// goes to every connected device so it is heard wherever the user is.
func (h *Hub) DeliverAlert(ctx context.Context, alert *entities.Alert) error {
	payload, err := json.Marshal(AlertMessage{Type: MessageTypeAlert, Alert: alert})
	if err != nil {
		return fmt.Errorf("encoding alert: %w", err)
	}

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return ErrNoDevices
	}

	for _, client := range clients {
		client.enqueue(websocket.TextMessage, payload)
	}
	return nil
}

// SpeakPrompt sends a dialog prompt to one device.
func (h *Hub) SpeakPrompt(ctx context.Context, deviceID string, prompt entities.DialogPrompt) error {
	h.mu.RLock()
	client, ok := h.clients[deviceID]
	h.mu.RUnlock()
	if !ok {
		return ErrDeviceNotConnected
	}

	dialogID := ""
	if client.session != nil {
		dialogID = client.session.CurrentDialog()
	}
	payload, err := json.Marshal(PromptMessage{
		Type:     MessageTypePrompt,
		DialogID: dialogID,
		Prompt:   prompt,
	})
	if err != nil {
		return fmt.Errorf("encoding prompt: %w", err)
	}

	client.enqueue(websocket.TextMessage, payload)
	return nil
}

// ConnectedCount reports how many devices hold open websockets.
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
