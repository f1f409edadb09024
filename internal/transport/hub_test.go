package transport

import (
	"testing"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zaptest"

	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/internal/dialog"
	"github.com/pawhaven/voicecore/internal/presence"
	"github.com/pawhaven/voicecore/usecase"
)

func newTestHub(t *testing.T) (*Hub, *usecase.SessionManager) {
	cfg := config.Default()
	logger := zaptest.NewLogger(t)
	mock := clock.NewMock()

	engine := dialog.NewEngine(cfg.Dialog, logger)
	tracker := presence.NewTracker(cfg.Presence, mock, logger)
	sessions := usecase.NewSessionManager(cfg.Speech, engine, usecase.NewIntentCatalog(), tracker, mock, logger)
	return NewHub(sessions, logger), sessions
}

func openTestClient(t *testing.T, hub *Hub, sessions *usecase.SessionManager, deviceID string) *Client {
	client := &Client{
		hub:      hub,
		send:     make(chan writeData, 8),
		deviceID: deviceID,
		logger:   zaptest.NewLogger(t),
	}
	client.session = sessions.Open(deviceID, hub, client)
	hub.addClient(client)
	return client
}

func TestStaleUnregisterKeepsReplacementSession(t *testing.T) {
	hub, sessions := newTestHub(t)

	stale := openTestClient(t, hub, sessions, "device-1")
	fresh := openTestClient(t, hub, sessions, "device-1")

	// the stale socket finally dies after the reconnect
	hub.dropClient(stale)

	if got := sessions.Count(); got != 1 {
		t.Fatalf("Expected the replacement session to survive, got %d sessions", got)
	}
	if got := hub.ConnectedCount(); got != 1 {
		t.Errorf("Expected the replacement client to stay registered, got %d", got)
	}

	select {
	case _, ok := <-fresh.send:
		if !ok {
			t.Error("Expected the replacement's send channel to stay open")
		}
	default:
	}

	hub.dropClient(fresh)
	if got := sessions.Count(); got != 0 {
		t.Errorf("Expected no sessions after the owner disconnected, got %d", got)
	}
	if got := hub.ConnectedCount(); got != 0 {
		t.Errorf("Expected no clients after the owner disconnected, got %d", got)
	}
}

func TestDropUnknownClientIsNoOp(t *testing.T) {
	hub, sessions := newTestHub(t)

	connected := openTestClient(t, hub, sessions, "device-1")

	ghost := &Client{
		hub:      hub,
		send:     make(chan writeData, 1),
		deviceID: "device-2",
		logger:   zaptest.NewLogger(t),
	}
	hub.dropClient(ghost)

	if got := hub.ConnectedCount(); got != 1 {
		t.Errorf("Expected the connected device untouched, got %d", got)
	}

	hub.dropClient(connected)
}
