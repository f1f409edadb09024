package usecase

import (
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/repositories"
	"github.com/pawhaven/voicecore/internal/dialog"
	"github.com/pawhaven/voicecore/internal/presence"
)

// SessionManager opens one voice session per connected device over a
// shared dialog engine, catalog, and activity tracker.
type SessionManager struct {
	cfg     config.SpeechConfig
	dialogs *dialog.Engine
	catalog *IntentCatalog
	tracker *presence.Tracker
	clock   clock.Clock
	logger  *zap.Logger

	mu       sync.Mutex
	sessions map[string]*VoiceSession
}

// NewSessionManager wires the shared collaborators.
func NewSessionManager(
	cfg config.SpeechConfig,
	dialogs *dialog.Engine,
	catalog *IntentCatalog,
	tracker *presence.Tracker,
	clk clock.Clock,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		cfg:      cfg,
		dialogs:  dialogs,
		catalog:  catalog,
		tracker:  tracker,
		clock:    clk,
		logger:   logger,
		sessions: make(map[string]*VoiceSession),
	}
}

// Open starts a session for a device. A session already open for the
// id is stopped and replaced, matching a device reconnect.
func (m *SessionManager) Open(deviceID string, speaker repositories.PromptSpeaker, events SessionEvents) *VoiceSession {
	session := NewVoiceSession(deviceID, m.cfg, m.dialogs, m.catalog, m.tracker, speaker, events, m.clock, m.logger)

	m.mu.Lock()
	if old, ok := m.sessions[deviceID]; ok {
		old.Stop()
	}
	m.sessions[deviceID] = session
	m.mu.Unlock()

	session.Start()
	return session
}

// Close stops and removes a device's session.
func (m *SessionManager) Close(deviceID string) {
	m.mu.Lock()
	session, ok := m.sessions[deviceID]
	delete(m.sessions, deviceID)
	m.mu.Unlock()

	if ok {
		session.Stop()
	}
}

// Count reports how many sessions are open.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
