package presence

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/entities"
	"github.com/pawhaven/voicecore/domain/repositories"
)

// Tracker converts raw interaction events into a present/absent
// signal. The user counts as present until no interaction has been
// seen for the configured timeout; presence is computed lazily from
// the last-activity instant, so there is no decay timer to run.
type Tracker struct {
	clock   clock.Clock
	logger  *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	last   time.Time
	resume []func()
}

// Ensure Tracker implements the PresenceReader interface
var _ repositories.PresenceReader = (*Tracker)(nil)

// NewTracker starts in the active state, dating presence from
// construction.
func NewTracker(cfg config.PresenceConfig, clk clock.Clock, logger *zap.Logger) *Tracker {
	return &Tracker{
		clock:   clk,
		logger:  logger,
		timeout: cfg.InactivityTimeout,
		last:    clk.Now(),
	}
}

// Touch records an interaction. On an inactive-to-active transition it
// notifies every resume listener synchronously, before returning to
// the event source.
func (t *Tracker) Touch(kind entities.InteractionKind) {
	now := t.clock.Now()

	t.mu.Lock()
	idle := now.Sub(t.last)
	wasActive := idle <= t.timeout
	t.last = now
	var listeners []func()
	if !wasActive {
		listeners = append(listeners, t.resume...)
	}
	t.mu.Unlock()

	t.logger.Debug("Interaction recorded", zap.String("kind", string(kind)))

	if !wasActive {
		t.logger.Info("User activity resumed", zap.Duration("idle", idle))
		for _, fn := range listeners {
			fn()
		}
	}
}

// Active reports whether the last interaction is within the timeout.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.clock.Since(t.last) <= t.timeout
}

// IdleFor returns how long the user has gone without interacting.
func (t *Tracker) IdleFor() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.clock.Since(t.last)
}

// LastActivity returns the instant of the most recent interaction.
func (t *Tracker) LastActivity() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.last
}

// OnResume registers a listener called whenever activity resumes after
// an inactive stretch. Listeners run on the goroutine that touched the
// tracker, so they must not block.
func (t *Tracker) OnResume(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resume = append(t.resume, fn)
}
