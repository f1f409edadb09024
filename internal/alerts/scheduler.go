package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/entities"
	"github.com/pawhaven/voicecore/domain/repositories"
)

// ErrAlertNotFound is returned when cancelling or acknowledging an id
// that is neither pending nor queued.
var ErrAlertNotFound = errors.New("alert not found")

// Scheduler tracks time-triggered alerts and delivers them through a
// single sink in priority order. Due alerts go out immediately while
// the user is present; otherwise they wait in an in-memory queue that
// flushes as soon as activity resumes. Every pending-set mutation is
// persisted so a restart revives undelivered alerts; the queue itself
// is deliberately not persisted, so queued alerts survive a restart as
// due-now pending records instead.
type Scheduler struct {
	cfg       config.AlertsConfig
	clock     clock.Clock
	logger    *zap.Logger
	store     repositories.KeyValueStore
	deliverer repositories.AlertDeliverer
	presence  repositories.PresenceReader

	mu      sync.Mutex
	pending map[string]*entities.Alert
	queue   []*entities.Alert

	resumeCh chan struct{}
	stopChan chan struct{}
	running  bool
}

// NewScheduler builds a scheduler and reloads the persisted pending
// set. A store read failure is logged and the scheduler starts empty,
// operating in-memory for the session.
func NewScheduler(
	cfg config.AlertsConfig,
	store repositories.KeyValueStore,
	deliverer repositories.AlertDeliverer,
	presence repositories.PresenceReader,
	clk clock.Clock,
	logger *zap.Logger,
) *Scheduler {
	s := &Scheduler{
		cfg:       cfg,
		clock:     clk,
		logger:    logger,
		store:     store,
		deliverer: deliverer,
		presence:  presence,
		pending:   make(map[string]*entities.Alert),
		resumeCh:  make(chan struct{}, 1),
	}
	s.reload()
	return s
}

// Start launches the monitoring loop: one immediate due-alert check,
// then one per check interval, plus a flush whenever the resume signal
// fires. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Alert scheduler already running")
		return
	}
	s.running = true
	s.stopChan = make(chan struct{})
	stopChan := s.stopChan
	s.mu.Unlock()

	go s.run(stopChan)

	s.logger.Info("Alert scheduler started",
		zap.Duration("checkInterval", s.cfg.CheckInterval),
		zap.Duration("deliveryGap", s.cfg.DeliveryGap),
		zap.Int("pending", s.PendingCount()))
}

// Stop halts the monitoring loop. Pending alerts stay persisted.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	close(s.stopChan)
	s.running = false

	s.logger.Info("Alert scheduler stopped")
}

// Resume signals that user activity came back. The actual queue flush
// happens on the scheduler's own loop, so this never blocks and is
// safe to call from a presence listener.
func (s *Scheduler) Resume() {
	select {
	case s.resumeCh <- struct{}{}:
	default:
	}
}

// Schedule inserts an alert into the pending set and persists it.
// Scheduling an id that is already pending overwrites the earlier
// record.
func (s *Scheduler) Schedule(alert *entities.Alert) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("invalid alert: %w", err)
	}

	s.mu.Lock()
	stored := *alert
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.clock.Now()
	}
	_, replaced := s.pending[stored.ID]
	s.pending[stored.ID] = &stored
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("Alert scheduled",
		zap.String("alertID", alert.ID),
		zap.String("type", string(alert.Type)),
		zap.String("priority", string(alert.Priority)),
		zap.Time("scheduledTime", alert.ScheduledTime),
		zap.Bool("replaced", replaced))
	return nil
}

// Cancel removes an alert from the pending set and from the inactive
// queue. An alert already dequeued for delivery is past cancelling.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	_, pending := s.pending[id]
	delete(s.pending, id)
	queued := s.removeQueuedLocked(id)
	if pending || queued {
		// a queued alert left the pending map without touching
		// storage, so the stale record must be rewritten away too or
		// a restart revives the cancelled alert
		s.persistLocked()
	}
	s.mu.Unlock()

	if !pending && !queued {
		return ErrAlertNotFound
	}

	s.logger.Info("Alert cancelled", zap.String("alertID", id), zap.Bool("wasQueued", queued))
	return nil
}

// Acknowledge marks a delivered alert as handled. The scheduler does
// not re-track alerts after delivery, so acknowledgment simply removes
// any record that still exists.
func (s *Scheduler) Acknowledge(id string) error {
	err := s.Cancel(id)
	if errors.Is(err, ErrAlertNotFound) {
		// already delivered and dropped; acknowledgment is still fine
		return nil
	}
	return err
}

// Trigger delivers an alert immediately, bypassing scheduling. If the
// id is pending it is removed first so it cannot fire twice. Delivery
// awaits the sink.
func (s *Scheduler) Trigger(ctx context.Context, alert *entities.Alert) error {
	if err := alert.Validate(); err != nil {
		return fmt.Errorf("invalid alert: %w", err)
	}

	s.mu.Lock()
	_, pending := s.pending[alert.ID]
	delete(s.pending, alert.ID)
	queued := s.removeQueuedLocked(alert.ID)
	if pending || queued {
		s.persistLocked()
	}
	s.mu.Unlock()

	s.logger.Info("Alert triggered", zap.String("alertID", alert.ID))
	return s.deliverer.DeliverAlert(ctx, alert)
}

// Pending returns a snapshot of the pending set.
func (s *Scheduler) Pending() []*entities.Alert {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entities.Alert, 0, len(s.pending))
	for _, alert := range s.pending {
		copied := *alert
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ScheduledTime.Before(out[j].ScheduledTime)
	})
	return out
}

// PendingCount reports how many alerts are waiting to fire.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// QueuedCount reports how many due alerts are buffered for an absent
// user.
func (s *Scheduler) QueuedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

func (s *Scheduler) run(stopChan chan struct{}) {
	ticker := s.clock.Ticker(s.cfg.CheckInterval)
	defer ticker.Stop()

	s.check()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			s.check()
		case <-s.resumeCh:
			s.flushQueue()
		}
	}
}

// check scans the pending set for due alerts and either delivers them
// (user present) or moves them into the inactive queue. Alerts
// scheduled after the scan began wait for the next tick.
func (s *Scheduler) check() {
	now := s.clock.Now()

	s.mu.Lock()
	var due []*entities.Alert
	for _, alert := range s.pending {
		if alert.DueAt(now) {
			due = append(due, alert)
		}
	}
	if len(due) == 0 {
		s.mu.Unlock()
		return
	}
	sortByPriority(due)

	if !s.presence.Active() {
		// buffer without persisting; the store keeps them so a crash
		// while the user is away revives them as due-now
		for _, alert := range due {
			delete(s.pending, alert.ID)
			s.queue = append(s.queue, alert)
		}
		queued := len(s.queue)
		s.mu.Unlock()

		s.logger.Info("User inactive, alerts queued",
			zap.Int("due", len(due)),
			zap.Int("queued", queued))
		return
	}

	s.mu.Unlock()

	s.deliverPending(due)
}

// deliverPending walks due alerts in priority order, dequeueing and
// persisting each one immediately before its own delivery attempt. A
// crash mid-batch loses at most the alert being delivered; the untried
// rest stays pending. Alerts cancelled between the scan and their turn
// are skipped.
func (s *Scheduler) deliverPending(batch []*entities.Alert) {
	delivered := 0
	for _, alert := range batch {
		s.mu.Lock()
		if _, ok := s.pending[alert.ID]; !ok {
			s.mu.Unlock()
			continue
		}
		delete(s.pending, alert.ID)
		s.persistLocked()
		s.mu.Unlock()

		if delivered > 0 && s.cfg.DeliveryGap > 0 {
			s.clock.Sleep(s.cfg.DeliveryGap)
		}
		s.deliverOne(alert)
		delivered++
	}
}

// flushQueue drains the inactive-user buffer once activity resumes.
func (s *Scheduler) flushQueue() {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.queue
	s.queue = nil
	sortByPriority(batch)
	// the queued alerts were still in storage; drop them now that
	// delivery is underway
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("Flushing queued alerts", zap.Int("count", len(batch)))
	s.deliverBatch(batch)
}

// deliverBatch pushes alerts through the sink in order, pausing the
// delivery gap between consecutive alerts so spoken messages do not
// overlap.
func (s *Scheduler) deliverBatch(batch []*entities.Alert) {
	for i, alert := range batch {
		if i > 0 && s.cfg.DeliveryGap > 0 {
			s.clock.Sleep(s.cfg.DeliveryGap)
		}
		s.deliverOne(alert)
	}
}

// deliverOne pushes a single alert through the sink. Sink errors are
// logged and never abort the surrounding batch.
func (s *Scheduler) deliverOne(alert *entities.Alert) {
	if err := s.deliverer.DeliverAlert(context.Background(), alert); err != nil {
		s.logger.Error("Alert delivery failed",
			zap.String("alertID", alert.ID),
			zap.Error(err))
		return
	}
	s.logger.Info("Alert delivered",
		zap.String("alertID", alert.ID),
		zap.String("priority", string(alert.Priority)))
}

func (s *Scheduler) removeQueuedLocked(id string) bool {
	for i, alert := range s.queue {
		if alert.ID == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			return true
		}
	}
	return false
}

// persistLocked serializes the whole pending set under the storage
// key. Store failures are logged; the scheduler keeps operating on its
// in-memory state.
func (s *Scheduler) persistLocked() {
	data, err := json.Marshal(s.pending)
	if err != nil {
		s.logger.Error("Failed to encode pending alerts", zap.Error(err))
		return
	}
	if err := s.store.Set(context.Background(), s.cfg.StorageKey, data); err != nil {
		s.logger.Error("Failed to persist pending alerts", zap.Error(err))
	}
}

// reload revives the pending set from storage.
func (s *Scheduler) reload() {
	data, err := s.store.Get(context.Background(), s.cfg.StorageKey)
	if errors.Is(err, repositories.ErrKeyNotFound) {
		return
	}
	if err != nil {
		s.logger.Error("Failed to load pending alerts", zap.Error(err))
		return
	}

	var pending map[string]*entities.Alert
	if err := json.Unmarshal(data, &pending); err != nil {
		s.logger.Error("Failed to decode pending alerts", zap.Error(err))
		return
	}
	s.pending = pending
	if s.pending == nil {
		s.pending = make(map[string]*entities.Alert)
	}

	s.logger.Info("Pending alerts reloaded", zap.Int("count", len(s.pending)))
}

// sortByPriority orders a batch high before normal before low, ties
// broken by scheduled time then id so delivery order is deterministic.
func sortByPriority(batch []*entities.Alert) {
	sort.SliceStable(batch, func(i, j int) bool {
		if batch[i].Priority.Rank() != batch[j].Priority.Rank() {
			return batch[i].Priority.Rank() > batch[j].Priority.Rank()
		}
		if !batch[i].ScheduledTime.Equal(batch[j].ScheduledTime) {
			return batch[i].ScheduledTime.Before(batch[j].ScheduledTime)
		}
		return batch[i].ID < batch[j].ID
	})
}
