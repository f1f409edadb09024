package alerts

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/domain/entities"
)

// ErrRuleNotFound is returned when removing an unknown recurrence rule.
var ErrRuleNotFound = errors.New("recurrence rule not found")

// RecurrenceRule repeats an alert on a cron schedule: medication every
// eight hours, feeding twice a day. Each firing materializes a fresh
// alert from the template into the scheduler.
type RecurrenceRule struct {
	ID        string         `json:"id"`
	Spec      string         `json:"spec"`
	Template  entities.Alert `json:"template"`
	CreatedAt time.Time      `json:"created_at"`
	LastFired time.Time      `json:"last_fired,omitempty"`
}

// Recurrence plans repeating alerts. Rules live in memory for the
// session; only the concrete alerts they spawn reach durable storage,
// through the scheduler's pending set.
type Recurrence struct {
	scheduler *Scheduler
	clock     clock.Clock
	logger    *zap.Logger
	cron      *cron.Cron

	mu      sync.Mutex
	rules   map[string]*RecurrenceRule
	entries map[string]cron.EntryID
}

// NewRecurrence builds a planner feeding the given scheduler. Cron
// specs use the standard five-field format plus @every / @daily style
// descriptors.
func NewRecurrence(scheduler *Scheduler, logger *zap.Logger) *Recurrence {
	return &Recurrence{
		scheduler: scheduler,
		clock:     scheduler.clock,
		logger:    logger,
		cron:      cron.New(),
		rules:     make(map[string]*RecurrenceRule),
		entries:   make(map[string]cron.EntryID),
	}
}

// Start begins firing rules on their schedules.
func (r *Recurrence) Start() {
	r.cron.Start()
	r.logger.Info("Recurrence planner started")
}

// Stop halts the cron runner. Registered rules survive for a later
// Start.
func (r *Recurrence) Stop() {
	r.cron.Stop()
	r.logger.Info("Recurrence planner stopped")
}

// AddRule registers a rule. The template is validated up front minus
// its id and scheduled time, which are generated per firing; an
// existing rule id is replaced.
func (r *Recurrence) AddRule(rule RecurrenceRule) error {
	if rule.ID == "" {
		return errors.New("recurrence rule id is required")
	}

	probe := rule.Template
	probe.ID = rule.ID
	probe.ScheduledTime = r.clock.Now()
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("invalid alert template: %w", err)
	}

	ruleID := rule.ID
	entryID, err := r.cron.AddFunc(rule.Spec, func() {
		r.fire(ruleID)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", rule.Spec, err)
	}

	rule.CreatedAt = r.clock.Now()

	r.mu.Lock()
	if old, ok := r.entries[rule.ID]; ok {
		r.cron.Remove(old)
	}
	stored := rule
	r.rules[rule.ID] = &stored
	r.entries[rule.ID] = entryID
	r.mu.Unlock()

	r.logger.Info("Recurrence rule added",
		zap.String("ruleID", rule.ID),
		zap.String("spec", rule.Spec),
		zap.String("alertType", string(rule.Template.Type)))
	return nil
}

// RemoveRule unregisters a rule. Alerts it already materialized stay
// scheduled.
func (r *Recurrence) RemoveRule(id string) error {
	r.mu.Lock()
	entryID, ok := r.entries[id]
	if ok {
		r.cron.Remove(entryID)
		delete(r.entries, id)
		delete(r.rules, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrRuleNotFound
	}
	r.logger.Info("Recurrence rule removed", zap.String("ruleID", id))
	return nil
}

// Rules returns a snapshot of the registered rules, ordered by id.
func (r *Recurrence) Rules() []*RecurrenceRule {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*RecurrenceRule, 0, len(r.rules))
	for _, rule := range r.rules {
		copied := *rule
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// fire materializes one concrete alert from a rule. The alert id
// embeds the firing time so every occurrence is distinct in the
// pending set. The cron runner decides when firings happen; the
// scheduler's clock stamps them, so the materialized alert is due by
// the same notion of now the delivery loop checks against.
func (r *Recurrence) fire(ruleID string) {
	r.mu.Lock()
	rule, ok := r.rules[ruleID]
	if !ok {
		r.mu.Unlock()
		return
	}
	now := r.clock.Now()
	rule.LastFired = now
	alert := rule.Template
	r.mu.Unlock()

	alert.ID = fmt.Sprintf("%s-%d", ruleID, now.Unix())
	alert.ScheduledTime = now

	if err := r.scheduler.Schedule(&alert); err != nil {
		r.logger.Error("Failed to schedule recurring alert",
			zap.String("ruleID", ruleID),
			zap.Error(err))
		return
	}

	r.logger.Debug("Recurring alert materialized",
		zap.String("ruleID", ruleID),
		zap.String("alertID", alert.ID))
}
