package entities

import (
	"errors"
	"time"
)

// AlertType categorizes what a scheduled alert is about.
type AlertType string

const (
	AlertTypeMedication  AlertType = "medication"
	AlertTypeAppointment AlertType = "appointment"
	AlertTypeFeeding     AlertType = "feeding"
	AlertTypeHealth      AlertType = "health"
)

// AlertPriority controls delivery order when several alerts are due at once.
type AlertPriority string

const (
	AlertPriorityHigh   AlertPriority = "high"
	AlertPriorityNormal AlertPriority = "normal"
	AlertPriorityLow    AlertPriority = "low"
)

// Rank maps a priority to a sortable weight; higher delivers first.
func (p AlertPriority) Rank() int {
	switch p {
	case AlertPriorityHigh:
		return 3
	case AlertPriorityNormal:
		return 2
	case AlertPriorityLow:
		return 1
	default:
		return 0
	}
}

// Alert is a time-triggered spoken notification for a pet. The id is
// caller-supplied; scheduling the same id again overwrites the earlier
// record.
type Alert struct {
	ID            string                 `json:"id" bson:"_id"`
	Type          AlertType              `json:"type" bson:"type"`
	PetID         string                 `json:"pet_id" bson:"pet_id"`
	Message       string                 `json:"message" bson:"message"`
	ScheduledTime time.Time              `json:"scheduled_time" bson:"scheduled_time"`
	Priority      AlertPriority          `json:"priority" bson:"priority"`
	VisualData    map[string]interface{} `json:"visual_data,omitempty" bson:"visual_data,omitempty"`
	RequiresAck   bool                   `json:"requires_acknowledgment" bson:"requires_acknowledgment"`
	CreatedAt     time.Time              `json:"created_at" bson:"created_at"`
}

// DueAt reports whether the alert should have fired at the given instant.
func (a *Alert) DueAt(now time.Time) bool {
	return !a.ScheduledTime.After(now)
}

// Validate checks the fields an alert needs before it can be scheduled.
func (a *Alert) Validate() error {
	if a.ID == "" {
		return errors.New("alert id is required")
	}
	if a.Message == "" {
		return errors.New("alert message is required")
	}
	switch a.Type {
	case AlertTypeMedication, AlertTypeAppointment, AlertTypeFeeding, AlertTypeHealth:
	default:
		return errors.New("invalid alert type")
	}
	switch a.Priority {
	case AlertPriorityHigh, AlertPriorityNormal, AlertPriorityLow:
	default:
		return errors.New("invalid alert priority")
	}
	if a.ScheduledTime.IsZero() {
		return errors.New("alert scheduled time is required")
	}
	return nil
}
