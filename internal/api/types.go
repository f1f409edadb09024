package api

import (
	"time"

	"github.com/pawhaven/voicecore/domain/entities"
)

// DeviceAuthRequest is the payload a device presents to obtain a
// websocket token.
type DeviceAuthRequest struct {
	SerialNumber string `json:"serial_number"`
	SecretKey    string `json:"secret_key"`
}

// DeviceAuthResponse carries the issued token.
type DeviceAuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	DeviceID  string    `json:"device_id"`
}

// ScheduleAlertRequest creates or overwrites a scheduled alert.
type ScheduleAlertRequest struct {
	ID            string                 `json:"id"`
	Type          entities.AlertType     `json:"type"`
	PetID         string                 `json:"pet_id"`
	Message       string                 `json:"message"`
	ScheduledTime time.Time              `json:"scheduled_time"`
	Priority      entities.AlertPriority `json:"priority"`
	VisualData    map[string]interface{} `json:"visual_data,omitempty"`
	RequiresAck   bool                   `json:"requires_acknowledgment"`
}

// RecurrenceRequest registers a repeating alert rule.
type RecurrenceRequest struct {
	ID       string                 `json:"id"`
	Spec     string                 `json:"spec"`
	Type     entities.AlertType     `json:"type"`
	PetID    string                 `json:"pet_id"`
	Message  string                 `json:"message"`
	Priority entities.AlertPriority `json:"priority"`
}

// InteractionRequest reports a user interaction event.
type InteractionRequest struct {
	Kind string `json:"kind"`
}

// PresenceResponse reports the activity tracker's view of the user.
type PresenceResponse struct {
	Active       bool      `json:"active"`
	IdleFor      string    `json:"idle_for"`
	LastActivity time.Time `json:"last_activity"`
}

// ErrorResponse is the uniform error payload.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
