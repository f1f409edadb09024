package repositories

import (
	"context"

	"github.com/pawhaven/voicecore/domain/entities"
)

// AlertDeliverer pushes one due alert to the device surface. Delivery
// is awaited; the scheduler does not move on to the next alert until
// the call returns.
type AlertDeliverer interface {
	DeliverAlert(ctx context.Context, alert *entities.Alert) error
}

// PromptSpeaker voices a dialog prompt back to the user through the
// device's synthesis pipeline.
type PromptSpeaker interface {
	SpeakPrompt(ctx context.Context, deviceID string, prompt entities.DialogPrompt) error
}
