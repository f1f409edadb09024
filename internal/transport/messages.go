package transport

import (
	"encoding/json"
	"fmt"

	"github.com/pawhaven/voicecore/domain/entities"
)

// MessageType discriminates websocket messages between a device and
// the voice core.
type MessageType string

// Inbound message types (device to server). Energy frames usually
// arrive as raw binary websocket messages; the JSON form exists for
// clients that cannot send binary.
const (
	MessageTypeEnergyFrame MessageType = "energy_frame"
	MessageTypeInteraction MessageType = "interaction"
	MessageTypeIntent      MessageType = "intent"
	MessageTypeDialogTurn  MessageType = "dialog_turn"
	MessageTypeFillerWord  MessageType = "filler_word"
	MessageTypeAudioLevel  MessageType = "audio_level"
)

// Outbound message types (server to device).
const (
	MessageTypeSpeechStarted MessageType = "speech_started"
	MessageTypeSpeechEnded   MessageType = "speech_ended"
	MessageTypePrompt        MessageType = "prompt"
	MessageTypeAlert         MessageType = "alert"
	MessageTypeDialogDone    MessageType = "dialog_done"
	MessageTypeError         MessageType = "error"
)

// InboundMessage is the envelope for device-originated JSON messages.
// Only the fields for its type are populated.
type InboundMessage struct {
	Type     MessageType       `json:"type"`
	Frame    []byte            `json:"frame,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Intent   *entities.Intent  `json:"intent,omitempty"`
	DialogID string            `json:"dialog_id,omitempty"`
	Text     string            `json:"text,omitempty"`
	Entities []entities.Entity `json:"entities,omitempty"`
}

// Validate checks that the message carries what its type needs.
func (m *InboundMessage) Validate() error {
	switch m.Type {
	case MessageTypeEnergyFrame:
		if len(m.Frame) == 0 {
			return fmt.Errorf("energy_frame message requires a frame")
		}
	case MessageTypeInteraction:
		if m.Kind == "" {
			return fmt.Errorf("interaction message requires a kind")
		}
	case MessageTypeIntent:
		if m.Intent == nil || m.Intent.Action == "" {
			return fmt.Errorf("intent message requires an intent with an action")
		}
	case MessageTypeDialogTurn:
		if m.Text == "" {
			return fmt.Errorf("dialog_turn message requires text")
		}
	case MessageTypeFillerWord, MessageTypeAudioLevel:
		// no payload
	case "":
		return fmt.Errorf("message missing type field")
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
	return nil
}

// ParseInbound decodes and validates a JSON message from a device.
func ParseInbound(data []byte) (*InboundMessage, error) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parsing message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}

// SpeechEventMessage announces a boundary decision. The surrounding
// system uses these to gate speech recognition.
type SpeechEventMessage struct {
	Type        MessageType `json:"type"`
	Timestamp   int64       `json:"timestamp"`
	UtteranceMs int64       `json:"utterance_ms,omitempty"`
}

// PromptMessage carries one spoken dialog turn to the device.
type PromptMessage struct {
	Type     MessageType           `json:"type"`
	DialogID string                `json:"dialog_id,omitempty"`
	Prompt   entities.DialogPrompt `json:"prompt"`
}

// AlertMessage delivers a due alert.
type AlertMessage struct {
	Type  MessageType     `json:"type"`
	Alert *entities.Alert `json:"alert"`
}

// DialogDoneMessage surfaces a resolved conversation to the
// surrounding application.
type DialogDoneMessage struct {
	Type   MessageType            `json:"type"`
	Result *entities.DialogResult `json:"result"`
}

// AudioLevelMessage answers an audio_level query with the detector's
// most recent normalized level.
type AudioLevelMessage struct {
	Type  MessageType `json:"type"`
	Level float64     `json:"level"`
}

// ErrorMessage reports a rejected inbound message.
type ErrorMessage struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}
