package entities

import (
	"time"

	"github.com/google/uuid"
)

// ParameterType describes how a slot value is extracted and validated.
type ParameterType string

const (
	ParameterTypeText    ParameterType = "text"
	ParameterTypeNumber  ParameterType = "number"
	ParameterTypeBoolean ParameterType = "boolean"
	ParameterTypeDate    ParameterType = "date"
	ParameterTypeTime    ParameterType = "time"
)

// ParameterDefinition declares one slot a dialog must fill before its
// intent can be acted on.
type ParameterDefinition struct {
	Name     string             `json:"name"`
	Type     ParameterType      `json:"type"`
	Required bool               `json:"required"`
	Prompt   string             `json:"prompt"`
	Validate func(string) error `json:"-"`
}

// Entity is a typed value recognized inside a transcript, used to
// pre-fill dialog parameters without asking for them.
type Entity struct {
	Type  ParameterType `json:"type"`
	Value string        `json:"value"`
}

// Intent is the interpreted goal of an utterance plus whatever
// parameters were already recognized alongside it.
type Intent struct {
	Action     string            `json:"action"`
	Parameters map[string]string `json:"parameters,omitempty"`
	Confidence float64           `json:"confidence,omitempty"`
}

// DialogType selects how collected parameters are summarized back to
// the user.
type DialogType string

const (
	DialogTypeFeeding     DialogType = "feeding"
	DialogTypeMedication  DialogType = "medication"
	DialogTypeAppointment DialogType = "appointment"
	DialogTypeHealth      DialogType = "health"
	DialogTypeGeneric     DialogType = "generic"
)

// PromptKind tells the speaker what role a dialog prompt plays.
type PromptKind string

const (
	PromptKindQuestion     PromptKind = "question"
	PromptKindConfirmation PromptKind = "confirmation"
	PromptKindCompletion   PromptKind = "completion"
	PromptKindCancellation PromptKind = "cancellation"
	PromptKindGiveUp       PromptKind = "give_up"
)

// DialogPrompt is one spoken turn the engine wants voiced back to the
// user.
type DialogPrompt struct {
	Kind      PromptKind `json:"kind"`
	Text      string     `json:"text"`
	Parameter string     `json:"parameter,omitempty"`
}

// DialogResult summarizes a finished conversation.
type DialogResult struct {
	DialogID  string    `json:"dialog_id"`
	Intent    Intent    `json:"intent"`
	Completed bool      `json:"completed"`
	Cancelled bool      `json:"cancelled"`
	Turns     int       `json:"turns"`
	EndedAt   time.Time `json:"ended_at"`
}

// DialogState carries a multi-turn slot-filling conversation. Collected
// is keyed by parameter name; terminal flags freeze the collected
// values.
type DialogState struct {
	ID                   string                `json:"id"`
	Type                 DialogType            `json:"type"`
	Intent               Intent                `json:"intent"`
	Definitions          []ParameterDefinition `json:"definitions"`
	Collected            map[string]string     `json:"collected"`
	CurrentParameter     string                `json:"current_parameter,omitempty"`
	TurnCount            int                   `json:"turn_count"`
	ConfirmationRequired bool                  `json:"confirmation_required"`
	ConfirmationReceived bool                  `json:"confirmation_received"`
	AwaitingConfirmation bool                  `json:"awaiting_confirmation"`
	Complete             bool                  `json:"complete"`
	Cancelled            bool                  `json:"cancelled"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// NewDialogState opens a conversation for the given intent, seeding
// collected values from parameters the intent already carried.
func NewDialogState(intent Intent, defs []ParameterDefinition, dialogType DialogType, confirm bool) *DialogState {
	now := time.Now()
	state := &DialogState{
		ID:                   uuid.New().String(),
		Type:                 dialogType,
		Intent:               intent,
		Definitions:          defs,
		Collected:            make(map[string]string),
		ConfirmationRequired: confirm,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	for name, value := range intent.Parameters {
		state.Collected[name] = value
	}
	return state
}

// Terminal reports whether the conversation has already ended.
func (d *DialogState) Terminal() bool {
	return d.Complete || d.Cancelled
}

// SetParameter records a collected value. Values are frozen once the
// dialog has completed or been cancelled.
func (d *DialogState) SetParameter(name, value string) {
	if d.Terminal() {
		return
	}
	d.Collected[name] = value
	d.UpdatedAt = time.Now()
}

// Missing returns the required parameters that still lack a value, in
// declaration order.
func (d *DialogState) Missing() []ParameterDefinition {
	var missing []ParameterDefinition
	for _, def := range d.Definitions {
		if !def.Required {
			continue
		}
		if _, ok := d.Collected[def.Name]; !ok {
			missing = append(missing, def)
		}
	}
	return missing
}

// Definition looks up a parameter declaration by name.
func (d *DialogState) Definition(name string) (ParameterDefinition, bool) {
	for _, def := range d.Definitions {
		if def.Name == name {
			return def, true
		}
	}
	return ParameterDefinition{}, false
}

// MergedIntent returns the dialog's intent with every collected value
// folded into its parameter map.
func (d *DialogState) MergedIntent() Intent {
	merged := Intent{
		Action:     d.Intent.Action,
		Parameters: make(map[string]string, len(d.Collected)),
		Confidence: d.Intent.Confidence,
	}
	for name, value := range d.Intent.Parameters {
		merged.Parameters[name] = value
	}
	for name, value := range d.Collected {
		merged.Parameters[name] = value
	}
	return merged
}
