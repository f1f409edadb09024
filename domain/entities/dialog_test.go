package entities

import (
	"testing"
)

func feedingDefinitions() []ParameterDefinition {
	return []ParameterDefinition{
		{Name: "pet", Type: ParameterTypeText, Required: true, Prompt: "Which pet is this for?"},
		{Name: "amount", Type: ParameterTypeNumber, Required: true, Prompt: "How much food?"},
		{Name: "time", Type: ParameterTypeTime, Required: true, Prompt: "What time should I remind you?"},
		{Name: "notes", Type: ParameterTypeText, Required: false, Prompt: "Any notes?"},
	}
}

func TestNewDialogStateSeedsIntentParameters(t *testing.T) {
	intent := Intent{
		Action:     "schedule_feeding",
		Parameters: map[string]string{"pet": "Bella"},
		Confidence: 0.92,
	}

	state := NewDialogState(intent, feedingDefinitions(), DialogTypeFeeding, true)

	if state.ID == "" {
		t.Error("Expected dialog state to have an id")
	}
	if got := state.Collected["pet"]; got != "Bella" {
		t.Errorf("Expected seeded pet parameter Bella, got %q", got)
	}
	if !state.ConfirmationRequired {
		t.Error("Expected confirmation to be required")
	}
	if state.Terminal() {
		t.Error("New dialog should not be terminal")
	}
}

func TestDialogStateMissing(t *testing.T) {
	intent := Intent{Action: "schedule_feeding", Parameters: map[string]string{"pet": "Bella"}}
	state := NewDialogState(intent, feedingDefinitions(), DialogTypeFeeding, false)

	missing := state.Missing()
	if len(missing) != 2 {
		t.Fatalf("Expected 2 missing parameters, got %d", len(missing))
	}
	if missing[0].Name != "amount" || missing[1].Name != "time" {
		t.Errorf("Expected missing parameters in declaration order, got %s then %s",
			missing[0].Name, missing[1].Name)
	}

	state.SetParameter("amount", "2")
	state.SetParameter("time", "8am")
	if got := len(state.Missing()); got != 0 {
		t.Errorf("Expected no missing parameters, got %d", got)
	}
}

func TestDialogStateFreezesAfterTerminal(t *testing.T) {
	state := NewDialogState(Intent{Action: "schedule_feeding"}, feedingDefinitions(), DialogTypeFeeding, false)

	state.SetParameter("pet", "Bella")
	state.Cancelled = true
	state.SetParameter("pet", "Max")

	if got := state.Collected["pet"]; got != "Bella" {
		t.Errorf("Expected cancelled dialog to keep Bella, got %q", got)
	}

	state.Cancelled = false
	state.Complete = true
	state.SetParameter("amount", "3")
	if _, ok := state.Collected["amount"]; ok {
		t.Error("Expected completed dialog to reject new parameters")
	}
}

func TestDialogStateMergedIntent(t *testing.T) {
	intent := Intent{
		Action:     "schedule_feeding",
		Parameters: map[string]string{"pet": "Bella"},
	}
	state := NewDialogState(intent, feedingDefinitions(), DialogTypeFeeding, false)
	state.SetParameter("amount", "2")
	state.SetParameter("time", "8am")

	merged := state.MergedIntent()
	if merged.Action != "schedule_feeding" {
		t.Errorf("Expected action schedule_feeding, got %s", merged.Action)
	}
	for name, want := range map[string]string{"pet": "Bella", "amount": "2", "time": "8am"} {
		if got := merged.Parameters[name]; got != want {
			t.Errorf("Expected merged %s=%s, got %q", name, want, got)
		}
	}
	if len(intent.Parameters) != 1 {
		t.Error("Merging should not mutate the original intent")
	}
}

func TestInteractionKindKnown(t *testing.T) {
	known := []InteractionKind{
		InteractionPointerDown, InteractionPointerMove, InteractionKeyDown,
		InteractionScroll, InteractionTouch, InteractionVoice,
	}
	for _, kind := range known {
		if !kind.Known() {
			t.Errorf("Expected %s to be a known interaction kind", kind)
		}
	}
	if InteractionKind("hover").Known() {
		t.Error("Expected hover to be unknown")
	}
}
