package usecase

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/pawhaven/voicecore/domain/entities"
)

// DialogSpec tells the engine how to run a conversation for one intent
// action: which slots to collect and whether to confirm before
// finishing.
type DialogSpec struct {
	Type       entities.DialogType
	Confirm    bool
	Parameters []entities.ParameterDefinition
}

// IntentCatalog maps intent actions to their dialog specs. Unknown
// actions resolve to a generic spec with nothing to collect, so the
// dialog completes on its first turn.
type IntentCatalog struct {
	mu    sync.RWMutex
	specs map[string]DialogSpec
}

// NewIntentCatalog seeds the catalog with the built-in pet-care
// actions.
func NewIntentCatalog() *IntentCatalog {
	c := &IntentCatalog{specs: make(map[string]DialogSpec)}

	c.Register("log_feeding", DialogSpec{
		Type:    entities.DialogTypeFeeding,
		Confirm: true,
		Parameters: []entities.ParameterDefinition{
			{Name: "pet", Type: entities.ParameterTypeText, Required: true,
				Prompt: "Which pet did you feed?"},
			{Name: "food", Type: entities.ParameterTypeText, Required: true,
				Prompt: "What food was it?"},
			{Name: "amount", Type: entities.ParameterTypeNumber, Required: true,
				Prompt: "How much did they eat, in cups?", Validate: positiveNumber},
			{Name: "time", Type: entities.ParameterTypeTime, Required: true,
				Prompt: "What time was the feeding?"},
		},
	})

	c.Register("schedule_medication", DialogSpec{
		Type:    entities.DialogTypeMedication,
		Confirm: true,
		Parameters: []entities.ParameterDefinition{
			{Name: "pet", Type: entities.ParameterTypeText, Required: true,
				Prompt: "Which pet is the medication for?"},
			{Name: "medication", Type: entities.ParameterTypeText, Required: true,
				Prompt: "What medication should I remind you about?"},
			{Name: "time", Type: entities.ParameterTypeTime, Required: true,
				Prompt: "What time should the reminder go off?"},
		},
	})

	c.Register("book_appointment", DialogSpec{
		Type:    entities.DialogTypeAppointment,
		Confirm: true,
		Parameters: []entities.ParameterDefinition{
			{Name: "pet", Type: entities.ParameterTypeText, Required: true,
				Prompt: "Which pet is the appointment for?"},
			{Name: "service", Type: entities.ParameterTypeText, Required: true,
				Prompt: "What kind of appointment is it?"},
			{Name: "date", Type: entities.ParameterTypeDate, Required: true,
				Prompt: "What date works for you?"},
		},
	})

	c.Register("log_health", DialogSpec{
		Type:    entities.DialogTypeHealth,
		Confirm: false,
		Parameters: []entities.ParameterDefinition{
			{Name: "pet", Type: entities.ParameterTypeText, Required: true,
				Prompt: "Which pet is this about?"},
			{Name: "observation", Type: entities.ParameterTypeText, Required: true,
				Prompt: "What did you notice?"},
		},
	})

	return c
}

// Register adds or replaces the spec for an action.
func (c *IntentCatalog) Register(action string, spec DialogSpec) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specs[action] = spec
}

// Lookup resolves an action to its spec, falling back to a generic
// zero-slot dialog.
func (c *IntentCatalog) Lookup(action string) DialogSpec {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if spec, ok := c.specs[action]; ok {
		return spec
	}
	return DialogSpec{Type: entities.DialogTypeGeneric}
}

func positiveNumber(value string) error {
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("%q doesn't look like a number", value)
	}
	if n <= 0 {
		return fmt.Errorf("the amount has to be above zero")
	}
	return nil
}
