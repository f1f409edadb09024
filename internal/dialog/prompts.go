package dialog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pawhaven/voicecore/domain/entities"
)

func questionPrompt(def entities.ParameterDefinition) *entities.DialogPrompt {
	return &entities.DialogPrompt{
		Kind:      entities.PromptKindQuestion,
		Text:      def.Prompt,
		Parameter: def.Name,
	}
}

func clarificationPrompt(def entities.ParameterDefinition) *entities.DialogPrompt {
	return &entities.DialogPrompt{
		Kind:      entities.PromptKindQuestion,
		Text:      fmt.Sprintf("Sorry, I didn't catch that. %s", def.Prompt),
		Parameter: def.Name,
	}
}

func validationPrompt(def entities.ParameterDefinition, err error) *entities.DialogPrompt {
	return &entities.DialogPrompt{
		Kind:      entities.PromptKindQuestion,
		Text:      fmt.Sprintf("%s. %s", err.Error(), def.Prompt),
		Parameter: def.Name,
	}
}

func cancellationPrompt() *entities.DialogPrompt {
	return &entities.DialogPrompt{
		Kind: entities.PromptKindCancellation,
		Text: "Okay, I've cancelled that. Is there anything else I can help you with?",
	}
}

func giveUpPrompt() *entities.DialogPrompt {
	return &entities.DialogPrompt{
		Kind: entities.PromptKindGiveUp,
		Text: "I'm sorry, I'm having trouble with this request. Let's try again later.",
	}
}

// confirmationPrompt renders the collected parameters as a summary the
// user can approve with a yes or no.
func confirmationPrompt(state *entities.DialogState) *entities.DialogPrompt {
	return &entities.DialogPrompt{
		Kind: entities.PromptKindConfirmation,
		Text: fmt.Sprintf("%s Is that right?", summarize(state)),
	}
}

func summarize(state *entities.DialogState) string {
	get := func(name string) string {
		if value, ok := state.Collected[name]; ok && value != "" {
			return value
		}
		return "that"
	}

	switch state.Type {
	case entities.DialogTypeFeeding:
		return fmt.Sprintf("I'll log a feeding for %s: %s of %s at %s.",
			get("pet"), get("amount"), get("food"), get("time"))
	case entities.DialogTypeMedication:
		return fmt.Sprintf("I'll remind you to give %s %s at %s.",
			get("pet"), get("medication"), get("time"))
	case entities.DialogTypeAppointment:
		return fmt.Sprintf("I'll note %s's %s appointment on %s.",
			get("pet"), get("service"), get("date"))
	default:
		return genericSummary(state)
	}
}

func genericSummary(state *entities.DialogState) string {
	if len(state.Collected) == 0 {
		return "I have everything I need."
	}

	names := make([]string, 0, len(state.Collected))
	for name := range state.Collected {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([]string, 0, len(names))
	for _, name := range names {
		pairs = append(pairs, fmt.Sprintf("%s: %s", name, state.Collected[name]))
	}
	return fmt.Sprintf("I have %s.", strings.Join(pairs, ", "))
}
