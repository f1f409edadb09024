package dialog

import (
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/entities"
)

// ErrDialogNotFound is returned for ids that are not active (or, for
// Complete, not in history either).
var ErrDialogNotFound = errors.New("dialog not found")

// Engine drives slot-filling conversations. Each turn consumes one
// user utterance and yields the next prompt, in strict order:
// cancellation phrases first, then the turn budget, then the
// confirmation gate, then parameter collection. Resolved dialogs move
// into a bounded history ring.
type Engine struct {
	cfg       config.DialogConfig
	logger    *zap.Logger
	extractor *extractor

	mu      sync.Mutex
	active  map[string]*entities.DialogState
	history []*entities.DialogState
}

// NewEngine creates an engine with no active dialogs.
func NewEngine(cfg config.DialogConfig, logger *zap.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		logger:    logger,
		extractor: newExtractor(cfg),
		active:    make(map[string]*entities.DialogState),
	}
}

// Start opens a dialog for the intent. Parameters the intent already
// carries are pre-filled; the returned state is owned by the engine
// until the dialog resolves.
func (e *Engine) Start(intent entities.Intent, defs []entities.ParameterDefinition, dialogType entities.DialogType, confirm bool) *entities.DialogState {
	state := entities.NewDialogState(intent, defs, dialogType, confirm)
	if missing := state.Missing(); len(missing) > 0 {
		state.CurrentParameter = missing[0].Name
	}

	e.mu.Lock()
	e.active[state.ID] = state
	e.mu.Unlock()

	e.logger.Info("Dialog started",
		zap.String("dialogID", state.ID),
		zap.String("action", intent.Action),
		zap.String("type", string(dialogType)),
		zap.Int("seeded", len(state.Collected)))

	return state
}

// ProcessTurn consumes one utterance and returns the next prompt. A
// (nil, nil) return means the dialog completed. Cancellation and
// give-up prompts are terminal; the dialog is already archived when
// they are returned.
func (e *Engine) ProcessTurn(dialogID string, userInput string, parsed []entities.Entity) (*entities.DialogPrompt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.active[dialogID]
	if !ok {
		return nil, ErrDialogNotFound
	}

	// cancellation always wins, even while confirming
	if e.isCancellation(userInput) {
		e.cancelLocked(state, "cancellation phrase")
		return cancellationPrompt(), nil
	}

	// the turn budget guarantees termination
	if state.TurnCount >= e.cfg.MaxTurns {
		e.cancelLocked(state, "turn budget exhausted")
		return giveUpPrompt(), nil
	}
	state.TurnCount++

	if state.AwaitingConfirmation && !state.ConfirmationReceived {
		switch e.extractor.classify(userInput) {
		case confirmationYes:
			state.ConfirmationReceived = true
			state.AwaitingConfirmation = false
		case confirmationNo:
			e.cancelLocked(state, "confirmation declined")
			return cancellationPrompt(), nil
		default:
			// unclear: re-ask the same confirmation unchanged
			return confirmationPrompt(state), nil
		}
	} else if missing := state.Missing(); len(missing) > 0 {
		def := missing[0]
		state.CurrentParameter = def.Name

		value, found := e.extractor.extract(def, userInput, parsed)
		if !found {
			return clarificationPrompt(def), nil
		}
		if def.Validate != nil {
			if err := def.Validate(value); err != nil {
				return validationPrompt(def, err), nil
			}
		}
		state.SetParameter(def.Name, value)
		e.logger.Debug("Parameter collected",
			zap.String("dialogID", state.ID),
			zap.String("parameter", def.Name))
	}

	if missing := state.Missing(); len(missing) > 0 {
		def := missing[0]
		state.CurrentParameter = def.Name
		return questionPrompt(def), nil
	}
	state.CurrentParameter = ""

	if state.ConfirmationRequired && !state.ConfirmationReceived {
		state.AwaitingConfirmation = true
		return confirmationPrompt(state), nil
	}

	state.Complete = true
	e.archiveLocked(state)
	e.logger.Info("Dialog completed",
		zap.String("dialogID", state.ID),
		zap.Int("turns", state.TurnCount))
	return nil, nil
}

// NextPrompt returns what would be asked next without consuming input.
// A (nil, nil) return means there is nothing left to ask.
func (e *Engine) NextPrompt(dialogID string) (*entities.DialogPrompt, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	state, ok := e.active[dialogID]
	if !ok {
		return nil, ErrDialogNotFound
	}

	if missing := state.Missing(); len(missing) > 0 {
		state.CurrentParameter = missing[0].Name
		return questionPrompt(missing[0]), nil
	}
	if state.ConfirmationRequired && !state.ConfirmationReceived {
		state.AwaitingConfirmation = true
		return confirmationPrompt(state), nil
	}
	return nil, nil
}

// Complete finalizes a dialog and returns its result with collected
// parameters merged into the intent. Active dialogs are archived;
// already-resolved ids return their archived result.
func (e *Engine) Complete(dialogID string) (*entities.DialogResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if state, ok := e.active[dialogID]; ok {
		if !state.Cancelled {
			state.Complete = true
		}
		state.CurrentParameter = ""
		e.archiveLocked(state)
		e.logger.Info("Dialog finalized",
			zap.String("dialogID", state.ID),
			zap.Bool("completed", state.Complete),
			zap.Int("turns", state.TurnCount))
		return resultOf(state), nil
	}

	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ID == dialogID {
			return resultOf(e.history[i]), nil
		}
	}
	return nil, ErrDialogNotFound
}

// Get returns a snapshot of a dialog, active or archived.
func (e *Engine) Get(dialogID string) (*entities.DialogState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if state, ok := e.active[dialogID]; ok {
		return snapshot(state), true
	}
	for i := len(e.history) - 1; i >= 0; i-- {
		if e.history[i].ID == dialogID {
			return snapshot(e.history[i]), true
		}
	}
	return nil, false
}

// ActiveCount reports how many dialogs are in flight.
func (e *Engine) ActiveCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.active)
}

// History returns the resolved dialogs, oldest first.
func (e *Engine) History() []*entities.DialogResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*entities.DialogResult, len(e.history))
	for i, state := range e.history {
		out[i] = resultOf(state)
	}
	return out
}

func (e *Engine) isCancellation(input string) bool {
	lowered := strings.ToLower(input)
	for _, phrase := range e.cfg.CancellationPhrases {
		if phrase != "" && strings.Contains(lowered, strings.ToLower(phrase)) {
			return true
		}
	}
	return false
}

func (e *Engine) cancelLocked(state *entities.DialogState, reason string) {
	state.Cancelled = true
	state.CurrentParameter = ""
	e.archiveLocked(state)
	e.logger.Info("Dialog cancelled",
		zap.String("dialogID", state.ID),
		zap.String("reason", reason),
		zap.Int("turns", state.TurnCount))
}

// archiveLocked moves a resolved dialog into the history ring,
// dropping the oldest entries past the cap.
func (e *Engine) archiveLocked(state *entities.DialogState) {
	state.UpdatedAt = time.Now()
	delete(e.active, state.ID)
	e.history = append(e.history, state)
	if overflow := len(e.history) - e.cfg.HistorySize; overflow > 0 {
		e.history = append(e.history[:0], e.history[overflow:]...)
	}
}

func resultOf(state *entities.DialogState) *entities.DialogResult {
	return &entities.DialogResult{
		DialogID:  state.ID,
		Intent:    state.MergedIntent(),
		Completed: state.Complete,
		Cancelled: state.Cancelled,
		Turns:     state.TurnCount,
		EndedAt:   state.UpdatedAt,
	}
}

func snapshot(state *entities.DialogState) *entities.DialogState {
	copied := *state
	copied.Collected = make(map[string]string, len(state.Collected))
	for name, value := range state.Collected {
		copied.Collected[name] = value
	}
	return &copied
}
