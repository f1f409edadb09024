package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap/zaptest"

	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/entities"
	"github.com/pawhaven/voicecore/internal/dialog"
	"github.com/pawhaven/voicecore/internal/presence"
)

type recordingSpeaker struct {
	mu      sync.Mutex
	prompts []entities.DialogPrompt
}

func (r *recordingSpeaker) SpeakPrompt(ctx context.Context, deviceID string, prompt entities.DialogPrompt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return nil
}

func (r *recordingSpeaker) last(t *testing.T) entities.DialogPrompt {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.prompts) == 0 {
		t.Fatal("Expected at least one spoken prompt")
	}
	return r.prompts[len(r.prompts)-1]
}

type recordingEvents struct {
	mu       sync.Mutex
	resolved []*entities.DialogResult
}

func (r *recordingEvents) SpeechStarted(at time.Time) {}

func (r *recordingEvents) SpeechEnded(at time.Time, utterance time.Duration) {}

func (r *recordingEvents) DialogResolved(result *entities.DialogResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.resolved = append(r.resolved, result)
}

func (r *recordingEvents) lastResolved(t *testing.T) *entities.DialogResult {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.resolved) == 0 {
		t.Fatal("Expected a resolved dialog")
	}
	return r.resolved[len(r.resolved)-1]
}

func newTestSession(t *testing.T) (*VoiceSession, *recordingSpeaker, *recordingEvents) {
	t.Helper()

	cfg := config.Default()
	logger := zaptest.NewLogger(t)
	mock := clock.NewMock()

	engine := dialog.NewEngine(cfg.Dialog, logger)
	tracker := presence.NewTracker(cfg.Presence, mock, logger)
	speaker := &recordingSpeaker{}
	events := &recordingEvents{}

	session := NewVoiceSession("device-1", cfg.Speech, engine, NewIntentCatalog(), tracker, speaker, events, mock, logger)
	return session, speaker, events
}

func TestFeedingDialogRunsToCompletion(t *testing.T) {
	session, speaker, events := newTestSession(t)
	ctx := context.Background()

	intent := entities.Intent{
		Action:     "log_feeding",
		Parameters: map[string]string{"pet": "Biscuit", "food": "kibble"},
	}
	dialogID, err := session.HandleIntent(ctx, intent)
	if err != nil {
		t.Fatalf("HandleIntent failed: %v", err)
	}
	if got := speaker.last(t); got.Parameter != "amount" {
		t.Fatalf("Expected first prompt to ask for amount, got %+v", got)
	}

	// turn 1 supplies the amount, turn 2 the time
	if err := session.HandleTurn(ctx, dialogID, "about two cups", nil); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if got := speaker.last(t); got.Parameter != "time" {
		t.Fatalf("Expected prompt for time, got %+v", got)
	}

	if err := session.HandleTurn(ctx, dialogID, "at 6 pm", nil); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}
	if got := speaker.last(t); got.Kind != entities.PromptKindConfirmation {
		t.Fatalf("Expected confirmation prompt, got %+v", got)
	}

	// turn 3 confirms and resolves the dialog
	if err := session.HandleTurn(ctx, dialogID, "yes", nil); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	result := events.lastResolved(t)
	if !result.Completed || result.Cancelled {
		t.Errorf("Expected a completed dialog, got %+v", result)
	}
	if result.Intent.Parameters["amount"] != "2" {
		t.Errorf("Expected extracted amount 2, got %q", result.Intent.Parameters["amount"])
	}
	if result.Intent.Parameters["pet"] != "Biscuit" {
		t.Errorf("Expected seeded pet to survive the merge, got %q", result.Intent.Parameters["pet"])
	}
	if session.CurrentDialog() != "" {
		t.Error("Expected no current dialog after resolution")
	}
}

func TestUnknownIntentResolvesImmediately(t *testing.T) {
	session, _, events := newTestSession(t)

	if _, err := session.HandleIntent(context.Background(), entities.Intent{Action: "tell_joke"}); err != nil {
		t.Fatalf("HandleIntent failed: %v", err)
	}

	result := events.lastResolved(t)
	if !result.Completed {
		t.Errorf("Expected zero-slot dialog to complete on its first turn, got %+v", result)
	}
}

func TestCancellationResolvesDialog(t *testing.T) {
	session, speaker, events := newTestSession(t)
	ctx := context.Background()

	dialogID, err := session.HandleIntent(ctx, entities.Intent{Action: "schedule_medication"})
	if err != nil {
		t.Fatalf("HandleIntent failed: %v", err)
	}
	if err := session.HandleTurn(ctx, dialogID, "actually, nevermind", nil); err != nil {
		t.Fatalf("HandleTurn failed: %v", err)
	}

	if got := speaker.last(t); got.Kind != entities.PromptKindCancellation {
		t.Errorf("Expected cancellation closing prompt, got %+v", got)
	}
	result := events.lastResolved(t)
	if !result.Cancelled {
		t.Errorf("Expected a cancelled result, got %+v", result)
	}
}

func TestTurnWithoutDialogFails(t *testing.T) {
	session, _, _ := newTestSession(t)

	err := session.HandleTurn(context.Background(), "", "hello", nil)
	if !errors.Is(err, ErrNoActiveDialog) {
		t.Errorf("Expected ErrNoActiveDialog, got %v", err)
	}
}

func TestEmptyDialogIDRoutesToCurrent(t *testing.T) {
	session, speaker, _ := newTestSession(t)
	ctx := context.Background()

	if _, err := session.HandleIntent(ctx, entities.Intent{Action: "log_health"}); err != nil {
		t.Fatalf("HandleIntent failed: %v", err)
	}
	if err := session.HandleTurn(ctx, "", "Biscuit", nil); err != nil {
		t.Fatalf("HandleTurn with empty id failed: %v", err)
	}
	if got := speaker.last(t); got.Parameter != "observation" {
		t.Errorf("Expected the turn to advance the current dialog, got %+v", got)
	}
}
