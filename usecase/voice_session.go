package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/adapters/audio"
	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/entities"
	"github.com/pawhaven/voicecore/domain/repositories"
	"github.com/pawhaven/voicecore/internal/dialog"
	"github.com/pawhaven/voicecore/internal/presence"
	"github.com/pawhaven/voicecore/internal/speech"
)

// ErrNoActiveDialog is returned for a dialog turn arriving with no
// conversation in flight.
var ErrNoActiveDialog = errors.New("no active dialog")

// SessionEvents is how a voice session reports back to its transport.
// SpeechStarted/SpeechEnded gate the external recognition pipeline;
// DialogResolved surfaces finished conversations to the surrounding
// application.
type SessionEvents interface {
	SpeechStarted(at time.Time)
	SpeechEnded(at time.Time, utterance time.Duration)
	DialogResolved(result *entities.DialogResult)
}

// VoiceSession ties one connected device to the voice core: its energy
// frames feed a per-device boundary detector, detector events flow out
// as recognition gates, parsed intents open dialogs, and dialog turns
// run until the conversation resolves. Prompts go back through the
// injected speaker; every voice interaction touches the activity
// tracker.
type VoiceSession struct {
	deviceID string
	source   *audio.FramePushSource
	detector *speech.Detector
	dialogs  *dialog.Engine
	catalog  *IntentCatalog
	tracker  *presence.Tracker
	speaker  repositories.PromptSpeaker
	events   SessionEvents
	logger   *zap.Logger

	stopChan      chan struct{}
	currentDialog string
}

// NewVoiceSession builds a session with its own audio source and
// detector. The dialog engine, catalog, and tracker are shared across
// sessions.
func NewVoiceSession(
	deviceID string,
	cfg config.SpeechConfig,
	dialogs *dialog.Engine,
	catalog *IntentCatalog,
	tracker *presence.Tracker,
	speaker repositories.PromptSpeaker,
	events SessionEvents,
	clk clock.Clock,
	logger *zap.Logger,
) *VoiceSession {
	logger = logger.With(zap.String("deviceID", deviceID))
	return &VoiceSession{
		deviceID: deviceID,
		source:   audio.NewFramePushSource(),
		detector: speech.NewDetector(cfg, clk, logger),
		dialogs:  dialogs,
		catalog:  catalog,
		tracker:  tracker,
		speaker:  speaker,
		events:   events,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins boundary detection and event forwarding.
func (s *VoiceSession) Start() {
	s.detector.Start(s.source)
	go s.forwardEvents()
	s.logger.Info("Voice session started")
}

// Stop halts detection. Any in-flight dialog stays in the engine and
// can resume if the device reconnects.
func (s *VoiceSession) Stop() {
	close(s.stopChan)
	s.detector.Stop()
	s.logger.Info("Voice session stopped")
}

// PushFrame feeds one energy frame from the device into the detector's
// source.
func (s *VoiceSession) PushFrame(frame []byte) {
	s.source.Push(frame)
}

// Level exposes the detector's most recent normalized audio level.
func (s *VoiceSession) Level() float64 {
	return s.detector.Level()
}

// MarkFillerWord relays an external filler-word detection, keeping the
// current utterance open through the grace window.
func (s *VoiceSession) MarkFillerWord() {
	s.detector.MarkFillerWord()
}

// Interaction records a non-voice activity event from the device.
func (s *VoiceSession) Interaction(kind entities.InteractionKind) error {
	if !kind.Known() {
		return fmt.Errorf("unknown interaction kind %q", kind)
	}
	s.tracker.Touch(kind)
	return nil
}

// HandleIntent opens a dialog for a parsed intent and speaks the first
// prompt. An intent with nothing left to collect resolves immediately.
// The returned id routes subsequent turns.
func (s *VoiceSession) HandleIntent(ctx context.Context, intent entities.Intent) (string, error) {
	s.tracker.Touch(entities.InteractionVoice)

	spec := s.catalog.Lookup(intent.Action)
	state := s.dialogs.Start(intent, spec.Parameters, spec.Type, spec.Confirm)
	s.currentDialog = state.ID

	prompt, err := s.dialogs.NextPrompt(state.ID)
	if err != nil {
		return state.ID, err
	}
	if prompt == nil {
		return state.ID, s.resolve(state.ID)
	}

	if err := s.speaker.SpeakPrompt(ctx, s.deviceID, *prompt); err != nil {
		s.logger.Error("Failed to speak dialog prompt", zap.Error(err))
	}
	return state.ID, nil
}

// HandleTurn feeds one user utterance into the dialog. An empty
// dialogID addresses the session's current conversation.
func (s *VoiceSession) HandleTurn(ctx context.Context, dialogID, text string, parsed []entities.Entity) error {
	s.tracker.Touch(entities.InteractionVoice)

	if dialogID == "" {
		dialogID = s.currentDialog
	}
	if dialogID == "" {
		return ErrNoActiveDialog
	}

	prompt, err := s.dialogs.ProcessTurn(dialogID, text, parsed)
	if err != nil {
		return err
	}
	if prompt == nil {
		return s.resolve(dialogID)
	}

	if err := s.speaker.SpeakPrompt(ctx, s.deviceID, *prompt); err != nil {
		s.logger.Error("Failed to speak dialog prompt", zap.Error(err))
	}

	// cancellation and give-up prompts close the conversation
	if prompt.Kind == entities.PromptKindCancellation || prompt.Kind == entities.PromptKindGiveUp {
		return s.resolve(dialogID)
	}
	return nil
}

// CurrentDialog returns the id of the conversation in flight, if any.
func (s *VoiceSession) CurrentDialog() string {
	return s.currentDialog
}

func (s *VoiceSession) resolve(dialogID string) error {
	result, err := s.dialogs.Complete(dialogID)
	if err != nil {
		return err
	}
	if s.currentDialog == dialogID {
		s.currentDialog = ""
	}

	s.logger.Info("Dialog resolved",
		zap.String("dialogID", result.DialogID),
		zap.Bool("completed", result.Completed),
		zap.Bool("cancelled", result.Cancelled))
	s.events.DialogResolved(result)
	return nil
}

// forwardEvents relays boundary decisions to the transport. A speech
// start also counts as user activity.
func (s *VoiceSession) forwardEvents() {
	for {
		select {
		case <-s.stopChan:
			return
		case ev := <-s.detector.Events():
			switch ev.Kind {
			case speech.EventSpeechStarted:
				s.tracker.Touch(entities.InteractionVoice)
				s.events.SpeechStarted(ev.Timestamp)
			case speech.EventSpeechEnded:
				s.events.SpeechEnded(ev.Timestamp, ev.Duration)
			}
		}
	}
}
