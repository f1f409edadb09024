package speech

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/repositories"
)

// State is the detector's view of the audio stream.
type State string

const (
	StateSilent   State = "silent"
	StateSpeaking State = "speaking"
)

// EventKind discriminates detector events.
type EventKind string

const (
	EventSpeechStarted EventKind = "speech_started"
	EventSpeechEnded   EventKind = "speech_ended"
)

// Event is one boundary decision. Ended events carry the utterance
// duration measured from its matching start.
type Event struct {
	Kind      EventKind
	Timestamp time.Time
	Duration  time.Duration
}

// Detector decides when the user starts and stops speaking by
// sampling an audio source on a fixed tick and classifying each
// silence run as a pause inside the utterance or its end. Started and
// Ended events strictly alternate on the events channel.
type Detector struct {
	cfg    config.SpeechConfig
	clock  clock.Clock
	logger *zap.Logger
	events chan Event

	mu        sync.Mutex
	source    repositories.AudioLevelSource
	stopChan  chan struct{}
	active    bool
	state     State
	level     float64
	silenceAt time.Time
	fillerAt  time.Time
	trace     utteranceTrace
}

// NewDetector wires a detector to its clock and thresholds. It does
// not touch any audio resource until Start.
func NewDetector(cfg config.SpeechConfig, clk clock.Clock, logger *zap.Logger) *Detector {
	return &Detector{
		cfg:    cfg,
		clock:  clk,
		logger: logger,
		events: make(chan Event, cfg.EventBuffer),
		state:  StateSilent,
	}
}

// Start begins periodic sampling of the source and returns
// immediately. A source that cannot be opened leaves the detector
// inactive; the failure is logged, never returned, so callers outside
// the audio path are unaffected. Starting an active detector is a
// no-op.
func (d *Detector) Start(source repositories.AudioLevelSource) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		d.logger.Warn("Speech monitoring already active")
		return
	}

	if err := source.Open(); err != nil {
		d.logger.Error("Audio source unavailable, speech monitoring not started", zap.Error(err))
		return
	}

	d.source = source
	d.stopChan = make(chan struct{})
	d.active = true
	d.state = StateSilent
	d.silenceAt = time.Time{}
	d.fillerAt = time.Time{}
	d.trace.reset(time.Time{})

	go d.sampleLoop(source, d.stopChan)

	d.logger.Info("Speech monitoring started",
		zap.Duration("sampleInterval", d.cfg.SampleInterval),
		zap.Float64("noiseGateDB", d.cfg.NoiseGateDB),
		zap.Float64("speechThresholdDB", d.cfg.SpeechThresholdDB))
}

// Stop halts sampling and releases the audio source.
func (d *Detector) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return
	}

	close(d.stopChan)
	d.active = false
	if err := d.source.Close(); err != nil {
		d.logger.Warn("Failed to close audio source", zap.Error(err))
	}
	d.source = nil

	d.logger.Info("Speech monitoring stopped")
}

// Active reports whether the detector is currently sampling.
func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Events is the boundary event stream. The channel is never closed;
// it is valid across Stop/Start cycles.
func (d *Detector) Events() <-chan Event {
	return d.events
}

// Level returns the most recent normalized level (0-100). Before the
// first sample it returns 0; after Stop it keeps the last known value.
func (d *Detector) Level() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.level
}

// State returns the current classification state.
func (d *Detector) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// MarkFillerWord suppresses end-of-utterance classification for the
// grace window, so an "um" or "uh" reported by an external detector
// keeps the utterance open.
func (d *Detector) MarkFillerWord() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.fillerAt = d.clock.Now()
	d.logger.Debug("Filler word marked", zap.Duration("grace", d.cfg.FillerGrace))
}

func (d *Detector) sampleLoop(source repositories.AudioLevelSource, stopChan chan struct{}) {
	ticker := d.clock.Ticker(d.cfg.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			d.tick(source, stopChan)
		}
	}
}

func (d *Detector) tick(source repositories.AudioLevelSource, stopChan chan struct{}) {
	frame, err := source.Sample()
	if err != nil {
		d.logger.Debug("Audio sample unavailable", zap.Error(err))
		return
	}

	now := d.clock.Now()

	d.mu.Lock()
	level, db := analyzeFrame(frame)
	d.level = level

	var event *Event
	if d.isSpeech(db) {
		event = d.speechTick(now, level)
	} else {
		event = d.silenceTick(now)
	}
	d.mu.Unlock()

	if event != nil {
		select {
		case d.events <- *event:
		case <-stopChan:
		}
	}
}

// isSpeech classifies one decibel reading. Anything below the noise
// gate or in the band between gate and speech threshold is silence.
func (d *Detector) isSpeech(db float64) bool {
	if db < d.cfg.NoiseGateDB {
		return false
	}
	return db >= d.cfg.SpeechThresholdDB
}

func (d *Detector) speechTick(now time.Time, level float64) *Event {
	if d.state == StateSilent {
		d.state = StateSpeaking
		d.trace.reset(now)
		d.trace.append(now, level)
		d.silenceAt = time.Time{}
		d.logger.Debug("Speech started", zap.Float64("level", level))
		return &Event{Kind: EventSpeechStarted, Timestamp: now}
	}

	// returning from a counted pause closes its silence run
	if !d.silenceAt.IsZero() {
		if now.Sub(d.silenceAt) >= d.cfg.MidPause {
			d.trace.pauses++
		}
		d.silenceAt = time.Time{}
	}
	d.trace.append(now, level)
	return nil
}

func (d *Detector) silenceTick(now time.Time) *Event {
	if d.state != StateSpeaking {
		return nil
	}

	if d.silenceAt.IsZero() {
		d.silenceAt = now
		return nil
	}

	silence := now.Sub(d.silenceAt)
	if !d.utteranceEnded(now, silence) {
		return nil
	}

	duration := now.Sub(d.trace.startedAt)
	d.state = StateSilent
	d.silenceAt = time.Time{}
	d.trace.reset(time.Time{})

	d.logger.Debug("Speech ended",
		zap.Duration("utterance", duration),
		zap.Duration("silence", silence))
	return &Event{Kind: EventSpeechEnded, Timestamp: now, Duration: duration}
}

// utteranceEnded applies the silence classification policy: a filler
// grace window vetoes everything, short silences always continue, long
// silences always end, and the ambiguous band between them falls to
// utterance-age, accumulated-pause, and energy-decline heuristics.
func (d *Detector) utteranceEnded(now time.Time, silence time.Duration) bool {
	if !d.fillerAt.IsZero() && now.Sub(d.fillerAt) <= d.cfg.FillerGrace {
		return false
	}
	if silence < d.cfg.MidPause {
		return false
	}
	if silence >= d.cfg.EndOfUtterance {
		return true
	}
	if now.Sub(d.trace.startedAt) < d.cfg.ShortUtterance {
		return false
	}
	if d.trace.pauses >= d.cfg.MultiPauseCount && silence > d.cfg.MultiPauseSilence {
		return true
	}
	if d.trace.declined(d.cfg.TraceWindow, d.cfg.EnergyDeclineRatio) {
		return true
	}
	return false
}
