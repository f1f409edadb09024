package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SpeechConfig tunes the speech boundary classifier. The dB thresholds
// and pause windows are the whole classification policy; changing them
// never requires touching detector control flow.
type SpeechConfig struct {
	// SampleInterval is how often the detector reads the audio source.
	SampleInterval time.Duration
	// NoiseGateDB is the floor below which a sample is always silence.
	NoiseGateDB float64
	// SpeechThresholdDB is the level at or above which a sample is speech.
	SpeechThresholdDB float64
	// MidPause is the silence length below which a pause is always a
	// continuation of the utterance.
	MidPause time.Duration
	// EndOfUtterance is the silence length at or above which an
	// utterance always ends.
	EndOfUtterance time.Duration
	// ShortUtterance marks utterances young enough that ambiguous
	// pauses are still treated as continuations.
	ShortUtterance time.Duration
	// MultiPauseSilence is the ambiguous-band silence length that ends
	// an utterance once MultiPauseCount pauses have accumulated.
	MultiPauseSilence time.Duration
	MultiPauseCount   int
	// EnergyDeclineRatio ends an utterance when recent trace energy
	// falls below this fraction of the preceding window.
	EnergyDeclineRatio float64
	// FillerGrace suppresses end-of-utterance for this long after a
	// filler word is reported.
	FillerGrace time.Duration
	// TraceWindow is the segment count per side of the energy-decline
	// comparison.
	TraceWindow int
	// EventBuffer is the capacity of the detector's event channel.
	EventBuffer int
}

// DialogConfig tunes the slot-filling engine.
type DialogConfig struct {
	MaxTurns            int
	HistorySize         int
	CancellationPhrases []string
	AffirmativeWords    []string
	NegativeWords       []string
}

// AlertsConfig tunes the alert scheduler.
type AlertsConfig struct {
	// CheckInterval is the cadence of the due-alert scan.
	CheckInterval time.Duration
	// DeliveryGap is the pause between consecutive deliveries so
	// spoken alerts do not overlap.
	DeliveryGap time.Duration
	// StorageKey is where the pending set persists in the KV store.
	StorageKey string
}

// PresenceConfig tunes the activity tracker.
type PresenceConfig struct {
	// InactivityTimeout is how long after the last interaction the
	// user counts as absent.
	InactivityTimeout time.Duration
}

// ServerConfig holds the transport-facing settings.
type ServerConfig struct {
	Port          string
	JWTSecret     string
	StoreBackend  string
	BadgerPath    string
	MongoURI      string
	MongoDatabase string
}

// Config aggregates every tunable of the voice core.
type Config struct {
	Speech   SpeechConfig
	Dialog   DialogConfig
	Alerts   AlertsConfig
	Presence PresenceConfig
	Server   ServerConfig
}

// Default returns the documented defaults for every threshold.
func Default() Config {
	return Config{
		Speech: SpeechConfig{
			SampleInterval:     100 * time.Millisecond,
			NoiseGateDB:        -60,
			SpeechThresholdDB:  -50,
			MidPause:           500 * time.Millisecond,
			EndOfUtterance:     1500 * time.Millisecond,
			ShortUtterance:     1000 * time.Millisecond,
			MultiPauseSilence:  800 * time.Millisecond,
			MultiPauseCount:    2,
			EnergyDeclineRatio: 0.70,
			FillerGrace:        800 * time.Millisecond,
			TraceWindow:        3,
			EventBuffer:        16,
		},
		Dialog: DialogConfig{
			MaxTurns:    10,
			HistorySize: 50,
			CancellationPhrases: []string{
				"cancel", "never mind", "nevermind", "stop", "forget it", "quit",
			},
			AffirmativeWords: []string{
				"yes", "yeah", "yep", "sure", "correct", "right", "ok", "okay",
			},
			NegativeWords: []string{
				"no", "nope", "nah", "wrong", "incorrect",
			},
		},
		Alerts: AlertsConfig{
			CheckInterval: 60 * time.Second,
			DeliveryGap:   2 * time.Second,
			StorageKey:    "alerts:pending",
		},
		Presence: PresenceConfig{
			InactivityTimeout: 5 * time.Minute,
		},
		Server: ServerConfig{
			Port:          "8080",
			StoreBackend:  "badger",
			BadgerPath:    "./data/voicecore",
			MongoDatabase: "pawhaven",
		},
	}
}

// FromEnv resolves configuration from environment variables over the
// defaults. Unparseable values fall back silently; Validate catches
// combinations that cannot work.
func FromEnv() Config {
	cfg := Default()

	cfg.Speech.SampleInterval = envDurationOr("VOICECORE_SAMPLE_INTERVAL", cfg.Speech.SampleInterval)
	cfg.Speech.NoiseGateDB = envFloat64Or("VOICECORE_NOISE_GATE_DB", cfg.Speech.NoiseGateDB)
	cfg.Speech.SpeechThresholdDB = envFloat64Or("VOICECORE_SPEECH_THRESHOLD_DB", cfg.Speech.SpeechThresholdDB)
	cfg.Speech.MidPause = envDurationOr("VOICECORE_MID_PAUSE", cfg.Speech.MidPause)
	cfg.Speech.EndOfUtterance = envDurationOr("VOICECORE_END_OF_UTTERANCE", cfg.Speech.EndOfUtterance)
	cfg.Speech.ShortUtterance = envDurationOr("VOICECORE_SHORT_UTTERANCE", cfg.Speech.ShortUtterance)
	cfg.Speech.MultiPauseSilence = envDurationOr("VOICECORE_MULTI_PAUSE_SILENCE", cfg.Speech.MultiPauseSilence)
	cfg.Speech.MultiPauseCount = envIntOr("VOICECORE_MULTI_PAUSE_COUNT", cfg.Speech.MultiPauseCount)
	cfg.Speech.EnergyDeclineRatio = envFloat64Or("VOICECORE_ENERGY_DECLINE_RATIO", cfg.Speech.EnergyDeclineRatio)
	cfg.Speech.FillerGrace = envDurationOr("VOICECORE_FILLER_GRACE", cfg.Speech.FillerGrace)
	cfg.Speech.TraceWindow = envIntOr("VOICECORE_TRACE_WINDOW", cfg.Speech.TraceWindow)
	cfg.Speech.EventBuffer = envIntOr("VOICECORE_EVENT_BUFFER", cfg.Speech.EventBuffer)

	cfg.Dialog.MaxTurns = envIntOr("VOICECORE_MAX_TURNS", cfg.Dialog.MaxTurns)
	cfg.Dialog.HistorySize = envIntOr("VOICECORE_DIALOG_HISTORY", cfg.Dialog.HistorySize)
	cfg.Dialog.CancellationPhrases = envListOr("VOICECORE_CANCEL_PHRASES", cfg.Dialog.CancellationPhrases)
	cfg.Dialog.AffirmativeWords = envListOr("VOICECORE_AFFIRMATIVE_WORDS", cfg.Dialog.AffirmativeWords)
	cfg.Dialog.NegativeWords = envListOr("VOICECORE_NEGATIVE_WORDS", cfg.Dialog.NegativeWords)

	cfg.Alerts.CheckInterval = envDurationOr("VOICECORE_CHECK_INTERVAL", cfg.Alerts.CheckInterval)
	cfg.Alerts.DeliveryGap = envDurationOr("VOICECORE_DELIVERY_GAP", cfg.Alerts.DeliveryGap)
	cfg.Alerts.StorageKey = envOr("VOICECORE_ALERTS_KEY", cfg.Alerts.StorageKey)

	cfg.Presence.InactivityTimeout = envDurationOr("VOICECORE_INACTIVITY_TIMEOUT", cfg.Presence.InactivityTimeout)

	cfg.Server.Port = envOr("PORT", cfg.Server.Port)
	cfg.Server.JWTSecret = strings.TrimSpace(os.Getenv("JWT_SECRET"))
	cfg.Server.StoreBackend = envOr("VOICECORE_STORE", cfg.Server.StoreBackend)
	cfg.Server.BadgerPath = envOr("VOICECORE_BADGER_PATH", cfg.Server.BadgerPath)
	cfg.Server.MongoURI = strings.TrimSpace(os.Getenv("MONGODB_URI"))
	cfg.Server.MongoDatabase = envOr("VOICECORE_MONGO_DATABASE", cfg.Server.MongoDatabase)

	return cfg
}

// Validate rejects configurations the engines cannot run with.
func (c Config) Validate() error {
	if c.Speech.SampleInterval <= 0 {
		return fmt.Errorf("speech sample interval must be positive, got %v", c.Speech.SampleInterval)
	}
	if c.Speech.NoiseGateDB >= c.Speech.SpeechThresholdDB {
		return fmt.Errorf("noise gate %v dB must be below speech threshold %v dB",
			c.Speech.NoiseGateDB, c.Speech.SpeechThresholdDB)
	}
	if c.Speech.MidPause <= 0 || c.Speech.EndOfUtterance <= 0 {
		return fmt.Errorf("pause thresholds must be positive")
	}
	if c.Speech.MidPause >= c.Speech.EndOfUtterance {
		return fmt.Errorf("mid-pause threshold %v must be below end-of-utterance threshold %v",
			c.Speech.MidPause, c.Speech.EndOfUtterance)
	}
	if c.Speech.EnergyDeclineRatio <= 0 || c.Speech.EnergyDeclineRatio >= 1 {
		return fmt.Errorf("energy decline ratio must be between 0 and 1, got %f", c.Speech.EnergyDeclineRatio)
	}
	if c.Speech.TraceWindow < 1 {
		return fmt.Errorf("trace window must be at least 1, got %d", c.Speech.TraceWindow)
	}
	if c.Speech.EventBuffer < 1 {
		return fmt.Errorf("event buffer must be at least 1, got %d", c.Speech.EventBuffer)
	}
	if c.Dialog.MaxTurns < 1 {
		return fmt.Errorf("dialog max turns must be at least 1, got %d", c.Dialog.MaxTurns)
	}
	if c.Dialog.HistorySize < 1 {
		return fmt.Errorf("dialog history size must be at least 1, got %d", c.Dialog.HistorySize)
	}
	if c.Alerts.CheckInterval <= 0 {
		return fmt.Errorf("alert check interval must be positive, got %v", c.Alerts.CheckInterval)
	}
	if c.Alerts.DeliveryGap < 0 {
		return fmt.Errorf("alert delivery gap cannot be negative, got %v", c.Alerts.DeliveryGap)
	}
	if c.Alerts.StorageKey == "" {
		return fmt.Errorf("alerts storage key is required")
	}
	if c.Presence.InactivityTimeout <= 0 {
		return fmt.Errorf("inactivity timeout must be positive, got %v", c.Presence.InactivityTimeout)
	}
	switch c.Server.StoreBackend {
	case "badger", "mongo", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Server.StoreBackend)
	}
	if c.Server.StoreBackend == "mongo" && c.Server.MongoURI == "" {
		return fmt.Errorf("mongo store backend requires MONGODB_URI")
	}
	return nil
}

func envOr(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envIntOr(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat64Or(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return d
}

func envListOr(key string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
