package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}

	if cfg.Speech.SampleInterval != 100*time.Millisecond {
		t.Errorf("Expected 100ms sample interval, got %v", cfg.Speech.SampleInterval)
	}
	if cfg.Speech.NoiseGateDB != -60 {
		t.Errorf("Expected -60dB noise gate, got %v", cfg.Speech.NoiseGateDB)
	}
	if cfg.Speech.SpeechThresholdDB != -50 {
		t.Errorf("Expected -50dB speech threshold, got %v", cfg.Speech.SpeechThresholdDB)
	}
	if cfg.Speech.EndOfUtterance != 1500*time.Millisecond {
		t.Errorf("Expected 1500ms end-of-utterance, got %v", cfg.Speech.EndOfUtterance)
	}
	if cfg.Dialog.MaxTurns != 10 {
		t.Errorf("Expected 10 max turns, got %d", cfg.Dialog.MaxTurns)
	}
	if cfg.Alerts.CheckInterval != 60*time.Second {
		t.Errorf("Expected 60s check interval, got %v", cfg.Alerts.CheckInterval)
	}
	if cfg.Presence.InactivityTimeout != 5*time.Minute {
		t.Errorf("Expected 5m inactivity timeout, got %v", cfg.Presence.InactivityTimeout)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("VOICECORE_MID_PAUSE", "250ms")
	t.Setenv("VOICECORE_MAX_TURNS", "5")
	t.Setenv("VOICECORE_NOISE_GATE_DB", "-70")
	t.Setenv("VOICECORE_CANCEL_PHRASES", "abort, drop it")
	t.Setenv("PORT", "9090")

	cfg := FromEnv()

	if cfg.Speech.MidPause != 250*time.Millisecond {
		t.Errorf("Expected 250ms mid pause, got %v", cfg.Speech.MidPause)
	}
	if cfg.Dialog.MaxTurns != 5 {
		t.Errorf("Expected 5 max turns, got %d", cfg.Dialog.MaxTurns)
	}
	if cfg.Speech.NoiseGateDB != -70 {
		t.Errorf("Expected -70dB noise gate, got %v", cfg.Speech.NoiseGateDB)
	}
	if len(cfg.Dialog.CancellationPhrases) != 2 || cfg.Dialog.CancellationPhrases[1] != "drop it" {
		t.Errorf("Expected parsed cancel phrases, got %v", cfg.Dialog.CancellationPhrases)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
}

func TestFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("VOICECORE_MID_PAUSE", "soonish")
	t.Setenv("VOICECORE_MAX_TURNS", "lots")

	cfg := FromEnv()

	if cfg.Speech.MidPause != 500*time.Millisecond {
		t.Errorf("Expected default mid pause on bad value, got %v", cfg.Speech.MidPause)
	}
	if cfg.Dialog.MaxTurns != 10 {
		t.Errorf("Expected default max turns on bad value, got %d", cfg.Dialog.MaxTurns)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"GateAboveThreshold", func(c *Config) { c.Speech.NoiseGateDB = -40 }},
		{"MidPauseAboveEnd", func(c *Config) { c.Speech.MidPause = 2 * time.Second }},
		{"ZeroSampleInterval", func(c *Config) { c.Speech.SampleInterval = 0 }},
		{"DeclineRatioTooBig", func(c *Config) { c.Speech.EnergyDeclineRatio = 1.5 }},
		{"ZeroMaxTurns", func(c *Config) { c.Dialog.MaxTurns = 0 }},
		{"ZeroCheckInterval", func(c *Config) { c.Alerts.CheckInterval = 0 }},
		{"EmptyStorageKey", func(c *Config) { c.Alerts.StorageKey = "" }},
		{"ZeroInactivityTimeout", func(c *Config) { c.Presence.InactivityTimeout = 0 }},
		{"UnknownBackend", func(c *Config) { c.Server.StoreBackend = "etcd" }},
		{"MongoWithoutURI", func(c *Config) { c.Server.StoreBackend = "mongo" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}
}

func TestApplyFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voicecore.yaml")
	body := `
speech:
  mid_pause: 300ms
  noise_gate_db: -65
dialog:
  max_turns: 6
alerts:
  delivery_gap: 1s
server:
  port: "7070"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("Failed to write overlay file: %v", err)
	}

	cfg := Default()
	if err := cfg.ApplyFile(path); err != nil {
		t.Fatalf("Failed to apply overlay: %v", err)
	}

	if cfg.Speech.MidPause != 300*time.Millisecond {
		t.Errorf("Expected 300ms mid pause, got %v", cfg.Speech.MidPause)
	}
	if cfg.Speech.NoiseGateDB != -65 {
		t.Errorf("Expected -65dB noise gate, got %v", cfg.Speech.NoiseGateDB)
	}
	if cfg.Dialog.MaxTurns != 6 {
		t.Errorf("Expected 6 max turns, got %d", cfg.Dialog.MaxTurns)
	}
	if cfg.Alerts.DeliveryGap != time.Second {
		t.Errorf("Expected 1s delivery gap, got %v", cfg.Alerts.DeliveryGap)
	}
	if cfg.Server.Port != "7070" {
		t.Errorf("Expected port 7070, got %s", cfg.Server.Port)
	}
	// untouched keys keep defaults
	if cfg.Speech.EndOfUtterance != 1500*time.Millisecond {
		t.Errorf("Expected untouched end-of-utterance default, got %v", cfg.Speech.EndOfUtterance)
	}
}

func TestApplyFileBadDuration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voicecore.yaml")
	if err := os.WriteFile(path, []byte("speech:\n  mid_pause: whenever\n"), 0o644); err != nil {
		t.Fatalf("Failed to write overlay file: %v", err)
	}

	cfg := Default()
	if err := cfg.ApplyFile(path); err == nil {
		t.Error("Expected error for unparseable duration")
	}
}

func TestApplyFileMissing(t *testing.T) {
	cfg := Default()
	if err := cfg.ApplyFile("/nonexistent/voicecore.yaml"); err == nil {
		t.Error("Expected error for missing file")
	}
}
