package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for the YAML overlay. Durations are
// strings ("500ms", "1m"); absent keys leave the current value alone,
// which is why scalars are pointers.
type fileConfig struct {
	Speech struct {
		SampleInterval     string   `yaml:"sample_interval"`
		NoiseGateDB        *float64 `yaml:"noise_gate_db"`
		SpeechThresholdDB  *float64 `yaml:"speech_threshold_db"`
		MidPause           string   `yaml:"mid_pause"`
		EndOfUtterance     string   `yaml:"end_of_utterance"`
		ShortUtterance     string   `yaml:"short_utterance"`
		MultiPauseSilence  string   `yaml:"multi_pause_silence"`
		MultiPauseCount    *int     `yaml:"multi_pause_count"`
		EnergyDeclineRatio *float64 `yaml:"energy_decline_ratio"`
		FillerGrace        string   `yaml:"filler_grace"`
		TraceWindow        *int     `yaml:"trace_window"`
		EventBuffer        *int     `yaml:"event_buffer"`
	} `yaml:"speech"`
	Dialog struct {
		MaxTurns            *int     `yaml:"max_turns"`
		HistorySize         *int     `yaml:"history_size"`
		CancellationPhrases []string `yaml:"cancellation_phrases"`
		AffirmativeWords    []string `yaml:"affirmative_words"`
		NegativeWords       []string `yaml:"negative_words"`
	} `yaml:"dialog"`
	Alerts struct {
		CheckInterval string `yaml:"check_interval"`
		DeliveryGap   string `yaml:"delivery_gap"`
		StorageKey    string `yaml:"storage_key"`
	} `yaml:"alerts"`
	Presence struct {
		InactivityTimeout string `yaml:"inactivity_timeout"`
	} `yaml:"presence"`
	Server struct {
		Port          string `yaml:"port"`
		StoreBackend  string `yaml:"store_backend"`
		BadgerPath    string `yaml:"badger_path"`
		MongoDatabase string `yaml:"mongo_database"`
	} `yaml:"server"`
}

// ApplyFile overlays a YAML tuning file onto the config. Keys the file
// does not mention keep their current values.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	var file fileConfig
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	if err := overlayDuration(&c.Speech.SampleInterval, file.Speech.SampleInterval, "speech.sample_interval"); err != nil {
		return err
	}
	overlayFloat(&c.Speech.NoiseGateDB, file.Speech.NoiseGateDB)
	overlayFloat(&c.Speech.SpeechThresholdDB, file.Speech.SpeechThresholdDB)
	if err := overlayDuration(&c.Speech.MidPause, file.Speech.MidPause, "speech.mid_pause"); err != nil {
		return err
	}
	if err := overlayDuration(&c.Speech.EndOfUtterance, file.Speech.EndOfUtterance, "speech.end_of_utterance"); err != nil {
		return err
	}
	if err := overlayDuration(&c.Speech.ShortUtterance, file.Speech.ShortUtterance, "speech.short_utterance"); err != nil {
		return err
	}
	if err := overlayDuration(&c.Speech.MultiPauseSilence, file.Speech.MultiPauseSilence, "speech.multi_pause_silence"); err != nil {
		return err
	}
	overlayInt(&c.Speech.MultiPauseCount, file.Speech.MultiPauseCount)
	overlayFloat(&c.Speech.EnergyDeclineRatio, file.Speech.EnergyDeclineRatio)
	if err := overlayDuration(&c.Speech.FillerGrace, file.Speech.FillerGrace, "speech.filler_grace"); err != nil {
		return err
	}
	overlayInt(&c.Speech.TraceWindow, file.Speech.TraceWindow)
	overlayInt(&c.Speech.EventBuffer, file.Speech.EventBuffer)

	overlayInt(&c.Dialog.MaxTurns, file.Dialog.MaxTurns)
	overlayInt(&c.Dialog.HistorySize, file.Dialog.HistorySize)
	if len(file.Dialog.CancellationPhrases) > 0 {
		c.Dialog.CancellationPhrases = file.Dialog.CancellationPhrases
	}
	if len(file.Dialog.AffirmativeWords) > 0 {
		c.Dialog.AffirmativeWords = file.Dialog.AffirmativeWords
	}
	if len(file.Dialog.NegativeWords) > 0 {
		c.Dialog.NegativeWords = file.Dialog.NegativeWords
	}

	if err := overlayDuration(&c.Alerts.CheckInterval, file.Alerts.CheckInterval, "alerts.check_interval"); err != nil {
		return err
	}
	if err := overlayDuration(&c.Alerts.DeliveryGap, file.Alerts.DeliveryGap, "alerts.delivery_gap"); err != nil {
		return err
	}
	if file.Alerts.StorageKey != "" {
		c.Alerts.StorageKey = file.Alerts.StorageKey
	}

	if err := overlayDuration(&c.Presence.InactivityTimeout, file.Presence.InactivityTimeout, "presence.inactivity_timeout"); err != nil {
		return err
	}

	if file.Server.Port != "" {
		c.Server.Port = file.Server.Port
	}
	if file.Server.StoreBackend != "" {
		c.Server.StoreBackend = file.Server.StoreBackend
	}
	if file.Server.BadgerPath != "" {
		c.Server.BadgerPath = file.Server.BadgerPath
	}
	if file.Server.MongoDatabase != "" {
		c.Server.MongoDatabase = file.Server.MongoDatabase
	}

	return nil
}

func overlayDuration(dst *time.Duration, raw string, field string) error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %w", field, err)
	}
	*dst = d
	return nil
}

func overlayInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func overlayFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}
