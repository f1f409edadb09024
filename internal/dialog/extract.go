package dialog

import (
	"regexp"
	"strings"

	"github.com/pawhaven/voicecore/config"
	"github.com/pawhaven/voicecore/domain/entities"
)

// confirmation is the three-way outcome of a yes/no classification.
type confirmation int

const (
	confirmationUnclear confirmation = iota
	confirmationYes
	confirmationNo
)

var (
	numberPattern = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	datePattern   = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b|\b\d{1,2}/\d{1,2}(?:/\d{2,4})?\b`)
	timePattern   = regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s*(?:am|pm)\b|\b\d{1,2}:\d{2}\b`)
)

var wordNumbers = map[string]string{
	"one": "1", "two": "2", "three": "3", "four": "4", "five": "5",
	"six": "6", "seven": "7", "eight": "8", "nine": "9", "ten": "10",
	"half": "0.5",
}

var dateWords = []string{
	"today", "tomorrow", "yesterday",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var timeWords = []string{
	"noon", "midnight", "morning", "afternoon", "evening", "night",
}

// extractor pulls typed slot values out of parsed entities first and
// falls back to lightweight patterns over the raw transcript.
type extractor struct {
	affirmative []string
	negative    []string
}

func newExtractor(cfg config.DialogConfig) *extractor {
	return &extractor{
		affirmative: lowerAll(cfg.AffirmativeWords),
		negative:    lowerAll(cfg.NegativeWords),
	}
}

// extract resolves a value for the definition, preferring an entity of
// the matching type over raw-text patterns.
func (x *extractor) extract(def entities.ParameterDefinition, input string, parsed []entities.Entity) (string, bool) {
	for _, entity := range parsed {
		if entity.Type == def.Type && strings.TrimSpace(entity.Value) != "" {
			return strings.TrimSpace(entity.Value), true
		}
	}
	return x.fromText(def.Type, input)
}

func (x *extractor) fromText(kind entities.ParameterType, input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	lowered := strings.ToLower(trimmed)

	switch kind {
	case entities.ParameterTypeNumber:
		if match := numberPattern.FindString(trimmed); match != "" {
			return match, true
		}
		for _, word := range tokenize(lowered) {
			if digits, ok := wordNumbers[word]; ok {
				return digits, true
			}
		}
		return "", false

	case entities.ParameterTypeBoolean:
		switch x.classify(lowered) {
		case confirmationYes:
			return "true", true
		case confirmationNo:
			return "false", true
		}
		return "", false

	case entities.ParameterTypeDate:
		if match := datePattern.FindString(trimmed); match != "" {
			return match, true
		}
		if word := firstWordMatch(lowered, dateWords); word != "" {
			return word, true
		}
		return "", false

	case entities.ParameterTypeTime:
		if match := timePattern.FindString(trimmed); match != "" {
			return strings.ToLower(strings.TrimSpace(match)), true
		}
		if word := firstWordMatch(lowered, timeWords); word != "" {
			return word, true
		}
		return "", false

	default:
		if trimmed == "" {
			return "", false
		}
		return trimmed, true
	}
}

// classify buckets a confirmation answer by keyword. Inputs carrying
// both a yes and a no word are unclear.
func (x *extractor) classify(input string) confirmation {
	words := tokenize(strings.ToLower(input))
	yes := containsAny(words, x.affirmative)
	no := containsAny(words, x.negative)

	switch {
	case yes && !no:
		return confirmationYes
	case no && !yes:
		return confirmationNo
	default:
		return confirmationUnclear
	}
}

func tokenize(input string) []string {
	return strings.FieldsFunc(input, func(r rune) bool {
		return !('a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9')
	})
}

func containsAny(words []string, set []string) bool {
	for _, word := range words {
		for _, candidate := range set {
			if word == candidate {
				return true
			}
		}
	}
	return false
}

func firstWordMatch(input string, set []string) string {
	for _, word := range tokenize(input) {
		for _, candidate := range set {
			if word == candidate {
				return word
			}
		}
	}
	return ""
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, value := range values {
		out[i] = strings.ToLower(value)
	}
	return out
}
