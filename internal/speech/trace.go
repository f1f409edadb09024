package speech

import (
	"math"
	"time"

	"github.com/montanaflynn/stats"
)

// epsilon floors the normalized energy before the log conversion so a
// fully silent frame maps to a large negative decibel value instead of
// -Inf.
const epsilon = 1e-10

// maxTraceSegments bounds the per-utterance energy history.
const maxTraceSegments = 64

type traceSegment struct {
	at    time.Time
	level float64
}

// utteranceTrace holds the energy history of the utterance in
// progress. It resets on every speech start and is discarded once the
// utterance ends.
type utteranceTrace struct {
	startedAt time.Time
	segments  []traceSegment
	pauses    int
}

func (t *utteranceTrace) reset(now time.Time) {
	t.startedAt = now
	t.segments = t.segments[:0]
	t.pauses = 0
}

func (t *utteranceTrace) append(now time.Time, level float64) {
	if len(t.segments) == maxTraceSegments {
		copy(t.segments, t.segments[1:])
		t.segments = t.segments[:maxTraceSegments-1]
	}
	t.segments = append(t.segments, traceSegment{at: now, level: level})
}

// declined reports whether the mean level of the newest window trails
// the window immediately before it by more than the given ratio. With
// fewer than two full windows there is nothing to compare.
func (t *utteranceTrace) declined(window int, ratio float64) bool {
	if window < 1 || len(t.segments) < 2*window {
		return false
	}

	recent := make(stats.Float64Data, 0, window)
	earlier := make(stats.Float64Data, 0, window)
	n := len(t.segments)
	for _, seg := range t.segments[n-window:] {
		recent = append(recent, seg.level)
	}
	for _, seg := range t.segments[n-2*window : n-window] {
		earlier = append(earlier, seg.level)
	}

	recentMean, err := stats.Mean(recent)
	if err != nil {
		return false
	}
	earlierMean, err := stats.Mean(earlier)
	if err != nil || earlierMean <= 0 {
		return false
	}

	return recentMean < earlierMean*ratio
}

// analyzeFrame reduces a frequency-bin buffer (0-255 per bin) to the
// normalized level (0-100) and its decibel value.
func analyzeFrame(frame []byte) (level float64, db float64) {
	if len(frame) == 0 {
		return 0, 20 * math.Log10(epsilon)
	}

	data := make(stats.Float64Data, len(frame))
	for i, bin := range frame {
		data[i] = float64(bin)
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return 0, 20 * math.Log10(epsilon)
	}

	normalized := mean / 255
	db = 20 * math.Log10(math.Max(normalized, epsilon))
	return normalized * 100, db
}
