package audio

import (
	"errors"
	"sync"

	"github.com/pawhaven/voicecore/domain/repositories"
)

// ErrSourceClosed is returned by Sample when the source is not open.
var ErrSourceClosed = errors.New("audio source is closed")

// FramePushSource is an AudioLevelSource fed from outside: the device
// streams frequency-bin energy buffers over the transport, Push stores
// the most recent one, and the detector samples it on its own tick.
type FramePushSource struct {
	mu     sync.RWMutex
	latest []byte
	open   bool
}

// Ensure FramePushSource implements the AudioLevelSource interface
var _ repositories.AudioLevelSource = (*FramePushSource)(nil)

// NewFramePushSource creates a source with no frames yet.
func NewFramePushSource() *FramePushSource {
	return &FramePushSource{}
}

// Open implements repositories.AudioLevelSource
func (s *FramePushSource) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = true
	return nil
}

// Push stores the newest energy buffer. Frames pushed while the
// source is closed are dropped.
func (s *FramePushSource) Push(frame []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return
	}

	stored := make([]byte, len(frame))
	copy(stored, frame)
	s.latest = stored
}

// Sample implements repositories.AudioLevelSource. Before the first
// push it returns an empty buffer, which reads as silence.
func (s *FramePushSource) Sample() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.open {
		return nil, ErrSourceClosed
	}

	out := make([]byte, len(s.latest))
	copy(out, s.latest)
	return out, nil
}

// Close implements repositories.AudioLevelSource
func (s *FramePushSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = false
	s.latest = nil
	return nil
}
