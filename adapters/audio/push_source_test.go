package audio

import (
	"errors"
	"testing"
)

func TestFramePushSource(t *testing.T) {
	t.Run("SampleBeforeOpen", func(t *testing.T) {
		source := NewFramePushSource()
		if _, err := source.Sample(); !errors.Is(err, ErrSourceClosed) {
			t.Errorf("Expected ErrSourceClosed before open, got %v", err)
		}
	})

	t.Run("SampleBeforeFirstPush", func(t *testing.T) {
		source := NewFramePushSource()
		if err := source.Open(); err != nil {
			t.Fatalf("Failed to open source: %v", err)
		}

		frame, err := source.Sample()
		if err != nil {
			t.Fatalf("Failed to sample: %v", err)
		}
		if len(frame) != 0 {
			t.Errorf("Expected empty frame before first push, got %d bytes", len(frame))
		}
	})

	t.Run("PushAndSample", func(t *testing.T) {
		source := NewFramePushSource()
		source.Open()

		source.Push([]byte{10, 20, 30})
		source.Push([]byte{200, 210, 220})

		frame, err := source.Sample()
		if err != nil {
			t.Fatalf("Failed to sample: %v", err)
		}
		if len(frame) != 3 || frame[0] != 200 {
			t.Errorf("Expected latest frame, got %v", frame)
		}
	})

	t.Run("SampleReturnsCopy", func(t *testing.T) {
		source := NewFramePushSource()
		source.Open()
		source.Push([]byte{5, 5, 5})

		frame, _ := source.Sample()
		frame[0] = 99

		again, _ := source.Sample()
		if again[0] != 5 {
			t.Errorf("Expected stored frame untouched, got %v", again)
		}
	})

	t.Run("PushAfterCloseDropped", func(t *testing.T) {
		source := NewFramePushSource()
		source.Open()
		source.Push([]byte{1})
		source.Close()
		source.Push([]byte{2})

		if _, err := source.Sample(); !errors.Is(err, ErrSourceClosed) {
			t.Errorf("Expected ErrSourceClosed after close, got %v", err)
		}

		source.Open()
		frame, err := source.Sample()
		if err != nil {
			t.Fatalf("Failed to sample after reopen: %v", err)
		}
		if len(frame) != 0 {
			t.Errorf("Expected close to clear the stored frame, got %v", frame)
		}
	})
}
