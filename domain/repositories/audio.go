package repositories

// AudioLevelSource exposes periodic frequency-domain energy readings
// from a live capture. Implementations do not parse codecs; each
// sample is a buffer of per-bin energies in the 0-255 range.
type AudioLevelSource interface {
	// Open acquires the underlying audio resource.
	Open() error
	// Sample returns the most recent energy buffer. It never blocks.
	Sample() ([]byte, error)
	// Close releases the resource. Sample calls after Close fail.
	Close() error
}

// PresenceReader reports whether the user is currently interacting
// with the device.
type PresenceReader interface {
	Active() bool
}
