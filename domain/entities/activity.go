package entities

// InteractionKind names a user input event observed on the device.
type InteractionKind string

const (
	InteractionPointerDown InteractionKind = "pointer_down"
	InteractionPointerMove InteractionKind = "pointer_move"
	InteractionKeyDown     InteractionKind = "key_down"
	InteractionScroll      InteractionKind = "scroll"
	InteractionTouch       InteractionKind = "touch"
	InteractionVoice       InteractionKind = "voice"
)

// Known reports whether the kind is one the tracker recognizes.
func (k InteractionKind) Known() bool {
	switch k {
	case InteractionPointerDown, InteractionPointerMove, InteractionKeyDown,
		InteractionScroll, InteractionTouch, InteractionVoice:
		return true
	}
	return false
}
