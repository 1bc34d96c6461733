package token

import "github.com/osa030/tagbox/internal/domain/tag"

// EventType represents a token lifecycle change.
type EventType int

const (
	EventUnchanged EventType = iota // Nothing changed (includes tolerated read failures)
	EventRemoved                    // The active tag left the field
	EventArrived                    // A tag appeared while none was active
	EventSwapped                    // A different tag replaced the active one
	EventDisabled                   // The enable input went low while a tag was active
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventUnchanged:
		return "unchanged"
	case EventRemoved:
		return "removed"
	case EventArrived:
		return "arrived"
	case EventSwapped:
		return "swapped"
	case EventDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// Params are playback parameters attached to the active token.
type Params struct {
	Volume  int  // 0-100
	Shuffle bool // Play the collection in shuffled order
}

// DefaultParams returns the parameters used when no override applies.
func DefaultParams() Params {
	return Params{Volume: 100}
}

// Event is emitted by Resolver.Update.
type Event struct {
	Type      EventType
	Token     string  // Active token after the change (Arrived/Swapped)
	UID       tag.UID // Active UID after the change (Arrived/Swapped)
	Params    Params  // Playback parameters for the token
	Valid     bool    // Token matches a catalog playlist
	WasValid  bool    // Token active before the change was valid
	PrevToken string  // Token active before the change
}

// Changed reports whether the event carries a transition.
func (e Event) Changed() bool {
	return e.Type != EventUnchanged
}
