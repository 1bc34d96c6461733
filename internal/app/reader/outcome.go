package reader

import "github.com/osa030/tagbox/internal/domain/tag"

// OutcomeKind represents the result of a single poll.
type OutcomeKind int

const (
	OutcomeNoTag    OutcomeKind = iota // Nothing answered the presence request
	OutcomeSameTag                     // The previously seen tag is still present
	OutcomeNewTag                      // A tag other than the previous one was read
	OutcomeFailure                     // A tag answered but could not be identified or read
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeNoTag:
		return "no_tag"
	case OutcomeSameTag:
		return "same_tag"
	case OutcomeNewTag:
		return "new_tag"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Outcome is the result of Reader.PollOnce.
type Outcome struct {
	Kind OutcomeKind
	UID  tag.UID // Set for SameTag and NewTag
	Text string  // Decoded tag text (NewTag only)
	Raw  []byte  // Raw memory bytes (NewTag only)
	Err  error   // Cause of a Failure
}

// Succeeded reports whether a tag was identified.
func (o Outcome) Succeeded() bool {
	return o.Kind == OutcomeSameTag || o.Kind == OutcomeNewTag
}
