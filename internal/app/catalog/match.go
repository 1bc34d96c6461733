package catalog

import (
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/osa030/tagbox/internal/domain/playlist"
)

// MatchPolicy decides how a token is compared with playlist names.
type MatchPolicy int

const (
	// MatchContains accepts a playlist whose lower-cased name contains the token.
	// A playlist named exactly like the token is preferred.
	MatchContains MatchPolicy = iota
	// MatchExact accepts only case-insensitive equality.
	MatchExact
)

func (m MatchPolicy) String() string {
	switch m {
	case MatchContains:
		return "contains"
	case MatchExact:
		return "exact"
	default:
		return "unknown"
	}
}

// ParseMatchPolicy parses the policy name used in config.
func ParseMatchPolicy(s string) (MatchPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "contains", "":
		return MatchContains, nil
	case "exact":
		return MatchExact, nil
	default:
		return MatchContains, errors.Newf("unknown match policy: %s", s)
	}
}

// match returns the index of the playlist selected by token, or -1.
func match(playlists []playlist.Playlist, token string, policy MatchPolicy) int {
	needle := strings.ToLower(strings.TrimSpace(token))
	if needle == "" {
		return -1
	}

	first := -1
	for i, p := range playlists {
		name := strings.ToLower(p.Name)
		if name == needle {
			return i
		}
		if policy == MatchContains && first < 0 && strings.Contains(name, needle) {
			first = i
		}
	}
	return first
}
