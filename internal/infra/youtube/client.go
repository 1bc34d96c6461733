// Package youtube lists YouTube playlist items through ytdlp.
package youtube

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/ytget/ytdlp/v2"

	"github.com/osa030/tagbox/internal/domain/track"
)

const (
	// DefaultTimeout bounds one playlist listing.
	DefaultTimeout = 60 * time.Second

	playlistParam  = "list="
	paramSeparator = "&"
)

// Client fetches playlist items from YouTube.
type Client struct {
	timeout time.Duration
}

// New creates a YouTube client. A non-positive timeout selects DefaultTimeout.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{timeout: timeout}
}

// GetPlaylistItems lists the videos of the playlist behind playlistURL.
// The returned tracks carry no locator and no duration.
func (c *Client) GetPlaylistItems(ctx context.Context, playlistURL string) ([]track.Track, error) {
	playlistID := ExtractPlaylistID(playlistURL)
	if playlistID == "" {
		return nil, errors.Newf("could not extract playlist ID from URL: %s", playlistURL)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get playlist items for %s", playlistID)
	}

	tracks := make([]track.Track, 0, len(items))
	for _, it := range items {
		if it.VideoID == "" {
			continue
		}
		tracks = append(tracks, track.Track{
			ID:     it.VideoID,
			Title:  it.Title,
			Source: track.SourceYouTube,
		})
	}
	return tracks, nil
}

// ExtractPlaylistID returns the list= parameter of a playlist URL.
// A bare ID without any URL syntax is returned unchanged.
func ExtractPlaylistID(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	if !strings.Contains(input, playlistParam) {
		if strings.ContainsAny(input, "/?=&") {
			return ""
		}
		return input
	}
	parts := strings.SplitN(input, playlistParam, 2)
	id := parts[1]
	if i := strings.Index(id, paramSeparator); i >= 0 {
		id = id[:i]
	}
	return id
}

