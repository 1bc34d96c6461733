package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/tagbox/internal/domain/track"
)

var (
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),
		regexp.MustCompile(`\s*[(\[][^)\]]*remaster[^)\]]*[)\]]`),
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`),
		regexp.MustCompile(`\s*\([^)]*(version|edit|live)\)`),
		regexp.MustCompile(`\s*-\s*(live|radio\s+edit|single\s+version)`),
	}
	spaces = regexp.MustCompile(`\s+`)
)

// DuplicateTrackFilter drops tracks already seen in the same playlist:
// the same ID, or the same normalized title by the same main artist.
// Covers by other artists are kept.
type DuplicateTrackFilter struct {
	ids    map[string]struct{}
	titles map[string]struct{}
}

// NewDuplicateTrackFilter creates a DuplicateTrackFilter.
func NewDuplicateTrackFilter() *DuplicateTrackFilter {
	f := &DuplicateTrackFilter{}
	f.Reset()
	return f
}

func (f *DuplicateTrackFilter) Name() string {
	return "duplicate_track_filter"
}

func (f *DuplicateTrackFilter) Description() string {
	return "Drop repeated tracks within a playlist, including remasters and alternate versions by the same artist"
}

func (f *DuplicateTrackFilter) ReturnCodes() []string {
	return []string{CodeDuplicate}
}

// ValidateConfig accepts no settings.
func (f *DuplicateTrackFilter) ValidateConfig(settings map[string]any) error {
	var none struct{}
	return decodeSettings(settings, &none)
}

func (f *DuplicateTrackFilter) AppliesTo(source track.Source) bool {
	return true
}

// Reset forgets the tracks seen so far. Chain.Apply calls it per playlist.
func (f *DuplicateTrackFilter) Reset() {
	f.ids = make(map[string]struct{})
	f.titles = make(map[string]struct{})
}

// Check rejects t if an equivalent track was checked since the last Reset.
func (f *DuplicateTrackFilter) Check(ctx context.Context, t track.Track) Result {
	if _, ok := f.ids[t.Key()]; ok {
		return Reject(CodeDuplicate)
	}
	f.ids[t.Key()] = struct{}{}

	if len(t.Artists) == 0 || t.Title == "" {
		return Accept()
	}
	key := strings.ToLower(t.Artists[0]) + "\x00" + normalizeTitle(t.Title)
	if _, ok := f.titles[key]; ok {
		return Reject(CodeDuplicate)
	}
	f.titles[key] = struct{}{}
	return Accept()
}

// normalizeTitle strips remaster and version suffixes from a track title.
func normalizeTitle(title string) string {
	s := strings.ToLower(title)
	for _, p := range versionPatterns {
		s = p.ReplaceAllString(s, "")
	}
	s = spaces.ReplaceAllString(strings.TrimSpace(s), " ")
	return strings.TrimRight(s, " -")
}

func init() {
	Register("duplicate_track_filter", func() Filter {
		return NewDuplicateTrackFilter()
	})
}
