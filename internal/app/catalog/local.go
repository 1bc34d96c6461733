package catalog

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/domain/playlist"
	"github.com/osa030/tagbox/internal/domain/track"
)

// audioExtensions lists the file types picked up from the media directory.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".ogg":  true,
	".flac": true,
}

// LocalSource serves playlists from a media directory.
// Every subdirectory is a playlist; its audio files, sorted by name, are the tracks.
type LocalSource struct {
	dir string
}

// NewLocalSource creates a LocalSource rooted at dir.
func NewLocalSource(dir string) *LocalSource {
	return &LocalSource{dir: dir}
}

func (s *LocalSource) Name() string {
	return "local"
}

func (s *LocalSource) Kind() track.Source {
	return track.SourceLocal
}

// Playlists scans the media directory.
func (s *LocalSource) Playlists(ctx context.Context) ([]playlist.Playlist, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read media directory")
	}

	var pls []playlist.Playlist
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tracks, err := s.scanPlaylist(filepath.Join(s.dir, e.Name()))
		if err != nil {
			zlog.Warn().Msgf("local: skipping %s: %v", e.Name(), err)
			continue
		}
		pls = append(pls, playlist.Playlist{
			ID:     e.Name(),
			Name:   e.Name(),
			Source: track.SourceLocal,
			Tracks: tracks,
		})
	}
	return pls, nil
}

func (s *LocalSource) scanPlaylist(dir string) ([]track.Track, error) {
	// os.ReadDir returns entries sorted by filename
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read playlist directory")
	}

	tracks := make([]track.Track, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(f.Name()))
		if !audioExtensions[ext] {
			continue
		}
		path := filepath.Join(dir, f.Name())
		t := track.Track{
			ID:      path,
			Title:   strings.TrimSuffix(f.Name(), filepath.Ext(f.Name())),
			Locator: path,
			IsLocal: true,
			Source:  track.SourceLocal,
		}
		readMetadata(path, &t)
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// readMetadata fills title, artist and album from embedded tags when present.
func readMetadata(path string, t *track.Track) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// untagged files keep their file name as title
		return
	}
	if title := strings.TrimSpace(m.Title()); title != "" {
		t.Title = title
	}
	if artist := strings.TrimSpace(m.Artist()); artist != "" {
		t.Artists = []string{artist}
	}
	t.Album = m.Album()
}

// Resolve returns the file path. Local tracks always carry their locator.
func (s *LocalSource) Resolve(ctx context.Context, t track.Track) (string, error) {
	if t.Locator == "" {
		return "", errors.Wrapf(ErrUnplayable, "local track %s has no path", t.ID)
	}
	return t.Locator, nil
}
