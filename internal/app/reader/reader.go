// Package reader polls the tag reader hardware and decodes tag memory.
package reader

import (
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/domain/tag"
)

// DefaultMaxBlocks bounds the number of memory blocks read from one tag.
const DefaultMaxBlocks = 50

// ErrNoTag is returned by devices when nothing answers a presence request.
var ErrNoTag = errors.New("no tag present")

// Device is the hardware boundary of the reader.
type Device interface {
	// RequestPresence probes the field for a tag.
	RequestPresence() error
	// Anticollision returns the UID of the tag in the field.
	Anticollision() (tag.UID, error)
	// SelectTag selects the tag for memory access and returns its block size.
	SelectTag(uid tag.UID) (int, error)
	// ReadBlock reads the block at index.
	ReadBlock(blockSize, index int) ([]byte, error)
	// Close releases the hardware.
	Close() error
}

// Config holds reader configuration.
type Config struct {
	MaxBlocks int  // Upper bound of blocks read per tag
	RawMode   bool // Skip framing/EOL handling when decoding
}

// Reader performs one bounded tag read per poll.
type Reader struct {
	device Device
	config Config
}

// New creates a new Reader.
func New(device Device, config Config) *Reader {
	if config.MaxBlocks <= 0 {
		config.MaxBlocks = DefaultMaxBlocks
	}
	return &Reader{device: device, config: config}
}

// PollOnce probes for a tag. When the tag in the field has the UID previous,
// no memory is read and SameTag is returned.
func (r *Reader) PollOnce(previous tag.UID) Outcome {
	if err := r.device.RequestPresence(); err != nil {
		// The first request after an idle period often fails
		if err := r.device.RequestPresence(); err != nil {
			return Outcome{Kind: OutcomeNoTag}
		}
	}

	uid, err := r.device.Anticollision()
	if err != nil || uid.IsZero() {
		zlog.Debug().Msgf("reader: anticollision failed: %v", err)
		return Outcome{Kind: OutcomeFailure, Err: errors.Wrap(errOrNoUID(err), "anticollision failed")}
	}

	if !previous.IsZero() && uid.Equal(previous) {
		return Outcome{Kind: OutcomeSameTag, UID: uid}
	}

	raw, err := r.ReadMemory(uid)
	if err != nil {
		return Outcome{Kind: OutcomeFailure, Err: err}
	}

	text := tag.Decode(raw, r.config.RawMode)
	zlog.Debug().Msgf("reader: tag read: uid=%s bytes=%d text=%q", uid, len(raw), text)

	return Outcome{Kind: OutcomeNewTag, UID: uid, Text: text, Raw: raw}
}

// ReadMemory selects the tag and reads blocks until the first failing read.
func (r *Reader) ReadMemory(uid tag.UID) ([]byte, error) {
	blockSize, err := r.device.SelectTag(uid)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select tag %s", uid)
	}

	var raw []byte
	for i := 0; i < r.config.MaxBlocks; i++ {
		block, err := r.device.ReadBlock(blockSize, i)
		if err != nil || block == nil {
			break
		}
		raw = append(raw, block...)
	}
	return raw, nil
}

// Close releases the underlying device.
func (r *Reader) Close() error {
	return r.device.Close()
}

func errOrNoUID(err error) error {
	if err != nil {
		return err
	}
	return errors.New("empty uid")
}
