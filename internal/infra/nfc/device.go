// Package nfc implements the tag reader device on top of libnfc and libfreefare.
package nfc

import (
	"encoding/hex"

	"github.com/clausecker/freefare"
	"github.com/clausecker/nfc/v2"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tagbox/internal/app/reader"
	"github.com/osa030/tagbox/internal/domain/tag"
)

const (
	ultralightPageSize = 4
	// ultralightUserPage is the first page of Ultralight/NTAG user memory.
	ultralightUserPage = 4

	classicBlockSize = 16
	// classicMaxBlock is the last block of a Classic 1k tag.
	classicMaxBlock = 63
)

// publicKeyA is the NFC Forum public key of MAD-formatted Classic sectors.
var publicKeyA = [6]byte{0xd3, 0xf7, 0xd3, 0xf7, 0xd3, 0xf7}

// Device is a reader.Device backed by a libnfc device.
type Device struct {
	dev        nfc.Device
	tags       []freefare.Tag
	current    freefare.Tag
	connected  bool
	authSector int
}

// Open opens the libnfc device named by connstring. An empty connstring
// selects the first device libnfc finds.
func Open(connstring string) (*Device, error) {
	dev, err := nfc.Open(connstring)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open nfc device %q", connstring)
	}
	if err := dev.InitiatorInit(); err != nil {
		_ = dev.Close()
		return nil, errors.Wrap(err, "failed to initialize nfc initiator")
	}
	zlog.Info().Msgf("nfc: opened device %s", dev.String())
	return &Device{dev: dev, authSector: -1}, nil
}

// RequestPresence lists the tags currently in the field.
func (d *Device) RequestPresence() error {
	d.release()

	tags, err := freefare.GetTags(d.dev)
	if err != nil {
		return errors.Wrap(err, "failed to list tags")
	}
	if len(tags) == 0 {
		return reader.ErrNoTag
	}
	d.tags = tags
	return nil
}

// Anticollision returns the UID of the first tag found by RequestPresence.
func (d *Device) Anticollision() (tag.UID, error) {
	if len(d.tags) == 0 {
		return nil, reader.ErrNoTag
	}
	return decodeUID(d.tags[0].UID())
}

// SelectTag connects to the tag with the given UID.
func (d *Device) SelectTag(uid tag.UID) (int, error) {
	for _, t := range d.tags {
		got, err := decodeUID(t.UID())
		if err != nil || !got.Equal(uid) {
			continue
		}

		size := blockSize(t)
		if size == 0 {
			return 0, errors.Newf("unsupported tag type %s", t.String())
		}
		if err := t.Connect(); err != nil {
			return 0, errors.Wrapf(err, "failed to connect to tag %s", uid)
		}
		d.current = t
		d.connected = true
		d.authSector = -1
		return size, nil
	}
	return 0, errors.Newf("tag %s left the field", uid)
}

// ReadBlock reads the index-th data block of the selected tag's user memory.
func (d *Device) ReadBlock(_ int, index int) ([]byte, error) {
	if !d.connected {
		return nil, errors.New("no tag selected")
	}

	switch t := d.current.(type) {
	case freefare.UltralightTag:
		page, ok := ultralightPage(index)
		if !ok {
			return nil, errors.Newf("page index %d out of range", index)
		}
		data, err := t.ReadPage(page)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read page %d", page)
		}
		return data[:], nil

	case freefare.ClassicTag:
		block, ok := classicDataBlock(index)
		if !ok {
			return nil, errors.Newf("block index %d out of range", index)
		}
		if sector := int(block) / 4; sector != d.authSector {
			if err := t.Authenticate(block, publicKeyA, int(freefare.KeyA)); err != nil {
				return nil, errors.Wrapf(err, "failed to authenticate sector %d", sector)
			}
			d.authSector = sector
		}
		data, err := t.ReadBlock(block)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read block %d", block)
		}
		return data[:], nil
	}

	return nil, errors.New("unsupported tag type")
}

// Close disconnects from the current tag and closes the device.
func (d *Device) Close() error {
	d.release()
	return d.dev.Close()
}

func (d *Device) release() {
	if d.connected && d.current != nil {
		if err := d.current.Disconnect(); err != nil {
			zlog.Debug().Msgf("nfc: disconnect failed: %v", err)
		}
	}
	d.current = nil
	d.connected = false
	d.tags = nil
}

func blockSize(t freefare.Tag) int {
	switch t.(type) {
	case freefare.UltralightTag:
		return ultralightPageSize
	case freefare.ClassicTag:
		return classicBlockSize
	}
	return 0
}

func decodeUID(s string) (tag.UID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed uid %q", s)
	}
	return tag.UID(b), nil
}

// ultralightPage maps a data block index to a page number.
func ultralightPage(index int) (byte, bool) {
	page := ultralightUserPage + index
	if index < 0 || page > 0xFF {
		return 0, false
	}
	return byte(page), true
}

// classicDataBlock maps a data block index to a Classic block number,
// starting at sector 1 and skipping sector trailers.
func classicDataBlock(index int) (byte, bool) {
	if index < 0 {
		return 0, false
	}
	sector := 1 + index/3
	block := sector*4 + index%3
	if block > classicMaxBlock {
		return 0, false
	}
	return byte(block), true
}
