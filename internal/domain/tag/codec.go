package tag

import "strings"

const (
	padByte     = 0x00
	eolByte     = 0xFE
	frameMarker = 0x02
	// frameHeader is the length/checksum pair following the frame marker.
	frameHeader = 2
)

// Decode converts concatenated memory blocks into a printable token string.
// In raw mode only the zero padding is removed before filtering.
func Decode(raw []byte, rawMode bool) string {
	data := raw
	for len(data) > 0 && data[len(data)-1] == padByte {
		data = data[:len(data)-1]
	}

	if !rawMode {
		for len(data) > 0 && data[len(data)-1] == eolByte {
			data = data[:len(data)-1]
		}
		for i, b := range data {
			if b == frameMarker {
				start := i + 1 + frameHeader
				if start > len(data) {
					start = len(data)
				}
				data = data[start:]
				break
			}
		}
	}

	var sb strings.Builder
	sb.Grow(len(data))
	for _, b := range data {
		if isPrintable(b) {
			sb.WriteByte(b)
		}
	}
	return strings.TrimSpace(sb.String())
}

// isPrintable matches ASCII letters, digits, punctuation, space and the
// whitespace controls \t \n \v \f \r.
func isPrintable(b byte) bool {
	if b >= 0x20 && b <= 0x7E {
		return true
	}
	switch b {
	case '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
