package codec

import (
	"encoding/binary"
	"errors"

	golog "github.com/ipfs/go-log"
)

var log = golog.Logger("codec")

// Mode tags the kind of body an envelope wraps.
type Mode uint16

const (
	ModeFastSnapshot Mode = 3
	ModeFastUpdates  Mode = 4
)

var magic = [4]byte{'l', 'o', 'r', 'o'}

// ErrBadMagic is returned when an envelope's leading bytes aren't "loro".
var ErrBadMagic = errors.New("codec: bad envelope magic")

// ErrChecksumMismatch is returned when an envelope's stored checksum doesn't
// match the computed xxHash32 of mode+body.
var ErrChecksumMismatch = errors.New("codec: envelope checksum mismatch")

// ErrTruncated is returned when an envelope is shorter than its fixed header.
var ErrTruncated = errors.New("codec: envelope truncated")

// WriteEnvelope frames body under mode: 4-byte magic, a 16-byte checksum
// area (bytes [4..16) zero, the xxHash32 of mode+body little-endian in
// [16..20)), a big-endian u16 mode, then body.
func WriteEnvelope(mode Mode, body []byte) []byte {
	out := make([]byte, 22+len(body))
	copy(out[0:4], magic[:])
	binary.BigEndian.PutUint16(out[20:22], uint16(mode))
	copy(out[22:], body)

	sum := XXHash32(out[20:])
	binary.LittleEndian.PutUint32(out[16:20], sum)
	return out
}

// ReadEnvelope validates magic and checksum and returns the mode and body.
func ReadEnvelope(data []byte) (Mode, []byte, error) {
	if len(data) < 22 {
		log.Debugf("envelope truncated: %d bytes, want at least 22", len(data))
		return 0, nil, ErrTruncated
	}
	if string(data[0:4]) != string(magic[:]) {
		log.Debugf("envelope bad magic: %q", data[0:4])
		return 0, nil, ErrBadMagic
	}
	wantSum := binary.LittleEndian.Uint32(data[16:20])
	gotSum := XXHash32(data[20:])
	if wantSum != gotSum {
		log.Debugf("envelope checksum mismatch: want %x got %x", wantSum, gotSum)
		return 0, nil, ErrChecksumMismatch
	}
	mode := Mode(binary.BigEndian.Uint16(data[20:22]))
	return mode, data[22:], nil
}
