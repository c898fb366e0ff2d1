package codec

import (
	"encoding/binary"
)

// StateAbsent is the sentinel single-byte state_bytes section: if 'E',
// latest state is absent and must be recomputed by replay.
var StateAbsent = []byte{'E'}

// WriteFastSnapshot frames a FastSnapshot body as three little-endian-u32-
// length-prefixed sections wrapped in a mode=3 envelope. stateBytes may be
// StateAbsent; shallowRootStateBytes may be empty (a full snapshot).
func WriteFastSnapshot(oplogBytes, stateBytes, shallowRootStateBytes []byte) []byte {
	var body []byte
	body = putSection(body, oplogBytes)
	body = putSection(body, stateBytes)
	body = putSection(body, shallowRootStateBytes)
	return WriteEnvelope(ModeFastSnapshot, body)
}

// ReadFastSnapshot inverts WriteFastSnapshot.
func ReadFastSnapshot(data []byte) (oplogBytes, stateBytes, shallowRootStateBytes []byte, err error) {
	mode, body, err := ReadEnvelope(data)
	if err != nil {
		return nil, nil, nil, err
	}
	if mode != ModeFastSnapshot {
		log.Debugf("ReadFastSnapshot: envelope mode %d, want %d", mode, ModeFastSnapshot)
		return nil, nil, nil, ErrCorrupted
	}
	off := 0
	oplogBytes, off, ok := getSection(body, off)
	if !ok {
		log.Debugf("ReadFastSnapshot: truncated oplog section")
		return nil, nil, nil, ErrCorrupted
	}
	stateBytes, off, ok = getSection(body, off)
	if !ok {
		log.Debugf("ReadFastSnapshot: truncated state section")
		return nil, nil, nil, ErrCorrupted
	}
	shallowRootStateBytes, off, ok = getSection(body, off)
	if !ok {
		log.Debugf("ReadFastSnapshot: truncated shallow-root-state section")
		return nil, nil, nil, ErrCorrupted
	}
	_ = off
	log.Debugf("ReadFastSnapshot: oplog=%dB state=%dB shallow=%dB", len(oplogBytes), len(stateBytes), len(shallowRootStateBytes))
	return oplogBytes, stateBytes, shallowRootStateBytes, nil
}

func putSection(buf []byte, section []byte) []byte {
	var lenBytes [4]byte
	binary.LittleEndian.PutUint32(lenBytes[:], uint32(len(section)))
	buf = append(buf, lenBytes[:]...)
	return append(buf, section...)
}

func getSection(buf []byte, off int) ([]byte, int, bool) {
	if off+4 > len(buf) {
		return nil, 0, false
	}
	n := int(binary.LittleEndian.Uint32(buf[off : off+4]))
	off += 4
	if off+n > len(buf) {
		return nil, 0, false
	}
	return buf[off : off+n], off + n, true
}

// IsStateAbsent reports whether a decoded state_bytes section is the 'E'
// absent sentinel.
func IsStateAbsent(stateBytes []byte) bool {
	return len(stateBytes) == 1 && stateBytes[0] == 'E'
}
