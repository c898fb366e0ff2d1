// Package codec implements the binary wire formats: the shared envelope,
// uLEB/sLEB primitives, the FastUpdates columnar block codec, and
// FastSnapshot framing.
package codec

import "encoding/binary"

// PutUvarint appends n as unsigned LEB128 to buf and returns the extended
// slice. encoding/binary's own Uvarint format is byte-for-byte
// LEB128 already, so this is a thin wrapper rather than a hand-rolled coder.
func PutUvarint(buf []byte, n uint64) []byte {
	var tmp [binary.MaxVarintLen64]byte
	w := binary.PutUvarint(tmp[:], n)
	return append(buf, tmp[:w]...)
}

// Uvarint decodes an unsigned LEB128 value from buf, returning the value and
// the number of bytes consumed (0 on error, matching binary.Uvarint).
func Uvarint(buf []byte) (uint64, int) {
	return binary.Uvarint(buf)
}

// PutSvarint appends n as signed LEB128 (two's complement, not zigzag) to
// buf. encoding/binary only offers zigzag-encoded signed
// varints, so this is hand-rolled: each byte holds 7 bits of the two's
// complement representation, low byte first, continuing while the remaining
// sign-extended bits aren't all identical to the just-emitted byte's sign
// bit.
func PutSvarint(buf []byte, n int64) []byte {
	more := true
	for more {
		b := byte(n & 0x7f)
		n >>= 7
		signBitSet := b&0x40 != 0
		if (n == 0 && !signBitSet) || (n == -1 && signBitSet) {
			more = false
		} else {
			b |= 0x80
		}
		buf = append(buf, b)
	}
	return buf
}

// Svarint decodes a signed LEB128 value, returning the value and bytes
// consumed (0, 0 on error / truncated input).
func Svarint(buf []byte) (int64, int) {
	var result int64
	var shift uint
	for i, b := range buf {
		result |= int64(b&0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			if shift < 64 && b&0x40 != 0 {
				result |= -1 << shift
			}
			return result, i + 1
		}
		if shift >= 64 {
			return 0, 0
		}
	}
	return 0, 0
}

// PutBytes appends a length-prefixed byte string: [uLEB len][raw].
func PutBytes(buf []byte, b []byte) []byte {
	buf = PutUvarint(buf, uint64(len(b)))
	return append(buf, b...)
}

// GetBytes decodes a length-prefixed byte string, returning the bytes and
// the number of bytes consumed from buf.
func GetBytes(buf []byte) ([]byte, int, bool) {
	n, w := Uvarint(buf)
	if w == 0 || w+int(n) > len(buf) {
		return nil, 0, false
	}
	return buf[w : w+int(n)], w + int(n), true
}

// PutString appends a length-prefixed UTF-8 string: [uLEB len][utf-8 bytes].
func PutString(buf []byte, s string) []byte {
	return PutBytes(buf, []byte(s))
}

// GetString decodes a length-prefixed UTF-8 string.
func GetString(buf []byte) (string, int, bool) {
	b, w, ok := GetBytes(buf)
	if !ok {
		return "", 0, false
	}
	return string(b), w, true
}
