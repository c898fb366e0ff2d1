package codec

import (
	"encoding/binary"
	"math"

	"github.com/loro-dev/loro/container"
)

// Value tags identify the payload that follows in the encoded stream.
const (
	tagNull uint8 = iota
	tagTrue
	tagFalse
	tagI64
	tagF64
	tagStr
	tagBinary
	tagContainerType
	tagLoroValue
	tagMarkStart
	tagListMove
	tagListSet
	tagTreeMove
	tagDeleteSeq
)

// unknownTagBit marks a value tag this decoder doesn't recognize; decoders
// must preserve the high bit and round-trip the raw payload opaquely
// rather than rejecting it, so a newer writer's tags survive an older
// reader.
const unknownTagBit uint8 = 0x80

// EncodeValue appends v's tag and payload, including the LoroValue branch
// for nested lists/maps.
func EncodeValue(buf []byte, v container.Value) []byte {
	switch v.Kind {
	case container.ValueNull:
		return append(buf, tagNull)
	case container.ValueBool:
		if v.Bool {
			return append(buf, tagTrue)
		}
		return append(buf, tagFalse)
	case container.ValueI64:
		buf = append(buf, tagI64)
		return PutSvarint(buf, v.I64)
	case container.ValueF64:
		buf = append(buf, tagF64)
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], math.Float64bits(v.F64))
		return append(buf, b[:]...)
	case container.ValueStr:
		buf = append(buf, tagStr)
		return PutString(buf, v.Str)
	case container.ValueBinary:
		buf = append(buf, tagBinary)
		return PutBytes(buf, v.Bin)
	case container.ValueContainer:
		buf = append(buf, tagContainerType)
		return append(buf, byte(v.Container.Kind))
	case container.ValueList:
		buf = append(buf, tagLoroValue, 'l')
		buf = PutUvarint(buf, uint64(len(v.List)))
		for _, item := range v.List {
			buf = EncodeValue(buf, item)
		}
		return buf
	case container.ValueMap:
		buf = append(buf, tagLoroValue, 'm')
		buf = PutUvarint(buf, uint64(len(v.Map)))
		for k, item := range v.Map {
			buf = PutString(buf, k)
			buf = EncodeValue(buf, item)
		}
		return buf
	case container.ValueUnknown:
		buf = append(buf, unknownTagBit|v.Tag)
		return PutBytes(buf, v.Raw)
	default:
		return append(buf, tagNull)
	}
}

// DecodeValue reads one tagged value, returning it and bytes consumed.
func DecodeValue(buf []byte) (container.Value, int, bool) {
	if len(buf) == 0 {
		return container.Value{}, 0, false
	}
	tag := buf[0]
	off := 1
	if tag&unknownTagBit != 0 {
		raw, w, ok := GetBytes(buf[off:])
		if !ok {
			return container.Value{}, 0, false
		}
		return container.Value{Kind: container.ValueUnknown, Tag: tag &^ unknownTagBit, Raw: raw}, off + w, true
	}
	switch tag {
	case tagNull:
		return container.Null(), off, true
	case tagTrue:
		return container.Value{Kind: container.ValueBool, Bool: true}, off, true
	case tagFalse:
		return container.Value{Kind: container.ValueBool, Bool: false}, off, true
	case tagI64:
		n, w := Svarint(buf[off:])
		if w == 0 {
			return container.Value{}, 0, false
		}
		return container.Value{Kind: container.ValueI64, I64: n}, off + w, true
	case tagF64:
		if off+8 > len(buf) {
			return container.Value{}, 0, false
		}
		f := math.Float64frombits(binary.BigEndian.Uint64(buf[off : off+8]))
		return container.Value{Kind: container.ValueF64, F64: f}, off + 8, true
	case tagStr:
		s, w, ok := GetString(buf[off:])
		if !ok {
			return container.Value{}, 0, false
		}
		return container.Value{Kind: container.ValueStr, Str: s}, off + w, true
	case tagBinary:
		b, w, ok := GetBytes(buf[off:])
		if !ok {
			return container.Value{}, 0, false
		}
		return container.Value{Kind: container.ValueBinary, Bin: b}, off + w, true
	case tagContainerType:
		if off >= len(buf) {
			return container.Value{}, 0, false
		}
		kind := container.Kind(buf[off])
		return container.Value{Kind: container.ValueContainer, Container: container.ID{Kind: kind}}, off + 1, true
	case tagLoroValue:
		if off >= len(buf) {
			return container.Value{}, 0, false
		}
		switch buf[off] {
		case 'l':
			off++
			n, w := Uvarint(buf[off:])
			if w == 0 {
				return container.Value{}, 0, false
			}
			off += w
			items := make([]container.Value, n)
			for i := range items {
				v, w2, ok := DecodeValue(buf[off:])
				if !ok {
					return container.Value{}, 0, false
				}
				items[i] = v
				off += w2
			}
			return container.Value{Kind: container.ValueList, List: items}, off, true
		case 'm':
			off++
			n, w := Uvarint(buf[off:])
			if w == 0 {
				return container.Value{}, 0, false
			}
			off += w
			m := make(map[string]container.Value, n)
			for i := uint64(0); i < n; i++ {
				k, w2, ok := GetString(buf[off:])
				if !ok {
					return container.Value{}, 0, false
				}
				off += w2
				v, w3, ok := DecodeValue(buf[off:])
				if !ok {
					return container.Value{}, 0, false
				}
				off += w3
				m[k] = v
			}
			return container.Value{Kind: container.ValueMap, Map: m}, off, true
		}
		return container.Value{}, 0, false
	default:
		return container.Value{}, 0, false
	}
}
