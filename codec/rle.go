package codec

// The FastUpdates columnar arenas are built from a handful of
// run-length schemes layered over the uLEB/sLEB primitives: plain RLE
// (repeated literal collapsed into a count+value run), delta-RLE (RLE over
// first differences), delta-of-delta (RLE over second differences), and a
// bool RLE that writes each bool as a 0/1 value (no bit packing). All four
// share one run format — [uLEB run_count][sLEB run_value] repeated —
// differing only in what's RLE'd.

// EncodeRle writes vals as runs of equal value: [uLEB count][sLEB value]*.
func EncodeRle(buf []byte, vals []int64) []byte {
	buf = PutUvarint(buf, uint64(len(vals)))
	i := 0
	for i < len(vals) {
		j := i + 1
		for j < len(vals) && vals[j] == vals[i] {
			j++
		}
		buf = PutUvarint(buf, uint64(j-i))
		buf = PutSvarint(buf, vals[i])
		i = j
	}
	return buf
}

// DecodeRle reads a stream written by EncodeRle, returning the values and
// bytes consumed.
func DecodeRle(buf []byte) ([]int64, int, bool) {
	n, w := Uvarint(buf)
	if w == 0 {
		return nil, 0, false
	}
	off := w
	out := make([]int64, 0, n)
	for uint64(len(out)) < n {
		count, w1 := Uvarint(buf[off:])
		if w1 == 0 {
			return nil, 0, false
		}
		off += w1
		val, w2 := Svarint(buf[off:])
		if w2 == 0 {
			return nil, 0, false
		}
		off += w2
		for k := uint64(0); k < count; k++ {
			out = append(out, val)
		}
	}
	return out, off, true
}

// EncodeDeltaRle RLE-encodes the first differences of vals (the first
// element is its own delta from zero).
func EncodeDeltaRle(buf []byte, vals []int64) []byte {
	return EncodeRle(buf, toDeltas(vals))
}

// DecodeDeltaRle inverts EncodeDeltaRle.
func DecodeDeltaRle(buf []byte) ([]int64, int, bool) {
	deltas, w, ok := DecodeRle(buf)
	if !ok {
		return nil, 0, false
	}
	return fromDeltas(deltas), w, true
}

// EncodeDeltaOfDelta RLE-encodes the second differences of vals: timestamps
// and lamports tend to advance by a near-constant step, so their second
// difference collapses to long runs of the same small value.
func EncodeDeltaOfDelta(buf []byte, vals []int64) []byte {
	return EncodeRle(buf, toDeltas(toDeltas(vals)))
}

// DecodeDeltaOfDelta inverts EncodeDeltaOfDelta.
func DecodeDeltaOfDelta(buf []byte) ([]int64, int, bool) {
	dd, w, ok := DecodeRle(buf)
	if !ok {
		return nil, 0, false
	}
	return fromDeltas(fromDeltas(dd)), w, true
}

func toDeltas(vals []int64) []int64 {
	out := make([]int64, len(vals))
	var prev int64
	for i, v := range vals {
		out[i] = v - prev
		prev = v
	}
	return out
}

func fromDeltas(deltas []int64) []int64 {
	out := make([]int64, len(deltas))
	var prev int64
	for i, d := range deltas {
		prev += d
		out[i] = prev
	}
	return out
}

// EncodeBoolRle packs a bool column as RLE runs of 0/1.
func EncodeBoolRle(buf []byte, vals []bool) []byte {
	ints := make([]int64, len(vals))
	for i, b := range vals {
		if b {
			ints[i] = 1
		}
	}
	return EncodeRle(buf, ints)
}

// DecodeBoolRle inverts EncodeBoolRle.
func DecodeBoolRle(buf []byte) ([]bool, int, bool) {
	ints, w, ok := DecodeRle(buf)
	if !ok {
		return nil, 0, false
	}
	out := make([]bool, len(ints))
	for i, v := range ints {
		out[i] = v != 0
	}
	return out, w, true
}
