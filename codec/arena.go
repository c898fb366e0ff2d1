package codec

import "github.com/loro-dev/loro/ids"

// peerArena deduplicates PeerIDs referenced by a block, in first-appearance
// order, so every other arena can reference a peer by a small index instead
// of repeating an 8-byte little-endian id.
type peerArena struct {
	items []ids.PeerID
	idx   map[ids.PeerID]int
}

func newPeerArena() *peerArena {
	return &peerArena{idx: map[ids.PeerID]int{}}
}

func (a *peerArena) add(p ids.PeerID) int {
	if i, ok := a.idx[p]; ok {
		return i
	}
	i := len(a.items)
	a.items = append(a.items, p)
	a.idx[p] = i
	return i
}

func (a *peerArena) encode(buf []byte) []byte {
	buf = PutUvarint(buf, uint64(len(a.items)))
	for _, p := range a.items {
		var b [8]byte
		for i := 0; i < 8; i++ {
			b[i] = byte(p >> (8 * i))
		}
		buf = append(buf, b[:]...)
	}
	return buf
}

func decodePeerArena(buf []byte) ([]ids.PeerID, int, bool) {
	n, w := Uvarint(buf)
	if w == 0 {
		return nil, 0, false
	}
	off := w
	out := make([]ids.PeerID, n)
	for i := range out {
		if off+8 > len(buf) {
			return nil, 0, false
		}
		var p ids.PeerID
		for k := 0; k < 8; k++ {
			p |= ids.PeerID(buf[off+k]) << (8 * k)
		}
		out[i] = p
		off += 8
	}
	return out, off, true
}

// stringArena deduplicates strings (root container names, map keys) in
// first-appearance order.
type stringArena struct {
	items []string
	idx   map[string]int
}

func newStringArena() *stringArena {
	return &stringArena{idx: map[string]int{}}
}

func (a *stringArena) add(s string) int {
	if i, ok := a.idx[s]; ok {
		return i
	}
	i := len(a.items)
	a.items = append(a.items, s)
	a.idx[s] = i
	return i
}

func (a *stringArena) encode(buf []byte) []byte {
	buf = PutUvarint(buf, uint64(len(a.items)))
	for _, s := range a.items {
		buf = PutString(buf, s)
	}
	return buf
}

func decodeStringArena(buf []byte) ([]string, int, bool) {
	n, w := Uvarint(buf)
	if w == 0 {
		return nil, 0, false
	}
	off := w
	out := make([]string, n)
	for i := range out {
		s, w2, ok := GetString(buf[off:])
		if !ok {
			return nil, 0, false
		}
		out[i] = s
		off += w2
	}
	return out, off, true
}

// positionArena prefix-compresses a sequence of fractional-index strings in
// the order their owning ops appear, encoding each as a common-prefix
// length against the previous entry plus the remaining bytes.
type positionArena struct {
	items []string
}

func (a *positionArena) add(s string) {
	a.items = append(a.items, s)
}

func (a *positionArena) encode(buf []byte) []byte {
	buf = PutUvarint(buf, uint64(len(a.items)))
	prev := ""
	for _, s := range a.items {
		cpl := commonPrefixLen(prev, s)
		buf = PutUvarint(buf, uint64(cpl))
		buf = PutString(buf, s[cpl:])
		prev = s
	}
	return buf
}

func decodePositionArena(buf []byte) ([]string, int, bool) {
	n, w := Uvarint(buf)
	if w == 0 {
		return nil, 0, false
	}
	off := w
	out := make([]string, n)
	prev := ""
	for i := range out {
		cpl, w1 := Uvarint(buf[off:])
		if w1 == 0 {
			return nil, 0, false
		}
		off += w1
		rest, w2, ok := GetString(buf[off:])
		if !ok {
			return nil, 0, false
		}
		off += w2
		if int(cpl) > len(prev) {
			return nil, 0, false
		}
		s := prev[:cpl] + rest
		out[i] = s
		prev = s
	}
	return out, off, true
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
