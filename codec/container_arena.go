package codec

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
)

// containerArena deduplicates ContainerIDs referenced by a block's ops, in
// first-appearance order, as columnar rows of (is_root, kind, peer_idx,
// key_idx_or_counter).
type containerArena struct {
	items  []container.ID
	keyIdx []int // valid when items[i].IsRoot: index into the keys arena
	idx    map[string]int
}

func newContainerArena() *containerArena {
	return &containerArena{idx: map[string]int{}}
}

// add registers cid (interning its root name into keys when applicable) and
// returns its arena index.
func (a *containerArena) add(cid container.ID, keys *stringArena) int {
	k := cid.Key()
	if i, ok := a.idx[k]; ok {
		return i
	}
	ki := -1
	if cid.IsRoot {
		ki = keys.add(cid.Name)
	}
	i := len(a.items)
	a.items = append(a.items, cid)
	a.keyIdx = append(a.keyIdx, ki)
	a.idx[k] = i
	return i
}

func (a *containerArena) encode(peers *peerArena) []byte {
	var buf []byte
	buf = PutUvarint(buf, uint64(len(a.items)))

	isRoot := make([]int64, len(a.items))
	kinds := make([]int64, len(a.items))
	peerIdxs := make([]int64, len(a.items))
	keyOrCounter := make([]int64, len(a.items))
	for i, cid := range a.items {
		kinds[i] = int64(cid.Kind)
		if cid.IsRoot {
			isRoot[i] = 1
			keyOrCounter[i] = int64(a.keyIdx[i])
		} else {
			peerIdxs[i] = int64(peers.add(cid.Peer))
			keyOrCounter[i] = int64(cid.Counter)
		}
	}

	buf = EncodeRle(buf, isRoot)
	buf = EncodeRle(buf, kinds)
	buf = EncodeRle(buf, peerIdxs)
	buf = EncodeDeltaRle(buf, keyOrCounter)
	return buf
}

// decodeContainerArena inverts containerArena.encode, resolving root names
// and peer ids against the block's already-decoded keys/peers arenas.
func decodeContainerArena(buf []byte, blockPeers []ids.PeerID, keys []string) ([]container.ID, bool) {
	off := 0
	n, w := Uvarint(buf[off:])
	if w == 0 {
		return nil, false
	}
	off += w

	isRoot, w, ok := DecodeRle(buf[off:])
	if !ok {
		return nil, false
	}
	off += w
	kinds, w, ok := DecodeRle(buf[off:])
	if !ok {
		return nil, false
	}
	off += w
	peerIdxs, w, ok := DecodeRle(buf[off:])
	if !ok {
		return nil, false
	}
	off += w
	keyOrCounter, _, ok := DecodeDeltaRle(buf[off:])
	if !ok {
		return nil, false
	}

	if uint64(len(isRoot)) != n || uint64(len(kinds)) != n || uint64(len(peerIdxs)) != n || uint64(len(keyOrCounter)) != n {
		return nil, false
	}

	out := make([]container.ID, n)
	for i := range out {
		kind := container.Kind(kinds[i])
		if isRoot[i] != 0 {
			ki := keyOrCounter[i]
			if ki < 0 || int(ki) >= len(keys) {
				return nil, false
			}
			out[i] = container.ID{IsRoot: true, Name: keys[ki], Kind: kind}
		} else {
			pIdx := peerIdxs[i]
			if pIdx < 0 || int(pIdx) >= len(blockPeers) {
				return nil, false
			}
			out[i] = container.ID{Peer: blockPeers[pIdx], Counter: ids.Counter(keyOrCounter[i]), Kind: kind}
		}
	}
	return out, true
}
