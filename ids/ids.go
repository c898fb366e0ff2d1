// Package ids defines the identifier types shared across the engine: peers,
// per-peer counters, lamport clocks, and the version vectors and frontiers
// derived from them.
package ids

import (
	"fmt"
	"sort"
)

// PeerID uniquely names a replica for the lifetime of a document.
type PeerID uint64

// Counter is a per-peer, zero-based, gapless op index.
type Counter int32

// Lamport is a totally-ordered logical clock.
type Lamport uint32

// ID names a single op atom by the peer that created it and that peer's
// counter at the time.
type ID struct {
	Peer    PeerID
	Counter Counter
}

// String renders an ID as "peer@counter", used for log messages and map
// debugging only — never for wire encoding.
func (id ID) String() string {
	return fmt.Sprintf("%d@%d", id.Peer, id.Counter)
}

// Inc returns the ID of the atom `n` positions after id within the same
// change (callers are responsible for ensuring that atom exists).
func (id ID) Inc(n int32) ID {
	return ID{Peer: id.Peer, Counter: id.Counter + Counter(n)}
}

// IdLp is the (lamport, peer) pair used as this engine's total order key.
// Comparisons order by Lamport first, breaking ties by Peer.
type IdLp struct {
	Lamport Lamport
	Peer    PeerID
}

// Less reports whether lp sorts strictly before other.
func (lp IdLp) Less(other IdLp) bool {
	if lp.Lamport != other.Lamport {
		return lp.Lamport < other.Lamport
	}
	return lp.Peer < other.Peer
}

// Compare returns -1, 0 or 1 per the usual three-way comparison contract.
func (lp IdLp) Compare(other IdLp) int {
	switch {
	case lp.Less(other):
		return -1
	case other.Less(lp):
		return 1
	default:
		return 0
	}
}

// IdFull is the full identity of an op atom.
type IdFull struct {
	Peer    PeerID
	Counter Counter
	Lamport Lamport
}

// ID projects the (peer, counter) half of a full id.
func (f IdFull) ID() ID {
	return ID{Peer: f.Peer, Counter: f.Counter}
}

// IdLp projects the (lamport, peer) half of a full id.
func (f IdFull) IdLp() IdLp {
	return IdLp{Lamport: f.Lamport, Peer: f.Peer}
}

// VersionVector maps peer to the exclusive upper bound of counters that
// peer's changes have been observed for.
type VersionVector map[PeerID]Counter

// Clone returns an independent copy of vv.
func (vv VersionVector) Clone() VersionVector {
	out := make(VersionVector, len(vv))
	for p, c := range vv {
		out[p] = c
	}
	return out
}

// Get returns vv[peer], defaulting to 0 for peers never seen.
func (vv VersionVector) Get(peer PeerID) Counter {
	return vv[peer]
}

// Includes reports whether vv has observed the atom named by id, i.e.
// id.Counter < vv[id.Peer].
func (vv VersionVector) Includes(id ID) bool {
	return id.Counter < vv.Get(id.Peer)
}

// SetIfGreater bumps vv[peer] to next if it isn't already at least next.
func (vv *VersionVector) SetIfGreater(peer PeerID, next Counter) {
	if *vv == nil {
		*vv = VersionVector{}
	}
	if (*vv)[peer] < next {
		(*vv)[peer] = next
	}
}

// Merge raises every entry of vv to be at least as large as the
// corresponding entry in other, returning vv for chaining.
func (vv VersionVector) Merge(other VersionVector) VersionVector {
	for p, c := range other {
		if vv[p] < c {
			vv[p] = c
		}
	}
	return vv
}

// Frontiers is the minimal antichain of IDs generating the current causal
// history: one ID per concurrent branch head.
type Frontiers []ID

// Clone returns an independent copy of f.
func (f Frontiers) Clone() Frontiers {
	out := make(Frontiers, len(f))
	copy(out, f)
	return out
}

// Sorted returns a copy of f ordered by (peer, counter) for deterministic
// iteration and encoding.
func (f Frontiers) Sorted() Frontiers {
	out := f.Clone()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Peer != out[j].Peer {
			return out[i].Peer < out[j].Peer
		}
		return out[i].Counter < out[j].Counter
	})
	return out
}

// Equal reports whether f and other contain the same set of IDs.
func (f Frontiers) Equal(other Frontiers) bool {
	if len(f) != len(other) {
		return false
	}
	a, b := f.Sorted(), other.Sorted()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
