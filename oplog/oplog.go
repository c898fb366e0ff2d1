// Package oplog implements the causally-ordered DAG of Changes: append-only
// storage keyed by (peer, counter), the derived VersionVector and
// Frontiers, and transitive retry of changes parked on missing
// dependencies.
package oplog

import (
	"errors"
	"fmt"
	"sort"

	golog "github.com/ipfs/go-log"

	"github.com/loro-dev/loro/ids"
)

var log = golog.Logger("oplog")

// Sentinel errors for this layer.
var (
	// ErrMissingDeps means a change's deps reference ops not yet present;
	// callers importing remote changes should park it and retry once the
	// missing deps arrive (see Import).
	ErrMissingDeps = errors.New("oplog: change depends on ops not yet present")
	// ErrCounterGap means appending the change would violate per-peer
	// counter contiguity.
	ErrCounterGap = errors.New("oplog: change introduces a counter gap or duplicate for its peer")
	// ErrLamportViolation means the change's lamport does not exceed the
	// lamport of every dependency.
	ErrLamportViolation = errors.New("oplog: change lamport violates causal ordering")
)

// OpLog is the append-only DAG of Changes for one document replica. It is
// not safe for concurrent use — a document is owned by one logical task at
// a time.
type OpLog struct {
	changesByPeer map[ids.PeerID][]*Change
	vv            ids.VersionVector
	frontiers     ids.Frontiers
	pendingByDep  map[ids.ID][]*Change
}

// New returns an empty OpLog.
func New() *OpLog {
	return &OpLog{
		changesByPeer: map[ids.PeerID][]*Change{},
		vv:            ids.VersionVector{},
		pendingByDep:  map[ids.ID][]*Change{},
	}
}

// VersionVector returns a copy of the current version vector.
func (l *OpLog) VersionVector() ids.VersionVector { return l.vv.Clone() }

// Frontiers returns a copy of the current frontiers.
func (l *OpLog) Frontiers() ids.Frontiers { return l.frontiers.Clone() }

// NextID returns the next free id for peer, i.e. (peer, vv[peer]).
func (l *OpLog) NextID(peer ids.PeerID) ids.ID {
	return ids.ID{Peer: peer, Counter: l.vv.Get(peer)}
}

// FrontiersToNextLamport computes max(lamport_of(d)+1 for d in front), or 0
// if front is empty.
func (l *OpLog) FrontiersToNextLamport(front ids.Frontiers) ids.Lamport {
	var max ids.Lamport
	found := false
	for _, id := range front {
		lp, ok := l.LamportOfID(id)
		if !ok {
			continue
		}
		if !found || lp+1 > max {
			max = lp + 1
			found = true
		}
	}
	return max
}

// LamportOfID finds the change containing id and interpolates its lamport.
func (l *OpLog) LamportOfID(id ids.ID) (ids.Lamport, bool) {
	c := l.findChange(id)
	if c == nil {
		return 0, false
	}
	return c.LamportOf(id), true
}

func (l *OpLog) findChange(id ids.ID) *Change {
	list := l.changesByPeer[id.Peer]
	// list is append-ordered and therefore sorted by counter; binary search
	// on the start counter of each change.
	i := sort.Search(len(list), func(i int) bool {
		return list[i].ID.Counter+ids.Counter(list[i].AtomLen) > id.Counter
	})
	if i < len(list) && list[i].Covers(id) {
		return list[i]
	}
	return nil
}

// GetChange returns the change covering id, or nil if none is stored.
func (l *OpLog) GetChange(id ids.ID) *Change { return l.findChange(id) }

// vvAt computes the version vector implied by having observed exactly the
// causal history of front: every change reachable by walking deps from
// front, each contributing vv[peer] = max(vv[peer], counter+1).
func (l *OpLog) vvAt(front ids.Frontiers) ids.VersionVector {
	vv := ids.VersionVector{}
	visitedChange := map[ids.ID]bool{}
	stack := append(ids.Frontiers{}, front...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := l.findChange(id)
		if c == nil {
			continue
		}
		vv.SetIfGreater(id.Peer, id.Counter+1)
		if !visitedChange[c.ID] {
			visitedChange[c.ID] = true
			stack = append(stack, c.Deps...)
		}
	}
	return vv
}

// IsAncestor reports whether id is in the causal history of other (or equal
// to it).
func (l *OpLog) IsAncestor(id, other ids.ID) bool {
	return l.vvAt(ids.Frontiers{other}).Includes(id) || id == other
}

// VVToFrontiers shrinks {last id of each peer at or below vv[p]} to a
// minimal antichain by dropping ids that are ancestors of another
// candidate.
func (l *OpLog) VVToFrontiers(vv ids.VersionVector) ids.Frontiers {
	var candidates ids.Frontiers
	for p, c := range vv {
		if c == 0 {
			continue
		}
		candidates = append(candidates, ids.ID{Peer: p, Counter: c - 1})
	}
	var out ids.Frontiers
	for i, id := range candidates {
		ancestorOfAnother := false
		for j, other := range candidates {
			if i == j {
				continue
			}
			if l.IsAncestor(id, other) {
				ancestorOfAnother = true
				break
			}
		}
		if !ancestorOfAnother {
			out = append(out, id)
		}
	}
	return out
}

// FrontiersToVV is the inverse direction: the version vector implied by a
// frontier (every peer mapped to one past its furthest observed counter).
func (l *OpLog) FrontiersToVV(front ids.Frontiers) ids.VersionVector {
	return l.vvAt(front)
}

// FindLCA returns the greatest common ancestor frontier of a and b, used for
// shallow-snapshot baselines and diff endpoints.
func (l *OpLog) FindLCA(a, b ids.Frontiers) ids.Frontiers {
	va, vb := l.vvAt(a), l.vvAt(b)
	merged := ids.VersionVector{}
	for p, c := range va {
		merged[p] = c
	}
	for p, c := range vb {
		if existing, ok := merged[p]; !ok || c < existing {
			merged[p] = c
		}
	}
	for p := range merged {
		if _, ok := vb[p]; !ok {
			merged[p] = 0
		}
	}
	for p := range vb {
		if _, ok := va[p]; !ok {
			merged[p] = 0
		}
	}
	return l.VVToFrontiers(merged)
}

func (l *OpLog) missingDeps(c *Change) ids.Frontiers {
	var out ids.Frontiers
	for _, d := range c.Deps {
		if !l.vv.Includes(d) {
			out = append(out, d)
		}
	}
	return out
}

// tryAppend validates and, on success, appends c. It does not handle the
// pending-dependency retry loop — see Import for that.
func (l *OpLog) tryAppend(c *Change) error {
	if len(c.Ops) == 0 || c.AtomLen <= 0 {
		return fmt.Errorf("oplog: change %s has no ops", c.ID)
	}
	expectedCounter := l.vv.Get(c.ID.Peer)
	if c.ID.Counter != expectedCounter {
		return fmt.Errorf("%w: peer %d expected counter %d, got %d",
			ErrCounterGap, c.ID.Peer, expectedCounter, c.ID.Counter)
	}
	if len(l.missingDeps(c)) > 0 {
		return ErrMissingDeps
	}
	expectedLamport := l.FrontiersToNextLamport(c.Deps)
	if c.Lamport < expectedLamport {
		return fmt.Errorf("%w: change %s has lamport %d, expected at least %d",
			ErrLamportViolation, c.ID, c.Lamport, expectedLamport)
	}
	l.appendUnchecked(c)
	return nil
}

func (l *OpLog) appendUnchecked(c *Change) {
	l.changesByPeer[c.ID.Peer] = append(l.changesByPeer[c.ID.Peer], c)
	l.vv.SetIfGreater(c.ID.Peer, c.ID.Counter+ids.Counter(c.AtomLen))
	l.recomputeFrontiers(c)
}

func (l *OpLog) recomputeFrontiers(c *Change) {
	next := l.frontiers[:0:0]
	for _, f := range l.frontiers {
		isDirectDep := false
		for _, d := range c.Deps {
			if f == d {
				isDirectDep = true
				break
			}
		}
		if !isDirectDep {
			next = append(next, f)
		}
	}
	l.frontiers = append(next, c.IDLast())
}

// Append adds a locally-created change (e.g. from a Transaction commit).
// The caller guarantees c.Deps are exactly the current frontiers, so this
// should only fail if the caller's bookkeeping is inconsistent.
func (l *OpLog) Append(c *Change) error {
	if err := l.tryAppend(c); err != nil {
		return err
	}
	log.Debugf("appended local change %s len=%d", c.ID, c.AtomLen)
	return nil
}

// Import merges remote changes into the log. Changes whose deps are not yet
// present are parked; Import returns the frontiers of dependencies still
// missing after this call (the pending half of an import's
// {success, pending} result).
func (l *OpLog) Import(changes []*Change) (pending ids.Frontiers, err error) {
	queue := append([]*Change{}, changes...)
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]

		if c.AtomLen > 0 && l.vv.Includes(c.IDLast()) {
			// already applied via another dependency-release path
			continue
		}

		missing := l.missingDeps(c)
		if len(missing) > 0 {
			for _, d := range missing {
				l.pendingByDep[d] = append(l.pendingByDep[d], c)
			}
			continue
		}

		if err := l.tryAppend(c); err != nil {
			return nil, fmt.Errorf("oplog: import change %s: %w", c.ID, err)
		}
		log.Debugf("imported change %s len=%d", c.ID, c.AtomLen)
		queue = append(queue, l.releaseReadyDependents(c)...)
	}
	return l.PendingFrontiers(), nil
}

// releaseReadyDependents finds changes parked on a dependency that c just
// satisfied and returns those with no other missing dependency.
func (l *OpLog) releaseReadyDependents(c *Change) []*Change {
	var ready []*Change
	for dep, waiters := range l.pendingByDep {
		if dep.Peer != c.ID.Peer || !l.vv.Includes(dep) {
			continue
		}
		delete(l.pendingByDep, dep)
		for _, w := range waiters {
			if len(l.missingDeps(w)) == 0 {
				ready = append(ready, w)
			} else {
				// still blocked on another dep; it remains indexed there.
				continue
			}
		}
	}
	return ready
}

// PendingFrontiers lists the distinct dependency ids still blocking at least
// one parked change.
func (l *OpLog) PendingFrontiers() ids.Frontiers {
	var out ids.Frontiers
	for dep := range l.pendingByDep {
		out = append(out, dep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Peer != out[j].Peer {
			return out[i].Peer < out[j].Peer
		}
		return out[i].Counter < out[j].Counter
	})
	return out
}

// IterInCausalOrder returns every change newly observed between fromVV and
// toVV, ordered deterministically by (lamport, peer, counter) so that every
// replica replays concurrent changes identically.
func (l *OpLog) IterInCausalOrder(fromVV, toVV ids.VersionVector) []*Change {
	var result []*Change
	for peer, list := range l.changesByPeer {
		from, to := fromVV.Get(peer), toVV.Get(peer)
		for _, c := range list {
			if c.ID.Counter >= from && c.ID.Counter < to {
				result = append(result, c)
			}
		}
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Lamport != b.Lamport {
			return a.Lamport < b.Lamport
		}
		if a.ID.Peer != b.ID.Peer {
			return a.ID.Peer < b.ID.Peer
		}
		return a.ID.Counter < b.ID.Counter
	})
	return result
}
