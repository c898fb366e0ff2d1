package sequence

import (
	"fmt"

	"github.com/loro-dev/loro/ids"
)

// Span is a contiguous run of atoms inserted by a single op. All atoms in
// a span share one origin_left/origin_right,
// since a single Insert op's atoms are never reordered relative to each
// other — only whole-op runs compete for position against other ops.
type Span struct {
	ID          ids.IdFull
	OriginLeft  *ids.ID
	OriginRight *ids.ID
	Future      bool

	// DeleteTimes is per-atom so a delete covering only part of a span can
	// be applied without eagerly splitting storage; len(DeleteTimes) ==
	// Content.Len(). A span is split for addressability (not for deletion)
	// only when some other insert's origin needs to target an atom in its
	// middle.
	DeleteTimes []int16
	Content     Content
}

func (s *Span) Len() int { return s.Content.Len() }

// activated reports whether atom i (0-indexed within the span) counts
// towards the active/visible sequence.
func (s *Span) activated(i int) bool {
	return !s.Future && s.DeleteTimes[i] == 0
}

func (s *Span) idAt(i int) ids.ID { return s.ID.ID().Inc(int32(i)) }

// split breaks s into two spans at local offset at (0 < at < s.Len()),
// returning the new right-hand span. The left-hand span (s) is mutated
// in place to cover [0, at). Splitting severs origin links correctly: the
// left remainder keeps s.OriginLeft, the right remainder's origin_left
// becomes the last atom of the left remainder, and only the original
// right-hand OriginRight migrates to the new span.
func (s *Span) split(at int) *Span {
	right := &Span{
		ID:          ids.IdFull{Peer: s.ID.Peer, Counter: s.ID.Counter + ids.Counter(at), Lamport: s.ID.Lamport + ids.Lamport(at)},
		OriginRight: s.OriginRight,
		Future:      s.Future,
		DeleteTimes: append([]int16{}, s.DeleteTimes[at:]...),
		Content:     s.Content.Slice(at, s.Content.Len()),
	}
	leftLast := s.idAt(at - 1)
	right.OriginLeft = &leftLast

	s.DeleteTimes = s.DeleteTimes[:at]
	s.Content = s.Content.Slice(0, at)
	s.OriginRight = nil
	return right
}

// Rope is the atom-ordered backing store for one sequence CRDT (List, Text,
// or the item layer of MovableList).
type Rope struct {
	spans []*Span
	index map[ids.ID]cursor
}

type cursor struct {
	span   int
	offset int
}

// NewRope returns an empty rope.
func NewRope() *Rope {
	return &Rope{index: map[ids.ID]cursor{}}
}

// Len returns the total atom count, including tombstoned and future atoms.
func (r *Rope) Len() int {
	n := 0
	for _, s := range r.spans {
		n += s.Len()
	}
	return n
}

// ActiveLen returns the count of activated (visible) atoms.
func (r *Rope) ActiveLen() int {
	n := 0
	for _, s := range r.spans {
		for i := 0; i < s.Len(); i++ {
			if s.activated(i) {
				n++
			}
		}
	}
	return n
}

func (r *Rope) reindexFrom(spanIdx int) {
	for i := spanIdx; i < len(r.spans); i++ {
		s := r.spans[i]
		for off := 0; off < s.Len(); off++ {
			r.index[s.idAt(off)] = cursor{span: i, offset: off}
		}
	}
}

// splitAt ensures no span straddles the atom named by id; it is a no-op if
// id already falls on a span boundary or is unknown to the rope.
func (r *Rope) splitAtID(id ids.ID) {
	c, ok := r.index[id]
	if !ok || c.offset == 0 {
		return
	}
	s := r.spans[c.span]
	right := s.split(c.offset)
	r.spans = append(r.spans[:c.span+1], append([]*Span{right}, r.spans[c.span+1:]...)...)
	r.reindexFrom(c.span)
}

// cursorForActivePos walks the rope counting activated atoms, returning the
// cursor (span index + offset) of the activated atom at active index pos, so
// any tombstones in front of that atom are passed over; pos equal to the
// active length yields the end of the rope. InsertLocal places a new insert
// just after the atom at pos-1, i.e. at the left boundary of any run of
// tombstones.
func (r *Rope) cursorForActivePos(pos int) cursor {
	seen := 0
	for si, s := range r.spans {
		for off := 0; off < s.Len(); off++ {
			if s.activated(off) {
				if seen == pos {
					return cursor{span: si, offset: off}
				}
				seen++
			}
		}
	}
	return cursor{span: len(r.spans), offset: 0}
}

// originLeftAt returns the id of the nearest activated atom strictly before
// the given cursor, or nil if cursor is at the document start.
func (r *Rope) originLeftAt(c cursor) *ids.ID {
	for si := c.span; si >= 0; si-- {
		if si >= len(r.spans) {
			continue
		}
		s := r.spans[si]
		start := s.Len()
		if si == c.span {
			start = c.offset
		}
		for off := start - 1; off >= 0; off-- {
			if s.activated(off) {
				id := s.idAt(off)
				return &id
			}
		}
	}
	return nil
}

// scanFuture collects the run of future spans' atoms starting at cursor c,
// returning the ids of the atoms that run covers and the id of the first
// non-future atom encountered after it (origin_right), or nil if none.
//
// In this rope, "future" is tracked per span, so the scan walks whole spans;
// a future span is always either wholly future or has already been
// partitioned by splitAtID at activation time.
func (r *Rope) scanFuture(c cursor) (inBetween []int, originRight *ids.ID) {
	si := c.span
	off := c.offset
	for si < len(r.spans) {
		s := r.spans[si]
		if off >= s.Len() {
			si++
			off = 0
			continue
		}
		if !s.Future {
			id := s.idAt(off)
			return inBetween, &id
		}
		inBetween = append(inBetween, si)
		si++
		off = 0
	}
	return inBetween, nil
}

// InsertLocal performs a local insert at active index pos, computing
// origin_left/origin_right and placing the new span via the Fugue
// tie-break. It returns the computed origins so the caller can record them
// on the op.
func (r *Rope) InsertLocal(pos int, id ids.IdFull, content Content) (originLeft, originRight *ids.ID) {
	c := cursor{span: 0, offset: 0}
	if pos > 0 {
		prev := r.cursorForActivePos(pos - 1)
		c = cursor{span: prev.span, offset: prev.offset + 1}
	}
	originLeft = r.originLeftAt(c)
	_, originRight = r.scanFuture(c)
	r.insertResolved(id, originLeft, originRight, content, false)
	return originLeft, originRight
}

// InsertRemote integrates a remote insert whose origin_left/origin_right are
// already fixed (carried on the op), re-deriving its placement via the same
// tie-break scan so every replica converges regardless of arrival order.
func (r *Rope) InsertRemote(id ids.IdFull, originLeft, originRight *ids.ID, content Content, future bool) {
	r.insertResolved(id, originLeft, originRight, content, future)
}

// insertResolved locates the insertion point given a fixed
// origin_left/origin_right: it finds the cursor just after origin_left (or
// document start), scans the run of future/concurrent spans, and walks it
// with the peer/parent-right-leaf tie-break to find the final insertion
// point.
func (r *Rope) insertResolved(id ids.IdFull, originLeft, originRight *ids.ID, content Content, future bool) {
	var start cursor
	if originLeft == nil {
		start = cursor{span: 0, offset: 0}
	} else {
		r.splitAtID(originLeft.Inc(1))
		oc, ok := r.index[*originLeft]
		if !ok {
			start = cursor{span: len(r.spans), offset: 0}
		} else {
			start = cursor{span: oc.span, offset: oc.offset + 1}
			if start.offset >= r.spans[oc.span].Len() {
				start = cursor{span: oc.span + 1, offset: 0}
			}
		}
	}
	if originRight != nil {
		r.splitAtID(*originRight)
	}

	var inBetweenSpans []int
	for si := start.span; si < len(r.spans); si++ {
		if originRight != nil && r.spans[si].ID.ID() == *originRight {
			break
		}
		inBetweenSpans = append(inBetweenSpans, si)
	}

	newSpan := &Span{ID: id, OriginLeft: originLeft, OriginRight: originRight, Future: future,
		DeleteTimes: make([]int16, content.Len()), Content: content}

	insertAt := start
	visitedOriginLeft := map[ids.ID]bool{}
	if originLeft != nil {
		visitedOriginLeft[*originLeft] = true
	}

	for _, si := range inBetweenSpans {
		other := r.spans[si]
		stop := false

		switch {
		case !idEqual(other.OriginLeft, originLeft) && !visitedOriginLeft[derefOrZero(other.OriginLeft)]:
			stop = true
		case idEqual(other.OriginLeft, originLeft):
			if idEqual(other.OriginRight, originRight) {
				stop = other.ID.Peer > id.Peer
			} else {
				cmp := r.compareParentRightLeaf(other, originLeft, originRight, id.Peer)
				switch {
				case cmp < 0:
					stop = false
				case cmp == 0:
					stop = other.ID.Peer > id.Peer
				default:
					stop = true
				}
			}
		}

		if stop {
			insertAt = cursor{span: si, offset: 0}
			break
		}
		for k := 0; k < other.Len(); k++ {
			visitedOriginLeft[other.idAt(k)] = true
		}
		insertAt = cursor{span: si + 1, offset: 0}
	}

	r.insertSpanAt(insertAt, newSpan)
}

func idEqual(a, b *ids.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func derefOrZero(id *ids.ID) ids.ID {
	if id == nil {
		return ids.ID{}
	}
	return *id
}

// compareParentRightLeaf compares other's own parent_right_leaf identity
// against the new span's — the tie-break fallback once peer id alone
// doesn't decide an insertion order. parent_right_leaf is the rope leaf
// holding origin_right iff that leaf's
// own origin_left equals the span in question's origin_left; we compare by
// the leaf's leftmost id, which is stable under splits.
func (r *Rope) compareParentRightLeaf(other *Span, newOriginLeft, newOriginRight *ids.ID, newPeer ids.PeerID) int {
	otherLeaf := r.parentRightLeafID(other.OriginRight, other.OriginLeft)
	newLeaf := r.parentRightLeafID(newOriginRight, newOriginLeft)
	switch {
	case otherLeaf == nil && newLeaf == nil:
		return 0
	case otherLeaf == nil:
		return -1
	case newLeaf == nil:
		return 1
	case *otherLeaf == *newLeaf:
		return 0
	case otherLeaf.Peer != newLeaf.Peer:
		if otherLeaf.Peer < newLeaf.Peer {
			return -1
		}
		return 1
	case otherLeaf.Counter < newLeaf.Counter:
		return -1
	default:
		return 1
	}
}

func (r *Rope) parentRightLeafID(originRight, wantOriginLeft *ids.ID) *ids.ID {
	if originRight == nil {
		return nil
	}
	c, ok := r.index[*originRight]
	if !ok {
		return nil
	}
	s := r.spans[c.span]
	if !idEqual(s.OriginLeft, wantOriginLeft) {
		return nil
	}
	id := s.ID.ID()
	return &id
}

func (r *Rope) insertSpanAt(c cursor, s *Span) {
	if c.offset != 0 && c.span < len(r.spans) {
		panic(fmt.Sprintf("sequence: insertSpanAt called mid-span at %+v", c))
	}
	idx := c.span
	if idx > len(r.spans) {
		idx = len(r.spans)
	}
	r.spans = append(r.spans[:idx], append([]*Span{s}, r.spans[idx:]...)...)
	r.reindexFrom(idx)
}

// Activate clears the Future flag on every atom of id's span, used when an
// out-of-order remote insert's causal predecessor finally arrives.
func (r *Rope) Activate(id ids.ID) {
	c, ok := r.index[id]
	if !ok {
		return
	}
	r.spans[c.span].Future = false
}

// DeleteRange marks activated atoms in [startID, startID+n) as tombstoned,
// incrementing each atom's delete_times. It splits spans as needed so only
// the targeted atoms are affected.
func (r *Rope) DeleteRange(startID ids.ID, n int32) {
	for i := int32(0); i < n; i++ {
		r.deleteOne(startID.Inc(i))
	}
}

func (r *Rope) deleteOne(id ids.ID) {
	c, ok := r.index[id]
	if !ok {
		return
	}
	r.spans[c.span].DeleteTimes[c.offset]++
}

// Snapshot returns the activated atoms' ids and contents in rope order, used
// to materialize a Text/List checkout.
func (r *Rope) Snapshot() []Content {
	var out []Content
	for _, s := range r.spans {
		for off := 0; off < s.Len(); off++ {
			if s.activated(off) {
				out = append(out, s.Content.Slice(off, off+1))
			}
		}
	}
	return out
}

// Spans exposes the rope's backing spans read-only, for callers (diff,
// codec) that need the raw id/origin/tombstone layout rather than active
// content.
func (r *Rope) Spans() []*Span { return r.spans }

// ActiveIDs returns the ids of every activated atom in rope order, for
// callers (movablelist) that track per-atom side state keyed by id rather
// than by Content.
func (r *Rope) ActiveIDs() []ids.ID {
	var out []ids.ID
	for _, s := range r.spans {
		for off := 0; off < s.Len(); off++ {
			if s.activated(off) {
				out = append(out, s.idAt(off))
			}
		}
	}
	return out
}

// IDAtActivePos resolves active index pos to the atom id there, used to
// resolve Move/anchor targets expressed as a position.
func (r *Rope) IDAtActivePos(pos int) (ids.ID, bool) {
	c := r.cursorForActivePos(pos)
	if c.span >= len(r.spans) {
		return ids.ID{}, false
	}
	return r.spans[c.span].idAt(c.offset), true
}

// CursorOf exposes the id->cursor index for ID resolution (DeleteSpan
// start_id, Move anchors, diff queries).
func (r *Rope) CursorOf(id ids.ID) (spanIndex, offset int, ok bool) {
	c, found := r.index[id]
	return c.span, c.offset, found
}
