// Package tree implements the movable-tree CRDT: last-move-wins node
// placement with cycle prevention and fractional-index ordering of
// siblings.
package tree

import (
	"errors"
	"sort"

	golog "github.com/ipfs/go-log"

	"github.com/loro-dev/loro/ids"
)

var log = golog.Logger("tree")

// ParentKind discriminates what a node's parent currently is.
type ParentKind uint8

const (
	ParentRoot ParentKind = iota
	ParentNode
	ParentDeleted
	ParentUnexist
)

// ErrWouldCycle is returned by a local Move that would make target an
// ancestor of its own new parent.
var ErrWouldCycle = errors.New("tree: move would create a cycle")

// ErrNoSuchParent is returned by a local Move targeting a parent this
// replica has never created (or which Unexist).
var ErrNoSuchParent = errors.New("tree: parent does not exist")

// Node is one tree node's current CRDT state. prev* mirrors the node's
// state immediately before LastMoveOp took effect, kept so a cross-target
// cycle conflict can evict this node's move in favor of a higher-priority
// competing move and fall back to where it was before (see applyMove and
// validateMove). hasMoved distinguishes a node still sitting where Create
// put it from one an explicit Move has since repositioned — only the
// latter is eligible for eviction, since a node's initial placement can
// never be the losing side of a concurrent conflict (nothing can reference
// it, let alone race it, before it exists).
type Node struct {
	ID         ids.ID
	ParentKind ParentKind
	Parent     ids.ID // valid when ParentKind == ParentNode
	Position   FractionalIndex
	LastMoveOp ids.IdFull

	hasMoved bool

	prevParentKind ParentKind
	prevParent     ids.ID
	prevPosition   FractionalIndex
	prevMoveOp     ids.IdFull
	prevHasMoved   bool
}

// Tree is the movable-tree state machine for one Tree container.
type Tree struct {
	nodes map[ids.ID]*Node
}

// New returns an empty Tree.
func New() *Tree { return &Tree{nodes: map[ids.ID]*Node{}} }

// Node returns the node named by id, or nil if it has never been created.
func (t *Tree) Node(id ids.ID) *Node { return t.nodes[id] }

// exists reports whether id names a node that is not Unexist.
func (t *Tree) exists(id ids.ID) bool {
	n, ok := t.nodes[id]
	return ok && n.ParentKind != ParentUnexist
}

// isAncestor reports whether ancestor is target or an ancestor of target by
// walking Parent links; it stops at Root/Deleted/Unexist/a parent cycle
// guard (the walk is already acyclic by construction once cycles are
// rejected, but the guard defends against inspecting transient states).
func (t *Tree) isAncestor(ancestor, target ids.ID) bool {
	seen := map[ids.ID]bool{}
	cur := target
	for {
		if cur == ancestor {
			return true
		}
		if seen[cur] {
			return false
		}
		seen[cur] = true
		n, ok := t.nodes[cur]
		if !ok || n.ParentKind != ParentNode {
			return false
		}
		cur = n.Parent
	}
}

// chainChildOf returns the node z on the path from descendant up to target
// such that z.Parent == target — the single edge that makes target an
// ancestor of descendant. ok is false if target is not actually an
// ancestor of descendant.
func (t *Tree) chainChildOf(target, descendant ids.ID) (z *Node, ok bool) {
	seen := map[ids.ID]bool{}
	cur := descendant
	for {
		n, exists := t.nodes[cur]
		if !exists || n.ParentKind != ParentNode {
			return nil, false
		}
		if n.Parent == target {
			return n, true
		}
		if seen[cur] {
			return nil, false
		}
		seen[cur] = true
		cur = n.Parent
	}
}

// validateMove reports whether target may move under parent without
// creating a cycle. Two concurrent moves can conflict across different
// targets (X moved under Y, Y moved under X); when that happens the move
// with the smaller IdLp is the one that loses, regardless of which
// replica applied which move first. If the single edge currently making
// parent a descendant of target (z) was itself set by a prior Move (not
// merely z's Create) with a smaller IdLp than moveOp, z is evicted back to
// its pre-move position and this move proceeds; otherwise this move is
// rejected. A node's Create placement is never eligible for eviction —
// nothing can race a node's own creation — so a cycle running through a
// node that has never been moved is always a plain rejection. A conflict
// deeper than one hop is also rejected conservatively rather than unwound.
func (t *Tree) validateMove(target, parent ids.ID, moveOp ids.IdFull) bool {
	if !t.isAncestor(target, parent) {
		return true
	}
	z, ok := t.chainChildOf(target, parent)
	if !ok || !z.hasMoved || !z.LastMoveOp.IdLp().Less(moveOp.IdLp()) {
		log.Debugf("move %v->%v rejected: cycle via %v", target, parent, z)
		return false
	}
	saved := *z
	t.revert(z)
	if t.isAncestor(target, parent) {
		*z = saved
		log.Debugf("move %v->%v rejected: cycle persists past single-hop evict of %v", target, parent, z.ID)
		return false
	}
	log.Debugf("move %v->%v wins over %v's lower-IdLp move, evicting it to %v", target, parent, z.ID, z.ParentKind)
	return true
}

func (t *Tree) revert(n *Node) {
	n.ParentKind = n.prevParentKind
	n.Parent = n.prevParent
	n.Position = n.prevPosition
	n.LastMoveOp = n.prevMoveOp
	n.hasMoved = n.prevHasMoved
}

// Create adds a new node as a child of parentKind/parent at the given
// fractional index.
func (t *Tree) Create(target ids.ID, parentKind ParentKind, parent ids.ID, fi FractionalIndex, moveOp ids.IdFull) {
	t.nodes[target] = &Node{ID: target, ParentKind: parentKind, Parent: parent, Position: fi, LastMoveOp: moveOp, prevParentKind: ParentUnexist}
}

// LocalMove applies a move initiated by this replica, rejecting cycles and
// moves to a non-existent parent outright.
func (t *Tree) LocalMove(target ids.ID, parentKind ParentKind, parent ids.ID, fi FractionalIndex, moveOp ids.IdFull) error {
	if parentKind == ParentNode {
		if !t.exists(parent) {
			return ErrNoSuchParent
		}
		if !t.validateMove(target, parent, moveOp) {
			return ErrWouldCycle
		}
	}
	t.applyMove(target, parentKind, parent, fi, moveOp)
	return nil
}

// RemoteMove applies a move received from another replica. A move that
// would create a cycle or targets an unknown parent is silently ignored
// (treated as a no-op at this replica) rather than rejected, since the
// remote replica that created it may have had a different, valid view.
func (t *Tree) RemoteMove(target ids.ID, parentKind ParentKind, parent ids.ID, fi FractionalIndex, moveOp ids.IdFull) {
	if cur, ok := t.nodes[target]; ok && moveOp.IdLp().Less(cur.LastMoveOp.IdLp()) {
		// A move older than the one already applied: last-move-wins means
		// this one lost, regardless of validity.
		return
	}
	if parentKind == ParentNode {
		if !t.exists(parent) {
			return
		}
		if !t.validateMove(target, parent, moveOp) {
			return
		}
	}
	t.applyMove(target, parentKind, parent, fi, moveOp)
}

func (t *Tree) applyMove(target ids.ID, parentKind ParentKind, parent ids.ID, fi FractionalIndex, moveOp ids.IdFull) {
	n, ok := t.nodes[target]
	if !ok {
		n = &Node{ID: target, ParentKind: ParentUnexist}
		t.nodes[target] = n
	}
	// Last-move-wins: only apply if moveOp is newer than the node's current
	// last-move. A node not seen before (a Create replayed from another
	// replica) skips the check, and that first placement counts as its
	// Create rather than a move, as it does for a local Create.
	if ok && moveOp.IdLp().Less(n.LastMoveOp.IdLp()) {
		return
	}
	n.prevParentKind = n.ParentKind
	n.prevParent = n.Parent
	n.prevPosition = n.Position
	n.prevMoveOp = n.LastMoveOp
	n.prevHasMoved = n.hasMoved

	n.ParentKind = parentKind
	n.Parent = parent
	n.Position = fi
	n.LastMoveOp = moveOp
	n.hasMoved = ok
}

// Delete moves target to the Deleted parent state ("delete is move to
// Deleted").
func (t *Tree) Delete(target ids.ID, moveOp ids.IdFull, local bool) error {
	if local {
		return t.LocalMove(target, ParentDeleted, ids.ID{}, "", moveOp)
	}
	t.RemoteMove(target, ParentDeleted, ids.ID{}, "", moveOp)
	return nil
}

// Children returns the nodes whose parent kind is parentKind and, for
// ParentNode, whose parent is parent (parent is ignored for the other
// kinds), ordered by (fractional_index, IdLp).
func (t *Tree) Children(parentKind ParentKind, parent ids.ID) []*Node {
	var out []*Node
	for _, n := range t.nodes {
		if n.ParentKind != parentKind {
			continue
		}
		if parentKind == ParentNode && n.Parent != parent {
			continue
		}
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].LastMoveOp.IdLp().Less(out[j].LastMoveOp.IdLp())
	})
	return out
}

// FractionalIndexForUserPos computes the fractional index for inserting a
// new child at user index i among the (already-sorted) existing children,
// triggering a rearrange when the surrounding bounds have collided.
//
// Rearrange must be deterministic across replicas: rearrange is nil when
// plain Between() sufficed; otherwise the caller must apply the returned
// reassignments (new fractional indices keyed by node id) as additional
// local Move ops before retrying.
func FractionalIndexForUserPos(children []*Node, i int) (fi FractionalIndex, rearrange map[ids.ID]FractionalIndex) {
	var lo, hi FractionalIndex
	if i > 0 {
		lo = children[i-1].Position
	}
	if i < len(children) {
		hi = children[i].Position
	}
	if hi == "" || lo < hi {
		return safeBetween(lo, hi), nil
	}
	return "", rearrangeWindow(children, i)
}

func safeBetween(lo, hi FractionalIndex) (fi FractionalIndex) {
	defer func() {
		if recover() != nil {
			fi = lo + "0"
		}
	}()
	return Between(lo, hi)
}

// rearrangeWindow widens the bound search outward from the collision point
// until it finds room, then evenly respaces every sibling in that window —
// the same scan on every replica, since Children() sorts deterministically.
func rearrangeWindow(children []*Node, at int) map[ids.ID]FractionalIndex {
	log.Debugf("rearranging fractional indices around collision at position %d of %d children", at, len(children))
	lo, hi := 0, at
	for lo > 0 && children[lo-1].Position == children[at-1].Position {
		lo--
	}
	for hi < len(children) && (hi == at || children[hi].Position == children[at-1].Position) {
		hi++
	}

	var loBound, hiBound FractionalIndex
	if lo > 0 {
		loBound = children[lo-1].Position
	}
	if hi < len(children) {
		hiBound = children[hi].Position
	}

	window := children[lo:hi]
	n := len(window) + 1
	spaced := EvenlySpaced(loBound, hiBound, n)

	out := map[ids.ID]FractionalIndex{}
	for k, c := range window {
		out[c.ID] = spaced[k]
	}
	return out
}
