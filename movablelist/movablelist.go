// Package movablelist implements the two-layer Movable-List CRDT: a Fugue
// item sequence built on package sequence, plus an element table that
// tracks each element's LWW position/value winner independent of the item
// that currently represents it.
package movablelist

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/sequence"
)

// Element is one movable-list value's stable identity, independent of which
// item (if any) currently represents its position.
type Element struct {
	ElemID    ids.IdLp
	PosID     ids.IdLp
	ValueID   ids.IdLp
	Value     container.Value
	PointedBy *ids.ID // item id currently representing this element; nil = invisible
}

// List is a Movable-List container's full CRDT state.
type List struct {
	items    *sequence.Rope // OpaqueContent atoms, one per ListItem
	byElem   map[ids.IdLp]*Element
	itemElem map[ids.ID]ids.IdLp // item atom id -> the element it points to, when any
}

// New returns an empty Movable-List.
func New() *List {
	return &List{
		items:    sequence.NewRope(),
		byElem:   map[ids.IdLp]*Element{},
		itemElem: map[ids.ID]ids.IdLp{},
	}
}

// OpIndexLen is the ForOp count: every list-item regardless of visibility.
func (l *List) OpIndexLen() int { return l.items.ActiveLen() }

// UserIndexLen is the ForUser count: elements currently pointed_by some
// item.
func (l *List) UserIndexLen() int {
	n := 0
	for _, e := range l.byElem {
		if e.PointedBy != nil {
			n++
		}
	}
	return n
}

// UserIndexToOpIndex converts a User-index position to the corresponding
// Op-index position by walking activated items in order and counting only
// those whose element is visible. Every public entry point takes or
// returns user-index positions and converts at the boundary, never mixing
// the two index spaces internally.
func (l *List) UserIndexToOpIndex(userPos int) int {
	seen := 0
	for opIdx, id := range l.items.ActiveIDs() {
		if elem, ok := l.elementForItem(id); ok && elem.PointedBy != nil && *elem.PointedBy == id {
			if seen == userPos {
				return opIdx
			}
			seen++
		}
	}
	return l.items.ActiveLen()
}

// ItemIDAtOpIndex returns the item atom id at op-index position opPos.
func (l *List) ItemIDAtOpIndex(opPos int) (ids.ID, bool) {
	return l.items.IDAtActivePos(opPos)
}

// ElementAndItemAt returns the element id and its current pointing item id
// at user-visible position userPos, for callers (e.g. a Move handle) that
// need both to build a Move op.
func (l *List) ElementAndItemAt(userPos int) (elemLp ids.IdLp, itemID ids.ID, ok bool) {
	seen := 0
	for _, id := range l.items.ActiveIDs() {
		if elem, ok := l.elementForItem(id); ok && elem.PointedBy != nil && *elem.PointedBy == id {
			if seen == userPos {
				return elem.ElemID, id, true
			}
			seen++
		}
	}
	return ids.IdLp{}, ids.ID{}, false
}

// ValueAt returns the value at user-visible position userPos.
func (l *List) ValueAt(userPos int) (container.Value, bool) {
	seen := 0
	for _, id := range l.items.ActiveIDs() {
		if elem, ok := l.elementForItem(id); ok && elem.PointedBy != nil && *elem.PointedBy == id {
			if seen == userPos {
				return elem.Value, true
			}
			seen++
		}
	}
	return container.Value{}, false
}

func (l *List) elementForItem(itemID ids.ID) (*Element, bool) {
	lp, ok := l.itemElem[itemID]
	if !ok {
		return nil, false
	}
	e, ok := l.byElem[lp]
	return e, ok
}

// InsertLocal is the local-op entry point: it lets the underlying Fugue rope
// compute origin_left/origin_right from the active position, then performs
// the same element-table bookkeeping as Insert.
func (l *List) InsertLocal(userPos int, id ids.IdFull, values []container.Value) (opPos int, originLeft, originRight *ids.ID) {
	opPos = l.UserIndexToOpIndex(userPos)
	originLeft, originRight = l.items.InsertLocal(opPos, id, sequence.OpaqueContent(len(values)))
	for i, v := range values {
		itemID := id.ID().Inc(int32(i))
		elemLp := ids.IdLp{Lamport: id.Lamport + ids.Lamport(i), Peer: id.Peer}
		l.byElem[elemLp] = &Element{ElemID: elemLp, PosID: elemLp, ValueID: elemLp, Value: v, PointedBy: &itemID}
		l.itemElem[itemID] = elemLp
	}
	return opPos, originLeft, originRight
}

// InsertRemote integrates a remote Insert whose origins are already known.
func (l *List) InsertRemote(id ids.IdFull, originLeft, originRight *ids.ID, values []container.Value) {
	l.items.InsertRemote(id, originLeft, originRight, sequence.OpaqueContent(len(values)), false)
	for i, v := range values {
		itemID := id.ID().Inc(int32(i))
		elemLp := ids.IdLp{Lamport: id.Lamport + ids.Lamport(i), Peer: id.Peer}
		l.byElem[elemLp] = &Element{ElemID: elemLp, PosID: elemLp, ValueID: elemLp, Value: v, PointedBy: &itemID}
		l.itemElem[itemID] = elemLp
	}
}

// Delete removes the item at startID (and n-1 following), dropping each
// deleted item's element if it was the one currently pointing to it.
func (l *List) Delete(startID ids.ID, n int32) {
	for i := int32(0); i < n; i++ {
		itemID := startID.Inc(i)
		if elem, ok := l.elementForItem(itemID); ok && elem.PointedBy != nil && *elem.PointedBy == itemID {
			elem.PointedBy = nil
		}
	}
	l.items.DeleteRange(startID, n)
}

// Move deletes the item at fromItemID (which must currently point to
// elemLp) and then inserts a new item at toOpPos, counted after that
// delete; if the move's IdLp exceeds the
// element's current pos_id, the new item becomes the element's visible
// position, otherwise the new item stays invisible and the old mapping
// holds.
func (l *List) Move(fromItemID ids.ID, toOpPos int, newItemID ids.IdFull, elemLp ids.IdLp, moveIdLp ids.IdLp) (originLeft, originRight *ids.ID, ok bool) {
	elem, ok := l.byElem[elemLp]
	if !ok {
		return nil, nil, false
	}

	l.items.DeleteRange(fromItemID, 1)
	if elem.PointedBy != nil && *elem.PointedBy == fromItemID {
		elem.PointedBy = nil
	}

	originLeft, originRight = l.items.InsertLocal(toOpPos, newItemID, sequence.OpaqueContent(1))
	newItem := newItemID.ID()

	if moveIdLp.Less(elem.PosID) {
		// This move lost the LWW race: the new item stays invisible, the
		// old mapping (now dangling, since fromItemID is deleted) is not
		// restored. Keeping the old mapping means the element's pos_id
		// bookkeeping is unchanged, not that the deleted item is
		// resurrected.
		return originLeft, originRight, true
	}
	elem.PosID = moveIdLp
	elem.PointedBy = &newItem
	l.itemElem[newItem] = elemLp
	return originLeft, originRight, true
}

// Set updates elemLp's value if idlp exceeds its current value_id.
func (l *List) Set(elemLp ids.IdLp, value container.Value, idlp ids.IdLp) {
	elem, ok := l.byElem[elemLp]
	if !ok {
		return
	}
	if idlp.Less(elem.ValueID) {
		return
	}
	elem.Value = value
	elem.ValueID = idlp
}

// Snapshot returns the list's values in user-visible order.
func (l *List) Snapshot() []container.Value {
	var out []container.Value
	for _, itemID := range l.items.ActiveIDs() {
		if elem, ok := l.elementForItem(itemID); ok && elem.PointedBy != nil && *elem.PointedBy == itemID {
			out = append(out, elem.Value)
		}
	}
	return out
}
