package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/sequence"
)

// list is the plain (non-movable) List container's CRDT state: a Fugue rope
// of OpaqueContent item markers, same as the item layer of MovableList, plus
// a side table mapping each atom id to its value. Unlike MovableList, a
// plain List atom's id IS its stable identity — there is no separate
// element/LWW-move layer, so insert/delete are the rope's own operations.
type list struct {
	rope   *sequence.Rope
	values map[ids.ID]container.Value
}

func newList() *list {
	return &list{rope: sequence.NewRope(), values: map[ids.ID]container.Value{}}
}

func (l *list) InsertLocal(pos int, id ids.IdFull, vals []container.Value) (originLeft, originRight *ids.ID) {
	originLeft, originRight = l.rope.InsertLocal(pos, id, sequence.OpaqueContent(len(vals)))
	l.recordValues(id, vals)
	return originLeft, originRight
}

func (l *list) InsertRemote(id ids.IdFull, originLeft, originRight *ids.ID, vals []container.Value) {
	l.rope.InsertRemote(id, originLeft, originRight, sequence.OpaqueContent(len(vals)), false)
	l.recordValues(id, vals)
}

func (l *list) recordValues(id ids.IdFull, vals []container.Value) {
	for i, v := range vals {
		l.values[id.ID().Inc(int32(i))] = v
	}
}

func (l *list) Delete(startID ids.ID, n int32) {
	l.rope.DeleteRange(startID, n)
}

func (l *list) Len() int { return l.rope.ActiveLen() }

func (l *list) IDAt(pos int) (ids.ID, bool) { return l.rope.IDAtActivePos(pos) }

func (l *list) Get(pos int) (container.Value, bool) {
	id, ok := l.rope.IDAtActivePos(pos)
	if !ok {
		return container.Value{}, false
	}
	v, ok := l.values[id]
	return v, ok
}

// Snapshot returns the list's values in active rope order.
func (l *list) Snapshot() []container.Value {
	active := l.rope.ActiveIDs()
	out := make([]container.Value, 0, len(active))
	for _, id := range active {
		out = append(out, l.values[id])
	}
	return out
}
