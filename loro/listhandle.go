package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/oplog"
)

// ListHandle is a reference to a plain (non-movable) List container.
type ListHandle struct {
	d  *Doc
	id container.ID
}

func (h *ListHandle) ID() container.ID { return h.id }

// Insert inserts vals starting at user-visible position pos.
func (h *ListHandle) Insert(pos int, vals ...container.Value) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	id := h.d.nextLocalID(int32(len(vals)))
	originLeft, originRight := e.l.InsertLocal(pos, id, vals)
	h.d.pushOp(oplog.Op{
		Container:   h.id,
		Kind:        oplog.OpListInsert,
		Counter:     id.Counter,
		Len:         int32(len(vals)),
		Pos:         int32(pos),
		Insert:      vals,
		OriginLeft:  originLeft,
		OriginRight: originRight,
	})
	return nil
}

// Delete removes n values starting at user-visible position pos.
func (h *ListHandle) Delete(pos, n int) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	startID, ok := e.l.IDAt(pos)
	if !ok {
		return ErrUnknownContainer
	}
	id := h.d.nextLocalID(int32(n))
	e.l.Delete(startID, int32(n))
	h.d.pushOp(oplog.Op{
		Container:     h.id,
		Kind:          oplog.OpListDelete,
		Counter:       id.Counter,
		Len:           int32(n),
		DeleteStartID: startID,
		DeleteLen:     int32(n),
	})
	return nil
}

// Get returns the value at user-visible position pos.
func (h *ListHandle) Get(pos int) (container.Value, bool) {
	e, err := h.d.entry(h.id)
	if err != nil {
		return container.Value{}, false
	}
	return e.l.Get(pos)
}

// Len returns the count of active (non-deleted) values.
func (h *ListHandle) Len() int {
	e, err := h.d.entry(h.id)
	if err != nil {
		return 0
	}
	return e.l.Len()
}

// Snapshot returns the list's values in order.
func (h *ListHandle) Snapshot() []container.Value {
	e, err := h.d.entry(h.id)
	if err != nil {
		return nil
	}
	return e.l.Snapshot()
}
