package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/oplog"
)

// MovableListHandle is a reference to a MovableList container.
type MovableListHandle struct {
	d  *Doc
	id container.ID
}

func (h *MovableListHandle) ID() container.ID { return h.id }

// Insert inserts vals starting at user-visible position pos.
func (h *MovableListHandle) Insert(pos int, vals ...container.Value) error {
	if !h.d.cfg.MovableListFractionalIndexEnabled {
		return ErrFractionalIndexDisabled
	}
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	id := h.d.nextLocalID(int32(len(vals)))
	opPos, originLeft, originRight := e.ml.InsertLocal(pos, id, vals)
	h.d.pushOp(oplog.Op{
		Container:   h.id,
		Kind:        oplog.OpMovableListInsert,
		Counter:     id.Counter,
		Len:         int32(len(vals)),
		Pos:         int32(opPos),
		Insert:      vals,
		OriginLeft:  originLeft,
		OriginRight: originRight,
	})
	return nil
}

// Delete removes n values starting at user-visible position pos.
func (h *MovableListHandle) Delete(pos, n int) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	opPos := e.ml.UserIndexToOpIndex(pos)
	startID, ok := e.ml.ItemIDAtOpIndex(opPos)
	if !ok {
		return ErrUnknownContainer
	}
	id := h.d.nextLocalID(int32(n))
	e.ml.Delete(startID, int32(n))
	h.d.pushOp(oplog.Op{
		Container:     h.id,
		Kind:          oplog.OpMovableListDelete,
		Counter:       id.Counter,
		Len:           int32(n),
		DeleteStartID: startID,
		DeleteLen:     int32(n),
	})
	return nil
}

// Move relocates the value at fromUserPos to toUserPos.
func (h *MovableListHandle) Move(fromUserPos, toUserPos int) error {
	if !h.d.cfg.MovableListFractionalIndexEnabled {
		return ErrFractionalIndexDisabled
	}
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	elemLp, fromItemID, ok := e.ml.ElementAndItemAt(fromUserPos)
	if !ok {
		return ErrUnknownContainer
	}
	toOpPos := e.ml.UserIndexToOpIndex(toUserPos)
	id := h.d.nextLocalID(1)
	originLeft, originRight, ok := e.ml.Move(fromItemID, toOpPos, id, elemLp, id.IdLp())
	if !ok {
		return ErrUnknownContainer
	}
	h.d.pushOp(oplog.Op{
		Container:      h.id,
		Kind:           oplog.OpMovableListMove,
		Counter:        id.Counter,
		Len:            1,
		Pos:            int32(toOpPos),
		FromPos:        int32(fromUserPos),
		MoveFromItemID: fromItemID,
		ElemID:         elemLp,
		OriginLeft:     originLeft,
		OriginRight:    originRight,
	})
	return nil
}

// Set overwrites the value at user-visible position pos.
func (h *MovableListHandle) Set(pos int, value container.Value) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	elemLp, _, ok := e.ml.ElementAndItemAt(pos)
	if !ok {
		return ErrUnknownContainer
	}
	id := h.d.nextLocalID(1)
	e.ml.Set(elemLp, value, id.IdLp())
	h.d.pushOp(oplog.Op{
		Container: h.id,
		Kind:      oplog.OpMovableListSet,
		Counter:   id.Counter,
		Len:       1,
		ElemID:    elemLp,
		Value:     value,
	})
	return nil
}

// Get returns the value at user-visible position pos.
func (h *MovableListHandle) Get(pos int) (container.Value, bool) {
	e, err := h.d.entry(h.id)
	if err != nil {
		return container.Value{}, false
	}
	return e.ml.ValueAt(pos)
}

// Len returns the count of user-visible (pointed-by) elements.
func (h *MovableListHandle) Len() int {
	e, err := h.d.entry(h.id)
	if err != nil {
		return 0
	}
	return e.ml.UserIndexLen()
}

// Snapshot returns the list's values in user-visible order.
func (h *MovableListHandle) Snapshot() []container.Value {
	e, err := h.d.entry(h.id)
	if err != nil {
		return nil
	}
	return e.ml.Snapshot()
}
