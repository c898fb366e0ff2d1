package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/oplog"
	"github.com/loro-dev/loro/tree"
)

// TreeHandle is a reference to a Tree container.
type TreeHandle struct {
	d  *Doc
	id container.ID
}

func (h *TreeHandle) ID() container.ID { return h.id }

func treeOpParent(parentKind tree.ParentKind, parent ids.ID) (oplog.TreeParentKind, ids.ID) {
	switch parentKind {
	case tree.ParentNode:
		return oplog.TreeParentNode, parent
	case tree.ParentDeleted:
		return oplog.TreeParentDeleted, ids.ID{}
	default:
		return oplog.TreeParentRoot, ids.ID{}
	}
}

// CreateNode creates a new node under parentKind/parent at fractional
// position fi (use tree.FractionalIndexForUserPos to compute fi from a
// desired sibling index).
func (h *TreeHandle) CreateNode(parentKind tree.ParentKind, parent ids.ID, fi tree.FractionalIndex) (ids.ID, error) {
	e, err := h.d.entry(h.id)
	if err != nil {
		return ids.ID{}, err
	}
	id := h.d.nextLocalID(1)
	target := id.ID()
	e.tr.Create(target, parentKind, parent, fi, id)
	opKind, opParent := treeOpParent(parentKind, parent)
	h.d.pushOp(oplog.Op{
		Container:     h.id,
		Kind:          oplog.OpTreeCreate,
		Counter:       id.Counter,
		Len:           1,
		Target:        target,
		ParentKind:    opKind,
		Parent:        opParent,
		FractionalIdx: string(fi),
	})
	return target, nil
}

// Move relocates target to a new parent/position. It fails with
// tree.ErrWouldCycle or tree.ErrNoSuchParent for an invalid local move,
// exactly as tree.Tree.LocalMove does.
func (h *TreeHandle) Move(target ids.ID, parentKind tree.ParentKind, parent ids.ID, fi tree.FractionalIndex) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	id := h.d.nextLocalID(1)
	if err := e.tr.LocalMove(target, parentKind, parent, fi, id); err != nil {
		return err
	}
	opKind, opParent := treeOpParent(parentKind, parent)
	h.d.pushOp(oplog.Op{
		Container:     h.id,
		Kind:          oplog.OpTreeMove,
		Counter:       id.Counter,
		Len:           1,
		Target:        target,
		ParentKind:    opKind,
		Parent:        opParent,
		FractionalIdx: string(fi),
	})
	return nil
}

// Delete moves target to the Deleted parent.
func (h *TreeHandle) Delete(target ids.ID) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	id := h.d.nextLocalID(1)
	if err := e.tr.Delete(target, id, true); err != nil {
		return err
	}
	h.d.pushOp(oplog.Op{
		Container:  h.id,
		Kind:       oplog.OpTreeDelete,
		Counter:    id.Counter,
		Len:        1,
		Target:     target,
		ParentKind: oplog.TreeParentDeleted,
	})
	return nil
}

// Children returns the live children of parentKind/parent, ordered by
// fractional index.
func (h *TreeHandle) Children(parentKind tree.ParentKind, parent ids.ID) []*tree.Node {
	e, err := h.d.entry(h.id)
	if err != nil {
		return nil
	}
	return e.tr.Children(parentKind, parent)
}

// Node returns the current state of the node named by id.
func (h *TreeHandle) Node(id ids.ID) *tree.Node {
	e, err := h.d.entry(h.id)
	if err != nil {
		return nil
	}
	return e.tr.Node(id)
}
