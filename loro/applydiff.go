package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/diff"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/oplog"
	"github.com/loro-dev/loro/tree"
)

// Diff computes the structured change between two frontiers, suitable for
// replaying elsewhere via ApplyDiff.
func (d *Doc) Diff(from, to ids.Frontiers) *diff.EventBatch {
	return d.dif.Diff(d.ol.FrontiersToVV(from), d.ol.FrontiersToVV(to), diff.CauseCheckout)
}

// ApplyDiff replays a previously computed EventBatch onto this document's
// current state as local mutations, e.g. to carry a remote diff into a copy
// that already has the "from" side of the batch applied.
func (d *Doc) ApplyDiff(batch *diff.EventBatch) error {
	for _, cd := range batch.Diffs {
		if err := d.applyContainerDiff(cd); err != nil {
			return err
		}
	}
	return nil
}

func (d *Doc) applyContainerDiff(cd diff.ContainerDiff) error {
	if cd.Container.IsRoot {
		if _, ok := d.roots[cd.Container.Name]; !ok {
			d.roots[cd.Container.Name] = cd.Container
		}
	}
	d.getOrCreateNormal(cd.Container)

	switch cd.Kind {
	case container.KindMap:
		return d.applyMapDiff(cd)
	case container.KindList:
		return d.applyListLikeDiff(&ListHandle{d: d, id: cd.Container}, cd.ListOps)
	case container.KindMovableList:
		// diff.ContainerDiff's ListOps encoding for MovableList is ambiguous:
		// a Move is {Retain: fromPos} (destination lost) and a Set is
		// {Insert: [value]} (indistinguishable from a real one-element
		// Insert at the running retain cursor). Replaying it here would
		// risk inserting a duplicate element instead of updating one in
		// place, so MovableList diffs are not replayed; see DESIGN.md.
		return nil
	case container.KindText:
		return d.applyTextDiff(cd)
	case container.KindTree:
		return d.applyTreeDiff(cd)
	case container.KindCounter:
		if cd.CounterSum == 0 {
			return nil
		}
		return (&CounterHandle{d: d, id: cd.Container}).Increment(cd.CounterSum)
	}
	return nil
}

func (d *Doc) applyMapDiff(cd diff.ContainerDiff) error {
	if cd.MapOps == nil {
		return nil
	}
	h := &MapHandle{d: d, id: cd.Container}
	for k, v := range cd.MapOps.Set {
		if err := h.Set(k, v); err != nil {
			return err
		}
	}
	for k := range cd.MapOps.Deleted {
		if err := h.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// applyListLikeDiff replays a ListDiffOp sequence's Retain/Insert/Delete
// entries as ListHandle calls. A plain List's diff only ever contains these
// three op shapes (it has no Move/Set), so the replay is unambiguous.
func (d *Doc) applyListLikeDiff(list *ListHandle, ops []diff.ListDiffOp) error {
	pos := 0
	for _, op := range ops {
		pos += op.Retain
		if op.Delete > 0 {
			if err := list.Delete(pos, op.Delete); err != nil {
				return err
			}
		}
		if len(op.Insert) > 0 {
			if err := list.Insert(pos, op.Insert...); err != nil {
				return err
			}
			pos += len(op.Insert)
		}
	}
	return nil
}

func (d *Doc) applyTextDiff(cd diff.ContainerDiff) error {
	h := &TextHandle{d: d, id: cd.Container}
	pos := 0
	for _, op := range cd.TextOps {
		pos += op.Retain
		if op.Delete > 0 {
			if err := h.Delete(pos, op.Delete); err != nil {
				return err
			}
		}
		if op.Insert != "" {
			if err := h.Insert(pos, op.Insert); err != nil {
				return err
			}
			pos += len([]rune(op.Insert))
		}
	}
	return nil
}

// applyTreeDiff replays tree diff records, preserving the original node
// identity (top.Target) rather than minting a fresh one the way
// TreeHandle.CreateNode does, since the replay must reproduce the exact
// same tree shape the diff was computed from.
func (d *Doc) applyTreeDiff(cd diff.ContainerDiff) error {
	e := d.getOrCreateNormal(cd.Container)
	for _, top := range cd.TreeOps {
		id := d.nextLocalID(1)
		switch top.Kind {
		case diff.TreeDiffCreate, diff.TreeDiffMove:
			pk := treeParentKind(top.ParentKind)
			e.tr.RemoteMove(top.Target, pk, top.Parent, tree.FractionalIndex(top.FractionalIdx), id)
			opKind := oplog.OpTreeMove
			if top.Kind == diff.TreeDiffCreate {
				opKind = oplog.OpTreeCreate
			}
			d.pushOp(oplog.Op{
				Container:     cd.Container,
				Kind:          opKind,
				Counter:       id.Counter,
				Len:           1,
				Target:        top.Target,
				ParentKind:    top.ParentKind,
				Parent:        top.Parent,
				FractionalIdx: top.FractionalIdx,
			})
		case diff.TreeDiffDelete:
			e.tr.RemoteMove(top.Target, tree.ParentDeleted, ids.ID{}, "", id)
			d.pushOp(oplog.Op{
				Container:  cd.Container,
				Kind:       oplog.OpTreeDelete,
				Counter:    id.Counter,
				Len:        1,
				Target:     top.Target,
				ParentKind: oplog.TreeParentDeleted,
			})
		}
	}
	return nil
}
