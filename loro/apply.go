package loro

import (
	"github.com/loro-dev/loro/codec"
	"github.com/loro-dev/loro/diff"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/oplog"
	"github.com/loro-dev/loro/richtext"
	"github.com/loro-dev/loro/tree"
)

// ImportResult is the success/pending outcome of Import.
type ImportResult struct {
	Success bool
	Pending ids.Frontiers
}

// decodeImportBlocks accepts either an update blob or a snapshot blob (any
// ExportMode Export can produce): a snapshot's oplog_bytes section is itself
// a complete FastUpdates envelope (see Export), so importing one just means
// unwrapping one extra layer before decoding the same way.
func decodeImportBlocks(data []byte) ([][]*oplog.Change, error) {
	mode, _, err := codec.ReadEnvelope(data)
	if err != nil {
		return nil, err
	}
	if mode == codec.ModeFastSnapshot {
		oplogBytes, _, _, err := codec.ReadFastSnapshot(data)
		if err != nil {
			return nil, err
		}
		return codec.DecodeFastUpdates(oplogBytes)
	}
	return codec.DecodeFastUpdates(data)
}

// Import decodes a FastUpdates blob, merges its changes into the OpLog, and
// replays every newly-applied change's ops onto live container state in
// causal order. DocState is a replayable cache of the OpLog, never a
// second source of truth.
func (d *Doc) Import(data []byte) (ImportResult, error) {
	if d.tx.Pending() > 0 {
		if _, err := d.commit(false, CommitOptions{}); err != nil {
			return ImportResult{}, err
		}
	}
	blocks, err := decodeImportBlocks(data)
	if err != nil {
		return ImportResult{}, err
	}
	var changes []*oplog.Change
	for _, b := range blocks {
		changes = append(changes, b...)
	}

	fromVV := d.ol.VersionVector()
	pending, err := d.ol.Import(changes)
	if err != nil {
		return ImportResult{}, err
	}
	toVV := d.ol.VersionVector()

	for _, c := range d.ol.IterInCausalOrder(fromVV, toVV) {
		d.applyChange(c)
		d.noteChangeObserved(c)
	}

	d.queueEvent(d.dif.Diff(fromVV, toVV, diff.CauseImport))
	d.flushEvents()
	return ImportResult{Success: true, Pending: pending}, nil
}

// applyChange replays one change's ops onto their containers' live state.
// Ops within a change are replayed in emission order, which matters for
// OpTextMarkEnd: it carries no key/value of its own and must find its
// paired Start already recorded in the Text's anchor table.
func (d *Doc) applyChange(c *oplog.Change) {
	for _, op := range c.Ops {
		d.applyRemoteOp(c, op)
	}
}

func deleteRun(del func(id ids.ID, n int32), startID ids.ID, n int32, reversed bool) {
	if n < 0 {
		n, reversed = -n, true
	}
	if !reversed {
		del(startID, n)
		return
	}
	for i := int32(0); i < n; i++ {
		del(startID.Inc(n-1-i), 1)
	}
}

func (d *Doc) applyRemoteOp(c *oplog.Change, op oplog.Op) {
	if op.Container.IsRoot {
		if _, ok := d.roots[op.Container.Name]; !ok {
			d.roots[op.Container.Name] = op.Container
		}
	}
	e := d.getOrCreateNormal(op.Container)
	atomID := ids.ID{Peer: c.ID.Peer, Counter: op.Counter}
	idFull := ids.IdFull{Peer: c.ID.Peer, Counter: op.Counter, Lamport: c.LamportOf(atomID)}

	switch op.Kind {
	case oplog.OpMapSet:
		if op.IsDelete {
			e.m.Delete(op.Key, idFull.IdLp())
		} else {
			e.m.Set(op.Key, op.Value, idFull.IdLp())
		}
	case oplog.OpListInsert:
		e.l.InsertRemote(idFull, op.OriginLeft, op.OriginRight, op.Insert)
	case oplog.OpListDelete:
		deleteRun(func(id ids.ID, n int32) { e.l.Delete(id, n) }, op.DeleteStartID, op.DeleteLen, op.Reversed)
	case oplog.OpTextInsert:
		e.tx.InsertTextRemote(idFull, op.OriginLeft, op.OriginRight, op.Text)
	case oplog.OpTextDelete:
		deleteRun(func(id ids.ID, n int32) { e.tx.DeleteText(id, n) }, op.DeleteStartID, op.DeleteLen, op.Reversed)
	case oplog.OpTextMarkStart:
		info := richtext.AnchorInfo{
			Kind:     richtext.AnchorStart,
			Key:      op.MarkKey,
			Value:    op.MarkValue,
			Expand:   expandFromMarkInfo(op.MarkInfo),
			IsUnmark: op.MarkIsDelete,
			PairID:   atomID.Inc(1),
		}
		e.tx.MarkRemote(idFull, op.OriginLeft, op.OriginRight, info)
	case oplog.OpTextMarkEnd:
		startID := atomID.Inc(-1)
		startInfo, _ := e.tx.AnchorAt(startID)
		info := richtext.AnchorInfo{
			Kind:     richtext.AnchorEnd,
			Key:      startInfo.Key,
			Value:    startInfo.Value,
			Expand:   startInfo.Expand,
			IsUnmark: op.MarkIsDelete,
			PairID:   startID,
		}
		e.tx.MarkRemote(idFull, op.OriginLeft, op.OriginRight, info)
	case oplog.OpMovableListInsert:
		e.ml.InsertRemote(idFull, op.OriginLeft, op.OriginRight, op.Insert)
	case oplog.OpMovableListDelete:
		deleteRun(func(id ids.ID, n int32) { e.ml.Delete(id, n) }, op.DeleteStartID, op.DeleteLen, op.Reversed)
	case oplog.OpMovableListMove:
		e.ml.Move(op.MoveFromItemID, int(op.Pos), idFull, op.ElemID, idFull.IdLp())
	case oplog.OpMovableListSet:
		e.ml.Set(op.ElemID, op.Value, idFull.IdLp())
	case oplog.OpTreeCreate, oplog.OpTreeMove:
		e.tr.RemoteMove(op.Target, treeParentKind(op.ParentKind), op.Parent, tree.FractionalIndex(op.FractionalIdx), idFull)
	case oplog.OpTreeDelete:
		e.tr.RemoteMove(op.Target, tree.ParentDeleted, ids.ID{}, "", idFull)
	case oplog.OpCounterInc:
		e.c.Apply(op.Delta)
	}
}

func treeParentKind(k oplog.TreeParentKind) tree.ParentKind {
	switch k {
	case oplog.TreeParentNode:
		return tree.ParentNode
	case oplog.TreeParentDeleted:
		return tree.ParentDeleted
	default:
		return tree.ParentRoot
	}
}
