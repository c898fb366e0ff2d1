// FastUpdates (mode = 4): a stream of per-peer, causally contiguous blocks,
// each laid out as a handful of length-prefixed columnar arenas so repeated
// structure (container refs, keys, positions) compresses independently of
// the ops that reference it.
package codec

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/oplog"
)

// EncodeFastUpdates frames changes (grouped by peer, each group causally
// contiguous) as a mode=4 envelope.
func EncodeFastUpdates(blocks [][]*oplog.Change) []byte {
	var body []byte
	for _, b := range blocks {
		if len(b) == 0 {
			continue
		}
		blk := EncodeBlock(b)
		body = PutBytes(body, blk)
	}
	return WriteEnvelope(ModeFastUpdates, body)
}

// DecodeFastUpdates reads a mode=4 envelope back into its per-peer blocks.
func DecodeFastUpdates(data []byte) ([][]*oplog.Change, error) {
	mode, body, err := ReadEnvelope(data)
	if err != nil {
		return nil, err
	}
	if mode != ModeFastUpdates {
		log.Debugf("DecodeFastUpdates: envelope mode %d, want %d", mode, ModeFastUpdates)
		return nil, ErrCorrupted
	}
	var blocks [][]*oplog.Change
	off := 0
	for off < len(body) {
		blk, w, ok := GetBytes(body[off:])
		if !ok {
			log.Debugf("DecodeFastUpdates: truncated block length prefix at offset %d", off)
			return nil, ErrCorrupted
		}
		off += w
		changes, err := DecodeBlock(blk)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, changes)
	}
	log.Debugf("DecodeFastUpdates: decoded %d block(s)", len(blocks))
	return blocks, nil
}

// EncodeBlock encodes one peer's causally contiguous run of changes as a
// single block_bytes.
func EncodeBlock(changes []*oplog.Change) []byte {
	peer := changes[0].ID.Peer
	counterStart := changes[0].ID.Counter
	lamportStart := changes[0].Lamport
	last := changes[len(changes)-1]
	lamportLen := int32(last.LamportLast()) + 1 - int32(lamportStart)
	var counterLen int32

	peers := newPeerArena()
	peers.add(peer)
	keys := newStringArena()
	containers := newContainerArena()
	positions := &positionArena{}

	var containerIdxs, props, valueTypes, lens, kinds, flags []int64
	var delPeerIdx, delCounter, delLen []int64
	var olPresent, olPeerIdx, olCounter []int64
	var orPresent, orPeerIdx, orCounter []int64
	var values []byte

	atomLens := make([]int64, len(changes))
	depOnSelf := make([]bool, len(changes))
	otherDepCounts := make([]int64, len(changes))
	var otherDepPeerIdx, otherDepCounters []int64
	timestamps := make([]int64, len(changes))
	msgLens := make([]int64, len(changes))
	var msgBytes []byte
	lamportStarts := make([]int64, len(changes))

	for ci, c := range changes {
		atomLens[ci] = int64(c.AtomLen)
		counterLen += c.AtomLen
		timestamps[ci] = c.Timestamp
		msgLens[ci] = int64(len(c.Message))
		msgBytes = append(msgBytes, c.Message...)
		lamportStarts[ci] = int64(c.Lamport)

		selfDepID := ids.ID{Peer: peer, Counter: c.ID.Counter - 1}
		var other int64
		for _, dep := range c.Deps {
			if dep.Peer == peer && dep.Counter == selfDepID.Counter && c.ID.Counter > 0 {
				depOnSelf[ci] = true
				continue
			}
			other++
			otherDepPeerIdx = append(otherDepPeerIdx, int64(peers.add(dep.Peer)))
			otherDepCounters = append(otherDepCounters, int64(dep.Counter))
		}
		otherDepCounts[ci] = other

		for _, op := range c.Ops {
			cIdx := containers.add(op.Container, keys)
			containerIdxs = append(containerIdxs, int64(cIdx))
			kinds = append(kinds, int64(op.Kind))
			lens = append(lens, int64(op.Len))

			var flag int64
			if op.IsDelete || op.MarkIsDelete || op.Reversed {
				flag = 1
			}
			flags = append(flags, flag)

			switch op.Kind {
			case oplog.OpMapSet:
				props = append(props, int64(keys.add(op.Key)))
				if op.IsDelete {
					valueTypes = append(valueTypes, int64(tagNull))
				} else {
					valueTypes = append(valueTypes, int64(valueTag(op.Value)))
					values = EncodeValue(values, op.Value)
				}
			case oplog.OpListInsert, oplog.OpMovableListInsert:
				props = append(props, int64(op.Pos))
				valueTypes = append(valueTypes, int64(tagLoroValue))
				for _, v := range op.Insert {
					values = EncodeValue(values, v)
				}
			case oplog.OpTextInsert:
				props = append(props, int64(op.Pos))
				valueTypes = append(valueTypes, int64(tagStr))
				values = EncodeValue(values, container.Value{Kind: container.ValueStr, Str: op.Text})
			case oplog.OpListDelete, oplog.OpMovableListDelete, oplog.OpTextDelete:
				props = append(props, 0)
				valueTypes = append(valueTypes, int64(tagDeleteSeq))
				delPeerIdx = append(delPeerIdx, int64(peers.add(op.DeleteStartID.Peer)))
				delCounter = append(delCounter, int64(op.DeleteStartID.Counter))
				delLen = append(delLen, int64(op.DeleteLen))
			case oplog.OpTextMarkStart:
				props = append(props, int64(op.Pos))
				valueTypes = append(valueTypes, int64(tagMarkStart))
				values = append(values, op.MarkInfo)
				values = PutUvarint(values, uint64(op.Len))
				values = PutUvarint(values, uint64(keys.add(op.MarkKey)))
				values = EncodeValue(values, op.MarkValue)
			case oplog.OpTextMarkEnd:
				props = append(props, 0)
				valueTypes = append(valueTypes, int64(tagNull))
			case oplog.OpMovableListMove:
				props = append(props, int64(op.Pos))
				valueTypes = append(valueTypes, int64(tagListMove))
				values = PutUvarint(values, uint64(uint32(op.FromPos)))
				values = PutUvarint(values, uint64(peers.add(op.MoveFromItemID.Peer)))
				values = PutUvarint(values, uint64(op.MoveFromItemID.Counter))
				values = PutUvarint(values, uint64(peers.add(op.ElemID.Peer)))
				values = PutUvarint(values, uint64(op.ElemID.Lamport))
			case oplog.OpMovableListSet:
				props = append(props, 0)
				valueTypes = append(valueTypes, int64(tagListSet))
				values = PutUvarint(values, uint64(peers.add(op.ElemID.Peer)))
				values = PutUvarint(values, uint64(op.ElemID.Lamport))
				values = EncodeValue(values, op.Value)
			case oplog.OpTreeCreate, oplog.OpTreeMove:
				props = append(props, 0)
				valueTypes = append(valueTypes, int64(tagTreeMove))
				values = PutUvarint(values, uint64(peers.add(op.Target.Peer)))
				values = PutSvarint(values, int64(op.Target.Counter))
				values = append(values, byte(op.ParentKind))
				if op.ParentKind == oplog.TreeParentNode {
					values = PutUvarint(values, uint64(peers.add(op.Parent.Peer)))
					values = PutSvarint(values, int64(op.Parent.Counter))
				}
				positions.add(op.FractionalIdx)
			case oplog.OpTreeDelete:
				props = append(props, 0)
				valueTypes = append(valueTypes, int64(tagTreeMove))
				values = PutUvarint(values, uint64(peers.add(op.Target.Peer)))
				values = PutSvarint(values, int64(op.Target.Counter))
				values = append(values, byte(oplog.TreeParentDeleted))
			case oplog.OpCounterInc:
				props = append(props, 0)
				valueTypes = append(valueTypes, int64(tagI64))
				values = EncodeValue(values, container.Value{Kind: container.ValueI64, I64: op.Delta})
			}

			// Fugue placement anchors, carried for every op
			// kind whose atoms are rope spans, so a remote replica can
			// integrate via InsertRemote with the same origins the creator
			// computed rather than recomputing them from Pos.
			var olp, olpi, olc, orp, orpi, orc int64
			if op.OriginLeft != nil {
				olp = 1
				olpi = int64(peers.add(op.OriginLeft.Peer))
				olc = int64(op.OriginLeft.Counter)
			}
			if op.OriginRight != nil {
				orp = 1
				orpi = int64(peers.add(op.OriginRight.Peer))
				orc = int64(op.OriginRight.Counter)
			}
			olPresent = append(olPresent, olp)
			olPeerIdx = append(olPeerIdx, olpi)
			olCounter = append(olCounter, olc)
			orPresent = append(orPresent, orp)
			orPeerIdx = append(orPeerIdx, orpi)
			orCounter = append(orCounter, orc)
		}
	}

	// The container arena may add peers, so it is built before the peers
	// arena is written.
	cids := containers.encode(peers)

	var header []byte
	header = peers.encode(header)
	for i := 0; i < len(changes)-1; i++ {
		header = PutUvarint(header, uint64(atomLens[i]))
	}
	header = EncodeBoolRle(header, depOnSelf)
	header = EncodeRle(header, otherDepCounts)
	header = EncodeRle(header, otherDepPeerIdx)
	header = EncodeDeltaOfDelta(header, otherDepCounters)
	if len(changes) > 1 {
		header = EncodeDeltaOfDelta(header, lamportStarts[:len(changes)-1])
	} else {
		header = EncodeDeltaOfDelta(header, nil)
	}

	var changeMeta []byte
	changeMeta = EncodeDeltaOfDelta(changeMeta, timestamps)
	changeMeta = EncodeRle(changeMeta, msgLens)
	changeMeta = append(changeMeta, msgBytes...)

	keysBytes := keys.encode(nil)
	positionsBytes := positions.encode(nil)

	var ops []byte
	ops = EncodeDeltaRle(ops, containerIdxs)
	ops = EncodeDeltaRle(ops, props)
	ops = EncodeRle(ops, valueTypes)
	ops = EncodeRle(ops, lens)
	ops = EncodeRle(ops, kinds)
	ops = EncodeRle(ops, flags)

	var deleteStartIDs []byte
	deleteStartIDs = EncodeDeltaRle(deleteStartIDs, delPeerIdx)
	deleteStartIDs = EncodeDeltaRle(deleteStartIDs, delCounter)
	deleteStartIDs = EncodeDeltaRle(deleteStartIDs, delLen)

	var origins []byte
	origins = EncodeRle(origins, olPresent)
	origins = EncodeDeltaRle(origins, olPeerIdx)
	origins = EncodeDeltaRle(origins, olCounter)
	origins = EncodeRle(origins, orPresent)
	origins = EncodeDeltaRle(origins, orPeerIdx)
	origins = EncodeDeltaRle(origins, orCounter)

	var blk []byte
	blk = PutUvarint(blk, uint64(counterStart))
	blk = PutUvarint(blk, uint64(counterLen))
	blk = PutUvarint(blk, uint64(lamportStart))
	blk = PutUvarint(blk, uint64(lamportLen))
	blk = PutUvarint(blk, uint64(len(changes)))
	blk = PutBytes(blk, header)
	blk = PutBytes(blk, changeMeta)
	blk = PutBytes(blk, cids)
	blk = PutBytes(blk, keysBytes)
	blk = PutBytes(blk, positionsBytes)
	blk = PutBytes(blk, ops)
	blk = PutBytes(blk, deleteStartIDs)
	blk = PutBytes(blk, origins)
	// values is the final field: its length is implicitly "rest of blk", so
	// it's appended raw rather than length-prefixed (decode reads it as
	// blk[off:]).
	blk = append(blk, values...)
	return blk
}

func valueTag(v container.Value) uint8 {
	switch v.Kind {
	case container.ValueNull:
		return tagNull
	case container.ValueBool:
		if v.Bool {
			return tagTrue
		}
		return tagFalse
	case container.ValueI64:
		return tagI64
	case container.ValueF64:
		return tagF64
	case container.ValueStr:
		return tagStr
	case container.ValueBinary:
		return tagBinary
	case container.ValueContainer:
		return tagContainerType
	case container.ValueList, container.ValueMap:
		return tagLoroValue
	case container.ValueUnknown:
		return unknownTagBit | v.Tag
	default:
		return tagNull
	}
}

// DecodeBlock inverts EncodeBlock.
func DecodeBlock(blk []byte) ([]*oplog.Change, error) {
	off := 0
	counterStart, w := Uvarint(blk[off:])
	if w == 0 {
		return nil, ErrCorrupted
	}
	off += w
	counterLen, w := Uvarint(blk[off:])
	if w == 0 {
		return nil, ErrCorrupted
	}
	off += w
	lamportStart, w := Uvarint(blk[off:])
	if w == 0 {
		return nil, ErrCorrupted
	}
	off += w
	lamportLen, w := Uvarint(blk[off:])
	if w == 0 {
		return nil, ErrCorrupted
	}
	off += w
	nChanges, w := Uvarint(blk[off:])
	if w == 0 {
		return nil, ErrCorrupted
	}
	off += w

	header, w, ok := GetBytes(blk[off:])
	if !ok {
		return nil, ErrCorrupted
	}
	off += w
	changeMeta, w, ok := GetBytes(blk[off:])
	if !ok {
		return nil, ErrCorrupted
	}
	off += w
	cidsBytes, w, ok := GetBytes(blk[off:])
	if !ok {
		return nil, ErrCorrupted
	}
	off += w
	keysBytes, w, ok := GetBytes(blk[off:])
	if !ok {
		return nil, ErrCorrupted
	}
	off += w
	positionsBytes, w, ok := GetBytes(blk[off:])
	if !ok {
		return nil, ErrCorrupted
	}
	off += w
	opsBytes, w, ok := GetBytes(blk[off:])
	if !ok {
		return nil, ErrCorrupted
	}
	off += w
	deleteStartIDsBytes, w, ok := GetBytes(blk[off:])
	if !ok {
		return nil, ErrCorrupted
	}
	off += w
	originsBytes, w, ok := GetBytes(blk[off:])
	if !ok {
		return nil, ErrCorrupted
	}
	off += w
	values := blk[off:]

	n := int(nChanges)

	hoff := 0
	blockPeers, w, ok := decodePeerArena(header)
	if !ok || len(blockPeers) == 0 {
		return nil, ErrCorrupted
	}
	hoff += w
	peer := blockPeers[0]

	atomLens := make([]int32, n)
	var sumAtoms int32
	for i := 0; i < n-1; i++ {
		v, w := Uvarint(header[hoff:])
		if w == 0 {
			return nil, ErrCorrupted
		}
		hoff += w
		atomLens[i] = int32(v)
		sumAtoms += int32(v)
	}
	if n > 0 {
		atomLens[n-1] = int32(counterLen) - sumAtoms
	}

	depOnSelf, w, ok := DecodeBoolRle(header[hoff:])
	if !ok {
		return nil, ErrCorrupted
	}
	hoff += w
	otherDepCounts, w, ok := DecodeRle(header[hoff:])
	if !ok {
		return nil, ErrCorrupted
	}
	hoff += w
	otherDepPeerIdx, w, ok := DecodeRle(header[hoff:])
	if !ok {
		return nil, ErrCorrupted
	}
	hoff += w
	otherDepCounters, w, ok := DecodeDeltaOfDelta(header[hoff:])
	if !ok {
		return nil, ErrCorrupted
	}
	hoff += w
	lamportStartsPrefix, w, ok := DecodeDeltaOfDelta(header[hoff:])
	if !ok {
		return nil, ErrCorrupted
	}
	hoff += w

	cmOff := 0
	timestamps, w, ok := DecodeDeltaOfDelta(changeMeta[cmOff:])
	if !ok {
		return nil, ErrCorrupted
	}
	cmOff += w
	msgLens, w, ok := DecodeRle(changeMeta[cmOff:])
	if !ok {
		return nil, ErrCorrupted
	}
	cmOff += w
	msgBytes := changeMeta[cmOff:]

	keys, _, ok := decodeStringArena(keysBytes)
	if !ok {
		return nil, ErrCorrupted
	}
	containers, ok := decodeContainerArena(cidsBytes, blockPeers, keys)
	if !ok {
		return nil, ErrCorrupted
	}
	positions, _, ok := decodePositionArena(positionsBytes)
	if !ok {
		return nil, ErrCorrupted
	}

	ooff := 0
	containerIdxs, w, ok := DecodeDeltaRle(opsBytes[ooff:])
	if !ok {
		return nil, ErrCorrupted
	}
	ooff += w
	props, w, ok := DecodeDeltaRle(opsBytes[ooff:])
	if !ok {
		return nil, ErrCorrupted
	}
	ooff += w
	valueTypes, w, ok := DecodeRle(opsBytes[ooff:])
	if !ok {
		return nil, ErrCorrupted
	}
	ooff += w
	lens, w, ok := DecodeRle(opsBytes[ooff:])
	if !ok {
		return nil, ErrCorrupted
	}
	ooff += w
	kinds, w, ok := DecodeRle(opsBytes[ooff:])
	if !ok {
		return nil, ErrCorrupted
	}
	ooff += w
	flags, _, ok := DecodeRle(opsBytes[ooff:])
	if !ok {
		return nil, ErrCorrupted
	}

	doff := 0
	delPeerIdx, w, ok := DecodeDeltaRle(deleteStartIDsBytes[doff:])
	if !ok {
		return nil, ErrCorrupted
	}
	doff += w
	delCounter, w, ok := DecodeDeltaRle(deleteStartIDsBytes[doff:])
	if !ok {
		return nil, ErrCorrupted
	}
	doff += w
	delLen, _, ok := DecodeDeltaRle(deleteStartIDsBytes[doff:])
	if !ok {
		return nil, ErrCorrupted
	}

	oroff := 0
	olPresent, w, ok := DecodeRle(originsBytes[oroff:])
	if !ok {
		return nil, ErrCorrupted
	}
	oroff += w
	olPeerIdx, w, ok := DecodeDeltaRle(originsBytes[oroff:])
	if !ok {
		return nil, ErrCorrupted
	}
	oroff += w
	olCounter, w, ok := DecodeDeltaRle(originsBytes[oroff:])
	if !ok {
		return nil, ErrCorrupted
	}
	oroff += w
	orPresent, w, ok := DecodeRle(originsBytes[oroff:])
	if !ok {
		return nil, ErrCorrupted
	}
	oroff += w
	orPeerIdx, w, ok := DecodeDeltaRle(originsBytes[oroff:])
	if !ok {
		return nil, ErrCorrupted
	}
	oroff += w
	orCounter, _, ok := DecodeDeltaRle(originsBytes[oroff:])
	if !ok {
		return nil, ErrCorrupted
	}

	// Reconstruct per-change lamport starts.
	lamportStarts := make([]ids.Lamport, n)
	for i := 0; i < n-1; i++ {
		lamportStarts[i] = ids.Lamport(lamportStartsPrefix[i])
	}
	if n > 0 {
		lamportStarts[n-1] = ids.Lamport(lamportStart) + ids.Lamport(lamportLen) - ids.Lamport(atomLens[n-1])
	}

	changes := make([]*oplog.Change, n)
	counter := ids.Counter(counterStart)
	depCursor, delCursor, valOff, posCursor := 0, 0, 0, 0
	opCursor := 0
	for ci := 0; ci < n; ci++ {
		other := int(otherDepCounts[ci])
		deps := ids.Frontiers{}
		if depOnSelf[ci] {
			deps = append(deps, ids.ID{Peer: peer, Counter: counter - 1})
		}
		for k := 0; k < other; k++ {
			pIdx := otherDepPeerIdx[depCursor]
			cnt := otherDepCounters[depCursor]
			depCursor++
			deps = append(deps, ids.ID{Peer: blockPeers[pIdx], Counter: ids.Counter(cnt)})
		}

		nOpsInChange := opsInChangeCount(opCursor, int(atomLens[ci]), containerIdxs, lens, kinds)

		ops := make([]oplog.Op, 0, nOpsInChange)
		consumed := int32(0)
		for consumed < atomLens[ci] {
			cIdx := containerIdxs[opCursor]
			cid := containers[cIdx]
			kind := oplog.OpKind(kinds[opCursor])
			l := int32(lens[opCursor])
			prop := props[opCursor]
			vtype := uint8(valueTypes[opCursor])
			flag := flags[opCursor] != 0

			op := oplog.Op{Container: cid, Kind: kind, Counter: counter + ids.Counter(consumed), Len: l}
			switch kind {
			case oplog.OpMapSet:
				op.Key = keys[prop]
				if vtype == tagNull && flag {
					op.IsDelete = true
				} else {
					v, w, ok := DecodeValue(values[valOff:])
					if !ok {
						return nil, ErrCorrupted
					}
					valOff += w
					op.Value = v
				}
			case oplog.OpListInsert, oplog.OpMovableListInsert:
				op.Pos = int32(prop)
				items := make([]container.Value, l)
				for ii := range items {
					v, w, ok := DecodeValue(values[valOff:])
					if !ok {
						return nil, ErrCorrupted
					}
					valOff += w
					items[ii] = v
				}
				op.Insert = items
			case oplog.OpTextInsert:
				op.Pos = int32(prop)
				v, w, ok := DecodeValue(values[valOff:])
				if !ok || v.Kind != container.ValueStr {
					return nil, ErrCorrupted
				}
				valOff += w
				op.Text = v.Str
			case oplog.OpListDelete, oplog.OpMovableListDelete, oplog.OpTextDelete:
				op.DeleteStartID = ids.ID{Peer: blockPeers[delPeerIdx[delCursor]], Counter: ids.Counter(delCounter[delCursor])}
				op.DeleteLen = int32(delLen[delCursor])
				op.Reversed = flag
				delCursor++
			case oplog.OpTextMarkStart:
				op.Pos = int32(prop)
				op.MarkInfo = values[valOff]
				valOff++
				mlen, w := Uvarint(values[valOff:])
				valOff += w
				op.Len = int32(mlen)
				l = op.Len
				keyIdx, w := Uvarint(values[valOff:])
				valOff += w
				op.MarkKey = keys[keyIdx]
				v, w, ok := DecodeValue(values[valOff:])
				if !ok {
					return nil, ErrCorrupted
				}
				valOff += w
				op.MarkValue = v
				op.MarkIsDelete = flag
			case oplog.OpTextMarkEnd:
				op.MarkIsDelete = flag
			case oplog.OpMovableListMove:
				fromPos, w := Uvarint(values[valOff:])
				valOff += w
				fiPeerIdx, w := Uvarint(values[valOff:])
				valOff += w
				fiCounter, w := Uvarint(values[valOff:])
				valOff += w
				pIdx, w := Uvarint(values[valOff:])
				valOff += w
				lamp, w := Uvarint(values[valOff:])
				valOff += w
				op.Pos = int32(prop)
				op.FromPos = int32(uint32(fromPos))
				op.MoveFromItemID = ids.ID{Peer: blockPeers[fiPeerIdx], Counter: ids.Counter(fiCounter)}
				op.ElemID = ids.IdLp{Peer: blockPeers[pIdx], Lamport: ids.Lamport(lamp)}
			case oplog.OpMovableListSet:
				pIdx, w := Uvarint(values[valOff:])
				valOff += w
				lamp, w := Uvarint(values[valOff:])
				valOff += w
				op.ElemID = ids.IdLp{Peer: blockPeers[pIdx], Lamport: ids.Lamport(lamp)}
				v, w, ok := DecodeValue(values[valOff:])
				if !ok {
					return nil, ErrCorrupted
				}
				valOff += w
				op.Value = v
			case oplog.OpTreeCreate, oplog.OpTreeMove:
				tIdx, w := Uvarint(values[valOff:])
				valOff += w
				tCnt, w := Svarint(values[valOff:])
				valOff += w
				op.Target = ids.ID{Peer: blockPeers[tIdx], Counter: ids.Counter(tCnt)}
				op.ParentKind = oplog.TreeParentKind(values[valOff])
				valOff++
				if op.ParentKind == oplog.TreeParentNode {
					pIdx, w := Uvarint(values[valOff:])
					valOff += w
					cnt, w := Svarint(values[valOff:])
					valOff += w
					op.Parent = ids.ID{Peer: blockPeers[pIdx], Counter: ids.Counter(cnt)}
				}
				op.FractionalIdx = positions[posCursor]
				posCursor++
			case oplog.OpTreeDelete:
				tIdx, w := Uvarint(values[valOff:])
				valOff += w
				tCnt, w := Svarint(values[valOff:])
				valOff += w
				op.Target = ids.ID{Peer: blockPeers[tIdx], Counter: ids.Counter(tCnt)}
				op.ParentKind = oplog.TreeParentKind(values[valOff])
				valOff++
			case oplog.OpCounterInc:
				v, w, ok := DecodeValue(values[valOff:])
				if !ok {
					return nil, ErrCorrupted
				}
				valOff += w
				op.Delta = v.I64
			}

			if olPresent[opCursor] != 0 {
				id := ids.ID{Peer: blockPeers[olPeerIdx[opCursor]], Counter: ids.Counter(olCounter[opCursor])}
				op.OriginLeft = &id
			}
			if orPresent[opCursor] != 0 {
				id := ids.ID{Peer: blockPeers[orPeerIdx[opCursor]], Counter: ids.Counter(orCounter[opCursor])}
				op.OriginRight = &id
			}

			ops = append(ops, op)
			consumed += l
			opCursor++
		}

		changes[ci] = &oplog.Change{
			ID:        ids.ID{Peer: peer, Counter: counter},
			AtomLen:   atomLens[ci],
			Deps:      deps,
			Lamport:   lamportStarts[ci],
			Timestamp: timestamps[ci],
			Message:   string(msgBytes[:msgLens[ci]]),
			Ops:       ops,
		}
		msgBytes = msgBytes[msgLens[ci]:]
		counter += ids.Counter(atomLens[ci])
	}

	return changes, nil
}

// opsInChangeCount scans forward from opCursor, summing op lengths until
// they total wantAtoms, returning how many ops that spans. containerIdxs
// and kinds are not read; only lens is consulted.
func opsInChangeCount(opCursor int, wantAtoms int, containerIdxs, lens, kinds []int64) int {
	var total int32
	count := 0
	for i := opCursor; i < len(lens) && total < int32(wantAtoms); i++ {
		total += int32(lens[i])
		count++
	}
	return count
}
