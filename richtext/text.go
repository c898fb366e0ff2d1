// Package richtext implements the Text sequence CRDT's style layer:
// Start/End anchors woven into the same Fugue rope as plain characters,
// Quill-style delta materialization, and unmark-as-insertion.
package richtext

import (
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/sequence"
)

// Text is a Text container's full CRDT state: a Fugue rope whose atoms are
// either Unicode scalars or style anchors, plus the anchor side table.
type Text struct {
	rope    *sequence.Rope
	anchors map[ids.ID]*AnchorInfo
}

// New returns an empty Text.
func New() *Text {
	return &Text{rope: sequence.NewRope(), anchors: map[ids.ID]*AnchorInfo{}}
}

// entityCursor converts a Unicode-scalar index to the rope's active
// (entity) index, skipping over anchors that, per their expand rule, should
// sit between the previous character and an insertion landing at pos —
// placement is delegated to preferInsertBefore(anchor_type, expand).
func (t *Text) entityCursor(unicodePos int) int {
	seenRunes := 0
	entityIdx := 0
	for _, id := range t.rope.ActiveIDs() {
		if info, isAnchor := t.anchors[id]; isAnchor {
			if seenRunes == unicodePos && preferInsertBefore(info.Kind, info.Expand) {
				return entityIdx
			}
			entityIdx++
			continue
		}
		if seenRunes == unicodePos {
			return entityIdx
		}
		seenRunes++
		entityIdx++
	}
	return entityIdx
}

// InsertText inserts text at Unicode-scalar index pos.
func (t *Text) InsertText(pos int, id ids.IdFull, text string) (originLeft, originRight *ids.ID) {
	entityPos := t.entityCursor(pos)
	return t.rope.InsertLocal(entityPos, id, sequence.RuneContent([]rune(text)))
}

// InsertTextRemote integrates a remote text insert whose origins are known.
func (t *Text) InsertTextRemote(id ids.IdFull, originLeft, originRight *ids.ID, text string) {
	t.rope.InsertRemote(id, originLeft, originRight, sequence.RuneContent([]rune(text)), false)
}

// IDAt returns the rope entity id of the Unicode-scalar character at pos,
// skipping over style anchors (used by callers that need a concrete id to
// pass to DeleteText).
func (t *Text) IDAt(pos int) (ids.ID, bool) {
	seenRunes := 0
	for _, id := range t.rope.ActiveIDs() {
		if _, isAnchor := t.anchors[id]; isAnchor {
			continue
		}
		if seenRunes == pos {
			return id, true
		}
		seenRunes++
	}
	return ids.ID{}, false
}

// DeleteText deletes the n Unicode scalars starting at startID (the entity
// id of the first rune).
func (t *Text) DeleteText(startID ids.ID, n int32) {
	t.rope.DeleteRange(startID, n)
}

// MarkOrigins carries the Fugue placement anchors computed for a Mark/Unmark
// pair's two anchor atoms, so the caller can record them on the Start/End
// ops for remote replay via MarkRemote.
type MarkOrigins struct {
	StartOriginLeft, StartOriginRight *ids.ID
	EndOriginLeft, EndOriginRight     *ids.ID
}

// Mark inserts a Start/End anchor pair covering [startPos, endPos) (Unicode
// indices) for key with the given value and expand rule. The pair's ids are
// always contiguous (startID and startID.Inc(1)).
func (t *Text) Mark(startPos, endPos int, startID ids.IdFull, key string, value interface{}, expand ExpandType) MarkOrigins {
	return t.markPair(startPos, endPos, startID, key, value, expand, false)
}

// Unmark inserts a new Start/End pair with inverted expand and the
// IsUnmark flag set, removing key over the range rather than retracting the
// original Mark — the removal is itself a new insertion, not a retraction.
func (t *Text) Unmark(startPos, endPos int, startID ids.IdFull, key string, expand ExpandType) MarkOrigins {
	return t.markPair(startPos, endPos, startID, key, nil, invertExpand(expand), true)
}

func invertExpand(e ExpandType) ExpandType {
	switch e {
	case ExpandBefore:
		return ExpandAfter
	case ExpandAfter:
		return ExpandBefore
	default:
		return e
	}
}

func (t *Text) markPair(startPos, endPos int, startID ids.IdFull, key string, value interface{}, expand ExpandType, unmark bool) MarkOrigins {
	var o MarkOrigins
	endIDFull := ids.IdFull{Peer: startID.Peer, Counter: startID.Counter + 1, Lamport: startID.Lamport + 1}
	startPosEntity := t.entityCursor(startPos)
	o.StartOriginLeft, o.StartOriginRight = t.rope.InsertLocal(startPosEntity, startID, AnchorContent{})
	t.anchors[startID.ID()] = &AnchorInfo{Kind: AnchorStart, Key: key, Value: value, Expand: expand, IsUnmark: unmark, PairID: endIDFull.ID()}

	endPosEntity := t.entityCursor(endPos)
	o.EndOriginLeft, o.EndOriginRight = t.rope.InsertLocal(endPosEntity, endIDFull, AnchorContent{})
	t.anchors[endIDFull.ID()] = &AnchorInfo{Kind: AnchorEnd, Key: key, Value: value, Expand: expand, IsUnmark: unmark, PairID: startID.ID()}
	return o
}

// MarkRemote integrates a remote Start or End anchor whose origins are
// already known.
func (t *Text) MarkRemote(id ids.IdFull, originLeft, originRight *ids.ID, info AnchorInfo) {
	t.rope.InsertRemote(id, originLeft, originRight, AnchorContent{}, false)
	t.anchors[id.ID()] = &info
}

// AnchorAt returns the side-table entry recorded for a Start/End atom, so a
// caller replaying an End op (which carries no key/value of its own — those
// live only on its paired Start) can recover them.
func (t *Text) AnchorAt(id ids.ID) (AnchorInfo, bool) {
	info, ok := t.anchors[id]
	if !ok {
		return AnchorInfo{}, false
	}
	return *info, true
}

// DeltaOp is one Quill-style delta operation.
type DeltaOp struct {
	Retain int
	Insert string
	Delete int
	Attrs  map[string]interface{}
}

// ToDelta materializes the full document as a Quill-style delta: maximal
// runs of text sharing an identical attribute map.
func (t *Text) ToDelta() []DeltaOp {
	return t.sliceDelta(0, -1)
}

// SliceDelta restricts ToDelta's output to [start, end) Unicode indices (or
// to the end of the document when end < 0), preserving attributes — used to
// copy styled snippets.
func (t *Text) SliceDelta(start, end int) []DeltaOp {
	return t.sliceDelta(start, end)
}

func (t *Text) sliceDelta(start, end int) []DeltaOp {
	active := map[string][]*openMark{}
	var ops []DeltaOp
	var curText []rune
	var curAttrs map[string]interface{}
	unicodeIdx := 0

	flush := func() {
		if len(curText) == 0 {
			return
		}
		ops = append(ops, DeltaOp{Insert: string(curText), Attrs: curAttrs})
		curText = nil
		curAttrs = nil
	}

	for _, id := range t.rope.ActiveIDs() {
		if info, isAnchor := t.anchors[id]; isAnchor {
			applyAnchor(active, info)
			continue
		}
		if end >= 0 && unicodeIdx >= end {
			break
		}
		if unicodeIdx >= start {
			attrs := snapshotAttrs(active)
			if !attrsEqual(attrs, curAttrs) {
				flush()
				curAttrs = attrs
			}
			r := t.runeAt(id)
			curText = append(curText, r)
		}
		unicodeIdx++
	}
	flush()
	return ops
}

func (t *Text) runeAt(id ids.ID) rune {
	spanIdx, offset, ok := t.rope.CursorOf(id)
	if !ok {
		return 0
	}
	span := t.rope.Spans()[spanIdx]
	content := span.Content.Slice(offset, offset+1).(sequence.RuneContent)
	return content[0]
}

// openMark is one entry on a key's nesting stack: marks on the same key can
// nest (e.g. an Unmark bracketed inside a Mark), so closing the innermost
// End must reveal whatever was open before it rather than clearing the key
// outright — the union-of-overlapping-marks rule extended to the same-key
// case.
type openMark struct {
	value interface{}
	unset bool
}

func applyAnchor(active map[string][]*openMark, info *AnchorInfo) {
	if info.Kind == AnchorStart {
		active[info.Key] = append(active[info.Key], &openMark{value: info.Value, unset: info.IsUnmark})
		return
	}
	stack := active[info.Key]
	if len(stack) == 0 {
		return
	}
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(active, info.Key)
	} else {
		active[info.Key] = stack
	}
}

func snapshotAttrs(active map[string][]*openMark) map[string]interface{} {
	if len(active) == 0 {
		return nil
	}
	out := map[string]interface{}{}
	for k, stack := range active {
		top := stack[len(stack)-1]
		if top.unset {
			continue
		}
		out[k] = top.value
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func attrsEqual(a, b map[string]interface{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
