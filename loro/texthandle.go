package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/oplog"
	"github.com/loro-dev/loro/richtext"
)

// TextHandle is a reference to a Text container.
type TextHandle struct {
	d  *Doc
	id container.ID
}

func (h *TextHandle) ID() container.ID { return h.id }

// Insert inserts text at Unicode-scalar index pos.
func (h *TextHandle) Insert(pos int, text string) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	runeLen := int32(len([]rune(text)))
	id := h.d.nextLocalID(runeLen)
	originLeft, originRight := e.tx.InsertText(pos, id, text)
	h.d.pushOp(oplog.Op{
		Container:   h.id,
		Kind:        oplog.OpTextInsert,
		Counter:     id.Counter,
		Len:         runeLen,
		Pos:         int32(pos),
		Text:        text,
		OriginLeft:  originLeft,
		OriginRight: originRight,
	})
	return nil
}

// Delete deletes n Unicode scalars starting at pos.
func (h *TextHandle) Delete(pos, n int) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	startID, ok := e.tx.IDAt(pos)
	if !ok {
		return ErrUnknownContainer
	}
	id := h.d.nextLocalID(int32(n))
	e.tx.DeleteText(startID, int32(n))
	h.d.pushOp(oplog.Op{
		Container:     h.id,
		Kind:          oplog.OpTextDelete,
		Counter:       id.Counter,
		Len:           int32(n),
		DeleteStartID: startID,
		DeleteLen:     int32(n),
	})
	return nil
}

// markInfoByte packs an ExpandType into the reserved-bits bitset carried by
// Op.MarkInfo: low two bits are the expand rule, the rest reserved for
// forward compatibility.
func markInfoByte(expand richtext.ExpandType) uint8 { return uint8(expand) & 0x03 }

func expandFromMarkInfo(b uint8) richtext.ExpandType { return richtext.ExpandType(b & 0x03) }

// Mark applies key=value over [startPos, endPos) with the given expand rule.
func (h *TextHandle) Mark(startPos, endPos int, key string, value container.Value, expand richtext.ExpandType) error {
	return h.mark(startPos, endPos, key, value, expand, false)
}

// Unmark removes key over [startPos, endPos).
func (h *TextHandle) Unmark(startPos, endPos int, key string, expand richtext.ExpandType) error {
	return h.mark(startPos, endPos, key, container.Value{}, expand, true)
}

func (h *TextHandle) mark(startPos, endPos int, key string, value container.Value, expand richtext.ExpandType, unmark bool) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	startID := h.d.nextLocalID(2)
	var origins richtext.MarkOrigins
	if unmark {
		origins = e.tx.Unmark(startPos, endPos, startID, key, expand)
	} else {
		origins = e.tx.Mark(startPos, endPos, startID, key, value, expand)
	}
	endID := startID.ID().Inc(1)
	info := markInfoByte(expand)
	h.d.pushOp(oplog.Op{
		Container:    h.id,
		Kind:         oplog.OpTextMarkStart,
		Counter:      startID.Counter,
		Len:          1,
		Pos:          int32(startPos),
		MarkInfo:     info,
		MarkKey:      key,
		MarkValue:    value,
		MarkIsDelete: unmark,
		OriginLeft:   origins.StartOriginLeft,
		OriginRight:  origins.StartOriginRight,
	})
	h.d.pushOp(oplog.Op{
		Container:    h.id,
		Kind:         oplog.OpTextMarkEnd,
		Counter:      endID.Counter,
		Len:          1,
		MarkIsDelete: unmark,
		OriginLeft:   origins.EndOriginLeft,
		OriginRight:  origins.EndOriginRight,
	})
	return nil
}

// ToDelta materializes the text as a Quill-style delta.
func (h *TextHandle) ToDelta() []richtext.DeltaOp {
	e, err := h.d.entry(h.id)
	if err != nil {
		return nil
	}
	return e.tx.ToDelta()
}

// SliceDelta restricts ToDelta's output to [start, end).
func (h *TextHandle) SliceDelta(start, end int) []richtext.DeltaOp {
	e, err := h.d.entry(h.id)
	if err != nil {
		return nil
	}
	return e.tx.SliceDelta(start, end)
}
