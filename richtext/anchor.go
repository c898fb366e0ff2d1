package richtext

import "github.com/loro-dev/loro/ids"

// ExpandType governs whether text inserted at a style boundary inherits the
// style.
type ExpandType uint8

const (
	ExpandBefore ExpandType = iota
	ExpandAfter
	ExpandBoth
	ExpandNone
)

// AnchorKind discriminates a Start anchor from an End anchor.
type AnchorKind uint8

const (
	AnchorStart AnchorKind = iota
	AnchorEnd
)

// AnchorInfo is the side-table entry for one Start/End atom: richtext
// anchors carry no content of their own (AnchorContent is an empty marker),
// so their key/value/expand metadata lives here, keyed by atom id.
type AnchorInfo struct {
	Kind     AnchorKind
	Key      string
	Value    interface{}
	Expand   ExpandType
	IsUnmark bool // this pair removes Key over its range rather than setting it
	PairID   ids.ID
}

// preferInsertBefore reports whether a plain insert landing exactly on this
// anchor should be placed before it (true) or after it (false):
//
//   - a Start anchor with Expand in {before, both} means insertions at the
//     Start boundary inherit the style, which requires placing them *after*
//     the anchor (inside the styled range) — so preferInsertBefore is false.
//   - an End anchor with Expand in {after, both} means insertions at the End
//     boundary inherit, which requires placing them *before* the anchor
//     (still inside the range) — so preferInsertBefore is true.
//   - otherwise the insertion goes on the outside of the range: before a
//     Start anchor, after an End anchor.
func preferInsertBefore(kind AnchorKind, expand ExpandType) bool {
	switch kind {
	case AnchorStart:
		inherits := expand == ExpandBefore || expand == ExpandBoth
		return !inherits
	case AnchorEnd:
		inherits := expand == ExpandAfter || expand == ExpandBoth
		return inherits
	default:
		return true
	}
}
