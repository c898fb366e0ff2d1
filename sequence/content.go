// Package sequence implements the Fugue-ordered rope shared by List, Text,
// and MovableList item sequences.
package sequence

// Content is an atom-addressable payload carried by a Span. Text spans hold
// rune content; List/MovableList spans hold opaque element markers. Slice
// must return a Content of the same dynamic type, even for a zero-length
// range, so spans can be split without a type switch in the rope itself.
type Content interface {
	Len() int
	Slice(start, end int) Content
}

// RuneContent is the Content implementation for Text.
type RuneContent []rune

func (c RuneContent) Len() int                      { return len(c) }
func (c RuneContent) Slice(start, end int) Content   { return append(RuneContent{}, c[start:end]...) }
func (c RuneContent) String() string                 { return string(c) }

// OpaqueContent is the Content implementation for List and the item layer of
// MovableList: it carries no payload of its own, only a count of atoms,
// since the actual values/elem-ids live in a side table keyed by atom id
// (container.Value for List, the element table for MovableList).
type OpaqueContent int

func (c OpaqueContent) Len() int { return int(c) }
func (c OpaqueContent) Slice(start, end int) Content {
	return OpaqueContent(end - start)
}
