package richtext

import "github.com/loro-dev/loro/sequence"

// AnchorContent is the Content implementation for a single Start/End style
// anchor atom: its atom length is always 1, independent of the range it
// covers. Anchors are never split.
type AnchorContent struct{}

func (AnchorContent) Len() int { return 1 }
func (AnchorContent) Slice(start, end int) sequence.Content {
	if start != 0 || end != 1 {
		panic("richtext: anchor content cannot be sliced")
	}
	return AnchorContent{}
}
