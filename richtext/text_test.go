package richtext

import (
	"testing"

	"github.com/loro-dev/loro/ids"
)

func TestInsertPlainTextToDelta(t *testing.T) {
	txt := New()
	txt.InsertText(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 0}, "hello")

	delta := txt.ToDelta()
	if len(delta) != 1 || delta[0].Insert != "hello" || delta[0].Attrs != nil {
		t.Fatalf("ToDelta() = %+v, want one unattributed insert \"hello\"", delta)
	}
}

func TestMarkBoldProducesAttributedRun(t *testing.T) {
	txt := New()
	txt.InsertText(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 0}, "hello world")
	// Bold "world" (positions 6..11).
	txt.Mark(6, 11, ids.IdFull{Peer: 1, Counter: 11, Lamport: 11}, "bold", true, ExpandBefore)

	delta := txt.ToDelta()
	if len(delta) != 2 {
		t.Fatalf("ToDelta() = %+v, want 2 runs (plain + bold)", delta)
	}
	if delta[0].Insert != "hello " || delta[0].Attrs != nil {
		t.Fatalf("first run = %+v, want unattributed \"hello \"", delta[0])
	}
	if delta[1].Insert != "world" || delta[1].Attrs["bold"] != true {
		t.Fatalf("second run = %+v, want bold \"world\"", delta[1])
	}
}

func TestUnmarkRemovesKeyOverRange(t *testing.T) {
	txt := New()
	txt.InsertText(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 0}, "hello")
	txt.Mark(0, 5, ids.IdFull{Peer: 1, Counter: 5, Lamport: 5}, "bold", true, ExpandBoth)
	txt.Unmark(1, 3, ids.IdFull{Peer: 1, Counter: 7, Lamport: 7}, "bold", ExpandBoth)

	delta := txt.ToDelta()
	if len(delta) != 3 {
		t.Fatalf("ToDelta() = %+v, want 3 runs (bold, unbolded middle, bold)", delta)
	}
	if delta[1].Attrs["bold"] != nil {
		t.Fatalf("middle run should have bold unset, got %+v", delta[1])
	}
}

func TestSliceDeltaRestrictsRange(t *testing.T) {
	txt := New()
	txt.InsertText(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 0}, "hello world")

	got := txt.SliceDelta(6, 11)
	if len(got) != 1 || got[0].Insert != "world" {
		t.Fatalf("SliceDelta(6,11) = %+v, want [\"world\"]", got)
	}
}

func TestPreferInsertBeforeRules(t *testing.T) {
	if !preferInsertBefore(AnchorStart, ExpandNone) {
		t.Errorf("a Start anchor with no inheritance should prefer insert before it")
	}
	if preferInsertBefore(AnchorStart, ExpandBefore) {
		t.Errorf("a Start anchor with before-expand should NOT prefer insert before it")
	}
	if !preferInsertBefore(AnchorEnd, ExpandAfter) {
		t.Errorf("an End anchor with after-expand should prefer insert before it")
	}
	if preferInsertBefore(AnchorEnd, ExpandNone) {
		t.Errorf("an End anchor with no inheritance should NOT prefer insert before it")
	}
}
