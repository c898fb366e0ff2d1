package oplog

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/loro-dev/loro/ids"
)

func textChange(peer ids.PeerID, counter ids.Counter, lamport ids.Lamport, deps ids.Frontiers, text string) *Change {
	return &Change{
		ID:      ids.ID{Peer: peer, Counter: counter},
		AtomLen: int32(len(text)),
		Deps:    deps,
		Lamport: lamport,
		Ops: []Op{{
			Kind:    OpTextInsert,
			Counter: counter,
			Len:     int32(len(text)),
			Pos:     0,
			Text:    text,
		}},
	}
}

func TestAppendRejectsCounterGap(t *testing.T) {
	l := New()
	c := textChange(1, 5, 0, nil, "hi")
	if err := l.Append(c); err == nil {
		t.Fatalf("expected ErrCounterGap appending at counter 5 on empty log")
	}
}

func TestAppendLinearHistory(t *testing.T) {
	l := New()
	c0 := textChange(1, 0, 0, nil, "ab")
	if err := l.Append(c0); err != nil {
		t.Fatalf("append c0: %v", err)
	}
	c1 := textChange(1, 2, 2, ids.Frontiers{c0.IDLast()}, "cd")
	if err := l.Append(c1); err != nil {
		t.Fatalf("append c1: %v", err)
	}

	wantVV := ids.VersionVector{1: 4}
	if diff := cmp.Diff(wantVV, l.VersionVector()); diff != "" {
		t.Errorf("version vector mismatch (-want +got):\n%s", diff)
	}
	wantFront := ids.Frontiers{{Peer: 1, Counter: 3}}
	if !l.Frontiers().Equal(wantFront) {
		t.Errorf("frontiers = %v, want %v", l.Frontiers(), wantFront)
	}
}

func TestImportParksOnMissingDepsThenReleases(t *testing.T) {
	l := New()
	c0 := textChange(1, 0, 0, nil, "x")
	c1 := textChange(2, 0, 1, ids.Frontiers{c0.IDLast()}, "y")

	// Import c1 before c0 is known: it must park, not error.
	pending, err := l.Import([]*Change{c1})
	if err != nil {
		t.Fatalf("import c1 first: %v", err)
	}
	if len(pending) != 1 || pending[0] != c0.IDLast() {
		t.Fatalf("pending = %v, want [%v]", pending, c0.IDLast())
	}
	if l.VersionVector().Includes(c1.ID) {
		t.Fatalf("c1 should not be applied yet")
	}

	pending, err = l.Import([]*Change{c0})
	if err != nil {
		t.Fatalf("import c0: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %v, want none after dependency arrives", pending)
	}
	if !l.VersionVector().Includes(c1.IDLast()) {
		t.Fatalf("c1 should have been released and applied once c0 landed")
	}
}

func TestVVFrontiersRoundTrip(t *testing.T) {
	l := New()
	c0 := textChange(1, 0, 0, nil, "ab")
	c1 := textChange(2, 0, 0, nil, "cd")
	c2 := textChange(1, 2, 2, ids.Frontiers{c0.IDLast(), c1.IDLast()}, "ef")
	for _, c := range []*Change{c0, c1, c2} {
		if err := l.Append(c); err != nil {
			t.Fatalf("append %v: %v", c.ID, err)
		}
	}

	front := l.Frontiers()
	vv := l.FrontiersToVV(front)
	back := l.VVToFrontiers(vv)
	if !front.Equal(back) {
		t.Errorf("VV/Frontiers round trip mismatch: front=%v vv=%v back=%v", front, vv, back)
	}
}

func TestFindLCA(t *testing.T) {
	l := New()
	c0 := textChange(1, 0, 0, nil, "a")
	if err := l.Append(c0); err != nil {
		t.Fatalf("append c0: %v", err)
	}
	c1 := textChange(1, 1, 1, ids.Frontiers{c0.IDLast()}, "b")
	c2 := textChange(2, 0, 1, ids.Frontiers{c0.IDLast()}, "c")
	if err := l.Append(c1); err != nil {
		t.Fatalf("append c1: %v", err)
	}
	if err := l.Append(c2); err != nil {
		t.Fatalf("append c2: %v", err)
	}

	lca := l.FindLCA(ids.Frontiers{c1.IDLast()}, ids.Frontiers{c2.IDLast()})
	want := ids.Frontiers{c0.IDLast()}
	if diff := cmp.Diff(want, lca, cmpopts.SortSlices(func(a, b ids.ID) bool {
		if a.Peer != b.Peer {
			return a.Peer < b.Peer
		}
		return a.Counter < b.Counter
	})); diff != "" {
		t.Errorf("LCA mismatch (-want +got):\n%s", diff)
	}
}

func TestIterInCausalOrderTieBreaksByLamportThenPeer(t *testing.T) {
	l := New()
	c0 := textChange(1, 0, 0, nil, "a")
	if err := l.Append(c0); err != nil {
		t.Fatalf("append c0: %v", err)
	}
	// Two concurrent changes at the same lamport from different peers.
	c1 := textChange(2, 0, 1, ids.Frontiers{c0.IDLast()}, "b")
	c2 := textChange(3, 0, 1, ids.Frontiers{c0.IDLast()}, "c")
	if err := l.Append(c1); err != nil {
		t.Fatalf("append c1: %v", err)
	}
	if err := l.Append(c2); err != nil {
		t.Fatalf("append c2: %v", err)
	}

	from := ids.VersionVector{1: 1}
	to := l.VersionVector()
	got := l.IterInCausalOrder(from, to)
	if len(got) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(got))
	}
	if got[0].ID.Peer != 2 || got[1].ID.Peer != 3 {
		t.Errorf("expected peer 2 before peer 3 at equal lamport, got order %v, %v", got[0].ID, got[1].ID)
	}
}

func TestChangeCoversAndLamportOf(t *testing.T) {
	c := textChange(1, 10, 100, nil, "abc")
	if !c.Covers(ids.ID{Peer: 1, Counter: 11}) {
		t.Errorf("expected change to cover middle atom")
	}
	if c.Covers(ids.ID{Peer: 1, Counter: 13}) {
		t.Errorf("did not expect change to cover atom past its span")
	}
	if got := c.LamportOf(ids.ID{Peer: 1, Counter: 12}); got != 102 {
		t.Errorf("LamportOf = %d, want 102", got)
	}
}
