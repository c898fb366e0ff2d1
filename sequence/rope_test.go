package sequence

import (
	"testing"

	"github.com/loro-dev/loro/ids"
)

func ins(r *Rope, peer ids.PeerID, counter ids.Counter, lamport ids.Lamport, pos int, text string) (ids.IdFull, *ids.ID, *ids.ID) {
	id := ids.IdFull{Peer: peer, Counter: counter, Lamport: lamport}
	ol, or := r.InsertLocal(pos, id, RuneContent([]rune(text)))
	return id, ol, or
}

func snapshotString(r *Rope) string {
	var out []rune
	for _, c := range r.Snapshot() {
		out = append(out, []rune(c.(RuneContent).String())...)
	}
	return string(out)
}

func TestSequentialInserts(t *testing.T) {
	r := NewRope()
	ins(r, 1, 0, 0, 0, "hello")
	ins(r, 1, 5, 5, 5, " world")
	if got := snapshotString(r); got != "hello world" {
		t.Fatalf("snapshot = %q, want %q", got, "hello world")
	}
}

func TestInsertInMiddleSplitsOrigin(t *testing.T) {
	r := NewRope()
	ins(r, 1, 0, 0, 0, "ac")
	ins(r, 1, 2, 2, 1, "b")
	if got := snapshotString(r); got != "abc" {
		t.Fatalf("snapshot = %q, want %q", got, "abc")
	}
}

func TestDeleteTombstonesNotRemoves(t *testing.T) {
	r := NewRope()
	id, _, _ := ins(r, 1, 0, 0, 0, "abc")
	r.DeleteRange(id.ID().Inc(1), 1)
	if got := snapshotString(r); got != "ac" {
		t.Fatalf("snapshot after delete = %q, want %q", got, "ac")
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (tombstones still occupy atoms)", r.Len())
	}
	if r.ActiveLen() != 2 {
		t.Errorf("ActiveLen() = %d, want 2", r.ActiveLen())
	}
}

// TestConcurrentInsertSamePositionConverges applies two concurrent inserts
// at the same origin_left/origin_right in both arrival orders and checks
// they converge on the same final order — peer with the higher id wins the
// tie (spec.md §4.2.1 step 5).
func TestConcurrentInsertSamePositionConverges(t *testing.T) {
	base := NewRope()
	baseID, _, _ := ins(base, 1, 0, 0, 0, "x")

	runOrder := func(first, second ids.PeerID) string {
		r := NewRope()
		r.InsertRemote(ids.IdFull{Peer: baseID.Peer, Counter: baseID.Counter, Lamport: baseID.Lamport}, nil, nil, RuneContent([]rune("x")), false)

		originLeft := baseID.ID()
		letter := map[ids.PeerID]string{2: "a", 3: "b"}

		// Peer 2 always inserts "a" and peer 3 always inserts "b"; only the
		// arrival order changes between the two runs.
		for _, p := range []ids.PeerID{first, second} {
			r.InsertRemote(ids.IdFull{Peer: p, Counter: 0, Lamport: 1}, &originLeft, nil, RuneContent([]rune(letter[p])), false)
		}
		return snapshotString(r)
	}

	orderA := runOrder(2, 3)
	orderB := runOrder(3, 2)
	if orderA != orderB {
		t.Fatalf("concurrent insert order diverged: %q vs %q", orderA, orderB)
	}
}

func TestIDAtActivePosAndCursorOf(t *testing.T) {
	r := NewRope()
	id, _, _ := ins(r, 1, 0, 0, 0, "abc")
	got, ok := r.IDAtActivePos(1)
	if !ok || got != id.ID().Inc(1) {
		t.Fatalf("IDAtActivePos(1) = %v, %v; want %v, true", got, ok, id.ID().Inc(1))
	}
	si, off, ok := r.CursorOf(id.ID().Inc(2))
	if !ok || off != 2 {
		t.Fatalf("CursorOf = span %d off %d ok %v, want off 2", si, off, ok)
	}
}
