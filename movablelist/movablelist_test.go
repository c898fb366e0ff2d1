package movablelist

import (
	"testing"

	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
)

func strVal(s string) container.Value { return container.Value{Kind: container.ValueStr, Str: s} }

func TestInsertAndSnapshotOrder(t *testing.T) {
	l := New()
	l.InsertLocal(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 0}, []container.Value{strVal("a"), strVal("b")})
	l.InsertLocal(2, ids.IdFull{Peer: 1, Counter: 2, Lamport: 2}, []container.Value{strVal("c")})

	got := l.Snapshot()
	if len(got) != 3 || got[0].Str != "a" || got[1].Str != "b" || got[2].Str != "c" {
		t.Fatalf("Snapshot() = %v, want [a b c]", got)
	}
}

func TestDeleteDropsElement(t *testing.T) {
	l := New()
	l.InsertLocal(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 0}, []container.Value{strVal("a"), strVal("b")})
	l.Delete(ids.ID{Peer: 1, Counter: 0}, 1)

	got := l.Snapshot()
	if len(got) != 1 || got[0].Str != "b" {
		t.Fatalf("Snapshot() after delete = %v, want [b]", got)
	}
}

func TestMoveRepositionsElement(t *testing.T) {
	l := New()
	l.InsertLocal(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 0}, []container.Value{strVal("a"), strVal("b"), strVal("c")})

	elemLp := ids.IdLp{Lamport: 0, Peer: 1}
	_, _, ok := l.Move(ids.ID{Peer: 1, Counter: 0}, 2, ids.IdFull{Peer: 1, Counter: 3, Lamport: 10}, elemLp, ids.IdLp{Lamport: 10, Peer: 1})
	if !ok {
		t.Fatalf("Move returned ok=false")
	}

	got := l.Snapshot()
	if len(got) != 3 || got[0].Str != "b" || got[2].Str != "a" {
		t.Fatalf("Snapshot() after move = %v, want a moved to the end", got)
	}
}

func TestMoveLosesLWWRaceKeepsOldPosition(t *testing.T) {
	l := New()
	l.InsertLocal(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 5}, []container.Value{strVal("a")})
	elemLp := ids.IdLp{Lamport: 5, Peer: 1}

	// A later move at a higher IdLp wins first...
	l.Move(ids.ID{Peer: 1, Counter: 0}, 0, ids.IdFull{Peer: 1, Counter: 1, Lamport: 20}, elemLp, ids.IdLp{Lamport: 20, Peer: 1})
	// ...then a concurrent move arrives with a lower IdLp than the element's
	// current pos_id and must not take effect. Being concurrent with the
	// first move, it only knew the original item (1,0).
	_, _, ok := l.Move(ids.ID{Peer: 1, Counter: 0}, 0, ids.IdFull{Peer: 2, Counter: 0, Lamport: 8}, elemLp, ids.IdLp{Lamport: 8, Peer: 2})
	if !ok {
		t.Fatalf("Move returned ok=false")
	}

	got := l.Snapshot()
	if len(got) != 1 || got[0].Str != "a" {
		t.Fatalf("Snapshot() after losing move = %v, want [a] still visible via the winning position", got)
	}
}

func TestSetUpdatesValueOnHigherIdLp(t *testing.T) {
	l := New()
	l.InsertLocal(0, ids.IdFull{Peer: 1, Counter: 0, Lamport: 0}, []container.Value{strVal("a")})
	elemLp := ids.IdLp{Lamport: 0, Peer: 1}

	l.Set(elemLp, strVal("updated"), ids.IdLp{Lamport: 5, Peer: 2})
	if got := l.Snapshot(); len(got) != 1 || got[0].Str != "updated" {
		t.Fatalf("Snapshot() after Set = %v, want [updated]", got)
	}

	// A stale concurrent set must not override.
	l.Set(elemLp, strVal("stale"), ids.IdLp{Lamport: 1, Peer: 9})
	if got := l.Snapshot(); got[0].Str != "updated" {
		t.Fatalf("stale set should not have overridden, got %v", got[0].Str)
	}
}
