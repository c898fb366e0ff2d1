package tree

import (
	"testing"

	"github.com/loro-dev/loro/ids"
)

func TestCreateAndChildrenOrdering(t *testing.T) {
	tr := New()
	a := ids.ID{Peer: 1, Counter: 0}
	b := ids.ID{Peer: 1, Counter: 1}
	tr.Create(a, ParentRoot, ids.ID{}, "m", ids.IdFull{Peer: 1, Counter: 0, Lamport: 0})
	tr.Create(b, ParentRoot, ids.ID{}, "a", ids.IdFull{Peer: 1, Counter: 1, Lamport: 1})

	children := tr.Children(ParentRoot, ids.ID{})
	if len(children) != 2 || children[0].ID != b || children[1].ID != a {
		t.Fatalf("expected children ordered by fractional index [b, a], got %v", children)
	}
}

func TestLocalMoveRejectsCycle(t *testing.T) {
	tr := New()
	a := ids.ID{Peer: 1, Counter: 0}
	b := ids.ID{Peer: 1, Counter: 1}
	tr.Create(a, ParentRoot, ids.ID{}, "m", ids.IdFull{Peer: 1, Counter: 0})
	tr.Create(b, ParentNode, a, "m", ids.IdFull{Peer: 1, Counter: 1})

	// Moving a under b would make a its own grandparent.
	err := tr.LocalMove(a, ParentNode, b, "m", ids.IdFull{Peer: 1, Counter: 2, Lamport: 2})
	if err != ErrWouldCycle {
		t.Fatalf("LocalMove = %v, want ErrWouldCycle", err)
	}
}

func TestRemoteMoveIgnoresCycleInsteadOfErroring(t *testing.T) {
	tr := New()
	a := ids.ID{Peer: 1, Counter: 0}
	b := ids.ID{Peer: 1, Counter: 1}
	tr.Create(a, ParentRoot, ids.ID{}, "m", ids.IdFull{Peer: 1, Counter: 0})
	tr.Create(b, ParentNode, a, "m", ids.IdFull{Peer: 1, Counter: 1})

	tr.RemoteMove(a, ParentNode, b, "m", ids.IdFull{Peer: 2, Counter: 0, Lamport: 5})

	// The cyclic move must have been ignored: a is still a root child.
	if got := tr.Node(a); got.ParentKind != ParentRoot {
		t.Fatalf("cyclic remote move should be a no-op, got parent kind %v", got.ParentKind)
	}
}

func TestLastMoveWinsByIdLp(t *testing.T) {
	tr := New()
	a := ids.ID{Peer: 1, Counter: 0}
	tr.Create(a, ParentRoot, ids.ID{}, "m", ids.IdFull{Peer: 1, Counter: 0, Lamport: 0})

	tr.RemoteMove(a, ParentDeleted, ids.ID{}, "", ids.IdFull{Peer: 2, Counter: 0, Lamport: 10})
	// A stale concurrent move at a lower lamport must not undo the delete.
	tr.RemoteMove(a, ParentRoot, ids.ID{}, "z", ids.IdFull{Peer: 3, Counter: 0, Lamport: 3})

	if tr.Node(a).ParentKind != ParentDeleted {
		t.Fatalf("stale move should not win over the higher-lamport delete")
	}
}

// TestCrossTargetCycleResolvedByIdLpNotArrivalOrder covers the two-peer
// swap: X and Y start as root siblings, one move wants Y under X (smaller
// IdLp) and a concurrent move wants X under Y (larger IdLp). Either move
// applied alone would succeed; applied together only one can stand, and
// the result must be the same regardless of which replica produced which
// move or which is applied first — the larger-IdLp move always wins.
func TestCrossTargetCycleResolvedByIdLpNotArrivalOrder(t *testing.T) {
	x := ids.ID{Peer: 1, Counter: 0}
	y := ids.ID{Peer: 2, Counter: 0}
	moveYUnderX := ids.IdFull{Peer: 1, Counter: 1, Lamport: 5}
	moveXUnderY := ids.IdFull{Peer: 2, Counter: 1, Lamport: 9}

	assertConverged := func(t *testing.T, tr *Tree) {
		t.Helper()
		xn, yn := tr.Node(x), tr.Node(y)
		if xn.ParentKind != ParentNode || xn.Parent != y {
			t.Fatalf("want X under Y, got parentKind=%v parent=%v", xn.ParentKind, xn.Parent)
		}
		if yn.ParentKind != ParentRoot {
			t.Fatalf("want Y still a root child, got parentKind=%v", yn.ParentKind)
		}
	}

	t.Run("ascending causal replay, both remote", func(t *testing.T) {
		tr := New()
		tr.Create(x, ParentRoot, ids.ID{}, "m", ids.IdFull{Peer: 1, Counter: 0})
		tr.Create(y, ParentRoot, ids.ID{}, "n", ids.IdFull{Peer: 2, Counter: 0})
		tr.RemoteMove(y, ParentNode, x, "m", moveYUnderX)
		tr.RemoteMove(x, ParentNode, y, "m", moveXUnderY)
		assertConverged(t, tr)
	})

	t.Run("descending arrival order, both remote", func(t *testing.T) {
		tr := New()
		tr.Create(x, ParentRoot, ids.ID{}, "m", ids.IdFull{Peer: 1, Counter: 0})
		tr.Create(y, ParentRoot, ids.ID{}, "n", ids.IdFull{Peer: 2, Counter: 0})
		tr.RemoteMove(x, ParentNode, y, "m", moveXUnderY)
		tr.RemoteMove(y, ParentNode, x, "m", moveYUnderX)
		assertConverged(t, tr)
	})

	t.Run("eager local move loses to a later-arriving higher-IdLp remote move", func(t *testing.T) {
		// Mirrors peer 1's own view: it applies its move (Y under X)
		// eagerly via LocalMove, then later receives peer 2's remote move
		// (X under Y) with the higher IdLp. The local move must not win
		// just because it was applied first.
		tr := New()
		tr.Create(x, ParentRoot, ids.ID{}, "m", ids.IdFull{Peer: 1, Counter: 0})
		tr.Create(y, ParentRoot, ids.ID{}, "n", ids.IdFull{Peer: 2, Counter: 0})
		if err := tr.LocalMove(y, ParentNode, x, "m", moveYUnderX); err != nil {
			t.Fatalf("LocalMove(y under x) = %v, want nil", err)
		}
		tr.RemoteMove(x, ParentNode, y, "m", moveXUnderY)
		assertConverged(t, tr)
	})
}

func TestFractionalIndexForUserPosTriggersRearrange(t *testing.T) {
	children := []*Node{
		{ID: ids.ID{Peer: 1, Counter: 0}, Position: "M", LastMoveOp: ids.IdFull{Peer: 1}},
		{ID: ids.ID{Peer: 1, Counter: 1}, Position: "M", LastMoveOp: ids.IdFull{Peer: 2}},
	}
	_, rearrange := FractionalIndexForUserPos(children, 1)
	if rearrange == nil {
		t.Fatalf("expected a collision at equal positions to trigger rearrange")
	}
	if len(rearrange) != 2 {
		t.Fatalf("expected both colliding siblings respaced, got %d entries", len(rearrange))
	}
}
