package loro

import (
	"testing"

	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/richtext"
	"github.com/loro-dev/loro/tree"
)

func strVal(s string) container.Value { return container.Value{Kind: container.ValueStr, Str: s} }

func TestMapSetGetCommit(t *testing.T) {
	d := New(1, nil)
	m, err := d.GetMap("meta")
	if err != nil {
		t.Fatalf("GetMap: %v", err)
	}
	if err := m.Set("title", strVal("hello")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := m.Set("draft", container.Value{Kind: container.ValueBool, Bool: true}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, err := d.Commit(CommitOptions{Message: "init"}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	v, ok := m.Get("title")
	if !ok || v.Str != "hello" {
		t.Fatalf("Get(title) = %+v, %v, want hello/true", v, ok)
	}
	if err := m.Delete("draft"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := m.Get("draft"); ok {
		t.Fatalf("expected draft to be deleted")
	}
}

func TestGetMapRejectsKindMismatch(t *testing.T) {
	d := New(1, nil)
	if _, err := d.GetMap("x"); err != nil {
		t.Fatalf("GetMap: %v", err)
	}
	if _, err := d.GetList("x"); err != ErrRootKindMismatch {
		t.Fatalf("GetList(same name) = %v, want ErrRootKindMismatch", err)
	}
}

func TestListInsertDeleteConvergence(t *testing.T) {
	a := New(1, nil)
	b := New(2, nil)

	la, _ := a.GetList("items")
	if err := la.Insert(0, strVal("x"), strVal("y"), strVal("z")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	update, err := a.Export(ExportOptions{Mode: ExportUpdate})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := b.Import(update); err != nil {
		t.Fatalf("Import: %v", err)
	}

	lb, err := b.GetList("items")
	if err != nil {
		t.Fatalf("GetList: %v", err)
	}
	if lb.Len() != 3 {
		t.Fatalf("b list len = %d, want 3", lb.Len())
	}
	gv, _ := lb.Get(1)
	if gv.Str != "y" {
		t.Fatalf("b list[1] = %+v, want y", gv)
	}

	// b deletes concurrently-irrelevant middle element, re-exports, a imports back.
	if err := lb.Delete(1, 1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := b.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	back, err := b.Export(ExportOptions{Mode: ExportUpdate, From: a.Version()})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := a.Import(back); err != nil {
		t.Fatalf("Import: %v", err)
	}

	la2, _ := a.GetList("items")
	if la2.Len() != 2 {
		t.Fatalf("a list len after convergence = %d, want 2", la2.Len())
	}
	if !sameListContent(la2.Snapshot(), lb.Snapshot()) {
		t.Fatalf("a and b diverged: %+v vs %+v", la2.Snapshot(), lb.Snapshot())
	}
}

func sameListContent(a, b []container.Value) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

func TestTextConcurrentInsertConverges(t *testing.T) {
	a := New(1, nil)
	b := New(2, nil)

	ta, _ := a.GetText("body")
	if err := ta.Insert(0, "ac"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	base, err := a.Export(ExportOptions{Mode: ExportUpdate})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := b.Import(base); err != nil {
		t.Fatalf("Import: %v", err)
	}

	tb, err := b.GetText("body")
	if err != nil {
		t.Fatalf("GetText: %v", err)
	}
	// Concurrent inserts at the same boundary: a inserts "X" after 'a', b
	// inserts "Y" at the same position, neither having seen the other's op.
	if err := ta.Insert(1, "X"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tb.Insert(1, "Y"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := b.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	aUpdate, err := a.Export(ExportOptions{Mode: ExportUpdate, From: b.Version()})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	bUpdate, err := b.Export(ExportOptions{Mode: ExportUpdate, From: a.Version()})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := b.Import(aUpdate); err != nil {
		t.Fatalf("Import: %v", err)
	}
	if _, err := a.Import(bUpdate); err != nil {
		t.Fatalf("Import: %v", err)
	}

	aText := deltaText(ta.ToDelta())
	bText := deltaText(tb.ToDelta())
	if aText != bText {
		t.Fatalf("a and b text diverged: %q vs %q", aText, bText)
	}
	if len(aText) != 4 {
		t.Fatalf("converged text = %q, want length 4", aText)
	}
}

func deltaText(ops []richtext.DeltaOp) string {
	var s string
	for _, op := range ops {
		s += op.Insert
	}
	return s
}

func TestTreeCreateMoveDelete(t *testing.T) {
	d := New(1, nil)
	tr, err := d.GetTree("fs")
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	root, err := tr.CreateNode(tree.ParentRoot, ids.ID{}, "")
	if err != nil {
		t.Fatalf("CreateNode: %v", err)
	}
	child, err := tr.CreateNode(tree.ParentNode, root, "a0")
	if err != nil {
		t.Fatalf("CreateNode child: %v", err)
	}
	if _, err := d.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	kids := tr.Children(tree.ParentNode, root)
	if len(kids) != 1 || kids[0].ID != child {
		t.Fatalf("Children(root) = %+v, want [%v]", kids, child)
	}
	if err := tr.Delete(child); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if kids := tr.Children(tree.ParentNode, root); len(kids) != 0 {
		t.Fatalf("Children(root) after delete = %+v, want empty", kids)
	}
}

func TestTreeConcurrentCrossMoveConverges(t *testing.T) {
	a := New(1, nil)
	b := New(2, nil)

	ta, err := a.GetTree("fs")
	if err != nil {
		t.Fatalf("GetTree: %v", err)
	}
	x, err := ta.CreateNode(tree.ParentRoot, ids.ID{}, "m")
	if err != nil {
		t.Fatalf("CreateNode x: %v", err)
	}
	y, err := ta.CreateNode(tree.ParentRoot, ids.ID{}, "n")
	if err != nil {
		t.Fatalf("CreateNode y: %v", err)
	}
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	baseline, err := a.Export(ExportOptions{Mode: ExportUpdate})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if _, err := b.Import(baseline); err != nil {
		t.Fatalf("Import: %v", err)
	}
	tb, err := b.GetTree("fs")
	if err != nil {
		t.Fatalf("GetTree on b: %v", err)
	}

	// a moves y under x; b concurrently moves x under y. Whichever move
	// carries the higher IdLp must win on both replicas once they converge,
	// regardless of which replica applied its own move eagerly and which
	// one learns of the conflicting move later via Import.
	if err := ta.Move(y, tree.ParentNode, x, "m"); err != nil {
		t.Fatalf("a Move y under x: %v", err)
	}
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit a: %v", err)
	}
	if err := tb.Move(x, tree.ParentNode, y, "m"); err != nil {
		t.Fatalf("b Move x under y: %v", err)
	}
	if _, err := b.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit b: %v", err)
	}

	fromA, err := b.Export(ExportOptions{Mode: ExportUpdate, From: a.Version()})
	if err != nil {
		t.Fatalf("Export b: %v", err)
	}
	if _, err := a.Import(fromA); err != nil {
		t.Fatalf("Import into a: %v", err)
	}
	fromB, err := a.Export(ExportOptions{Mode: ExportUpdate, From: b.Version()})
	if err != nil {
		t.Fatalf("Export a: %v", err)
	}
	if _, err := b.Import(fromB); err != nil {
		t.Fatalf("Import into b: %v", err)
	}

	an, bn := ta.Node(x), tb.Node(x)
	if an == nil || bn == nil {
		t.Fatalf("Node(x) missing after convergence: a=%v b=%v", an, bn)
	}
	if an.ParentKind != bn.ParentKind || an.Parent != bn.Parent {
		t.Fatalf("a and b diverged on x's parent: a={%v %v} b={%v %v}",
			an.ParentKind, an.Parent, bn.ParentKind, bn.Parent)
	}
}

func TestCounterIncrement(t *testing.T) {
	d := New(1, nil)
	c, err := d.GetCounter("n")
	if err != nil {
		t.Fatalf("GetCounter: %v", err)
	}
	if err := c.Increment(5); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if err := c.Increment(-2); err != nil {
		t.Fatalf("Increment: %v", err)
	}
	if got := c.Value(); got != 3 {
		t.Fatalf("Value() = %d, want 3", got)
	}
}

func TestExportSnapshotImportParity(t *testing.T) {
	a := New(1, nil)
	m, _ := a.GetMap("meta")
	m.Set("k", strVal("v"))
	l, _ := a.GetList("items")
	l.Insert(0, strVal("one"), strVal("two"))
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	snap, err := a.Export(ExportOptions{Mode: ExportSnapshot})
	if err != nil {
		t.Fatalf("Export snapshot: %v", err)
	}

	b := New(1, nil)
	if res, err := b.Import(snap); err != nil || !res.Success {
		t.Fatalf("Import snapshot: res=%+v err=%v", res, err)
	}

	if !a.ToJSON().Equal(b.ToJSON()) {
		t.Fatalf("ToJSON mismatch after snapshot import: %+v vs %+v", a.ToJSON(), b.ToJSON())
	}
}

func TestExportShallowSnapshotImportParity(t *testing.T) {
	a := New(1, nil)
	m, _ := a.GetMap("meta")
	m.Set("k", strVal("v"))
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	shallow, err := a.Export(ExportOptions{Mode: ExportShallowSnapshot, Frontiers: nil})
	if err != nil {
		t.Fatalf("Export shallow snapshot: %v", err)
	}

	b := New(1, nil)
	if res, err := b.Import(shallow); err != nil || !res.Success {
		t.Fatalf("Import shallow snapshot: res=%+v err=%v", res, err)
	}
	if !a.ToJSON().Equal(b.ToJSON()) {
		t.Fatalf("ToJSON mismatch after shallow-snapshot import: %+v vs %+v", a.ToJSON(), b.ToJSON())
	}
}

func TestApplyDiffRoundTrip(t *testing.T) {
	a := New(1, nil)
	m, _ := a.GetMap("meta")
	m.Set("k1", strVal("v1"))
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	from := a.Frontiers()

	m.Set("k2", strVal("v2"))
	if err := m.Delete("k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := a.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	to := a.Frontiers()

	b := New(1, nil)
	bm, _ := b.GetMap("meta")
	bm.Set("k1", strVal("v1"))
	if _, err := b.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	batch := a.Diff(from, to)
	if err := b.ApplyDiff(batch); err != nil {
		t.Fatalf("ApplyDiff: %v", err)
	}
	if _, err := b.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if !a.ToJSON().Equal(b.ToJSON()) {
		t.Fatalf("ToJSON mismatch after diff/applyDiff round trip: %+v vs %+v", a.ToJSON(), b.ToJSON())
	}
}

func TestRevertTo(t *testing.T) {
	d := New(1, nil)
	m, _ := d.GetMap("meta")
	m.Set("k", strVal("v1"))
	if _, err := d.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	checkpoint := d.Frontiers()

	m.Set("k", strVal("v2"))
	m.Set("extra", strVal("only-after-checkpoint"))
	if _, err := d.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if err := d.RevertTo(checkpoint); err != nil {
		t.Fatalf("RevertTo: %v", err)
	}
	if _, err := d.Commit(CommitOptions{}); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	v, ok := m.Get("k")
	if !ok || v.Str != "v1" {
		t.Fatalf("Get(k) after RevertTo = %+v, %v, want v1/true", v, ok)
	}
	if _, ok := m.Get("extra"); ok {
		t.Fatalf("expected extra to be gone after RevertTo")
	}
}
