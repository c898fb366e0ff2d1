package txn

import (
	"testing"

	"github.com/loro-dev/loro/oplog"
)

func TestCommitAssignsIdsAndAppends(t *testing.T) {
	log := oplog.New()
	tr := New(log, 1)

	tr.PushOp(oplog.Op{Kind: oplog.OpTextInsert, Len: 3, Text: "abc"})
	change, err := tr.Commit(true, CommitOptions{Message: "hi"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if change == nil {
		t.Fatalf("expected a non-nil change")
	}
	if change.ID.Counter != 0 || change.AtomLen != 3 {
		t.Fatalf("change = %+v, want counter 0 atomLen 3", change)
	}
	if !log.VersionVector().Includes(change.IDLast()) {
		t.Fatalf("expected log to have observed the new change")
	}
}

func TestExplicitEmptyCommitDiscardsOptions(t *testing.T) {
	log := oplog.New()
	tr := New(log, 1)

	change, err := tr.Commit(true, CommitOptions{Message: "discarded"})
	if err != nil || change != nil {
		t.Fatalf("expected a no-op explicit empty commit, got %+v, %v", change, err)
	}

	tr.PushOp(oplog.Op{Kind: oplog.OpCounterInc, Len: 1, Delta: 1})
	change, err = tr.Commit(true, CommitOptions{Message: "real"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if change.Message != "real" {
		t.Fatalf("change.Message = %q, want %q (discarded options must not leak forward)", change.Message, "real")
	}
}

func TestImplicitEmptyCommitCarriesOptionsForward(t *testing.T) {
	log := oplog.New()
	tr := New(log, 1)

	change, err := tr.Commit(false, CommitOptions{Message: "carried"})
	if err != nil || change != nil {
		t.Fatalf("expected a no-op implicit empty commit, got %+v, %v", change, err)
	}

	tr.PushOp(oplog.Op{Kind: oplog.OpCounterInc, Len: 1, Delta: 1})
	// This real commit's own opts should be overridden by the carried ones.
	change, err = tr.Commit(true, CommitOptions{Message: "ignored"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if change.Message != "carried" {
		t.Fatalf("change.Message = %q, want %q (implicit empty commit options should carry forward)", change.Message, "carried")
	}
}

func TestPreCommitHookCanRewriteMessage(t *testing.T) {
	log := oplog.New()
	tr := New(log, 1)
	tr.SetPreCommitHook(func(m *CommitMeta) {
		m.Message = "rewritten"
	})

	tr.PushOp(oplog.Op{Kind: oplog.OpCounterInc, Len: 1, Delta: 1})
	change, err := tr.Commit(true, CommitOptions{Message: "original"})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if change.Message != "rewritten" {
		t.Fatalf("change.Message = %q, want %q", change.Message, "rewritten")
	}
}
