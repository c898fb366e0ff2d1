// Package txn implements the Transaction commit barrier: buffering ops
// between commits, assigning ids/lamports, building a Change, and the
// explicit-vs-implicit empty-commit option carry-over rule.
package txn

import (
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/oplog"
)

// CommitOptions carries the caller-supplied metadata for a commit.
type CommitOptions struct {
	Message   string
	Timestamp int64
	Origin    string
}

// CommitMeta is the mutable view of a pending commit's options a pre-commit
// hook may rewrite.
type CommitMeta struct {
	Message   string
	Timestamp int64
	Origin    string

	changeID ids.ID
	atomLen  int32
}

// ChangeID is the id this commit's Change will be appended under, available
// to a pre-commit hook that wants to derive its message from it.
func (m *CommitMeta) ChangeID() ids.ID { return m.changeID }

// AtomLen is the number of atoms this commit's Change will span.
func (m *CommitMeta) AtomLen() int32 { return m.atomLen }

// PreCommitHook may rewrite a pending commit's message/timestamp/origin
// before the Change is built.
type PreCommitHook func(meta *CommitMeta)

// Transaction buffers ops from local container handles until the next
// commit barrier: all mutations occur between commit barriers.
type Transaction struct {
	log  *oplog.OpLog
	peer ids.PeerID

	hook PreCommitHook

	pendingOps []oplog.Op
	carried    *CommitOptions
}

// New returns a Transaction writing to log on behalf of peer.
func New(log *oplog.OpLog, peer ids.PeerID) *Transaction {
	return &Transaction{log: log, peer: peer}
}

// SetPreCommitHook installs (or clears, with nil) the pre-commit hook.
func (t *Transaction) SetPreCommitHook(hook PreCommitHook) { t.hook = hook }

// PushOp buffers op for the next commit.
func (t *Transaction) PushOp(op oplog.Op) { t.pendingOps = append(t.pendingOps, op) }

// Pending reports the number of buffered ops.
func (t *Transaction) Pending() int { return len(t.pendingOps) }

// Commit assigns ids/lamports to every buffered op, builds a Change, and
// appends it to the OpLog:
//
//  1. starting counter = vv[peer], starting lamport = next_lamport(frontiers)
//  2. deps = current frontiers, message/timestamp from opts (or the
//     pre-commit hook's rewrite)
//  3. append to OpLog
//
// An empty commit (no buffered ops) does not append a Change. An explicit
// empty commit discards opts outright; an implicit one (isExplicit=false,
// e.g. the commit-before-export/checkout path) carries opts forward so the
// next real commit uses them.
func (t *Transaction) Commit(isExplicit bool, opts CommitOptions) (*oplog.Change, error) {
	if len(t.pendingOps) == 0 {
		if !isExplicit {
			t.carried = &opts
		}
		return nil, nil
	}

	effective := opts
	if t.carried != nil {
		effective = *t.carried
		t.carried = nil
	}

	startCounter := t.log.NextID(t.peer).Counter
	startLamport := t.log.FrontiersToNextLamport(t.log.Frontiers())

	var atomLen int32
	ops := make([]oplog.Op, len(t.pendingOps))
	for i, op := range t.pendingOps {
		op.Counter = startCounter + ids.Counter(atomLen)
		ops[i] = op
		atomLen += op.Len
	}

	meta := &CommitMeta{
		Message:   effective.Message,
		Timestamp: effective.Timestamp,
		Origin:    effective.Origin,
		changeID:  ids.ID{Peer: t.peer, Counter: startCounter},
		atomLen:   atomLen,
	}
	if t.hook != nil {
		t.hook(meta)
	}

	change := &oplog.Change{
		ID:        meta.changeID,
		AtomLen:   atomLen,
		Deps:      t.log.Frontiers(),
		Lamport:   startLamport,
		Timestamp: meta.Timestamp,
		Message:   meta.Message,
		Ops:       ops,
	}
	if err := t.log.Append(change); err != nil {
		return nil, err
	}
	t.pendingOps = nil
	return change, nil
}
