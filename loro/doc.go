// Package loro wires the OpLog, Transaction, container CRDT state machines
// and diff calculator into the document-level runtime: container handles
// keyed by root name, commit/import/export, version queries, and event
// subscription.
package loro

import (
	"sync"

	golog "github.com/ipfs/go-log"

	"github.com/loro-dev/loro/config"
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/diff"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/oplog"
	"github.com/loro-dev/loro/txn"
)

var log = golog.Logger("loro")

// Doc is a single replica of a collaborative document. It is not safe for
// concurrent use — a document is owned by one logical task at a time — the
// embedded mutex exists only to guard the pending-event queue against a
// listener re-entering Doc from another goroutine, not to allow concurrent
// mutation.
type Doc struct {
	mu sync.Mutex

	cfg *config.Config

	peer ids.PeerID
	ol   *oplog.OpLog
	tx   *txn.Transaction
	dif  *diff.Service

	containers map[string]*containerEntry // keyed by container.ID.Key()
	roots      map[string]container.ID    // root name -> container id

	// Eager local-id assignment: every handle mutation during a pending
	// batch gets its id from this running counter, using the same formula
	// txn.Commit itself uses at commit time (NextID/FrontiersToNextLamport
	// against the current frontiers). That formula is invariant across a
	// pending batch because only Append/Import — which happen only at an
	// actual commit (Import commits any buffered ops before it merges) —
	// change the log's frontiers, so txn.Commit's own
	// (redundant) recomputation at commit time is guaranteed to agree.
	pendingAtomLen      int32
	pendingCounterStart ids.Counter
	pendingLamportStart ids.Lamport

	seenPeers       map[ids.PeerID]bool
	preCommitSubs   []func(*txn.CommitMeta)
	firstCommitSubs []func(ids.PeerID)

	eventSubs    []func(*diff.EventBatch)
	pendingBatch []*diff.EventBatch
}

// New returns an empty document for peer. cfg may be nil, in which case
// config.DefaultConfig() is used.
func New(peer ids.PeerID, cfg *config.Config) *Doc {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	ol := oplog.New()
	d := &Doc{
		cfg:        cfg,
		peer:       peer,
		ol:         ol,
		tx:         txn.New(ol, peer),
		dif:        diff.New(ol),
		containers: map[string]*containerEntry{},
		roots:      map[string]container.ID{},
		seenPeers:  map[ids.PeerID]bool{},
	}
	d.tx.SetPreCommitHook(d.dispatchPreCommit)
	return d
}

// Config returns the document's configuration.
func (d *Doc) Config() *config.Config { return d.cfg }

// PeerID returns the local peer id used for new local ops.
func (d *Doc) PeerID() ids.PeerID { return d.peer }

// SetPeerID changes the local peer id. It fails while ops are buffered in
// the current transaction, since those ops' ids were assigned against the
// old peer.
func (d *Doc) SetPeerID(peer ids.PeerID) error {
	if d.tx.Pending() > 0 {
		return ErrPendingTransaction
	}
	d.peer = peer
	d.tx = txn.New(d.ol, peer)
	d.tx.SetPreCommitHook(d.dispatchPreCommit)
	d.pendingAtomLen = 0
	return nil
}

// nextLocalID reserves n atoms' worth of ids for an eager local mutation,
// computing the batch's starting counter/lamport on the first call since the
// last commit and advancing pendingAtomLen thereafter.
func (d *Doc) nextLocalID(n int32) ids.IdFull {
	if d.pendingAtomLen == 0 {
		d.pendingCounterStart = d.ol.NextID(d.peer).Counter
		d.pendingLamportStart = d.ol.FrontiersToNextLamport(d.ol.Frontiers())
	}
	id := ids.IdFull{
		Peer:    d.peer,
		Counter: d.pendingCounterStart + ids.Counter(d.pendingAtomLen),
		Lamport: d.pendingLamportStart + ids.Lamport(d.pendingAtomLen),
	}
	d.pendingAtomLen += n
	return id
}

func (d *Doc) pushOp(op oplog.Op) { d.tx.PushOp(op) }

// dispatchPreCommit fans a single txn.PreCommitHook slot out to every
// subscriber registered via SubscribePreCommit.
func (d *Doc) dispatchPreCommit(meta *txn.CommitMeta) {
	for _, sub := range d.preCommitSubs {
		sub(meta)
	}
}

// noteChangeObserved fires subscribeFirstCommitFromPeer the first time this
// Doc sees any change from a given peer, whether created locally or merged
// in via Import.
func (d *Doc) noteChangeObserved(c *oplog.Change) {
	if d.seenPeers[c.ID.Peer] {
		return
	}
	d.seenPeers[c.ID.Peer] = true
	for _, sub := range d.firstCommitSubs {
		sub(c.ID.Peer)
	}
}

// SubscribePreCommit registers a hook invoked just before a local commit's
// Change is built, letting it rewrite the commit's message/timestamp/origin.
// It returns an unsubscribe function.
func (d *Doc) SubscribePreCommit(hook func(*txn.CommitMeta)) (unsubscribe func()) {
	d.preCommitSubs = append(d.preCommitSubs, hook)
	idx := len(d.preCommitSubs) - 1
	return func() { d.preCommitSubs[idx] = func(*txn.CommitMeta) {} }
}

// SubscribeFirstCommitFromPeer registers a listener fired the first time
// this Doc observes a change from a given peer (local commit or import).
func (d *Doc) SubscribeFirstCommitFromPeer(fn func(ids.PeerID)) (unsubscribe func()) {
	d.firstCommitSubs = append(d.firstCommitSubs, fn)
	idx := len(d.firstCommitSubs) - 1
	return func() { d.firstCommitSubs[idx] = func(ids.PeerID) {} }
}

// Subscribe registers a listener for LoroEventBatches. It returns an
// unsubscribe function.
func (d *Doc) Subscribe(fn func(*diff.EventBatch)) (unsubscribe func()) {
	d.eventSubs = append(d.eventSubs, fn)
	idx := len(d.eventSubs) - 1
	return func() { d.eventSubs[idx] = func(*diff.EventBatch) {} }
}

func (d *Doc) queueEvent(b *diff.EventBatch) {
	if b == nil || len(b.Diffs) == 0 {
		return
	}
	d.mu.Lock()
	d.pendingBatch = append(d.pendingBatch, b)
	d.mu.Unlock()
}

// flushEvents delivers every queued EventBatch to subscribers. Called once
// at the end of Commit, Import and RevertTo (ApplyDiff only buffers ops;
// their events come with the Commit that follows): events are enqueued and
// flushed at the host boundary so
// listeners never run mid-mutation.
func (d *Doc) flushEvents() {
	d.mu.Lock()
	batch := d.pendingBatch
	d.pendingBatch = nil
	d.mu.Unlock()
	for _, b := range batch {
		for _, sub := range d.eventSubs {
			sub(b)
		}
	}
}

// CommitOptions is the caller-supplied metadata for a commit.
type CommitOptions = txn.CommitOptions

// Commit flushes the buffered local ops into a Change and delivers the
// resulting event batch. A commit with nothing buffered is a no-op
// returning a nil Change.
func (d *Doc) Commit(opts CommitOptions) (*oplog.Change, error) {
	return d.commit(true, opts)
}

func (d *Doc) commit(explicit bool, opts CommitOptions) (*oplog.Change, error) {
	fromVV := d.ol.VersionVector()
	change, err := d.tx.Commit(explicit, opts)
	if err != nil {
		return nil, err
	}
	d.pendingAtomLen = 0
	if change == nil {
		return nil, nil
	}
	d.noteChangeObserved(change)
	toVV := d.ol.VersionVector()
	d.queueEvent(d.dif.Diff(fromVV, toVV, diff.CauseLocal))
	d.flushEvents()
	return change, nil
}

// Version returns a copy of the document's current version vector.
func (d *Doc) Version() ids.VersionVector { return d.ol.VersionVector() }

// Frontiers returns a copy of the document's current frontiers.
func (d *Doc) Frontiers() ids.Frontiers { return d.ol.Frontiers() }

// VVToFrontiers converts a version vector to its minimal-antichain
// frontiers representation.
func (d *Doc) VVToFrontiers(vv ids.VersionVector) ids.Frontiers { return d.ol.VVToFrontiers(vv) }

// FrontiersToVV converts frontiers to their implied version vector.
func (d *Doc) FrontiersToVV(f ids.Frontiers) ids.VersionVector { return d.ol.FrontiersToVV(f) }

// FrontierOrder reports how the document's current frontiers compare
// causally to other: -1 the document's frontiers strictly precede other,
// 0 concurrent/equal, 1 other strictly precedes the document's frontiers.
type FrontierOrder int

const (
	FrontierBefore FrontierOrder = -1
	FrontierConcurrent FrontierOrder = 0
	FrontierAfter FrontierOrder = 1
)

// CmpWithFrontiers compares the document's current frontiers against other.
func (d *Doc) CmpWithFrontiers(other ids.Frontiers) FrontierOrder {
	cur := d.ol.Frontiers()
	curLeadsOther := everyAncestorOf(d.ol, other, cur)
	otherLeadsCur := everyAncestorOf(d.ol, cur, other)
	switch {
	case curLeadsOther && !otherLeadsCur:
		return FrontierAfter
	case otherLeadsCur && !curLeadsOther:
		return FrontierBefore
	default:
		return FrontierConcurrent
	}
}

// everyAncestorOf reports whether every id in ancestors is a causal
// ancestor of (or equal to an element of) descendants.
func everyAncestorOf(ol *oplog.OpLog, ancestors, descendants ids.Frontiers) bool {
	for _, a := range ancestors {
		found := false
		for _, b := range descendants {
			if a == b || ol.IsAncestor(a, b) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
