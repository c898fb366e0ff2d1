package oplog

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
)

// OpKind tags the variant stored in an Op. Ops are represented as a single
// flat, tagged struct rather than an interface, so a Change's op list is a
// plain slice with no per-element boxing.
type OpKind uint8

const (
	OpMapSet OpKind = iota
	OpListInsert
	OpListDelete
	OpTextInsert
	OpTextDelete
	OpTextMarkStart
	OpTextMarkEnd
	OpMovableListInsert
	OpMovableListDelete
	OpMovableListMove
	OpMovableListSet
	OpTreeCreate
	OpTreeMove
	OpTreeDelete
	OpCounterInc
)

// TreeParentKind discriminates the three things a tree node's parent can be.
type TreeParentKind uint8

const (
	TreeParentRoot TreeParentKind = iota
	TreeParentNode
	TreeParentDeleted
)

// Op is one domain-specific operation. Counter/Len give this op's atom span
// within the owning Change (Counter is the op's own first counter, Len the
// number of atoms it contributes — see Change.Ops).
type Op struct {
	Container container.ID
	Kind      OpKind
	Counter   ids.Counter
	Len       int32

	// List / MovableList / Text Insert: position and content. OriginLeft/
	// OriginRight are the Fugue placement anchors computed once by whoever
	// creates the op (sequence.Rope.InsertLocal); every other replica
	// integrates the same atoms via InsertRemote using these fixed anchors
	// rather than recomputing them from Pos, since Pos alone loses the
	// concurrent-insert context the creator saw. Also carried by
	// TextMarkStart/TextMarkEnd (anchors are rope atoms) and
	// MovableListMove (the item's new placement).
	Pos         int32
	Insert      []container.Value // List / MovableList insert content, len == Len
	Text        string            // Text insert content, rune count == Len
	OriginLeft  *ids.ID
	OriginRight *ids.ID

	// List / MovableList / Text Delete.
	DeleteStartID ids.ID
	DeleteLen     int32 // signed: sign carries delete direction; abs(DeleteLen) == Len
	Reversed      bool

	// Map set/delete (delete is IsDelete=true with no Value, a tombstone).
	Key      string
	Value    container.Value
	IsDelete bool

	// Text mark start/end.
	MarkInfo     uint8
	MarkKey      string
	MarkValue    container.Value
	MarkIsDelete bool // "unmark": insertion of an inverted-expand pair

	// MovableList Move. FromPos is the op-index position reported for diff
	// retain-counting only; the atom actually deleted is MoveFromItemID,
	// carried explicitly for the same reason as OriginLeft/OriginRight — a
	// replaying replica's rope need not assign the same op-index to the
	// same atom the creator saw.
	FromPos        int32
	MoveFromItemID ids.ID
	ElemID         ids.IdLp

	// Tree.
	Target        ids.ID
	ParentKind    TreeParentKind
	Parent        ids.ID // valid when ParentKind == TreeParentNode
	FractionalIdx string

	// Counter.
	Delta int64
}

// ID returns the id of this op's first atom.
func (o Op) ID(peer ids.PeerID) ids.ID {
	return ids.ID{Peer: peer, Counter: o.Counter}
}
