package oplog

import "github.com/loro-dev/loro/ids"

// Change is one causally-ordered DAG node: a contiguous run of op atoms from
// a single peer, plus its commit metadata.
type Change struct {
	ID        ids.ID
	AtomLen   int32
	Deps      ids.Frontiers
	Lamport   ids.Lamport
	Timestamp int64
	Message   string
	Ops       []Op
}

// IDLast returns the id of this change's last op atom.
func (c *Change) IDLast() ids.ID {
	return c.ID.Inc(c.AtomLen - 1)
}

// LamportLast returns the lamport of this change's last op atom.
func (c *Change) LamportLast() ids.Lamport {
	return c.Lamport + ids.Lamport(c.AtomLen) - 1
}

// LamportOf returns the lamport of the atom named by id, assuming id falls
// within this change's atom span. Atoms have contiguous lamports within a
// change.
func (c *Change) LamportOf(id ids.ID) ids.Lamport {
	return c.Lamport + ids.Lamport(id.Counter-c.ID.Counter)
}

// Covers reports whether id names an atom belonging to this change.
func (c *Change) Covers(id ids.ID) bool {
	if id.Peer != c.ID.Peer {
		return false
	}
	return id.Counter >= c.ID.Counter && id.Counter < c.ID.Counter+ids.Counter(c.AtomLen)
}
