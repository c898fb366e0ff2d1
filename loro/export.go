package loro

import (
	"errors"

	"github.com/loro-dev/loro/codec"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/kvstore"
	"github.com/loro-dev/loro/oplog"
)

// ExportMode selects the wire representation Export produces.
type ExportMode uint8

const (
	ExportUpdate ExportMode = iota
	ExportSnapshot
	ExportShallowSnapshot
)

// ErrInvalidExportMode is returned for an unrecognized ExportMode.
var ErrInvalidExportMode = errors.New("loro: invalid export mode")

// ExportOptions parameterizes Export. From is consulted only for
// ExportUpdate (changes the peer named by From doesn't have); Frontiers only
// for ExportShallowSnapshot (history older than Frontiers is dropped from
// the exported oplog).
type ExportOptions struct {
	Mode      ExportMode
	From      ids.VersionVector
	Frontiers ids.Frontiers
}

// Export serializes the document per opts.Mode.
func (d *Doc) Export(opts ExportOptions) ([]byte, error) {
	switch opts.Mode {
	case ExportUpdate:
		from := opts.From
		if from == nil {
			from = ids.VersionVector{}
		}
		changes := d.ol.IterInCausalOrder(from, d.ol.VersionVector())
		return codec.EncodeFastUpdates(groupByPeer(changes)), nil

	case ExportSnapshot:
		all := d.ol.IterInCausalOrder(ids.VersionVector{}, d.ol.VersionVector())
		oplogBytes := codec.EncodeFastUpdates(groupByPeer(all))
		return codec.WriteFastSnapshot(oplogBytes, codec.StateAbsent, nil), nil

	case ExportShallowSnapshot:
		fromVV := d.ol.FrontiersToVV(opts.Frontiers)
		all := d.ol.IterInCausalOrder(fromVV, d.ol.VersionVector())
		oplogBytes := codec.EncodeFastUpdates(groupByPeer(all))
		shallow := d.shallowRootState()
		return codec.WriteFastSnapshot(oplogBytes, codec.StateAbsent, shallow), nil

	default:
		return nil, ErrInvalidExportMode
	}
}

// shallowRootState stores the document's current toJSON value under a
// single kvstore key, letting a shallow-snapshot recipient materialize
// container values without replaying the (possibly truncated) oplog.
// Simplified relative to a full LCA/boundary-advance algorithm — see
// DESIGN.md.
func (d *Doc) shallowRootState() []byte {
	w := kvstore.NewWriter()
	w.Put([]byte("root"), codec.EncodeValue(nil, d.ToJSON()))
	return w.Finish()
}

func groupByPeer(changes []*oplog.Change) [][]*oplog.Change {
	byPeer := map[ids.PeerID][]*oplog.Change{}
	var order []ids.PeerID
	for _, c := range changes {
		if _, ok := byPeer[c.ID.Peer]; !ok {
			order = append(order, c.ID.Peer)
		}
		byPeer[c.ID.Peer] = append(byPeer[c.ID.Peer], c)
	}
	var blocks [][]*oplog.Change
	for _, p := range order {
		blocks = append(blocks, byPeer[p])
	}
	return blocks
}
