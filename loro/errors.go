package loro

import "errors"

var (
	// ErrRootKindMismatch is returned by getX(name) when name was already
	// used to attach a container of a different kind.
	ErrRootKindMismatch = errors.New("loro: root container name already attached to a different container kind")

	// ErrInvalidRootName mirrors container.Root's validation (non-empty, no
	// '/' or NUL byte).
	ErrInvalidRootName = errors.New("loro: invalid root container name")

	// ErrFractionalIndexDisabled is returned by MovableListHandle Insert and
	// Move when Config.MovableListFractionalIndexEnabled is false.
	ErrFractionalIndexDisabled = errors.New("loro: fractional indices are disabled in this document's configuration")

	// ErrPendingTransaction is returned by SetPeerID when local ops are
	// buffered but not yet committed — changing peer mid-batch would let
	// the buffered ops' ids collide with ids assigned under the new peer.
	ErrPendingTransaction = errors.New("loro: cannot change peer id with uncommitted local ops pending")

	// ErrUnknownContainer is returned when a handle outlives a checkout
	// that detached its container, or references a container id this Doc
	// has never seen.
	ErrUnknownContainer = errors.New("loro: unknown container")
)
