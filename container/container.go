// Package container defines ContainerID, container kinds, and the JSON-like
// Value sum type shared by every container implementation.
package container

import (
	"fmt"
	"strings"

	"github.com/loro-dev/loro/ids"
)

// Kind enumerates the five CRDT container kinds (Counter is optional,
// included here for completeness of the value/encoding layer).
type Kind uint8

const (
	KindMap Kind = iota
	KindList
	KindMovableList
	KindText
	KindTree
	KindCounter
)

// String renders a Kind for logging and error messages.
func (k Kind) String() string {
	switch k {
	case KindMap:
		return "Map"
	case KindList:
		return "List"
	case KindMovableList:
		return "MovableList"
	case KindText:
		return "Text"
	case KindTree:
		return "Tree"
	case KindCounter:
		return "Counter"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// ID names a container, either a Root (named, always present) or a Normal
// container derived from the op that first created it.
type ID struct {
	IsRoot bool
	Name   string // valid when IsRoot

	Peer    ids.PeerID  // valid when !IsRoot
	Counter ids.Counter // valid when !IsRoot

	Kind Kind
}

// Root builds a Root ContainerID. name must be non-empty and must not
// contain '/' or a null byte.
func Root(name string, kind Kind) (ID, error) {
	if name == "" {
		return ID{}, fmt.Errorf("container: root name must not be empty")
	}
	if strings.ContainsRune(name, '/') || strings.ContainsRune(name, 0) {
		return ID{}, fmt.Errorf("container: root name %q must not contain '/' or NUL", name)
	}
	return ID{IsRoot: true, Name: name, Kind: kind}, nil
}

// Normal builds a Normal ContainerID from the id of the op that created it.
func Normal(creator ids.ID, kind Kind) ID {
	return ID{IsRoot: false, Peer: creator.Peer, Counter: creator.Counter, Kind: kind}
}

// Key returns a stable string uniquely identifying the container, suitable
// as a Go map key and as the KV store key for container-state sections.
func (id ID) Key() string {
	if id.IsRoot {
		return fmt.Sprintf("root:%s:%d", id.Name, id.Kind)
	}
	return fmt.Sprintf("normal:%d:%d:%d", id.Peer, id.Counter, id.Kind)
}

func (id ID) String() string { return id.Key() }

// ValueKind tags the variants of Value.
type ValueKind uint8

const (
	ValueNull ValueKind = iota
	ValueBool
	ValueI64
	ValueF64
	ValueStr
	ValueBinary
	ValueList
	ValueMap
	ValueContainer
	// ValueUnknown preserves a forward-compat payload this decoder does not
	// understand; Raw holds the undecoded bytes and Tag the original
	// high-bit-set tag byte.
	ValueUnknown
)

// Value is the JSON-like value type containers store: primitives, nested
// lists/maps of Value, or a reference to another container.
type Value struct {
	Kind ValueKind

	Bool bool
	I64  int64
	F64  float64
	Str  string
	Bin  []byte

	List []Value
	Map  map[string]Value

	Container ID

	Tag uint8
	Raw []byte
}

// Null is the null Value.
func Null() Value { return Value{Kind: ValueNull} }

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case ValueNull:
		return true
	case ValueBool:
		return v.Bool == o.Bool
	case ValueI64:
		return v.I64 == o.I64
	case ValueF64:
		return v.F64 == o.F64
	case ValueStr:
		return v.Str == o.Str
	case ValueBinary:
		return string(v.Bin) == string(o.Bin)
	case ValueList:
		if len(v.List) != len(o.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(o.List[i]) {
				return false
			}
		}
		return true
	case ValueMap:
		if len(v.Map) != len(o.Map) {
			return false
		}
		for k, vv := range v.Map {
			ov, ok := o.Map[k]
			if !ok || !vv.Equal(ov) {
				return false
			}
		}
		return true
	case ValueContainer:
		return v.Container == o.Container
	case ValueUnknown:
		return v.Tag == o.Tag && string(v.Raw) == string(o.Raw)
	default:
		return false
	}
}
