package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/oplog"
)

// MapHandle is a reference to a Map container, either a root or nested under
// another container as a ValueContainer reference.
type MapHandle struct {
	d  *Doc
	id container.ID
}

func (h *MapHandle) ID() container.ID { return h.id }

// Set assigns key to value, applying it to the live CRDT state immediately
// (eager local application) and buffering the corresponding op for the next
// Commit.
func (h *MapHandle) Set(key string, value container.Value) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	id := h.d.nextLocalID(1)
	e.m.Set(key, value, id.IdLp())
	h.d.pushOp(oplog.Op{
		Container: h.id,
		Kind:      oplog.OpMapSet,
		Counter:   id.Counter,
		Len:       1,
		Key:       key,
		Value:     value,
	})
	return nil
}

// Delete removes key (tombstone write, per crdtmap LWW semantics).
func (h *MapHandle) Delete(key string) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	id := h.d.nextLocalID(1)
	e.m.Delete(key, id.IdLp())
	h.d.pushOp(oplog.Op{
		Container: h.id,
		Kind:      oplog.OpMapSet,
		Counter:   id.Counter,
		Len:       1,
		Key:       key,
		IsDelete:  true,
	})
	return nil
}

// Get returns the current value for key.
func (h *MapHandle) Get(key string) (container.Value, bool) {
	e, err := h.d.entry(h.id)
	if err != nil {
		return container.Value{}, false
	}
	v, ok := e.m.Get(key)
	if !ok {
		return container.Value{}, false
	}
	return v.(container.Value), true
}

// Keys returns the live keys, unordered.
func (h *MapHandle) Keys() []string {
	e, err := h.d.entry(h.id)
	if err != nil {
		return nil
	}
	return e.m.Keys()
}

// Len returns the count of live keys.
func (h *MapHandle) Len() int {
	e, err := h.d.entry(h.id)
	if err != nil {
		return 0
	}
	return e.m.Len()
}

// Snapshot returns a copy of all live key/value pairs.
func (h *MapHandle) Snapshot() map[string]container.Value {
	e, err := h.d.entry(h.id)
	if err != nil {
		return nil
	}
	raw := e.m.Snapshot()
	out := make(map[string]container.Value, len(raw))
	for k, v := range raw {
		out[k] = v.(container.Value)
	}
	return out
}
