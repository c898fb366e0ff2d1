// Package crdtmap implements the LWW Map and summing Counter container
// state machines.
package crdtmap

import "github.com/loro-dev/loro/ids"

// entry is one key's current value and the IdLp that wrote it, used to
// arbitrate concurrent writes by last-writer-wins.
type entry struct {
	value     interface{}
	tombstone bool
	idlp      ids.IdLp
}

// Map is a last-writer-wins key/value container. Deletes are tombstone
// writes, not physical removal, so a late-arriving concurrent Set does not
// resurrect a key that should stay deleted unless it actually wins the
// IdLp race.
type Map struct {
	entries map[string]entry
}

// NewMap returns an empty Map.
func NewMap() *Map { return &Map{entries: map[string]entry{}} }

// Set applies a write at idlp, keeping it only if idlp is greater than the
// key's current writer — concurrent writes are arbitrated by IdLp, latest
// wins.
func (m *Map) Set(key string, value interface{}, idlp ids.IdLp) {
	m.apply(key, value, false, idlp)
}

// Delete writes a tombstone at idlp, subject to the same LWW arbitration as
// Set.
func (m *Map) Delete(key string, idlp ids.IdLp) {
	m.apply(key, nil, true, idlp)
}

func (m *Map) apply(key string, value interface{}, tombstone bool, idlp ids.IdLp) {
	if cur, ok := m.entries[key]; ok && idlp.Less(cur.idlp) {
		// A stale write arrived out of order; the current entry already won.
		return
	}
	m.entries[key] = entry{value: value, tombstone: tombstone, idlp: idlp}
}

// Get returns the current value for key and whether it is present
// (i.e. set and not since deleted).
func (m *Map) Get(key string) (interface{}, bool) {
	e, ok := m.entries[key]
	if !ok || e.tombstone {
		return nil, false
	}
	return e.value, true
}

// Keys returns the live (non-tombstoned) keys, unordered.
func (m *Map) Keys() []string {
	var out []string
	for k, e := range m.entries {
		if !e.tombstone {
			out = append(out, k)
		}
	}
	return out
}

// Len returns the count of live keys.
func (m *Map) Len() int { return len(m.Keys()) }

// Snapshot returns a copy of all live key/value pairs.
func (m *Map) Snapshot() map[string]interface{} {
	out := make(map[string]interface{}, len(m.entries))
	for k, e := range m.entries {
		if !e.tombstone {
			out[k] = e.value
		}
	}
	return out
}

// Counter is a CRDT summing counter: every op's signed delta commutes and
// associates, so no conflict arbitration is needed beyond plain addition.
type Counter struct {
	value int64
}

// NewCounter returns a Counter at zero.
func NewCounter() *Counter { return &Counter{} }

// Apply adds delta to the counter's running total.
func (c *Counter) Apply(delta int64) { c.value += delta }

// Value returns the current total.
func (c *Counter) Value() int64 { return c.value }
