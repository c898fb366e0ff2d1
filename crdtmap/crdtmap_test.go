package crdtmap

import (
	"testing"

	"github.com/loro-dev/loro/ids"
)

func TestMapLastWriterWins(t *testing.T) {
	m := NewMap()
	m.Set("k", "a", ids.IdLp{Lamport: 1, Peer: 1})
	m.Set("k", "b", ids.IdLp{Lamport: 2, Peer: 1})
	// Stale concurrent write at a lower lamport must not override.
	m.Set("k", "stale", ids.IdLp{Lamport: 1, Peer: 9})

	v, ok := m.Get("k")
	if !ok || v != "b" {
		t.Fatalf("Get(k) = %v, %v; want \"b\", true", v, ok)
	}
}

func TestMapDeleteIsTombstoneNotRemoval(t *testing.T) {
	m := NewMap()
	m.Set("k", "a", ids.IdLp{Lamport: 1, Peer: 1})
	m.Delete("k", ids.IdLp{Lamport: 2, Peer: 1})
	if _, ok := m.Get("k"); ok {
		t.Fatalf("expected k to read as absent after delete")
	}
	// A concurrent set at a lower IdLp than the delete must not resurrect it.
	m.Set("k", "stale", ids.IdLp{Lamport: 1, Peer: 5})
	if _, ok := m.Get("k"); ok {
		t.Fatalf("stale concurrent set after delete must not resurrect the key")
	}
}

func TestCounterSumsDeltas(t *testing.T) {
	c := NewCounter()
	c.Apply(5)
	c.Apply(-2)
	c.Apply(10)
	if c.Value() != 13 {
		t.Fatalf("Value() = %d, want 13", c.Value())
	}
}
