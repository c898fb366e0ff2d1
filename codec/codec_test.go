package codec

import (
	"testing"

	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/oplog"
)

func TestUvarintRoundTrip(t *testing.T) {
	for _, n := range []uint64{0, 1, 127, 128, 300, 1 << 40} {
		buf := PutUvarint(nil, n)
		got, w := Uvarint(buf)
		if got != n || w != len(buf) {
			t.Errorf("Uvarint(PutUvarint(%d)) = (%d, %d), want (%d, %d)", n, got, w, n, len(buf))
		}
	}
}

func TestSvarintRoundTripNegative(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 63, -64, 1000, -1000, -1 << 40} {
		buf := PutSvarint(nil, n)
		got, w := Svarint(buf)
		if got != n || w != len(buf) {
			t.Errorf("Svarint(PutSvarint(%d)) = (%d, %d), want (%d, %d)", n, got, w, n, len(buf))
		}
	}
}

func TestEncodeDecodeRle(t *testing.T) {
	vals := []int64{5, 5, 5, -1, -1, 9}
	buf := EncodeRle(nil, vals)
	got, w, ok := DecodeRle(buf)
	if !ok || w != len(buf) {
		t.Fatalf("DecodeRle failed: ok=%v w=%d len=%d", ok, w, len(buf))
	}
	if len(got) != len(vals) {
		t.Fatalf("got %v, want %v", got, vals)
	}
	for i := range vals {
		if got[i] != vals[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], vals[i])
		}
	}
}

func TestEncodeDecodeDeltaOfDelta(t *testing.T) {
	vals := []int64{100, 103, 106, 109, 200}
	buf := EncodeDeltaOfDelta(nil, vals)
	got, _, ok := DecodeDeltaOfDelta(buf)
	if !ok {
		t.Fatalf("decode failed")
	}
	if len(got) != len(vals) {
		t.Fatalf("got %v, want %v", got, vals)
	}
	for i := range vals {
		if got[i] != vals[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], vals[i])
		}
	}
}

func TestEnvelopeRoundTripAndChecksumDetectsCorruption(t *testing.T) {
	body := []byte("hello fast update body")
	env := WriteEnvelope(ModeFastUpdates, body)

	mode, got, err := ReadEnvelope(env)
	if err != nil {
		t.Fatalf("ReadEnvelope: %v", err)
	}
	if mode != ModeFastUpdates || string(got) != string(body) {
		t.Fatalf("got (%v, %q), want (%v, %q)", mode, got, ModeFastUpdates, body)
	}

	corrupt := append([]byte(nil), env...)
	corrupt[len(corrupt)-1] ^= 0xff
	if _, _, err := ReadEnvelope(corrupt); err != ErrChecksumMismatch {
		t.Errorf("ReadEnvelope(corrupt) err = %v, want ErrChecksumMismatch", err)
	}
}

func TestEncodeDecodeValueRoundTrip(t *testing.T) {
	vals := []container.Value{
		container.Null(),
		{Kind: container.ValueBool, Bool: true},
		{Kind: container.ValueBool, Bool: false},
		{Kind: container.ValueI64, I64: -42},
		{Kind: container.ValueF64, F64: 3.25},
		{Kind: container.ValueStr, Str: "hi there"},
		{Kind: container.ValueBinary, Bin: []byte{1, 2, 3}},
		{Kind: container.ValueList, List: []container.Value{{Kind: container.ValueI64, I64: 1}, {Kind: container.ValueStr, Str: "x"}}},
		{Kind: container.ValueMap, Map: map[string]container.Value{"a": {Kind: container.ValueI64, I64: 7}}},
	}
	for _, v := range vals {
		buf := EncodeValue(nil, v)
		got, w, ok := DecodeValue(buf)
		if !ok || w != len(buf) {
			t.Fatalf("DecodeValue(%v) failed: ok=%v w=%d len=%d", v, ok, w, len(buf))
		}
		if !got.Equal(v) {
			t.Errorf("DecodeValue(EncodeValue(%v)) = %v", v, got)
		}
	}
}

func TestFastUpdatesBlockRoundTrip(t *testing.T) {
	textID := container.ID{IsRoot: true, Name: "text", Kind: container.KindText}
	mapID := container.ID{IsRoot: true, Name: "meta", Kind: container.KindMap}

	changes := []*oplog.Change{
		{
			ID:        ids.ID{Peer: 7, Counter: 0},
			AtomLen:   2,
			Deps:      nil,
			Lamport:   0,
			Timestamp: 1000,
			Message:   "first",
			Ops: []oplog.Op{
				{Container: textID, Kind: oplog.OpTextInsert, Counter: 0, Len: 1, Text: "a"},
				{Container: mapID, Kind: oplog.OpMapSet, Counter: 1, Len: 1, Key: "title", Value: container.Value{Kind: container.ValueStr, Str: "hi"}},
			},
		},
		{
			ID:        ids.ID{Peer: 7, Counter: 2},
			AtomLen:   1,
			Deps:      ids.Frontiers{{Peer: 7, Counter: 1}},
			Lamport:   2,
			Timestamp: 1005,
			Message:   "",
			Ops: []oplog.Op{
				{Container: textID, Kind: oplog.OpTextDelete, Counter: 2, Len: 1, DeleteStartID: ids.ID{Peer: 7, Counter: 0}, DeleteLen: 1},
			},
		},
	}

	blk := EncodeBlock(changes)
	got, err := DecodeBlock(blk)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if len(got) != len(changes) {
		t.Fatalf("got %d changes, want %d", len(got), len(changes))
	}
	for i, c := range changes {
		g := got[i]
		if g.ID != c.ID || g.AtomLen != c.AtomLen || g.Lamport != c.Lamport || g.Timestamp != c.Timestamp || g.Message != c.Message {
			t.Fatalf("change[%d] = %+v, want %+v", i, g, c)
		}
		if !g.Deps.Equal(c.Deps) {
			t.Fatalf("change[%d].Deps = %+v, want %+v", i, g.Deps, c.Deps)
		}
		if len(g.Ops) != len(c.Ops) {
			t.Fatalf("change[%d] has %d ops, want %d", i, len(g.Ops), len(c.Ops))
		}
		for j, op := range c.Ops {
			gop := g.Ops[j]
			if gop.Container != op.Container || gop.Kind != op.Kind || gop.Len != op.Len {
				t.Errorf("change[%d].Ops[%d] = %+v, want %+v", i, j, gop, op)
			}
			switch op.Kind {
			case oplog.OpTextInsert:
				if gop.Text != op.Text {
					t.Errorf("Text = %q, want %q", gop.Text, op.Text)
				}
			case oplog.OpMapSet:
				if gop.Key != op.Key || !gop.Value.Equal(op.Value) {
					t.Errorf("MapSet = %+v, want %+v", gop, op)
				}
			case oplog.OpTextDelete:
				if gop.DeleteStartID != op.DeleteStartID || gop.DeleteLen != op.DeleteLen {
					t.Errorf("TextDelete = %+v, want %+v", gop, op)
				}
			}
		}
	}
}

func TestFastSnapshotRoundTrip(t *testing.T) {
	oplogBytes := []byte("oplog-kv-blob")
	shallow := []byte("")
	env := WriteFastSnapshot(oplogBytes, StateAbsent, shallow)

	gotOplog, gotState, gotShallow, err := ReadFastSnapshot(env)
	if err != nil {
		t.Fatalf("ReadFastSnapshot: %v", err)
	}
	if string(gotOplog) != string(oplogBytes) {
		t.Errorf("oplogBytes = %q, want %q", gotOplog, oplogBytes)
	}
	if !IsStateAbsent(gotState) {
		t.Errorf("expected state-absent sentinel, got %q", gotState)
	}
	if len(gotShallow) != 0 {
		t.Errorf("expected empty shallow section, got %q", gotShallow)
	}
}
