package diff

import (
	"testing"

	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/oplog"
)

func TestDiffGroupsOpsByContainer(t *testing.T) {
	log := oplog.New()
	textID, err := container.Root("text", container.KindText)
	if err != nil {
		t.Fatalf("container.Root: %v", err)
	}
	mapID, err := container.Root("meta", container.KindMap)
	if err != nil {
		t.Fatalf("container.Root: %v", err)
	}

	from := log.VersionVector()
	c := &oplog.Change{
		ID:      ids.ID{Peer: 1, Counter: 0},
		AtomLen: 2,
		Ops: []oplog.Op{
			{Container: textID, Kind: oplog.OpTextInsert, Counter: 0, Len: 1, Text: "a"},
			{Container: mapID, Kind: oplog.OpMapSet, Counter: 1, Len: 1, Key: "title", Value: container.Value{Kind: container.ValueStr, Str: "hi"}},
		},
	}
	if err := log.Append(c); err != nil {
		t.Fatalf("append: %v", err)
	}
	to := log.VersionVector()

	svc := New(log)
	batch := svc.Diff(from, to, CauseLocal)
	if batch.Cause != CauseLocal {
		t.Errorf("Cause = %v, want CauseLocal", batch.Cause)
	}
	if len(batch.Diffs) != 2 {
		t.Fatalf("expected 2 container diffs, got %d: %+v", len(batch.Diffs), batch.Diffs)
	}

	var sawText, sawMap bool
	for _, d := range batch.Diffs {
		if d.Container == textID {
			sawText = true
			if len(d.TextOps) != 1 || d.TextOps[0].Insert != "a" {
				t.Errorf("text diff = %+v, want one insert \"a\"", d.TextOps)
			}
		}
		if d.Container == mapID {
			sawMap = true
			if d.MapOps == nil || d.MapOps.Set["title"].Str != "hi" {
				t.Errorf("map diff = %+v, want title=hi", d.MapOps)
			}
		}
	}
	if !sawText || !sawMap {
		t.Fatalf("expected diffs for both containers, got %+v", batch.Diffs)
	}
}

func TestDiffEmptyIntervalYieldsNoDiffs(t *testing.T) {
	log := oplog.New()
	svc := New(log)
	batch := svc.Diff(ids.VersionVector{}, ids.VersionVector{}, CauseCheckout)
	if len(batch.Diffs) != 0 {
		t.Fatalf("expected no diffs for an empty interval, got %+v", batch.Diffs)
	}
}
