package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/crdtmap"
	"github.com/loro-dev/loro/movablelist"
	"github.com/loro-dev/loro/richtext"
	"github.com/loro-dev/loro/tree"
)

// containerEntry holds one container's live CRDT state, tagged by kind.
// Only the field matching entry.id.Kind is populated.
type containerEntry struct {
	id container.ID

	m  *crdtmap.Map
	l  *list
	ml *movablelist.List
	tx *richtext.Text
	tr *tree.Tree
	c  *crdtmap.Counter
}

func newContainerEntry(id container.ID) *containerEntry {
	e := &containerEntry{id: id}
	switch id.Kind {
	case container.KindMap:
		e.m = crdtmap.NewMap()
	case container.KindList:
		e.l = newList()
	case container.KindMovableList:
		e.ml = movablelist.New()
	case container.KindText:
		e.tx = richtext.New()
	case container.KindTree:
		e.tr = tree.New()
	case container.KindCounter:
		e.c = crdtmap.NewCounter()
	}
	return e
}

// getOrCreateRoot returns the container entry for root name/kind, creating
// it on first access. A name reused with a different kind is an error: a
// root name is bound to exactly one kind for the life of the document.
func (d *Doc) getOrCreateRoot(name string, kind container.Kind) (*containerEntry, error) {
	if existing, ok := d.roots[name]; ok {
		if existing.Kind != kind {
			return nil, ErrRootKindMismatch
		}
		return d.containers[existing.Key()], nil
	}
	id, err := container.Root(name, kind)
	if err != nil {
		return nil, ErrInvalidRootName
	}
	entry := newContainerEntry(id)
	d.roots[name] = id
	d.containers[id.Key()] = entry
	return entry, nil
}

// getOrCreateNormal returns the entry for a Normal (non-root) container,
// creating it if this is the first time it's referenced (e.g. while
// replaying remote ops, or materializing a container.Value reference seen
// as a nested value).
func (d *Doc) getOrCreateNormal(id container.ID) *containerEntry {
	if e, ok := d.containers[id.Key()]; ok {
		return e
	}
	e := newContainerEntry(id)
	d.containers[id.Key()] = e
	return e
}

// GetMap returns the Map root container named name, creating it if absent.
func (d *Doc) GetMap(name string) (*MapHandle, error) {
	e, err := d.getOrCreateRoot(name, container.KindMap)
	if err != nil {
		return nil, err
	}
	return &MapHandle{d: d, id: e.id}, nil
}

// GetList returns the List root container named name, creating it if absent.
func (d *Doc) GetList(name string) (*ListHandle, error) {
	e, err := d.getOrCreateRoot(name, container.KindList)
	if err != nil {
		return nil, err
	}
	return &ListHandle{d: d, id: e.id}, nil
}

// GetMovableList returns the MovableList root container named name, creating
// it if absent.
func (d *Doc) GetMovableList(name string) (*MovableListHandle, error) {
	e, err := d.getOrCreateRoot(name, container.KindMovableList)
	if err != nil {
		return nil, err
	}
	return &MovableListHandle{d: d, id: e.id}, nil
}

// GetText returns the Text root container named name, creating it if absent.
func (d *Doc) GetText(name string) (*TextHandle, error) {
	e, err := d.getOrCreateRoot(name, container.KindText)
	if err != nil {
		return nil, err
	}
	return &TextHandle{d: d, id: e.id}, nil
}

// GetTree returns the Tree root container named name, creating it if absent.
func (d *Doc) GetTree(name string) (*TreeHandle, error) {
	e, err := d.getOrCreateRoot(name, container.KindTree)
	if err != nil {
		return nil, err
	}
	return &TreeHandle{d: d, id: e.id}, nil
}

// GetCounter returns the Counter root container named name, creating it if
// absent.
func (d *Doc) GetCounter(name string) (*CounterHandle, error) {
	e, err := d.getOrCreateRoot(name, container.KindCounter)
	if err != nil {
		return nil, err
	}
	return &CounterHandle{d: d, id: e.id}, nil
}

func (d *Doc) entry(id container.ID) (*containerEntry, error) {
	e, ok := d.containers[id.Key()]
	if !ok {
		return nil, ErrUnknownContainer
	}
	return e, nil
}
