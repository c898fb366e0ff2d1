package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/ids"
	"github.com/loro-dev/loro/tree"
)

// ToJSON materializes the whole document as a deep container.Value: every
// ValueContainer reference reachable from a root is recursively resolved
// into its own content.
func (d *Doc) ToJSON() container.Value {
	out := map[string]container.Value{}
	for name, id := range d.roots {
		e := d.containers[id.Key()]
		out[name] = d.containerValue(e, true, map[string]bool{})
	}
	return container.Value{Kind: container.ValueMap, Map: out}
}

// GetShallowValue materializes only the roots' own content: nested
// ValueContainer references are left as references rather than recursively
// expanded.
func (d *Doc) GetShallowValue() container.Value {
	out := map[string]container.Value{}
	for name, id := range d.roots {
		e := d.containers[id.Key()]
		out[name] = d.containerValue(e, false, nil)
	}
	return container.Value{Kind: container.ValueMap, Map: out}
}

func (d *Doc) resolveValue(v container.Value, recurse bool, seen map[string]bool) container.Value {
	switch v.Kind {
	case container.ValueContainer:
		if !recurse {
			return v
		}
		key := v.Container.Key()
		if seen[key] {
			return v
		}
		seen[key] = true
		e, ok := d.containers[key]
		if !ok {
			return v
		}
		return d.containerValue(e, true, seen)
	case container.ValueList:
		out := make([]container.Value, len(v.List))
		for i, el := range v.List {
			out[i] = d.resolveValue(el, recurse, seen)
		}
		return container.Value{Kind: container.ValueList, List: out}
	case container.ValueMap:
		out := make(map[string]container.Value, len(v.Map))
		for k, el := range v.Map {
			out[k] = d.resolveValue(el, recurse, seen)
		}
		return container.Value{Kind: container.ValueMap, Map: out}
	default:
		return v
	}
}

func (d *Doc) containerValue(e *containerEntry, recurse bool, seen map[string]bool) container.Value {
	switch e.id.Kind {
	case container.KindMap:
		raw := e.m.Snapshot()
		out := make(map[string]container.Value, len(raw))
		for k, v := range raw {
			out[k] = d.resolveValue(v.(container.Value), recurse, seen)
		}
		return container.Value{Kind: container.ValueMap, Map: out}

	case container.KindList:
		raw := e.l.Snapshot()
		out := make([]container.Value, len(raw))
		for i, v := range raw {
			out[i] = d.resolveValue(v, recurse, seen)
		}
		return container.Value{Kind: container.ValueList, List: out}

	case container.KindMovableList:
		raw := e.ml.Snapshot()
		out := make([]container.Value, len(raw))
		for i, v := range raw {
			out[i] = d.resolveValue(v, recurse, seen)
		}
		return container.Value{Kind: container.ValueList, List: out}

	case container.KindText:
		var s string
		for _, op := range e.tx.ToDelta() {
			s += op.Insert
		}
		return container.Value{Kind: container.ValueStr, Str: s}

	case container.KindTree:
		return container.Value{Kind: container.ValueList, List: d.treeChildValues(e, tree.ParentRoot, ids.ID{})}

	case container.KindCounter:
		return container.Value{Kind: container.ValueI64, I64: e.c.Value()}

	default:
		return container.Null()
	}
}

func (d *Doc) treeChildValues(e *containerEntry, parentKind tree.ParentKind, parent ids.ID) []container.Value {
	children := e.tr.Children(parentKind, parent)
	out := make([]container.Value, 0, len(children))
	for _, n := range children {
		out = append(out, container.Value{
			Kind: container.ValueMap,
			Map: map[string]container.Value{
				"id":       {Kind: container.ValueStr, Str: n.ID.String()},
				"children": {Kind: container.ValueList, List: d.treeChildValues(e, tree.ParentNode, n.ID)},
			},
		})
	}
	return out
}
