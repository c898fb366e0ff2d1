package loro

import (
	"github.com/loro-dev/loro/container"
	"github.com/loro-dev/loro/oplog"
)

// CounterHandle is a reference to a Counter container.
type CounterHandle struct {
	d  *Doc
	id container.ID
}

func (h *CounterHandle) ID() container.ID { return h.id }

// Increment adds delta (negative to decrement) to the counter.
func (h *CounterHandle) Increment(delta int64) error {
	e, err := h.d.entry(h.id)
	if err != nil {
		return err
	}
	id := h.d.nextLocalID(1)
	e.c.Apply(delta)
	h.d.pushOp(oplog.Op{
		Container: h.id,
		Kind:      oplog.OpCounterInc,
		Counter:   id.Counter,
		Len:       1,
		Delta:     delta,
	})
	return nil
}

// Value returns the counter's current total.
func (h *CounterHandle) Value() int64 {
	e, err := h.d.entry(h.id)
	if err != nil {
		return 0
	}
	return e.c.Value()
}
