package binding

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/codec"
	"github.com/wippyai/heapbind/errors"
)

// Gate is the single path for reference writes into the foreign heap. It
// has no state of its own beyond an optional counter.
type Gate struct {
	collector     heapbind.Collector
	mem           heapbind.Memory
	notifications prometheus.Counter
	pointerSize   uint32
}

// NewGate creates a gate that stores through mem and notifies collector.
func NewGate(mem heapbind.Memory, collector heapbind.Collector, pointerSize uint32) *Gate {
	return &Gate{collector: collector, mem: mem, pointerSize: pointerSize}
}

// Store writes value into the pointer-sized slot and notifies the collector
// as part of the same operation. A failed write is not reported to the
// collector; nothing changed.
func (g *Gate) Store(slot, value heapbind.Addr) error {
	if err := codec.WritePointer(g.mem, slot, g.pointerSize, value); err != nil {
		return err
	}
	return g.Notify(slot, value)
}

// Notify tells the collector that slot now holds value. It is called for
// null values too.
func (g *Gate) Notify(slot, value heapbind.Addr) error {
	if g.notifications != nil {
		g.notifications.Inc()
	}
	if err := g.collector.WriteBarrier(slot, value); err != nil {
		Logger().Error("write barrier failed",
			zap.Uint64("slot", uint64(slot)),
			zap.Uint64("value", uint64(value)),
			zap.Error(err))
		return errors.Barrier(uint64(slot), uint64(value), err)
	}
	return nil
}
