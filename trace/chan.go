package trace

import (
	"sync/atomic"

	"go.creack.net/evm/vm"
)

// Chan forwards events to a channel for the monitors.
// Events are dropped rather than blocking the vm when the channel is full.
type Chan struct {
	C       chan vm.Event
	dropped atomic.Uint64
}

func NewChan(size int) *Chan {
	return &Chan{C: make(chan vm.Event, size)}
}

func (c *Chan) Trace(ev vm.Event) {
	select {
	case c.C <- ev:
	default:
		c.dropped.Add(1)
	}
}

// Dropped returns how many events didn't fit in the channel.
func (c *Chan) Dropped() uint64 { return c.dropped.Load() }

type multi []vm.Tracer

func (m multi) Trace(ev vm.Event) {
	for _, elem := range m {
		elem.Trace(ev)
	}
}

// Multi duplicates the events to every non nil tracer.
// Returns nil when there are none so the vm skips tracing entirely.
func Multi(tracers ...vm.Tracer) vm.Tracer {
	var m multi
	for _, elem := range tracers {
		if elem != nil {
			m = append(m, elem)
		}
	}
	switch len(m) {
	case 0:
		return nil
	case 1:
		return m[0]
	default:
		return m
	}
}
