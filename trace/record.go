// Package trace provides the execution trace sinks of the vm.
package trace

import (
	"fmt"
	"time"

	"go.creack.net/evm/vm"
)

// Record is the serialized form of a vm.Event.
type Record struct {
	Time    int64  `json:"time" cbor:"time"` // Unix milliseconds.
	Type    string `json:"type" cbor:"type"`
	Thread  uint64 `json:"thread" cbor:"thread"`
	PC      uint32 `json:"pc" cbor:"pc"` // Bit address.
	Message string `json:"msg,omitempty" cbor:"msg,omitempty"`
}

func NewRecord(ev vm.Event) Record {
	return Record{
		Time:    ev.Time.UnixMilli(),
		Type:    ev.Type.String(),
		Thread:  ev.ThreadID,
		PC:      ev.PC,
		Message: ev.Message,
	}
}

// String renders the record as a text trace line, without the newline.
// Instructions: `T<id> <unix-ms> 0x<pc>: <instruction>`.
// Other events have their type in front of the message.
func (r Record) String() string {
	msg := r.Message
	if r.Type != vm.EventInstruction.String() {
		msg = "[" + r.Type + "]"
		if r.Message != "" {
			msg += " " + r.Message
		}
	}
	return fmt.Sprintf("T%d %d 0x%08x: %s", r.Thread, r.Time, r.PC, msg)
}

// When returns the record time.
func (r Record) When() time.Time {
	return time.UnixMilli(r.Time)
}
