package vm

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.creack.net/evm/op"
)

type ThreadState int32

const (
	ThreadCreated ThreadState = iota
	ThreadRunning
	ThreadTerminated
)

func (s ThreadState) String() string {
	switch s {
	case ThreadCreated:
		return "created"
	case ThreadRunning:
		return "running"
	case ThreadTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Thread is one execution unit. Registers, call stack and program counter
// are owned by the thread goroutine.
type Thread struct {
	ID  uint64
	app *Application

	registers [op.RegisterCount]uint64
	stack     []uint32
	pc        uint32 // Bit address of the next instruction.

	running  atomic.Bool
	state    atomic.Int32
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error // Set before done is closed.
}

func newThread(app *Application, id uint64, pc uint32, registers [op.RegisterCount]uint64) *Thread {
	t := &Thread{
		ID:        id,
		app:       app,
		registers: registers,
		pc:        pc,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	// Set before the thread is visible so a Terminate racing with start wins.
	t.running.Store(true)
	return t
}

// Reg returns the value of register i.
func (t *Thread) Reg(i int) (uint64, error) {
	if i < 0 || i >= len(t.registers) {
		return 0, fmt.Errorf("%w: %d", ErrBadRegister, i)
	}
	return t.registers[i], nil
}

// SetReg sets register i.
func (t *Thread) SetReg(i int, v uint64) error {
	if i < 0 || i >= len(t.registers) {
		return fmt.Errorf("%w: %d", ErrBadRegister, i)
	}
	t.registers[i] = v
	return nil
}

// Registers returns a copy of the registers.
// Only safe from the thread itself or once it terminated.
func (t *Thread) Registers() [op.RegisterCount]uint64 { return t.registers }

// PC returns the program counter.
// Only safe from the thread itself or once it terminated.
func (t *Thread) PC() uint32 { return t.pc }

func (t *Thread) SetPC(pc uint32) { t.pc = pc }

func (t *Thread) Push(addr uint32) { t.stack = append(t.stack, addr) }

func (t *Thread) Pop() (uint32, error) {
	if len(t.stack) == 0 {
		return 0, fmt.Errorf("%w: empty stack", ErrCallStack)
	}
	addr := t.stack[len(t.stack)-1]
	t.stack = t.stack[:len(t.stack)-1]
	return addr, nil
}

func (t *Thread) State() ThreadState { return ThreadState(t.state.Load()) }

// Done is closed when the run loop exits.
func (t *Thread) Done() <-chan struct{} { return t.done }

// Join blocks until the thread terminates and returns its fault, if any.
func (t *Thread) Join() error {
	<-t.done
	return t.err
}

// Err returns the fault that stopped the thread. Only valid after Done.
func (t *Thread) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Terminate asks the run loop to stop. The current instruction completes
// unless it is blocked in lock, join or sleep.
func (t *Thread) Terminate() {
	t.running.Store(false)
	t.stopOnce.Do(func() { close(t.stop) })
}

func (t *Thread) start() {
	t.state.Store(int32(ThreadRunning))
	go t.run()
}

func (t *Thread) run() {
	defer close(t.done)
	defer t.state.Store(int32(ThreadTerminated))

	t.app.logger.Debugf("thread %d started at %d", t.ID, t.pc)
	t.app.emit(NewEvent(EventThreadStart, t.ID, t.pc, ""))
	for t.running.Load() {
		pc := t.pc
		if err := t.step(); err != nil {
			if errors.Is(err, errTerminated) {
				break
			}
			terr := &ThreadError{ThreadID: t.ID, PC: pc, Err: err}
			t.err = terr
			t.app.fault(terr)
			break
		}
	}
	t.app.logger.Debugf("thread %d exited at %d", t.ID, t.pc)
	t.app.emit(NewEvent(EventThreadExit, t.ID, t.pc, ""))
}

// step decodes and executes one instruction.
// The program counter is committed before execution so that
// jumps override it and call pushes the next instruction.
func (t *Thread) step() error {
	if g := t.app.cfg.Gate; g != nil {
		if err := g.wait(t.stop); err != nil {
			return err
		}
	}
	ins, next, err := Decode(t.app.program, t.pc)
	if err != nil {
		return err
	}
	if t.app.tracer != nil {
		t.app.emit(NewEvent(EventInstruction, t.ID, t.pc, ins.Describe(t)))
	}
	t.pc = next
	return t.exec(ins)
}

func (t *Thread) exec(ins *Instruction) error {
	f, ok := ops[ins.OpCode.Kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotImplemented, ins.OpCode.Name)
	}
	return f(t, ins)
}

// sleep blocks for ms milliseconds or until terminated.
func (t *Thread) sleep(ms uint64) error {
	d := time.Duration(math.MaxInt64)
	if ms < uint64(math.MaxInt64/int64(time.Millisecond)) {
		d = time.Duration(ms) * time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-t.stop:
		return errTerminated
	}
}
