package vm

import (
	"errors"
	"fmt"
)

// Decode-time errors.
var (
	ErrUnknownOpcode     = errors.New("unknown opcode")
	ErrNotImplemented    = errors.New("opcode not implemented")
	ErrProgramOutOfRange = errors.New("program memory out of range")
	ErrProgramTooLarge   = errors.New("program memory exceeds 32 bits address space")
)

// Operand-time errors.
var (
	ErrBadRegister     = errors.New("bad register index")
	ErrDataOutOfRange  = errors.New("data memory out of range")
	ErrWriteToConstant = errors.New("write to constant operand")
)

// Execution-time errors.
var (
	ErrCallStack     = errors.New("call stack error")
	ErrUnknownThread = errors.New("thread doesn't exist")
	ErrSelfJoin      = errors.New("thread can't join itself")
	ErrBadLockID     = errors.New("bad lock id")
	ErrInputFile     = errors.New("input file error")
	ErrDivideByZero  = errors.New("divide by zero")
	ErrConsoleRead   = errors.New("console read error")
)

// ErrOutOfRange is returned by BitBuffer and Memory. Callers translate
// it to ErrProgramOutOfRange or ErrDataOutOfRange.
var ErrOutOfRange = errors.New("out of range")

// errTerminated unwinds a thread blocked in lock, join or sleep
// after terminate() was called. Not a fault.
var errTerminated = errors.New("thread terminated")

// ThreadError is a fault that stopped a thread.
type ThreadError struct {
	ThreadID uint64
	PC       uint32
	Err      error
}

func (e *ThreadError) Error() string {
	return fmt.Sprintf("Thread %d error at: %d: %s", e.ThreadID, e.PC, e.Err)
}

func (e *ThreadError) Unwrap() error { return e.Err }
