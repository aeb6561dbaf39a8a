package vm

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.creack.net/evm/op"
)

func opAdd(a, b int64) (int64, error) { return a + b, nil }
func opSub(a, b int64) (int64, error) { return a - b, nil }
func opMul(a, b int64) (int64, error) { return a * b, nil }

func opDiv(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a / b, nil
}

func opMod(a, b int64) (int64, error) {
	if b == 0 {
		return 0, ErrDivideByZero
	}
	return a % b, nil
}

func opCompare(a, b int64) (int64, error) {
	switch {
	case a < b:
		return -1, nil
	case a > b:
		return 1, nil
	default:
		return 0, nil
	}
}

// mathOp returns the op function for the signed 3 operands operations.
func mathOp(operation func(a, b int64) (int64, error)) func(t *Thread, ins *Instruction) error {
	return func(t *Thread, ins *Instruction) error {
		a, err := ins.Args[0].Get(t)
		if err != nil {
			return err
		}
		b, err := ins.Args[1].Get(t)
		if err != nil {
			return err
		}
		res, err := operation(int64(a), int64(b))
		if err != nil {
			return err
		}
		return ins.Args[2].Set(t, uint64(res))
	}
}

// getArgs reads the value of each operand in order.
func getArgs(t *Thread, args ...Operand) ([]uint64, error) {
	out := make([]uint64, 0, len(args))
	for _, elem := range args {
		v, err := elem.Get(t)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// ops is populated in init, the operations reach back to Thread.exec.
var ops map[op.Kind]func(t *Thread, ins *Instruction) error

func init() {
	ops = map[op.Kind]func(t *Thread, ins *Instruction) error{}

	// mov. Copies the 1st operand into the 2nd.
	ops[op.Mov] = func(t *Thread, ins *Instruction) error {
		v, err := ins.Args[0].Get(t)
		if err != nil {
			return err
		}
		return ins.Args[1].Set(t, v)
	}

	// loadConst. Stores the 64 bits constant into the 2nd operand.
	ops[op.LoadConst] = func(t *Thread, ins *Instruction) error {
		return ins.Args[1].Set(t, ins.Args[0].Value)
	}

	// Signed math, result in the 3rd operand.
	ops[op.Add] = mathOp(opAdd)
	ops[op.Sub] = mathOp(opSub)
	ops[op.Mul] = mathOp(opMul)
	ops[op.Div] = mathOp(opDiv)
	ops[op.Mod] = mathOp(opMod)
	ops[op.Compare] = mathOp(opCompare)

	ops[op.Jump] = func(t *Thread, ins *Instruction) error {
		t.SetPC(ins.Args[0].Address())
		return nil
	}

	// jumpEqual. Jumps to the 1st operand if the 2nd and 3rd are equal.
	ops[op.JumpEqual] = func(t *Thread, ins *Instruction) error {
		v, err := getArgs(t, ins.Args[1], ins.Args[2])
		if err != nil {
			return err
		}
		if v[0] == v[1] {
			t.SetPC(ins.Args[0].Address())
		}
		return nil
	}

	// call. The pc already points past the call.
	ops[op.Call] = func(t *Thread, ins *Instruction) error {
		t.Push(t.PC())
		t.SetPC(ins.Args[0].Address())
		return nil
	}

	ops[op.Ret] = func(t *Thread, ins *Instruction) error {
		addr, err := t.Pop()
		if err != nil {
			return err
		}
		t.SetPC(addr)
		return nil
	}

	ops[op.Hlt] = func(t *Thread, ins *Instruction) error {
		t.running.Store(false)
		return nil
	}

	// createThread. Spawns a thread at the 1st operand, stores its id in the 2nd.
	ops[op.CreateThread] = func(t *Thread, ins *Instruction) error {
		id, err := t.app.SpawnThread(t, ins.Args[0].Address())
		if err != nil {
			return err
		}
		return ins.Args[1].Set(t, id)
	}

	ops[op.JoinThread] = func(t *Thread, ins *Instruction) error {
		id, err := ins.Args[0].Get(t)
		if err != nil {
			return err
		}
		return t.app.JoinThread(t, id)
	}

	ops[op.Lock] = func(t *Thread, ins *Instruction) error {
		id, err := ins.Args[0].Get(t)
		if err != nil {
			return err
		}
		return t.app.Lock(t, id)
	}

	ops[op.Unlock] = func(t *Thread, ins *Instruction) error {
		id, err := ins.Args[0].Get(t)
		if err != nil {
			return err
		}
		return t.app.Unlock(id)
	}

	ops[op.Sleep] = func(t *Thread, ins *Instruction) error {
		ms, err := ins.Args[0].Get(t)
		if err != nil {
			return err
		}
		return t.sleep(ms)
	}

	ops[op.ConsoleWrite] = func(t *Thread, ins *Instruction) error {
		v, err := ins.Args[0].Get(t)
		if err != nil {
			return err
		}
		t.app.ioMu.Lock()
		defer t.app.ioMu.Unlock()
		_, _ = fmt.Fprintf(t.app.cfg.Stdout, "0x%016x\n", v) // Best effort.
		return nil
	}

	// consoleRead. Reads one hexadecimal token, at most 16 bits.
	ops[op.ConsoleRead] = func(t *Thread, ins *Instruction) error {
		t.app.stdinMu.Lock()
		var tok string
		_, err := fmt.Fscan(t.app.stdin, &tok)
		t.app.stdinMu.Unlock()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConsoleRead, err)
		}
		tok = strings.TrimPrefix(strings.TrimPrefix(tok, "0x"), "0X")
		v, err := strconv.ParseUint(tok, 16, 16)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrConsoleRead, err)
		}
		return ins.Args[0].Set(t, v)
	}

	// write. Writes the 2nd operand bytes of data memory at the 3rd operand
	// into the input file at the 1st operand offset.
	ops[op.Write] = func(t *Thread, ins *Instruction) error {
		v, err := getArgs(t, ins.Args[0], ins.Args[1], ins.Args[2])
		if err != nil {
			return err
		}
		offset, size, addr := v[0], v[1], v[2]
		if size > uint64(t.app.data.Size()) {
			return fmt.Errorf("%w: write of %d bytes", ErrDataOutOfRange, size)
		}
		buf, err := t.app.data.Read(addr, int(size))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDataOutOfRange, err)
		}

		t.app.ioMu.Lock()
		defer t.app.ioMu.Unlock()
		f, err := t.app.InputFile()
		if err != nil {
			return err
		}
		n, err := f.WriteAt(buf, int64(offset))
		if err != nil || n != len(buf) {
			return fmt.Errorf("%w: wrote %d/%d bytes at %d: %v", ErrInputFile, n, len(buf), offset, err)
		}
		return nil
	}

	// read. Reads up to the 2nd operand bytes from the input file at the
	// 1st operand offset into data memory at the 3rd operand. The count
	// actually read is stored in the 4th operand.
	ops[op.Read] = func(t *Thread, ins *Instruction) error {
		v, err := getArgs(t, ins.Args[0], ins.Args[1], ins.Args[2])
		if err != nil {
			return err
		}
		offset, size, addr := v[0], v[1], v[2]
		if size > uint64(t.app.data.Size()) {
			return fmt.Errorf("%w: read of %d bytes", ErrDataOutOfRange, size)
		}
		if err := t.app.data.check(addr, int(size)); err != nil {
			return fmt.Errorf("%w: %w", ErrDataOutOfRange, err)
		}

		buf := make([]byte, size)
		n, err := func() (int, error) {
			t.app.ioMu.Lock()
			defer t.app.ioMu.Unlock()
			f, err := t.app.InputFile()
			if err != nil {
				return 0, err
			}
			n, err := f.ReadAt(buf, int64(offset))
			if err != nil && !errors.Is(err, io.EOF) {
				return n, fmt.Errorf("%w: read at %d: %w", ErrInputFile, offset, err)
			}
			return n, nil
		}()
		if err != nil {
			return err
		}
		if err := t.app.data.Write(addr, buf[:n]); err != nil {
			return fmt.Errorf("%w: %w", ErrDataOutOfRange, err)
		}
		return ins.Args[3].Set(t, uint64(n))
	}
}
