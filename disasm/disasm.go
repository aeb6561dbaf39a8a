// Package disasm turns EVM files back into assembler source.
package disasm

import (
	"crypto/md5"
	"fmt"
	"sort"

	"go.creack.net/evm/asm"
	"go.creack.net/evm/asm/parser"
	"go.creack.net/evm/assets"
	"go.creack.net/evm/op"
	"go.creack.net/evm/vm"
)

// Program is a disassembled EVM file.
type Program struct {
	File   *op.File
	Nodes  []parser.Node
	Sample string // Name of the matching bundled sample, if any.
}

// String renders the program as assembler source.
func (p *Program) String() string {
	pp := &parser.Parser{Nodes: p.Nodes}
	return pp.PrettyPrint()
}

func md5sum(data []byte) string {
	h := md5.New()
	h.Write(data)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// searchExistingSrc looks for the sample whose compiled file has the given md5.
func searchExistingSrc(search string) (string, string, error) {
	samples, err := assets.Samples()
	if err != nil {
		return "", "", fmt.Errorf("failed to unpack samples: %w", err)
	}
	names := make([]string, 0, len(samples))
	for name := range samples {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		buf, _, err := asm.Compile(name+".s", samples[name])
		if err != nil {
			// Should not happen.
			return "", "", fmt.Errorf("failed to compile sample %q: %w", name, err)
		}
		if md5sum(buf) == search {
			return name, samples[name], nil
		}
	}
	return "", "", nil
}

func labelName(addr uint32) string {
	return fmt.Sprintf("l_%d", addr)
}

// Decode walks the code section. Trailing padding bits are ignored.
func Decode(code []byte) ([]*vm.Instruction, error) {
	bb := vm.NewBitBuffer(code)
	size, err := bb.Size()
	if err != nil {
		return nil, err
	}

	var out []*vm.Instruction
	for addr := uint32(0); addr < size; {
		ins, next, err := vm.Decode(bb, addr)
		if err != nil {
			if vm.IsOutOfRange(err) && isPadding(bb, addr, size) {
				break
			}
			return nil, fmt.Errorf("failed to decode instruction at %d: %w", addr, err)
		}
		out = append(out, ins)
		addr = next
	}
	return out, nil
}

// isPadding reports whether the bits from addr to the end are a zero byte padding.
func isPadding(bb *vm.BitBuffer, addr, size uint32) bool {
	if size-addr >= 8 {
		return false
	}
	v, err := bb.GetU8(addr, int(size-addr), false)
	return err == nil && v == 0
}

// Disasm decodes the given EVM file.
// If the code matches one of the bundled samples, its source is used instead.
func Disasm(inputName string, binData []byte) (*Program, error) {
	f, err := op.Parse(binData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", inputName, err)
	}

	name, src, err := searchExistingSrc(md5sum(binData))
	if err != nil {
		return nil, err
	}
	if name != "" {
		p := parser.NewParser(name+".s", src)
		if err := p.Parse(); err != nil {
			// Should not happen.
			return nil, fmt.Errorf("failed to parse sample %q: %w", name, err)
		}
		return &Program{File: f, Nodes: p.Nodes, Sample: name}, nil
	}

	instructions, err := Decode(f.Code())
	if err != nil {
		return nil, err
	}
	return &Program{File: f, Nodes: buildNodes(f, instructions)}, nil
}

func buildNodes(f *op.File, instructions []*vm.Instruction) []parser.Node {
	var nodes []parser.Node

	// Data section.
	nodes = append(nodes, &parser.Directive{
		Name:   op.DataSizeCmdString,
		Values: []parser.DirectiveValue{{Raw: fmt.Sprintf("%d", f.Header.DataSize), Number: uint64(f.Header.DataSize)}},
	})
	data := f.InitialData()
	for len(data) > 0 {
		chunk := data[:min(16, len(data))]
		data = data[len(chunk):]
		d := &parser.Directive{Name: op.DataCmdString}
		for _, b := range chunk {
			d.Values = append(d.Values, parser.DirectiveValue{Raw: fmt.Sprintf("0x%02x", b), Number: uint64(b)})
		}
		nodes = append(nodes, d)
	}

	// Branch targets on instruction boundaries become labels.
	boundaries := map[uint32]bool{}
	var end uint32
	for _, ins := range instructions {
		boundaries[ins.Addr] = true
		end = ins.Addr + ins.Size
	}
	boundaries[end] = true
	labels := map[uint32]bool{}
	for _, ins := range instructions {
		for _, arg := range ins.Args {
			if arg.Kind == vm.OperandAddress && boundaries[arg.Address()] {
				labels[arg.Address()] = true
			}
		}
	}

	for _, ins := range instructions {
		if labels[ins.Addr] {
			nodes = append(nodes, &parser.Label{Name: labelName(ins.Addr)})
		}
		pi := &parser.Instruction{OpCode: ins.OpCode}
		for _, arg := range ins.Args {
			pi.Params = append(pi.Params, newParameter(arg, labels))
		}
		nodes = append(nodes, pi)
	}
	if labels[end] {
		nodes = append(nodes, &parser.Label{Name: labelName(end)})
	}
	return nodes
}

func newParameter(arg vm.Operand, labels map[uint32]bool) *parser.Parameter {
	switch arg.Kind {
	case vm.OperandRegister:
		return &parser.Parameter{Kind: parser.ParamRegister, Reg: arg.Reg}
	case vm.OperandMemory:
		return &parser.Parameter{Kind: parser.ParamMemory, Reg: arg.Reg, Size: arg.Size}
	case vm.OperandAddress:
		if labels[arg.Address()] {
			return &parser.Parameter{Kind: parser.ParamLabel, Value: arg.Value, RawValue: labelName(arg.Address())}
		}
		return &parser.Parameter{Kind: parser.ParamNumber, Value: arg.Value, RawValue: fmt.Sprintf("%d", arg.Value)}
	default:
		return &parser.Parameter{Kind: parser.ParamNumber, Value: arg.Value, RawValue: fmt.Sprintf("0x%x", arg.Value)}
	}
}
