package parser

import (
	"fmt"
	"strings"

	"go.creack.net/evm/op"
)

type Instruction struct {
	OpCode op.OpCode    // OpCode reference.
	Params []*Parameter // Parameters.
}

func (ins Instruction) PrettyPrint(_ []Node) string {
	out := "\t" + ins.OpCode.Name
	if len(ins.Params) == 0 {
		return out
	}
	paramStrs := make([]string, 0, len(ins.Params))
	for _, param := range ins.Params {
		paramStrs = append(paramStrs, param.String())
	}
	return fmt.Sprintf("%-13s %s", out, strings.Join(paramStrs, string(op.SeparatorChar)+" "))
}

func (ins Instruction) String() string {
	out := "<" + ins.OpCode.Name
	paramStrs := make([]string, 0, len(ins.Params))
	for _, param := range ins.Params {
		paramStrs = append(paramStrs, param.String())
	}
	if len(paramStrs) == 0 {
		return out + ">"
	}
	out += " (" + strings.Join(paramStrs, string(op.SeparatorChar)+" ") + ")"
	return out + ">"
}

func (ins Instruction) ValidateParameters() error {
	if len(ins.Params) != len(ins.OpCode.ParamTypes) {
		return fmt.Errorf("expected %d parameters, got %d", len(ins.OpCode.ParamTypes), len(ins.Params))
	}
	for i, param := range ins.Params {
		// Check that the parameter kind is within the ins.OpCode.ParamTypes[i] mask.
		if param.Type()&ins.OpCode.ParamTypes[i] == 0 {
			return fmt.Errorf("invalid parameter %d %q for %q, expect %s", i+1, param, ins.OpCode.Name, ins.OpCode.ParamTypes[i])
		}
	}
	return nil
}

func (ins Instruction) Encode(p *Program) error {
	// Opcode, most significant bit first.
	p.code.Write(uint64(ins.OpCode.Code), ins.OpCode.Width, false)

	for i, param := range ins.Params {
		// Handle label references.
		if param.Kind == ParamLabel {
			// If we already know the label, use its offset.
			// Otherwise, keep going, it will be known the second time.
			if addr, ok := p.labels[param.RawValue]; ok {
				param.Value = uint64(addr)
			} else if !p.hasLabelIndex {
				p.hasMissingLabels = true
			} else {
				return fmt.Errorf("unknown label %q", param.RawValue)
			}
		}
		if err := param.Encode(&p.code, ins.OpCode.ParamTypes[i]); err != nil {
			return fmt.Errorf("failed to encode parameter %s: %w", param, err)
		}
	}
	return nil
}
