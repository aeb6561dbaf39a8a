package parser

import (
	"fmt"

	"go.creack.net/evm/op"
)

type Label struct {
	Name string
}

func (l *Label) PrettyPrint(nodes []Node) string {
	// Separate from a preceding instruction with an empty line.
	var prev Node
	for _, n := range nodes {
		if l1, ok := n.(*Label); ok && l1 == l {
			if _, ok := prev.(*Instruction); ok {
				return "\n" + l.Name + string(op.LabelChar)
			}
			return l.Name + string(op.LabelChar)
		}
		prev = n
	}
	// Should never happen.
	panic("self reference not found in nodes")
}

// Encode records the label bit offset.
func (l Label) Encode(p *Program) error {
	if !p.hasLabelIndex {
		p.labels[l.Name] = p.code.Len()
		return nil
	}
	if p.labels[l.Name] != p.code.Len() {
		return fmt.Errorf("label %q moved from %d to %d", l.Name, p.labels[l.Name], p.code.Len())
	}
	return nil
}

func (l Label) String() string {
	return "<" + l.Name + string(op.LabelChar) + ">"
}
