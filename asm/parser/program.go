package parser

import (
	"fmt"
)

type Program struct {
	p *Parser

	code             BitWriter
	data             []byte
	dataSize         *uint32 // Explicit .dataSize, nil when missing.
	labels           map[string]uint32
	hasLabelIndex    bool
	hasMissingLabels bool
}

func NewProgram(p *Parser) *Program {
	return &Program{
		p:      p,
		labels: nil, // Keeping as nil to indicate that we don't have any labels yet.
	}
}

// Size returns the code size in bits.
func (p *Program) Size() uint32 {
	return p.code.Len()
}

// Labels returns the label bit offsets. Only valid after Encode.
func (p *Program) Labels() map[string]uint32 {
	return p.labels
}

// Data returns the initial data section.
func (p *Program) Data() []byte {
	return p.data
}

// DataSize returns the data memory size, defaulting to the initial data length.
func (p *Program) DataSize() uint32 {
	if p.dataSize != nil {
		return *p.dataSize
	}
	return uint32(len(p.data))
}

func (p *Program) encode() error {
	// If we have labels, it means we already encoded once and have the labels index.
	// Error out if we encounter a label that we don't know
	p.hasLabelIndex = p.labels != nil
	if !p.hasLabelIndex {
		p.labels = map[string]uint32{}
	}
	p.code.Reset()
	p.data = p.data[:0]
	p.dataSize = nil
	for _, n := range p.p.Nodes {
		if err := n.Encode(p); err != nil {
			return fmt.Errorf("failed to encode %s: %w", n, err)
		}
	}
	if uint64(len(p.data)) > uint64(p.DataSize()) {
		return fmt.Errorf("initial data of %d bytes exceeds data size %d", len(p.data), p.DataSize())
	}
	return nil
}

// Encode returns the code section bytes.
func (p *Program) Encode() ([]byte, error) {
	if err := p.encode(); err != nil {
		return nil, fmt.Errorf("failed to first encode program: %w", err)
	}

	// If we don't have any missing labels, we don't need to re-encode.
	if !p.hasMissingLabels {
		return p.code.Bytes(), nil
	}

	// If we have missing labels, we need to re-encode the program.
	if err := p.encode(); err != nil {
		return nil, fmt.Errorf("failed to re-encode program: %w", err)
	}

	return p.code.Bytes(), nil
}

// Nodes returns the parsed nodes.
func (p *Program) Nodes() []Node {
	return p.p.Nodes
}
