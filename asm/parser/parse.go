package parser

import (
	"fmt"
	"strings"

	"go.creack.net/evm/op"
)

// Node is an element of the parsed source: label, directive or instruction.
type Node interface {
	PrettyPrint(nodes []Node) string
	Encode(p *Program) error
}

// Parser structure
type Parser struct {
	lexer     *lexer
	src       string
	currToken item
	peekToken item

	Nodes []Node
}

// NewParser creates a new parser
func NewParser(name, input string) *Parser {
	p := &Parser{
		lexer: NewLexer(name, input),
		src:   input,
	}
	// Preload the next token.
	p.nextToken()
	return p
}

// nextToken advances to the next token
func (p *Parser) nextToken() {
	p.currToken = p.peekToken
	p.peekToken = p.lexer.nextItem()
}

// errorf prefixes the error with the current token position.
func (p *Parser) errorf(format string, args ...any) error {
	return p.errorAt(p.currToken, fmt.Errorf(format, args...))
}

func (p *Parser) errorAt(it item, err error) error {
	col := int(it.pos) + 1
	if i := strings.LastIndexByte(p.src[:min(int(it.pos), len(p.src))], '\n'); i >= 0 {
		col = int(it.pos) - i
	}
	return fmt.Errorf("%s:%d:%d: %w", p.lexer.name, it.line, col, err)
}

// Labels returns the defined labels, in source order.
func (p *Parser) Labels() []string {
	var out []string
	for _, n := range p.Nodes {
		if l, ok := n.(*Label); ok {
			out = append(out, l.Name)
		}
	}
	return out
}

func (p *Parser) parseLabel() error {
	for _, elem := range p.Labels() {
		if elem == p.currToken.val {
			return p.errorf("duplicate label %q", p.currToken.val)
		}
	}
	p.Nodes = append(p.Nodes, &Label{Name: p.currToken.val})
	return nil
}

func (p *Parser) parseDirective() error {
	d := &Directive{Name: p.currToken.val}
	switch d.Name {
	case op.DataSizeCmdString, op.DataCmdString:
	default:
		return p.errorf("unknown directive %q", d.Name)
	}
	for !p.peekToken.typ.isEOL() {
		p.nextToken()
		switch p.currToken.typ {
		case itemNumber:
			n, err := parseNumber(p.currToken.val)
			if err != nil {
				return p.errorf("invalid number %q: %w", p.currToken.val, err)
			}
			d.Values = append(d.Values, DirectiveValue{Raw: p.currToken.val, Number: n})
		case itemRawString:
			if d.Name != op.DataCmdString {
				return p.errorf("unexpected string for %s", d.Name)
			}
			s, err := unquote(p.currToken.val)
			if err != nil {
				return p.errorf("invalid string %s: %w", p.currToken.val, err)
			}
			d.Values = append(d.Values, DirectiveValue{Raw: p.currToken.val, Text: s, IsText: true})
		case itemComa:
			// Optional separator.
		default:
			return p.errorf("unexpected token %s for %s", p.currToken, d.Name)
		}
	}
	if err := d.Validate(); err != nil {
		return p.errorf("%w", err)
	}
	p.Nodes = append(p.Nodes, d)
	return nil
}

func (p *Parser) parseInstruction() error {
	oc, ok := op.Lookup(p.currToken.val)
	if !ok {
		return p.errorf("unknown instruction %q", p.currToken.val)
	}
	ins := &Instruction{OpCode: oc}
	start := p.currToken

	for !p.peekToken.typ.isEOL() {
		p.nextToken()
		param, err := p.parseParameter()
		if err != nil {
			return err
		}
		ins.Params = append(ins.Params, param)

		if p.peekToken.typ.isEOL() {
			break
		}
		p.nextToken()
		if p.currToken.typ != itemComa {
			return p.errorf("expected %q, got %s", op.SeparatorChar, p.currToken)
		}
		if p.peekToken.typ.isEOL() {
			return p.errorf("unexpected comma at the end of instruction %s", ins)
		}
	}
	if err := ins.ValidateParameters(); err != nil {
		return p.errorAt(start, fmt.Errorf("invalid instruction %s: %w", ins, err))
	}
	p.Nodes = append(p.Nodes, ins)
	return nil
}

// parseParameter parses the parameter starting at the current token.
func (p *Parser) parseParameter() (*Parameter, error) {
	switch p.currToken.typ {
	case itemNumber:
		n, err := parseNumber(p.currToken.val)
		if err != nil {
			return nil, p.errorf("invalid number %q: %w", p.currToken.val, err)
		}
		return &Parameter{Kind: ParamNumber, Value: n, RawValue: p.currToken.val}, nil
	case itemIdentifier:
	default:
		return nil, p.errorf("unexpected token %s", p.currToken)
	}

	// Register.
	if reg, ok := parseRegister(p.currToken.val); ok {
		return &Parameter{Kind: ParamRegister, Reg: reg}, nil
	}

	// Memory, `size[rN]`.
	if size, ok := op.ParseMemSize(p.currToken.val); ok && p.peekToken.typ == itemMemOpen {
		p.nextToken()
		p.nextToken()
		reg, ok := parseRegister(p.currToken.val)
		if p.currToken.typ != itemIdentifier || !ok {
			return nil, p.errorf("expected register, got %s", p.currToken)
		}
		p.nextToken()
		if p.currToken.typ != itemMemClose {
			return nil, p.errorf("expected %q, got %s", op.MemCloseChar, p.currToken)
		}
		return &Parameter{Kind: ParamMemory, Reg: reg, Size: size}, nil
	}

	// Anything else is a label reference, resolved when encoding.
	return &Parameter{Kind: ParamLabel, RawValue: p.currToken.val}, nil
}

func (p *Parser) Parse() error {
	for {
		p.nextToken()
		item := p.currToken
		if item.typ == itemEOF {
			break
		}
		if item.typ == itemError {
			return p.errorAt(item, fmt.Errorf("%s", item.val))
		}

		var err error
		switch item.typ {
		case itemNewline, itemComment:
			continue
		case itemLabel:
			err = p.parseLabel()
		case itemDirective:
			err = p.parseDirective()
		case itemIdentifier:
			err = p.parseInstruction()
		default:
			return p.errorf("unexpected item %s", item)
		}
		if err != nil {
			return err
		}

		// Whatever follows must end the line.
		if item.typ != itemLabel && !p.peekToken.typ.isEOL() {
			p.nextToken()
			return p.errorf("unexpected token %s", p.currToken)
		}
	}
	return nil
}

// PrettyPrint renders the parsed nodes back as source.
func (p *Parser) PrettyPrint() string {
	var b strings.Builder
	for _, n := range p.Nodes {
		b.WriteString(n.PrettyPrint(p.Nodes))
		b.WriteByte('\n')
	}
	return b.String()
}
