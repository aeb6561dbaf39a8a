package parser

import (
	"fmt"
	"strconv"
	"strings"

	"go.creack.net/evm/op"
)

type DirectiveValue struct {
	Raw    string // As written in the source.
	Number uint64
	Text   string
	IsText bool
}

// Byte returns the value as a single data byte.
func (v DirectiveValue) Byte() (byte, error) {
	if n := int64(v.Number); v.Number > 0xff && (n >= 0 || n < -128) {
		return 0, fmt.Errorf("%s does not fit in a byte", v.Raw)
	}
	return byte(v.Number), nil
}

// Directive is either `.dataSize N` or `.data <bytes|"text">...`.
type Directive struct {
	Name   string
	Values []DirectiveValue
}

func (d Directive) String() string {
	raws := make([]string, 0, len(d.Values))
	for _, elem := range d.Values {
		raws = append(raws, elem.Raw)
	}
	return fmt.Sprintf("<%s %.10q...>", d.Name, strings.Join(raws, " "))
}

func (d Directive) Validate() error {
	switch d.Name {
	case op.DataSizeCmdString:
		if len(d.Values) != 1 {
			return fmt.Errorf("%s expects one value, got %d", d.Name, len(d.Values))
		}
		if d.Values[0].Number > 0xffffffff {
			return fmt.Errorf("%s %s overflows 32 bits", d.Name, d.Values[0].Raw)
		}
	case op.DataCmdString:
		if len(d.Values) == 0 {
			return fmt.Errorf("%s expects at least one value", d.Name)
		}
		for _, elem := range d.Values {
			if elem.IsText {
				continue
			}
			if _, err := elem.Byte(); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown directive %q", d.Name)
	}
	return nil
}

func (d *Directive) PrettyPrint(_ []Node) string {
	out := d.Name
	for _, elem := range d.Values {
		out += " " + elem.Raw
	}
	return out
}

func (d Directive) Encode(p *Program) error {
	switch d.Name {
	case op.DataSizeCmdString:
		size := uint32(d.Values[0].Number)
		p.dataSize = &size
	case op.DataCmdString:
		for _, elem := range d.Values {
			if elem.IsText {
				p.data = append(p.data, elem.Text...)
				continue
			}
			b, err := elem.Byte()
			if err != nil {
				return err
			}
			p.data = append(p.data, b)
		}
	}
	return nil
}

// unquote decodes a double quoted string with Go escapes.
func unquote(raw string) (string, error) {
	return strconv.Unquote(raw)
}
