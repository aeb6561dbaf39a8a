package asm

import (
	"fmt"

	"github.com/tliron/commonlog"

	"go.creack.net/evm/asm/parser"
	"go.creack.net/evm/op"
)

var log = commonlog.GetLogger("evm.asm")

// Compile assembles the given source into an EVM file.
func Compile(inputName, inputData string) ([]byte, *parser.Program, error) {
	// Parse the input.
	p := parser.NewParser(inputName, inputData)
	if err := p.Parse(); err != nil {
		return nil, nil, fmt.Errorf("failed to parse: %w", err)
	}

	// Encode the program.
	pr := parser.NewProgram(p)
	code, err := pr.Encode()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode program: %w", err)
	}

	out, err := op.Encode(code, pr.Data(), pr.DataSize())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode header: %w", err)
	}
	log.Debugf("%s: %d bits of code, %d labels, %d/%d bytes of data", inputName, pr.Size(), len(pr.Labels()), len(pr.Data()), pr.DataSize())
	return out, pr, nil
}

// MustCompile is like Compile but panics on error.
func MustCompile(inputName, inputData string) []byte {
	out, _, err := Compile(inputName, inputData)
	if err != nil {
		panic(err)
	}
	return out
}
