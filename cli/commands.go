package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"go.creack.net/evm/asm"
	"go.creack.net/evm/asm/parser"
	"go.creack.net/evm/assets"
	"go.creack.net/evm/disasm"
	"go.creack.net/evm/op"
	"go.creack.net/evm/vm"
)

func usageArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) > n {
			return fmt.Errorf("%w: expected at most %d argument(s), got %d", ErrCLI, n, len(args))
		}
		return nil
	}
}

// Target is the program selection shared by the runner and the viewers.
type Target struct {
	Example string
}

func (t *Target) Register(cmd *cobra.Command) {
	names, _ := assets.Names() // The archive is embedded, only fails on a broken build.
	cmd.Flags().StringVar(&t.Example, "example", "", "run a bundled sample: "+strings.Join(names, ", "))
}

// Load returns the program from the example flag or the positional argument.
func (t *Target) Load(args []string) (*op.File, error) {
	switch {
	case t.Example != "" && len(args) > 0:
		return nil, fmt.Errorf("%w: --example and a program file are exclusive", ErrCLI)
	case t.Example != "":
		return LoadExample(t.Example)
	case len(args) == 0:
		return nil, fmt.Errorf("%w: missing program file", ErrCLI)
	default:
		return LoadProgram(args[0])
	}
}

// NewRunCommand is the evm entrypoint.
func NewRunCommand() *cobra.Command {
	var (
		settings Settings
		target   Target
	)
	cmd := &cobra.Command{
		Use:           "evm [flags] <program.evm|program.s>",
		Short:         "Run an ESET-VM2 program",
		Args:          usageArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := settings.Resolve(cmd)
			if err != nil {
				return err
			}
			SetupLogging(cfg)

			f, err := target.Load(args)
			if err != nil {
				return err
			}
			s, err := NewSession(cfg, f, vm.Config{})
			if err != nil {
				return err
			}
			defer func() { _ = s.Close() }() // Best effort.

			if err := s.Execute(cmd.Context()); err != nil {
				return err
			}
			return s.Close()
		},
	}
	settings.Register(cmd)
	target.Register(cmd)
	cmd.AddCommand(&cobra.Command{
		Use:   "examples",
		Short: "List the bundled samples",
		Args:  usageArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := assets.Names()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	})
	return cmd
}

// NewAsmCommand is the evm-asm entrypoint.
func NewAsmCommand() *cobra.Command {
	var (
		output      string
		prettyPrint bool
	)
	cmd := &cobra.Command{
		Use:           "evm-asm [flags] <program.s>",
		Short:         "Compile ESET-VM2 assembler to an EVM file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}

			buf, pr, err := asm.Compile(input, string(data))
			if err != nil {
				return fmt.Errorf("failed to compile: %w", err)
			}
			if prettyPrint {
				pp := &parser.Parser{Nodes: pr.Nodes()}
				fmt.Fprint(cmd.OutOrStdout(), pp.PrettyPrint())
				return nil
			}

			if output == "" {
				output = strings.TrimSuffix(input, ".s") + ".evm"
			}
			if err := os.WriteFile(output, buf, 0o644); err != nil {
				return fmt.Errorf("failed to write file: %w", err)
			}
			log.Infof("wrote %d bytes to %q", len(buf), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file, default to <input>.evm")
	cmd.Flags().BoolVar(&prettyPrint, "pretty", false, "pretty print, do not output compiled file")
	return cmd
}

// NewDisasmCommand is the evm-disasm entrypoint.
func NewDisasmCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "evm-disasm <program.evm>",
		Short:         "Disassemble an EVM file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			binData, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read file %q: %w", args[0], err)
			}
			p, err := disasm.Disasm(args[0], binData)
			if err != nil {
				return err
			}
			if p.Sample != "" {
				log.Infof("Found match in known sources: %s.", p.Sample)
			}
			fmt.Fprint(cmd.OutOrStdout(), p.String())
			return nil
		},
	}
	return cmd
}

// Main executes cmd and exits with a non zero status on failure.
func Main(ctx context.Context, cmd *cobra.Command) {
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, ErrFaulted) {
			fmt.Fprintf(os.Stderr, "Error: %s.\n", err)
		}
		os.Exit(1)
	}
}
