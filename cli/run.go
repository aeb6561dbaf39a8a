package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"go.creack.net/evm/asm"
	"go.creack.net/evm/assets"
	"go.creack.net/evm/op"
	"go.creack.net/evm/trace"
	"go.creack.net/evm/vm"
)

// ErrFaulted is returned when the main thread stopped on a fault.
// The fault itself is already printed by the vm.
var ErrFaulted = errors.New("program faulted")

var log = commonlog.GetLogger("evm.cli")

// LoadProgram reads an EVM file. Assembler sources (.s) are compiled on the fly.
func LoadProgram(path string) (*op.File, error) {
	if filepath.Ext(path) != ".s" {
		return op.ReadFile(path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	return compile(path, string(src))
}

// LoadExample compiles one of the bundled samples.
func LoadExample(name string) (*op.File, error) {
	src, err := assets.Sample(name)
	if err != nil {
		return nil, err
	}
	return compile(name+".s", src)
}

func compile(name, src string) (*op.File, error) {
	buf, _, err := asm.Compile(name, src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %q: %w", name, err)
	}
	log.Debugf("compiled %q to %d bytes", name, len(buf))
	return op.Parse(buf)
}

// Session is an application with the trace sink its config asks for.
type Session struct {
	App    *vm.Application
	writer *trace.Writer
}

// NewSession creates the application. The input file and the trace sink come
// from cfg, the rest of base is kept. A tracer in base is fed along the trace file.
func NewSession(cfg Config, f *op.File, base vm.Config) (*Session, error) {
	s := &Session{}
	var tracers []vm.Tracer
	if base.Tracer != nil {
		tracers = append(tracers, base.Tracer)
	}
	if cfg.Trace {
		var err error
		if cfg.TraceFile == "-" {
			s.writer, err = trace.NewWriter(os.Stderr, cfg.TraceFormat)
		} else {
			s.writer, err = trace.Create(cfg.TraceFile, cfg.TraceFormat)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to setup trace: %w", err)
		}
		tracers = append(tracers, s.writer)
	}

	base.InputFileName = cfg.InputFile
	base.Tracer = trace.Multi(tracers...)
	app, err := vm.New(base, f)
	if err != nil {
		if s.writer != nil {
			_ = s.writer.Close()
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	s.App = app
	return s, nil
}

// Execute runs the application until the main thread is done or ctx is canceled.
func (s *Session) Execute(ctx context.Context) error {
	if err := s.App.Run(); err != nil {
		return err
	}

	done := make(chan struct{})
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(done)
		if err := s.App.Wait(); err != nil {
			return fmt.Errorf("%w: %w", ErrFaulted, err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-ctx.Done():
			log.Infof("interrupted, terminating threads")
			s.App.Terminate()
		case <-done:
		}
		return nil
	})
	return g.Wait()
}

// Close flushes the trace and releases the input file.
func (s *Session) Close() error {
	var errs []error
	if s.writer != nil {
		errs = append(errs, s.writer.Close())
	}
	if s.App != nil {
		errs = append(errs, s.App.Close())
	}
	return errors.Join(errs...)
}
