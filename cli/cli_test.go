package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.creack.net/evm/op"
	"go.creack.net/evm/trace"
	"go.creack.net/evm/vm"
)

func resolve(t *testing.T, args ...string) (Config, error) {
	t.Helper()
	var s Settings
	cmd := &cobra.Command{Use: "test"}
	s.Register(cmd)
	if err := cmd.ParseFlags(args); err != nil {
		return Config{}, err
	}
	return s.Resolve(cmd)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := resolve(t)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, "in", cfg.InputFile)
	assert.Equal(t, trace.FormatText, cfg.TraceFormat)
}

func TestConfigMerge(t *testing.T) {
	path := writeFile(t, "evm.toml", `
input_file = "data.bin"
trace = true
trace_format = "jsonl"
log_level = 2
`)

	cfg, err := resolve(t, "--config", path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		InputFile:   "data.bin",
		Trace:       true,
		TraceFormat: trace.FormatJSONL,
		TraceFile:   "trace.log",
		LogLevel:    2,
	}, cfg)

	// Explicit flags win, unset ones keep the file value.
	cfg, err = resolve(t, "--config", path, "-i", "other.bin", "--trace-format", "cbor", "-vvv")
	require.NoError(t, err)
	assert.Equal(t, "other.bin", cfg.InputFile)
	assert.Equal(t, trace.FormatCBOR, cfg.TraceFormat)
	assert.Equal(t, 3, cfg.LogLevel)
	assert.True(t, cfg.Trace)
}

func TestConfigErrors(t *testing.T) {
	_, err := resolve(t, "--config", writeFile(t, "evm.toml", "unknown_key = 1\n"))
	assert.ErrorIs(t, err, ErrCLI)
	assert.ErrorContains(t, err, "unknown_key")

	_, err = resolve(t, "--config", filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, ErrCLI)

	_, err = resolve(t, "--trace-format", "xml")
	assert.ErrorIs(t, err, ErrCLI)

	_, err = resolve(t, "-i", "")
	assert.ErrorIs(t, err, ErrCLI)
}

func TestTargetLoad(t *testing.T) {
	f, err := (&Target{Example: "hello"}).Load(nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(13), f.Header.DataSize)

	_, err = (&Target{Example: "hello"}).Load([]string{"a.evm"})
	assert.ErrorIs(t, err, ErrCLI)
	_, err = (&Target{}).Load(nil)
	assert.ErrorIs(t, err, ErrCLI)
	_, err = (&Target{Example: "nope"}).Load(nil)
	assert.Error(t, err)

	src := writeFile(t, "prog.s", "loadConst 1, r0\nhlt\n")
	f, err = (&Target{}).Load([]string{src})
	require.NoError(t, err)
	assert.NotEmpty(t, f.Code())

	_, err = (&Target{}).Load([]string{writeFile(t, "bad.s", "nope r0\n")})
	assert.Error(t, err)
	_, err = (&Target{}).Load([]string{writeFile(t, "bad.evm", "nope")})
	assert.ErrorIs(t, err, op.ErrFileParse)
}

func TestSessionTrace(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.InputFile = filepath.Join(dir, "in")
	cfg.Trace = true
	cfg.TraceFormat = trace.FormatJSONL
	cfg.TraceFile = filepath.Join(dir, "trace.jsonl")

	f, err := LoadProgram(writeFile(t, "prog.s", "loadConst 1, r0\nhlt\n"))
	require.NoError(t, err)
	s, err := NewSession(cfg, f, vm.Config{})
	require.NoError(t, err)
	require.NoError(t, s.Execute(context.Background()))
	require.NoError(t, s.Close())

	fd, err := os.Open(cfg.TraceFile)
	require.NoError(t, err)
	defer func() { _ = fd.Close() }()
	records, err := trace.ReadJSONL(fd)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "hlt", records[2].Message)

	// Bad trace destination.
	cfg.TraceFile = filepath.Join(dir, "missing", "trace.jsonl")
	_, err = NewSession(cfg, f, vm.Config{})
	assert.Error(t, err)
}

func TestSessionFault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputFile = filepath.Join(t.TempDir(), "in")
	f, err := LoadProgram(writeFile(t, "prog.s", "ret\n"))
	require.NoError(t, err)
	s, err := NewSession(cfg, f, vm.Config{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	err = s.Execute(context.Background())
	assert.ErrorIs(t, err, ErrFaulted)
}

func TestSessionCancel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.InputFile = filepath.Join(t.TempDir(), "in")
	f, err := LoadProgram(writeFile(t, "prog.s", "loop:\n\tsleep r0\n\tjump loop\n"))
	require.NoError(t, err)
	s, err := NewSession(cfg, f, vm.Config{})
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, s.Execute(ctx))
}

func TestAsmDisasmCommands(t *testing.T) {
	src := writeFile(t, "prog.s", "loadConst 5, r0\nhlt\n")

	var out bytes.Buffer
	cmd := NewAsmCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--pretty", src})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "\tloadConst    5, r0\n\thlt\n", out.String())

	cmd = NewAsmCommand()
	cmd.SetArgs([]string{src})
	require.NoError(t, cmd.Execute())
	evm := strings.TrimSuffix(src, ".s") + ".evm"
	f, err := op.ReadFile(evm)
	require.NoError(t, err)
	assert.Len(t, f.Code(), 10)

	out.Reset()
	cmd = NewDisasmCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{evm})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, ".dataSize 0\n\tloadConst    0x5, r0\n\thlt\n", out.String())

	cmd = NewAsmCommand()
	cmd.SetArgs([]string{writeFile(t, "bad.s", "nope\n")})
	assert.Error(t, cmd.Execute())
}

func TestRunCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := NewRunCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"examples"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "files\nhello\nlocks\nthreads\n", out.String())

	dir := t.TempDir()
	cmd = NewRunCommand()
	cmd.SetArgs([]string{"--example", "locks", "-i", filepath.Join(dir, "in"), "-t", "--trace-file", filepath.Join(dir, "trace.log")})
	require.NoError(t, cmd.Execute())
	data, err := os.ReadFile(filepath.Join(dir, "trace.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "[exit]")

	cmd = NewRunCommand()
	cmd.SetArgs([]string{"a", "b"})
	assert.ErrorIs(t, cmd.Execute(), ErrCLI)

	cmd = NewRunCommand()
	cmd.SetArgs([]string{"--nope"})
	assert.ErrorIs(t, cmd.Execute(), ErrCLI)
}
