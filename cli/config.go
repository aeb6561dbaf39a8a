// Package cli provides the command line surface shared by the evm binaries.
package cli

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"go.creack.net/evm/trace"
)

// ErrCLI wraps the command line errors.
var ErrCLI = errors.New("Error while parsing arguments from cli")

// Config is the runtime configuration, from the config file and the flags.
type Config struct {
	InputFile   string `toml:"input_file"`
	Trace       bool   `toml:"trace"`
	TraceFormat string `toml:"trace_format"`
	TraceFile   string `toml:"trace_file"` // "-" for stderr.
	LogLevel    int    `toml:"log_level"`
	LogFile     string `toml:"log_file"`
}

func DefaultConfig() Config {
	return Config{
		InputFile:   "in",
		TraceFormat: trace.FormatText,
		TraceFile:   "trace.log",
	}
}

func (cfg Config) Validate() error {
	if !slices.Contains(trace.Formats, cfg.TraceFormat) {
		return fmt.Errorf("invalid trace format %q, expect one of %s", cfg.TraceFormat, strings.Join(trace.Formats, ", "))
	}
	if cfg.InputFile == "" {
		return fmt.Errorf("missing input file name")
	}
	return nil
}

// LoadConfig reads the TOML file at path on top of the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to load config %q: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("unknown keys in config %q: %v", path, undecoded)
	}
	return cfg, nil
}

// Settings binds the flags of a command to a Config.
type Settings struct {
	ConfigPath string
	flags      Config
}

// Register adds the runtime flags to cmd.
func (s *Settings) Register(cmd *cobra.Command) {
	def := DefaultConfig()
	fs := cmd.Flags()
	fs.StringVar(&s.ConfigPath, "config", "", "TOML config file")
	fs.StringVarP(&s.flags.InputFile, "input-file", "i", def.InputFile, "file used by the read and write instructions")
	fs.BoolVarP(&s.flags.Trace, "trace", "t", def.Trace, "trace the executed instructions")
	fs.StringVar(&s.flags.TraceFormat, "trace-format", def.TraceFormat, "trace format: "+strings.Join(trace.Formats, ", "))
	fs.StringVar(&s.flags.TraceFile, "trace-file", def.TraceFile, `trace output file, "-" for stderr`)
	fs.CountVarP(&s.flags.LogLevel, "verbose", "v", "log verbosity, repeat for more")
	fs.StringVar(&s.flags.LogFile, "log-file", def.LogFile, "log to the given file instead of stderr")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", ErrCLI, err)
	})
}

// Resolve loads the config file, if any, and applies the flags explicitly set.
func (s *Settings) Resolve(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if s.ConfigPath != "" {
		var err error
		if cfg, err = LoadConfig(s.ConfigPath); err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrCLI, err)
		}
	}

	fs := cmd.Flags()
	for name, apply := range map[string]func(){
		"input-file":   func() { cfg.InputFile = s.flags.InputFile },
		"trace":        func() { cfg.Trace = s.flags.Trace },
		"trace-format": func() { cfg.TraceFormat = s.flags.TraceFormat },
		"trace-file":   func() { cfg.TraceFile = s.flags.TraceFile },
		"verbose":      func() { cfg.LogLevel = s.flags.LogLevel },
		"log-file":     func() { cfg.LogFile = s.flags.LogFile },
	} {
		if fs.Changed(name) {
			apply()
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrCLI, err)
	}
	return cfg, nil
}

// SetupLogging configures the commonlog backend.
func SetupLogging(cfg Config) {
	if cfg.LogFile != "" {
		commonlog.Configure(cfg.LogLevel, &cfg.LogFile)
		return
	}
	commonlog.Configure(cfg.LogLevel, nil)
}
