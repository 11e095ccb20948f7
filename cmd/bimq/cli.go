package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/zero-day-ai/bimq/config"
)

// ExitError carries a process exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(format string, args ...any) error {
	return &ExitError{Code: 2, Message: fmt.Sprintf(format, args...)}
}

// env is what every command receives.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	stdout io.Writer
	stderr io.Writer
	flags  *flag.FlagSet
}

type command struct {
	summary string
	// setup registers command flags; it returns the handler to call after
	// parsing.
	setup func(fs *flag.FlagSet) func(ctx context.Context, e *env) error
}

var commands = map[string]command{
	"ask":    {"answer a question about the building", setupAsk},
	"query":  {"run a structured query directly", setupQuery},
	"schema": {"print the graph schema", setupSchema},
	"export": {"write the graph to Neo4j", setupExport},
	"mcp":    {"serve the assistant over the Model Context Protocol", setupMCP},
	"check":  {"check the model file and configured endpoints", setupCheck},
}

func usage(w io.Writer) {
	fmt.Fprint(w, `
bimq - natural-language queries over building element graphs.

Usage:
  bimq <command> [options] [arguments]

Commands:
`)
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-8s %s\n", name, commands[name].summary)
	}
	fmt.Fprint(w, "\nRun 'bimq <command> -h' for command options.\n")
}

// run parses args and executes one command.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		usage(stdout)
		return &ExitError{Code: 2}
	}
	name := args[0]
	if name == "-h" || name == "--help" || name == "help" {
		usage(stdout)
		return nil
	}
	cmd, ok := commands[name]
	if !ok {
		return usageError("unknown command %q (run 'bimq help')", name)
	}

	fs := flag.NewFlagSet("bimq "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to bimq.yaml or a directory containing it.")
	modelPath := fs.String("model", "", "Path to the building model JSON file (overrides config).")
	logLevel := fs.String("log-level", "", "Logging level: debug, info, warn or error.")
	logFormat := fs.String("log-format", "", "Log output format: text or json.")
	handler := cmd.setup(fs)

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return &ExitError{Code: 2, Message: err.Error()}
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	if *modelPath != "" {
		cfg.Model = *modelPath
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if err := cfg.Validate(); err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}

	logger := newLogger(cfg.Log, stderr)
	return handler(ctx, &env{
		cfg:    cfg,
		logger: logger,
		stdout: stdout,
		stderr: stderr,
		flags:  fs,
	})
}

// loadConfig reads path, or bimq.yaml in the working directory when path is
// empty and that file exists, or the defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if _, err := os.Stat(config.DefaultFileName); err != nil {
			cfg := config.Default()
			cfg.ApplyEnv()
			return cfg, nil
		}
		path = config.DefaultFileName
	}
	return config.Load(path)
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// listFlag collects comma-separated or repeated values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// mapFlag collects key=value pairs.
type mapFlag map[string]string

func (m mapFlag) String() string {
	parts := make([]string, 0, len(m))
	for k, v := range m {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (m mapFlag) Set(v string) error {
	k, val, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(k) == "" {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	m[strings.TrimSpace(k)] = strings.TrimSpace(val)
	return nil
}
