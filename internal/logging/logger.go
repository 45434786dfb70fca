package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-isatty"

	"cfgd/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	Level string
	// Format is console, json or auto.
	Format string
	// Output is "stdout", "stderr" or a file path. Empty means stdout.
	Output string
	// File, when set, receives a JSON copy of every record.
	File string
	// RunID tags JSON records with the process run that emitted them.
	RunID string
	// Source forces file:line on every record. Debug level always has it.
	Source bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))
	source := opts.Source || level.Level() <= slog.LevelDebug

	target := strings.TrimSpace(opts.Output)
	if target == "" {
		target = "stdout"
	}
	out, err := openOutput(target)
	if err != nil {
		return nil, err
	}
	format, err := resolveFormat(opts.Format, out)
	if err != nil {
		return nil, err
	}

	var handler slog.Handler
	if format == "json" {
		handler = tagRunID(newJSONHandler(out, level, source), opts.RunID)
	} else {
		handler = newConsoleHandler(out, level, source)
	}

	if path := strings.TrimSpace(opts.File); path != "" {
		file, err := openOutput(path)
		if err != nil {
			return nil, err
		}
		handler = newTeeHandler(handler, tagRunID(newJSONHandler(file, level, source), opts.RunID))
	}
	return slog.New(handler), nil
}

// NewFromConfig creates a logger from the [logging] section of cfg.
func NewFromConfig(cfg *config.Config, runID string) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{RunID: runID})
	}
	return New(Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		RunID:  runID,
	})
}

// resolveFormat settles "auto" against the writer: a terminal gets the
// console layout, anything else gets JSON.
func resolveFormat(format string, out io.Writer) (string, error) {
	switch f := strings.ToLower(strings.TrimSpace(format)); f {
	case "", "console":
		return "console", nil
	case "json":
		return "json", nil
	case "auto":
		if file, ok := out.(*os.File); ok && isTerminal(file) {
			return "console", nil
		}
		return "json", nil
	default:
		return "", fmt.Errorf("log format: unsupported value %q", f)
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "dbg":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log directory %s: %w", dir, err)
		}
	}
	file, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", target, err)
	}
	return file, nil
}
