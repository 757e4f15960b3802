// Package logging builds the process-wide slog handler.
//
// Library packages log through log/slog. The CLI calls Setup once, which
// routes every slog record into a zerolog logger configured from Config.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, format and destination of log output.
type Config struct {
	Level    string `yaml:"level"`     // debug, info, warn, error
	Format   string `yaml:"format"`    // json or console
	Output   string `yaml:"output"`    // stdout, stderr or file
	FilePath string `yaml:"file_path"` // used when Output is "file"
}

// DefaultConfig returns console logging at info level to stderr.
func DefaultConfig() Config {
	return Config{Level: "info", Format: "console", Output: "stderr"}
}

// New builds a zerolog logger from cfg.
//
// The returned closer releases the log file when Output is "file"; it is a
// no-op otherwise.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	if level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	closer := func() error { return nil }
	var output io.Writer
	switch strings.ToLower(cfg.Output) {
	case "", "stderr":
		output = os.Stderr
	case "stdout":
		output = os.Stdout
	case "file":
		if cfg.FilePath == "" {
			return zerolog.Nop(), nil, fmt.Errorf("log output %q requires file_path", cfg.Output)
		}
		f, err := os.OpenFile(cfg.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nil, fmt.Errorf("open log file %q: %w", cfg.FilePath, err)
		}
		output = f
		closer = f.Close
	default:
		return zerolog.Nop(), nil, fmt.Errorf("invalid log output %q", cfg.Output)
	}

	switch strings.ToLower(cfg.Format) {
	case "", "console":
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	logger := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return logger, closer, nil
}

// Setup installs a zerolog-backed handler as the slog default.
func Setup(cfg Config) (func() error, error) {
	logger, closer, err := New(cfg)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(NewHandler(logger)))
	return closer, nil
}
