package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	Level     string // debug, info, warn, error
	File      string // log file path, empty disables file output
	Console   bool   // enable console output
	Pretty    bool   // human-readable console format
	Redaction bool   // scrub secrets before they reach any writer
	MaxSize   int    // max size in MB before rotation
	MaxAge    int    // max age in days for rotated files
	Compress  bool   // gzip rotated files
}

// DefaultConfig returns the logger defaults used when no config file names
// its own.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Console:   true,
		Pretty:    true,
		Redaction: true,
		MaxSize:   100,
		MaxAge:    7,
		Compress:  true,
	}
}

// Logger is the process logger: zerolog over an optional rotating file
// writer, with redaction applied ahead of every sink.
type Logger struct {
	logger   zerolog.Logger
	closer   io.Closer
	redactor *Redactor
}

// New builds a logger from cfg and installs it as zerolog's global logger,
// so package-level log calls and the daemon share one sink.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	writer, closer, err := buildWriter(cfg)
	if err != nil {
		return nil, err
	}

	var redactor *Redactor
	if cfg.Redaction {
		redactor = NewRedactor()
		writer = redactor.Wrap(writer)
	}

	zl := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	log.Logger = zl

	return &Logger{logger: zl, closer: closer, redactor: redactor}, nil
}

// buildWriter assembles the output stack: console and/or rotating file,
// falling back to stdout when neither is configured.
func buildWriter(cfg Config) (io.Writer, io.Closer, error) {
	var writers []io.Writer

	if cfg.Console {
		if cfg.Pretty {
			writers = append(writers, zerolog.ConsoleWriter{
				Out:        os.Stdout,
				TimeFormat: time.RFC3339,
			})
		} else {
			writers = append(writers, os.Stdout)
		}
	}

	var closer io.Closer
	if cfg.File != "" {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = DefaultConfig().MaxSize
		}
		rw, err := NewRotatingWriter(cfg.File, maxSize, cfg.MaxAge, cfg.Compress)
		if err != nil {
			return nil, nil, err
		}
		writers = append(writers, rw)
		closer = rw
	}

	switch len(writers) {
	case 0:
		return os.Stdout, nil, nil
	case 1:
		return writers[0], closer, nil
	default:
		return io.MultiWriter(writers...), closer, nil
	}
}

// Close flushes and closes the file writer, if any.
func (l *Logger) Close() error {
	if l.closer != nil {
		return l.closer.Close()
	}
	return nil
}

func (l *Logger) Debug() *zerolog.Event { return l.logger.Debug() }
func (l *Logger) Info() *zerolog.Event  { return l.logger.Info() }
func (l *Logger) Warn() *zerolog.Event  { return l.logger.Warn() }
func (l *Logger) Error() *zerolog.Event { return l.logger.Error() }
func (l *Logger) Fatal() *zerolog.Event { return l.logger.Fatal() }

// With opens a child logger context.
func (l *Logger) With() zerolog.Context {
	return l.logger.With()
}

// GetZerolog returns the underlying zerolog.Logger for packages that take
// one directly.
func (l *Logger) GetZerolog() zerolog.Logger {
	return l.logger
}
