// Package logging is the structured logger the cmd/chtl CLI driver logs
// through; any other component that wants an Info/Warn/Error trail
// alongside its diagnostics can use it too. It wraps log/slog with two small things slog doesn't give
// you out of the box: writing to stderr and a log file at once, and an
// optional Sink for tests (or an embedder) to observe records directly.
//
//	logger := logging.New(logging.Config{LogDir: "~/.chtl/logs", Service: "chtl"})
//	defer logger.Close()
//	logger.Info("compiled", "file", path, "ms", elapsed.Milliseconds())
//
// Callers are responsible for not logging secrets; this package does no
// redaction of its own.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Level is a log severity, ordered Debug < Info < Warn < Error.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// defaultServiceName names the log file when Config.Service is unset.
const defaultServiceName = "chtl"

// Config controls a Logger. The zero value is usable: Debug-level text
// logging to stderr (the zero Level is LevelDebug), no file, no sink.
type Config struct {
	// Level filters out messages below it. Default: LevelInfo in practice,
	// though the zero Level is LevelDebug — callers that care should set it
	// explicitly rather than rely on the zero value.
	Level Level

	// LogDir, if set, turns on file logging in addition to stderr: a file
	// named "{Service}_{YYYY-MM-DD}.log" is created under LogDir (which is
	// created if missing) and written in JSON regardless of the JSON flag
	// below. "~" expands to the user's home directory.
	LogDir string

	// Service tags every record (the "service" attribute) and names the
	// log file when LogDir is set.
	Service string

	// JSON switches the stderr encoding from text to JSON. File output is
	// always JSON.
	JSON bool

	// Quiet drops the stderr handler; useful for daemonized or watch-mode
	// runs where only the log file (or Sink) matters. When no log file is
	// open either, records still go to a stderr text handler.
	Quiet bool

	// Sink, if set, additionally receives every record that passes Level
	// filtering. Logger.Close calls Sink.Close.
	Sink Sink
}

// Record is one log line, passed to a Sink.
type Record struct {
	Time    time.Time
	Level   Level
	Message string
	Service string
	Attrs   map[string]any
}

// Sink observes every Record a Logger emits, independent of the
// stderr/file handlers. Write should be fast and non-blocking; a Sink that
// needs to do real I/O should buffer internally rather than stall the
// caller of Logger.Info/Warn/etc.
type Sink interface {
	Write(Record) error
	Close() error
}

// Logger is a slog.Logger with an optional file destination and Sink.
// Safe for concurrent use.
type Logger struct {
	slog *slog.Logger
	cfg  Config
	file *os.File

	mu sync.Mutex
}

// New builds a Logger from cfg. It never fails: a LogDir that can't be
// created or opened simply disables file logging rather than returning an
// error, since losing the log file is not a reason to abort compilation.
func New(cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}

	var handlers []slog.Handler
	if !cfg.Quiet {
		if cfg.JSON {
			handlers = append(handlers, slog.NewJSONHandler(os.Stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
		}
	}

	l := &Logger{cfg: cfg}
	if cfg.LogDir != "" {
		if f, ok := openLogFile(cfg.LogDir, cfg.Service); ok {
			l.file = f
			handlers = append(handlers, slog.NewJSONHandler(f, opts))
		}
	}

	var h slog.Handler
	switch len(handlers) {
	case 0:
		h = slog.NewTextHandler(os.Stderr, opts) // always emit somewhere
	case 1:
		h = handlers[0]
	default:
		h = &fanoutHandler{handlers: handlers}
	}
	if cfg.Service != "" {
		h = h.WithAttrs([]slog.Attr{slog.String("service", cfg.Service)})
	}

	l.slog = slog.New(h)
	return l
}

func openLogFile(dir, service string) (*os.File, bool) {
	dir = expandHome(dir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, false
	}
	if service == "" {
		service = defaultServiceName
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, false
	}
	return f, true
}

// Default returns the logger every CLI invocation starts with: Info level,
// text to stderr, tagged "chtl".
func Default() *Logger {
	return New(Config{Level: LevelInfo, Service: defaultServiceName})
}

func (l *Logger) Debug(msg string, args ...any) { l.emit(LevelDebug, msg, args) }
func (l *Logger) Info(msg string, args ...any)  { l.emit(LevelInfo, msg, args) }
func (l *Logger) Warn(msg string, args ...any)  { l.emit(LevelWarn, msg, args) }
func (l *Logger) Error(msg string, args ...any) { l.emit(LevelError, msg, args) }

func (l *Logger) emit(level Level, msg string, args []any) {
	switch level {
	case LevelDebug:
		l.slog.Debug(msg, args...)
	case LevelInfo:
		l.slog.Info(msg, args...)
	case LevelWarn:
		l.slog.Warn(msg, args...)
	case LevelError:
		l.slog.Error(msg, args...)
	}
	if l.cfg.Sink != nil && level >= l.cfg.Level {
		_ = l.cfg.Sink.Write(Record{
			Time:    time.Now(),
			Level:   level,
			Message: msg,
			Service: l.cfg.Service,
			Attrs:   attrsOf(args),
		})
	}
}

// With returns a child logger that prepends args to every subsequent call.
// It shares the parent's file handle and Sink.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), cfg: l.cfg, file: l.file}
}

// Slog exposes the underlying *slog.Logger for callers that need
// LogAttrs or another slog-specific feature this wrapper doesn't surface.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// Close syncs and closes the log file (if any) and closes the configured
// Sink (if any), returning the first error encountered.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var firstErr error
	note := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if l.cfg.Sink != nil {
		note(l.cfg.Sink.Close())
	}
	if l.file != nil {
		note(l.file.Sync())
		note(l.file.Close())
	}
	return firstErr
}

// fanoutHandler dispatches one record to every wrapped handler, letting
// stderr and the log file run different encodings (text vs JSON) and
// independent level filters.
type fanoutHandler struct {
	handlers []slog.Handler
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, inner := range h.handlers {
		if inner.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, inner := range h.handlers {
		if !inner.Enabled(ctx, r.Level) {
			continue
		}
		if err := inner.Handle(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, inner := range h.handlers {
		out[i] = inner.WithAttrs(attrs)
	}
	return &fanoutHandler{handlers: out}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	for i, inner := range h.handlers {
		out[i] = inner.WithGroup(name)
	}
	return &fanoutHandler{handlers: out}
}

// expandHome resolves a leading "~" against the user's home directory;
// any other path (relative or absolute) is returned unchanged.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

// attrsOf folds slog-style key/value varargs into a map for Record.Attrs.
// A trailing unpaired key or a non-string key is dropped rather than
// panicking, matching slog's own tolerant handling of malformed args.
func attrsOf(args []any) map[string]any {
	out := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		if key, ok := args[i].(string); ok {
			out[key] = args[i+1]
		}
	}
	return out
}

// NopSink discards every record. Useful where a Config requires a Sink but
// the caller has nothing to observe it with.
type NopSink struct{}

func (NopSink) Write(Record) error { return nil }
func (NopSink) Close() error       { return nil }

var _ Sink = NopSink{}

// MemorySink collects records in memory, for assertions in tests:
//
//	sink := logging.NewMemorySink()
//	logger := logging.New(logging.Config{Sink: sink})
//	logger.Info("hello")
//	require.Equal(t, "hello", sink.Records()[0].Message)
type MemorySink struct {
	mu      sync.Mutex
	records []Record
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (s *MemorySink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r)
	return nil
}

func (s *MemorySink) Close() error { return nil }

// Records returns a snapshot of every record written so far; mutating it
// does not affect the sink.
func (s *MemorySink) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, len(s.records))
	copy(out, s.records)
	return out
}

// WriterSink writes one human-readable line per record to w. It does not
// own w and never closes it.
type WriterSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewWriterSink(w io.Writer) *WriterSink { return &WriterSink{w: w} }

func (s *WriterSink) Write(r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "[%s] %s: %s %v\n", r.Time.Format(time.RFC3339), r.Level, r.Message, r.Attrs)
	return err
}

func (s *WriterSink) Close() error { return nil }
