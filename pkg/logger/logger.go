package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Leveled logger shared by the API server, devserver and sitectl.
// - package-level Debugf/Infof/Warnf/Errorf/Fatalf
// - backed by log/slog (JSON by default, text on request)
// - optional rotating file output via lumberjack

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

const slogFatal = slog.LevelError + 4

// Options configures output. Zero value logs JSON to stdout.
type Options struct {
	// Format is "json" (default) or "text".
	Format string
	// File, when set, receives a copy of every line and is rotated.
	File          string
	MaxSizeMB     int
	MaxBackups    int
	MaxAgeDays    int
	Compress      bool
	ConsoleWriter io.Writer
}

var (
	mu       sync.RWMutex
	level    = LevelInfo
	levelVar = new(slog.LevelVar)
	logger   = newSlog(os.Stdout, "json")
	rotating *lumberjack.Logger
)

func newSlog(w io.Writer, format string) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: levelVar,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if l, ok := a.Value.Any().(slog.Level); ok && l == slogFatal {
					a.Value = slog.StringValue("FATAL")
				}
			}
			return a
		},
	}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// Init sets the global log level (case-insensitive: debug, info, warn, error, fatal).
// Call early during startup. Default level is Info.
func Init(l string) {
	mu.Lock()
	defer mu.Unlock()
	switch strings.ToLower(strings.TrimSpace(l)) {
	case "debug":
		level = LevelDebug
	case "warn", "warning":
		level = LevelWarn
	case "error":
		level = LevelError
	case "fatal":
		level = LevelFatal
	default:
		level = LevelInfo
	}
	levelVar.Set(toSlog(level))
}

// Configure replaces the output destination and format. Safe to call more
// than once; a previously opened log file is closed.
func Configure(o Options) {
	mu.Lock()
	defer mu.Unlock()
	var w io.Writer = os.Stdout
	if o.ConsoleWriter != nil {
		w = o.ConsoleWriter
	}
	if rotating != nil {
		_ = rotating.Close()
		rotating = nil
	}
	if o.File != "" {
		rotating = &lumberjack.Logger{
			Filename:   o.File,
			MaxSize:    o.MaxSizeMB,
			MaxBackups: o.MaxBackups,
			MaxAge:     o.MaxAgeDays,
			Compress:   o.Compress,
		}
		w = io.MultiWriter(w, rotating)
	}
	logger = newSlog(w, o.Format)
}

// Close flushes and closes the rotating file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if rotating == nil {
		return nil
	}
	err := rotating.Close()
	rotating = nil
	return err
}

func toSlog(l Level) slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	case LevelFatal:
		return slogFatal
	}
	return slog.LevelInfo
}

func current() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func logf(l Level, format string, v ...interface{}) {
	lg := current()
	sl := toSlog(l)
	if !lg.Enabled(context.Background(), sl) {
		return
	}
	lg.Log(context.Background(), sl, fmt.Sprintf(format, v...))
}

func Debugf(format string, v ...interface{}) { logf(LevelDebug, format, v...) }
func Infof(format string, v ...interface{})  { logf(LevelInfo, format, v...) }
func Warnf(format string, v ...interface{})  { logf(LevelWarn, format, v...) }
func Errorf(format string, v ...interface{}) { logf(LevelError, format, v...) }

func Fatalf(format string, v ...interface{}) {
	current().Log(context.Background(), slogFatal, fmt.Sprintf(format, v...))
	_ = Close()
	os.Exit(1)
}

// Println kept for brief messages (maps to Info)
func Println(v ...interface{}) {
	logf(LevelInfo, "%s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Log writes a structured record; args are slog key/value pairs.
func Log(l Level, msg string, args ...any) {
	current().Log(context.Background(), toSlog(l), msg, args...)
}

// LevelString returns the current level as text.
func LevelString() string {
	mu.RLock()
	defer mu.RUnlock()
	switch level {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	}
	return "info"
}
