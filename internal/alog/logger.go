// Package alog provides the colored, per-component logger used across
// AuroraView's subsystems.
package alog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fatih/color"
)

// Level is a log severity, ordered least to most severe.
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) slog() slog.Level {
	switch l {
	case Debug:
		return slog.LevelDebug
	case Warn:
		return slog.LevelWarn
	case Error:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Config controls a single component logger.
type Config struct {
	Component string
	Color     color.Attribute
	MinLevel  Level
	Output    io.Writer
}

// Logger writes colored, component-prefixed lines and mirrors them
// through a slog.Logger for anything consuming structured output.
type Logger struct {
	component string
	minLevel  Level
	prefix    func(string) string
	out       io.Writer
	structured *slog.Logger

	mu sync.Mutex
}

// New creates a component logger.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	c := color.New(cfg.Color)
	handler := slog.NewTextHandler(out, &slog.HandlerOptions{Level: cfg.MinLevel.slog()})
	return &Logger{
		component:  cfg.Component,
		minLevel:   cfg.MinLevel,
		prefix:     c.SprintFunc(),
		out:        out,
		structured: slog.New(handler).With("component", cfg.Component),
	}
}

func (l *Logger) log(level Level, format string, args ...any) {
	if level < l.minLevel {
		return
	}
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	fmt.Fprintf(l.out, "%s %s\n", l.prefix("["+l.component+"]"), msg)
	l.mu.Unlock()
	l.structured.Log(context.Background(), level.slog(), msg)
}

func (l *Logger) Debug(format string, args ...any) { l.log(Debug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(Info, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(Warn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(Error, format, args...) }

// With returns the underlying structured logger for call sites that
// want key/value attributes instead of printf-style formatting.
func (l *Logger) With(args ...any) *slog.Logger {
	return l.structured.With(args...)
}

var (
	factoryMu sync.Mutex
	factory   = map[string]*Logger{}

	// Packer, IPC, Supervisor, Registry, Cleanup, Runtime are the
	// well-known per-subsystem loggers, mirroring the teacher's
	// per-component LoggerFactory (ReactLogger/ToolLogger/...).
	Packer     = Get("PACKER", color.FgCyan)
	IPC        = Get("IPC", color.FgMagenta)
	Supervisor = Get("SUPERVISOR", color.FgYellow)
	Registry   = Get("REGISTRY", color.FgGreen)
	Cleanup    = Get("CLEANUP", color.FgHiBlack)
	Runtime    = Get("RUNTIME", color.FgBlue)
	Automation = Get("AUTOMATION", color.FgHiCyan)
	Tabs       = Get("TABS", color.FgHiGreen)
)

// Get returns (creating if needed) the named component logger.
func Get(component string, c color.Attribute) *Logger {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if existing, ok := factory[component]; ok {
		return existing
	}
	l := New(Config{Component: component, Color: c, MinLevel: Info})
	factory[component] = l
	return l
}
