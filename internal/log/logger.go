// SPDX-License-Identifier: MIT
// Package log is a small leveled logger shared by the whole process. Every
// message belongs to a component: either through a Logger from For, or through
// the "Component: message" prefix on the package-level functions. Components
// may run at their own level, e.g. "warn,WebSocketTransport=debug".
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevel defines the severity of a log message.
type LogLevel uint32

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// tag is the bracketed level padded to a common width.
func (l LogLevel) tag() string {
	return fmt.Sprintf("%-7s", "["+l.String()+"]")
}

// ParseLevel converts a single level name (case-insensitive) to a LogLevel.
// Unknown names return LevelInfo and an error.
func ParseLevel(levelStr string) (LogLevel, error) {
	name := strings.ToUpper(strings.TrimSpace(levelStr))
	switch name {
	case "":
		return LevelInfo, nil
	case "WARNING":
		return LevelWarn, nil
	}
	for i, n := range levelNames {
		if n == name {
			return LogLevel(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level '%s'", levelStr)
}

// Levels is a default level with per-component overrides.
type Levels struct {
	Default    LogLevel
	Components map[string]LogLevel
}

// ParseLevels reads "level[,Component=level...]". Component names match the
// message prefix exactly.
func ParseLevels(s string) (Levels, error) {
	head, rest, _ := strings.Cut(s, ",")
	def, err := ParseLevel(head)
	if err != nil {
		return Levels{Default: LevelInfo}, err
	}
	lv := Levels{Default: def}
	if strings.TrimSpace(rest) == "" {
		return lv, nil
	}
	lv.Components = make(map[string]LogLevel)
	for _, field := range strings.Split(rest, ",") {
		name, level, ok := strings.Cut(field, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return Levels{Default: LevelInfo}, fmt.Errorf("malformed component level '%s'", field)
		}
		l, err := ParseLevel(level)
		if err != nil {
			return Levels{Default: LevelInfo}, fmt.Errorf("component %s: %w", name, err)
		}
		lv.Components[name] = l
	}
	return lv, nil
}

var (
	currentLevel atomic.Uint32
	overrides    atomic.Pointer[map[string]LogLevel]
)

// logger shows date and time with microseconds.
var logger = stdlog.New(os.Stderr, "", stdlog.Ldate|stdlog.Ltime|stdlog.Lmicroseconds)

func init() {
	SetLevel(LevelInfo)
}

// SetLevel sets the default level. Component overrides are kept.
func SetLevel(level LogLevel) {
	currentLevel.Store(uint32(level))
}

// GetLevel returns the default level.
func GetLevel() LogLevel {
	return LogLevel(currentLevel.Load())
}

// SetLevels replaces the default level and every component override.
func SetLevels(lv Levels) {
	SetLevel(lv.Default)
	if len(lv.Components) == 0 {
		overrides.Store(nil)
		return
	}
	m := make(map[string]LogLevel, len(lv.Components))
	for k, v := range lv.Components {
		m[k] = v
	}
	overrides.Store(&m)
}

// SetOutput redirects every message, e.g. away from a terminal UI.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

// Configure applies a level spec; debug drops every component to LevelDebug.
func Configure(spec string, debug bool) error {
	lv, err := ParseLevels(spec)
	if err != nil {
		return err
	}
	if debug {
		lv = Levels{Default: LevelDebug}
	}
	SetLevels(lv)
	return nil
}

func levelFor(component string) LogLevel {
	if m := overrides.Load(); m != nil && component != "" {
		if l, ok := (*m)[component]; ok {
			return l
		}
	}
	return GetLevel()
}

// componentOf returns the leading "Name:" of a message, if it has one.
func componentOf(msg string) string {
	name, _, ok := strings.Cut(msg, ": ")
	if !ok || name == "" || strings.ContainsAny(name, " \t") {
		return ""
	}
	return name
}

func emit(level LogLevel, component, format string, v []any) {
	if level < levelFor(component) {
		return
	}
	msg := fmt.Sprintf(format, v...)
	if component != "" {
		msg = component + ": " + msg
	}
	logger.Printf("%s %s", level.tag(), msg)
}

func emitPrefixed(level LogLevel, format string, v []any) {
	if level < levelFor(componentOf(format)) {
		return
	}
	logger.Printf("%s %s", level.tag(), fmt.Sprintf(format, v...))
}

// Logger writes messages for one component.
type Logger struct {
	component string
}

// For returns the Logger for component. Its messages carry the
// "component: " prefix and honour any level set for that component.
func For(component string) Logger {
	return Logger{component: component}
}

// Enabled reports whether level would be written for this component.
func (l Logger) Enabled(level LogLevel) bool {
	return level >= levelFor(l.component)
}

func (l Logger) Debugf(format string, v ...any) { emit(LevelDebug, l.component, format, v) }
func (l Logger) Infof(format string, v ...any)  { emit(LevelInfo, l.component, format, v) }
func (l Logger) Warnf(format string, v ...any)  { emit(LevelWarn, l.component, format, v) }
func (l Logger) Errorf(format string, v ...any) { emit(LevelError, l.component, format, v) }

func Debugf(format string, v ...any) { emitPrefixed(LevelDebug, format, v) }
func Infof(format string, v ...any)  { emitPrefixed(LevelInfo, format, v) }
func Warnf(format string, v ...any)  { emitPrefixed(LevelWarn, format, v) }
func Errorf(format string, v ...any) { emitPrefixed(LevelError, format, v) }

// Fatalf always logs, then exits the process.
func Fatalf(format string, v ...any) {
	logger.Fatalf("%s %s", LevelFatal.tag(), fmt.Sprintf(format, v...))
}
