package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
)

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARNING",
	LevelError: "ERROR",
}

var levelColors = map[Level]string{
	LevelDebug: "\x1b[36m",
	LevelInfo:  "\x1b[32m",
	LevelWarn:  "\x1b[33m",
	LevelError: "\x1b[31m",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel accepts the level names used in -L and the config file.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// RootName is the name of the top level logger; component loggers are
// named RootName + "." + component.
const RootName = "sstcs"

type logState struct {
	mu        sync.Mutex
	out       *log.Logger
	color     bool
	root      Level
	overrides map[string]Level
	nameWidth int
}

var state = &logState{
	out:       log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds),
	root:      LevelInfo,
	overrides: map[string]Level{},
}

// SetOutput redirects all loggers. Level tags are colored only when w is a
// terminal.
func SetOutput(w io.Writer) {
	state.mu.Lock()
	defer state.mu.Unlock()
	state.out.SetOutput(w)
	state.color = false
	if f, ok := w.(*os.File); ok {
		state.color = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
}

// SetLevels applies a level string such as "info,upnp=debug". A bare
// level sets the root level, later ones winning; name=level entries
// override it for a logger and its children. Names may omit the RootName
// prefix.
func SetLevels(levels string) error {
	root := LevelInfo
	overrides := map[string]Level{}
	for _, part := range strings.Split(levels, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, lvl, found := strings.Cut(part, "=")
		if !found {
			l, err := ParseLevel(name)
			if err != nil {
				return err
			}
			root = l
			continue
		}
		l, err := ParseLevel(lvl)
		if err != nil {
			return fmt.Errorf("logger %s: %w", name, err)
		}
		overrides[qualify(strings.TrimSpace(name))] = l
	}
	state.mu.Lock()
	state.root = root
	state.overrides = overrides
	state.mu.Unlock()
	return nil
}

func qualify(name string) string {
	if name == RootName || strings.HasPrefix(name, RootName+".") {
		return name
	}
	return RootName + "." + name
}

// levelFor returns the level of the most specific configured ancestor of
// name. Callers hold state.mu.
func levelFor(name string) Level {
	best := ""
	lvl := state.root
	for prefix, l := range state.overrides {
		if name != prefix && !strings.HasPrefix(name, prefix+".") {
			continue
		}
		if len(prefix) > len(best) {
			best, lvl = prefix, l
		}
	}
	return lvl
}

// Logger is a named, leveled logger. The zero value is not usable; create
// one with NewLogger.
type Logger struct {
	name string
}

// NewLogger returns the logger for a component. An empty component yields
// the root logger.
func NewLogger(component string) *Logger {
	if component == "" {
		return &Logger{name: RootName}
	}
	return &Logger{name: qualify(component)}
}

func (l *Logger) Name() string { return l.name }

// Enabled reports whether messages at lvl would be written.
func (l *Logger) Enabled(lvl Level) bool {
	state.mu.Lock()
	defer state.mu.Unlock()
	return lvl >= levelFor(l.name)
}

func (l *Logger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *Logger) logf(lvl Level, format string, args ...any) {
	if l == nil {
		return
	}
	state.mu.Lock()
	defer state.mu.Unlock()
	if lvl < levelFor(l.name) {
		return
	}
	if len(l.name) > state.nameWidth {
		state.nameWidth = len(l.name)
	}
	tag := fmt.Sprintf("%-7s", lvl)
	if state.color {
		tag = levelColors[lvl] + tag + "\x1b[0m"
	}
	prefix := fmt.Sprintf("%s %-*s ", tag, state.nameWidth, l.name)
	msg := fmt.Sprintf(format, args...)
	lines := strings.Split(strings.TrimRight(msg, "\n"), "\n")
	for i, line := range lines {
		if i > 0 {
			line = "  " + line
		}
		state.out.Print(prefix + line)
	}
}

// Overrides returns the configured per-logger levels, sorted by name.
func Overrides() []string {
	state.mu.Lock()
	defer state.mu.Unlock()
	names := make([]string, 0, len(state.overrides))
	for name := range state.overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, len(names))
	for i, name := range names {
		out[i] = name + "=" + strings.ToLower(state.overrides[name].String())
	}
	return out
}

var rootLogger = NewLogger("")

// Fatalf logs on the root logger and exits with status 2.
func Fatalf(format string, args ...any) {
	rootLogger.Errorf(format, args...)
	os.Exit(2)
}
