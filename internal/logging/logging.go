package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level orders log severities.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level. Unknown values map to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// StdoutLogger is a structured logger that prints JSON lines.
// Despite the name, the destination can be swapped with NewLogger.
type StdoutLogger struct {
	component string
	level     Level
	fields    []Field

	mu  *sync.Mutex
	out io.Writer
}

// NewStdoutLogger creates a logger writing to stdout at info level.
func NewStdoutLogger(component string) *StdoutLogger {
	return NewLogger(os.Stdout, component, LevelInfo)
}

// NewLogger creates a logger writing to w.
func NewLogger(w io.Writer, component string, level Level) *StdoutLogger {
	if w == nil {
		w = os.Stdout
	}
	return &StdoutLogger{component: component, level: level, mu: &sync.Mutex{}, out: w}
}

func (s *StdoutLogger) log(level Level, msg string, fields ...Field) {
	if level < s.level {
		return
	}
	type outEntry struct {
		Level     string         `json:"level"`
		Msg       string         `json:"msg"`
		Component string         `json:"component,omitempty"`
		Time      string         `json:"time"`
		Fields    map[string]any `json:"fields,omitempty"`
	}
	m := make(map[string]any, len(s.fields)+len(fields))
	for _, f := range s.fields {
		m[f.Key] = f.Value
	}
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	entry := outEntry{
		Level:     level.String(),
		Msg:       msg,
		Component: s.component,
		Time:      time.Now().UTC().Format(time.RFC3339),
		Fields:    m,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	enc, err := json.Marshal(entry)
	if err != nil {
		fmt.Fprintf(s.out, "%s %s %v\n", level, msg, m)
		return
	}
	fmt.Fprintln(s.out, string(enc))
}

func (s *StdoutLogger) Debug(msg string, fields ...Field) {
	s.log(LevelDebug, msg, fields...)
}

func (s *StdoutLogger) Info(msg string, fields ...Field) {
	s.log(LevelInfo, msg, fields...)
}

func (s *StdoutLogger) Warn(msg string, fields ...Field) {
	s.log(LevelWarn, msg, fields...)
}

func (s *StdoutLogger) Error(msg string, fields ...Field) {
	s.log(LevelError, msg, fields...)
}

// With returns a child logger. A "component" field replaces the component
// name; every other field is attached to each entry the child writes.
func (s *StdoutLogger) With(fields ...Field) Logger {
	child := &StdoutLogger{
		component: s.component,
		level:     s.level,
		fields:    append([]Field(nil), s.fields...),
		mu:        s.mu,
		out:       s.out,
	}
	for _, f := range fields {
		if f.Key == "component" {
			if str, ok := f.Value.(string); ok {
				child.component = str
				continue
			}
		}
		child.fields = append(child.fields, f)
	}
	return child
}
