package logger

import (
	"fmt"
	"sync"
)

type memEntry struct {
	level LogLevel
	msg   string
}

// MemLogger keeps messages in memory until a real Logger is available,
// e.g. while the config is still being decoded.
type MemLogger struct {
	entries []memEntry
	mu      sync.Mutex
}

func NewMemLogger() *MemLogger {
	return &MemLogger{}
}

func (ml *MemLogger) add(level LogLevel, msg string) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.entries = append(ml.entries, memEntry{level: level, msg: msg})
}

func (ml *MemLogger) Debugf(msg string, args ...interface{}) {
	ml.add(LogLevelDebug, fmt.Sprintf(msg, args...))
}

func (ml *MemLogger) Infof(msg string, args ...interface{}) {
	ml.add(LogLevelInfo, fmt.Sprintf(msg, args...))
}

func (ml *MemLogger) Errorf(msg string, args ...interface{}) {
	ml.add(LogLevelError, fmt.Sprintf(msg, args...))
}

// Flush writes buffered messages to l in the order they were logged.
func (ml *MemLogger) Flush(l *Logger) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	for _, e := range ml.entries {
		l.Logf(e.level, "%s", e.msg)
	}
	ml.entries = nil
}
