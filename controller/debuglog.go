package controller

import (
	"fmt"
	"sync"
	"time"

	"voxverify/log"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// DefaultLogEntries bounds the on-screen diagnostic log.
const DefaultLogEntries = 500

type Entry struct {
	Time    time.Time
	Level   Level
	Message string
}

func (e Entry) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// DebugLog is the bounded diagnostic log shown in the collapsible panel.
// Every entry is also written to the diagnostics file.
type DebugLog struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	onEntry func(Entry)
	now     func() time.Time
}

func NewDebugLog(max int, onEntry func(Entry)) *DebugLog {
	if max <= 0 {
		max = DefaultLogEntries
	}
	return &DebugLog{max: max, onEntry: onEntry, now: time.Now}
}

func (l *DebugLog) add(level Level, msg string) {
	e := Entry{Time: l.now(), Level: level, Message: msg}

	l.mu.Lock()
	if len(l.entries) >= l.max {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
	cb := l.onEntry
	l.mu.Unlock()

	switch level {
	case LevelWarning:
		log.Warn(msg)
	case LevelError:
		log.Error(msg)
	default:
		log.Info(msg)
	}
	if cb != nil {
		cb(e)
	}
}

func (l *DebugLog) Info(msg string)  { l.add(LevelInfo, msg) }
func (l *DebugLog) Warn(msg string)  { l.add(LevelWarning, msg) }
func (l *DebugLog) Error(msg string) { l.add(LevelError, msg) }

func (l *DebugLog) Infof(format string, args ...any)  { l.add(LevelInfo, fmt.Sprintf(format, args...)) }
func (l *DebugLog) Warnf(format string, args ...any)  { l.add(LevelWarning, fmt.Sprintf(format, args...)) }
func (l *DebugLog) Errorf(format string, args ...any) { l.add(LevelError, fmt.Sprintf(format, args...)) }

// Entries returns a copy, oldest first.
func (l *DebugLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Entry(nil), l.entries...)
}

func (l *DebugLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
