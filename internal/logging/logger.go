// Package logging wraps github.com/charmbracelet/log with the teacher's
// component-gated, ring-buffered logger shape (internal/debug.Logger):
// logging is opt-in per component, and the last N entries stay available
// through Recent regardless of what the user's terminal scrolled past (no
// IPC verb serves them). Where the teacher hand-rolled leveled output, this
// package delegates that part to charmbracelet/log - the library used for
// the same purpose by the uinput/wayland input daemons in the retrieval
// pack - and keeps only the parts charmbracelet/log doesn't offer
// (per-component enable flags, a queryable recent-entries buffer).
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// entry is one ring-buffer slot, independent of charmlog's own internal
// formatting; Recent formats it into a plain text line on demand.
type entry struct {
	Timestamp time.Time
	Component Component
	Level     charmlog.Level
	Message   string
}

// Logger gates charmbracelet/log output per component and retains the
// last maxEntries entries for inspection through Recent.
type Logger struct {
	backend *charmlog.Logger

	mu               sync.Mutex
	enabled          map[Component]bool
	ring             []entry
	writeIdx         int
	count            int
	maxEntries       int
}

// New builds a Logger writing to os.Stderr that retains the last maxEntries
// entries (at least one), with every component disabled by default,
// matching the teacher's "logging is opt-in" stance.
func New(maxEntries int) *Logger {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Logger{
		backend:    charmlog.NewWithOptions(os.Stderr, charmlog.Options{ReportTimestamp: true}),
		enabled:    make(map[Component]bool),
		ring:       make([]entry, maxEntries),
		maxEntries: maxEntries,
	}
}

// Enable turns logging on for a component; all components start disabled.
func (l *Logger) Enable(c Component)  { l.setEnabled(c, true) }
func (l *Logger) Disable(c Component) { l.setEnabled(c, false) }

func (l *Logger) setEnabled(c Component, v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled[c] = v
}

func (l *Logger) EnableAll(components ...Component) {
	for _, c := range components {
		l.Enable(c)
	}
}

// SetLevel controls charmbracelet/log's own severity filter, independent
// of the per-component gate.
func (l *Logger) SetLevel(level charmlog.Level) {
	l.backend.SetLevel(level)
}

func (l *Logger) isEnabled(c Component) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled[c]
}

// Logf records a formatted message for component at level, both into the
// ring buffer and (if the component is enabled) out to the backend
// charmbracelet/log writer.
func (l *Logger) Logf(c Component, level charmlog.Level, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.record(c, level, msg)

	if !l.isEnabled(c) {
		return
	}
	l.backend.With("subsystem", string(c)).Log(level, msg)
}

func (l *Logger) Debugf(c Component, format string, args ...any) { l.Logf(c, charmlog.DebugLevel, format, args...) }
func (l *Logger) Infof(c Component, format string, args ...any)  { l.Logf(c, charmlog.InfoLevel, format, args...) }
func (l *Logger) Warnf(c Component, format string, args ...any)  { l.Logf(c, charmlog.WarnLevel, format, args...) }
func (l *Logger) Errorf(c Component, format string, args ...any) { l.Logf(c, charmlog.ErrorLevel, format, args...) }

func (l *Logger) record(c Component, level charmlog.Level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.ring[l.writeIdx] = entry{Timestamp: time.Now(), Component: c, Level: level, Message: msg}
	l.writeIdx = (l.writeIdx + 1) % l.maxEntries
	if l.count < l.maxEntries {
		l.count++
	}
}

// Recent returns up to n of the most recently recorded entries (across all
// components, regardless of whether they were enabled for backend output),
// oldest first - the same "debug dump survives even when you forgot to
// turn logging on until after the bug happened" property as the teacher's
// GetRecentEntries.
func (l *Logger) Recent(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count == 0 {
		return nil
	}
	all := make([]entry, l.count)
	if l.count < l.maxEntries {
		copy(all, l.ring[:l.count])
	} else {
		for i := 0; i < l.count; i++ {
			all[i] = l.ring[(l.writeIdx+i)%l.maxEntries]
		}
	}
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}

	lines := make([]string, len(all))
	for i, e := range all {
		lines[i] = fmt.Sprintf("[%s] [%s] %s: %s",
			e.Timestamp.Format("15:04:05.000"), e.Component, e.Level, e.Message)
	}
	return lines
}
