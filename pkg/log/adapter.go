package log

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// BadgerLogrusAdapter implements badger.Logger interface using logrus
type BadgerLogrusAdapter struct {
	*logrus.Entry // Embed logrus Entry
}

// NewBadgerLogrusAdapter creates a new adapter
func NewBadgerLogrusAdapter(entry *logrus.Entry) *BadgerLogrusAdapter {
	return &BadgerLogrusAdapter{entry}
}

// Errorf logs an error message
func (l *BadgerLogrusAdapter) Errorf(f string, v ...interface{}) { l.Entry.Errorf(f, v...) }

// Warningf logs a warning message
func (l *BadgerLogrusAdapter) Warningf(f string, v ...interface{}) { l.Entry.Warningf(f, v...) }

// Infof logs an info message
func (l *BadgerLogrusAdapter) Infof(f string, v ...interface{}) { l.Entry.Infof(f, v...) }

// Debugf logs a debug message
func (l *BadgerLogrusAdapter) Debugf(f string, v ...interface{}) { l.Entry.Debugf(f, v...) }

// GinLogrusWriter adapts a logrus entry to io.Writer so gin's default and
// error writers feed structured logging instead of stderr.
type GinLogrusWriter struct {
	entry *logrus.Entry
	level logrus.Level
}

// NewGinLogrusWriter creates a writer logging at the given level
func NewGinLogrusWriter(entry *logrus.Entry, level logrus.Level) *GinLogrusWriter {
	return &GinLogrusWriter{entry: entry, level: level}
}

// Write implements io.Writer
func (w *GinLogrusWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if msg != "" {
		w.entry.Log(w.level, msg)
	}
	return len(p), nil
}
