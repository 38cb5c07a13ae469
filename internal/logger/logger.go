package logger

import (
	"io"
	"log"
	"sync"
)

// Logger provides leveled logging (info/warning/error). Info output is only
// written when verbose is enabled.
type Logger struct {
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	verbose    bool
	mu         sync.Mutex
}

// New creates a Logger writing info and warnings to out and errors to errOut.
func New(out, errOut io.Writer, verbose bool) *Logger {
	return &Logger{
		infoLog:    log.New(out, "INFO    ", log.Ltime),
		warningLog: log.New(errOut, "WARNING ", log.Ltime),
		errorLog:   log.New(errOut, "ERROR   ", log.Ltime),
		verbose:    verbose,
	}
}

// Discard returns a Logger that drops everything.
func Discard() *Logger {
	return New(io.Discard, io.Discard, false)
}

// SetVerbose toggles info-level output.
func (l *Logger) SetVerbose(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.verbose = v
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.verbose {
		return
	}
	l.infoLog.Printf(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warningLog.Printf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errorLog.Printf(format, v...)
}
