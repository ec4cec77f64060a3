package bcycle

import (
	"log"
	"sync/atomic"
	"testing"
	"time"
)

// Logger can be implemented to get informed about important states.
type Logger interface {
	LogUncaughtError(err error)
	LogClientAbort(err error)
	LogUnexpectedError(err error)
	LogBodyReread(method, path string)
}

// RequestLogger is called once per request after the response has been written.
type RequestLogger func(c *Context, elapsed time.Duration)

type stdLogger struct{ *log.Logger }

func (l stdLogger) LogUncaughtError(err error) {
	l.Logger.Printf("bcycle: uncaught error: %+v", err)
}

func (l stdLogger) LogClientAbort(err error) {}

func (l stdLogger) LogUnexpectedError(err error) {
	l.Logger.Printf("bcycle: unexpected error: %+v", err)
}

func (l stdLogger) LogBodyReread(method, path string) {
	l.Logger.Printf("bcycle: request body of %s %s is too large to cache and is read a second time", method, path)
}

func NewStdLogger(l *log.Logger) Logger {
	if l == nil {
		l = log.Default()
	}
	return stdLogger{l}
}

type TestLogger struct {
	tb testing.TB

	NumLogUncaughtError   int64
	NumLogClientAbort     int64
	NumLogUnexpectedError int64
	NumLogBodyReread      int64
}

func NewTestLogger(tb testing.TB) *TestLogger {
	return &TestLogger{tb: tb}
}

func (l *TestLogger) LogUncaughtError(err error) {
	atomic.AddInt64(&l.NumLogUncaughtError, 1)
	l.tb.Logf("bcycle: uncaught error: %s", err)
}

func (l *TestLogger) LogClientAbort(err error) {
	atomic.AddInt64(&l.NumLogClientAbort, 1)
	l.tb.Logf("bcycle: client abort: %s", err)
}

func (l *TestLogger) LogUnexpectedError(err error) {
	atomic.AddInt64(&l.NumLogUnexpectedError, 1)
	l.tb.Logf("bcycle: unexpected error: %s", err)
}

func (l *TestLogger) LogBodyReread(method, path string) {
	atomic.AddInt64(&l.NumLogBodyReread, 1)
	l.tb.Logf("bcycle: body of %s %s read twice", method, path)
}

var _ Logger = &TestLogger{}
