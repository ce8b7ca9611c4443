// Package klog provides structured kernel logging on top of log/slog.
//
// Records emitted before an output device is available are captured by an
// in-memory ring buffer and replayed once SetOutputSink is called.
package klog

import (
	"io"
	"log/slog"

	"lotusos/kernel/sync"
)

var (
	out   sinkWriter
	level = new(slog.LevelVar)
	root  = slog.New(slog.NewTextHandler(&out, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: dropTime,
	}))
)

// sinkWriter forwards writes to the active sink or to the early ring buffer
// when no sink is attached. Interrupts stay masked while a record is written
// so a handler that logs cannot spin on a lock held by the code it
// interrupted.
type sinkWriter struct {
	lock  sync.IRQSpinlock
	sink  io.Writer
	early ringBuffer
}

func (w *sinkWriter) Write(p []byte) (int, error) {
	w.lock.Acquire()
	defer w.lock.Release()

	if w.sink == nil {
		return w.early.Write(p)
	}
	return w.sink.Write(p)
}

// dropTime removes the time attribute; there is no wall clock this early.
func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

// SetOutputSink sets the target for all log records to w and copies any data
// accumulated in the early ring buffer to it. Passing nil redirects output
// back to the ring buffer.
func SetOutputSink(w io.Writer) {
	out.lock.Acquire()
	defer out.lock.Release()

	out.sink = w
	if w != nil {
		_, _ = io.Copy(w, &out.early)
	}
}

// SetLevel changes the minimum level of records that are emitted.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Logger returns a logger whose records carry the supplied module name.
func Logger(module string) *slog.Logger {
	return root.With(slog.String("module", module))
}
