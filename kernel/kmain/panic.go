package kmain

import (
	"github.com/pkg/errors"

	"lotusos/kernel"
)

var errRuntimePanic = &kernel.Error{Module: "rt", Message: "unknown cause"}

// Panic logs the supplied error (if not nil) and halts the CPU. Calls to
// Panic never return.
func Panic(e interface{}) {
	var err error

	switch t := e.(type) {
	case *kernel.Error:
		err = t
	case error:
		err = t
	case string:
		err = &kernel.Error{Module: errRuntimePanic.Module, Message: t}
	case nil:
	default:
		err = errRuntimePanic
	}

	if err != nil {
		attrs := []any{"err", err.Error()}
		if cause, ok := errors.Cause(err).(*kernel.Error); ok {
			attrs = append(attrs, "origin", cause.Module)
		}
		logger.Error("unrecoverable error", attrs...)
	}
	logger.Error("*** kernel panic: system halted ***")

	haltFn()
}
