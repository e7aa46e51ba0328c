package model

//
// Logger
//

// DebugLogger is a logger emitting only debug messages.
type DebugLogger interface {
	// Debugf formats and emits a debug message.
	Debugf(format string, v ...any)
}

// Logger defines the common interface that a logger should have. It is
// out of the box compatible with `log.Log` in `apex/log`.
type Logger interface {
	// A Logger is also a DebugLogger.
	DebugLogger

	// Infof formats and emits an informational message.
	Infof(format string, v ...any)

	// Warnf formats and emits a warning message.
	Warnf(format string, v ...any)
}

// DiscardLogger is the default logger that discards its input
var DiscardLogger Logger = logDiscarder{}

type logDiscarder struct{}

func (logDiscarder) Debugf(format string, v ...any) {}

func (logDiscarder) Infof(format string, v ...any) {}

func (logDiscarder) Warnf(format string, v ...any) {}

// ErrorToStringOrOK emits "ok" on "<nil>" values for success.
func ErrorToStringOrOK(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}

// ValidLoggerOrDefault is a factory that either returns the logger
// provided as argument, if not nil, or DiscardLogger.
func ValidLoggerOrDefault(logger Logger) Logger {
	if logger != nil {
		return logger
	}
	return DiscardLogger
}
