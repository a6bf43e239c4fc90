package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Debugf is the verbose logger for per-sample wire and engine tracing. It is a
// no-op until SetDebug(true); at a 50 Hz sample rate the hot path must not pay
// for formatting by default.
var Debugf func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug routes Debugf through the current Logf when enabled, or back to a
// no-op when disabled.
func SetDebug(enabled bool) {
	if !enabled {
		Debugf = func(string, ...interface{}) {}
		return
	}
	Debugf = func(format string, v ...interface{}) {
		Logf("debug: "+format, v...)
	}
}
