package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// Tracef is the high-frequency telemetry logger used for per-frame and
// per-detection events. It is muted by default so a normal run stays quiet;
// enable it with SetTraceLogger when debugging the processing loop.
var Tracef func(format string, v ...interface{}) = func(string, ...interface{}) {}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetTraceLogger replaces the trace logger. Passing nil mutes the trace stream.
func SetTraceLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Tracef = func(string, ...interface{}) {}
		return
	}
	Tracef = f
}
