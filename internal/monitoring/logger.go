// Package monitoring holds the process-wide diagnostic logger.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests mute it with SetLogger(nil).
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

// Prefixed returns a logger that writes through Logf with a "[component] "
// prefix. Logf is looked up on every call so SetLogger still applies.
func Prefixed(component string) func(format string, v ...any) {
	prefix := "[" + component + "] "
	return func(format string, v ...any) {
		Logf(prefix+format, v...)
	}
}
