package monitoring

import "log"

// Logf is the package-level diagnostic logger used throughout the tracker.
// It defaults to log.Printf; SetLogger can redirect or silence it, which
// tests use to keep output quiet.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. A nil argument installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
