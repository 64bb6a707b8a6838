// Package monitoring holds the process-wide diagnostic logger shared by the
// analysis pipeline and the HTTP layer.
package monitoring

import "log"

// Logf is the package-level diagnostic logger, defaulting to log.Printf.
// Components log through this indirection so tests can capture or mute
// output without touching the standard logger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op
// logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
