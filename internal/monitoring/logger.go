// Package monitoring carries the process-wide diagnostic logging hooks.
// Extraction emits per-marker skip diagnostics through Verbosef so that bulk
// runs stay quiet by default but single-archive debugging can see every
// decision.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger. Tests or production code can redirect or
// mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// verbose gates Verbosef output.
var verbose bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetVerbose toggles per-marker diagnostic output.
func SetVerbose(v bool) {
	verbose = v
}

// Verbosef logs through Logf only when verbose diagnostics are enabled.
// Extraction uses it for non-fatal per-marker skips (out-of-bounds markers,
// failed coordinate mappings) that are expected noise in bulk runs.
func Verbosef(format string, v ...interface{}) {
	if verbose {
		Logf(format, v...)
	}
}
