// Package monitoring holds the diagnostic logger and Prometheus metrics shared
// by the analysis pipeline and the API server.
package monitoring

import "log"

// Logf is the package-level diagnostic logger used by the pipeline, the store
// and the config watcher. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. A nil logger mutes output.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}
