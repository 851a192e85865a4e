package yolocrop

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf and may be replaced with
// SetLogger, e.g. to mute or capture output in tests.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

func warnf(format string, v ...interface{}) {
	Logf("Warning: "+format, v...)
}
