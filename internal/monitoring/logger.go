package monitoring

import (
	"log"
	"os"
	"strings"
)

// LogLevelEnv selects the log level. "debug" enables Debugf output.
const LogLevelEnv = "MEASURE_MAPS_LOG_LEVEL"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

var debug bool

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetDebug turns Debugf output on or off. Call it at startup only.
func SetDebug(on bool) {
	debug = on
}

// DebugFromEnv enables debug output when LogLevelEnv is "debug" and reports
// whether it did.
func DebugFromEnv() bool {
	debug = strings.EqualFold(os.Getenv(LogLevelEnv), "debug")
	return debug
}

// Debugf logs through Logf when debug output is enabled.
func Debugf(format string, v ...interface{}) {
	if debug {
		Logf(format, v...)
	}
}
