// logging.go - Named loggers for the Word Engine

package main

import (
	"github.com/tliron/commonlog"
	"github.com/tliron/commonlog/simple"
)

const logRoot = "word-engine"

var (
	cpuLog      = commonlog.GetLogger(logRoot + ".cpu")
	terminalLog = commonlog.GetLogger(logRoot + ".terminal")
	traceLog    = commonlog.GetLogger(logRoot + ".trace")
	snapshotLog = commonlog.GetLogger(logRoot + ".snapshot")
	mainLog     = commonlog.GetLogger(logRoot)
)

// configureLogging sets verbosity on the commonlog scale (0 = notice,
// 1 = info, 2+ = debug). An empty path logs to stderr.
// Writes are unbuffered so a fault line is on disk before the process exits.
func configureLogging(verbosity int, path string) {
	backend := simple.NewBackend()
	backend.Buffered = false
	if path == "" {
		backend.Configure(verbosity, nil)
	} else {
		backend.Configure(verbosity, &path)
	}
	commonlog.SetBackend(backend)
}

// enableDebugLogging lets instruction traces through regardless of verbosity.
func enableDebugLogging() {
	commonlog.SetMaxLevel(commonlog.Debug, logRoot, "cpu")
}
