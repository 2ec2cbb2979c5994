package log

import "sync"

var (
	globalMu     sync.RWMutex
	globalLogger Logger = New(InfoLevel)
)

// SetGlobal installs the process-wide default logger.
func SetGlobal(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Global returns the process-wide default logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}
