package multilu

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logMu  sync.RWMutex
	log    *zap.Logger = zap.NewNop()
)

// SetLogger installs l as the package-wide structured logger. Passing nil
// reverts to a no-op logger. Call this once during program setup; the
// engine itself never constructs a production logger and leaves log
// configuration to the caller.
func SetLogger(l *zap.Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	if l == nil {
		l = zap.NewNop()
	}
	log = l
}

func logger() *zap.Logger {
	logMu.RLock()
	defer logMu.RUnlock()
	return log
}
