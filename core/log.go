package core

import (
	"sync"

	"github.com/go-pkgz/lgr"
)

var (
	logMu  sync.RWMutex
	logger lgr.L = lgr.NoOp
)

// SetLogger routes the library's log lines, which carry lgr level prefixes
// such as [DEBUG] and [WARN], to l. nil restores the silent default.
func SetLogger(l lgr.L) {
	if l == nil {
		l = lgr.NoOp
	}
	logMu.Lock()
	logger = l
	logMu.Unlock()
}

// Logf writes one line through the configured logger.
func Logf(format string, args ...any) {
	logMu.RLock()
	l := logger
	logMu.RUnlock()
	l.Logf(format, args...)
}
