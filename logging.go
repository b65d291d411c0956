package fence

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// package-level logger, nil by default (disabled)
var pkgLogger atomic.Pointer[logiface.Logger[logiface.Event]]

// SetLogger configures the package-level logger, used to surface fence state
// transitions (signal, enable-signaling) at trace level, and misuse such as
// enable-signaling requests against software-only fences at warning level.
//
// A nil logger disables logging, which is the default. Safe to call
// concurrently with any other operation in this package.
func SetLogger(logger *logiface.Logger[logiface.Event]) {
	pkgLogger.Store(logger)
}

// nil receiver is valid for all logiface methods
func log() *logiface.Logger[logiface.Event] {
	return pkgLogger.Load()
}
