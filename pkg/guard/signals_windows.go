//go:build windows

package guard

import (
	"os"
	"syscall"
)

// platformSignals builds the interceptable-signal catalog. Windows has no
// hangup or resource-limit signals, so only the standard terminate request
// is tracked.
func platformSignals() []os.Signal {
	return []os.Signal{syscall.SIGTERM}
}
