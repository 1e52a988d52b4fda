//go:build !windows

package guard

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// platformSignals builds the interceptable-signal catalog. The listed
// signals terminate the process by default and can legitimately be taken
// over for cleanup; SIGILL-class signals are deliberately absent so their
// default disposition stays intact. Signals currently ignored are excluded,
// since ignoring is an explicit choice made before this process started.
func platformSignals() []os.Signal {
	sigs := []os.Signal{syscall.SIGTERM}
	for _, sig := range []os.Signal{unix.SIGHUP, unix.SIGQUIT, unix.SIGXCPU, unix.SIGXFSZ} {
		if !signal.Ignored(sig) {
			sigs = append(sigs, sig)
		}
	}
	return sigs
}
