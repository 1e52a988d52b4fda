package guard

import (
	"errors"
	"fmt"
	"os"
	"reflect"
)

// ErrReused is returned by Do when a guard is entered a second time.
var ErrReused = errors.New("guard already used for a scope")

// SignalError is the failure a guard injects into the protected section's
// context when a tracked signal arrives. It never escapes Do; call sites
// only observe it through context.Cause inside the protected section.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("interrupted by signal %v", e.Signal)
}

// ExitError is an intentional immediate-termination request from the
// protected section. A guard passes it through without running cleanup so
// forked children that exit without exec keep their fast path.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit requested with status %d", e.Code)
}

// Exit builds a termination request carrying the given status code.
func Exit(code int) error {
	return &ExitError{Code: code}
}

// IsExit reports whether err is (or wraps) a termination request.
func IsExit(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr)
}

// ExitCode extracts the status code from a termination request.
func ExitCode(err error) (int, bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code, true
	}
	return 0, false
}

func IsNil(i interface{}) bool {
	if i == nil || (reflect.ValueOf(i).Kind() == reflect.Ptr && reflect.ValueOf(i).IsNil()) {
		return true
	}
	return false
}

func GetErrors(err error) []error {
	if IsNil(err) {
		return []error{}
	}

	e, ok := err.(interface{ Unwrap() []error })
	if ok {
		return e.Unwrap()
	}

	return []error{err}
}
