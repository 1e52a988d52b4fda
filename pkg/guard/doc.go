// Package guard runs code that must be cleaned up on failure.
//
// A Guard owns a stack of cleanup actions and a set of terminating signals
// it intercepts for the duration of one protected scope. If the scope fails,
// or a tracked signal arrives while it runs, every registered action is
// invoked exactly once in last-registered-first-run order. Signals received
// while cleanup is running are queued and re-delivered to the process after
// the prior signal disposition has been restored.
//
// Key operations:
// - New/WithCleanup: create a guard, optionally pre-loading a cleanup action
// - Register: push another cleanup action onto the stack
// - Do: run the protected section; entry installs signal interception,
//   exit runs cleanup, restores disposition and replays deferred signals
// - Outcome: inspect how the scope ended, including collected cleanup errors
// - Finally: reduce an Outcome to a final value via handlers
//
// The protected section receives a context that is cancelled with a
// *SignalError cause when a tracked signal arrives, so it aborts at its next
// yield point. *SignalError never propagates out of Do; after cleanup the
// signal is re-delivered and the process terminates with its normal
// semantics. An *ExitError returned by the section is an intentional
// termination request: it passes through untouched and no cleanup runs.
//
// A Guard protects a single scope and is then discarded; it is not reusable.
package guard
