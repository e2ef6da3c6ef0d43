// Package services contains the application services behind the REPL.
//
// AccountService owns account CRUD, the per-day submission counter and the
// event log. Events are mirrored into the global submissions log by a
// background Mirror; a failed mirror write is logged and reported on the
// mirror's error channel, never returned to the caller.
//
// LoginService runs one bind attempt per account as a small state machine:
//
//	Idle -> LeaseAcquired (auto only) -> CodeRequested -> CodeObtained -> Bound -> Persisted
//
// with Aborted reachable from every non-terminal state. A lease taken in
// Start is released exactly once: on the failing step, on Abort, or after a
// successful bind.
package services
