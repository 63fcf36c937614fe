// Package bridge defines the contract between the coordination server and the
// instrumentation engine that owns the raw coverage counters. The engine
// itself lives outside this repository; the server only drives it through
// this interface.
package bridge

import "github.com/testwiseco/testwise/pkg/coverage"

// Bridge is the consumed surface of the instrumentation engine.
//
// Implementations are expected to be safe for use from a single goroutine at
// a time; the coordination server serializes all calls under its own lock.
type Bridge interface {
	// Reset clears all coverage counters recorded so far.
	Reset() error

	// StartSession tags subsequently recorded coverage with the given
	// session id (the test identity, for testwise recording).
	StartSession(id string)

	// Dump captures the counters recorded since the last reset, tagged with
	// the currently active session id.
	Dump() (*coverage.RawDump, error)

	// SessionID returns the currently active session id, or the empty
	// string when no session has been started.
	SessionID() string
}
