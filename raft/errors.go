package raft

import "errors"

// Errors returned to callers of SubmitCommand. The protocol's own error
// kinds (stale term, log mismatch, vote conflict) have no error values:
// they are handled within the protocol's normal cadence
// (reply-with-current-term, retry-with-decremented-nextIndex,
// retry-next-election-period).
var (
	// ErrNotLeader is returned by SubmitCommand when called on a node that
	// is not currently the Leader. Callers are expected to redirect using
	// the advisory leader hint returned by GetState.
	ErrNotLeader = errors.New("raft: not the leader")

	// ErrStopped is returned by calls made after Stop has been invoked.
	ErrStopped = errors.New("raft: node stopped")
)
