package raft

import "time"

// timerStopped returns a *time.Timer that is already stopped and drained,
// suitable for assigning to a Node's electionTimer/heartbeatTimer in tests
// that exercise handler logic directly without running the actor loop.
func timerStopped() *time.Timer {
	timer := time.NewTimer(time.Hour)
	stopTimer(timer)
	return timer
}
