// Package raft implements the node state machine of a leader-based
// replicated log: the Follower/Candidate/Leader roles, the RequestVote and
// AppendEntries RPC exchanges that drive them, and the replication
// bookkeeping (nextIndex/matchIndex, commitIndex advancement) that the
// exchanges exist to maintain.
//
// Message transport, process bootstrap, durable persistence, and
// application of committed commands to a concrete state machine are
// external collaborators; this package only computes commitIndex.
package raft

import "fmt"

// Entry is a single command at a given term. Once placed at a log index, an
// Entry is only ever overwritten by truncate-then-append conflict
// resolution on a Follower; a Leader's log is append-only.
type Entry struct {
	Term    uint64
	Command []byte
}

// Log is a 1-indexed, append-only-except-for-conflict-resolution sequence
// of Entries. Index 0 is the sentinel "empty" position and never holds a
// real entry; At rejects index 0.
type Log struct {
	entries []Entry // entries[0] is the index-1 entry, if any
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{}
}

// Len returns the index of the last entry in the log (0 for an empty log).
func (l *Log) Len() uint64 {
	return uint64(len(l.entries))
}

// At returns the entry at the given 1-based index. It panics if index is 0
// or out of range; callers must check Len first, mirroring the
// treatment of index 0 as a sentinel rather than a real entry.
func (l *Log) At(index uint64) Entry {
	if index == 0 || index > l.Len() {
		panic(fmt.Sprintf("raft: log index %d out of range (len=%d)", index, l.Len()))
	}
	return l.entries[index-1]
}

// LastTerm returns the term of the last entry, or 0 for an empty log.
func (l *Log) LastTerm() uint64 {
	if l.Len() == 0 {
		return 0
	}
	return l.entries[len(l.entries)-1].Term
}

// TruncateSuffix discards every entry at or after the given 1-based index,
// leaving the log with exactly index-1 entries. TruncateSuffix(0) empties
// the log. It is a no-op if index is already past the end.
func (l *Log) TruncateSuffix(index uint64) {
	if index == 0 {
		l.entries = l.entries[:0]
		return
	}
	if index-1 < l.Len() {
		l.entries = l.entries[:index-1]
	}
}

// Append adds entries to the end of the log.
func (l *Log) Append(entries ...Entry) {
	l.entries = append(l.entries, entries...)
}

// Slice returns a copy of the entries from the given 1-based index through
// the end of the log (an empty slice if from > Len()). Index 0 returns the
// whole log, matching the "entries = log[0 .. end]" case used when a
// Leader's prevLogIndex is 0 (full-log install).
func (l *Log) Slice(from uint64) []Entry {
	if from == 0 {
		from = 1
	}
	if from > l.Len() {
		return nil
	}
	out := make([]Entry, l.Len()-from+1)
	copy(out, l.entries[from-1:])
	return out
}
