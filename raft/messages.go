package raft

// RequestVoteArgs is broadcast by a Candidate soliciting votes for a term.
type RequestVoteArgs struct {
	Term         uint64
	FromAddr     string
	LastLogIndex uint64
	LastLogTerm  uint64
}

// RequestVoteReply is the granter's response to a RequestVoteArgs.
type RequestVoteReply struct {
	Term        uint64
	FromAddr    string // the granter's address
	VoteGranted bool
}

// AppendEntriesArgs is sent by a Leader, both to replicate entries and, with
// Entries empty, as a heartbeat.
type AppendEntriesArgs struct {
	Term         uint64
	FromAddr     string
	PrevLogIndex uint64
	PrevLogTerm  uint64
	Entries      []Entry
	LeaderCommit uint64
}

// AppendEntriesReply is a Follower's response to an AppendEntriesArgs.
// MatchIndex is only meaningful when Success is true.
type AppendEntriesReply struct {
	Term       uint64
	Addr       string // the responder's address
	Success    bool
	MatchIndex uint64
}

// ClientCommand carries an opaque application command to be appended to the
// log if the receiving node is the Leader. It carries no term: it is not
// subject to the common term-update precondition.
type ClientCommand struct {
	Command []byte
}

// Transport is the message channel a Node is built on top of: best-effort,
// connectionless, possibly-reordering, possibly-dropping, non-duplicating.
// Implementations live outside this package (see the transport package for
// a gRPC-backed one); the node never blocks waiting for a send to land.
type Transport interface {
	// SendRequestVote sends a RequestVote RPC to addr and returns its reply,
	// or an error if the peer could not be reached. Non-blocking from the
	// node's perspective means: this call happens on a goroutine the node
	// spawns per outbound RPC, never inline in the node's event loop.
	SendRequestVote(addr string, args *RequestVoteArgs) (*RequestVoteReply, error)

	// SendAppendEntries sends an AppendEntries RPC to addr and returns its
	// reply, or an error if the peer could not be reached.
	SendAppendEntries(addr string, args *AppendEntriesArgs) (*AppendEntriesReply, error)
}
