package raft

// The envelope types below are exactly the inbox's vocabulary: every event
// that isn't a timer firing is one of these, delivered on Node.inbox and
// handled exclusively inside the run() goroutine. Request envelopes carry a
// reply channel because their sender (a transport RPC handler) is blocked
// waiting for the protocol answer; response and client-command envelopes
// either need no reply or get one asynchronously (SubmitCommand's ack).
type requestVoteEnvelope struct {
	args  *RequestVoteArgs
	reply chan *RequestVoteReply
}

type appendEntriesEnvelope struct {
	args  *AppendEntriesArgs
	reply chan *AppendEntriesReply
}

type requestVoteReplyEnvelope struct {
	reply *RequestVoteReply
}

type appendEntriesReplyEnvelope struct {
	reply *AppendEntriesReply
}

type clientCommandEnvelope struct {
	cmd *ClientCommand
	ack chan error
}

// dispatch is the message-dispatch glue: it applies the
// common term-update precondition to every message that carries a term
// field, then routes to the role's handler purely by message type. Unknown
// message shapes are impossible to construct outside this package, so
// there is no "unknown type" branch to speak of — the type switch is
// exhaustive over what the inbox can ever contain.
func (n *Node) dispatch(item any) {
	switch msg := item.(type) {
	case requestVoteEnvelope:
		n.applyTermPrecondition(msg.args.Term)
		msg.reply <- n.handleRequestVote(msg.args)

	case appendEntriesEnvelope:
		n.applyTermPrecondition(msg.args.Term)
		msg.reply <- n.handleAppendEntries(msg.args)

	case requestVoteReplyEnvelope:
		n.applyTermPrecondition(msg.reply.Term)
		n.handleRequestVoteReply(msg.reply)

	case appendEntriesReplyEnvelope:
		n.applyTermPrecondition(msg.reply.Term)
		n.handleAppendEntriesReply(msg.reply)

	case clientCommandEnvelope:
		msg.ack <- n.handleClientCommand(msg.cmd)
	}
}

// applyTermPrecondition is the precondition every handler above relies on
// having already run: after it returns, currentTerm >= the message's term.
func (n *Node) applyTermPrecondition(msgTerm uint64) {
	if msgTerm > n.currentTerm {
		n.adoptTerm(msgTerm)
	}
}
