package raft

// onElectionTimerFired handles the election timer's expiry. For a Follower
// this is the first sign of a missing Leader; for a Candidate it is an
// election period that elapsed without a majority either way. A Leader's
// electionTimer is kept stopped, so this should never fire under normal
// operation, but the case is handled defensively rather than assumed away.
func (n *Node) onElectionTimerFired() {
	n.logger.LogElectionTimeout()
	switch n.role {
	case Follower, Candidate:
		n.startElection()
	case Leader:
	}
}

// startElection begins a new term as Candidate: increments currentTerm,
// votes for self, and broadcasts RequestVote to every peer. It also covers
// the single-node cluster fast path: with no peers, the self-vote alone is
// already a majority, and becomeLeader is called before a single RPC goes
// out.
func (n *Node) startElection() {
	n.currentTerm++
	n.setRole(Candidate)
	n.votedFor = n.self
	n.voteCount = 1
	n.logger.LogElectionStart(n.currentTerm)
	n.metrics.elections.Inc()
	n.resetElectionTimer(n.randomCandidateTimeout())

	args := &RequestVoteArgs{
		Term:         n.currentTerm,
		FromAddr:     n.self,
		LastLogIndex: n.log.Len(),
		LastLogTerm:  n.log.LastTerm(),
	}
	n.broadcastRequestVote(args)

	if n.voteCount*2 > len(n.clusterAddrs) {
		n.becomeLeader()
	}
}

// broadcastRequestVote fires RequestVote at every peer concurrently. Each
// call runs on its own goroutine so a slow or unreachable peer never blocks
// the others or the actor; a reply that does arrive is fed back onto the
// inbox as a requestVoteReplyEnvelope for the actor to process in order.
func (n *Node) broadcastRequestVote(args *RequestVoteArgs) {
	for _, addr := range n.otherAddrs {
		addr := addr
		go func() {
			reply, err := n.transport.SendRequestVote(addr, args)
			if err != nil || reply == nil {
				return
			}
			select {
			case n.inbox <- requestVoteReplyEnvelope{reply: reply}:
			case <-n.stopCh:
			}
		}()
	}
}

// candidateLogUpToDate reports whether a candidate whose log ends at
// (lastLogIndex, lastLogTerm) is at least as up to date as this node's log:
// the candidate's last entry has a strictly higher term, or an equal term
// with an index at least as large.
func (n *Node) candidateLogUpToDate(lastLogIndex, lastLogTerm uint64) bool {
	selfTerm := n.log.LastTerm()
	if lastLogTerm != selfTerm {
		return lastLogTerm > selfTerm
	}
	return lastLogIndex >= n.log.Len()
}

// handleRequestVote is the granter side of the vote: grant iff this node
// hasn't already voted in the current term and the candidate's log is at
// least as up to date as its own. The common term precondition has already
// run by the time this is called, so args.Term <= n.currentTerm always
// holds here, with equality whenever the vote is still worth considering.
func (n *Node) handleRequestVote(args *RequestVoteArgs) *RequestVoteReply {
	if args.Term < n.currentTerm {
		return &RequestVoteReply{Term: n.currentTerm, FromAddr: n.self, VoteGranted: false}
	}

	grant := n.votedFor == "" && n.candidateLogUpToDate(args.LastLogIndex, args.LastLogTerm)
	if grant {
		n.votedFor = args.FromAddr
		n.resetElectionTimer(n.randomFollowerTimeout())
		n.logger.LogVoteGranted(args.FromAddr, args.Term)
		n.metrics.votesGranted.Inc()
	} else {
		reason := "already voted this term"
		if n.votedFor == "" {
			reason = "candidate log not up to date"
		}
		n.logger.LogVoteDenied(args.FromAddr, args.Term, reason)
		n.metrics.votesDenied.Inc()
	}

	return &RequestVoteReply{Term: n.currentTerm, FromAddr: n.self, VoteGranted: grant}
}

// handleRequestVoteReply tallies a vote. Replies are only meaningful while
// still a Candidate in the term the vote was solicited for; anything else
// (a stale reply from an election this node has already moved past) is
// silently dropped.
func (n *Node) handleRequestVoteReply(reply *RequestVoteReply) {
	if n.role != Candidate || reply.Term != n.currentTerm || !reply.VoteGranted {
		return
	}
	n.voteCount++
	if n.voteCount*2 > len(n.clusterAddrs) {
		n.becomeLeader()
	}
}

// becomeLeader transitions to Leader, initializes the per-peer replication
// bookkeeping optimistically at the end of this node's own log, and fires
// the first heartbeat round immediately rather than waiting out a full
// interval.
func (n *Node) becomeLeader() {
	n.setRole(Leader)
	n.leader = n.self
	n.nextIndex = make(map[string]uint64, len(n.otherAddrs))
	n.matchIndex = make(map[string]uint64, len(n.otherAddrs))
	for _, addr := range n.otherAddrs {
		n.nextIndex[addr] = n.log.Len() + 1
		n.matchIndex[addr] = 0
	}
	stopTimer(n.electionTimer)
	n.logger.LogElectionWon(n.currentTerm, n.voteCount, n.quorum())

	n.sendHeartbeats()
	n.resetHeartbeatTimer()
}
