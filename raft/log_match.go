package raft

// handleAppendEntries is the receiving side of replication and heartbeats
// alike (Entries is empty for a heartbeat). The election timer is reset and
// the leader hint adopted unconditionally, before the stale-term check:
// hearing from any node claiming to be leader, even one whose term has
// fallen behind, is still evidence that a leader exists out there and is
// reason enough to not start an election. Only after that does a stale term
// get rejected.
func (n *Node) handleAppendEntries(args *AppendEntriesArgs) *AppendEntriesReply {
	n.metrics.appendRecv.Inc()

	n.resetElectionTimer(n.randomFollowerTimeout())

	if n.role == Candidate {
		n.setRole(Follower)
	}

	if n.leader != args.FromAddr {
		n.leader = args.FromAddr
	}

	if args.Term < n.currentTerm {
		return &AppendEntriesReply{Term: n.currentTerm, Addr: n.self, Success: false}
	}

	n.logger.LogAppendEntries(args.FromAddr, args.Term, args.PrevLogIndex, len(args.Entries))

	logMismatch := n.log.Len() < args.PrevLogIndex ||
		(args.PrevLogIndex > 0 && n.log.At(args.PrevLogIndex).Term != args.PrevLogTerm)
	if logMismatch {
		return &AppendEntriesReply{Term: n.currentTerm, Addr: n.self, Success: false}
	}

	n.log.TruncateSuffix(args.PrevLogIndex + 1)
	n.log.Append(args.Entries...)

	if args.LeaderCommit > n.commitIndex {
		n.advanceCommitIndexTo(min(args.LeaderCommit, n.log.Len()))
	}

	return &AppendEntriesReply{Term: n.currentTerm, Addr: n.self, Success: true, MatchIndex: n.log.Len()}
}

// advanceCommitIndexTo raises commitIndex to N, publishing every newly
// committed entry in increasing index order. A no-op if N does not actually
// advance anything, which happens routinely (e.g. a heartbeat repeating a
// leaderCommit the follower already applied).
func (n *Node) advanceCommitIndexTo(N uint64) {
	if N <= n.commitIndex {
		return
	}
	old := n.commitIndex
	n.commitIndex = N
	n.logger.LogCommit(N, n.currentTerm)
	n.publishCommitted(old, N)
}

// publishCommitted sends every entry in (old, new] to the Committed()
// channel in order. The send blocks (modulo shutdown) rather than dropping,
// since a consumer that cannot keep up is an apply-loop problem outside
// this package's remit, not a reason to silently lose a committed command.
func (n *Node) publishCommitted(old, new uint64) {
	for i := old + 1; i <= new; i++ {
		entry := n.log.At(i)
		select {
		case n.committed <- Committed{Index: i, Term: entry.Term, Command: entry.Command}:
		case <-n.stopCh:
			return
		}
	}
}
