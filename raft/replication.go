package raft

import "sort"

// buildAppendEntries constructs the AppendEntriesArgs this Leader should
// send to peer, based on its current nextIndex. nextIndex having backed off
// to 0 or 1 means the peer needs the whole log, sent with prevLogIndex 0 so
// the match check at the other end always passes.
func (n *Node) buildAppendEntries(peer string) *AppendEntriesArgs {
	ni := n.nextIndex[peer]

	var prevLogIndex, prevLogTerm uint64
	var entries []Entry
	if ni > 1 {
		prevLogIndex = ni - 1
		prevLogTerm = n.log.At(prevLogIndex).Term
		entries = n.log.Slice(ni)
	} else {
		entries = n.log.Slice(0)
	}

	return &AppendEntriesArgs{
		Term:         n.currentTerm,
		FromAddr:     n.self,
		PrevLogIndex: prevLogIndex,
		PrevLogTerm:  prevLogTerm,
		Entries:      entries,
		LeaderCommit: n.commitIndex,
	}
}

// sendHeartbeats fires one AppendEntries at every peer, each carrying
// whatever that peer's nextIndex says it still needs. Called on every
// heartbeat tick and once immediately on election win.
func (n *Node) sendHeartbeats() {
	if n.role != Leader {
		return
	}
	n.logger.LogHeartbeatSent(n.currentTerm, len(n.otherAddrs))
	n.metrics.heartbeatSent.Inc()

	for _, addr := range n.otherAddrs {
		addr := addr
		args := n.buildAppendEntries(addr)
		go func() {
			reply, err := n.transport.SendAppendEntries(addr, args)
			if err != nil || reply == nil {
				return
			}
			select {
			case n.inbox <- appendEntriesReplyEnvelope{reply: reply}:
			case <-n.stopCh:
			}
		}()
	}
}

// handleClientCommand appends command to the log if this node is the
// Leader and sets every peer's nextIndex to len(log)+1. Nothing is sent
// here: the next heartbeat round carries prevLogIndex equal to the new
// entry's index and no entries, a peer lacking the entry rejects it, and
// the one-step nextIndex backoff then sends the entry on a later round.
func (n *Node) handleClientCommand(cmd *ClientCommand) error {
	if n.role != Leader {
		return ErrNotLeader
	}
	n.log.Append(Entry{Term: n.currentTerm, Command: cmd.Command})
	for addr := range n.nextIndex {
		n.nextIndex[addr] = n.log.Len() + 1
	}
	return nil
}

// handleAppendEntriesReply updates replication bookkeeping for one peer
// and, on success, re-evaluates whether commitIndex can advance. A reply
// from an address this Leader no longer has bookkeeping for (cluster
// membership is static here, but a stale goroutine from a lost role could
// still deliver late) is ignored.
func (n *Node) handleAppendEntriesReply(reply *AppendEntriesReply) {
	if n.role != Leader {
		return
	}
	if _, tracked := n.nextIndex[reply.Addr]; !tracked {
		return
	}

	if reply.Success {
		n.matchIndex[reply.Addr] = reply.MatchIndex
		n.nextIndex[reply.Addr] = n.log.Len() + 1
		n.maybeAdvanceCommitIndex()
		return
	}

	if n.nextIndex[reply.Addr] > 0 {
		n.nextIndex[reply.Addr]--
	}
}

// maybeAdvanceCommitIndex recomputes the highest index replicated on a
// majority of the cluster, including this Leader, and commits up to it if
// that index's entry belongs to the current term. Restricting commits to
// the current term is what keeps a Leader from committing — and then
// having a later Leader silently overwrite — an entry replicated under an
// earlier term.
//
// N is the ceil(len(peers)/2)-th largest value among the peers' matchIndex
// (the Leader's own match, always len(log), is implicit and always at
// least as large as any N chosen this way). For an odd-sized cluster this
// is equivalent to taking the ceil(|cluster|/2)-th largest value across
// the whole cluster including the Leader; for an even-sized cluster it is
// the one that actually yields a strict majority, where a naive
// whole-cluster ceiling does not.
func (n *Node) maybeAdvanceCommitIndex() {
	if n.role != Leader {
		return
	}

	if len(n.otherAddrs) == 0 {
		n.tryCommitAt(n.log.Len())
		return
	}

	values := make([]uint64, 0, len(n.otherAddrs))
	for _, addr := range n.otherAddrs {
		values = append(values, n.matchIndex[addr])
	}
	sort.Slice(values, func(i, j int) bool { return values[i] > values[j] })

	majority := (len(values) + 1) / 2
	n.tryCommitAt(values[majority-1])
}

func (n *Node) tryCommitAt(N uint64) {
	if N > 0 && N <= n.log.Len() && n.log.At(N).Term == n.currentTerm {
		n.advanceCommitIndexTo(N)
	}
}
