package raft

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newUnstartedNode(self string, others ...string) *Node {
	return NewNode(Config{
		SelfAddr:     self,
		ClusterAddrs: append([]string{self}, others...),
		Transport:    newFakeTransport(),
	})
}

func TestHandleRequestVoteGrantsFirstRequestEachTerm(t *testing.T) {
	n := newNodeForHandlerTests("self", "peer2", "peer3")
	n.currentTerm = 1

	reply := n.handleRequestVote(&RequestVoteArgs{Term: 1, FromAddr: "peer2"})
	assert.True(t, reply.VoteGranted)
	assert.Equal(t, "peer2", n.votedFor)

	reply2 := n.handleRequestVote(&RequestVoteArgs{Term: 1, FromAddr: "peer3"})
	assert.False(t, reply2.VoteGranted, "should not grant a second vote in the same term")
}

func TestHandleRequestVoteRejectsStaleTerm(t *testing.T) {
	n := newUnstartedNode("self", "peer2")
	n.currentTerm = 5

	reply := n.handleRequestVote(&RequestVoteArgs{Term: 3, FromAddr: "peer2"})
	assert.False(t, reply.VoteGranted)
	assert.Equal(t, uint64(5), reply.Term)
}

func TestHandleRequestVoteRejectsOutdatedLog(t *testing.T) {
	n := newUnstartedNode("self", "peer2")
	n.currentTerm = 5
	n.log.Append(Entry{Term: 5, Command: []byte("x")})

	reply := n.handleRequestVote(&RequestVoteArgs{
		Term: 5, FromAddr: "peer2", LastLogIndex: 1, LastLogTerm: 3,
	})
	assert.False(t, reply.VoteGranted)
}

func TestHandleRequestVoteAcceptsEqualOrNewerLog(t *testing.T) {
	n := newNodeForHandlerTests("self", "peer2")
	n.currentTerm = 5
	n.log.Append(Entry{Term: 5, Command: []byte("x")})

	reply := n.handleRequestVote(&RequestVoteArgs{
		Term: 5, FromAddr: "peer2", LastLogIndex: 1, LastLogTerm: 5,
	})
	assert.True(t, reply.VoteGranted)
}

func TestStartElectionIncrementsTermAndVotesForSelf(t *testing.T) {
	n := newUnstartedNode("self", "peer2", "peer3")
	n.electionTimer = timerStopped()
	n.heartbeatTimer = timerStopped()

	n.startElection()

	assert.Equal(t, uint64(1), n.currentTerm)
	assert.Equal(t, Candidate, n.role)
	assert.Equal(t, "self", n.votedFor)
	assert.Equal(t, 1, n.voteCount)
}

func TestMajorityOfThreeBecomesLeader(t *testing.T) {
	n := newUnstartedNode("self", "peer2", "peer3")
	n.electionTimer = timerStopped()
	n.heartbeatTimer = timerStopped()
	n.role = Candidate
	n.currentTerm = 1
	n.votedFor = "self"
	n.voteCount = 1

	n.handleRequestVoteReply(&RequestVoteReply{Term: 1, FromAddr: "peer2", VoteGranted: true})

	assert.Equal(t, Leader, n.role)
	assert.Len(t, n.nextIndex, 2)
}

func TestHandleRequestVoteReplyIgnoresStaleTerm(t *testing.T) {
	n := newUnstartedNode("self", "peer2", "peer3")
	n.electionTimer = timerStopped()
	n.heartbeatTimer = timerStopped()
	n.role = Candidate
	n.currentTerm = 2
	n.voteCount = 1

	n.handleRequestVoteReply(&RequestVoteReply{Term: 1, FromAddr: "peer2", VoteGranted: true})

	assert.Equal(t, 1, n.voteCount, "a reply from an election this node has moved past must not count")
	assert.Equal(t, Candidate, n.role)
}
