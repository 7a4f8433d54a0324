package raft

import (
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Role is the node's current position in the Follower/Candidate/Leader
// state machine.
type Role int

const (
	Follower Role = iota
	Candidate
	Leader
)

func (r Role) String() string {
	switch r {
	case Follower:
		return "Follower"
	case Candidate:
		return "Candidate"
	case Leader:
		return "Leader"
	default:
		return "Unknown"
	}
}

// Committed is delivered on a Node's Committed() channel once its index has
// been determined safe to apply. Consuming it is the apply-loop's job; this
// package stops at computing commitIndex.
type Committed struct {
	Index   uint64
	Term    uint64
	Command []byte
}

// Config configures a new Node. SelfAddr must be a member of ClusterAddrs.
type Config struct {
	SelfAddr     string
	ClusterAddrs []string // includes SelfAddr
	Transport    Transport
	Logger       *Logger
	Registerer   prometheus.Registerer // optional; nil disables metrics registration

	// Tunables. Zero values fall back to sensible defaults.
	FollowerTimeoutMin  time.Duration // default 300ms
	FollowerTimeoutMax  time.Duration // default 600ms
	CandidateTimeoutMin time.Duration // default 150ms
	CandidateTimeoutMax time.Duration // default 300ms
	HeartbeatInterval   time.Duration // default 100ms
}

func (c *Config) setDefaults() {
	if c.FollowerTimeoutMin == 0 {
		c.FollowerTimeoutMin = 300 * time.Millisecond
	}
	if c.FollowerTimeoutMax == 0 {
		c.FollowerTimeoutMax = 600 * time.Millisecond
	}
	if c.CandidateTimeoutMin == 0 {
		c.CandidateTimeoutMin = 150 * time.Millisecond
	}
	if c.CandidateTimeoutMax == 0 {
		c.CandidateTimeoutMax = 300 * time.Millisecond
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = NewLogger(c.SelfAddr, nil)
	}
}

// Node is a single member of a statically configured Raft cluster. All of
// its mutable state (currentTerm, votedFor, log, commitIndex, role, the
// per-role ephemera) is owned exclusively by the goroutine running run();
// every other method communicates with that goroutine over a channel so
// that concurrent timer expiry and message arrival are fully serialized.
type Node struct {
	self         string
	clusterAddrs []string
	otherAddrs   []string

	transport Transport
	logger    *Logger
	metrics   *metrics

	followerTimeoutMin, followerTimeoutMax   time.Duration
	candidateTimeoutMin, candidateTimeoutMax time.Duration
	heartbeatInterval                        time.Duration

	inbox   chan any
	stopCh  chan struct{}
	doneCh  chan struct{}
	once    sync.Once
	started bool

	electionTimer  *time.Timer
	heartbeatTimer *time.Timer

	committed chan Committed

	// --- state owned by run(), touched nowhere else ---
	currentTerm uint64
	votedFor    string // "" means none
	log         *Log
	commitIndex uint64
	role        Role
	leader      string // "" means none known
	voteCount   int
	nextIndex   map[string]uint64
	matchIndex  map[string]uint64

	// snapshot is a coherent copy of the fields external callers are
	// allowed to read without going through the actor, refreshed at the
	// end of every event the run loop processes.
	snapMu   sync.RWMutex
	snapTerm uint64
	snapRole Role
	snapLdr  string
	snapIdx  uint64
}

// NewNode constructs a Node in the Follower role with an empty log. It does
// not start the node's event loop; call Start for that.
func NewNode(cfg Config) *Node {
	cfg.setDefaults()

	others := make([]string, 0, len(cfg.ClusterAddrs))
	for _, a := range cfg.ClusterAddrs {
		if a != cfg.SelfAddr {
			others = append(others, a)
		}
	}

	n := &Node{
		self:                cfg.SelfAddr,
		clusterAddrs:        append([]string(nil), cfg.ClusterAddrs...),
		otherAddrs:          others,
		transport:           cfg.Transport,
		logger:              cfg.Logger,
		metrics:             newMetrics(cfg.SelfAddr),
		followerTimeoutMin:  cfg.FollowerTimeoutMin,
		followerTimeoutMax:  cfg.FollowerTimeoutMax,
		candidateTimeoutMin: cfg.CandidateTimeoutMin,
		candidateTimeoutMax: cfg.CandidateTimeoutMax,
		heartbeatInterval:   cfg.HeartbeatInterval,
		inbox:               make(chan any, 256),
		stopCh:              make(chan struct{}),
		doneCh:              make(chan struct{}),
		committed:           make(chan Committed, 256),
		log:                 NewLog(),
		role:                Follower,
	}

	if cfg.Registerer != nil {
		for _, c := range n.metrics.collectors() {
			cfg.Registerer.Register(c) //nolint:errcheck // duplicate registration is a caller bug, not a runtime fault
		}
	}
	n.metrics.setRole(Follower)

	return n
}

// Start begins the node's event loop: the election timer starts running
// immediately, and inbound messages and outbound RPC results begin being
// processed.
func (n *Node) Start() {
	if n.started {
		return
	}
	n.started = true
	n.electionTimer = time.NewTimer(n.randomFollowerTimeout())
	n.heartbeatTimer = time.NewTimer(time.Hour)
	n.heartbeatTimer.Stop()
	go n.run()
}

// Stop terminates the node's event loop. It is safe to call more than once.
func (n *Node) Stop() {
	n.once.Do(func() {
		close(n.stopCh)
	})
	<-n.doneCh
}

// Committed returns the channel on which the node reports log entries that
// have become safe to apply, in increasing index order.
func (n *Node) Committed() <-chan Committed {
	return n.committed
}

// GetState returns a coherent snapshot of the node's term, role, and
// advisory leader hint, suitable for status reporting without routing
// through the actor for every health check.
func (n *Node) GetState() (term uint64, role Role, leader string) {
	n.snapMu.RLock()
	defer n.snapMu.RUnlock()
	return n.snapTerm, n.snapRole, n.snapLdr
}

// CommitIndex returns the last commitIndex snapshot published by the actor.
func (n *Node) CommitIndex() uint64 {
	n.snapMu.RLock()
	defer n.snapMu.RUnlock()
	return n.snapIdx
}

func (n *Node) publishSnapshot() {
	n.snapMu.Lock()
	n.snapTerm = n.currentTerm
	n.snapRole = n.role
	n.snapLdr = n.leader
	n.snapIdx = n.commitIndex
	n.snapMu.Unlock()

	n.metrics.term.Set(float64(n.currentTerm))
	n.metrics.setRole(n.role)
	n.metrics.commitIndex.Set(float64(n.commitIndex))
	n.metrics.logLength.Set(float64(n.log.Len()))
}

// SubmitCommand asks the node to append command to the replicated log. It
// returns ErrNotLeader if this node is not currently the Leader; callers
// should redirect to the address returned by GetState's leader hint. A nil
// error means the command was appended locally, not that it has committed:
// there is no immediate ack to the client from within the core, since
// commit requires a majority round trip this call does not wait for.
func (n *Node) SubmitCommand(command []byte) error {
	ack := make(chan error, 1)
	select {
	case n.inbox <- clientCommandEnvelope{cmd: &ClientCommand{Command: command}, ack: ack}:
	case <-n.stopCh:
		return ErrStopped
	}
	select {
	case err := <-ack:
		return err
	case <-n.stopCh:
		return ErrStopped
	}
}

// DeliverRequestVote is called by the transport's server side when a peer's
// RequestVote RPC arrives. It blocks until the actor has produced a reply.
func (n *Node) DeliverRequestVote(args *RequestVoteArgs) *RequestVoteReply {
	reply := make(chan *RequestVoteReply, 1)
	select {
	case n.inbox <- requestVoteEnvelope{args: args, reply: reply}:
	case <-n.stopCh:
		return &RequestVoteReply{Term: args.Term, FromAddr: n.self, VoteGranted: false}
	}
	return <-reply
}

// DeliverAppendEntries is called by the transport's server side when a
// peer's AppendEntries RPC arrives.
func (n *Node) DeliverAppendEntries(args *AppendEntriesArgs) *AppendEntriesReply {
	reply := make(chan *AppendEntriesReply, 1)
	select {
	case n.inbox <- appendEntriesEnvelope{args: args, reply: reply}:
	case <-n.stopCh:
		return &AppendEntriesReply{Term: args.Term, Addr: n.self, Success: false}
	}
	return <-reply
}

func (n *Node) run() {
	defer close(n.doneCh)
	defer close(n.committed)
	for {
		select {
		case <-n.stopCh:
			return

		case <-n.electionTimer.C:
			n.onElectionTimerFired()
			n.publishSnapshot()

		case <-n.heartbeatTimer.C:
			if n.role == Leader {
				n.sendHeartbeats()
				n.resetHeartbeatTimer()
			}
			n.publishSnapshot()

		case item := <-n.inbox:
			n.dispatch(item)
			n.publishSnapshot()
		}
	}
}

func (n *Node) resetElectionTimer(d time.Duration) {
	stopTimer(n.electionTimer)
	n.electionTimer.Reset(d)
}

func (n *Node) resetHeartbeatTimer() {
	stopTimer(n.heartbeatTimer)
	n.heartbeatTimer.Reset(n.heartbeatInterval)
}

func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

func (n *Node) randomFollowerTimeout() time.Duration {
	return randomDuration(n.followerTimeoutMin, n.followerTimeoutMax)
}

func (n *Node) randomCandidateTimeout() time.Duration {
	return randomDuration(n.candidateTimeoutMin, n.candidateTimeoutMax)
}

// setRole transitions the node to a new role. votedFor is cleared only
// when currentTerm has just advanced in adoptTerm — never unconditionally
// on every role entry.
func (n *Node) setRole(role Role) {
	old := n.role
	n.role = role
	n.voteCount = 0
	if role != Leader {
		n.nextIndex = nil
		n.matchIndex = nil
	}
	if old != role {
		n.logger.LogStateChange(old, role, n.currentTerm)
	}
}

// adoptTerm advances currentTerm, clears votedFor (the only place this is
// allowed to happen), and demotes to Follower. Called only by the common
// term-update precondition; startElection advances the term itself.
func (n *Node) adoptTerm(term uint64) {
	if term <= n.currentTerm {
		panic(fmt.Sprintf("raft: adoptTerm called with non-advancing term %d (current %d)", term, n.currentTerm))
	}
	oldTerm := n.currentTerm
	n.currentTerm = term
	n.votedFor = ""
	wasLeader := n.role == Leader
	n.setRole(Follower)
	if wasLeader {
		n.logger.LogStepDown(oldTerm, term)
		n.metrics.stepDowns.Inc()
		stopTimer(n.heartbeatTimer)
	}
	n.resetElectionTimer(n.randomFollowerTimeout())
}

func (n *Node) quorum() int {
	return len(n.clusterAddrs)/2 + 1
}
