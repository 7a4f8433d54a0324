package raft

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

// fakeTransport routes RPCs directly to the in-process Node registered for
// an address, skipping any real network. dropped addresses simulate a
// partition: sends to or from them fail as if the peer were unreachable.
type fakeTransport struct {
	mu      sync.RWMutex
	nodes   map[string]*Node
	dropped map[string]bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{nodes: make(map[string]*Node), dropped: make(map[string]bool)}
}

func (f *fakeTransport) register(addr string, n *Node) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nodes[addr] = n
}

func (f *fakeTransport) setDropped(addr string, dropped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dropped[addr] = dropped
}

func (f *fakeTransport) target(addr string) (*Node, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.dropped[addr] {
		return nil, false
	}
	n, ok := f.nodes[addr]
	return n, ok
}

func (f *fakeTransport) SendRequestVote(addr string, args *RequestVoteArgs) (*RequestVoteReply, error) {
	if f.dropped[args.FromAddr] {
		return nil, fmt.Errorf("fakeTransport: sender %s partitioned", args.FromAddr)
	}
	target, ok := f.target(addr)
	if !ok {
		return nil, fmt.Errorf("fakeTransport: %s unreachable", addr)
	}
	return target.DeliverRequestVote(args), nil
}

func (f *fakeTransport) SendAppendEntries(addr string, args *AppendEntriesArgs) (*AppendEntriesReply, error) {
	if f.dropped[args.FromAddr] {
		return nil, fmt.Errorf("fakeTransport: sender %s partitioned", args.FromAddr)
	}
	target, ok := f.target(addr)
	if !ok {
		return nil, fmt.Errorf("fakeTransport: %s unreachable", addr)
	}
	return target.DeliverAppendEntries(args), nil
}

// testCluster is a set of Nodes wired to one shared fakeTransport.
type testCluster struct {
	transport *fakeTransport
	nodes     []*Node
	addrs     []string
}

func newTestCluster(t *testing.T, n int) *testCluster {
	t.Helper()
	transport := newFakeTransport()

	addrs := make([]string, n)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("node%d", i+1)
	}

	nodes := make([]*Node, n)
	for i, addr := range addrs {
		nodes[i] = NewNode(Config{
			SelfAddr:            addr,
			ClusterAddrs:        addrs,
			Transport:           transport,
			FollowerTimeoutMin:  60 * time.Millisecond,
			FollowerTimeoutMax:  120 * time.Millisecond,
			CandidateTimeoutMin: 60 * time.Millisecond,
			CandidateTimeoutMax: 120 * time.Millisecond,
			HeartbeatInterval:   20 * time.Millisecond,
		})
		transport.register(addr, nodes[i])
	}

	return &testCluster{transport: transport, nodes: nodes, addrs: addrs}
}

func (c *testCluster) startAll() {
	for _, n := range c.nodes {
		n.Start()
	}
}

func (c *testCluster) stopAll() {
	for _, n := range c.nodes {
		n.Stop()
	}
}

func (c *testCluster) leader() *Node {
	for _, n := range c.nodes {
		if _, role, _ := n.GetState(); role == Leader {
			return n
		}
	}
	return nil
}

func countLeaders(nodes []*Node) int {
	count := 0
	for _, n := range nodes {
		if _, role, _ := n.GetState(); role == Leader {
			count++
		}
	}
	return count
}

// waitFor polls cond every tick until it returns true or timeout elapses,
// returning whether it ever succeeded.
func waitFor(timeout, tick time.Duration, cond func() bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(tick)
	}
	return cond()
}

func TestSingleNodeClusterBecomesLeader(t *testing.T) {
	c := newTestCluster(t, 1)
	defer c.stopAll()
	c.startAll()

	if !waitFor(time.Second, 10*time.Millisecond, func() bool {
		_, role, _ := c.nodes[0].GetState()
		return role == Leader
	}) {
		t.Fatal("single node never became leader")
	}
}

func TestThreeNodeClusterElectsExactlyOneLeader(t *testing.T) {
	c := newTestCluster(t, 3)
	defer c.stopAll()
	c.startAll()

	if !waitFor(2*time.Second, 20*time.Millisecond, func() bool {
		return countLeaders(c.nodes) == 1
	}) {
		t.Fatalf("expected exactly 1 leader, got %d", countLeaders(c.nodes))
	}

	terms := make(map[uint64]struct{})
	for _, n := range c.nodes {
		term, _, _ := n.GetState()
		terms[term] = struct{}{}
	}
	if len(terms) != 1 {
		t.Errorf("nodes disagree on term: %v", terms)
	}
}

func TestLeaderFailureTriggersReElection(t *testing.T) {
	c := newTestCluster(t, 3)
	defer c.stopAll()
	c.startAll()

	if !waitFor(2*time.Second, 20*time.Millisecond, func() bool {
		return countLeaders(c.nodes) == 1
	}) {
		t.Fatal("no leader elected initially")
	}

	oldLeader := c.leader()
	oldTerm, _, _ := oldLeader.GetState()
	c.transport.setDropped(oldLeader.self, true)

	var remaining []*Node
	for _, n := range c.nodes {
		if n != oldLeader {
			remaining = append(remaining, n)
		}
	}

	if !waitFor(2*time.Second, 20*time.Millisecond, func() bool {
		return countLeaders(remaining) == 1
	}) {
		t.Fatal("no new leader elected after partitioning the old one")
	}

	newTerm, _, _ := remaining[0].GetState()
	if newTerm <= oldTerm {
		t.Errorf("expected term to advance past %d, got %d", oldTerm, newTerm)
	}
}

func TestCommandCommitsAcrossMajority(t *testing.T) {
	c := newTestCluster(t, 3)
	defer c.stopAll()
	c.startAll()

	if !waitFor(2*time.Second, 20*time.Millisecond, func() bool {
		return countLeaders(c.nodes) == 1
	}) {
		t.Fatal("no leader elected")
	}

	leader := c.leader()
	if err := leader.SubmitCommand([]byte("hello")); err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}

	select {
	case committed := <-leader.Committed():
		if string(committed.Command) != "hello" {
			t.Errorf("got command %q, want %q", committed.Command, "hello")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command never committed")
	}
}

func TestNonLeaderRejectsSubmitCommand(t *testing.T) {
	c := newTestCluster(t, 3)
	defer c.stopAll()
	c.startAll()

	if !waitFor(2*time.Second, 20*time.Millisecond, func() bool {
		return countLeaders(c.nodes) == 1
	}) {
		t.Fatal("no leader elected")
	}

	for _, n := range c.nodes {
		if _, role, _ := n.GetState(); role != Leader {
			if err := n.SubmitCommand([]byte("x")); err != ErrNotLeader {
				t.Errorf("expected ErrNotLeader from a follower, got %v", err)
			}
			return
		}
	}
}
