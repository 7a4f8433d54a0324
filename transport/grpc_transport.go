package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"raftnode/raft"
)

// GRPCTransport is a raft.Transport backed by gRPC connections dialed
// lazily and kept open for reuse, one per peer address.
type GRPCTransport struct {
	mu      sync.Mutex
	conns   map[string]*grpc.ClientConn
	timeout time.Duration
}

// NewGRPCTransport returns a transport that dials peers on demand, failing
// any RPC that doesn't complete within timeout.
func NewGRPCTransport(timeout time.Duration) *GRPCTransport {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &GRPCTransport{conns: make(map[string]*grpc.ClientConn), timeout: timeout}
}

func (t *GRPCTransport) connFor(addr string) (*grpc.ClientConn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if conn, ok := t.conns[addr]; ok {
		return conn, nil
	}
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(gobCodec{})),
	)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", addr, err)
	}
	t.conns[addr] = conn
	return conn, nil
}

// SendRequestVote implements raft.Transport.
func (t *GRPCTransport) SendRequestVote(addr string, args *raft.RequestVoteArgs) (*raft.RequestVoteReply, error) {
	conn, err := t.connFor(addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	return NewRaftClient(conn).RequestVote(ctx, args)
}

// SendAppendEntries implements raft.Transport.
func (t *GRPCTransport) SendAppendEntries(addr string, args *raft.AppendEntriesArgs) (*raft.AppendEntriesReply, error) {
	conn, err := t.connFor(addr)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	return NewRaftClient(conn).AppendEntries(ctx, args)
}

// Close tears down every connection this transport has opened.
func (t *GRPCTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for addr, conn := range t.conns {
		if err := conn.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("transport: close %s: %w", addr, err)
		}
	}
	return firstErr
}

// nodeServer adapts a *raft.Node to the RaftServer interface the gRPC
// service descriptor expects, translating inbound RPCs into the blocking
// deliver calls the node's actor answers.
type nodeServer struct {
	node *raft.Node
}

func (s *nodeServer) RequestVote(_ context.Context, args *raft.RequestVoteArgs) (*raft.RequestVoteReply, error) {
	return s.node.DeliverRequestVote(args), nil
}

func (s *nodeServer) AppendEntries(_ context.Context, args *raft.AppendEntriesArgs) (*raft.AppendEntriesReply, error) {
	return s.node.DeliverAppendEntries(args), nil
}

// Server listens for and serves RequestVote/AppendEntries RPCs on behalf of
// one local Node.
type Server struct {
	grpcServer *grpc.Server
	logger     *zap.Logger
}

// NewServer builds a Server bound to node. Call Start to begin listening.
func NewServer(node *raft.Node, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gs := grpc.NewServer(grpc.ForceServerCodec(gobCodec{}))
	RegisterRaftServer(gs, &nodeServer{node: node})
	return &Server{grpcServer: gs, logger: logger}
}

// Start binds addr and serves in the background until Stop is called.
func (s *Server) Start(addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", addr, err)
	}
	go func() {
		if err := s.grpcServer.Serve(lis); err != nil {
			s.logger.Error("grpc server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully drains in-flight RPCs and shuts the server down.
func (s *Server) Stop() {
	s.grpcServer.GracefulStop()
}
