// Package apply consumes a *raft.Node's committed entries and applies them
// to a concrete state machine. The raft package stops at commitIndex by
// design; this is the "external collaborator" it expects.
package apply

import (
	"bytes"
	"encoding/gob"
	"sync"

	"go.uber.org/zap"

	"raftnode/raft"
)

// Op identifies what a Command does to the state machine.
type Op uint8

const (
	OpSet Op = iota
	OpDelete
)

// Command is the gob-encoded payload carried inside a raft.Entry, submitted
// via (*raft.Node).SubmitCommand.
type Command struct {
	Op    Op
	Key   string
	Value []byte
}

// EncodeCommand gob-encodes a Command for submission to the log.
func EncodeCommand(c Command) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCommand(data []byte) (Command, error) {
	var c Command
	err := gob.NewDecoder(bytes.NewReader(data)).Decode(&c)
	return c, err
}

// KVStore is a minimal in-memory state machine: the thing commands get
// applied to once raft has decided they're committed. It has no durability
// of its own — that, like the log's own persistence, is out of scope here.
type KVStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewKVStore returns an empty store.
func NewKVStore() *KVStore {
	return &KVStore{data: make(map[string][]byte)}
}

// Get returns the value for key and whether it was present.
func (s *KVStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Apply executes a single committed Command against the store.
func (s *KVStore) Apply(c Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch c.Op {
	case OpSet:
		s.data[c.Key] = c.Value
	case OpDelete:
		delete(s.data, c.Key)
	}
}

// Run drains node's Committed() channel into store until it closes or the
// provided Node stops. Intended to run on its own goroutine for the
// lifetime of the process.
func Run(node *raft.Node, store *KVStore, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	for committed := range node.Committed() {
		cmd, err := decodeCommand(committed.Command)
		if err != nil {
			logger.Error("dropping unparseable committed entry",
				zap.Uint64("index", committed.Index), zap.Error(err))
			continue
		}
		store.Apply(cmd)
		logger.Debug("applied committed entry",
			zap.Uint64("index", committed.Index),
			zap.Uint64("term", committed.Term),
			zap.String("key", cmd.Key),
		)
	}
}
