package raft

import "go.uber.org/zap"

// Logger provides structured logging for a Node, built on zap. It mirrors
// the specialized call sites a Raft implementation actually needs (state
// transitions, election outcomes, heartbeats) rather than exposing raw
// Printf-style methods everywhere.
type Logger struct {
	base *zap.Logger
}

// NewLogger wraps base with the given node id as a permanent field.
func NewLogger(id string, base *zap.Logger) *Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return &Logger{base: base.With(zap.String("node", id))}
}

func (l *Logger) Debug(msg string, fields ...zap.Field) { l.base.Debug(msg, fields...) }
func (l *Logger) Info(msg string, fields ...zap.Field)  { l.base.Info(msg, fields...) }
func (l *Logger) Warn(msg string, fields ...zap.Field)  { l.base.Warn(msg, fields...) }
func (l *Logger) Error(msg string, fields ...zap.Field) { l.base.Error(msg, fields...) }

func (l *Logger) LogStateChange(old, new Role, term uint64) {
	l.base.Info("state change",
		zap.String("from", old.String()),
		zap.String("to", new.String()),
		zap.Uint64("term", term),
	)
}

func (l *Logger) LogElectionStart(term uint64) {
	l.base.Info("starting election", zap.Uint64("term", term))
}

func (l *Logger) LogElectionWon(term uint64, votes, needed int) {
	l.base.Info("won election", zap.Uint64("term", term), zap.Int("votes", votes), zap.Int("needed", needed))
}

func (l *Logger) LogElectionLost(term uint64, votes, needed int) {
	l.base.Info("election concluded without majority", zap.Uint64("term", term), zap.Int("votes", votes), zap.Int("needed", needed))
}

func (l *Logger) LogVoteGranted(candidate string, term uint64) {
	l.base.Debug("vote granted", zap.String("candidate", candidate), zap.Uint64("term", term))
}

func (l *Logger) LogVoteDenied(candidate string, term uint64, reason string) {
	l.base.Debug("vote denied", zap.String("candidate", candidate), zap.Uint64("term", term), zap.String("reason", reason))
}

func (l *Logger) LogHeartbeatSent(term uint64, peerCount int) {
	l.base.Debug("heartbeat round", zap.Uint64("term", term), zap.Int("peers", peerCount))
}

func (l *Logger) LogAppendEntries(leader string, term, prevLogIndex uint64, entryCount int) {
	l.base.Debug("append entries received",
		zap.String("leader", leader),
		zap.Uint64("term", term),
		zap.Uint64("prevLogIndex", prevLogIndex),
		zap.Int("entries", entryCount),
	)
}

func (l *Logger) LogCommit(index, term uint64) {
	l.base.Info("commit index advanced", zap.Uint64("index", index), zap.Uint64("term", term))
}

func (l *Logger) LogStepDown(oldTerm, newTerm uint64) {
	l.base.Info("stepping down", zap.Uint64("oldTerm", oldTerm), zap.Uint64("newTerm", newTerm))
}

func (l *Logger) LogElectionTimeout() {
	l.base.Debug("election timeout elapsed")
}
