package store

import (
	"sync"
	"time"
)

// Role identifies who produced a conversation message.
type Role string

const (
	// RoleSystem is an instruction synthesized per call, never stored in history.
	RoleSystem Role = "system"
	// RoleHuman is a message sent by the user.
	RoleHuman Role = "human"
	// RoleAI is a message generated by the model.
	RoleAI Role = "ai"
)

// Message is a single role-tagged conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is one conversation thread. History is append-only and lives in
// process memory only; it does not survive a restart.
type Session struct {
	ID        string
	CreatedTs int64

	mu        sync.Mutex // guards history and UpdatedTs
	turnMu    sync.Mutex // serializes whole chat turns on this session
	updatedTs int64
	history   []Message
}

func newSession(id string) *Session {
	now := time.Now().Unix()
	return &Session{ID: id, CreatedTs: now, updatedTs: now}
}

// BeginTurn acquires the per-session turn lock. Concurrent chat turns on the
// same session id run one at a time; other sessions are unaffected.
func (s *Session) BeginTurn() { s.turnMu.Lock() }

// EndTurn releases the per-session turn lock.
func (s *Session) EndTurn() { s.turnMu.Unlock() }

// History returns a copy of the session's messages, oldest first.
func (s *Session) History() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Append adds messages to the end of the history.
func (s *Session) Append(msgs ...Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, msgs...)
	s.updatedTs = time.Now().Unix()
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// UpdatedTs returns the last-access timestamp.
func (s *Session) UpdatedTs() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedTs
}

func (s *Session) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.updatedTs = time.Now().Unix()
}

// SessionInfo is a read-only summary of a session.
type SessionInfo struct {
	SessionID     string `json:"session_id"`
	HistoryLength int    `json:"history_length"`
	Active        bool   `json:"active"`
}
