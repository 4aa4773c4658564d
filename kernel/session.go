package kernel

import (
	"fmt"
	"sync"
	"time"

	"goa.design/skillrt/rterrors"
)

// chunkSession holds one oversized result's batches, pulled across
// subsequent action=batch calls (spec.md §4.8 "Chunked output contract").
type chunkSession struct {
	batches  [][]any
	expires  time.Time
}

// SessionStore is a bounded, TTL-expiring process-local store for chunk
// sessions. It is intentionally process-local, not shared storage: chunked
// output is a within-process pagination convenience, not a durable record
// (that is the checkpoint store's job).
type SessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*chunkSession
	maxSize  int
}

// NewSessionStore constructs a SessionStore with the given per-session TTL
// and a default capacity of 1000 concurrent sessions.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{ttl: ttl, sessions: map[string]*chunkSession{}, maxSize: 1000}
}

// Start begins a new chunk session, splitting data into batches of at most
// batchSize items, and returns the first batch plus the number of batches.
func (s *SessionStore) Start(sessionID string, data []any, batchSize int) (firstBatch []any, batchCount int) {
	if batchSize <= 0 {
		batchSize = 1
	}
	var batches [][]any
	for i := 0; i < len(data); i += batchSize {
		end := i + batchSize
		if end > len(data) {
			end = len(data)
		}
		batches = append(batches, data[i:end])
	}
	if len(batches) == 0 {
		batches = [][]any{{}}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpiredLocked()
	if len(s.sessions) >= s.maxSize {
		s.evictOldestLocked()
	}
	s.sessions[sessionID] = &chunkSession{batches: batches, expires: time.Now().Add(s.ttl)}
	return batches[0], len(batches)
}

// Batch returns the batch at index for sessionID, refreshing its TTL.
func (s *SessionStore) Batch(sessionID string, index int) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok || time.Now().After(sess.expires) {
		return nil, fmt.Errorf("kernel: unknown or expired session %q", sessionID)
	}
	if index < 0 || index >= len(sess.batches) {
		return nil, fmt.Errorf("kernel: batch index %d out of range for session %q (have %d batches)", index, sessionID, len(sess.batches))
	}
	sess.expires = time.Now().Add(s.ttl)
	return sess.batches[index], nil
}

func (s *SessionStore) evictExpiredLocked() {
	now := time.Now()
	for id, sess := range s.sessions {
		if now.After(sess.expires) {
			delete(s.sessions, id)
		}
	}
}

func (s *SessionStore) evictOldestLocked() {
	var oldestID string
	var oldestExpiry time.Time
	for id, sess := range s.sessions {
		if oldestID == "" || sess.expires.Before(oldestExpiry) {
			oldestID, oldestExpiry = id, sess.expires
		}
	}
	if oldestID != "" {
		delete(s.sessions, oldestID)
	}
}

// batch serves an action=batch pull request against the kernel's session
// store.
func (k *Kernel) batch(args map[string]any, now time.Time) ToolResponse {
	sessionID, _ := args["session_id"].(string)
	indexF, _ := args["batch_index"].(float64)
	data, err := k.sessions.Batch(sessionID, int(indexF))
	if err != nil {
		return errorResponse(rterrors.CodeExecutionError, err.Error(), now)
	}
	return ToolResponse{Status: StatusOK, Data: data, Timestamp: now}
}
