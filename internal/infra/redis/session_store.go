package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"staar-quiz-service/internal/app"
)

// SessionStore is a Redis-aware registry of live play sessions.
// Notes:
//   - Sessions themselves (and their countdowns) stay in process; a websocket connection is
//     pinned to one instance.
//   - Redis holds a liveness marker per session so operators can count live players across
//     instances. The marker expires after ttl unless Touch renews it; the websocket handler
//     touches on every inbound message, so a player idle for longer than ttl drops out of the
//     count. Nothing about results is stored.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	prefix   string
	mu       sync.RWMutex
	sessions map[string]*app.Session
}

func NewSessionStore(client *redis.Client, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "quiz"
	}
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		prefix:   prefix,
		sessions: make(map[string]*app.Session),
	}
}

func (s *SessionStore) Register(id string, session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(id), "1", s.ttl).Err()
}

func (s *SessionStore) Get(id string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Touch renews the liveness marker of a registered session.
func (s *SessionStore) Touch(id string) {
	s.mu.RLock()
	_, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return
	}
	_ = s.client.Expire(context.Background(), s.key(id), s.ttl).Err()
}

// Remove drops the session, closes it and clears its marker.
func (s *SessionStore) Remove(id string) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return
	}
	session.Close()
	_ = s.client.Del(context.Background(), s.key(id)).Err()
}

func (s *SessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *SessionStore) key(id string) string {
	return s.prefix + ":session:" + id
}
