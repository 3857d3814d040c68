package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/automas/booking-engine/internal/apperr"
	"github.com/automas/booking-engine/internal/models"
	"github.com/google/uuid"
)

// WizardStore keeps wizard sessions in memory. Idle sessions expire after the TTL.
type WizardStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*WizardSession
	ttl      time.Duration
	now      func() time.Time
}

// NewWizardStore creates an empty store
func NewWizardStore(ttl time.Duration) *WizardStore {
	return &WizardStore{
		sessions: make(map[uuid.UUID]*WizardSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create opens a session for a vertical
func (s *WizardStore) Create(vertical models.Vertical) *WizardSession {
	ctx, cancel := context.WithCancel(context.Background())
	now := s.now()
	session := &WizardSession{
		ID:        uuid.New(),
		Vertical:  vertical,
		next:      models.StepVehicle,
		CreatedAt: now,
		ctx:       ctx,
		cancel:    cancel,
	}
	session.touch(now)

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()
	return session
}

// Get returns a live session and refreshes its idle timer
func (s *WizardStore) Get(id uuid.UUID) (*WizardSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: wizard session %s", apperr.ErrNotFound, id)
	}

	now := s.now()
	if s.ttl > 0 && now.Sub(session.touched()) > s.ttl {
		session.cancel()
		delete(s.sessions, id)
		return nil, fmt.Errorf("%w: wizard session %s expired", apperr.ErrNotFound, id)
	}
	session.touch(now)
	return session, nil
}

// Close cancels any in-flight call of the session and releases it
func (s *WizardStore) Close(id uuid.UUID) bool {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if ok {
		session.cancel()
	}
	return ok
}

// ExpireIdle closes every session idle for longer than the TTL
func (s *WizardStore) ExpireIdle() int {
	if s.ttl <= 0 {
		return 0
	}

	now := s.now()
	var expired []*WizardSession

	s.mu.Lock()
	for id, session := range s.sessions {
		if now.Sub(session.touched()) > s.ttl {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.cancel()
	}
	return len(expired)
}

// Len returns the number of open sessions
func (s *WizardStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
