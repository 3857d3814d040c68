package services

import (
	"context"
	"encoding/json"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/automas/booking-engine/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// mockActions answers action calls with canned JSON
type mockActions struct {
	mock.Mock
}

func (m *mockActions) Execute(ctx context.Context, action string, query url.Values, body, out interface{}) error {
	args := m.Called(action, body)
	if raw := args.String(0); raw != "" && out != nil {
		if err := json.Unmarshal([]byte(raw), out); err != nil {
			return err
		}
	}
	return args.Error(1)
}

// memHandoffStore is an in-memory HandoffStore
type memHandoffStore struct {
	mu      sync.Mutex
	records map[string]*models.HandoffEnvelope
}

func newMemHandoffStore() *memHandoffStore {
	return &memHandoffStore{records: make(map[string]*models.HandoffEnvelope)}
}

func handoffKey(sessionID string, name models.HandoffRecordName) string {
	return sessionID + "/" + string(name)
}

func (m *memHandoffStore) Upsert(ctx context.Context, sessionID string, name models.HandoffRecordName, payload []byte, encrypted bool) (*models.HandoffEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	env, ok := m.records[handoffKey(sessionID, name)]
	if !ok {
		env = &models.HandoffEnvelope{ID: uuid.New(), SessionID: sessionID, Name: name, CreatedAt: now}
		m.records[handoffKey(sessionID, name)] = env
	}
	env.Version++
	env.Payload = append([]byte(nil), payload...)
	env.Encrypted = encrypted
	env.Consumed = false
	env.ConsumedAt = nil
	env.UpdatedAt = now

	cp := *env
	return &cp, nil
}

func (m *memHandoffStore) FindActive(ctx context.Context, sessionID string, name models.HandoffRecordName) (*models.HandoffEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.records[handoffKey(sessionID, name)]
	if !ok || env.Consumed {
		return nil, nil
	}
	cp := *env
	return &cp, nil
}

func (m *memHandoffStore) Find(ctx context.Context, sessionID string, name models.HandoffRecordName) (*models.HandoffEnvelope, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	env, ok := m.records[handoffKey(sessionID, name)]
	if !ok {
		return nil, nil
	}
	cp := *env
	return &cp, nil
}

func (m *memHandoffStore) MarkConsumed(ctx context.Context, id uuid.UUID, version int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, env := range m.records {
		if env.ID == id && env.Version == version && !env.Consumed {
			now := time.Now()
			env.Consumed = true
			env.ConsumedAt = &now
			return true, nil
		}
	}
	return false, nil
}

func (m *memHandoffStore) PurgeStale(ctx context.Context, consumedBefore, staleBefore time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for k, env := range m.records {
		if (env.Consumed && env.ConsumedAt.Before(consumedBefore)) || env.UpdatedAt.Before(staleBefore) {
			delete(m.records, k)
			n++
		}
	}
	return n, nil
}

func (m *memHandoffStore) raw(sessionID string, name models.HandoffRecordName) *models.HandoffEnvelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[handoffKey(sessionID, name)]
}

func testKey() *[32]byte {
	var key [32]byte
	for i := range key {
		key[i] = byte(i + 1)
	}
	return &key
}

func newTestHandoff() (*HandoffService, *memHandoffStore) {
	store := newMemHandoffStore()
	return NewHandoffService(store, testKey(), 72*time.Hour, quietLogger()), store
}

// stubDoer answers registry or gateway calls with canned JSON
type stubDoer struct {
	mu    sync.Mutex
	raw   []string
	errs  []error
	calls int
}

func (s *stubDoer) Do(ctx context.Context, method, endpoint string, query url.Values, body, out interface{}) error {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()

	if i >= len(s.raw) {
		i = len(s.raw) - 1
	}
	if i < len(s.errs) && s.errs[i] != nil {
		return s.errs[i]
	}
	if s.raw[i] != "" && out != nil {
		return json.Unmarshal([]byte(s.raw[i]), out)
	}
	return nil
}

// memEvents collects payment audit events
type memEvents struct {
	mu     sync.Mutex
	events []*models.PaymentEvent
}

func (m *memEvents) Record(ctx context.Context, event *models.PaymentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memEvents) types() []models.PaymentEventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PaymentEventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.EventType)
	}
	return out
}
