package services

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/automas/booking-engine/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrEnvelopeSuperseded is returned by Consume when the record was rewritten
// or consumed after it was read. The newer write wins.
var ErrEnvelopeSuperseded = errors.New("handoff envelope superseded by a newer write")

// ConsumedRetention is how long consumed records are kept for a repeated visit to an outcome page
const ConsumedRetention = time.Hour

const nonceSize = 24

// HandoffStore persists handoff envelopes
type HandoffStore interface {
	Upsert(ctx context.Context, sessionID string, name models.HandoffRecordName, payload []byte, encrypted bool) (*models.HandoffEnvelope, error)
	FindActive(ctx context.Context, sessionID string, name models.HandoffRecordName) (*models.HandoffEnvelope, error)
	Find(ctx context.Context, sessionID string, name models.HandoffRecordName) (*models.HandoffEnvelope, error)
	MarkConsumed(ctx context.Context, id uuid.UUID, version int) (bool, error)
	PurgeStale(ctx context.Context, consumedBefore, staleBefore time.Time) (int64, error)
}

// HandoffService carries the reservation across the payment gateway redirect.
// Records holding personal data are sealed with secretbox before they are stored.
type HandoffService struct {
	store     HandoffStore
	key       *[32]byte
	retention time.Duration
	logger    *logrus.Logger
	now       func() time.Time
}

// NewHandoffService creates a new handoff service
func NewHandoffService(store HandoffStore, key *[32]byte, retention time.Duration, logger *logrus.Logger) *HandoffService {
	return &HandoffService{
		store:     store,
		key:       key,
		retention: retention,
		logger:    logger,
		now:       time.Now,
	}
}

func sealed(name models.HandoffRecordName) bool {
	return name == models.RecordDeferredPaperwork
}

// Write stores v as the record for (sessionID, name), overwriting any previous value
func (s *HandoffService) Write(ctx context.Context, sessionID string, name models.HandoffRecordName, v interface{}) (*models.HandoffEnvelope, error) {
	if sessionID == "" {
		return nil, errors.New("handoff write requires a session id")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", name, err)
	}

	encrypted := sealed(name)
	if encrypted {
		if payload, err = s.seal(payload); err != nil {
			return nil, err
		}
	}

	env, err := s.store.Upsert(ctx, sessionID, name, payload, encrypted)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"record":     name,
		"version":    env.Version,
	}).Debug("Handoff record written")

	return env, nil
}

// ReadLastWritten decodes the active record into out. It returns a nil envelope
// when the record is absent or already consumed.
func (s *HandoffService) ReadLastWritten(ctx context.Context, sessionID string, name models.HandoffRecordName, out interface{}) (*models.HandoffEnvelope, error) {
	if sessionID == "" {
		return nil, nil
	}

	env, err := s.store.FindActive(ctx, sessionID, name)
	if err != nil || env == nil {
		return nil, err
	}
	return env, s.decode(env, out)
}

// ReadLatest is ReadLastWritten including consumed records. Outcome pages use it
// to render a booking that was already finalized.
func (s *HandoffService) ReadLatest(ctx context.Context, sessionID string, name models.HandoffRecordName, out interface{}) (*models.HandoffEnvelope, error) {
	if sessionID == "" {
		return nil, nil
	}

	env, err := s.store.Find(ctx, sessionID, name)
	if err != nil || env == nil {
		return nil, err
	}
	return env, s.decode(env, out)
}

func (s *HandoffService) decode(env *models.HandoffEnvelope, out interface{}) error {
	name := env.Name
	payload := env.Payload
	if env.Encrypted {
		var err error
		if payload, err = s.open(payload); err != nil {
			return fmt.Errorf("failed to open %s: %w", name, err)
		}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// Consume marks env as used. A record rewritten since it was read is left untouched.
func (s *HandoffService) Consume(ctx context.Context, env *models.HandoffEnvelope) error {
	if env == nil {
		return nil
	}
	ok, err := s.store.MarkConsumed(ctx, env.ID, env.Version)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.WithFields(logrus.Fields{
			"session_id": env.SessionID,
			"record":     env.Name,
			"version":    env.Version,
		}).Info("Handoff record superseded before consume")
		return ErrEnvelopeSuperseded
	}
	return nil
}

// ReadSummary returns the reservation summary of the session, or nil
func (s *HandoffService) ReadSummary(ctx context.Context, sessionID string) (*models.ReservationSummary, *models.HandoffEnvelope, error) {
	var summary models.ReservationSummary
	env, err := s.ReadLastWritten(ctx, sessionID, models.RecordReservationSummary, &summary)
	if err != nil || env == nil {
		return nil, nil, err
	}
	return &summary, env, nil
}

// ReadFinalizedSummary returns the session's reservation summary once it was consumed by a
// confirmed payment, or nil
func (s *HandoffService) ReadFinalizedSummary(ctx context.Context, sessionID string) (*models.ReservationSummary, error) {
	var summary models.ReservationSummary
	env, err := s.ReadLatest(ctx, sessionID, models.RecordReservationSummary, &summary)
	if err != nil || env == nil || !env.Consumed {
		return nil, err
	}
	return &summary, nil
}

// ReadDeferred returns the deferred paperwork reservation of the session, or nil
func (s *HandoffService) ReadDeferred(ctx context.Context, sessionID string) (*models.DeferredPaperwork, *models.HandoffEnvelope, error) {
	var deferred models.DeferredPaperwork
	env, err := s.ReadLastWritten(ctx, sessionID, models.RecordDeferredPaperwork, &deferred)
	if err != nil || env == nil {
		return nil, nil, err
	}
	return &deferred, env, nil
}

// Purge removes consumed records past ConsumedRetention and records idle past the retention window
func (s *HandoffService) Purge(ctx context.Context) (int64, error) {
	now := s.now()
	n, err := s.store.PurgeStale(ctx, now.Add(-ConsumedRetention), now.Add(-s.retention))
	if err != nil {
		return 0, err
	}
	s.logger.WithField("deleted", n).Info("Handoff records purged")
	return n, nil
}

func (s *HandoffService) seal(plain []byte) ([]byte, error) {
	if s.key == nil {
		return nil, errors.New("handoff encryption key not configured")
	}
	var nonce [nonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, s.key), nil
}

func (s *HandoffService) open(box []byte) ([]byte, error) {
	if s.key == nil {
		return nil, errors.New("handoff encryption key not configured")
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return nil, errors.New("sealed payload too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return nil, errors.New("sealed payload failed authentication")
	}
	return plain, nil
}
