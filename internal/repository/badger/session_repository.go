package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
)

// SessionRepository implements repository.SessionRepository on Badger.
type SessionRepository struct {
	db *Store
}

func NewSessionRepository(db *Store) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, s *models.Session) error {
	if err := r.db.store.Upsert(s.SessionID, s); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	if err := r.db.store.Get(id, &s); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.store.Delete(id, &models.Session{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// expiredAt matches records whose ExpiresAt is not after now.
func expiredAt(now time.Time) *badgerhold.Query {
	return badgerhold.Where("ExpiresAt").MatchFunc(func(ra *badgerhold.RecordAccess) (bool, error) {
		expires, ok := ra.Field().(time.Time)
		if !ok {
			return false, fmt.Errorf("unexpected ExpiresAt type %T", ra.Field())
		}
		return !now.Before(expires), nil
	})
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	n, err := r.db.store.Count(&models.Session{}, expiredAt(now))
	if err != nil {
		return 0, fmt.Errorf("failed to count expired sessions: %w", err)
	}
	if err := r.db.store.DeleteMatching(&models.Session{}, expiredAt(now)); err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	if err := r.db.store.DeleteMatching(&models.ResetToken{}, expiredAt(now)); err != nil {
		return int(n), fmt.Errorf("failed to delete expired reset tokens: %w", err)
	}
	r.db.logger.Debug("expired sessions removed", "count", n)
	return int(n), nil
}

func (r *SessionRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	q := badgerhold.Where("UserID").Eq(userID)
	n, err := r.db.store.Count(&models.Session{}, q)
	if err != nil {
		return 0, fmt.Errorf("failed to count user sessions: %w", err)
	}
	if err := r.db.store.DeleteMatching(&models.Session{}, q); err != nil {
		return 0, fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return int(n), nil
}

func (r *SessionRepository) CreateResetToken(ctx context.Context, t *models.ResetToken) error {
	if err := r.db.store.Upsert(t.Token, t); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return nil
}

func (r *SessionRepository) ConsumeResetToken(ctx context.Context, token string) (*models.ResetToken, error) {
	var t models.ResetToken
	if err := r.db.store.Get(token, &t); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, repository.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get reset token: %w", err)
	}
	if err := r.db.store.Delete(token, &models.ResetToken{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, repository.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to delete reset token: %w", err)
	}
	return &t, nil
}
