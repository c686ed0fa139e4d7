package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
)

// InMemorySessionRepository implements SessionRepository with in-memory storage
type InMemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	tokens   map[string]models.ResetToken
}

func NewInMemorySessionRepository() *InMemorySessionRepository {
	return &InMemorySessionRepository{
		sessions: make(map[string]models.Session),
		tokens:   make(map[string]models.ResetToken),
	}
}

func (r *InMemorySessionRepository) Create(ctx context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[session.SessionID] = *session
	return nil
}

func (r *InMemorySessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (r *InMemorySessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	return nil
}

func (r *InMemorySessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			removed++
		}
	}
	for token, t := range r.tokens {
		if !now.Before(t.ExpiresAt) {
			delete(r.tokens, token)
		}
	}
	return removed, nil
}

func (r *InMemorySessionRepository) DeleteByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (r *InMemorySessionRepository) CreateResetToken(ctx context.Context, token *models.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens[token.Token] = *token
	return nil
}

func (r *InMemorySessionRepository) ConsumeResetToken(ctx context.Context, token string) (*models.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, exists := r.tokens[token]
	if !exists {
		return nil, ErrTokenNotFound
	}
	delete(r.tokens, token)
	return &t, nil
}
