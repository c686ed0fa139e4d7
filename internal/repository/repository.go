package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/nutriscore"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrUserExists      = errors.New("user already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrTokenNotFound   = errors.New("reset token not found")
)

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	// GetAll returns the page of products matching filter, ordered by rating
	// then name, and the number of matches before paging. A Limit of zero
	// means no limit.
	GetAll(ctx context.Context, filter models.ProductFilter) ([]models.Product, int, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	Categories(ctx context.Context) ([]models.Category, error)
	CountByRating(ctx context.Context) (map[nutriscore.Grade]int, error)
	ListByCategory(ctx context.Context, category string) ([]models.Product, error)
}

// UserRepository stores accounts. Emails are stored and looked up lowercased.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ListEmails(ctx context.Context) ([]string, error)
}

// SessionRepository stores login sessions and password reset tokens.
type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	Get(ctx context.Context, id string) (*models.Session, error)
	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes every session expired at now and returns how many
	// were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
	// DeleteByUser removes every session owned by userID and returns how
	// many were removed.
	DeleteByUser(ctx context.Context, userID string) (int, error)
	CreateResetToken(ctx context.Context, token *models.ResetToken) error
	// ConsumeResetToken returns the token and removes it so it cannot be
	// used twice. Expiry is checked by the caller.
	ConsumeResetToken(ctx context.Context, token string) (*models.ResetToken, error)
}
