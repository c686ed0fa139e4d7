package badger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/timshannon/badgerhold/v4"

	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/models"
	"github.com/Lixing-Zhang/nutri-catalog/backend/internal/repository"
)

// UserRepository implements repository.UserRepository on Badger.
type UserRepository struct {
	db *Store

	// serialises the email uniqueness check with the insert
	mu sync.Mutex
}

func NewUserRepository(db *Store) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u := *user
	u.Email = strings.ToLower(u.Email)

	n, err := r.db.store.Count(&models.User{}, badgerhold.Where("Email").Eq(u.Email))
	if err != nil {
		return fmt.Errorf("failed to check email: %w", err)
	}
	if n > 0 {
		return repository.ErrUserExists
	}

	if err := r.db.store.Insert(u.ID, &u); err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return repository.ErrUserExists
		}
		return fmt.Errorf("failed to store user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := r.db.store.Get(id, &u); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var users []models.User
	if err := r.db.store.Find(&users, badgerhold.Where("Email").Eq(strings.ToLower(email))); err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if len(users) == 0 {
		return nil, repository.ErrUserNotFound
	}
	return &users[0], nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}
	u.PasswordHash = passwordHash
	if err := r.db.store.Update(id, u); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *UserRepository) ListEmails(ctx context.Context) ([]string, error) {
	var users []models.User
	if err := r.db.store.Find(&users, nil); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	emails := make([]string, len(users))
	for i, u := range users {
		emails[i] = u.Email
	}
	sort.Strings(emails)
	return emails, nil
}
